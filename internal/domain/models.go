package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrLinkNotFound     = errors.New("invite link not found")
	ErrJobExists        = errors.New("countdown job already exists")
	ErrDocumentNotFound = errors.New("document not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidUserID    = errors.New("user ID must be set")
	ErrInvalidChatID    = errors.New("chat ID must be set")
	ErrEmptyLinkName    = errors.New("link name cannot be empty")
	ErrEmptyLinkURL     = errors.New("invite URL cannot be empty")
	ErrNoTimerMessage   = errors.New("link has no countdown message")
	ErrNoExpiry         = errors.New("link has no expiry")
)

// Logger interface for logging
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// InviteLink is a bot-issued invite link tracked for one chat.
// Optional fields are nil when absent.
type InviteLink struct {
	Name           string     `json:"name" bson:"name"`
	URL            string     `json:"link" bson:"link"`
	CreatorID      int64      `json:"creatorId" bson:"creatorId"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	UsageLimit     *int       `json:"usageLimit,omitempty" bson:"usageLimit,omitempty"`
	LinkMessageID  *int       `json:"linkMessageId,omitempty" bson:"linkMessageId,omitempty"`
	TimerMessageID *int       `json:"timerMessageId,omitempty" bson:"timerMessageId,omitempty"`
}

// Validate checks the fields every stored link must carry
func (l *InviteLink) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrEmptyLinkName
	}
	if strings.TrimSpace(l.URL) == "" {
		return ErrEmptyLinkURL
	}
	if l.CreatorID == 0 {
		return ErrInvalidUserID
	}
	return nil
}

// Expired reports whether the link has an expiry that is not after now
func (l *InviteLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// LinkArgs is the result of parsing link creation arguments
type LinkArgs struct {
	UsageLimit *int
	ExpiresAt  *time.Time
}

// ChatInfo is what the bot remembers about a chat it was added to
type ChatInfo struct {
	Title string `json:"title" bson:"title"`
}

// ChatEntry pairs a chat ID with its stored info
type ChatEntry struct {
	ChatID int64
	ChatInfo
}

// RevokeResult describes the outcome of a revoke request
type RevokeResult int

const (
	RevokeDone RevokeResult = iota
	RevokeAlreadyGone
	RevokeDenied
)

func (r RevokeResult) String() string {
	switch r {
	case RevokeDone:
		return "revoked"
	case RevokeAlreadyGone:
		return "already_gone"
	case RevokeDenied:
		return "denied"
	}
	return "unknown"
}

func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func parseChatKey(key string) (int64, bool) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
