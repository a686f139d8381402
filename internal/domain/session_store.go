package domain

import (
	"context"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Admin console session states
const (
	ConsoleAwaitingAdminID    = "awaiting_admin_id"
	ConsoleAwaitingAdminTitle = "awaiting_admin_title"
	ConsoleAwaitingBanID      = "awaiting_ban_id"
	ConsoleAwaitingUnbanID    = "awaiting_unban_id"
)

// SessionStore keeps one pending console action per operator.
// Get returns ErrSessionNotFound when the user has none.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (state string, data map[string]interface{}, err error)
	Set(ctx context.Context, userID int64, state string, data map[string]interface{}) error
	Delete(ctx context.Context, userID int64) error
}

type memorySession struct {
	state     string
	data      map[string]interface{}
	updatedAt time.Time
}

// MemorySessionStore keeps console sessions in process memory. Sessions idle
// for longer than maxAge are treated as missing.
type MemorySessionStore struct {
	sessions cmap.ConcurrentMap[string, memorySession]
	maxAge   time.Duration
	now      func() time.Time
}

func NewMemorySessionStore(maxAge time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: cmap.New[memorySession](),
		maxAge:   maxAge,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Get(ctx context.Context, userID int64) (string, map[string]interface{}, error) {
	key := chatKey(userID)
	session, ok := s.sessions.Get(key)
	if !ok {
		return "", nil, ErrSessionNotFound
	}
	if s.maxAge > 0 && s.now().Sub(session.updatedAt) > s.maxAge {
		s.sessions.Remove(key)
		return "", nil, ErrSessionNotFound
	}

	data := make(map[string]interface{}, len(session.data))
	for k, v := range session.data {
		data[k] = v
	}
	return session.state, data, nil
}

func (s *MemorySessionStore) Set(ctx context.Context, userID int64, state string, data map[string]interface{}) error {
	copied := make(map[string]interface{}, len(data))
	for k, v := range data {
		copied[k] = v
	}
	s.sessions.Set(chatKey(userID), memorySession{state: state, data: copied, updatedAt: s.now()})
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, userID int64) error {
	s.sessions.Remove(chatKey(userID))
	return nil
}
