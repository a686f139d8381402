package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/ad/telegram-linker-bot/internal/domain"
)

// rateLimitRetryDelay is how long a rate limited delete waits before its single retry
var rateLimitRetryDelay = time.Second

// MessageDeleter is the delete call of the Bot API
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// deleteMessages deletes messages from a chat. Failures are logged and
// never interrupt the caller.
func deleteMessages(ctx context.Context, b MessageDeleter, logger domain.Logger, chatID int64, messageIDs ...int) {
	for _, messageID := range messageIDs {
		if err := deleteMessageWithRetry(ctx, b, logger, chatID, messageID); err != nil {
			logger.Debug("message deletion failed",
				"chat_id", chatID,
				"message_id", messageID,
				"error", err.Error())
			continue
		}
		logger.Debug("message deleted", "chat_id", chatID, "message_id", messageID)
	}
}

func deleteMessageWithRetry(ctx context.Context, b MessageDeleter, logger domain.Logger, chatID int64, messageID int) error {
	params := &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	}

	_, err := b.DeleteMessage(ctx, params)
	if err == nil {
		return nil
	}

	switch {
	case isRateLimitError(err):
		logger.Info("rate limit hit, retrying delete", "chat_id", chatID, "message_id", messageID, "delay", rateLimitRetryDelay)

		select {
		case <-time.After(rateLimitRetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}

		if _, retryErr := b.DeleteMessage(ctx, params); retryErr != nil {
			return retryErr
		}
		return nil
	case isMessageNotFoundError(err):
		logger.Debug("message already gone", "chat_id", chatID, "message_id", messageID)
	case isMessageTooOldError(err):
		logger.Debug("message too old to delete", "chat_id", chatID, "message_id", messageID)
	}
	return err
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "retry after")
}

func isMessageNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "message to delete not found") ||
		strings.Contains(errStr, "message not found") ||
		strings.Contains(errStr, "MESSAGE_ID_INVALID")
}

func isMessageTooOldError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "message can't be deleted") ||
		strings.Contains(errStr, "message is too old") ||
		strings.Contains(errStr, "MESSAGE_DELETE_FORBIDDEN")
}

// NoticeCleaner deletes transient group notices once their TTL passes
type NoticeCleaner struct {
	deleter MessageDeleter
	logger  domain.Logger
	ttl     time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	timers cmap.ConcurrentMap[string, *time.Timer]
}

func NewNoticeCleaner(deleter MessageDeleter, logger domain.Logger, ttl time.Duration) *NoticeCleaner {
	ctx, cancel := context.WithCancel(context.Background())
	return &NoticeCleaner{
		deleter: deleter,
		logger:  logger,
		ttl:     ttl,
		ctx:     ctx,
		cancel:  cancel,
		timers:  cmap.New[*time.Timer](),
	}
}

// Schedule deletes the message after the TTL
func (c *NoticeCleaner) Schedule(chatID int64, messageID int) {
	if c.ctx.Err() != nil {
		return
	}

	key := strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(messageID)
	timer := time.AfterFunc(c.ttl, func() {
		c.timers.Remove(key)
		deleteMessages(c.ctx, c.deleter, c.logger, chatID, messageID)
	})
	c.timers.Set(key, timer)
}

// Pending returns the number of notices waiting for deletion
func (c *NoticeCleaner) Pending() int {
	return c.timers.Count()
}

// Shutdown drops every pending deletion
func (c *NoticeCleaner) Shutdown() {
	c.cancel()
	for _, key := range c.timers.Keys() {
		if timer, ok := c.timers.Pop(key); ok {
			timer.Stop()
		}
	}
}
