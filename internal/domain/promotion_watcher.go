package domain

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/ad/telegram-linker-bot/internal/locale"
)

const (
	DefaultPromotionPollInterval = 15 * time.Second
	DefaultPromotionPollTimeout  = time.Hour
)

type promotionWatch struct {
	cancel context.CancelFunc
}

// PromotionWatcher waits for the bot to be promoted to administrator in a
// chat it just joined, then replaces the welcome message with a ready notice
type PromotionWatcher struct {
	members   MemberGateway
	ops       messageOps
	chats     *ChatDirectory
	localizer locale.Localizer
	logger    Logger

	interval time.Duration
	timeout  time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	watches cmap.ConcurrentMap[string, *promotionWatch]
}

func NewPromotionWatcher(
	members MemberGateway,
	messages MessageGateway,
	chats *ChatDirectory,
	localizer locale.Localizer,
	logger Logger,
	interval, timeout time.Duration,
) *PromotionWatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &PromotionWatcher{
		members:   members,
		ops:       messageOps{gateway: messages, logger: logger},
		chats:     chats,
		localizer: localizer,
		logger:    logger,
		interval:  interval,
		timeout:   timeout,
		ctx:       ctx,
		cancel:    cancel,
		watches:   cmap.New[*promotionWatch](),
	}
}

// Watch starts polling the bot's role in chatID, replacing any earlier watch
// for the same chat
func (w *PromotionWatcher) Watch(chatID, botID int64) {
	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	watch := &promotionWatch{cancel: cancel}

	w.watches.Upsert(chatKey(chatID), watch, func(exists bool, old, fresh *promotionWatch) *promotionWatch {
		if exists {
			old.cancel()
		}
		return fresh
	})

	go w.poll(ctx, watch, chatID, botID)
}

// Watching reports whether a watch is running for chatID
func (w *PromotionWatcher) Watching(chatID int64) bool {
	return w.watches.Has(chatKey(chatID))
}

func (w *PromotionWatcher) poll(ctx context.Context, watch *promotionWatch, chatID, botID int64) {
	defer func() {
		watch.cancel()
		w.watches.RemoveCb(chatKey(chatID), func(_ string, v *promotionWatch, exists bool) bool {
			return exists && v == watch
		})
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("promotion watch ended", "chat_id", chatID, "reason", ctx.Err())
			return
		case <-ticker.C:
			member, err := w.members.GetChatMember(ctx, &bot.GetChatMemberParams{
				ChatID: chatID,
				UserID: botID,
			})
			if err != nil {
				w.logger.Warn("promotion watch stopped, member query failed", "chat_id", chatID, "error", err)
				return
			}
			if member.Type != models.ChatMemberTypeAdministrator {
				continue
			}

			w.announceReady(ctx, chatID)
			return
		}
	}
}

func (w *PromotionWatcher) announceReady(ctx context.Context, chatID int64) {
	if messageID, ok := w.chats.TakePendingAnnouncement(ctx, chatID); ok {
		w.ops.delete(ctx, chatID, messageID, "welcome")
	}
	w.ops.send(ctx, chatID, w.localizer.Localize(locale.WelcomeAdminReady))
	w.logger.Info("bot promoted to administrator", "chat_id", chatID)
}

// Shutdown stops every running watch
func (w *PromotionWatcher) Shutdown() {
	w.cancel()
	for _, key := range w.watches.Keys() {
		if watch, ok := w.watches.Pop(key); ok {
			watch.cancel()
		}
	}
}
