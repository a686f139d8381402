package bot

import (
	"context"
	"html"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ad/telegram-linker-bot/internal/locale"
)

// HandleMyChatMember tracks the bot joining group chats. On join the chat is
// remembered, greeted, and watched until the bot is promoted.
func (h *BotHandler) HandleMyChatMember(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.MyChatMember == nil {
		return
	}

	chatMember := update.MyChatMember
	chat := chatMember.Chat
	newStatus := chatMember.NewChatMember.Type
	oldStatus := chatMember.OldChatMember.Type

	if !isGroupChat(chat) {
		return
	}

	wasOut := oldStatus == models.ChatMemberTypeLeft || oldStatus == models.ChatMemberTypeBanned
	isIn := newStatus == models.ChatMemberTypeMember || newStatus == models.ChatMemberTypeAdministrator
	if !wasOut || !isIn {
		h.logger.Debug("bot membership changed", "chat_id", chat.ID, "old_status", oldStatus, "new_status", newStatus)
		return
	}

	title := chat.Title
	if title == "" {
		title = strconv.FormatInt(chat.ID, 10)
	}

	h.logger.Info("bot added to chat",
		"chat_id", chat.ID,
		"chat_title", title,
		"added_by_user_id", chatMember.From.ID,
		"status", newStatus,
	)

	h.chats.Register(ctx, chat.ID, title)

	welcome, err := h.send(ctx, chat.ID, h.localizer.LocalizeWithTemplate(locale.WelcomeGroupJoin, html.EscapeString(title)), nil)
	if err == nil {
		h.chats.SetPendingAnnouncement(ctx, chat.ID, welcome.ID)
	}

	h.watcher.Watch(chat.ID, h.botID.Load())
}
