package domain

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageGateway defines the message operations the link lifecycle needs
type MessageGateway interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
	PinChatMessage(ctx context.Context, params *bot.PinChatMessageParams) (bool, error)
	UnpinChatMessage(ctx context.Context, params *bot.UnpinChatMessageParams) (bool, error)
}

// InviteGateway creates and revokes chat invite links
type InviteGateway interface {
	CreateChatInviteLink(ctx context.Context, params *bot.CreateChatInviteLinkParams) (*models.ChatInviteLink, error)
	RevokeChatInviteLink(ctx context.Context, params *bot.RevokeChatInviteLinkParams) (*models.ChatInviteLink, error)
}

// MemberGateway answers chat membership queries
type MemberGateway interface {
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
	GetChatAdministrators(ctx context.Context, params *bot.GetChatAdministratorsParams) ([]models.ChatMember, error)
}

// Gateway is the subset of the Telegram Bot API used by the domain.
// *bot.Bot satisfies it.
type Gateway interface {
	MessageGateway
	InviteGateway
	MemberGateway
}

// IsMessageNotModified reports whether an edit failed only because the text
// was unchanged
func IsMessageNotModified(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}

// messageOps wraps best-effort message cleanup. Failures are logged at debug
// level and dropped.
type messageOps struct {
	gateway MessageGateway
	logger  Logger
}

func (o messageOps) delete(ctx context.Context, chatID int64, messageID int, what string) {
	if messageID == 0 {
		return
	}
	if _, err := o.gateway.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	}); err != nil {
		o.logger.Debug("message delete dropped", "what", what, "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (o messageOps) unpin(ctx context.Context, chatID int64, messageID int) {
	if _, err := o.gateway.UnpinChatMessage(ctx, &bot.UnpinChatMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	}); err != nil {
		o.logger.Debug("unpin dropped", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

// removeLinkMessages unpins and deletes the countdown message and deletes the
// announcement, whichever exist
func (o messageOps) removeLinkMessages(ctx context.Context, chatID int64, link InviteLink) {
	if link.TimerMessageID != nil {
		o.unpin(ctx, chatID, *link.TimerMessageID)
		o.delete(ctx, chatID, *link.TimerMessageID, "countdown")
	}
	if link.LinkMessageID != nil {
		o.delete(ctx, chatID, *link.LinkMessageID, "announcement")
	}
}

func (o messageOps) send(ctx context.Context, chatID int64, text string) {
	if _, err := o.gateway.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}); err != nil {
		o.logger.Debug("notice dropped", "chat_id", chatID, "error", err)
	}
}
