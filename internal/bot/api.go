package bot

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ad/telegram-linker-bot/internal/domain"
)

// TelegramAPI is the part of the Bot API the handlers call. *bot.Bot
// satisfies it.
type TelegramAPI interface {
	domain.Gateway

	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	EditMessageReplyMarkup(ctx context.Context, params *bot.EditMessageReplyMarkupParams) (*models.Message, error)
	GetChat(ctx context.Context, params *bot.GetChatParams) (*models.ChatFullInfo, error)
	BanChatMember(ctx context.Context, params *bot.BanChatMemberParams) (bool, error)
	UnbanChatMember(ctx context.Context, params *bot.UnbanChatMemberParams) (bool, error)
	PromoteChatMember(ctx context.Context, params *bot.PromoteChatMemberParams) (bool, error)
	SetChatAdministratorCustomTitle(ctx context.Context, params *bot.SetChatAdministratorCustomTitleParams) (bool, error)
}

var _ TelegramAPI = (*bot.Bot)(nil)
