package bot

import (
	"context"
	"sync/atomic"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ad/telegram-linker-bot/internal/config"
	"github.com/ad/telegram-linker-bot/internal/domain"
	"github.com/ad/telegram-linker-bot/internal/locale"
)

// BotHandler handles all Telegram bot interactions
type BotHandler struct {
	api         TelegramAPI
	controller  *domain.LinkLifecycleController
	registry    *domain.InviteLinkRegistry
	scheduler   *domain.CountdownScheduler
	permissions *domain.PermissionEvaluator
	linkers     *domain.LinkerDirectory
	chats       *domain.ChatDirectory
	watcher     *domain.PromotionWatcher
	console     *AdminConsole
	notices     *NoticeCleaner
	config      *config.Config
	logger      domain.Logger
	localizer   locale.Localizer
	botID       atomic.Int64
}

// NewBotHandler creates a new BotHandler with all dependencies
func NewBotHandler(
	api TelegramAPI,
	controller *domain.LinkLifecycleController,
	registry *domain.InviteLinkRegistry,
	scheduler *domain.CountdownScheduler,
	permissions *domain.PermissionEvaluator,
	linkers *domain.LinkerDirectory,
	chats *domain.ChatDirectory,
	watcher *domain.PromotionWatcher,
	sessions domain.SessionStore,
	cfg *config.Config,
	logger domain.Logger,
	localizer locale.Localizer,
) *BotHandler {
	return &BotHandler{
		api:         api,
		controller:  controller,
		registry:    registry,
		scheduler:   scheduler,
		permissions: permissions,
		linkers:     linkers,
		chats:       chats,
		watcher:     watcher,
		console:     NewAdminConsole(api, sessions, permissions, chats, linkers, controller, logger, localizer),
		notices:     NewNoticeCleaner(api, logger, cfg.NoticeTTL),
		config:      cfg,
		logger:      logger,
		localizer:   localizer,
	}
}

// SetBotID records the bot's own user ID once it is known
func (h *BotHandler) SetBotID(id int64) {
	h.botID.Store(id)
	h.scheduler.SetBotID(id)
}

// Register wires the command and callback handlers into b. Everything else
// reaches HandleUpdate through the bot's default handler.
func (h *BotHandler) Register(b *bot.Bot) {
	b.RegisterHandlerRegexp(bot.HandlerTypeMessageText, linkCommand, h.HandleLink)
	b.RegisterHandlerRegexp(bot.HandlerTypeMessageText, linkerCommand, h.HandleLinker)
	b.RegisterHandlerRegexp(bot.HandlerTypeMessageText, addLinkerCommand, h.HandleAddLinker)
	b.RegisterHandlerRegexp(bot.HandlerTypeMessageText, delLinkerCommand, h.HandleDelLinker)
	b.RegisterHandlerRegexp(bot.HandlerTypeMessageText, startCommand, h.HandleStart)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, h.HandleCallback)

	h.logger.Info("command handlers registered")
}

// HandleUpdate routes updates no registered handler matched: membership
// changes, pin notices, private console input and the +link trigger
func (h *BotHandler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	switch {
	case update.MyChatMember != nil:
		h.HandleMyChatMember(ctx, b, update)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *BotHandler) handleMessage(ctx context.Context, msg *models.Message) {
	if h.scheduler.HandleServiceMessage(ctx, msg) {
		return
	}
	if msg.From == nil {
		return
	}

	if isPrivateChat(msg.Chat) {
		h.console.HandleMessage(ctx, msg)
		return
	}

	h.handleLinkTrigger(ctx, msg)
}

// Shutdown drops pending notice deletions
func (h *BotHandler) Shutdown() {
	h.notices.Shutdown()
}

func isPrivateChat(chat models.Chat) bool {
	return chat.Type == "private"
}

func isGroupChat(chat models.Chat) bool {
	return chat.Type == "group" || chat.Type == "supergroup"
}

func (h *BotHandler) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) (*models.Message, error) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	msg, err := h.api.SendMessage(ctx, params)
	if err != nil {
		h.logger.Error("failed to send message", "chat_id", chatID, "error", err)
		return nil, err
	}
	return msg, nil
}

// sendNotice sends a group notice that deletes itself after NOTICE_TTL
func (h *BotHandler) sendNotice(ctx context.Context, chatID int64, text string) {
	msg, err := h.send(ctx, chatID, text, nil)
	if err != nil {
		return
	}
	h.notices.Schedule(chatID, msg.ID)
}

// deleteCommand removes the user's command message
func (h *BotHandler) deleteCommand(ctx context.Context, msg *models.Message) {
	deleteMessages(ctx, h.api, h.logger, msg.Chat.ID, msg.ID)
}

func (h *BotHandler) edit(ctx context.Context, msg *models.Message, text string, markup models.ReplyMarkup) {
	params := &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := h.api.EditMessageText(ctx, params); err != nil && !domain.IsMessageNotModified(err) {
		h.logger.Warn("failed to edit message", "chat_id", msg.Chat.ID, "message_id", msg.ID, "error", err)
	}
}

// answerCallback answers a callback query. An empty text only clears the
// button's loading state.
func answerCallback(ctx context.Context, api TelegramAPI, logger domain.Logger, callbackID, text string, alert bool) {
	if _, err := api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	}); err != nil {
		logger.Debug("callback answer dropped", "callback_id", callbackID, "error", err)
	}
}
