package bot

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ad/telegram-linker-bot/internal/domain"
	"github.com/ad/telegram-linker-bot/internal/locale"
)

func button(text string, action domain.CallbackAction) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: action.Encode()}
}

func (h *BotHandler) linkerMenuMarkup(full bool) *models.InlineKeyboardMarkup {
	create := button(h.localizer.Localize(locale.ButtonCreateDefaultShort), domain.CallbackAction{Kind: domain.ActionCreateLink})
	rows := [][]models.InlineKeyboardButton{{create}}
	if full {
		create.Text = h.localizer.Localize(locale.ButtonCreateDefaultFull)
		rows = [][]models.InlineKeyboardButton{
			{create},
			{button(h.localizer.Localize(locale.ButtonCreateWithParams), domain.CallbackAction{Kind: domain.ActionCreateArgs})},
		}
	}

	rows = append(rows,
		[]models.InlineKeyboardButton{button(h.localizer.Localize(locale.ButtonMyLinks), domain.CallbackAction{Kind: domain.ActionMyLinks})},
		[]models.InlineKeyboardButton{button(h.localizer.Localize(locale.ButtonHelp), domain.CallbackAction{Kind: domain.ActionHelp})},
	)
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func backMarkup(localizer locale.Localizer, target domain.CallbackAction) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{button(localizer.Localize(locale.ButtonBack), target)},
		},
	}
}

// HandleCallback handles inline button presses
func (h *BotHandler) HandleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}
	userID := callback.From.ID

	msg := callback.Message.Message
	if msg == nil {
		answerCallback(ctx, h.api, h.logger, callback.ID, "", false)
		return
	}

	action, err := domain.DecodeCallbackAction(callback.Data)
	if err != nil {
		h.logger.Debug("unknown callback data", "user_id", userID, "data", callback.Data)
		answerCallback(ctx, h.api, h.logger, callback.ID, "", false)
		return
	}

	if action.IsAdmin() {
		if !h.permissions.IsOperator(userID) {
			h.logger.Warn("unauthorized admin callback", "user_id", userID, "action", action.Kind)
			answerCallback(ctx, h.api, h.logger, callback.ID, h.localizer.Localize(locale.PermissionOperatorOnly), true)
			return
		}
		h.console.HandleCallback(ctx, callback.ID, userID, msg, action)
		return
	}

	switch action.Kind {
	case domain.ActionHelp:
		h.edit(ctx, msg, h.localizer.Localize(locale.HelpInline), backMarkup(h.localizer, domain.CallbackAction{Kind: domain.ActionMainMenu}))
		answerCallback(ctx, h.api, h.logger, callback.ID, "", false)

	case domain.ActionMainMenu:
		h.edit(ctx, msg, h.localizer.Localize(locale.LinkerMainMenuTitle), h.linkerMenuMarkup(false))
		answerCallback(ctx, h.api, h.logger, callback.ID, "", false)

	case domain.ActionCreateLink:
		answerCallback(ctx, h.api, h.logger, callback.ID, h.localizer.Localize(locale.HelpCreatePromptAlert), false)
		if _, err := h.controller.Create(ctx, domain.CreateRequest{
			ChatID:   msg.Chat.ID,
			ActorID:  userID,
			ArgsText: h.config.DefaultLinkArgs,
		}); err != nil {
			h.logger.Debug("menu link creation failed", "chat_id", msg.Chat.ID, "user_id", userID, "error", err)
		}

	case domain.ActionCreateArgs:
		answerCallback(ctx, h.api, h.logger, callback.ID, h.localizer.Localize(locale.HelpOpenWithArgsAlert), true)

	case domain.ActionMyLinks:
		h.showMyLinks(ctx, msg, userID, false)
		answerCallback(ctx, h.api, h.logger, callback.ID, "", false)

	case domain.ActionRevokeLink:
		h.handleRevokeCallback(ctx, callback.ID, userID, msg, action.LinkName)

	default:
		answerCallback(ctx, h.api, h.logger, callback.ID, "", false)
	}
}

func (h *BotHandler) handleRevokeCallback(ctx context.Context, callbackID string, userID int64, msg *models.Message, name string) {
	chatID := msg.Chat.ID

	fromAnnouncement := false
	if link, ok := h.registry.FindByName(chatID, name); ok && link.LinkMessageID != nil {
		fromAnnouncement = *link.LinkMessageID == msg.ID
	}

	result, _ := h.controller.Revoke(ctx, chatID, userID, name)
	switch result {
	case domain.RevokeDenied:
		answerCallback(ctx, h.api, h.logger, callbackID, h.localizer.Localize(locale.PermissionNoRevoke), true)
		return
	case domain.RevokeAlreadyGone:
		answerCallback(ctx, h.api, h.logger, callbackID, h.localizer.Localize(locale.LinkRevokeGoneAlert), false)
		return
	}

	answerCallback(ctx, h.api, h.logger, callbackID, h.localizer.Localize(locale.LinkRevokedAlert), false)

	// the announcement is deleted by the revoke, a list view is refreshed
	if !fromAnnouncement {
		h.showMyLinks(ctx, msg, userID, true)
	}
}

// showMyLinks renders the user's active links of the chat into msg. With
// refresh set only the keyboard is replaced while links remain.
func (h *BotHandler) showMyLinks(ctx context.Context, msg *models.Message, userID int64, refresh bool) {
	links := h.registry.ListByCreator(msg.Chat.ID, userID)
	back := domain.CallbackAction{Kind: domain.ActionMainMenu}

	if len(links) == 0 {
		h.edit(ctx, msg, h.localizer.Localize(locale.LinksNoneForUser), backMarkup(h.localizer, back))
		return
	}

	now := h.scheduler.Now()
	units := h.scheduler.DurationUnits()
	rows := make([][]models.InlineKeyboardButton, 0, len(links)+1)
	for _, link := range links {
		label := h.localizer.LocalizeWithTemplate(locale.ButtonLinkItem, link.Name)
		if link.ExpiresAt != nil {
			left := domain.FormatRemaining(domain.RemainingSeconds(*link.ExpiresAt, now), units)
			label = h.localizer.LocalizeWithTemplate(locale.LinksListItemExpiresIn, label, left)
		}

		rows = append(rows, []models.InlineKeyboardButton{
			button(label, domain.CallbackAction{Kind: domain.ActionNoop}),
			button(h.localizer.Localize(locale.ButtonRevoke), domain.CallbackAction{Kind: domain.ActionRevokeLink, LinkName: link.Name}),
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{button(h.localizer.Localize(locale.ButtonBack), back)})
	markup := &models.InlineKeyboardMarkup{InlineKeyboard: rows}

	if !refresh {
		h.edit(ctx, msg, h.localizer.Localize(locale.LinksListForUser), markup)
		return
	}

	if _, err := h.api.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		ReplyMarkup: markup,
	}); err != nil && !domain.IsMessageNotModified(err) {
		h.logger.Warn("failed to refresh link list", "chat_id", msg.Chat.ID, "message_id", msg.ID, "error", err)
	}
}
