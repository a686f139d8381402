package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ad/telegram-linker-bot/internal/domain"
	"github.com/ad/telegram-linker-bot/internal/locale"
)

// Admin console FSM states
const (
	StateConsoleAskAdminID    = "console_ask_admin_id"
	StateConsoleAskAdminTitle = "console_ask_admin_title"
	StateConsoleAskBanID      = "console_ask_ban_id"
	StateConsoleAskUnbanID    = "console_ask_unban_id"
)

// consoleContext is the data an admin console session carries. IDs are
// stored as strings so they survive a JSON round trip intact.
type consoleContext struct {
	ChatID       int64
	TargetUserID int64
}

func (c *consoleContext) toMap() map[string]interface{} {
	data := map[string]interface{}{
		"chat_id": strconv.FormatInt(c.ChatID, 10),
	}
	if c.TargetUserID != 0 {
		data["target_user_id"] = strconv.FormatInt(c.TargetUserID, 10)
	}
	return data
}

func (c *consoleContext) fromMap(data map[string]interface{}) error {
	raw, ok := data["chat_id"].(string)
	if !ok {
		return fmt.Errorf("console session has no chat")
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("console session chat: %w", err)
	}
	c.ChatID = chatID

	if raw, ok := data["target_user_id"].(string); ok {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("console session user: %w", err)
		}
		c.TargetUserID = userID
	}
	return nil
}

// AdminConsole is the operator's private chat panel for managing the chats
// the bot was added to
type AdminConsole struct {
	api         TelegramAPI
	sessions    domain.SessionStore
	permissions *domain.PermissionEvaluator
	chats       *domain.ChatDirectory
	linkers     *domain.LinkerDirectory
	controller  *domain.LinkLifecycleController
	logger      domain.Logger
	localizer   locale.Localizer
}

func NewAdminConsole(
	api TelegramAPI,
	sessions domain.SessionStore,
	permissions *domain.PermissionEvaluator,
	chats *domain.ChatDirectory,
	linkers *domain.LinkerDirectory,
	controller *domain.LinkLifecycleController,
	logger domain.Logger,
	localizer locale.Localizer,
) *AdminConsole {
	return &AdminConsole{
		api:         api,
		sessions:    sessions,
		permissions: permissions,
		chats:       chats,
		linkers:     linkers,
		controller:  controller,
		logger:      logger,
		localizer:   localizer,
	}
}

func (c *AdminConsole) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := c.api.SendMessage(ctx, params); err != nil {
		c.logger.Error("failed to send console message", "chat_id", chatID, "error", err)
	}
}

func (c *AdminConsole) edit(ctx context.Context, msg *models.Message, text string, markup models.ReplyMarkup) {
	if _, err := c.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: markup,
	}); err != nil && !domain.IsMessageNotModified(err) {
		c.logger.Warn("failed to edit console message", "chat_id", msg.Chat.ID, "error", err)
	}
}

// Reset drops the operator's pending console step
func (c *AdminConsole) Reset(ctx context.Context, userID int64) {
	if err := c.sessions.Delete(ctx, userID); err != nil {
		c.logger.Warn("failed to reset console session", "user_id", userID, "error", err)
	}
}

// ShowPanel sends the list of known chats. Chats the bot can no longer see
// are forgotten.
func (c *AdminConsole) ShowPanel(ctx context.Context, chatID int64) {
	entries := c.chats.List()
	if len(entries) == 0 {
		c.send(ctx, chatID, c.localizer.Localize(locale.AdminPanelEmpty), nil)
		return
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(entries))
	for _, entry := range entries {
		info, err := c.api.GetChat(ctx, &bot.GetChatParams{ChatID: entry.ChatID})
		if err != nil {
			c.logger.Warn("chat unavailable, forgetting it", "chat_id", entry.ChatID, "error", err)
			c.chats.Forget(ctx, entry.ChatID)
			continue
		}

		title := info.Title
		if title == "" {
			title = c.localizer.LocalizeWithTemplate(locale.AdminPanelChatFallback, strconv.FormatInt(entry.ChatID, 10))
		}
		rows = append(rows, []models.InlineKeyboardButton{
			button(title, domain.CallbackAction{Kind: domain.ActionManageChat, ChatID: entry.ChatID}),
		})
	}

	c.send(ctx, chatID, c.localizer.Localize(locale.AdminPanelChooseChat), &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (c *AdminConsole) manageChatMarkup(chatID int64) *models.InlineKeyboardMarkup {
	action := func(kind domain.ActionKind) domain.CallbackAction {
		return domain.CallbackAction{Kind: kind, ChatID: chatID}
	}

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{button(c.localizer.Localize(locale.ButtonAddAdmin), action(domain.ActionPromote))},
			{
				button(c.localizer.Localize(locale.ButtonBan), action(domain.ActionBan)),
				button(c.localizer.Localize(locale.ButtonUnban), action(domain.ActionUnban)),
			},
			{button(c.localizer.Localize(locale.ButtonListLinkers), action(domain.ActionListLinkers))},
			{button(c.localizer.Localize(locale.ButtonRevokeAll), action(domain.ActionRevokeAll))},
			{button(c.localizer.Localize(locale.ButtonBack), domain.CallbackAction{Kind: domain.ActionAdminPanel})},
		},
	}
}

// HandleCallback handles the operator's panel buttons. The caller has
// already checked that userID is an operator.
func (c *AdminConsole) HandleCallback(ctx context.Context, callbackID string, userID int64, msg *models.Message, action domain.CallbackAction) {
	answer := func(text string, alert bool) {
		answerCallback(ctx, c.api, c.logger, callbackID, text, alert)
	}
	backToChat := domain.CallbackAction{Kind: domain.ActionManageChat, ChatID: action.ChatID}

	switch action.Kind {
	case domain.ActionAdminPanel:
		c.Reset(ctx, userID)
		deleteMessages(ctx, c.api, c.logger, msg.Chat.ID, msg.ID)
		c.ShowPanel(ctx, msg.Chat.ID)
		answer("", false)

	case domain.ActionManageChat:
		info, err := c.api.GetChat(ctx, &bot.GetChatParams{ChatID: action.ChatID})
		if err != nil {
			c.logger.Warn("chat unavailable, forgetting it", "chat_id", action.ChatID, "error", err)
			answer(c.localizer.Localize(locale.AdminPanelGetChatFailed), true)
			c.chats.Forget(ctx, action.ChatID)
			deleteMessages(ctx, c.api, c.logger, msg.Chat.ID, msg.ID)
			c.ShowPanel(ctx, msg.Chat.ID)
			return
		}

		title := info.Title
		if title == "" {
			title = strconv.FormatInt(action.ChatID, 10)
		}
		c.edit(ctx, msg, c.localizer.LocalizeWithTemplate(locale.AdminPanelManageChat, html.EscapeString(title)), c.manageChatMarkup(action.ChatID))
		answer("", false)

	case domain.ActionPromote, domain.ActionBan, domain.ActionUnban:
		state, prompt := StateConsoleAskAdminID, locale.ConsolePromptAdminID
		switch action.Kind {
		case domain.ActionBan:
			state, prompt = StateConsoleAskBanID, locale.ConsolePromptBanID
		case domain.ActionUnban:
			state, prompt = StateConsoleAskUnbanID, locale.ConsolePromptUnbanID
		}

		session := &consoleContext{ChatID: action.ChatID}
		if err := c.sessions.Set(ctx, userID, state, session.toMap()); err != nil {
			c.logger.Error("failed to start console step", "user_id", userID, "state", state, "error", err)
			answer("", false)
			return
		}
		c.logger.Info("console step started", "user_id", userID, "state", state, "chat_id", action.ChatID)

		deleteMessages(ctx, c.api, c.logger, msg.Chat.ID, msg.ID)
		c.send(ctx, msg.Chat.ID, c.localizer.Localize(prompt), nil)
		answer("", false)

	case domain.ActionListLinkers:
		c.showLinkers(ctx, msg, action.ChatID)
		answer("", false)

	case domain.ActionUnlink:
		if c.linkers.Revoke(ctx, action.ChatID, action.UserID) {
			c.logger.Info("linker revoked from console", "chat_id", action.ChatID, "user_id", action.UserID)
		}
		answer(c.localizer.Localize(locale.LinkersRemovedAlert), false)
		c.edit(ctx, msg, c.localizer.Localize(locale.LinkersRemovedText), backMarkup(c.localizer, backToChat))

	case domain.ActionRevokeAll:
		count := c.controller.RevokeAll(ctx, action.ChatID)
		answer(c.localizer.Localize(locale.LinksRevokeAllDone), false)
		c.edit(ctx, msg,
			c.localizer.LocalizeWithTemplate(locale.LinksRevokeAllText, humanize.Comma(int64(count))),
			backMarkup(c.localizer, domain.CallbackAction{Kind: domain.ActionAdminPanel}),
		)

	default:
		answer("", false)
	}
}

func (c *AdminConsole) showLinkers(ctx context.Context, msg *models.Message, chatID int64) {
	back := domain.CallbackAction{Kind: domain.ActionManageChat, ChatID: chatID}

	ids := c.linkers.List(chatID)
	if len(ids) == 0 {
		c.edit(ctx, msg, c.localizer.Localize(locale.LinkersListEmpty), backMarkup(c.localizer, back))
		return
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(ids)+1)
	for _, id := range ids {
		rows = append(rows, []models.InlineKeyboardButton{
			button(c.localizer.LocalizeWithTemplate(locale.LinkersListItem, strconv.FormatInt(id, 10)), domain.CallbackAction{Kind: domain.ActionNoop}),
			button(c.localizer.Localize(locale.LinkersRemoveButton), domain.CallbackAction{Kind: domain.ActionUnlink, ChatID: chatID, UserID: id}),
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{button(c.localizer.Localize(locale.ButtonBack), back)})

	c.edit(ctx, msg, c.localizer.Localize(locale.LinkersListTitle), &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// HandleMessage processes private chat input. Non-operators get the help
// text; operators either answer the pending step or get the panel.
func (c *AdminConsole) HandleMessage(ctx context.Context, msg *models.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if !c.permissions.IsOperator(userID) {
		c.send(ctx, chatID, c.localizer.Localize(locale.ConsoleNotOperatorHelp), nil)
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		return
	}

	state, data, err := c.sessions.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			c.logger.Error("failed to load console session", "user_id", userID, "error", err)
		}
		c.finish(ctx, userID, chatID)
		return
	}

	session := &consoleContext{}
	if err := session.fromMap(data); err != nil || strings.TrimSpace(msg.Text) == "" {
		if err != nil {
			c.logger.Warn("dropping broken console session", "user_id", userID, "error", err)
		}
		c.finish(ctx, userID, chatID)
		return
	}
	input := strings.TrimSpace(msg.Text)

	switch state {
	case StateConsoleAskAdminID, StateConsoleAskBanID, StateConsoleAskUnbanID:
		targetID, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			c.send(ctx, chatID, c.localizer.Localize(locale.ConsoleAskUserIDNumber), nil)
			return
		}

		switch state {
		case StateConsoleAskAdminID:
			session.TargetUserID = targetID
			if err := c.sessions.Set(ctx, userID, StateConsoleAskAdminTitle, session.toMap()); err != nil {
				c.logger.Error("failed to store console step", "user_id", userID, "error", err)
				c.finish(ctx, userID, chatID)
				return
			}
			c.logger.Info("state transition", "user_id", userID, "old_state", state, "new_state", StateConsoleAskAdminTitle)
			c.send(ctx, chatID, c.localizer.LocalizeWithTemplate(locale.ConsoleAskCustomTitle, input), nil)
			return
		case StateConsoleAskBanID:
			c.ban(ctx, chatID, session.ChatID, targetID)
		case StateConsoleAskUnbanID:
			c.unban(ctx, chatID, session.ChatID, targetID)
		}

	case StateConsoleAskAdminTitle:
		c.promote(ctx, chatID, session.ChatID, session.TargetUserID, input)

	default:
		c.logger.Warn("unknown console state", "user_id", userID, "state", state)
	}

	c.finish(ctx, userID, chatID)
}

func (c *AdminConsole) finish(ctx context.Context, userID, chatID int64) {
	c.Reset(ctx, userID)
	c.ShowPanel(ctx, chatID)
}

func (c *AdminConsole) ban(ctx context.Context, replyTo, chatID, userID int64) {
	if _, err := c.api.BanChatMember(ctx, &bot.BanChatMemberParams{ChatID: chatID, UserID: userID}); err != nil {
		c.logger.Error("failed to ban user", "chat_id", chatID, "user_id", userID, "error", err)
		c.send(ctx, replyTo, c.localizer.Localize(locale.ConsoleBanFailed), nil)
		return
	}
	c.logger.Info("user banned", "chat_id", chatID, "user_id", userID)
	c.send(ctx, replyTo, c.localizer.LocalizeWithTemplate(locale.ConsoleUserBanned, strconv.FormatInt(userID, 10)), nil)
}

func (c *AdminConsole) unban(ctx context.Context, replyTo, chatID, userID int64) {
	if _, err := c.api.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{ChatID: chatID, UserID: userID}); err != nil {
		c.logger.Error("failed to unban user", "chat_id", chatID, "user_id", userID, "error", err)
		c.send(ctx, replyTo, c.localizer.Localize(locale.ConsoleUnbanFailed), nil)
		return
	}
	c.logger.Info("user unbanned", "chat_id", chatID, "user_id", userID)
	c.send(ctx, replyTo, c.localizer.LocalizeWithTemplate(locale.ConsoleUserUnbanned, strconv.FormatInt(userID, 10)), nil)
}

// promote grants the moderator rights set, everything except promoting
// others, and applies the custom title
func (c *AdminConsole) promote(ctx context.Context, replyTo, chatID, userID int64, title string) {
	_, err := c.api.PromoteChatMember(ctx, &bot.PromoteChatMemberParams{
		ChatID:              chatID,
		UserID:              userID,
		IsAnonymous:         false,
		CanManageChat:       true,
		CanDeleteMessages:   true,
		CanManageVideoChats: true,
		CanRestrictMembers:  true,
		CanPromoteMembers:   false,
		CanChangeInfo:       true,
		CanInviteUsers:      true,
		CanPostMessages:     true,
		CanEditMessages:     true,
		CanPinMessages:      true,
	})
	if err == nil {
		_, err = c.api.SetChatAdministratorCustomTitle(ctx, &bot.SetChatAdministratorCustomTitleParams{
			ChatID:      chatID,
			UserID:      userID,
			CustomTitle: title,
		})
	}
	if err != nil {
		c.logger.Error("failed to promote user", "chat_id", chatID, "user_id", userID, "error", err)
		c.send(ctx, replyTo, c.localizer.Localize(locale.ConsolePromoteFailed), nil)
		return
	}

	c.logger.Info("user promoted", "chat_id", chatID, "user_id", userID, "title", title)
	c.send(ctx, replyTo, c.localizer.LocalizeWithTemplate(locale.ConsoleAdminPromoted, strconv.FormatInt(userID, 10), html.EscapeString(title)), nil)
}
