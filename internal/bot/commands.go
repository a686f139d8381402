package bot

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ad/telegram-linker-bot/internal/domain"
	"github.com/ad/telegram-linker-bot/internal/locale"
)

var (
	linkCommand      = regexp.MustCompile(`(?i)^/link(?:@\w+)?(?:\s+([\s\S]*))?$`)
	linkerCommand    = regexp.MustCompile(`(?i)^/linker(?:@\w+)?$`)
	addLinkerCommand = regexp.MustCompile(`(?i)^/addlinker(?:@\w+)?(?:\s+([\s\S]*))?$`)
	delLinkerCommand = regexp.MustCompile(`(?i)^/dellink(?:@\w+)?(?:\s+([\s\S]*))?$`)
	startCommand     = regexp.MustCompile(`(?i)^/start(?:@\w+)?$`)

	nonDigits = regexp.MustCompile(`\D`)
)

// linkTrigger anywhere in a group message creates a default link
const linkTrigger = "+link"

// commandArgs returns the argument group of a command, if any
func commandArgs(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// HandleLink handles /link [args]
func (h *BotHandler) HandleLink(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || isPrivateChat(msg.Chat) {
		return
	}

	_, err := h.controller.Create(ctx, domain.CreateRequest{
		ChatID:   msg.Chat.ID,
		ActorID:  msg.From.ID,
		ArgsText: commandArgs(linkCommand, msg.Text),
	})
	if err != nil {
		h.logger.Debug("link command failed", "chat_id", msg.Chat.ID, "user_id", msg.From.ID, "error", err)
	}

	h.deleteCommand(ctx, msg)
}

// handleLinkTrigger quietly creates a default link when a linker writes
// +link. The trigger message is removed only when a link was attempted.
func (h *BotHandler) handleLinkTrigger(ctx context.Context, msg *models.Message) {
	if !strings.Contains(strings.ToLower(msg.Text), linkTrigger) {
		return
	}

	_, err := h.controller.Create(ctx, domain.CreateRequest{
		ChatID:   msg.Chat.ID,
		ActorID:  msg.From.ID,
		ArgsText: h.config.DefaultLinkArgs,
		Silent:   true,
	})
	if errors.Is(err, domain.ErrPermissionDenied) {
		return
	}

	h.deleteCommand(ctx, msg)
}

// HandleLinker handles /linker, the link menu
func (h *BotHandler) HandleLinker(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || isPrivateChat(msg.Chat) {
		return
	}

	h.deleteCommand(ctx, msg)

	if !h.permissions.HasLinkerPermission(ctx, msg.Chat.ID, msg.From.ID) {
		h.sendNotice(ctx, msg.Chat.ID, h.localizer.Localize(locale.PermissionNoMenu))
		return
	}

	_, _ = h.send(ctx, msg.Chat.ID, h.localizer.Localize(locale.LinkerMenuTitle), h.linkerMenuMarkup(true))
}

// HandleAddLinker handles /addlinker <user id>
func (h *BotHandler) HandleAddLinker(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.manageLinker(ctx, update.Message, addLinkerCommand, true)
}

// HandleDelLinker handles /dellink <user id>
func (h *BotHandler) HandleDelLinker(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.manageLinker(ctx, update.Message, delLinkerCommand, false)
}

func (h *BotHandler) manageLinker(ctx context.Context, msg *models.Message, re *regexp.Regexp, grant bool) {
	if msg == nil || msg.From == nil || isPrivateChat(msg.Chat) {
		return
	}
	chatID := msg.Chat.ID

	h.deleteCommand(ctx, msg)

	if !h.permissions.IsChatAdminOrCreator(ctx, chatID, msg.From.ID) {
		h.sendNotice(ctx, chatID, h.localizer.Localize(locale.PermissionAdminOnly))
		return
	}

	needID, invalidID := locale.AddLinkerNeedID, locale.AddLinkerInvalidID
	if !grant {
		needID, invalidID = locale.DelLinkerNeedID, locale.DelLinkerInvalidID
	}

	raw := commandArgs(re, msg.Text)
	if raw == "" {
		h.sendNotice(ctx, chatID, h.localizer.Localize(needID))
		return
	}

	targetID, err := strconv.ParseInt(nonDigits.ReplaceAllString(raw, ""), 10, 64)
	if err != nil || targetID <= 0 {
		h.sendNotice(ctx, chatID, h.localizer.Localize(invalidID))
		return
	}
	target := strconv.FormatInt(targetID, 10)

	if !grant {
		if !h.linkers.Revoke(ctx, chatID, targetID) {
			h.sendNotice(ctx, chatID, h.localizer.Localize(locale.DelLinkerNotInList))
			return
		}
		h.logger.Info("linker revoked", "chat_id", chatID, "user_id", targetID, "by", msg.From.ID)
		h.sendNotice(ctx, chatID, h.localizer.LocalizeWithTemplate(locale.DelLinkerRemoved, target))
		return
	}

	added, err := h.linkers.Grant(ctx, chatID, targetID)
	switch {
	case err != nil:
		h.sendNotice(ctx, chatID, h.localizer.Localize(invalidID))
	case !added:
		h.sendNotice(ctx, chatID, h.localizer.Localize(locale.AddLinkerAlreadyIn))
	default:
		h.logger.Info("linker granted", "chat_id", chatID, "user_id", targetID, "by", msg.From.ID)
		h.sendNotice(ctx, chatID, h.localizer.LocalizeWithTemplate(locale.AddLinkerAdded, target))
	}
}

// HandleStart opens the admin panel for operators in a private chat
func (h *BotHandler) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !isPrivateChat(msg.Chat) {
		return
	}

	if !h.permissions.IsOperator(msg.From.ID) {
		_, _ = h.send(ctx, msg.Chat.ID, h.localizer.Localize(locale.ConsoleNotOperatorHelp), nil)
		return
	}

	h.console.Reset(ctx, msg.From.ID)
	h.console.ShowPanel(ctx, msg.Chat.ID)
}
