package domain

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ad/telegram-linker-bot/internal/locale"
)

// LinkPermissions is the part of the PermissionEvaluator the controller needs
type LinkPermissions interface {
	IsChatAdminOrCreator(ctx context.Context, chatID, userID int64) bool
	HasLinkerPermission(ctx context.Context, chatID, userID int64) bool
}

// CreateRequest describes a link creation
type CreateRequest struct {
	ChatID   int64
	ActorID  int64
	ArgsText string
	// Silent suppresses failure notices in the chat
	Silent bool
}

// LinkLifecycleController creates and revokes invite links and keeps the
// registry, the countdown jobs and the chat messages consistent
type LinkLifecycleController struct {
	gateway     Gateway
	ops         messageOps
	registry    *InviteLinkRegistry
	scheduler   *CountdownScheduler
	permissions LinkPermissions
	names       *LinkNameGenerator
	localizer   locale.Localizer
	logger      Logger
}

func NewLinkLifecycleController(
	gateway Gateway,
	registry *InviteLinkRegistry,
	scheduler *CountdownScheduler,
	permissions LinkPermissions,
	names *LinkNameGenerator,
	localizer locale.Localizer,
	logger Logger,
) *LinkLifecycleController {
	return &LinkLifecycleController{
		gateway:     gateway,
		ops:         messageOps{gateway: gateway, logger: logger},
		registry:    registry,
		scheduler:   scheduler,
		permissions: permissions,
		names:       names,
		localizer:   localizer,
		logger:      logger,
	}
}

// Create issues a new invite link in the chat, announces it and, when the
// link expires, pins a countdown for it
func (c *LinkLifecycleController) Create(ctx context.Context, req CreateRequest) (*InviteLink, error) {
	if !c.permissions.HasLinkerPermission(ctx, req.ChatID, req.ActorID) {
		if !req.Silent {
			c.ops.send(ctx, req.ChatID, c.localizer.Localize(locale.PermissionNoLink))
		}
		return nil, ErrPermissionDenied
	}

	args := ParseLinkArgs(req.ArgsText, c.scheduler.Now())

	params := &bot.CreateChatInviteLinkParams{ChatID: req.ChatID}
	if args.ExpiresAt != nil {
		params.ExpireDate = int(args.ExpiresAt.Unix())
	}
	if args.UsageLimit != nil {
		params.MemberLimit = *args.UsageLimit
	}

	invite, err := c.gateway.CreateChatInviteLink(ctx, params)
	if err != nil {
		c.logger.Error("failed to create invite link", "chat_id", req.ChatID, "user_id", req.ActorID, "error", err)
		if !req.Silent {
			c.ops.send(ctx, req.ChatID, c.localizer.Localize(locale.LinkCreateFailed))
		}
		return nil, fmt.Errorf("create invite link: %w", err)
	}

	name := c.names.GenerateUnique(func(name string) bool {
		_, taken := c.registry.FindByName(req.ChatID, name)
		return taken
	})

	link := InviteLink{
		Name:       name,
		URL:        invite.InviteLink,
		CreatorID:  req.ActorID,
		ExpiresAt:  args.ExpiresAt,
		UsageLimit: args.UsageLimit,
	}

	announcement, err := c.gateway.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      req.ChatID,
		Text:        c.localizer.LocalizeWithTemplate(locale.LinkCreated, name, invite.InviteLink),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: c.revokeMarkup(name),
	})
	if err != nil {
		c.logger.Warn("failed to send link announcement", "chat_id", req.ChatID, "link", name, "error", err)
	} else {
		link.LinkMessageID = &announcement.ID
	}

	c.registry.Add(ctx, req.ChatID, link)

	if link.ExpiresAt != nil {
		c.startCountdown(ctx, req.ChatID, &link)
	}

	c.logger.Info("invite link created",
		"chat_id", req.ChatID,
		"user_id", req.ActorID,
		"link", name,
		"countdown", link.TimerMessageID != nil,
	)
	return &link, nil
}

// startCountdown sends and pins the countdown message. The link's countdown
// message is recorded only once pinning succeeded; otherwise the link gets a
// plain expiry timer.
func (c *LinkLifecycleController) startCountdown(ctx context.Context, chatID int64, link *InviteLink) {
	timer, err := c.gateway.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      c.scheduler.RenderCountdown(link.Name, *link.ExpiresAt),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		c.logger.Warn("failed to send countdown message", "chat_id", chatID, "link", link.Name, "error", err)
		c.scheduler.ArmExpiry(*link, chatID)
		return
	}

	c.scheduler.WatchPinNotice(chatID, timer.ID)
	if _, err := c.gateway.PinChatMessage(ctx, &bot.PinChatMessageParams{
		ChatID:              chatID,
		MessageID:           timer.ID,
		DisableNotification: true,
	}); err != nil {
		c.logger.Warn("failed to pin countdown message", "chat_id", chatID, "link", link.Name, "error", err)
		c.scheduler.ForgetPinNotice(chatID, timer.ID)
		c.ops.delete(ctx, chatID, timer.ID, "unpinned countdown")
		c.scheduler.ArmExpiry(*link, chatID)
		return
	}

	if !c.registry.AttachTimerMessage(ctx, chatID, link.Name, timer.ID) {
		// revoked while the countdown was being pinned
		c.logger.Debug("link gone before countdown start", "chat_id", chatID, "link", link.Name)
		c.scheduler.ForgetPinNotice(chatID, timer.ID)
		c.ops.unpin(ctx, chatID, timer.ID)
		c.ops.delete(ctx, chatID, timer.ID, "orphaned countdown")
		return
	}
	link.TimerMessageID = &timer.ID

	if _, err := c.scheduler.Start(*link, chatID); err != nil {
		c.logger.Error("failed to start countdown", "chat_id", chatID, "link", link.Name, "error", err)
		c.scheduler.ArmExpiry(*link, chatID)
	}
}

// Revoke revokes the chat's link called name on behalf of actorID. A link
// that is already gone yields RevokeAlreadyGone without touching the gateway.
func (c *LinkLifecycleController) Revoke(ctx context.Context, chatID, actorID int64, name string) (RevokeResult, error) {
	link, ok := c.registry.FindByName(chatID, name)
	if !ok {
		c.logger.Debug("revoke of unknown link", "chat_id", chatID, "link", name)
		return RevokeAlreadyGone, nil
	}

	if link.CreatorID != actorID && !c.permissions.IsChatAdminOrCreator(ctx, chatID, actorID) {
		return RevokeDenied, ErrPermissionDenied
	}

	c.cleanup(ctx, chatID, link)
	c.registry.Remove(ctx, chatID, name)

	c.logger.Info("invite link revoked", "chat_id", chatID, "user_id", actorID, "link", name)
	return RevokeDone, nil
}

// RevokeAll revokes every active link of the chat. Individual failures do not
// stop the sweep and the chat's list is emptied regardless. Links created
// during the sweep are revoked too.
func (c *LinkLifecycleController) RevokeAll(ctx context.Context, chatID int64) int {
	links := c.registry.List(chatID)
	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		seen[link.Name] = struct{}{}
		c.cleanup(ctx, chatID, link)
	}

	count := len(links)
	for _, link := range c.registry.RemoveAll(ctx, chatID) {
		if _, ok := seen[link.Name]; ok {
			continue
		}
		c.cleanup(ctx, chatID, link)
		count++
	}

	c.logger.Info("all invite links revoked", "chat_id", chatID, "count", count)
	return count
}

// cleanup stops the link's countdown, revokes it remotely and removes its messages.
// Every step is best effort.
func (c *LinkLifecycleController) cleanup(ctx context.Context, chatID int64, link InviteLink) {
	c.scheduler.Cancel(link, chatID)

	if _, err := c.gateway.RevokeChatInviteLink(ctx, &bot.RevokeChatInviteLinkParams{
		ChatID:     chatID,
		InviteLink: link.URL,
	}); err != nil {
		c.logger.Warn("gateway revoke failed, cleaning up locally", "chat_id", chatID, "link", link.Name, "error", err)
	}

	c.ops.removeLinkMessages(ctx, chatID, link)
}

// Resume restores countdowns and expiry timers for links loaded from storage.
// Links that expired while the bot was down are torn down immediately.
func (c *LinkLifecycleController) Resume(ctx context.Context) {
	now := c.scheduler.Now()
	resumed, expired := 0, 0

	for _, chatID := range c.registry.Chats() {
		for _, link := range c.registry.List(chatID) {
			if link.ExpiresAt == nil {
				continue
			}

			switch {
			case link.Expired(now):
				c.scheduler.Expire(ctx, link, chatID)
				expired++
			case link.TimerMessageID != nil:
				if _, err := c.scheduler.Start(link, chatID); err != nil {
					c.logger.Warn("failed to resume countdown", "chat_id", chatID, "link", link.Name, "error", err)
					c.scheduler.ArmExpiry(link, chatID)
				}
				resumed++
			default:
				c.scheduler.ArmExpiry(link, chatID)
				resumed++
			}
		}
	}

	c.logger.Info("invite links resumed", "resumed", resumed, "expired", expired)
}

func (c *LinkLifecycleController) revokeMarkup(name string) models.ReplyMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{
					Text:         c.localizer.Localize(locale.ButtonRevoke),
					CallbackData: CallbackAction{Kind: ActionRevokeLink, LinkName: name}.Encode(),
				},
			},
		},
	}
}
