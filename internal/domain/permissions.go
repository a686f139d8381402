package domain

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// LinkerLookup reports explicit per-chat linker grants
type LinkerLookup interface {
	Contains(chatID, userID int64) bool
}

// PermissionEvaluator answers the two permission questions of the bot.
// The admin check falls back to the administrator list when the member
// query fails, the linker check does not.
type PermissionEvaluator struct {
	members   MemberGateway
	linkers   LinkerLookup
	operators map[int64]struct{}
	logger    Logger
}

// NewPermissionEvaluator creates an evaluator; operators always pass both checks
func NewPermissionEvaluator(members MemberGateway, linkers LinkerLookup, operators []int64, logger Logger) *PermissionEvaluator {
	ops := make(map[int64]struct{}, len(operators))
	for _, id := range operators {
		ops[id] = struct{}{}
	}

	return &PermissionEvaluator{
		members:   members,
		linkers:   linkers,
		operators: ops,
		logger:    logger,
	}
}

// IsOperator reports whether userID is a configured bot operator
func (p *PermissionEvaluator) IsOperator(userID int64) bool {
	_, ok := p.operators[userID]
	return ok
}

// IsChatAdminOrCreator is true for operators and for chat owners and
// administrators
func (p *PermissionEvaluator) IsChatAdminOrCreator(ctx context.Context, chatID, userID int64) bool {
	if p.IsOperator(userID) {
		return true
	}

	member, err := p.members.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err == nil {
		return isAdminMember(member)
	}

	p.logger.Debug("chat member query failed, checking administrator list", "chat_id", chatID, "user_id", userID, "error", err)

	admins, err := p.members.GetChatAdministrators(ctx, &bot.GetChatAdministratorsParams{ChatID: chatID})
	if err != nil {
		p.logger.Warn("administrator list query failed", "chat_id", chatID, "error", err)
		return false
	}
	for i := range admins {
		if memberUserID(&admins[i]) == userID {
			return true
		}
	}
	return false
}

// HasLinkerPermission is true for operators, chat owners and administrators,
// and users granted linker permission in the chat
func (p *PermissionEvaluator) HasLinkerPermission(ctx context.Context, chatID, userID int64) bool {
	if p.IsOperator(userID) {
		return true
	}

	member, err := p.members.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		p.logger.Debug("chat member query failed", "chat_id", chatID, "user_id", userID, "error", err)
	} else if isAdminMember(member) {
		return true
	}

	return p.linkers.Contains(chatID, userID)
}

func isAdminMember(member *models.ChatMember) bool {
	if member == nil {
		return false
	}
	return member.Type == models.ChatMemberTypeOwner || member.Type == models.ChatMemberTypeAdministrator
}

func memberUserID(member *models.ChatMember) int64 {
	switch member.Type {
	case models.ChatMemberTypeOwner:
		if member.Owner != nil && member.Owner.User != nil {
			return member.Owner.User.ID
		}
	case models.ChatMemberTypeAdministrator:
		if member.Administrator != nil {
			return member.Administrator.User.ID
		}
	}
	return 0
}
