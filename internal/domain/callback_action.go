package domain

import (
	"errors"
	"strconv"
	"strings"
)

// ActionKind identifies what an inline button does
type ActionKind string

const (
	ActionMainMenu    ActionKind = "menu:main"
	ActionHelp        ActionKind = "menu:help"
	ActionCreateLink  ActionKind = "link:create"
	ActionCreateArgs  ActionKind = "link:args"
	ActionMyLinks     ActionKind = "link:mine"
	ActionRevokeLink  ActionKind = "link:revoke"
	ActionNoop        ActionKind = "noop"
	ActionAdminPanel  ActionKind = "admin:panel"
	ActionManageChat  ActionKind = "admin:chat"
	ActionPromote     ActionKind = "admin:promote"
	ActionBan         ActionKind = "admin:ban"
	ActionUnban       ActionKind = "admin:unban"
	ActionListLinkers ActionKind = "admin:linkers"
	ActionUnlink      ActionKind = "admin:unlink"
	ActionRevokeAll   ActionKind = "admin:revoke_all"
)

var ErrUnknownAction = errors.New("unknown callback action")

// CallbackAction is a decoded inline button payload. Only the fields the
// kind needs are set.
type CallbackAction struct {
	Kind     ActionKind
	LinkName string
	ChatID   int64
	UserID   int64
}

func (a CallbackAction) needsChat() bool {
	switch a.Kind {
	case ActionManageChat, ActionPromote, ActionBan, ActionUnban, ActionListLinkers, ActionUnlink, ActionRevokeAll:
		return true
	}
	return false
}

// IsAdmin reports whether the action belongs to the operator console
func (a CallbackAction) IsAdmin() bool {
	return strings.HasPrefix(string(a.Kind), "admin:")
}

// Encode renders the action as callback data
func (a CallbackAction) Encode() string {
	switch {
	case a.Kind == ActionRevokeLink:
		return string(a.Kind) + ":" + a.LinkName
	case a.Kind == ActionUnlink:
		return string(a.Kind) + ":" + strconv.FormatInt(a.ChatID, 10) + ":" + strconv.FormatInt(a.UserID, 10)
	case a.needsChat():
		return string(a.Kind) + ":" + strconv.FormatInt(a.ChatID, 10)
	}
	return string(a.Kind)
}

// DecodeCallbackAction parses callback data produced by Encode
func DecodeCallbackAction(data string) (CallbackAction, error) {
	switch kind := ActionKind(data); kind {
	case ActionMainMenu, ActionHelp, ActionCreateLink, ActionCreateArgs, ActionMyLinks, ActionNoop, ActionAdminPanel:
		return CallbackAction{Kind: kind}, nil
	}

	if name, ok := strings.CutPrefix(data, string(ActionRevokeLink)+":"); ok {
		if name == "" {
			return CallbackAction{}, ErrUnknownAction
		}
		return CallbackAction{Kind: ActionRevokeLink, LinkName: name}, nil
	}

	if rest, ok := strings.CutPrefix(data, string(ActionUnlink)+":"); ok {
		chatPart, userPart, found := strings.Cut(rest, ":")
		if !found {
			return CallbackAction{}, ErrUnknownAction
		}
		chatID, err := strconv.ParseInt(chatPart, 10, 64)
		if err != nil {
			return CallbackAction{}, ErrUnknownAction
		}
		userID, err := strconv.ParseInt(userPart, 10, 64)
		if err != nil {
			return CallbackAction{}, ErrUnknownAction
		}
		return CallbackAction{Kind: ActionUnlink, ChatID: chatID, UserID: userID}, nil
	}

	for _, kind := range []ActionKind{ActionManageChat, ActionPromote, ActionBan, ActionUnban, ActionListLinkers, ActionRevokeAll} {
		rest, ok := strings.CutPrefix(data, string(kind)+":")
		if !ok {
			continue
		}
		chatID, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return CallbackAction{}, ErrUnknownAction
		}
		return CallbackAction{Kind: kind, ChatID: chatID}, nil
	}

	return CallbackAction{}, ErrUnknownAction
}
