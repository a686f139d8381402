package locale

// Message key constants for localization
// All user-facing messages should use these constants to ensure consistency

const (
	BotStarted = "BotStarted"

	// ============================================================================
	// DURATIONS
	// ============================================================================

	DurationExpired       = "DurationExpired"
	DurationDaysSuffix    = "DurationDaysSuffix"
	DurationHoursSuffix   = "DurationHoursSuffix"
	DurationMinutesSuffix = "DurationMinutesSuffix"
	DurationSecondsSuffix = "DurationSecondsSuffix"

	// ============================================================================
	// INVITE LINKS
	// ============================================================================

	LinkCreated      = "LinkCreated"   // f1 link name, f2 invite URL
	LinkCountdown    = "LinkCountdown" // f1 link name, f2 time left
	LinkCreateFailed = "LinkCreateFailed"

	LinkRevokedAlert     = "LinkRevokedAlert"
	LinkRevokeGoneAlert  = "LinkRevokeGoneAlert"
	LinkRevokeErrorAlert = "LinkRevokeErrorAlert"

	LinksNoneForUser       = "LinksNoneForUser"
	LinksListForUser       = "LinksListForUser"
	LinksRevokeAllDone     = "LinksRevokeAllDone"
	LinksRevokeAllText     = "LinksRevokeAllText"     // f1 revoked count
	LinksListItemExpiresIn = "LinksListItemExpiresIn" // f1 item label, f2 time left

	// ============================================================================
	// PERMISSIONS
	// ============================================================================

	PermissionNoLink       = "PermissionNoLink"
	PermissionNoMenu       = "PermissionNoMenu"
	PermissionNoRevoke     = "PermissionNoRevoke"
	PermissionAdminOnly    = "PermissionAdminOnly"
	PermissionOperatorOnly = "PermissionOperatorOnly"

	// ============================================================================
	// LINKER MENU
	// ============================================================================

	LinkerMenuTitle     = "LinkerMenuTitle"
	LinkerMainMenuTitle = "LinkerMainMenuTitle"

	ButtonCreateDefaultFull  = "ButtonCreateDefaultFull"
	ButtonCreateDefaultShort = "ButtonCreateDefaultShort"
	ButtonCreateWithParams   = "ButtonCreateWithParams"
	ButtonMyLinks            = "ButtonMyLinks"
	ButtonHelp               = "ButtonHelp"
	ButtonBack               = "ButtonBack"
	ButtonRevoke             = "ButtonRevoke"
	ButtonLinkItem           = "ButtonLinkItem" // f1 link name

	HelpInline            = "HelpInline"
	HelpCreatePromptAlert = "HelpCreatePromptAlert"
	HelpOpenWithArgsAlert = "HelpOpenWithArgsAlert"

	// ============================================================================
	// LINKER MANAGEMENT COMMANDS
	// ============================================================================

	AddLinkerNeedID     = "AddLinkerNeedID"
	AddLinkerInvalidID  = "AddLinkerInvalidID"
	AddLinkerAlreadyIn  = "AddLinkerAlreadyIn"
	AddLinkerAdded      = "AddLinkerAdded" // f1 user id
	DelLinkerNeedID     = "DelLinkerNeedID"
	DelLinkerInvalidID  = "DelLinkerInvalidID"
	DelLinkerNotInList  = "DelLinkerNotInList"
	DelLinkerRemoved    = "DelLinkerRemoved" // f1 user id
	LinkersListEmpty    = "LinkersListEmpty"
	LinkersListTitle    = "LinkersListTitle"
	LinkersListItem     = "LinkersListItem" // f1 user id
	LinkersRemoveButton = "LinkersRemoveButton"
	LinkersRemovedAlert = "LinkersRemovedAlert"
	LinkersRemovedText  = "LinkersRemovedText"

	// ============================================================================
	// BOT MEMBERSHIP
	// ============================================================================

	WelcomeGroupJoin  = "WelcomeGroupJoin" // f1 chat title
	WelcomeAdminReady = "WelcomeAdminReady"

	// ============================================================================
	// ADMIN CONSOLE (private chat)
	// ============================================================================

	ConsoleNotOperatorHelp = "ConsoleNotOperatorHelp"
	ConsoleAskUserIDNumber = "ConsoleAskUserIDNumber"
	ConsoleAskCustomTitle  = "ConsoleAskCustomTitle" // f1 user id
	ConsoleUserBanned      = "ConsoleUserBanned"     // f1 user id
	ConsoleBanFailed       = "ConsoleBanFailed"
	ConsoleUserUnbanned    = "ConsoleUserUnbanned" // f1 user id
	ConsoleUnbanFailed     = "ConsoleUnbanFailed"
	ConsoleAdminPromoted   = "ConsoleAdminPromoted" // f1 user id, f2 title
	ConsolePromoteFailed   = "ConsolePromoteFailed"
	ConsolePromptAdminID   = "ConsolePromptAdminID"
	ConsolePromptBanID     = "ConsolePromptBanID"
	ConsolePromptUnbanID   = "ConsolePromptUnbanID"

	AdminPanelEmpty         = "AdminPanelEmpty"
	AdminPanelChooseChat    = "AdminPanelChooseChat"
	AdminPanelChatFallback  = "AdminPanelChatFallback" // f1 chat id
	AdminPanelManageChat    = "AdminPanelManageChat"   // f1 chat title
	AdminPanelGetChatFailed = "AdminPanelGetChatFailed"
	ButtonAddAdmin          = "ButtonAddAdmin"
	ButtonBan               = "ButtonBan"
	ButtonUnban             = "ButtonUnban"
	ButtonListLinkers       = "ButtonListLinkers"
	ButtonRevokeAll         = "ButtonRevokeAll"
)
