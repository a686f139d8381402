package bot

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/ad/telegram-linker-bot/internal/domain"
	"github.com/ad/telegram-linker-bot/internal/locale"
)

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		name string
		re   *regexp.Regexp
		text string
		want string
	}{
		{"no args", linkCommand, "/link", ""},
		{"args", linkCommand, "/link 5 2h", "5 2h"},
		{"bot mention", linkCommand, "/link@LinkerBot 10", "10"},
		{"upper case", linkCommand, "/LINK 3d", "3d"},
		{"add linker", addLinkerCommand, "/addlinker  @123 ", "@123"},
		{"del linker", delLinkerCommand, "/dellink 42", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.re.MatchString(tt.text) {
				t.Fatalf("%q did not match", tt.text)
			}
			if got := commandArgs(tt.re, tt.text); got != tt.want {
				t.Errorf("args of %q = %q, want %q", tt.text, got, tt.want)
			}
		})
	}

	if linkCommand.MatchString("/linker") {
		t.Error("/link must not match /linker")
	}
	if !linkerCommand.MatchString("/linker@LinkerBot") {
		t.Error("/linker with mention must match")
	}
	if startCommand.MatchString("/start payload") {
		t.Error("/start with payload must not match")
	}
}

func TestHandleLink_CreatesLink(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()

	env.handler.HandleLink(ctx, nil, groupMessage(testAdmin, "/link 5 2h"))

	links := env.registry.ListByCreator(testChatID, testAdmin)
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	link := links[0]
	if link.UsageLimit == nil || *link.UsageLimit != 5 {
		t.Errorf("expected usage limit 5, got %v", link.UsageLimit)
	}
	if link.ExpiresAt == nil {
		t.Fatal("expected an expiry")
	}
	if link.TimerMessageID == nil || *link.TimerMessageID != secondSentID {
		t.Errorf("expected countdown message %d, got %v", secondSentID, link.TimerMessageID)
	}
	if !containsInt(env.api.deletedIDs(), commandMsgID) {
		t.Error("expected the command message to be deleted")
	}
	if env.api.created[0].MemberLimit != 5 {
		t.Errorf("expected member limit 5, got %d", env.api.created[0].MemberLimit)
	}
}

func TestHandleLink_IgnoresPrivateChat(t *testing.T) {
	env := newHandlerEnv(t)

	env.handler.HandleLink(context.Background(), nil, privateMessage(testOperator, "/link"))

	if len(env.api.created) != 0 || len(env.api.sent) != 0 {
		t.Errorf("expected private /link to be ignored, got %d invites and %d messages", len(env.api.created), len(env.api.sent))
	}
}

func TestHandleLink_DeniedNotifies(t *testing.T) {
	env := newHandlerEnv(t)

	env.handler.HandleLink(context.Background(), nil, groupMessage(testMember, "/link"))

	if len(env.api.created) != 0 {
		t.Fatal("expected no invite link")
	}
	if !containsText(env.api.sentTexts(), env.localizer.Localize(locale.PermissionNoLink)) {
		t.Errorf("expected a permission notice, got %v", env.api.sentTexts())
	}
	if !containsInt(env.api.deletedIDs(), commandMsgID) {
		t.Error("expected the command message to be deleted")
	}
}

func TestLinkTrigger(t *testing.T) {
	t.Run("linker gets a default link", func(t *testing.T) {
		env := newHandlerEnv(t)
		ctx := context.Background()
		if _, err := env.linkers.Grant(ctx, testChatID, testMember); err != nil {
			t.Fatalf("grant failed: %v", err)
		}

		env.handler.HandleUpdate(ctx, nil, groupMessage(testMember, "hey +LINK please"))

		if len(env.api.created) != 1 {
			t.Fatalf("expected 1 invite link, got %d", len(env.api.created))
		}
		params := env.api.created[0]
		if params.MemberLimit != 1 || params.ExpireDate == 0 {
			t.Errorf("expected default args (1 use, expiry), got limit %d expire %d", params.MemberLimit, params.ExpireDate)
		}
		if !containsInt(env.api.deletedIDs(), commandMsgID) {
			t.Error("expected the trigger message to be deleted")
		}
	})

	t.Run("others are ignored silently", func(t *testing.T) {
		env := newHandlerEnv(t)

		env.handler.HandleUpdate(context.Background(), nil, groupMessage(testMember, "+link"))

		if len(env.api.created) != 0 || len(env.api.sent) != 0 {
			t.Errorf("expected nothing, got %d invites and %d messages", len(env.api.created), len(env.api.sent))
		}
		if containsInt(env.api.deletedIDs(), commandMsgID) {
			t.Error("trigger message of a non-linker must stay")
		}
	})

	t.Run("plain messages are ignored", func(t *testing.T) {
		env := newHandlerEnv(t)

		env.handler.HandleUpdate(context.Background(), nil, groupMessage(testAdmin, "linking is fun"))

		if len(env.api.created) != 0 {
			t.Error("expected no invite link")
		}
	})
}

func TestHandleLinker(t *testing.T) {
	t.Run("menu for linkers", func(t *testing.T) {
		env := newHandlerEnv(t)

		env.handler.HandleLinker(context.Background(), nil, groupMessage(testAdmin, "/linker"))

		sent := env.api.lastSent()
		if sent == nil || sent.Text != env.localizer.Localize(locale.LinkerMenuTitle) {
			t.Fatalf("expected the linker menu, got %+v", sent)
		}
		want := []string{
			string(domain.ActionCreateLink),
			string(domain.ActionCreateArgs),
			string(domain.ActionMyLinks),
			string(domain.ActionHelp),
		}
		got := keyboardData(sent.ReplyMarkup)
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("menu buttons = %v, want %v", got, want)
		}
		if !containsInt(env.api.deletedIDs(), commandMsgID) {
			t.Error("expected the command message to be deleted")
		}
	})

	t.Run("transient notice for others", func(t *testing.T) {
		env := newHandlerEnv(t)

		env.handler.HandleLinker(context.Background(), nil, groupMessage(testMember, "/linker"))

		if !containsText(env.api.sentTexts(), env.localizer.Localize(locale.PermissionNoMenu)) {
			t.Errorf("expected a permission notice, got %v", env.api.sentTexts())
		}
		if env.handler.notices.Pending() != 1 {
			t.Errorf("expected the notice to be scheduled for deletion, got %d pending", env.handler.notices.Pending())
		}
	})
}

func TestManageLinkers(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()
	l := env.localizer

	steps := []struct {
		name   string
		userID int64
		text   string
		want   string
	}{
		{"member cannot grant", testMember, "/addlinker 12345", l.Localize(locale.PermissionAdminOnly)},
		{"missing id", testAdmin, "/addlinker", l.Localize(locale.AddLinkerNeedID)},
		{"invalid id", testAdmin, "/addlinker abc", l.Localize(locale.AddLinkerInvalidID)},
		{"grant strips non digits", testAdmin, "/addlinker @12345", l.LocalizeWithTemplate(locale.AddLinkerAdded, "12345")},
		{"grant twice", testAdmin, "/addlinker 12345", l.Localize(locale.AddLinkerAlreadyIn)},
		{"revoke missing id", testAdmin, "/dellink", l.Localize(locale.DelLinkerNeedID)},
		{"revoke unknown", testAdmin, "/dellink 777", l.Localize(locale.DelLinkerNotInList)},
		{"revoke", testOperator, "/dellink id12345", l.LocalizeWithTemplate(locale.DelLinkerRemoved, "12345")},
	}

	for _, step := range steps {
		update := groupMessage(step.userID, step.text)
		if strings.HasPrefix(step.text, "/addlinker") {
			env.handler.HandleAddLinker(ctx, nil, update)
		} else {
			env.handler.HandleDelLinker(ctx, nil, update)
		}

		sent := env.api.lastSent()
		if sent == nil || sent.Text != step.want {
			t.Fatalf("%s: expected %q, got %+v", step.name, step.want, sent)
		}

		if step.name == "grant strips non digits" && !env.linkers.Contains(testChatID, 12345) {
			t.Fatalf("%s: expected 12345 to be granted", step.name)
		}
	}

	if env.linkers.Contains(testChatID, 12345) {
		t.Error("expected 12345 to be revoked")
	}
	if env.handler.notices.Pending() != len(steps) {
		t.Errorf("expected %d transient notices, got %d", len(steps), env.handler.notices.Pending())
	}
}
