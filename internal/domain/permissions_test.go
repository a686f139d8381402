package domain

import (
	"context"
	"testing"

	"github.com/go-telegram/bot/models"
)

func TestPermissionEvaluator_Roles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	const (
		owner   = int64(10)
		admin   = int64(11)
		linker  = int64(12)
		member  = int64(13)
		outside = int64(14)
	)
	env.gateway.setRole(owner, models.ChatMemberTypeOwner)
	env.gateway.setRole(admin, models.ChatMemberTypeAdministrator)
	env.gateway.setRole(outside, models.ChatMemberTypeLeft)
	if _, err := env.linkers.Grant(ctx, testChatID, linker); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	tests := []struct {
		name       string
		userID     int64
		wantAdmin  bool
		wantLinker bool
	}{
		{name: "operator", userID: testOperator, wantAdmin: true, wantLinker: true},
		{name: "owner", userID: owner, wantAdmin: true, wantLinker: true},
		{name: "administrator", userID: admin, wantAdmin: true, wantLinker: true},
		{name: "granted linker", userID: linker, wantAdmin: false, wantLinker: true},
		{name: "plain member", userID: member, wantAdmin: false, wantLinker: false},
		{name: "left the chat", userID: outside, wantAdmin: false, wantLinker: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := env.perms.IsChatAdminOrCreator(ctx, testChatID, tt.userID); got != tt.wantAdmin {
				t.Errorf("IsChatAdminOrCreator = %v, want %v", got, tt.wantAdmin)
			}
			if got := env.perms.HasLinkerPermission(ctx, testChatID, tt.userID); got != tt.wantLinker {
				t.Errorf("HasLinkerPermission = %v, want %v", got, tt.wantLinker)
			}
		})
	}
}

func TestPermissionEvaluator_LinkerGrantIsPerChat(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := env.linkers.Grant(ctx, testChatID, 12); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	if env.perms.HasLinkerPermission(ctx, testChatID-1, 12) {
		t.Error("linker grant must not apply to other chats")
	}
}

func TestPermissionEvaluator_OperatorSkipsGateway(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.perms.IsChatAdminOrCreator(ctx, testChatID, testOperator)
	env.perms.HasLinkerPermission(ctx, testChatID, testOperator)

	if env.gateway.memberHit != 0 || env.gateway.adminsHit != 0 {
		t.Errorf("expected no membership queries for operators, got %d/%d", env.gateway.memberHit, env.gateway.adminsHit)
	}
}

func TestPermissionEvaluator_AdminFallsBackToAdministratorList(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.gateway.memberErr = errGateway
	env.gateway.admins = []int64{20, 21}

	if !env.perms.IsChatAdminOrCreator(ctx, testChatID, 21) {
		t.Error("expected administrator from the fallback list to pass")
	}
	if env.perms.IsChatAdminOrCreator(ctx, testChatID, 22) {
		t.Error("expected user missing from the fallback list to fail")
	}
	if env.gateway.adminsHit != 2 {
		t.Errorf("expected 2 administrator list queries, got %d", env.gateway.adminsHit)
	}

	env.gateway.adminsErr = errGateway
	if env.perms.IsChatAdminOrCreator(ctx, testChatID, 21) {
		t.Error("expected denial when both queries fail")
	}
}

func TestPermissionEvaluator_LinkerCheckHasNoFallback(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.gateway.memberErr = errGateway
	env.gateway.admins = []int64{20}

	if env.perms.HasLinkerPermission(ctx, testChatID, 20) {
		t.Error("expected an administrator to be treated as non-admin when the member query fails")
	}
	if env.gateway.adminsHit != 0 {
		t.Errorf("expected no administrator list query, got %d", env.gateway.adminsHit)
	}

	if _, err := env.linkers.Grant(ctx, testChatID, 20); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if !env.perms.HasLinkerPermission(ctx, testChatID, 20) {
		t.Error("expected granted linker to pass despite the failed member query")
	}
}
