package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ad/telegram-linker-bot/internal/locale"
)

var errGateway = errors.New("telegram: Bad Request: something went wrong")

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...interface{}) {}
func (m *mockLogger) Info(msg string, args ...interface{})  {}
func (m *mockLogger) Warn(msg string, args ...interface{})  {}
func (m *mockLogger) Error(msg string, args ...interface{}) {}

// memDocumentStore keeps documents as JSON in memory
type memDocumentStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	saveErr error
	saves   int
}

func newMemDocumentStore() *memDocumentStore {
	return &memDocumentStore{docs: make(map[string][]byte)}
}

func (s *memDocumentStore) Load(ctx context.Context, name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.docs[name]
	if !ok {
		return ErrDocumentNotFound
	}
	return json.Unmarshal(data, v)
}

func (s *memDocumentStore) Save(ctx context.Context, name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.docs[name] = data
	return nil
}

// fakeGateway records every call and fails on demand
type fakeGateway struct {
	mu sync.Mutex

	nextMessageID int
	inviteSeq     int

	sent     []*bot.SendMessageParams
	edited   []*bot.EditMessageTextParams
	deleted  []int
	pinned   []int
	unpinned []int
	created  []*bot.CreateChatInviteLinkParams
	revoked  []string

	createErr error
	sendErr   error
	pinErr    error
	editErr   error
	revokeErr map[string]error

	// one-shot hooks run outside the lock before the call is recorded
	onPin    func()
	onRevoke func()

	roles     map[int64]models.ChatMemberType
	memberErr error
	admins    []int64
	adminsErr error
	memberHit int
	adminsHit int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextMessageID: 100,
		revokeErr:     make(map[string]error),
		roles:         make(map[int64]models.ChatMemberType),
	}
}

func (g *fakeGateway) runHook(hook *func()) {
	g.mu.Lock()
	fn := *hook
	*hook = nil
	g.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (g *fakeGateway) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.sent = append(g.sent, params)
	g.nextMessageID++
	return &models.Message{ID: g.nextMessageID, Text: params.Text}, nil
}

func (g *fakeGateway) EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edited = append(g.edited, params)
	if g.editErr != nil {
		return nil, g.editErr
	}
	return &models.Message{ID: params.MessageID, Text: params.Text}, nil
}

func (g *fakeGateway) DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.deleted = append(g.deleted, params.MessageID)
	return true, nil
}

func (g *fakeGateway) PinChatMessage(ctx context.Context, params *bot.PinChatMessageParams) (bool, error) {
	g.runHook(&g.onPin)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pinErr != nil {
		return false, g.pinErr
	}
	g.pinned = append(g.pinned, params.MessageID)
	return true, nil
}

func (g *fakeGateway) UnpinChatMessage(ctx context.Context, params *bot.UnpinChatMessageParams) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.unpinned = append(g.unpinned, params.MessageID)
	return true, nil
}

func (g *fakeGateway) CreateChatInviteLink(ctx context.Context, params *bot.CreateChatInviteLinkParams) (*models.ChatInviteLink, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, params)
	g.inviteSeq++
	return &models.ChatInviteLink{InviteLink: fmt.Sprintf("https://t.me/+invite%d", g.inviteSeq)}, nil
}

func (g *fakeGateway) RevokeChatInviteLink(ctx context.Context, params *bot.RevokeChatInviteLinkParams) (*models.ChatInviteLink, error) {
	g.runHook(&g.onRevoke)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.revoked = append(g.revoked, params.InviteLink)
	if err := g.revokeErr[params.InviteLink]; err != nil {
		return nil, err
	}
	return &models.ChatInviteLink{InviteLink: params.InviteLink}, nil
}

func (g *fakeGateway) GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.memberHit++
	if g.memberErr != nil {
		return nil, g.memberErr
	}
	role, ok := g.roles[params.UserID]
	if !ok {
		role = models.ChatMemberTypeMember
	}
	return &models.ChatMember{Type: role}, nil
}

func (g *fakeGateway) GetChatAdministrators(ctx context.Context, params *bot.GetChatAdministratorsParams) ([]models.ChatMember, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.adminsHit++
	if g.adminsErr != nil {
		return nil, g.adminsErr
	}
	members := make([]models.ChatMember, 0, len(g.admins))
	for _, id := range g.admins {
		members = append(members, models.ChatMember{
			Type:          models.ChatMemberTypeAdministrator,
			Administrator: &models.ChatMemberAdministrator{User: models.User{ID: id}},
		})
	}
	return members, nil
}

func (g *fakeGateway) setRole(userID int64, role models.ChatMemberType) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roles[userID] = role
}

func (g *fakeGateway) deletedIDs() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.deleted...)
}

func (g *fakeGateway) unpinnedIDs() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.unpinned...)
}

func (g *fakeGateway) revokedURLs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.revoked...)
}

func (g *fakeGateway) sentTexts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	texts := make([]string, 0, len(g.sent))
	for _, p := range g.sent {
		texts = append(texts, p.Text)
	}
	return texts
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLocalizer(t *testing.T) locale.Localizer {
	t.Helper()
	localizer, err := locale.NewLocalizer(locale.NewLocale(locale.En))
	if err != nil {
		t.Fatalf("failed to create localizer: %v", err)
	}
	return localizer
}

func intPtr(v int) *int {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// testEnv wires a controller over fakes. The scheduler never ticks on its
// own; tests drive it through Tick.
type testEnv struct {
	gateway    *fakeGateway
	store      *memDocumentStore
	clock      *fakeClock
	registry   *InviteLinkRegistry
	linkers    *LinkerDirectory
	scheduler  *CountdownScheduler
	perms      *PermissionEvaluator
	controller *LinkLifecycleController
}

const (
	testChatID   = int64(-1001234567890)
	testOperator = int64(1)
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := &mockLogger{}
	env := &testEnv{
		gateway: newFakeGateway(),
		store:   newMemDocumentStore(),
		clock:   newFakeClock(),
	}
	localizer := newTestLocalizer(t)

	env.registry = NewInviteLinkRegistry(env.store, log)
	env.linkers = NewLinkerDirectory(env.store, log)
	env.scheduler = NewCountdownScheduler(env.gateway, env.registry, localizer, log,
		WithClock(env.clock.Now),
		WithTickInterval(time.Hour),
	)
	env.perms = NewPermissionEvaluator(env.gateway, env.linkers, []int64{testOperator}, log)
	env.controller = NewLinkLifecycleController(env.gateway, env.registry, env.scheduler, env.perms, NewLinkNameGenerator(), localizer, log)

	t.Cleanup(env.scheduler.Shutdown)
	return env
}
