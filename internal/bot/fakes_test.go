package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ad/telegram-linker-bot/internal/config"
	"github.com/ad/telegram-linker-bot/internal/domain"
	"github.com/ad/telegram-linker-bot/internal/locale"
	"github.com/ad/telegram-linker-bot/internal/logger"
	"github.com/ad/telegram-linker-bot/internal/storage"
)

const (
	testChatID     = int64(-1001234567890)
	testOperator   = int64(1)
	testBotID      = int64(999)
	testAdmin      = int64(20)
	testMember     = int64(30)
	commandMsgID   = 10
	firstSentID    = 101
	secondSentID   = 102
	testCallbackID = "cb-1"
)

// fakeAPI records every Bot API call the handlers make
type fakeAPI struct {
	mu sync.Mutex

	nextMessageID int
	inviteSeq     int

	sent          []*bot.SendMessageParams
	edited        []*bot.EditMessageTextParams
	markupEdits   []*bot.EditMessageReplyMarkupParams
	deleted       []int
	pinned        []int
	unpinned      []int
	created       []*bot.CreateChatInviteLinkParams
	revoked       []string
	answers       []*bot.AnswerCallbackQueryParams
	bans          []*bot.BanChatMemberParams
	unbans        []*bot.UnbanChatMemberParams
	promotions    []*bot.PromoteChatMemberParams
	customTitles  []*bot.SetChatAdministratorCustomTitleParams
	chatInfoCalls int

	roles    map[int64]models.ChatMemberType
	chats    map[int64]string
	banErr   error
	titleErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextMessageID: 100,
		roles:         make(map[int64]models.ChatMemberType),
		chats:         make(map[int64]string),
	}
}

func (a *fakeAPI) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sent = append(a.sent, params)
	a.nextMessageID++
	return &models.Message{ID: a.nextMessageID, Text: params.Text}, nil
}

func (a *fakeAPI) EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.edited = append(a.edited, params)
	return &models.Message{ID: params.MessageID, Text: params.Text}, nil
}

func (a *fakeAPI) EditMessageReplyMarkup(ctx context.Context, params *bot.EditMessageReplyMarkupParams) (*models.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.markupEdits = append(a.markupEdits, params)
	return &models.Message{ID: params.MessageID}, nil
}

func (a *fakeAPI) DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.deleted = append(a.deleted, params.MessageID)
	return true, nil
}

func (a *fakeAPI) PinChatMessage(ctx context.Context, params *bot.PinChatMessageParams) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pinned = append(a.pinned, params.MessageID)
	return true, nil
}

func (a *fakeAPI) UnpinChatMessage(ctx context.Context, params *bot.UnpinChatMessageParams) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.unpinned = append(a.unpinned, params.MessageID)
	return true, nil
}

func (a *fakeAPI) CreateChatInviteLink(ctx context.Context, params *bot.CreateChatInviteLinkParams) (*models.ChatInviteLink, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.created = append(a.created, params)
	a.inviteSeq++
	return &models.ChatInviteLink{InviteLink: fmt.Sprintf("https://t.me/+invite%d", a.inviteSeq)}, nil
}

func (a *fakeAPI) RevokeChatInviteLink(ctx context.Context, params *bot.RevokeChatInviteLinkParams) (*models.ChatInviteLink, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.revoked = append(a.revoked, params.InviteLink)
	return &models.ChatInviteLink{InviteLink: params.InviteLink}, nil
}

func (a *fakeAPI) GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	role, ok := a.roles[params.UserID]
	if !ok {
		role = models.ChatMemberTypeMember
	}
	return &models.ChatMember{Type: role}, nil
}

func (a *fakeAPI) GetChatAdministrators(ctx context.Context, params *bot.GetChatAdministratorsParams) ([]models.ChatMember, error) {
	return nil, errors.New("not used")
}

func (a *fakeAPI) AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.answers = append(a.answers, params)
	return true, nil
}

func (a *fakeAPI) GetChat(ctx context.Context, params *bot.GetChatParams) (*models.ChatFullInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.chatInfoCalls++
	id, _ := params.ChatID.(int64)
	title, ok := a.chats[id]
	if !ok {
		return nil, errors.New("Bad Request: chat not found")
	}
	return &models.ChatFullInfo{ID: id, Title: title}, nil
}

func (a *fakeAPI) BanChatMember(ctx context.Context, params *bot.BanChatMemberParams) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.banErr != nil {
		return false, a.banErr
	}
	a.bans = append(a.bans, params)
	return true, nil
}

func (a *fakeAPI) UnbanChatMember(ctx context.Context, params *bot.UnbanChatMemberParams) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.unbans = append(a.unbans, params)
	return true, nil
}

func (a *fakeAPI) PromoteChatMember(ctx context.Context, params *bot.PromoteChatMemberParams) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.promotions = append(a.promotions, params)
	return true, nil
}

func (a *fakeAPI) SetChatAdministratorCustomTitle(ctx context.Context, params *bot.SetChatAdministratorCustomTitleParams) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.titleErr != nil {
		return false, a.titleErr
	}
	a.customTitles = append(a.customTitles, params)
	return true, nil
}

func (a *fakeAPI) setRole(userID int64, role models.ChatMemberType) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roles[userID] = role
}

func (a *fakeAPI) sentTexts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	texts := make([]string, 0, len(a.sent))
	for _, p := range a.sent {
		texts = append(texts, p.Text)
	}
	return texts
}

func (a *fakeAPI) lastSent() *bot.SendMessageParams {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.sent) == 0 {
		return nil
	}
	return a.sent[len(a.sent)-1]
}

func (a *fakeAPI) lastEdit() *bot.EditMessageTextParams {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.edited) == 0 {
		return nil
	}
	return a.edited[len(a.edited)-1]
}

func (a *fakeAPI) lastAnswer() *bot.AnswerCallbackQueryParams {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.answers) == 0 {
		return nil
	}
	return a.answers[len(a.answers)-1]
}

func (a *fakeAPI) deletedIDs() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.deleted...)
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsText(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// keyboardData flattens the callback data of an inline keyboard
func keyboardData(markup models.ReplyMarkup) []string {
	keyboard, ok := markup.(*models.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var data []string
	for _, row := range keyboard.InlineKeyboard {
		for _, b := range row {
			data = append(data, b.CallbackData)
		}
	}
	return data
}

// handlerEnv wires a BotHandler over a fakeAPI and file backed stores
type handlerEnv struct {
	api       *fakeAPI
	localizer locale.Localizer
	registry  *domain.InviteLinkRegistry
	linkers   *domain.LinkerDirectory
	chats     *domain.ChatDirectory
	scheduler *domain.CountdownScheduler
	watcher   *domain.PromotionWatcher
	sessions  domain.SessionStore
	handler   *BotHandler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	return newHandlerEnvWithSessions(t, domain.NewMemorySessionStore(time.Hour))
}

func newHandlerEnvWithSessions(t *testing.T, sessions domain.SessionStore) *handlerEnv {
	t.Helper()

	log := logger.New(logger.ERROR)
	localizer, err := locale.NewLocalizer(locale.NewLocale(locale.En))
	if err != nil {
		t.Fatalf("failed to create localizer: %v", err)
	}

	store, err := storage.NewFileDocumentStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("failed to create document store: %v", err)
	}

	env := &handlerEnv{
		api:       newFakeAPI(),
		localizer: localizer,
		sessions:  sessions,
	}
	env.api.setRole(testAdmin, models.ChatMemberTypeAdministrator)

	env.registry = domain.NewInviteLinkRegistry(store, log)
	env.linkers = domain.NewLinkerDirectory(store, log)
	env.chats = domain.NewChatDirectory(store, log)
	env.scheduler = domain.NewCountdownScheduler(env.api, env.registry, localizer, log,
		domain.WithTickInterval(time.Hour),
	)
	env.watcher = domain.NewPromotionWatcher(env.api, env.api, env.chats, localizer, log, 5*time.Millisecond, 2*time.Second)

	perms := domain.NewPermissionEvaluator(env.api, env.linkers, []int64{testOperator}, log)
	controller := domain.NewLinkLifecycleController(env.api, env.registry, env.scheduler, perms, domain.NewLinkNameGenerator(), localizer, log)

	cfg := &config.Config{
		AdminUserIDs:    []int64{testOperator},
		NoticeTTL:       time.Hour,
		DefaultLinkArgs: "1 30m",
	}

	env.handler = NewBotHandler(env.api, controller, env.registry, env.scheduler, perms, env.linkers, env.chats, env.watcher, sessions, cfg, log, localizer)
	env.handler.SetBotID(testBotID)

	t.Cleanup(func() {
		env.handler.Shutdown()
		env.watcher.Shutdown()
		env.scheduler.Shutdown()
	})
	return env
}

func groupChat() models.Chat {
	return models.Chat{ID: testChatID, Type: "supergroup", Title: "Test chat"}
}

func groupMessage(userID int64, text string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   commandMsgID,
			From: &models.User{ID: userID},
			Chat: groupChat(),
			Text: text,
		},
	}
}

func privateMessage(userID int64, text string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   commandMsgID,
			From: &models.User{ID: userID},
			Chat: models.Chat{ID: userID, Type: "private"},
			Text: text,
		},
	}
}

func callbackUpdate(userID int64, msg *models.Message, action domain.CallbackAction) *models.Update {
	return callbackData(userID, msg, action.Encode())
}

func callbackData(userID int64, msg *models.Message, data string) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:      testCallbackID,
			From:    models.User{ID: userID},
			Message: models.MaybeInaccessibleMessage{Message: msg},
			Data:    data,
		},
	}
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
