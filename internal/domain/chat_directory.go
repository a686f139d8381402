package domain

import (
	"context"
	"sort"
	"sync"
)

// ChatDirectory remembers the chats the bot was added to and the welcome
// message still waiting for the bot's promotion in each of them
type ChatDirectory struct {
	mu      sync.Mutex
	chats   map[int64]ChatInfo
	pending map[int64]int
	store   DocumentStore
	logger  Logger
}

func NewChatDirectory(store DocumentStore, logger Logger) *ChatDirectory {
	return &ChatDirectory{
		chats:   make(map[int64]ChatInfo),
		pending: make(map[int64]int),
		store:   store,
		logger:  logger,
	}
}

func (d *ChatDirectory) Load(ctx context.Context) error {
	var chatsDoc map[string]ChatInfo
	if err := loadDocument(ctx, d.store, ChatsDocument, &chatsDoc); err != nil {
		return err
	}
	var pendingDoc map[string]int
	if err := loadDocument(ctx, d.store, InitialMessagesDocument, &pendingDoc); err != nil {
		return err
	}

	chats := make(map[int64]ChatInfo, len(chatsDoc))
	for key, info := range chatsDoc {
		if chatID, ok := parseChatKey(key); ok {
			chats[chatID] = info
		}
	}
	pending := make(map[int64]int, len(pendingDoc))
	for key, messageID := range pendingDoc {
		if chatID, ok := parseChatKey(key); ok {
			pending[chatID] = messageID
		}
	}

	d.mu.Lock()
	d.chats = chats
	d.pending = pending
	d.mu.Unlock()
	return nil
}

// Register records a chat if it is not known yet. It reports whether the
// chat was added.
func (d *ChatDirectory) Register(ctx context.Context, chatID int64, title string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.chats[chatID]; ok {
		return false
	}
	d.chats[chatID] = ChatInfo{Title: title}
	d.persistChatsLocked(ctx)
	return true
}

// Forget drops a chat that is no longer reachable
func (d *ChatDirectory) Forget(ctx context.Context, chatID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.chats[chatID]; !ok {
		return
	}
	delete(d.chats, chatID)
	d.persistChatsLocked(ctx)
}

// Get returns the stored info of a chat
func (d *ChatDirectory) Get(chatID int64) (ChatInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	info, ok := d.chats[chatID]
	return info, ok
}

// List returns every known chat ordered by ID
func (d *ChatDirectory) List() []ChatEntry {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := make([]ChatEntry, 0, len(d.chats))
	for chatID, info := range d.chats {
		entries = append(entries, ChatEntry{ChatID: chatID, ChatInfo: info})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ChatID < entries[j].ChatID })
	return entries
}

// SetPendingAnnouncement remembers the welcome message sent on join
func (d *ChatDirectory) SetPendingAnnouncement(ctx context.Context, chatID int64, messageID int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[chatID] = messageID
	d.persistPendingLocked(ctx)
}

// TakePendingAnnouncement returns and forgets the chat's welcome message
func (d *ChatDirectory) TakePendingAnnouncement(ctx context.Context, chatID int64) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	messageID, ok := d.pending[chatID]
	if !ok {
		return 0, false
	}
	delete(d.pending, chatID)
	d.persistPendingLocked(ctx)
	return messageID, true
}

func (d *ChatDirectory) persistChatsLocked(ctx context.Context) {
	doc := make(map[string]ChatInfo, len(d.chats))
	for chatID, info := range d.chats {
		doc[chatKey(chatID)] = info
	}
	saveDocument(ctx, d.store, d.logger, ChatsDocument, doc)
}

func (d *ChatDirectory) persistPendingLocked(ctx context.Context) {
	doc := make(map[string]int, len(d.pending))
	for chatID, messageID := range d.pending {
		doc[chatKey(chatID)] = messageID
	}
	saveDocument(ctx, d.store, d.logger, InitialMessagesDocument, doc)
}
