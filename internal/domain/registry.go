package domain

import (
	"context"
	"sort"
	"sync"
)

// InviteLinkRegistry holds the active invite links of every chat and persists
// the whole set after each mutation. Safe for concurrent use.
type InviteLinkRegistry struct {
	mu     sync.Mutex
	links  map[int64][]InviteLink
	store  DocumentStore
	logger Logger
}

// NewInviteLinkRegistry creates an empty registry backed by store
func NewInviteLinkRegistry(store DocumentStore, logger Logger) *InviteLinkRegistry {
	return &InviteLinkRegistry{
		links:  make(map[int64][]InviteLink),
		store:  store,
		logger: logger,
	}
}

// Load replaces the in-memory state with the persisted document.
// Entries with unparsable chat keys or missing fields are skipped.
func (r *InviteLinkRegistry) Load(ctx context.Context) error {
	var doc map[string][]InviteLink
	if err := loadDocument(ctx, r.store, ActiveLinksDocument, &doc); err != nil {
		return err
	}

	links := make(map[int64][]InviteLink, len(doc))
	for key, list := range doc {
		chatID, ok := parseChatKey(key)
		if !ok {
			r.logger.Warn("skipping active links with invalid chat key", "key", key)
			continue
		}
		for _, link := range list {
			if err := link.Validate(); err != nil {
				r.logger.Warn("skipping invalid stored link", "chat_id", chatID, "name", link.Name, "error", err)
				continue
			}
			links[chatID] = append(links[chatID], link)
		}
	}

	r.mu.Lock()
	r.links = links
	r.mu.Unlock()

	r.logger.Info("invite links loaded", "chats", len(links))
	return nil
}

// Add appends link to the chat's list and persists
func (r *InviteLinkRegistry) Add(ctx context.Context, chatID int64, link InviteLink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.links[chatID] = append(r.links[chatID], link)
	r.persistLocked(ctx)
}

// AttachTimerMessage records the countdown message of an existing link
func (r *InviteLinkRegistry) AttachTimerMessage(ctx context.Context, chatID int64, name string, messageID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.links[chatID]
	for i := range list {
		if list[i].Name == name {
			id := messageID
			list[i].TimerMessageID = &id
			r.persistLocked(ctx)
			return true
		}
	}
	return false
}

// FindByName returns the chat's link with the given name
func (r *InviteLinkRegistry) FindByName(chatID int64, name string) (InviteLink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, link := range r.links[chatID] {
		if link.Name == name {
			return link, true
		}
	}
	return InviteLink{}, false
}

// ListByCreator returns the chat's links created by creatorID, in insertion order
func (r *InviteLinkRegistry) ListByCreator(chatID, creatorID int64) []InviteLink {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []InviteLink
	for _, link := range r.links[chatID] {
		if link.CreatorID == creatorID {
			result = append(result, link)
		}
	}
	return result
}

// List returns a snapshot of the chat's links
func (r *InviteLinkRegistry) List(chatID int64) []InviteLink {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]InviteLink(nil), r.links[chatID]...)
}

// Chats returns the IDs of chats that have at least one link, sorted
func (r *InviteLinkRegistry) Chats() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats := make([]int64, 0, len(r.links))
	for chatID, list := range r.links {
		if len(list) > 0 {
			chats = append(chats, chatID)
		}
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })
	return chats
}

// Remove deletes the chat's link with the given name and persists.
// It reports whether a link was removed.
func (r *InviteLinkRegistry) Remove(ctx context.Context, chatID int64, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.links[chatID]
	for i, link := range list {
		if link.Name != name {
			continue
		}

		rest := make([]InviteLink, 0, len(list)-1)
		rest = append(rest, list[:i]...)
		rest = append(rest, list[i+1:]...)
		if len(rest) == 0 {
			delete(r.links, chatID)
		} else {
			r.links[chatID] = rest
		}

		r.persistLocked(ctx)
		return true
	}
	return false
}

// RemoveAll empties the chat's list and persists. It returns the dropped
// links.
func (r *InviteLinkRegistry) RemoveAll(ctx context.Context, chatID int64) []InviteLink {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.links[chatID]
	delete(r.links, chatID)
	r.persistLocked(ctx)
	return removed
}

func (r *InviteLinkRegistry) persistLocked(ctx context.Context) {
	doc := make(map[string][]InviteLink, len(r.links))
	for chatID, list := range r.links {
		doc[chatKey(chatID)] = list
	}
	saveDocument(ctx, r.store, r.logger, ActiveLinksDocument, doc)
}
