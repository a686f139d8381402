package domain

import (
	"context"
	"sync"
)

// LinkerDirectory stores, per chat, the users explicitly granted permission
// to create invite links
type LinkerDirectory struct {
	mu      sync.RWMutex
	linkers map[int64][]int64
	store   DocumentStore
	logger  Logger
}

func NewLinkerDirectory(store DocumentStore, logger Logger) *LinkerDirectory {
	return &LinkerDirectory{
		linkers: make(map[int64][]int64),
		store:   store,
		logger:  logger,
	}
}

func (d *LinkerDirectory) Load(ctx context.Context) error {
	var doc map[string][]int64
	if err := loadDocument(ctx, d.store, LinkersDocument, &doc); err != nil {
		return err
	}

	linkers := make(map[int64][]int64, len(doc))
	for key, ids := range doc {
		chatID, ok := parseChatKey(key)
		if !ok {
			d.logger.Warn("skipping linkers with invalid chat key", "key", key)
			continue
		}
		linkers[chatID] = append([]int64(nil), ids...)
	}

	d.mu.Lock()
	d.linkers = linkers
	d.mu.Unlock()
	return nil
}

// Contains reports whether userID was granted linker permission in chatID
func (d *LinkerDirectory) Contains(chatID, userID int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, id := range d.linkers[chatID] {
		if id == userID {
			return true
		}
	}
	return false
}

// List returns the granted user IDs of a chat in grant order
func (d *LinkerDirectory) List(chatID int64) []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]int64(nil), d.linkers[chatID]...)
}

// Grant adds userID to the chat's set. It returns false if already present.
func (d *LinkerDirectory) Grant(ctx context.Context, chatID, userID int64) (bool, error) {
	if userID <= 0 {
		return false, ErrInvalidUserID
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range d.linkers[chatID] {
		if id == userID {
			return false, nil
		}
	}
	d.linkers[chatID] = append(d.linkers[chatID], userID)
	d.persistLocked(ctx)
	return true, nil
}

// Revoke removes userID from the chat's set. It returns false if absent.
func (d *LinkerDirectory) Revoke(ctx context.Context, chatID, userID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := d.linkers[chatID]
	for i, id := range ids {
		if id != userID {
			continue
		}

		rest := make([]int64, 0, len(ids)-1)
		rest = append(rest, ids[:i]...)
		rest = append(rest, ids[i+1:]...)
		d.linkers[chatID] = rest
		d.persistLocked(ctx)
		return true
	}
	return false
}

func (d *LinkerDirectory) persistLocked(ctx context.Context) {
	doc := make(map[string][]int64, len(d.linkers))
	for chatID, ids := range d.linkers {
		doc[chatKey(chatID)] = ids
	}
	saveDocument(ctx, d.store, d.logger, LinkersDocument, doc)
}
