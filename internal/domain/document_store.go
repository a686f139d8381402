package domain

import (
	"context"
	"errors"
	"fmt"
)

// Names of the persisted documents
const (
	LinkersDocument         = "linkers"
	ActiveLinksDocument     = "activeLinks"
	ChatsDocument           = "chatsList"
	InitialMessagesDocument = "initialMessages"
)

// DocumentStore persists whole named documents. Every Save overwrites the
// previous version of the document.
type DocumentStore interface {
	Load(ctx context.Context, name string, v any) error
	Save(ctx context.Context, name string, v any) error
}

// loadDocument reads a document into v, leaving v untouched when the
// document does not exist yet
func loadDocument(ctx context.Context, store DocumentStore, name string, v any) error {
	if err := store.Load(ctx, name, v); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil
		}
		return fmt.Errorf("load %s: %w", name, err)
	}
	return nil
}

// saveDocument writes v and logs failures. In-memory state stays
// authoritative when persistence fails.
func saveDocument(ctx context.Context, store DocumentStore, logger Logger, name string, v any) {
	if err := store.Save(ctx, name, v); err != nil {
		logger.Error("failed to persist document", "document", name, "error", err)
	}
}
