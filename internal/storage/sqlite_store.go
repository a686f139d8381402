package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ad/telegram-linker-bot/internal/domain"
	"github.com/ad/telegram-linker-bot/internal/logger"
)

// SQLiteDocumentStore keeps each document as a JSON row of the documents table
type SQLiteDocumentStore struct {
	queue  *DBQueue
	logger *logger.Logger
}

func NewSQLiteDocumentStore(queue *DBQueue, log *logger.Logger) *SQLiteDocumentStore {
	return &SQLiteDocumentStore{
		queue:  queue,
		logger: log,
	}
}

// Load decodes the named document into v
func (s *SQLiteDocumentStore) Load(ctx context.Context, name string, v any) error {
	var body string
	err := s.queue.Execute(func(db *sql.DB) error {
		return db.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("load document %s: %w", name, err)
	}

	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("decode document %s: %w", name, err)
	}
	return nil
}

// Save replaces the named document with v
func (s *SQLiteDocumentStore) Save(ctx context.Context, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}

	err = s.queue.Execute(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO documents (name, body, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(name) DO UPDATE SET
				body = excluded.body,
				updated_at = CURRENT_TIMESTAMP
		`, name, string(body))
		return err
	})
	if err != nil {
		return fmt.Errorf("save document %s: %w", name, err)
	}

	s.logger.Debug("document saved", "name", name, "bytes", len(body))
	return nil
}
