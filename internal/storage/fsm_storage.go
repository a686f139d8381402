package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ad/telegram-linker-bot/internal/domain"
	"github.com/ad/telegram-linker-bot/internal/logger"
)

// DefaultSessionMaxAge is how long an idle admin console session survives
const DefaultSessionMaxAge = 30 * time.Minute

// ErrSessionNotFound is returned when a session is not found
var ErrSessionNotFound = domain.ErrSessionNotFound

// FSMStorage keeps admin console sessions in SQLite
type FSMStorage struct {
	queue  *DBQueue
	logger *logger.Logger
}

// NewFSMStorage creates a new FSM storage backed by SQLite
func NewFSMStorage(queue *DBQueue, log *logger.Logger) *FSMStorage {
	return &FSMStorage{
		queue:  queue,
		logger: log,
	}
}

// Get retrieves the console state and its data for a user
func (s *FSMStorage) Get(ctx context.Context, userID int64) (state string, data map[string]interface{}, err error) {
	var contextJSON string

	err = s.queue.Execute(func(db *sql.DB) error {
		return db.QueryRowContext(ctx, `
			SELECT state, context_json
			FROM fsm_sessions
			WHERE user_id = ?
		`, userID).Scan(&state, &contextJSON)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrSessionNotFound
		}
		s.logger.Error("failed to get session", "user_id", userID, "error", err)
		return "", nil, err
	}

	if err := json.Unmarshal([]byte(contextJSON), &data); err != nil {
		s.logger.Error("failed to unmarshal session data, dropping session", "user_id", userID, "error", err)
		_ = s.Delete(ctx, userID)
		return "", nil, err
	}
	if data == nil {
		data = make(map[string]interface{})
	}

	s.logger.Debug("session retrieved", "user_id", userID, "state", state)
	return state, data, nil
}

// Set stores the console state and its data for a user
func (s *FSMStorage) Set(ctx context.Context, userID int64, state string, data map[string]interface{}) error {
	if data == nil {
		data = make(map[string]interface{})
	}
	contextJSON, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal session data", "user_id", userID, "error", err)
		return err
	}

	err = s.queue.Execute(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO fsm_sessions (user_id, state, context_json, created_at, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			ON CONFLICT(user_id) DO UPDATE SET
				state = excluded.state,
				context_json = excluded.context_json,
				updated_at = CURRENT_TIMESTAMP
		`, userID, state, string(contextJSON))
		return err
	})
	if err != nil {
		s.logger.Error("failed to set session", "user_id", userID, "state", state, "error", err)
		return err
	}

	s.logger.Debug("session stored", "user_id", userID, "state", state)
	return nil
}

// Delete removes the console session of a user. Deleting a missing session
// is not an error.
func (s *FSMStorage) Delete(ctx context.Context, userID int64) error {
	err := s.queue.Execute(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `DELETE FROM fsm_sessions WHERE user_id = ?`, userID)
		return err
	})
	if err != nil {
		s.logger.Error("failed to delete session", "user_id", userID, "error", err)
		return err
	}

	s.logger.Debug("session deleted", "user_id", userID)
	return nil
}

// CleanupStale removes sessions idle for longer than maxAge
func (s *FSMStorage) CleanupStale(ctx context.Context, maxAge time.Duration) error {
	var deletedCount int64
	err := s.queue.Execute(func(db *sql.DB) error {
		result, err := db.ExecContext(ctx, `
			DELETE FROM fsm_sessions
			WHERE updated_at < datetime('now', ?)
		`, fmt.Sprintf("-%d seconds", int64(maxAge/time.Second)))
		if err != nil {
			return err
		}

		deletedCount, err = result.RowsAffected()
		return err
	})
	if err != nil {
		s.logger.Error("failed to cleanup stale sessions", "error", err)
		return err
	}

	if deletedCount > 0 {
		s.logger.Info("cleaned up stale sessions", "count", deletedCount)
	}
	return nil
}
