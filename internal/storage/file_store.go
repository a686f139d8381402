package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ad/telegram-linker-bot/internal/domain"
	"github.com/ad/telegram-linker-bot/internal/logger"
)

// FileDocumentStore keeps each document in <dir>/<name>.json
type FileDocumentStore struct {
	dir    string
	logger *logger.Logger
}

// NewFileDocumentStore creates dir if needed
func NewFileDocumentStore(dir string, log *logger.Logger) (*FileDocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileDocumentStore{dir: dir, logger: log}, nil
}

func (s *FileDocumentStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load decodes the named document into v
func (s *FileDocumentStore) Load(ctx context.Context, name string, v any) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("load document %s: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document %s: %w", name, err)
	}
	return nil
}

// Save writes v to a temporary file and renames it over the document, so
// readers never see a partial file
func (s *FileDocumentStore) Save(ctx context.Context, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("save document %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save document %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save document %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		return fmt.Errorf("save document %s: %w", name, err)
	}

	s.logger.Debug("document saved", "name", name, "bytes", len(data))
	return nil
}
