package file

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	apperrors "github.com/inferloop/autoeda/pkg/errors"
)

const storageType = "file"

// StateStore keeps the batch registry document in a single JSON file
type StateStore struct {
	path   string
	logger *logrus.Logger
	mu     sync.Mutex
}

// NewStateStore creates a store backed by path. The file is created on first save.
func NewStateStore(path string, logger *logrus.Logger) (*StateStore, error) {
	if path == "" {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidConfig, "state file path is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &StateStore{path: path, logger: logger}, nil
}

// Path returns the state file location
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the state file
func (s *StateStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.ErrStateNotFound
	}
	if err != nil {
		return nil, apperrors.WrapStorageError(err, "load", storageType).WithLocation(s.path)
	}
	return data, nil
}

// Save replaces the state file atomically
func (s *StateStore) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return apperrors.WrapStorageError(err, "save", storageType).WithLocation(s.path)
	}
	s.logger.WithFields(logrus.Fields{
		"path":  s.path,
		"bytes": len(data),
	}).Debug("Batch state saved")
	return nil
}

// Close is a no-op for the file store
func (s *StateStore) Close() error {
	return nil
}
