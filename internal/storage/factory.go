// Package storage selects and connects the configured batch state backend.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/internal/storage/implementations/file"
	"github.com/inferloop/autoeda/internal/storage/implementations/postgres"
	"github.com/inferloop/autoeda/internal/storage/implementations/redis"
	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/interfaces"
)

// Backends
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// StateConfig selects and configures the state backend
type StateConfig struct {
	Backend  string          `mapstructure:"backend"`
	Path     string          `mapstructure:"path"`
	Redis    redis.Config    `mapstructure:"redis"`
	Postgres postgres.Config `mapstructure:"postgres"`
}

// ResolvePath returns the state file path, defaulting to the state file under root
func (c StateConfig) ResolvePath(root string) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(root, constants.DefaultStateFile)
}

// StateStoreCreateFunc builds and connects a state store
type StateStoreCreateFunc func(ctx context.Context, cfg StateConfig, root string, logger *logrus.Logger) (interfaces.StateStore, error)

// Factory creates state stores by backend name
type Factory struct {
	creators map[string]StateStoreCreateFunc
	mu       sync.RWMutex
	logger   *logrus.Logger
}

// NewFactory creates a factory with the file, redis and postgres backends registered
func NewFactory(logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.New()
	}
	f := &Factory{
		creators: make(map[string]StateStoreCreateFunc),
		logger:   logger,
	}
	f.registerDefaults()
	return f
}

// RegisterBackend registers a new backend
func (f *Factory) RegisterBackend(name string, createFunc StateStoreCreateFunc) error {
	if name == "" {
		return errors.NewValidationError(errors.CodeInvalidConfig, "Backend name cannot be empty")
	}
	if createFunc == nil {
		return errors.NewValidationError(errors.CodeInvalidConfig, "Backend create function cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[name] = createFunc
	return nil
}

// IsSupported checks if a backend is registered
func (f *Factory) IsSupported(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.creators[name]
	return ok
}

// GetSupportedBackends returns the registered backend names, sorted
func (f *Factory) GetSupportedBackends() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateStateStore builds and connects the store for cfg.Backend. An empty
// backend selects the file store under root.
func (f *Factory) CreateStateStore(ctx context.Context, cfg StateConfig, root string) (interfaces.StateStore, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendFile
	}

	f.mu.RLock()
	createFunc, ok := f.creators[backend]
	f.mu.RUnlock()
	if !ok {
		return nil, errors.NewConfigError(fmt.Sprintf("State backend '%s' is not supported", backend))
	}

	store, err := createFunc(ctx, cfg, root, f.logger)
	if err != nil {
		return nil, err
	}

	f.logger.WithField("backend", backend).Info("State store ready")
	return store, nil
}

func (f *Factory) registerDefaults() {
	f.creators[BackendFile] = func(_ context.Context, cfg StateConfig, root string, logger *logrus.Logger) (interfaces.StateStore, error) {
		return file.NewStateStore(cfg.ResolvePath(root), logger)
	}

	f.creators[BackendRedis] = func(ctx context.Context, cfg StateConfig, _ string, logger *logrus.Logger) (interfaces.StateStore, error) {
		redisCfg := cfg.Redis
		store, err := redis.NewStateStore(&redisCfg, logger)
		if err != nil {
			return nil, err
		}
		if err := store.Connect(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}

	f.creators[BackendPostgres] = func(ctx context.Context, cfg StateConfig, _ string, logger *logrus.Logger) (interfaces.StateStore, error) {
		pgCfg := cfg.Postgres
		store, err := postgres.NewStateStore(&pgCfg, logger)
		if err != nil {
			return nil, err
		}
		if err := store.Connect(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
}

// NewStateStore is a shorthand for NewFactory(logger).CreateStateStore
func NewStateStore(ctx context.Context, cfg StateConfig, root string, logger *logrus.Logger) (interfaces.StateStore, error) {
	return NewFactory(logger).CreateStateStore(ctx, cfg, root)
}
