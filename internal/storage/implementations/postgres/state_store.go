// Package postgres stores the batch registry document in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/errors"
)

const (
	storageType  = "postgres"
	defaultTable = "batch_state"
)

// Config holds configuration for the PostgreSQL state store
type Config struct {
	DSN             string        `json:"dsn" mapstructure:"dsn"`
	Table           string        `json:"table" mapstructure:"table"`
	Key             string        `json:"key" mapstructure:"key"`
	ConnectTimeout  time.Duration `json:"connect_timeout" mapstructure:"connect_timeout"`
	MaxConnections  int           `json:"max_connections" mapstructure:"max_connections"`
	MaxIdleConns    int           `json:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// StateStore keeps the document as a single JSONB row keyed by Config.Key
type StateStore struct {
	config *Config
	db     *sql.DB
	logger *logrus.Logger
	mu     sync.RWMutex
}

// NewStateStore creates a store; call Connect before use
func NewStateStore(config *Config, logger *logrus.Logger) (*StateStore, error) {
	if config == nil {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "PostgreSQL config cannot be nil")
	}
	if config.DSN == "" {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "PostgreSQL DSN is required")
	}
	if config.Table == "" {
		config.Table = defaultTable
	}
	if config.Key == "" {
		config.Key = constants.DefaultStateKey
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = constants.DefaultStorageTimeout
	}
	if config.MaxConnections <= 0 {
		config.MaxConnections = 4
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &StateStore{config: config, logger: logger}, nil
}

func (s *StateStore) table() string {
	return pq.QuoteIdentifier(s.config.Table)
}

// Connect opens the pool, pings the server and creates the table if needed
func (s *StateStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.config.DSN)
	if err != nil {
		return errors.WrapStorageError(err, "connect", storageType)
	}
	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxIdleConns)
	db.SetConnMaxLifetime(s.config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(ctx, s.config.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.WrapStorageError(err, "ping", storageType)
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, s.table())
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return errors.WrapStorageError(err, "init schema", storageType).WithLocation(s.config.Table)
	}

	s.db = db
	s.logger.WithFields(logrus.Fields{
		"table": s.config.Table,
		"key":   s.config.Key,
	}).Info("Connected to PostgreSQL")
	return nil
}

func (s *StateStore) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.NewStorageError(errors.CodeStorageError, "PostgreSQL state store is not connected")
	}
	return s.db, nil
}

// Load returns the stored document or errors.ErrStateNotFound
func (s *StateStore) Load(ctx context.Context) ([]byte, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var payload []byte
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE key = $1`, s.table())
	err = db.QueryRowContext(ctx, query, s.config.Key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.ErrStateNotFound
	}
	if err != nil {
		return nil, s.wrap(err, "load")
	}
	return payload, nil
}

// Save upserts the document in one statement
func (s *StateStore) Save(ctx context.Context, data []byte) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (key, payload, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`, s.table())
	if _, err := db.ExecContext(ctx, query, s.config.Key, string(data)); err != nil {
		return s.wrap(err, "save")
	}
	return nil
}

func (s *StateStore) wrap(err error, op string) error {
	se := errors.WrapStorageError(err, op, storageType).WithLocation(s.config.Table)
	if pqErr, ok := err.(*pq.Error); ok {
		se.WithContext("pg_code", string(pqErr.Code))
	}
	return se
}

// Close closes the connection pool
func (s *StateStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return errors.WrapStorageError(err, "close", storageType)
	}
	return nil
}
