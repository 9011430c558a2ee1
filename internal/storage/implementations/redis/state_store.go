// Package redis stores the batch registry document under a single Redis key.
package redis

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/errors"
)

const storageType = "redis"

// Config holds configuration for the Redis state store
type Config struct {
	Addr         string        `json:"addr" mapstructure:"addr"`
	ClusterAddrs []string      `json:"cluster_addrs" mapstructure:"cluster_addrs"`
	Password     string        `json:"password" mapstructure:"password"`
	DB           int           `json:"db" mapstructure:"db"`
	Key          string        `json:"key" mapstructure:"key"`
	DialTimeout  time.Duration `json:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	PoolSize     int           `json:"pool_size" mapstructure:"pool_size"`
	MaxRetries   int           `json:"max_retries" mapstructure:"max_retries"`
}

// StateStore implements interfaces.StateStore with GET/SET on one key
type StateStore struct {
	config *Config
	client redis.UniversalClient
	logger *logrus.Logger
	mu     sync.RWMutex
	closed bool
}

// NewStateStore creates a store; call Connect before use
func NewStateStore(config *Config, logger *logrus.Logger) (*StateStore, error) {
	if config == nil {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "Redis config cannot be nil")
	}
	if config.Addr == "" && len(config.ClusterAddrs) == 0 {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "Redis address or cluster addresses are required")
	}
	if config.Key == "" {
		config.Key = constants.DefaultStateKey
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &StateStore{config: config, logger: logger}, nil
}

// Key returns the key the document is stored under
func (s *StateStore) Key() string {
	return s.config.Key
}

// Connect establishes the connection and pings the server
func (s *StateStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	addrs := s.config.ClusterAddrs
	if len(addrs) == 0 {
		addrs = []string{s.config.Addr}
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		Password:     s.config.Password,
		DB:           s.config.DB,
		DialTimeout:  s.config.DialTimeout,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		PoolSize:     s.config.PoolSize,
		MaxRetries:   s.config.MaxRetries,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return errors.WrapStorageError(err, "connect", storageType).WithLocation(s.config.Addr)
	}
	s.client = client
	s.closed = false

	s.logger.WithFields(logrus.Fields{
		"addrs": addrs,
		"db":    s.config.DB,
		"key":   s.config.Key,
	}).Info("Connected to Redis")
	return nil
}

func (s *StateStore) conn() (redis.UniversalClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil || s.closed {
		return nil, errors.NewStorageError(errors.CodeStorageError, "Redis state store is not connected")
	}
	return s.client, nil
}

// Load returns the stored document or errors.ErrStateNotFound
func (s *StateStore) Load(ctx context.Context) ([]byte, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	data, err := client.Get(ctx, s.config.Key).Bytes()
	if err == redis.Nil {
		return nil, errors.ErrStateNotFound
	}
	if err != nil {
		return nil, errors.WrapStorageError(err, "load", storageType).WithLocation(s.config.Key)
	}
	return data, nil
}

// Save replaces the document. SET is atomic on the server.
func (s *StateStore) Save(ctx context.Context, data []byte) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	if err := client.Set(ctx, s.config.Key, data, 0).Err(); err != nil {
		return errors.WrapStorageError(err, "save", storageType).WithLocation(s.config.Key)
	}
	return nil
}

// Close closes the client
func (s *StateStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.client == nil {
		s.closed = true
		return nil
	}
	err := s.client.Close()
	s.client = nil
	s.closed = true
	if err != nil {
		return errors.WrapStorageError(err, "close", storageType)
	}
	return nil
}
