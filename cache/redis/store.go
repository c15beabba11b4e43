package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"prism/cache"
	"prism/callback"
)

type Config struct {
	Addr     string        `koanf:"addr" mapstructure:"addr"`
	Password string        `koanf:"password" mapstructure:"password"`
	DB       int           `koanf:"db" mapstructure:"db"`
	Prefix   string        `koanf:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `koanf:"ttl" mapstructure:"ttl"`
}

// Store implements cache.Adapter on Redis. Values are JSON encoded, so they
// come back as JSON types (numbers as float64); NoUpdate is preserved.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for entries.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for entries.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func New(cfg Config, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if cfg.Prefix != "" {
		opts = append([]Option{WithPrefix(cfg.Prefix)}, opts...)
	}
	if cfg.TTL > 0 {
		opts = append([]Option{WithTTL(cfg.TTL)}, opts...)
	}
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "prism:memo:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) Get(ctx context.Context, key string) ([]any, bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get from redis: %w", err)
	}
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return callback.RestoreNoUpdate(values), true, nil
}

func (s *Store) Put(ctx context.Context, key string, values []any) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func init() {
	cache.Register("redis", func(raw any) (cache.Adapter, error) {
		c, ok := raw.(Config)
		if !ok {
			return nil, fmt.Errorf("redis-cache: expected Config, got %T", raw)
		}
		return New(c), nil
	})
}
