package memory

import (
	"context"
	"fmt"
	"sync"

	"prism/cache"
)

type Config struct {
	// Capacity bounds the number of entries; 0 means unbounded. The oldest
	// entry is evicted first.
	Capacity int `koanf:"capacity" mapstructure:"capacity"`
}

type Store struct {
	cap int

	mu    sync.Mutex
	items map[string][]any
	order []string
}

func New(capacity int) *Store {
	return &Store{cap: capacity, items: map[string][]any{}}
}

func (s *Store) Get(_ context.Context, key string) ([]any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]any(nil), v...), true, nil
}

func (s *Store) Put(_ context.Context, key string, values []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		s.order = append(s.order, key)
	}
	s.items[key] = append([]any(nil), values...)
	for s.cap > 0 && len(s.order) > s.cap {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func init() {
	cache.Register("memory", func(raw any) (cache.Adapter, error) {
		switch c := raw.(type) {
		case nil:
			return New(0), nil
		case Config:
			return New(c.Capacity), nil
		default:
			return nil, fmt.Errorf("memory-cache: expected Config, got %T", raw)
		}
	})
}
