package cache

import (
	"context"
	"fmt"
)

// Adapter stores handler results by key. Implementations decide eviction
// and persistence.
type Adapter interface {
	Get(ctx context.Context, key string) ([]any, bool, error)
	Put(ctx context.Context, key string, values []any) error
}

/*──────── registry ───────*/

// Factory builds an Adapter from driver-specific configuration.
type Factory func(cfg any) (Adapter, error)

var reg = map[string]Factory{}

func Register(name string, f Factory) { reg[name] = f }

func New(name string, cfg any) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(cfg)
	}
	return nil, fmt.Errorf("cache: unknown driver %q", name)
}
