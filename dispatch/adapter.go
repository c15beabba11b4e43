package dispatch

import (
	"context"
	"errors"
	"fmt"

	"prism/callback"
)

// ErrDuplicateOutput is returned when the engine already owns an output.
var ErrDuplicateOutput = errors.New("dispatch: duplicate output")

// Adapter is the boundary to the underlying dispatch engine.
type Adapter interface {
	Register(ctx context.Context, d callback.Descriptor) error
}

/*──────── registry ───────*/

// Factory builds an Adapter (memory, ...).
type Factory func() Adapter

var registry = map[string]Factory{}

// Register is called from each driver's init().
func Register(name string, f Factory) { registry[name] = f }

// New returns a driver by name.
func New(name string) (Adapter, error) {
	if f, ok := registry[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("dispatch: unsupported driver %q", name)
}
