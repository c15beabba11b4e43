// Package emit carries values out of side-effect-only callbacks. Handlers
// registered without outputs typically publish through an emitter instead
// of returning anything.
package emit

import (
	"context"
	"fmt"
)

// Adapter is the common behaviour every emitter exposes.
type Adapter interface {
	Configure(any) error // driver-specific config struct
	Emit(ctx context.Context, key string, value []byte) error
	Close() error // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown emitter %q", name)
}
