package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"prism/cache"
	"prism/callback"
	"prism/internal/logging"
	"prism/internal/telemetry"
)

// KeyFunc derives a cache key from live argument values.
type KeyFunc func(state, inputs []any) (string, error)

// NormalizeFunc rewrites argument values before key derivation only; the
// handler still receives the original values.
type NormalizeFunc func(state, inputs []any) ([]any, []any, error)

// ScopeFunc narrows cache keys to a caller scope, such as a session id
// carried in ctx. An empty scope shares entries across callers.
type ScopeFunc func(ctx context.Context) string

type MemoizeOption func(*Memoize)

// MemoizeAll memoizes every callback, not only those with Memoize set.
func MemoizeAll() MemoizeOption { return func(m *Memoize) { m.all = true } }

func WithKeyFunc(f KeyFunc) MemoizeOption { return func(m *Memoize) { m.key = f } }

func WithNormalize(f NormalizeFunc) MemoizeOption { return func(m *Memoize) { m.normalize = f } }

func WithScope(f ScopeFunc) MemoizeOption { return func(m *Memoize) { m.scope = f } }

// Memoize serves repeated argument values from a cache without calling the
// inner handler. At most one computation per key is in flight; concurrent
// callers with the same key share its result.
type Memoize struct {
	cache     cache.Adapter
	all       bool
	key       KeyFunc
	normalize NormalizeFunc
	scope     ScopeFunc
	flight    singleflight.Group
}

func NewMemoize(c cache.Adapter, opts ...MemoizeOption) *Memoize {
	m := &Memoize{cache: c, key: StructuralKey}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (*Memoize) Name() string { return "memoize" }

func (m *Memoize) Rewrite(d callback.Descriptor) (callback.Descriptor, error) {
	if !d.Memoize && !m.all {
		return d, nil
	}
	inner := d.Handler
	in, out := inner.Arity()
	nState := len(d.State)
	scope := scopeOf(d.Outputs)
	label := d.Label()

	d.Handler = callback.Func(in, out, func(ctx context.Context, args []any) ([]any, error) {
		state, inputs := args[:nState], args[nState:]
		if m.normalize != nil {
			state = append([]any(nil), state...)
			inputs = append([]any(nil), inputs...)
			var err error
			if state, inputs, err = m.normalize(state, inputs); err != nil {
				return nil, fmt.Errorf("memoize: normalize: %w", err)
			}
		}
		k, err := m.key(state, inputs)
		if err != nil {
			return nil, fmt.Errorf("memoize: key: %w", err)
		}
		prefix := scope
		if m.scope != nil {
			prefix += "\x00" + m.scope(ctx)
		}
		k = strconv.FormatUint(xxhash.Sum64String(prefix+"\x00"+k), 16)

		cached, ok, err := m.cache.Get(ctx, k)
		switch {
		case err != nil:
			telemetry.CacheLookups.WithLabelValues("error").Inc()
			logging.L().Warn("memoize: cache read failed, recomputing", "callback", label, "error", err)
		case ok:
			telemetry.CacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			telemetry.CacheLookups.WithLabelValues("miss").Inc()
		}

		v, err, _ := m.flight.Do(k, func() (any, error) {
			res, err := inner.Call(ctx, args)
			if err != nil {
				return nil, err
			}
			if err := m.cache.Put(ctx, k, res); err != nil {
				return nil, fmt.Errorf("memoize: store: %w", err)
			}
			return res, nil
		})
		if err != nil {
			return nil, err
		}
		return append([]any(nil), v.([]any)...), nil
	})
	return d, nil
}

// StructuralKey is the default KeyFunc: a hash of the JSON encoding of the
// arguments. Values that cannot be encoded fail the call.
func StructuralKey(state, inputs []any) (string, error) {
	raw, err := json.Marshal([2][]any{state, inputs})
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(xxhash.Sum64(raw), 16), nil
}

func scopeOf(outputs []callback.Ref) string {
	parts := make([]string, len(outputs))
	for i, o := range outputs {
		parts[i] = o.String()
	}
	return strings.Join(parts, ",")
}
