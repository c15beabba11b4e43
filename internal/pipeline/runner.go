package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"prism/cache"
	"prism/callback"
	"prism/dispatch"
	"prism/emit"
	"prism/proxy"
	"prism/transform"
)

// ErrNoSignals is returned when the dispatch driver cannot accept signal
// values from outside.
var ErrNoSignals = errors.New("pipeline: dispatcher does not accept signals")

// signaler is implemented by in-process engines such as dispatch/memory.
type signaler interface {
	Set(ctx context.Context, ref callback.Ref, v any) error
	Values() map[callback.Ref]any
}

// Runner owns one proxy together with the drivers its transforms and
// callbacks talk to.
type Runner struct {
	proxy      *proxy.Proxy
	dispatcher dispatch.Adapter
	cache      cache.Adapter
	emitter    emit.Adapter

	kinds    map[string]bool
	prefixes []*transform.Prefix
	noOutput *transform.NoOutput

	mu     sync.Mutex // serialises Set
	closed bool
}

func NewRunner() *Runner { return &Runner{kinds: map[string]bool{}} }

func (r *Runner) Proxy() *proxy.Proxy   { return r.proxy }
func (r *Runner) Emitter() emit.Adapter { return r.emitter }
func (r *Runner) Cache() cache.Adapter  { return r.cache }

// Has reports whether a transform of the given type is configured.
func (r *Runner) Has(kind string) bool { return r.kinds[kind] }

// Register forwards to the proxy.
func (r *Runner) Register(d callback.Descriptor) (proxy.Handle, error) {
	return r.proxy.Register(d)
}

// Start closes the registration phase; from then on signals can be set.
func (r *Runner) Start(ctx context.Context) error {
	return r.proxy.Close(ctx)
}

// Resolve maps an application ref to the ref the engine sees, applying any
// configured prefixes in order.
func (r *Runner) Resolve(ref callback.Ref) callback.Ref {
	for _, p := range r.prefixes {
		ref = p.Apply(ref)
	}
	return ref
}

// Hidden lists the synthetic outputs handed out to no-output callbacks.
func (r *Runner) Hidden() []callback.Ref {
	if r.noOutput == nil {
		return nil
	}
	return r.noOutput.Hidden()
}

// Set resolves ref and feeds v to the dispatch engine.
func (r *Runner) Set(ctx context.Context, ref callback.Ref, v any) error {
	sig, ok := r.dispatcher.(signaler)
	if !ok {
		return ErrNoSignals
	}
	if !r.proxy.Closed() {
		return fmt.Errorf("pipeline: set %s before start", ref)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return sig.Set(ctx, r.Resolve(ref), v)
}

// Values returns the engine's current signal values keyed by engine ref.
func (r *Runner) Values() (map[callback.Ref]any, error) {
	sig, ok := r.dispatcher.(signaler)
	if !ok {
		return nil, ErrNoSignals
	}
	return sig.Values(), nil
}

func (r *Runner) Describe() []proxy.Summary { return r.proxy.Describe() }

// Close releases the emitter and, when it holds connections, the cache.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	if r.emitter != nil {
		errs = append(errs, r.emitter.Close())
	}
	if c, ok := r.cache.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
