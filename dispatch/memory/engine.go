// Package memory is an in-process dispatch engine. It owns output signals,
// keeps their current values and invokes registered handlers when an input
// signal is set.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"prism/callback"
	"prism/dispatch"
	"prism/internal/logging"
)

type Engine struct {
	mu      sync.RWMutex
	owners  map[callback.Ref]int
	descs   []callback.Descriptor
	values  map[callback.Ref]any
	byInput map[callback.Ref][]int
	// descriptors with at least one pattern input
	patterned []int
}

func New() *Engine {
	return &Engine{
		owners:  map[callback.Ref]int{},
		values:  map[callback.Ref]any{},
		byInput: map[callback.Ref][]int{},
	}
}

func (e *Engine) Register(_ context.Context, d callback.Descriptor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, o := range d.Outputs {
		if _, taken := e.owners[o]; taken {
			return fmt.Errorf("%w: %s", dispatch.ErrDuplicateOutput, o)
		}
	}
	idx := len(e.descs)
	e.descs = append(e.descs, d)
	for _, o := range d.Outputs {
		e.owners[o] = idx
	}
	patterned := false
	for _, in := range d.Inputs {
		if in.IsPattern() {
			patterned = true
			continue
		}
		e.byInput[in] = append(e.byInput[in], idx)
	}
	if patterned {
		e.patterned = append(e.patterned, idx)
	}
	return nil
}

// Descriptors returns the registered descriptors in registration order.
func (e *Engine) Descriptors() []callback.Descriptor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]callback.Descriptor(nil), e.descs...)
}

func (e *Engine) Value(r callback.Ref) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[r]
	return v, ok
}

// Values returns a copy of every known signal value.
func (e *Engine) Values() map[callback.Ref]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[callback.Ref]any, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Set stores v for ref and invokes, once each, the handlers that declare ref
// as an input, directly or through a pattern input. A pattern input receives
// the value of the ref that matched it. Outputs equal to NoUpdate keep their value; a handler that
// returns ErrPreventUpdate changes nothing. Changed outputs are not fed back
// as new triggers.
func (e *Engine) Set(ctx context.Context, ref callback.Ref, v any) error {
	e.mu.Lock()
	e.values[ref] = v
	targets := e.targets(ref)
	e.mu.Unlock()

	tctx := callback.WithTriggered(ctx, ref)
	for _, idx := range targets {
		if err := e.invoke(tctx, idx, ref); err != nil {
			return err
		}
	}
	return nil
}

// targets lists exact subscribers of ref, then pattern subscribers, in
// registration order within each and without repeats. Callers hold mu.
func (e *Engine) targets(ref callback.Ref) []int {
	out := append([]int(nil), e.byInput[ref]...)
	seen := make(map[int]bool, len(out))
	for _, idx := range out {
		seen[idx] = true
	}
	for _, idx := range e.patterned {
		if !seen[idx] && callback.MatchesAny(e.descs[idx].Inputs, ref) {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	return out
}

func (e *Engine) invoke(ctx context.Context, idx int, trigger callback.Ref) error {
	e.mu.RLock()
	d := e.descs[idx]
	args := make([]any, 0, len(d.State)+len(d.Inputs))
	for _, r := range d.State {
		args = append(args, e.values[r])
	}
	for _, r := range d.Inputs {
		if r.IsPattern() && r.Matches(trigger) {
			r = trigger
		}
		args = append(args, e.values[r])
	}
	e.mu.RUnlock()

	res, err := d.Handler.Call(ctx, args)
	if errors.Is(err, callback.ErrPreventUpdate) {
		logging.L().Debug("dispatch: update prevented", "callback", d.Label())
		return nil
	}
	if err != nil {
		return fmt.Errorf("dispatch: %s: %w", d.Label(), err)
	}
	if len(res) != len(d.Outputs) {
		return fmt.Errorf("dispatch: %s: %w", d.Label(), callback.ErrArity)
	}

	e.mu.Lock()
	for i, o := range d.Outputs {
		if callback.IsNoUpdate(res[i]) {
			continue
		}
		e.values[o] = res[i]
	}
	e.mu.Unlock()
	return nil
}

func init() {
	dispatch.Register("memory", func() dispatch.Adapter { return New() })
}
