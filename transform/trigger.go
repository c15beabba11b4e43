package transform

import (
	"context"

	"prism/callback"
)

// Trigger appends a descriptor's Triggers to its inputs and drops their
// values before the inner handler runs, so a trigger fires the callback
// without being one of its arguments.
type Trigger struct{}

func NewTrigger() *Trigger { return &Trigger{} }

func (*Trigger) Name() string { return "trigger" }

func (*Trigger) Rewrite(d callback.Descriptor) (callback.Descriptor, error) {
	if len(d.Triggers) == 0 {
		return d, nil
	}
	inner := d.Handler
	in, out := inner.Arity()
	d = d.Clone()
	d.Inputs = append(d.Inputs, d.Triggers...)
	d.Handler = callback.Func(in+len(d.Triggers), out, func(ctx context.Context, args []any) ([]any, error) {
		return inner.Call(ctx, args[:in])
	})
	d.Triggers = nil
	return d, nil
}
