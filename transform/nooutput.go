package transform

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"prism/callback"
)

// HiddenProperty is the property of every synthetic output ref.
const HiddenProperty = "children"

// NoOutput lets side-effect-only callbacks register without outputs. Such a
// callback gets one synthetic hidden output; its handler still runs but the
// result is discarded and the hidden output is never updated.
type NoOutput struct {
	mu     sync.Mutex
	hidden []callback.Ref
}

func NewNoOutput() *NoOutput { return &NoOutput{} }

func (*NoOutput) Name() string { return "no_output" }

func (n *NoOutput) Rewrite(d callback.Descriptor) (callback.Descriptor, error) {
	if len(d.Outputs) > 0 {
		return d, nil
	}
	ref := callback.NewRef("_prism-hidden-"+uuid.NewString(), HiddenProperty)
	n.mu.Lock()
	n.hidden = append(n.hidden, ref)
	n.mu.Unlock()

	inner := d.Handler
	in, _ := inner.Arity()
	d.Outputs = []callback.Ref{ref}
	d.Handler = callback.Func(in, 1, func(ctx context.Context, args []any) ([]any, error) {
		if _, err := inner.Call(ctx, args); err != nil {
			return nil, err
		}
		return []any{callback.NoUpdate}, nil
	})
	return d, nil
}

// Hidden lists the synthetic refs handed out so far; a layout layer mounts
// one hidden component per ref.
func (n *NoOutput) Hidden() []callback.Ref {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]callback.Ref(nil), n.hidden...)
}
