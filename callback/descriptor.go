package callback

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid is wrapped by every descriptor validation failure.
	ErrInvalid = errors.New("callback: invalid descriptor")
)

// Descriptor is the declared shape of one callback registration.
//
// Handler arguments are ordered State first, then Inputs. The remaining
// fields are registration options read by individual transforms; a pipeline
// without the matching transform ignores them.
type Descriptor struct {
	Name    string
	Outputs []Ref
	Inputs  []Ref
	State   []Ref
	Handler Handler

	// Group merges callbacks sharing a key into one physical callback.
	Group string
	// Memoize caches handler results keyed by argument values.
	Memoize bool
	// Triggers fire the callback without passing their values.
	Triggers []Ref
	// Serverside outputs keep their value in a cache and hand out a key.
	Serverside []Ref
}

// Clone returns a deep copy of the ref lists; the handler is shared.
func (d Descriptor) Clone() Descriptor {
	c := d
	c.Outputs = cloneRefs(d.Outputs)
	c.Inputs = cloneRefs(d.Inputs)
	c.State = cloneRefs(d.State)
	c.Triggers = cloneRefs(d.Triggers)
	c.Serverside = cloneRefs(d.Serverside)
	return c
}

// Label is a stable human-readable identity for logs and metrics.
func (d Descriptor) Label() string {
	if d.Name != "" {
		return d.Name
	}
	if len(d.Outputs) == 0 {
		return "<no-output>"
	}
	if len(d.Outputs) == 1 {
		return d.Outputs[0].String()
	}
	return fmt.Sprintf("%s+%d", d.Outputs[0], len(d.Outputs)-1)
}

// ValidateShape checks handler presence, arity and output uniqueness. It
// tolerates zero outputs so that a transform can supply them later.
func (d Descriptor) ValidateShape() error {
	if d.Handler == nil {
		return fmt.Errorf("%w: %s: nil handler", ErrInvalid, d.Label())
	}
	in, out := d.Handler.Arity()
	if want := len(d.State) + len(d.Inputs); in != want {
		return fmt.Errorf("%w: %s: handler takes %d args, want %d (state+inputs)", ErrInvalid, d.Label(), in, want)
	}
	if out != len(d.Outputs) {
		return fmt.Errorf("%w: %s: handler returns %d values, want %d (outputs)", ErrInvalid, d.Label(), out, len(d.Outputs))
	}
	seen := make(map[Ref]struct{}, len(d.Outputs))
	for _, o := range d.Outputs {
		if _, dup := seen[o]; dup {
			return fmt.Errorf("%w: %s: duplicate output %s", ErrInvalid, d.Label(), o)
		}
		seen[o] = struct{}{}
	}
	return nil
}

// Validate checks the full invariants required by a dispatch engine.
func (d Descriptor) Validate() error {
	if err := d.ValidateShape(); err != nil {
		return err
	}
	if len(d.Outputs) == 0 {
		return fmt.Errorf("%w: %s: no outputs", ErrInvalid, d.Label())
	}
	if len(d.Inputs) == 0 {
		return fmt.Errorf("%w: %s: no inputs", ErrInvalid, d.Label())
	}
	return nil
}
