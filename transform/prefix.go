package transform

import (
	"fmt"

	"prism/callback"
)

// Prefix namespaces every component id as "<prefix>-<id>". Pattern refs are
// left alone so they keep matching across namespaces.
type Prefix struct {
	prefix string
}

func NewPrefix(prefix string) *Prefix { return &Prefix{prefix: prefix} }

func (*Prefix) Name() string { return "prefix" }

func (p *Prefix) Rewrite(d callback.Descriptor) (callback.Descriptor, error) {
	if p.prefix == "" {
		return d, fmt.Errorf("transform: prefix: empty prefix")
	}
	d = d.Clone()
	for _, refs := range [][]callback.Ref{d.Outputs, d.Inputs, d.State, d.Triggers, d.Serverside} {
		for i, r := range refs {
			refs[i] = p.Apply(r)
		}
	}
	return d, nil
}

// Apply returns r with the prefix applied.
func (p *Prefix) Apply(r callback.Ref) callback.Ref {
	if r.IsPattern() {
		return r
	}
	r.ComponentID = p.prefix + "-" + r.ComponentID
	return r
}
