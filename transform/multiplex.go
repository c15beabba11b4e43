package transform

import (
	"context"
	"fmt"
	"strings"

	"prism/callback"
	"prism/internal/logging"
	"prism/proxy"
)

// Multiplex lets several callbacks target the same output. At close, the
// records sharing an output (transitively) become one physical callback
// whose handler runs the member fed by the most recent change and leaves
// every output it does not produce at NoUpdate.
type Multiplex struct {
	refs map[callback.Ref]bool
}

// NewMultiplex allows sharing for the given outputs; with none, every
// output may be shared.
func NewMultiplex(refs ...callback.Ref) *Multiplex {
	m := &Multiplex{}
	if len(refs) > 0 {
		m.refs = make(map[callback.Ref]bool, len(refs))
		for _, r := range refs {
			m.refs[r] = true
		}
	}
	return m
}

func (*Multiplex) Name() string { return "multiplex" }

func (*Multiplex) Rewrite(d callback.Descriptor) (callback.Descriptor, error) { return d, nil }

func (m *Multiplex) allowed(r callback.Ref) bool { return m.refs == nil || m.refs[r] }

func (m *Multiplex) OnClose(_ context.Context, l *proxy.Ledger) error {
	recs := l.Records()
	parent := make([]int, len(recs))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	owner := map[callback.Ref]int{}
	for i, r := range recs {
		for _, o := range r.Final.Outputs {
			if !m.allowed(o) {
				continue
			}
			if j, ok := owner[o]; ok {
				a, b := find(i), find(j)
				if a < b {
					a, b = b, a
				}
				parent[a] = b
				continue
			}
			owner[o] = i
		}
	}

	sets := map[int][]*proxy.Record{}
	var roots []int
	for i, r := range recs {
		root := find(i)
		if _, ok := sets[root]; !ok {
			roots = append(roots, root)
		}
		sets[root] = append(sets[root], r)
	}
	for _, root := range roots {
		members := sets[root]
		if len(members) < 2 {
			continue
		}
		descs := make([]callback.Descriptor, len(members))
		names := make([]string, len(members))
		for i, r := range members {
			descs[i] = r.Final
			names[i] = r.Final.Label()
		}
		d := multiplexDescriptor(descs)
		if _, err := l.Merge(m.Name(), members, d); err != nil {
			return fmt.Errorf("transform: multiplex %s: %w", strings.Join(names, ","), err)
		}
		logging.L().Debug("callbacks multiplexed", "members", strings.Join(names, ","), "outputs", len(d.Outputs))
	}
	return nil
}

func multiplexDescriptor(members []callback.Descriptor) callback.Descriptor {
	u := newUnion(members)
	return u.descriptor("multiplex:"+u.desc.Outputs[0].String(), func(ctx context.Context, args []any) ([]any, error) {
		out := callback.NoUpdates(len(u.desc.Outputs))
		trig := callback.Triggered(ctx)
		if len(trig) == 0 {
			return out, nil
		}
		latest := trig[0]
		for i, m := range u.members {
			if !callback.MatchesAny(m.Inputs, latest) {
				continue
			}
			res, err := m.Handler.Call(ctx, u.argsFor(i, args))
			if err != nil {
				return nil, err
			}
			u.place(i, res, out)
			break
		}
		return out, nil
	})
}
