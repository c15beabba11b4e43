package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"prism/callback"
	"prism/internal/logging"
	"prism/proxy"
)

// ErrAmbiguousGroup is returned when a wildcard group key matches more than
// one concrete group key.
var ErrAmbiguousGroup = errors.New("transform: ambiguous wildcard group")

// Group merges callbacks that declare the same group key into one physical
// callback. The merged handler invokes, in registration order, only the
// members whose inputs were triggered; every other output is NoUpdate.
//
// A key containing glob metacharacters joins the one concrete key it
// matches, or forms its own group when it matches none.
type Group struct{}

func NewGroup() *Group { return &Group{} }

func (*Group) Name() string { return "group" }

func (*Group) Rewrite(d callback.Descriptor) (callback.Descriptor, error) {
	if d.Group != "" && isGlob(d.Group) && !doublestar.ValidatePattern(d.Group) {
		return d, fmt.Errorf("transform: group: bad pattern %q", d.Group)
	}
	return d, nil
}

func (g *Group) OnClose(_ context.Context, l *proxy.Ledger) error {
	var concrete []string
	seen := map[string]bool{}
	for _, r := range l.Records() {
		k := r.Final.Group
		if k != "" && !isGlob(k) && !seen[k] {
			seen[k] = true
			concrete = append(concrete, k)
		}
	}

	var order []string
	buckets := map[string][]*proxy.Record{}
	for _, r := range l.Records() {
		k := r.Final.Group
		if k == "" {
			continue
		}
		if isGlob(k) {
			resolved, err := resolveGroup(k, concrete)
			if err != nil {
				return err
			}
			k = resolved
		}
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], r)
	}

	for _, k := range order {
		members := buckets[k]
		if len(members) < 2 {
			continue
		}
		descs := make([]callback.Descriptor, len(members))
		for i, m := range members {
			descs[i] = m.Final
		}
		d := groupDescriptor(k, descs)
		if _, err := l.Merge(g.Name(), members, d); err != nil {
			return fmt.Errorf("transform: group %q: %w", k, err)
		}
		logging.L().Debug("callbacks grouped", "group", k, "members", len(members),
			"outputs", len(d.Outputs), "inputs", len(d.Inputs))
	}
	return nil
}

func groupDescriptor(key string, members []callback.Descriptor) callback.Descriptor {
	u := newUnion(members)
	d := u.descriptor("group:"+key, func(ctx context.Context, args []any) ([]any, error) {
		out := callback.NoUpdates(len(u.desc.Outputs))
		for i, m := range u.members {
			if !callback.TriggeredAny(ctx, m.Inputs) {
				continue
			}
			res, err := m.Handler.Call(ctx, u.argsFor(i, args))
			if errors.Is(err, callback.ErrPreventUpdate) {
				continue
			}
			if err != nil {
				return nil, err
			}
			u.place(i, res, out)
		}
		return out, nil
	})
	d.Group = key
	return d
}

func resolveGroup(pattern string, concrete []string) (string, error) {
	var matches []string
	for _, k := range concrete {
		if ok, _ := doublestar.Match(pattern, k); ok {
			matches = append(matches, k)
		}
	}
	switch len(matches) {
	case 0:
		return pattern, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %q matches %s", ErrAmbiguousGroup, pattern, strings.Join(matches, ", "))
	}
}

func isGlob(s string) bool { return strings.ContainsAny(s, "*?[{") }
