package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"prism/cache"
	"prism/callback"
	"prism/internal/logging"
	"prism/proxy"
)

// Serverside keeps the values of Serverside outputs in a cache and lets
// only a content key travel through the dispatch engine. At close, every
// callback consuming such an output gets its handler wrapped to load the
// value back before calling inward.
type Serverside struct {
	cache cache.Adapter
}

func NewServerside(c cache.Adapter) *Serverside { return &Serverside{cache: c} }

func (*Serverside) Name() string { return "serverside" }

func (s *Serverside) Rewrite(d callback.Descriptor) (callback.Descriptor, error) {
	if len(d.Serverside) == 0 {
		return d, nil
	}
	var positions []int
	for _, r := range d.Serverside {
		pos := -1
		for i, o := range d.Outputs {
			if o == r {
				pos = i
				break
			}
		}
		if pos < 0 {
			return d, fmt.Errorf("transform: serverside: %s is not an output of %s", r, d.Label())
		}
		positions = append(positions, pos)
	}

	inner := d.Handler
	in, out := inner.Arity()
	outputs := append([]callback.Ref(nil), d.Outputs...)
	d.Handler = callback.Func(in, out, func(ctx context.Context, args []any) ([]any, error) {
		res, err := inner.Call(ctx, args)
		if err != nil {
			return nil, err
		}
		res = append([]any(nil), res...)
		for _, pos := range positions {
			if callback.IsNoUpdate(res[pos]) {
				continue
			}
			key, err := contentKey(outputs[pos], res[pos])
			if err != nil {
				return nil, fmt.Errorf("serverside: %s: %w", outputs[pos], err)
			}
			if err := s.cache.Put(ctx, key, []any{res[pos]}); err != nil {
				return nil, fmt.Errorf("serverside: store %s: %w", outputs[pos], err)
			}
			res[pos] = key
		}
		return res, nil
	})
	return d, nil
}

func (s *Serverside) OnClose(_ context.Context, l *proxy.Ledger) error {
	stored := map[callback.Ref]bool{}
	for _, r := range l.Records() {
		for _, ref := range r.Final.Serverside {
			stored[ref] = true
		}
	}
	if len(stored) == 0 {
		return nil
	}
	for _, r := range l.Records() {
		d := r.Final
		var positions []int
		for i, ref := range append(append([]callback.Ref(nil), d.State...), d.Inputs...) {
			if stored[ref] {
				positions = append(positions, i)
			}
		}
		if len(positions) == 0 {
			continue
		}
		if err := l.Replace(r, s.unpacking(d, positions)); err != nil {
			return err
		}
		logging.L().Debug("serverside inputs unpacked", "callback", d.Label(), "args", len(positions))
	}
	return nil
}

func (s *Serverside) unpacking(d callback.Descriptor, positions []int) callback.Descriptor {
	inner := d.Handler
	in, out := inner.Arity()
	d = d.Clone()
	d.Handler = callback.Func(in, out, func(ctx context.Context, args []any) ([]any, error) {
		args = append([]any(nil), args...)
		for _, pos := range positions {
			key, ok := args[pos].(string)
			if !ok {
				args[pos] = nil
				continue
			}
			v, found, err := s.cache.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("serverside: load: %w", err)
			}
			if !found || len(v) == 0 {
				args[pos] = nil
				continue
			}
			args[pos] = v[0]
		}
		return inner.Call(ctx, args)
	})
	return d
}

func contentKey(ref callback.Ref, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	h := xxhash.New()
	_, _ = h.WriteString(ref.String())
	_, _ = h.Write(raw)
	return "ss-" + strconv.FormatUint(h.Sum64(), 16), nil
}
