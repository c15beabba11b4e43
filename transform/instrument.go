package transform

import (
	"context"
	"errors"
	"time"

	"prism/callback"
	"prism/internal/telemetry"
)

// Instrument records invocation counts, outcomes and latency per callback.
type Instrument struct{}

func NewInstrument() *Instrument { return &Instrument{} }

func (*Instrument) Name() string { return "instrument" }

func (*Instrument) Rewrite(d callback.Descriptor) (callback.Descriptor, error) {
	inner := d.Handler
	in, out := inner.Arity()
	label := d.Label()
	d.Handler = callback.Func(in, out, func(ctx context.Context, args []any) ([]any, error) {
		start := time.Now()
		res, err := inner.Call(ctx, args)
		telemetry.InvocationSeconds.WithLabelValues(label).Observe(time.Since(start).Seconds())
		outcome := "ok"
		switch {
		case errors.Is(err, callback.ErrPreventUpdate):
			outcome = "prevented"
		case err != nil:
			outcome = "error"
		}
		telemetry.Invocations.WithLabelValues(label, outcome).Inc()
		return res, err
	})
	return d, nil
}
