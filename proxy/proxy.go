package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"prism/callback"
	"prism/dispatch"
	"prism/internal/logging"
	"prism/internal/telemetry"
)

var (
	ErrInvalidDescriptor      = errors.New("proxy: invalid descriptor")
	ErrConflictingOutputs     = errors.New("proxy: conflicting outputs")
	ErrPipelineAlreadyClosed  = errors.New("proxy: pipeline already closed")
	ErrNotConfigured          = errors.New("proxy: pipeline not configured")
	ErrAlreadyConfigured      = errors.New("proxy: pipeline already configured")
	ErrConfigureAfterRegister = errors.New("proxy: configure after register")
)

// Transform is one rewriting stage. Rewrite receives a private copy of the
// descriptor and returns the descriptor the next stage sees, usually with a
// handler that wraps the incoming one.
type Transform interface {
	Name() string
	Rewrite(d callback.Descriptor) (callback.Descriptor, error)
}

// Closer is implemented by transforms that need every registration before
// the pipeline hands descriptors to the dispatch adapter.
type Closer interface {
	OnClose(ctx context.Context, l *Ledger) error
}

// Proxy owns the registration surface exposed to application code.
type Proxy struct {
	adapter dispatch.Adapter

	mu         sync.Mutex
	transforms []Transform
	configured bool
	closed     bool
	ledger     Ledger
}

func New(adapter dispatch.Adapter) *Proxy {
	return &Proxy{adapter: adapter}
}

// Configure fixes the transform order for the lifetime of the proxy.
func (p *Proxy) Configure(transforms ...Transform) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.closed:
		return ErrPipelineAlreadyClosed
	case p.configured:
		return ErrAlreadyConfigured
	case len(p.ledger.records) > 0:
		return ErrConfigureAfterRegister
	}
	p.transforms = append([]Transform(nil), transforms...)
	p.configured = true

	names := make([]string, len(transforms))
	for i, t := range transforms {
		names[i] = t.Name()
	}
	logging.L().Debug("pipeline configured", "transforms", strings.Join(names, ","))
	return nil
}

// Register validates d, threads it through every transform's Rewrite in
// configured order and stores the result in the ledger.
func (p *Proxy) Register(d callback.Descriptor) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return Handle{}, ErrPipelineAlreadyClosed
	}
	h, err := p.register(d)
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	telemetry.Registrations.WithLabelValues(outcome).Inc()
	return h, err
}

func (p *Proxy) register(d callback.Descriptor) (Handle, error) {
	if err := d.ValidateShape(); err != nil {
		return Handle{}, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}
	rec := &Record{Original: d.Clone()}
	cur := d.Clone()
	for _, t := range p.transforms {
		next, err := t.Rewrite(cur.Clone())
		if err != nil {
			return Handle{}, fmt.Errorf("proxy: %s: rewrite %s: %w", t.Name(), d.Label(), err)
		}
		rec.Stages = append(rec.Stages, Stage{Transform: t.Name(), Descriptor: next.Clone()})
		cur = next
	}
	if err := cur.Validate(); err != nil {
		return Handle{}, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}
	rec.Final = cur
	p.ledger.add(rec)

	logging.L().Debug("callback registered", "id", rec.ID, "callback", d.Label(),
		"outputs", len(cur.Outputs), "inputs", len(cur.Inputs), "state", len(cur.State))
	return Handle{ID: rec.ID, Name: d.Label(), rec: rec}, nil
}

// Close runs every close hook once, in configured order, checks that final
// outputs are pairwise distinct and registers the surviving descriptors with
// the dispatch adapter. The proxy is closed even when Close fails.
func (p *Proxy) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPipelineAlreadyClosed
	}
	if !p.configured {
		return ErrNotConfigured
	}
	p.closed = true

	for _, t := range p.transforms {
		c, ok := t.(Closer)
		if !ok {
			continue
		}
		if err := c.OnClose(ctx, &p.ledger); err != nil {
			return fmt.Errorf("proxy: %s: close: %w", t.Name(), err)
		}
	}
	if err := checkConflicts(p.ledger.records); err != nil {
		return err
	}
	for _, r := range p.ledger.records {
		if err := p.adapter.Register(ctx, r.Final); err != nil {
			return fmt.Errorf("proxy: register %s: %w", r.Final.Label(), err)
		}
		telemetry.Dispatched.Inc()
	}
	logging.L().Info("pipeline closed", "callbacks", len(p.ledger.records), "transforms", len(p.transforms))
	return nil
}

func checkConflicts(records []*Record) error {
	owner := map[callback.Ref]*Record{}
	for _, r := range records {
		for _, o := range r.Final.Outputs {
			if prev, dup := owner[o]; dup {
				return fmt.Errorf("%w: %s targeted by %s and %s", ErrConflictingOutputs, o, prev.Final.Label(), r.Final.Label())
			}
			owner[o] = r
		}
	}
	return nil
}

// Records returns the current ledger; after Close these are the records
// registered with the dispatch adapter.
func (p *Proxy) Records() []*Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.Records()
}

func (p *Proxy) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
