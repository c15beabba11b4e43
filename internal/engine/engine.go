package engine

import (
	"context"

	"prism/internal/logging"
	"prism/internal/pipeline"
	"prism/internal/transport"
)

type Engine struct {
	transport *transport.Server
	runner    *pipeline.Runner
}

func (e *Engine) Runner() *pipeline.Runner { return e.runner }

// Run serves diagnostics until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		e.transport.Stop()
		if err := e.runner.Close(); err != nil {
			logging.L().Warn("runner close", "error", err)
		}
	}()

	return e.transport.Serve()
}
