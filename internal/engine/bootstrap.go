package engine

import (
	"context"
	"fmt"

	"prism/internal/config"
	"prism/internal/demo"
	"prism/internal/logging"
	"prism/internal/pipeline"
	"prism/internal/telemetry"
	"prism/internal/transport"
)

type Config struct {
	Manifest string
	Settings config.Settings
}

// Prepare builds the pipeline from the manifest, registers the demo
// application and closes registration.
func Prepare(ctx context.Context, cfg Config, opts ...pipeline.Option) (*pipeline.Runner, error) {
	logging.Configure(logging.Options{Level: cfg.Settings.Log.Level, JSON: cfg.Settings.Log.JSON})

	runner, err := pipeline.Compile(cfg.Manifest, cfg.Settings, opts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if err := demo.Register(runner); err != nil {
		_ = runner.Close()
		return nil, err
	}
	if err := runner.Start(ctx); err != nil {
		_ = runner.Close()
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return runner, nil
}

func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	// 1. pipeline runner
	runner, err := Prepare(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 2. transport server
	srv, err := transport.StartServer(cfg.Settings.GRPCPort, runner)
	if err != nil {
		_ = runner.Close()
		return nil, fmt.Errorf("transport: %w", err)
	}

	// 3. metrics
	telemetry.Expose(cfg.Settings.MetricsPort)

	return &Engine{
		transport: srv,
		runner:    runner,
	}, nil
}
