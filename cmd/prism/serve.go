package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"prism/internal/engine"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve gRPC diagnostics and metrics until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := engineConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := engine.Bootstrap(ctx, cfg)
		if err != nil {
			return err
		}
		return e.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
