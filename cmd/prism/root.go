package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prism/internal/config"
	"prism/internal/engine"
)

var rootCmd = &cobra.Command{
	Use:   "prism",
	Short: "Prism runs reactive callbacks through a transform pipeline",
	Long: `Prism builds a callback pipeline from a YAML manifest, registers the
bundled demo application through it and either prints the resulting
descriptors or serves them over gRPC diagnostics.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("manifest", "pipeline.yml", "Pipeline manifest")
	rootCmd.PersistentFlags().String("config", "", "Runtime settings file (YAML); PRISM__* env vars override it")
}

func engineConfig(cmd *cobra.Command) (engine.Config, error) {
	manifest, _ := cmd.Flags().GetString("manifest")
	settingsPath, _ := cmd.Flags().GetString("config")
	s, err := config.LoadSettings(settingsPath)
	if err != nil {
		return engine.Config{}, fmt.Errorf("settings: %w", err)
	}
	return engine.Config{Manifest: manifest, Settings: s}, nil
}
