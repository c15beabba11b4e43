package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"prism/internal/engine"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the callbacks the pipeline hands to the dispatcher",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := engineConfig(cmd)
		if err != nil {
			return err
		}
		r, err := engine.Prepare(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer r.Close()

		out, err := yaml.Marshal(map[string]any{
			"callbacks": r.Describe(),
			"hidden":    hiddenRefs(r.Hidden()),
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
		return err
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}

func hiddenRefs[T fmt.Stringer](refs []T) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.String())
	}
	return out
}
