package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDescribe_PrintsFinalCallbacks(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "pipeline.yml")
	require.NoError(t, os.WriteFile(manifest, []byte(`schema_version: v1
transforms:
  - type: no_output
  - type: group
  - type: multiplex
`), 0o644))
	settings := filepath.Join(dir, "settings.yml")
	require.NoError(t, os.WriteFile(settings, []byte("log:\n  level: error\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"describe", "--manifest", manifest, "--config", settings})
	require.NoError(t, rootCmd.Execute())

	var doc struct {
		Callbacks []struct {
			Name    string   `yaml:"name"`
			Outputs []string `yaml:"outputs"`
			Origin  string   `yaml:"origin"`
		} `yaml:"callbacks"`
		Hidden []string `yaml:"hidden"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	assert.Len(t, doc.Hidden, 1)

	outputs := map[string]int{}
	for _, c := range doc.Callbacks {
		for _, o := range c.Outputs {
			outputs[o]++
		}
	}
	assert.Equal(t, 1, outputs["status.children"], "multiplexed output is owned once")
	for o, n := range outputs {
		assert.Equal(t, 1, n, o)
	}
}
