package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"prism/internal/spec"
)

const SupportedSchema = "v1"

// LoadPipelineSpec parses a pipeline manifest, validates schema_version and
// fills driver defaults.
func LoadPipelineSpec(path string) (spec.File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return spec.File{}, err
	}
	return ParsePipelineSpec(raw)
}

func ParsePipelineSpec(raw []byte) (spec.File, error) {
	var cfg spec.File
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, fmt.Errorf("pipeline schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}
	if cfg.Dispatch.Driver == "" {
		cfg.Dispatch.Driver = "memory"
	}
	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = "memory"
	}
	if cfg.Emitter.Driver == "" {
		cfg.Emitter.Driver = "stdout"
	}
	seen := map[string]bool{}
	for i, t := range cfg.Transforms {
		if t.Type == "" {
			return cfg, fmt.Errorf("pipeline transform #%d: type is required", i)
		}
		if t.Name == "" {
			cfg.Transforms[i].Name = t.Type
		}
		name := cfg.Transforms[i].Name
		if seen[name] {
			return cfg, fmt.Errorf("pipeline transform %q declared twice", name)
		}
		seen[name] = true
	}
	return cfg, nil
}
