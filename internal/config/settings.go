package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	cachemem "prism/cache/memory"
	"prism/cache/redis"
	"prism/emit/kafka"
	"prism/emit/stdout"
)

const envPrefix = "PRISM__"

type LogCfg struct {
	Level string `koanf:"level"` // debug|info|warn|error
	JSON  bool   `koanf:"json"`
}

// Settings are the runtime knobs of a prism process. The manifest decides
// what the pipeline looks like; Settings decide where it talks to.
type Settings struct {
	Log         LogCfg          `koanf:"log"`
	GRPCPort    int             `koanf:"grpc_port"`
	MetricsPort int             `koanf:"metrics_port"`
	Redis       redis.Config    `koanf:"redis"`
	Kafka       kafka.Config    `koanf:"kafka"`
	Memory      cachemem.Config `koanf:"memory"`
	Stdout      stdout.Config   `koanf:"stdout"`
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// LoadSettings merges YAML (if present) with env-vars
// (prefix `PRISM__`, delimiter `__`, e.g. PRISM__REDIS__ADDR).
func LoadSettings(path string) (Settings, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Settings{}, err
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Settings{}, fmt.Errorf("settings schema_version %q not supported (want %s)", sv, SupportedSchema)
	}

	if err := k.Load(env.Provider(envPrefix, "__", envKey), nil); err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return s, err
	}
	applyDefaults(&s)
	return s, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, envPrefix))
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(s *Settings) {
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.GRPCPort == 0 {
		s.GRPCPort = 50071
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = 9108
	}
	if s.Redis.Addr == "" {
		s.Redis.Addr = "localhost:6379"
	}
	if s.Redis.Prefix == "" {
		s.Redis.Prefix = "prism:memo:"
	}
	if s.Redis.TTL == 0 {
		s.Redis.TTL = time.Hour
	}
	if len(s.Kafka.Brokers) == 0 {
		s.Kafka.Brokers = []string{"localhost:9092"}
	}
	if s.Kafka.Topic == "" {
		s.Kafka.Topic = "prism.emits"
	}
	if s.Kafka.Acks == 0 {
		s.Kafka.Acks = 1
	}
}
