package pipeline

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"prism/cache"
	_ "prism/cache/memory"
	_ "prism/cache/redis"
	"prism/callback"
	"prism/dispatch"
	_ "prism/dispatch/memory"
	"prism/emit"
	_ "prism/emit/kafka"
	_ "prism/emit/stdout"
	"prism/internal/config"
	"prism/internal/logging"
	"prism/internal/spec"
	"prism/proxy"
	"prism/transform"
)

type Option func(*Runner)

// WithEmitter replaces the emitter named in the manifest.
func WithEmitter(e emit.Adapter) Option { return func(r *Runner) { r.emitter = e } }

// WithCache replaces the cache named in the manifest.
func WithCache(c cache.Adapter) Option { return func(r *Runner) { r.cache = c } }

// Compile loads the manifest at path and builds a configured Runner.
func Compile(path string, s config.Settings, opts ...Option) (*Runner, error) {
	cfg, err := config.LoadPipelineSpec(path)
	if err != nil {
		return nil, err
	}
	return Build(cfg, s, opts...)
}

// Build wires drivers and transforms. The returned Runner's proxy is
// configured and ready for Register.
func Build(cfg spec.File, s config.Settings, opts ...Option) (*Runner, error) {
	r := NewRunner()
	for _, o := range opts {
		o(r)
	}

	/*──────── dispatch ───────*/
	d, err := dispatch.New(cfg.Dispatch.Driver)
	if err != nil {
		return nil, err
	}
	r.dispatcher = d

	/*──────── cache ───────*/
	if r.cache == nil {
		if r.cache, err = buildCache(cfg, s); err != nil {
			return nil, err
		}
	}

	/*──────── emitter ───────*/
	if r.emitter == nil {
		if r.emitter, err = buildEmitter(cfg, s); err != nil {
			return nil, err
		}
	}

	/*──────── transforms ───────*/
	var ts []proxy.Transform
	for _, t := range cfg.Transforms {
		tr, err := r.buildTransform(t, cfg)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", t.Name, err)
		}
		ts = append(ts, tr)
		r.kinds[t.Type] = true
	}

	r.proxy = proxy.New(d)
	if err := r.proxy.Configure(ts...); err != nil {
		return nil, err
	}
	logging.L().Info("pipeline built",
		"transforms", len(ts), "dispatch", cfg.Dispatch.Driver,
		"cache", cfg.Cache.Driver, "emitter", cfg.Emitter.Driver)
	return r, nil
}

type memoizeOpts struct {
	All bool `mapstructure:"all"`
}

type multiplexOpts struct {
	Refs []string `mapstructure:"refs"`
}

type prefixOpts struct {
	Prefix string `mapstructure:"prefix"`
}

func (r *Runner) buildTransform(t spec.TransformSpec, cfg spec.File) (proxy.Transform, error) {
	switch t.Type {
	case "group":
		return transform.NewGroup(), decodeOptions(t.Options, nil)
	case "memoize":
		var o memoizeOpts
		if err := decodeOptions(t.Options, &o); err != nil {
			return nil, err
		}
		var mo []transform.MemoizeOption
		if o.All || cfg.Debug.MemoizeAll {
			mo = append(mo, transform.MemoizeAll())
		}
		return transform.NewMemoize(r.cache, mo...), nil
	case "no_output":
		n := transform.NewNoOutput()
		r.noOutput = n
		return n, decodeOptions(t.Options, nil)
	case "multiplex":
		var o multiplexOpts
		if err := decodeOptions(t.Options, &o); err != nil {
			return nil, err
		}
		refs := make([]callback.Ref, 0, len(o.Refs))
		for _, s := range o.Refs {
			ref, err := callback.ParseRef(s)
			if err != nil {
				return nil, err
			}
			refs = append(refs, r.Resolve(ref))
		}
		return transform.NewMultiplex(refs...), nil
	case "trigger":
		return transform.NewTrigger(), decodeOptions(t.Options, nil)
	case "prefix":
		var o prefixOpts
		if err := decodeOptions(t.Options, &o); err != nil {
			return nil, err
		}
		if o.Prefix == "" {
			return nil, fmt.Errorf("prefix option is required")
		}
		p := transform.NewPrefix(o.Prefix)
		r.prefixes = append(r.prefixes, p)
		return p, nil
	case "serverside":
		return transform.NewServerside(r.cache), decodeOptions(t.Options, nil)
	case "instrument":
		return transform.NewInstrument(), decodeOptions(t.Options, nil)
	default:
		return nil, fmt.Errorf("unsupported transform type %q", t.Type)
	}
}

// decodeOptions decodes a manifest options map into out. A nil out accepts
// no options at all.
func decodeOptions(raw map[string]any, out any) error {
	if out == nil {
		if len(raw) > 0 {
			return fmt.Errorf("takes no options")
		}
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// overlay decodes a manifest driver config block on top of a settings
// struct, so manifests can pin driver fields that settings leave open.
func overlay(raw any, into any) error {
	if raw == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           into,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func buildCache(cfg spec.File, s config.Settings) (cache.Adapter, error) {
	var c any
	switch cfg.Cache.Driver {
	case "memory":
		mc := s.Memory
		if err := overlay(cfg.Cache.Config, &mc); err != nil {
			return nil, fmt.Errorf("cache config: %w", err)
		}
		c = mc
	case "redis":
		rc := s.Redis
		if err := overlay(cfg.Cache.Config, &rc); err != nil {
			return nil, fmt.Errorf("cache config: %w", err)
		}
		c = rc
	default:
		return nil, fmt.Errorf("no config block for cache %q", cfg.Cache.Driver)
	}
	return cache.New(cfg.Cache.Driver, c)
}

func buildEmitter(cfg spec.File, s config.Settings) (emit.Adapter, error) {
	e, err := emit.NewAdapter(cfg.Emitter.Driver)
	if err != nil {
		return nil, err
	}
	switch cfg.Emitter.Driver {
	case "stdout":
		sc := s.Stdout
		if cfg.Debug.PrintCounter {
			sc.PrintCounter = true
		}
		if cfg.Debug.ValueMaxBytes > 0 {
			sc.ValueMaxBytes = cfg.Debug.ValueMaxBytes
		}
		if err := overlay(cfg.Emitter.Config, &sc); err != nil {
			return nil, fmt.Errorf("emitter config: %w", err)
		}
		err = e.Configure(sc)
	case "kafka":
		kc := s.Kafka
		if err := overlay(cfg.Emitter.Config, &kc); err != nil {
			return nil, fmt.Errorf("emitter config: %w", err)
		}
		err = e.Configure(kc)
	default:
		err = fmt.Errorf("no config block for emitter %q", cfg.Emitter.Driver)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
