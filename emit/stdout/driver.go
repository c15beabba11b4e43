package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"prism/emit"
)

type Config struct {
	PrintCounter  bool `koanf:"print_counter" mapstructure:"print_counter"`
	ValueMaxBytes int  `koanf:"value_max_bytes" mapstructure:"value_max_bytes"`
}

type driver struct {
	cfg Config
	out io.Writer
	mu  sync.Mutex
	seq uint64
}

// New returns a stdout emitter writing to w; nil means os.Stdout.
func New(w io.Writer, cfg Config) emit.Adapter {
	if w == nil {
		w = os.Stdout
	}
	return &driver{cfg: cfg, out: w}
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-emitter: expected Config, got %T", raw)
	}
	d.cfg = c
	return nil
}

func (d *driver) Emit(_ context.Context, key string, value []byte) error {
	if n := d.cfg.ValueMaxBytes; n > 0 && len(value) > n {
		value = value[:n]
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	if d.cfg.PrintCounter {
		_, err = fmt.Fprintf(d.out, "[emit %06d] %s %s\n", atomic.AddUint64(&d.seq, 1), key, value)
	} else {
		_, err = fmt.Fprintf(d.out, "[emit] %s %s\n", key, value)
	}
	return err
}

func (d *driver) Close() error { return nil }

func init() {
	emit.Register("stdout", func() emit.Adapter { return New(nil, Config{}) })
}
