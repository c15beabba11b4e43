package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"

	"prism/emit"
)

type Config struct {
	Brokers []string `koanf:"brokers" mapstructure:"brokers"`
	Topic   string   `koanf:"topic" mapstructure:"topic"`
	Acks    int16    `koanf:"required_acks" mapstructure:"required_acks"` // 0,1,-1
	Version string   `koanf:"version" mapstructure:"version"`
}

type driver struct {
	cfg Config
	p   sarama.SyncProducer
}

// NewWithProducer wraps an existing producer; used by tests and by callers
// that manage the sarama client themselves.
func NewWithProducer(p sarama.SyncProducer, topic string) emit.Adapter {
	return &driver{cfg: Config{Topic: topic}, p: p}
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-emitter: want Config, got %T", c)
	}
	if cfg.Topic == "" {
		return fmt.Errorf("kafka-emitter: topic is required")
	}
	d.cfg = cfg

	sc := sarama.NewConfig()
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return err
		}
		sc.Version = ver
	}
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true
	var err error
	d.p, err = sarama.NewSyncProducer(cfg.Brokers, sc)
	return err
}

func (d *driver) Emit(_ context.Context, key string, value []byte) error {
	if d.p == nil {
		return fmt.Errorf("kafka-emitter: not configured")
	}
	_, _, err := d.p.SendMessage(&sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	err := d.p.Close()
	d.p = nil
	return err
}

func init() { emit.Register("kafka", func() emit.Adapter { return &driver{} }) }
