// Package kafkasink publishes quakes to a Kafka topic, one JSON message per quake.
package kafkasink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/skjalftalisa/pkg/skjalftalisa"
)

// Event is the message value. Key is the hex quake key, also used as the message key so
// revisions of the same row land on the same partition.
type Event struct {
	Key        string             `json:"key"`
	Quake      skjalftalisa.Quake `json:"quake"`
	OccurredAt time.Time          `json:"occurred_at"`
	Severity   string             `json:"severity"`
	Cell       string             `json:"cell,omitempty"`
}

type Config struct {
	Brokers []string
	Topic   string
	H3Res   int // <0 disables the cell field
}

type Publisher struct {
	log   *slog.Logger
	topic string
	res   int
	prod  sarama.SyncProducer
}

func New(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafkasink: no brokers")
	}
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_5_0_0
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3

	prod, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafkasink: create sync producer: %w", err)
	}
	return NewWithProducer(prod, cfg, logger), nil
}

// NewWithProducer wraps an existing producer; Close closes it.
func NewWithProducer(prod sarama.SyncProducer, cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	topic := cfg.Topic
	if topic == "" {
		topic = "quakes"
	}
	return &Publisher{log: logger, topic: topic, res: cfg.H3Res, prod: prod}
}

func (p *Publisher) event(q skjalftalisa.Quake) Event {
	ev := Event{
		Key:        strconv.FormatUint(q.Key(), 16),
		Quake:      q,
		OccurredAt: q.OccurredAt(),
		Severity:   q.Severity().String(),
	}
	if p.res >= 0 {
		if c, err := q.Cell(p.res); err == nil {
			ev.Cell = c.String()
		}
	}
	return ev
}

func (p *Publisher) Publish(ctx context.Context, quakes []skjalftalisa.Quake) error {
	if len(quakes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msgs := make([]*sarama.ProducerMessage, 0, len(quakes))
	for _, q := range quakes {
		ev := p.event(q)
		b, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("kafkasink: marshal %s: %w", ev.Key, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic:     p.topic,
			Key:       sarama.StringEncoder(ev.Key),
			Value:     sarama.ByteEncoder(b),
			Timestamp: ev.OccurredAt,
		})
	}
	if err := p.prod.SendMessages(msgs); err != nil {
		var perrs sarama.ProducerErrors
		if errors.As(err, &perrs) {
			p.log.ErrorContext(ctx, "kafka publish partially failed",
				"failed", len(perrs), "total", len(msgs), "topic", p.topic)
		}
		return fmt.Errorf("kafkasink: send %d messages: %w", len(msgs), err)
	}
	p.log.DebugContext(ctx, "published to kafka", "count", len(msgs), "topic", p.topic)
	return nil
}

func (p *Publisher) Close() error {
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("kafkasink: close producer: %w", err)
	}
	return nil
}
