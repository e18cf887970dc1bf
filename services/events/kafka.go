// Package eventsvc publishes recorded activities to Kafka.
package eventsvc

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/activity"
)

var ErrNoBrokers = errors.New("no kafka brokers configured")

// messageWriter is implemented by *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
}

var _ activity.Publisher = (*Publisher)(nil) // interface compliance check

func NewPublisher(conf *core.Config) (*Publisher, error) {
	if len(conf.Kafka.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(conf.Kafka.Brokers...),
		Topic:        conf.Kafka.ActivityTopic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}}, nil
}

// Publish writes the log keyed by user id, so that a user's activities stay ordered.
func (p *Publisher) Publish(ctx context.Context, l activity.Log) error {
	value, err := json.Marshal(l)
	if err != nil {
		return errors.Wrap(err, "marshalling activity")
	}
	msg := kafka.Message{
		Key:   []byte(strconv.Itoa(l.UserID)),
		Value: value,
		Time:  l.CreatedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "writing activity to kafka")
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
