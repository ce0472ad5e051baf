// Package kafka publishes delivery status changes to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cargotrust/internal/core/ports"

	"github.com/segmentio/kafka-go"
)

// StatusChangedMessage is the JSON value of a published message. The message
// key is the delivery id, so changes of one delivery stay ordered.
type StatusChangedMessage struct {
	DeliveryID int64     `json:"deliveryId"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to"`
	Carrier    string    `json:"carrier,omitempty"`
	TxHash     string    `json:"txHash,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	w messageWriter
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher writes synchronously to topic on the comma separated brokers.
// Messages are partitioned by key.
func NewPublisher(brokers, topic string) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		},
	}
}

func newPublisherWithWriter(w messageWriter) *Publisher {
	return &Publisher{w: w}
}

func (p *Publisher) Close() error {
	return p.w.Close()
}

func (p *Publisher) PublishStatusChanged(ctx context.Context, event ports.DeliveryStatusChanged) error {
	b, err := json.Marshal(StatusChangedMessage{
		DeliveryID: event.DeliveryID,
		From:       string(event.From),
		To:         string(event.To),
		Carrier:    event.Carrier,
		TxHash:     event.TxHash,
		OccurredAt: event.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode status change: %w", err)
	}

	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.DeliveryID, 10)),
		Value: b,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte("delivery.status_changed")},
		},
	})
}
