// Package events publishes settlement lifecycle events to Kafka for
// downstream consumers (vendor notifications, reporting). Publishing is
// fire-and-forget from the caller's perspective; a broker outage never
// blocks a payout.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicPayoutEvents = "payout-events"
	TopicEscalations  = "payout-escalations"
)

// PayoutEvent describes a payout lifecycle transition.
type PayoutEvent struct {
	PayoutID  string    `json:"payout_id"`
	VendorID  string    `json:"vendor_id"`
	OrderID   string    `json:"order_id,omitempty"`
	Status    string    `json:"status"`
	NetPayout int64     `json:"net_payout"`
	Currency  string    `json:"currency"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// EscalationEvent is raised once when a payout exhausts its retry budget.
type EscalationEvent struct {
	PayoutID         string    `json:"payout_id"`
	VendorID         string    `json:"vendor_id"`
	OrderID          string    `json:"order_id,omitempty"`
	RetryCount       int       `json:"retry_count"`
	ErrorCode        string    `json:"error_code"`
	ErrorDescription string    `json:"error_description"`
	At               time.Time `json:"at"`
}

// Publisher is the event sink services depend on.
type Publisher interface {
	PublishPayout(ctx context.Context, event PayoutEvent) error
	PublishEscalation(ctx context.Context, event EscalationEvent) error
	Close() error
}

// KafkaPublisher writes events to Kafka.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) PublishPayout(ctx context.Context, event PayoutEvent) error {
	return p.publish(ctx, TopicPayoutEvents, event.VendorID, event)
}

func (p *KafkaPublisher) PublishEscalation(ctx context.Context, event EscalationEvent) error {
	return p.publish(ctx, TopicEscalations, event.PayoutID, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops events; used in tests and broker-less deployments.
type NoopPublisher struct{}

func (NoopPublisher) PublishPayout(context.Context, PayoutEvent) error        { return nil }
func (NoopPublisher) PublishEscalation(context.Context, EscalationEvent) error { return nil }
func (NoopPublisher) Close() error                                             { return nil }

// PublishAsync fires a publish on a goroutine and logs failures. Use for
// events that must not delay the settlement path.
func PublishAsync(pub Publisher, event PayoutEvent) {
	if pub == nil {
		return
	}
	go func() {
		if err := pub.PublishPayout(context.Background(), event); err != nil {
			log.Printf("failed to publish payout event for %s: %v", event.PayoutID, err)
		}
	}()
}
