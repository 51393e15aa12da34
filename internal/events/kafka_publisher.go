package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/Balorum/PhotoShare/pkg/logger"
	"github.com/Balorum/PhotoShare/pkg/retry"
)

// KafkaPublisherConfig holds configuration for KafkaPublisher
type KafkaPublisherConfig struct {
	Brokers        []string
	ClientID       string
	Topic          string
	ProduceTimeout time.Duration
}

// producer is the subset of *kgo.Client used for publishing
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher writes user events to a Kafka topic, keyed by email so a
// user's events stay ordered within a partition
type KafkaPublisher struct {
	client  producer
	topic   string
	timeout time.Duration
}

// NewKafkaPublisher connects to the brokers and returns a publisher
func NewKafkaPublisher(ctx context.Context, config *KafkaPublisherConfig) (*KafkaPublisher, error) {
	cfg := *config
	if cfg.Topic == "" {
		cfg.Topic = DefaultUserEventsTopic
	}
	if cfg.ProduceTimeout == 0 {
		cfg.ProduceTimeout = 5 * time.Second
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	// Brokers often come up after the API in local stacks
	err = retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
		return client.Ping(ctx)
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}

	return newKafkaPublisher(client, cfg.Topic, cfg.ProduceTimeout), nil
}

func newKafkaPublisher(client producer, topic string, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic, timeout: timeout}
}

// Publish writes event synchronously
func (p *KafkaPublisher) Publish(ctx context.Context, event *UserEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal user event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Email),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.EventType, err)
	}

	logger.Get().Debug("User event published",
		zap.String("event_type", string(event.EventType)),
		zap.String("event_id", event.EventID),
	)
	return nil
}

// Close flushes and closes the client
func (p *KafkaPublisher) Close() {
	p.client.Close()
}
