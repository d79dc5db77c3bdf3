package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"taxtrail/internal/audit"
)

// KafkaStore publishes audit events to a Kafka topic, keyed by client so a
// client's trail stays ordered within a partition.
type KafkaStore struct {
	client *kgo.Client
	topic  string
}

func NewKafka(client *kgo.Client, topic string) *KafkaStore {
	return &KafkaStore{client: client, topic: topic}
}

// NewKafkaClient builds a producer suitable for the audit store.
func NewKafkaClient(brokers []string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return client, nil
}

type kafkaEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	AccountantID string    `json:"accountant_id"`
	ClientID     string    `json:"client_id"`
	Action       string    `json:"action"`
	Category     string    `json:"category"`
	Detail       string    `json:"detail,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
}

func (s *KafkaStore) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(kafkaEvent{
		Timestamp:    event.Timestamp,
		AccountantID: event.AccountantID.String(),
		ClientID:     event.ClientID.String(),
		Action:       string(event.Action),
		Category:     string(event.Action.Category()),
		Detail:       event.Detail,
		RequestID:    event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.ClientID.String()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (s *KafkaStore) Close() {
	s.client.Close()
}
