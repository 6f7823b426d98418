package forwarder

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"analyticshub/api/models"
)

// KafkaForwarder publishes ingested events to a Kafka topic, keyed by
// session id so one session stays on one partition. It is optional; when
// disabled the analytics store simply runs without a forwarder.
type KafkaForwarder struct {
	writer *kafka.Writer
}

func NewKafkaForwarder(brokers []string, topic string) *KafkaForwarder {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		MaxAttempts:            3,
	}
	return &KafkaForwarder{writer: writer}
}

// Forward publishes one event.
func (f *KafkaForwarder) Forward(ctx context.Context, event models.Event) error {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return f.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionID),
		Value: messageBytes,
	})
}

func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}
