package repository

import (
	"context"

	"TradeWatch/internal/domain/models"
	"TradeWatch/pkg/kafka"
)

// KafkaAlertPublisher publishes alerts to a Kafka topic, keyed by activity id
// so repeated alerts for the same pattern land on the same partition.
type KafkaAlertPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaAlertPublisher(producer *kafka.Producer, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) Publish(ctx context.Context, alert *models.Alert) error {
	return p.producer.Publish(ctx, p.topic, []byte(alert.Activity.ActivityID), alert)
}

func (p *KafkaAlertPublisher) Close() error {
	return p.producer.Close()
}
