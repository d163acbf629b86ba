package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ds124wfegd/parkingbooker/pkg/queue"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer returns a queue.Sink writing to topic. The topic is created if missing.
func NewProducer(ctx context.Context, brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Проверяем подключение и создаем топик
	conn, err := kafka.DialContext(dialCtx, "tcp", brokers[0])
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("kafka connection failed: %w", err)
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logrus.WithError(err).WithField("topic", topic).Warn("Could not create topic (might already exist)")
	}

	logrus.WithFields(logrus.Fields{
		"brokers": strings.Join(brokers, ","),
		"topic":   topic,
	}).Info("Connected to Kafka")
	return &Producer{writer: writer, topic: topic}, nil
}

// Publish writes the message keyed by msg.Key so one venue's events stay ordered.
func (p *Producer) Publish(ctx context.Context, msg *queue.Message) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Body,
		Time:  msg.CreatedAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(msg.Type)},
			{Key: "id", Value: []byte(msg.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
