package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Message is one event handed to a Sink.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	Body       json.RawMessage `json:"body"`
	CreatedAt  time.Time       `json:"created_at"`
	Attempts   int             `json:"attempts"`
	MaxRetries int             `json:"max_retries"`
}

// NewMessage marshals body into a message keyed for partitioning.
func NewMessage(id, typ, key string, body any) (*Message, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message body: %w", err)
	}
	return &Message{
		ID:        id,
		Type:      typ,
		Key:       key,
		Body:      data,
		CreatedAt: time.Now(),
	}, nil
}

// Validate checks if the message is valid
func (m *Message) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("message ID is required")
	}
	if strings.TrimSpace(m.Type) == "" {
		return fmt.Errorf("message type is required")
	}
	if len(m.Body) == 0 {
		return fmt.Errorf("message body is required")
	}
	return nil
}

// Sink delivers messages to a broker.
type Sink interface {
	Publish(ctx context.Context, msg *Message) error
	Close() error
}
