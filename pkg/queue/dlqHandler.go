package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DLQHandler keeps messages that could not be delivered
type DLQHandler interface {
	HandleFailedMessage(ctx context.Context, msg *Message, err error)
	GetFailedMessages(ctx context.Context, limit int) ([]*FailedMessage, error)
	GetDLQStats(ctx context.Context) (*DLQStats, error)
	PurgeDLQ(ctx context.Context) (int64, error)
}

// RedisDLQHandler stores failed messages in a redis sorted set scored by failure time
type RedisDLQHandler struct {
	client redis.Cmdable
	dlq    string
	now    func() time.Time
}

// FailedMessage represents a message that exhausted its retries
type FailedMessage struct {
	Message  *Message  `json:"message"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
	Attempts int       `json:"attempts"`
}

// DLQStats contains statistics about the Dead Letter Queue
type DLQStats struct {
	OldestFailure time.Time `json:"oldest_failure"`
	NewestFailure time.Time `json:"newest_failure"`
	QueueSize     int64     `json:"queue_size"`
}

func NewRedisDLQHandler(client redis.Cmdable, dlq string) *RedisDLQHandler {
	return &RedisDLQHandler{
		client: client,
		dlq:    dlq,
		now:    time.Now,
	}
}

// HandleFailedMessage stores a failed message in the DLQ
func (d *RedisDLQHandler) HandleFailedMessage(ctx context.Context, msg *Message, err error) {
	failed := &FailedMessage{
		Message:  msg,
		Error:    err.Error(),
		FailedAt: d.now(),
		Attempts: msg.Attempts,
	}

	data, marshalErr := json.Marshal(failed)
	if marshalErr != nil {
		logrus.WithError(marshalErr).Error("Failed to marshal failed message")
		return
	}

	// Store in DLQ with timestamp as score for sorting
	score := float64(failed.FailedAt.UnixNano()) / 1e9
	if redisErr := d.client.ZAdd(ctx, d.dlq, redis.Z{Score: score, Member: data}).Err(); redisErr != nil {
		logrus.WithError(redisErr).WithField("message_id", msg.ID).Error("Failed to send message to DLQ")
		return
	}

	logrus.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"type":       msg.Type,
		"attempts":   msg.Attempts,
	}).WithError(err).Warn("Message moved to DLQ")
}

// GetFailedMessages returns the newest failed messages first
func (d *RedisDLQHandler) GetFailedMessages(ctx context.Context, limit int) ([]*FailedMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	items, err := d.client.ZRevRange(ctx, d.dlq, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get failed messages: %v", err)
	}

	var failed []*FailedMessage
	for _, item := range items {
		var fm FailedMessage
		if err := json.Unmarshal([]byte(item), &fm); err != nil {
			logrus.WithError(err).Warn("Failed to unmarshal failed message")
			continue
		}
		failed = append(failed, &fm)
	}

	return failed, nil
}

// GetDLQStats returns statistics about the DLQ
func (d *RedisDLQHandler) GetDLQStats(ctx context.Context) (*DLQStats, error) {
	count, err := d.client.ZCard(ctx, d.dlq).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get DLQ count: %v", err)
	}

	stats := &DLQStats{QueueSize: count}
	if count == 0 {
		return stats, nil
	}

	oldest, err := d.client.ZRangeWithScores(ctx, d.dlq, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get oldest message: %v", err)
	}
	newest, err := d.client.ZRevRangeWithScores(ctx, d.dlq, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get newest message: %v", err)
	}

	if len(oldest) > 0 {
		stats.OldestFailure = scoreTime(oldest[0].Score)
	}
	if len(newest) > 0 {
		stats.NewestFailure = scoreTime(newest[0].Score)
	}
	return stats, nil
}

// PurgeDLQ clears all messages from the DLQ
func (d *RedisDLQHandler) PurgeDLQ(ctx context.Context) (int64, error) {
	count, err := d.client.ZCard(ctx, d.dlq).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get DLQ count: %v", err)
	}

	if err := d.client.Del(ctx, d.dlq).Err(); err != nil {
		return 0, fmt.Errorf("failed to purge DLQ: %v", err)
	}

	logrus.WithField("removed", count).Info("DLQ purged")
	return count, nil
}

func scoreTime(score float64) time.Time {
	return time.Unix(0, int64(score*1e9))
}
