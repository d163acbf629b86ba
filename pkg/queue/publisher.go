package queue

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryingPublisher delivers messages through a Sink, retrying with backoff
// and handing exhausted messages to the DLQ.
type RetryingPublisher struct {
	sink  Sink
	retry *RetryManager
	dlq   DLQHandler
}

// NewRetryingPublisher creates a publisher. dlq may be nil, in which case
// undeliverable messages are only logged.
func NewRetryingPublisher(sink Sink, retry *RetryManager, dlq DLQHandler) *RetryingPublisher {
	return &RetryingPublisher{
		sink:  sink,
		retry: retry,
		dlq:   dlq,
	}
}

func (p *RetryingPublisher) Publish(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.MaxRetries == 0 {
		msg.MaxRetries = p.retry.MaxRetries()
	}

	for {
		msg.Attempts++
		err := p.sink.Publish(ctx, msg)
		if err == nil {
			return nil
		}

		retry, delay := p.retry.ShouldRetry(msg, err)
		if !retry {
			p.deadLetter(ctx, msg, err)
			return err
		}

		logrus.WithFields(logrus.Fields{
			"message_id": msg.ID,
			"attempt":    msg.Attempts,
			"delay":      delay,
		}).WithError(err).Warn("Publish failed, retrying")

		select {
		case <-ctx.Done():
			p.deadLetter(context.WithoutCancel(ctx), msg, ctx.Err())
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (p *RetryingPublisher) deadLetter(ctx context.Context, msg *Message, err error) {
	if p.dlq == nil {
		logrus.WithField("message_id", msg.ID).WithError(err).Error("Message dropped")
		return
	}
	p.dlq.HandleFailedMessage(ctx, msg, err)
}

func (p *RetryingPublisher) Close() error {
	return p.sink.Close()
}
