package service

import (
	"context"
	"fmt"

	"github.com/ds124wfegd/parkingbooker/internal/entity"
	"github.com/ds124wfegd/parkingbooker/internal/monitoring"
	"github.com/ds124wfegd/parkingbooker/pkg/queue"
	"github.com/google/uuid"
)

// MessagePublisher is satisfied by queue.RetryingPublisher.
type MessagePublisher interface {
	Publish(ctx context.Context, msg *queue.Message) error
}

// QueueAdapter адаптирует очередь к EventPublisher интерфейсу
type QueueAdapter struct {
	queue MessagePublisher
}

// NewQueueAdapter создает новый адаптер для очереди
func NewQueueAdapter(q MessagePublisher) *QueueAdapter {
	return &QueueAdapter{queue: q}
}

// PublishBookingEvent публикует событие, ключ сообщения - ID парковки
func (a *QueueAdapter) PublishBookingEvent(ctx context.Context, event *entity.BookingEvent) error {
	if a.queue == nil {
		return nil // Если очередь не инициализирована, игнорируем
	}

	msg, err := queue.NewMessage(uuid.NewString(), string(event.Type), event.VenueID, event)
	if err != nil {
		return err
	}
	msg.CreatedAt = event.OccurredAt

	if err := a.queue.Publish(ctx, msg); err != nil {
		monitoring.TrackEventPublish(string(event.Type), "failed")
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	monitoring.TrackEventPublish(string(event.Type), "ok")
	return nil
}
