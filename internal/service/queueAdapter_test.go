package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/entity"
	"github.com/ds124wfegd/parkingbooker/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, msg *queue.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func TestQueueAdapter_PublishBookingEvent(t *testing.T) {
	pub := &mockPublisher{}
	adapter := NewQueueAdapter(pub)

	event := &entity.BookingEvent{
		Type:           entity.BookingEventCheckedIn,
		BookingID:      "booking-1",
		VenueID:        "mall-1",
		UserID:         "user-1",
		SlotNumber:     7,
		AvailableSlots: 44,
		OccurredAt:     time.Date(2025, 4, 23, 10, 0, 0, 0, time.UTC),
	}

	pub.On("Publish", mock.Anything, mock.MatchedBy(func(msg *queue.Message) bool {
		var got entity.BookingEvent
		if err := json.Unmarshal(msg.Body, &got); err != nil {
			return false
		}
		return msg.Type == "booking.checked_in" &&
			msg.Key == "mall-1" &&
			msg.CreatedAt.Equal(event.OccurredAt) &&
			got.SlotNumber == 7 && got.BookingID == "booking-1"
	})).Return(nil).Once()

	require.NoError(t, adapter.PublishBookingEvent(context.Background(), event))
	pub.AssertExpectations(t)
}

func TestQueueAdapter_WrapsFailure(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := NewQueueAdapter(pub).PublishBookingEvent(context.Background(), &entity.BookingEvent{
		Type:    entity.BookingEventCreated,
		VenueID: "mall-1",
	})
	assert.ErrorContains(t, err, "broker down")
}

func TestQueueAdapter_NilQueue(t *testing.T) {
	assert.NoError(t, NewQueueAdapter(nil).PublishBookingEvent(context.Background(), &entity.BookingEvent{}))
}
