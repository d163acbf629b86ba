package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ds124wfegd/parkingbooker/pkg/scheduler"

	"github.com/sirupsen/logrus"
)

// OverdueCloser закрывает брони, время которых истекло
type OverdueCloser interface {
	CloseOverdueBookings(ctx context.Context) (int, error)
}

type BookingCleanupWorker struct {
	bookings OverdueCloser
	interval time.Duration

	runs   atomic.Int64
	closed atomic.Int64
	failed atomic.Int64
}

func NewBookingCleanupWorker(bookings OverdueCloser, interval time.Duration) *BookingCleanupWorker {
	return &BookingCleanupWorker{
		bookings: bookings,
		interval: interval,
	}
}

// Start блокируется до отмены ctx
func (w *BookingCleanupWorker) Start(ctx context.Context) {
	logrus.WithField("interval", w.interval.String()).Info("Booking cleanup worker started")

	scheduler.NewScheduler("booking_cleanup", w.interval, w.Run).Start(ctx)

	logrus.Info("Booking cleanup worker stopped")
}

// Run выполняет один проход очистки
func (w *BookingCleanupWorker) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return nil
	}

	w.runs.Add(1)
	closed, err := w.bookings.CloseOverdueBookings(ctx)
	if err != nil {
		w.failed.Add(1)
		return err
	}

	w.closed.Add(int64(closed))
	if closed == 0 {
		logrus.Debug("No overdue bookings found for cleanup")
	}
	return nil
}

// GetStats возвращает статистику работы воркера
func (w *BookingCleanupWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"worker_type":     "booking_cleanup",
		"interval":        w.interval.String(),
		"runs":            w.runs.Load(),
		"bookings_closed": w.closed.Load(),
		"failed_runs":     w.failed.Load(),
	}
}
