package monitoring

import (
	"context"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_booking_operations_total",
			Help: "Booking lifecycle operations by result",
		},
		[]string{"operation", "venue_id", "status"},
	)

	qrVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_qr_verifications_total",
			Help: "QR pass verifications by result",
		},
		[]string{"result"},
	)

	venueAvailability = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parking_venue_available_slots",
			Help: "Current available slot counter per venue",
		},
		[]string{"venue_id"},
	)

	eventPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_event_publishes_total",
			Help: "Booking events handed to the broker by result",
		},
		[]string{"type", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parking_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// TrackBookingOperation counts create/checkin/complete/cancel calls.
func TrackBookingOperation(operation, venueID, status string) {
	bookingOperations.WithLabelValues(operation, venueID, status).Inc()
}

func TrackQRVerification(result string) {
	qrVerifications.WithLabelValues(result).Inc()
}

func SetVenueAvailability(venueID string, available int) {
	venueAvailability.WithLabelValues(venueID).Set(float64(available))
}

func TrackEventPublish(eventType, status string) {
	eventPublishes.WithLabelValues(eventType, status).Inc()
}

func ObserveHTTPRequest(method, route, status string, d time.Duration) {
	httpDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// Monitor refreshes the venue gauges from the repository.
type Monitor struct {
	venues database.VenueRepository
}

func NewMonitor(venues database.VenueRepository) *Monitor {
	return &Monitor{venues: venues}
}

// Collect is meant to run as a scheduler job.
func (m *Monitor) Collect(ctx context.Context) error {
	venues, err := m.venues.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, v := range venues {
		SetVenueAvailability(v.ID, v.AvailableSlots)
	}
	return nil
}
