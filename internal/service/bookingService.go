package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/entity"
	"github.com/ds124wfegd/parkingbooker/internal/monitoring"
	"github.com/ds124wfegd/parkingbooker/pkg/qrpass"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreateBookingRequest представляет данные для бронирования места
type CreateBookingRequest struct {
	UserID     string `json:"-"`
	VenueID    string `json:"venue_id" binding:"required"`
	SlotNumber int    `json:"slot_number"`
	Date       string `json:"date" binding:"required"`
	StartTime  string `json:"start_time" binding:"required"`
	EndTime    string `json:"end_time"`
}

// QRPass is an issued QR payload together with its booking.
type QRPass struct {
	Booking *entity.Booking `json:"booking"`
	Payload string          `json:"payload"`
}

const (
	eventPublishTimeout = 30 * time.Second
	eventQueueSize      = 1024
)

// venueInvalidator is implemented by cached venue repositories.
type venueInvalidator interface {
	Invalidate(ctx context.Context, venueID string) error
}

type bookingService struct {
	bookings database.BookingRepository
	venues   database.VenueRepository
	accounts database.AccountRepository
	codec    *qrpass.Codec

	events  EventPublisher
	alerter Alerter
	now     func() time.Time
	pick    database.SlotPicker
	qrSize  int

	// события публикуются одной горутиной в порядке изменений
	eventQueue  chan *entity.BookingEvent
	queueMu     sync.RWMutex
	queueClosed bool
	pending     sync.WaitGroup
	drained     chan struct{}
	closeOnce   sync.Once

	alerts sync.WaitGroup
}

type BookingOption func(*bookingService)

func WithClock(now func() time.Time) BookingOption {
	return func(s *bookingService) { s.now = now }
}

func WithSlotPicker(pick database.SlotPicker) BookingOption {
	return func(s *bookingService) { s.pick = pick }
}

func WithEventPublisher(events EventPublisher) BookingOption {
	return func(s *bookingService) { s.events = events }
}

func WithAlerter(alerter Alerter) BookingOption {
	return func(s *bookingService) { s.alerter = alerter }
}

func WithQRSize(size int) BookingOption {
	return func(s *bookingService) { s.qrSize = size }
}

// NewBookingService создает новый экземпляр BookingService
func NewBookingService(
	bookings database.BookingRepository,
	venues database.VenueRepository,
	accounts database.AccountRepository,
	codec *qrpass.Codec,
	opts ...BookingOption,
) BookingService {
	s := &bookingService{
		bookings: bookings,
		venues:   venues,
		accounts: accounts,
		codec:    codec,
		now:      time.Now,
		pick:     RandomSlot,
		qrSize:   qrpass.DefaultSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.events != nil {
		s.eventQueue = make(chan *entity.BookingEvent, eventQueueSize)
		s.drained = make(chan struct{})
		go s.publishLoop()
	}
	return s
}

// RandomSlot draws uniformly from the free slots.
func RandomSlot(free []int) int {
	return free[rand.IntN(len(free))]
}

// CreateBooking создает новое бронирование
func (s *bookingService) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*entity.Booking, error) {
	if req.UserID == "" || req.VenueID == "" {
		return nil, fmt.Errorf("%w: user and venue are required", entity.ErrInvalidInput)
	}
	if req.SlotNumber < 0 {
		return nil, fmt.Errorf("%w: slot number %d", entity.ErrInvalidInput, req.SlotNumber)
	}

	if _, err := entity.ParseDate(req.Date); err != nil {
		return nil, err
	}
	now := s.now()
	if req.Date < entity.Today(now) {
		return nil, fmt.Errorf("%w: date %s is in the past", entity.ErrInvalidInput, req.Date)
	}

	window, err := entity.NewTimeWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	venue, err := s.venues.GetByID(ctx, req.VenueID)
	if err != nil {
		return nil, err
	}

	id := "booking-" + uuid.NewString()
	booking := &entity.Booking{
		ID:         id,
		UserID:     req.UserID,
		VenueID:    venue.ID,
		SlotNumber: req.SlotNumber,
		Date:       req.Date,
		StartTime:  window.Start,
		EndTime:    window.End,
		Status:     entity.BookingStatusActive,
		QRCode:     id,
		Amount:     venue.Price(window.Hours()),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		monitoring.TrackBookingOperation("create", venue.ID, "error")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"venue_id":   booking.VenueID,
		"user_id":    booking.UserID,
		"slot":       booking.SlotNumber,
		"date":       booking.Date,
	}).Info("Booking created")
	monitoring.TrackBookingOperation("create", venue.ID, "ok")

	s.afterChange(ctx, booking, entity.BookingEventCreated, "")
	return booking, nil
}

// GetBooking возвращает бронирование по ID
func (s *bookingService) GetBooking(ctx context.Context, id string) (*entity.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// GetUserBookings возвращает историю бронирований пользователя
func (s *bookingService) GetUserBookings(ctx context.Context, userID string, filter entity.BookingFilter) ([]*entity.Booking, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", entity.ErrInvalidInput)
	}
	filter.UserID = userID

	bookings, err := s.listBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}
	return bookings, nil
}

func (s *bookingService) ListBookings(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error) {
	bookings, err := s.listBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (s *bookingService) listBookings(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", entity.ErrInvalidInput, filter.Status)
	}
	if filter.When != "" && !filter.When.Valid() {
		return nil, fmt.Errorf("%w: period %q", entity.ErrInvalidInput, filter.When)
	}
	if filter.Date != "" {
		if _, err := entity.ParseDate(filter.Date); err != nil {
			return nil, err
		}
	}
	filter.Today = entity.Today(s.now())
	filter.Search = strings.TrimSpace(filter.Search)

	return s.bookings.List(ctx, filter)
}

func (s *bookingService) GetBookingStats(ctx context.Context, venueID string) (*entity.BookingStats, error) {
	return s.bookings.Stats(ctx, venueID)
}

// AssignSlot назначает место при заезде; повторный вызов возвращает то же место
func (s *bookingService) AssignSlot(ctx context.Context, id string) (*entity.Booking, error) {
	booking, assigned, err := s.bookings.AssignSlot(ctx, id, s.pick)
	if err != nil {
		if errors.Is(err, entity.ErrNoCapacity) {
			s.alertNoCapacity(id)
		}
		monitoring.TrackBookingOperation("checkin", "", "error")
		return nil, err
	}

	if !assigned {
		return booking, nil
	}

	logrus.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"venue_id":   booking.VenueID,
		"slot":       booking.SlotNumber,
	}).Info("Slot assigned")
	monitoring.TrackBookingOperation("checkin", booking.VenueID, "ok")

	s.afterChange(ctx, booking, entity.BookingEventCheckedIn, "")
	return booking, nil
}

// CompleteBooking завершает бронирование при выезде
func (s *bookingService) CompleteBooking(ctx context.Context, id string) (*entity.Booking, error) {
	return s.release(ctx, id, entity.BookingStatusCompleted, "")
}

// CancelBooking отменяет бронирование
func (s *bookingService) CancelBooking(ctx context.Context, id, reason string) (*entity.Booking, error) {
	return s.release(ctx, id, entity.BookingStatusCancelled, reason)
}

func (s *bookingService) release(ctx context.Context, id string, status entity.BookingStatus, reason string) (*entity.Booking, error) {
	op := "complete"
	eventType := entity.BookingEventCompleted
	if status == entity.BookingStatusCancelled {
		op = "cancel"
		eventType = entity.BookingEventCancelled
	}

	booking, err := s.bookings.Release(ctx, id, status)
	if err != nil {
		monitoring.TrackBookingOperation(op, "", "error")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"venue_id":   booking.VenueID,
		"status":     booking.Status,
		"reason":     reason,
	}).Info("Booking released")
	monitoring.TrackBookingOperation(op, booking.VenueID, "ok")

	s.afterChange(ctx, booking, eventType, reason)
	return booking, nil
}

// CloseOverdueBookings закрывает активные брони, чье время истекло:
// с местом завершаются, без места отменяются как неявка.
func (s *bookingService) CloseOverdueBookings(ctx context.Context) (int, error) {
	overdue, err := s.bookings.ListOverdue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to get overdue bookings: %w", err)
	}

	closed := 0
	for _, b := range overdue {
		if b.SlotNumber > 0 {
			_, err = s.CompleteBooking(ctx, b.ID)
		} else {
			_, err = s.CancelBooking(ctx, b.ID, "no-show")
		}

		switch {
		case err == nil:
			closed++
		case errors.Is(err, entity.ErrNotActive):
			// closed concurrently
		default:
			logrus.WithError(err).WithField("booking_id", b.ID).Error("Failed to close overdue booking")
		}
	}

	if closed > 0 {
		logrus.WithField("closed", closed).Info("Overdue bookings closed")
	}
	return closed, nil
}

// IssueQR выдает подписанный QR пропуск для активной брони
func (s *bookingService) IssueQR(ctx context.Context, id string) (*QRPass, error) {
	booking, venue, err := s.activeBookingWithVenue(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := s.codec.Encode(ticketFor(booking, venue))
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR payload: %w", err)
	}
	return &QRPass{Booking: booking, Payload: payload}, nil
}

func (s *bookingService) RenderQRImage(ctx context.Context, id string) ([]byte, error) {
	pass, err := s.IssueQR(ctx, id)
	if err != nil {
		return nil, err
	}
	return qrpass.PNG(pass.Payload, s.qrSize)
}

func (s *bookingService) RenderPassPDF(ctx context.Context, id string) ([]byte, error) {
	booking, venue, err := s.activeBookingWithVenue(ctx, id)
	if err != nil {
		return nil, err
	}

	ticket := ticketFor(booking, venue)
	payload, err := s.codec.Encode(ticket)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR payload: %w", err)
	}

	return qrpass.PDF(qrpass.Pass{
		Ticket:   ticket,
		Location: venue.Location,
		Amount:   booking.Amount.StringFixed(2),
		Payload:  payload,
	})
}

// VerifyQR проверяет QR пропуск: формат, бронь, подпись, статус, дату
func (s *bookingService) VerifyQR(ctx context.Context, payload string) (*entity.Booking, error) {
	booking, err := s.verifyQR(ctx, payload)
	monitoring.TrackQRVerification(verificationResult(err))
	return booking, err
}

func (s *bookingService) verifyQR(ctx context.Context, payload string) (*entity.Booking, error) {
	p, err := s.codec.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidFormat, err)
	}

	booking, err := s.bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		return nil, err
	}

	if err := s.codec.Verify(p, booking.UserID); err != nil {
		return nil, entity.ErrInvalidSignature
	}

	if booking.Status != entity.BookingStatusActive {
		return nil, entity.ErrNotActive
	}

	if booking.Date < entity.Today(s.now()) {
		return nil, entity.ErrExpired
	}

	return booking, nil
}

// ScanCheckIn проверяет QR на въезде и назначает место
func (s *bookingService) ScanCheckIn(ctx context.Context, payload string) (*entity.Booking, error) {
	booking, err := s.VerifyQR(ctx, payload)
	if err != nil {
		return nil, err
	}

	if booking.Date != entity.Today(s.now()) {
		return nil, entity.ErrNotToday
	}

	return s.AssignSlot(ctx, booking.ID)
}

func (s *bookingService) WaitForEvents() {
	s.pending.Wait()
	s.alerts.Wait()
}

// Close stops accepting events and returns once the queued ones are published.
func (s *bookingService) Close() {
	s.closeOnce.Do(func() {
		if s.eventQueue == nil {
			return
		}
		s.queueMu.Lock()
		s.queueClosed = true
		close(s.eventQueue)
		s.queueMu.Unlock()

		<-s.drained
	})
	s.alerts.Wait()
}

func (s *bookingService) activeBookingWithVenue(ctx context.Context, id string) (*entity.Booking, *entity.Venue, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if booking.Status != entity.BookingStatusActive {
		return nil, nil, entity.ErrNotActive
	}

	venue, err := s.venues.GetByID(ctx, booking.VenueID)
	if err != nil {
		return nil, nil, err
	}
	return booking, venue, nil
}

func ticketFor(b *entity.Booking, v *entity.Venue) qrpass.Ticket {
	return qrpass.Ticket{
		BookingID:  b.ID,
		UserID:     b.UserID,
		MallName:   v.Name,
		SlotNumber: b.SlotNumber,
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
	}
}

func verificationResult(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, entity.ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, entity.ErrNotFound):
		return "not_found"
	case errors.Is(err, entity.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, entity.ErrNotActive):
		return "not_active"
	case errors.Is(err, entity.ErrExpired):
		return "expired"
	}
	return "error"
}

// afterChange refreshes the cached venue and emits the lifecycle event.
func (s *bookingService) afterChange(ctx context.Context, b *entity.Booking, eventType entity.BookingEventType, reason string) {
	if inv, ok := s.venues.(venueInvalidator); ok {
		if err := inv.Invalidate(ctx, b.VenueID); err != nil {
			logrus.WithError(err).WithField("venue_id", b.VenueID).Warn("Failed to invalidate venue cache")
		}
	}

	available := -1
	if v, err := s.venues.GetByID(ctx, b.VenueID); err == nil {
		available = v.AvailableSlots
		monitoring.SetVenueAvailability(v.ID, v.AvailableSlots)
	}

	if s.events == nil {
		return
	}

	event := &entity.BookingEvent{
		Type:           eventType,
		BookingID:      b.ID,
		VenueID:        b.VenueID,
		UserID:         b.UserID,
		SlotNumber:     b.SlotNumber,
		AvailableSlots: available,
		Reason:         reason,
		OccurredAt:     s.now(),
	}

	s.enqueueEvent(event)
}

// enqueueEvent blocks while the queue is full so that no event is lost or reordered.
func (s *bookingService) enqueueEvent(event *entity.BookingEvent) {
	s.queueMu.RLock()
	defer s.queueMu.RUnlock()

	if s.queueClosed {
		logrus.WithFields(logrus.Fields{
			"booking_id": event.BookingID,
			"type":       event.Type,
		}).Warn("Event queue closed, booking event dropped")
		return
	}

	s.pending.Add(1)
	s.eventQueue <- event
}

func (s *bookingService) publishLoop() {
	defer close(s.drained)

	for event := range s.eventQueue {
		s.publishEvent(event)
		s.pending.Done()
	}
}

func (s *bookingService) publishEvent(event *entity.BookingEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
	defer cancel()

	if err := s.events.PublishBookingEvent(ctx, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"booking_id": event.BookingID,
			"type":       event.Type,
		}).Error("Failed to publish booking event")
	}
}

func (s *bookingService) alertNoCapacity(bookingID string) {
	if s.alerter == nil {
		return
	}

	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()

		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()

		text := fmt.Sprintf("Check-in refused: no free slots for booking %s", bookingID)
		if err := s.alerter.Alert(ctx, text); err != nil {
			logrus.WithError(err).WithField("booking_id", bookingID).Error("Failed to send admin alert")
		}
	}()
}
