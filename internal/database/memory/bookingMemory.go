package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/entity"
)

type bookingRepository struct {
	store *Store
}

func NewBookingRepository(store *Store) database.BookingRepository {
	return &bookingRepository{store: store}
}

// Create stores the booking under the venue lock, holding its slot if one is named.
func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	vs, err := r.store.venue(booking.VenueID)
	if err != nil {
		return err
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.bookings[booking.ID]; ok {
		return fmt.Errorf("booking %s already exists", booking.ID)
	}

	if booking.SlotNumber > 0 && booking.Status == entity.BookingStatusActive {
		if !vs.venue.HasSlot(booking.SlotNumber) {
			return fmt.Errorf("%w: slot %d is outside 1..%d", entity.ErrInvalidInput, booking.SlotNumber, vs.venue.TotalSlots)
		}
		if r.store.occupiedLocked(booking.VenueID, booking.Date, booking.Window())[booking.SlotNumber] {
			return entity.ErrSlotUnavailable
		}
		if err := vs.venue.Reserve(); err != nil {
			return err
		}
	}

	r.store.putBooking(booking)
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*entity.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	b, ok := r.store.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	return b.Clone(), nil
}

// List returns matching bookings, newest first.
func (r *bookingRepository) List(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var bookings []*entity.Booking
	for i := len(r.store.bookingOrder) - 1; i >= 0; i-- {
		b := r.store.bookings[r.store.bookingOrder[i]]
		if !filter.Matches(b) {
			continue
		}
		bookings = append(bookings, b.Clone())
	}
	return bookings, nil
}

func (r *bookingRepository) FreeSlots(ctx context.Context, venueID, date string, window entity.TimeWindow) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vs, err := r.store.venue(venueID)
	if err != nil {
		return nil, err
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.freeLocked(vs, date, window), nil
}

func (r *bookingRepository) AssignSlot(ctx context.Context, id string, pick database.SlotPicker) (*entity.Booking, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	vs, err := r.lockBookingVenue(id)
	if err != nil {
		return nil, false, err
	}
	defer vs.mu.Unlock()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	b := r.store.bookings[id]
	if b.SlotNumber > 0 {
		return b.Clone(), false, nil
	}
	if b.Status != entity.BookingStatusActive {
		return nil, false, entity.ErrNotActive
	}
	if vs.venue.AvailableSlots <= 0 {
		return nil, false, entity.ErrNoCapacity
	}

	free := r.store.freeLocked(vs, b.Date, b.Window())
	if len(free) == 0 {
		return nil, false, entity.ErrNoCapacity
	}

	slot := pick(free)
	if _, found := slices.BinarySearch(free, slot); !found {
		return nil, false, fmt.Errorf("picked slot %d is not free", slot)
	}

	if err := vs.venue.Reserve(); err != nil {
		return nil, false, err
	}
	b.SlotNumber = slot
	b.UpdatedAt = time.Now()

	return b.Clone(), true, nil
}

func (r *bookingRepository) Release(ctx context.Context, id string, status entity.BookingStatus) (*entity.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if status != entity.BookingStatusCompleted && status != entity.BookingStatusCancelled {
		return nil, fmt.Errorf("%w: cannot release into status %q", entity.ErrInvalidInput, status)
	}

	vs, err := r.lockBookingVenue(id)
	if err != nil {
		return nil, err
	}
	defer vs.mu.Unlock()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	b := r.store.bookings[id]
	if b.Status != entity.BookingStatusActive {
		return nil, entity.ErrNotActive
	}

	held := b.HoldsSlot()
	b.Status = status
	b.UpdatedAt = time.Now()
	if held {
		vs.venue.Release()
	}

	return b.Clone(), nil
}

func (r *bookingRepository) ListOverdue(ctx context.Context, now time.Time) ([]*entity.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var overdue []*entity.Booking
	for _, id := range r.store.bookingOrder {
		b := r.store.bookings[id]
		if b.Status == entity.BookingStatusActive && b.EndsBefore(now) {
			overdue = append(overdue, b.Clone())
		}
	}
	return overdue, nil
}

func (r *bookingRepository) Stats(ctx context.Context, venueID string) (*entity.BookingStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stats := &entity.BookingStats{}
	for _, id := range r.store.bookingOrder {
		b := r.store.bookings[id]
		if venueID != "" && b.VenueID != venueID {
			continue
		}
		stats.Add(b.Status)
	}
	return stats, nil
}

// lockBookingVenue returns the booking's venue with its lock held. A booking's
// VenueID never changes, so reading it before taking the venue lock is safe.
func (r *bookingRepository) lockBookingVenue(id string) (*venueState, error) {
	r.store.mu.RLock()
	b, ok := r.store.bookings[id]
	var venueID string
	if ok {
		venueID = b.VenueID
	}
	r.store.mu.RUnlock()

	if !ok {
		return nil, entity.ErrBookingNotFound
	}

	vs, err := r.store.venue(venueID)
	if err != nil {
		return nil, err
	}
	vs.mu.Lock()
	return vs, nil
}
