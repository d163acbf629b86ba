package database

import (
	"context"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/entity"
)

// SlotPicker chooses one slot out of a non-empty, ascending list of free slots.
type SlotPicker func(free []int) int

type VenueRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Venue, error)
	GetAll(ctx context.Context) ([]*entity.Venue, error)
}

type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	GetAll(ctx context.Context) ([]*entity.Account, error)
}

// BookingRepository owns every operation that touches a venue's capacity counter.
// Each of Create, AssignSlot, Release and FreeSlots runs as one atomic unit per venue.
type BookingRepository interface {
	// Create stores the booking. If it names a slot, the slot must be free for the
	// booking window and the venue counter is decremented.
	Create(ctx context.Context, booking *entity.Booking) error
	GetByID(ctx context.Context, id string) (*entity.Booking, error)
	List(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error)

	// FreeSlots returns the venue's slots not held over window on date.
	FreeSlots(ctx context.Context, venueID, date string, window entity.TimeWindow) ([]int, error)

	// AssignSlot binds a slot chosen by pick to a booking without one. The returned
	// flag is false when the booking already had a slot.
	AssignSlot(ctx context.Context, id string, pick SlotPicker) (*entity.Booking, bool, error)

	// Release moves an active booking to status and returns its slot to the venue.
	Release(ctx context.Context, id string, status entity.BookingStatus) (*entity.Booking, error)

	// ListOverdue returns active bookings whose window ended at or before now.
	ListOverdue(ctx context.Context, now time.Time) ([]*entity.Booking, error)

	Stats(ctx context.Context, venueID string) (*entity.BookingStats, error)
}
