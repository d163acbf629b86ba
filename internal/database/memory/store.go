package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/entity"
)

// venueState pairs a venue with the lock that guards its counter and its bookings.
type venueState struct {
	mu    sync.Mutex
	venue entity.Venue
}

// Store is the in-process backing for the memory repositories.
//
// Lock order is venueState.mu before Store.mu. The venues map is fixed after NewStore.
type Store struct {
	venues     map[string]*venueState
	venueOrder []string

	mu           sync.RWMutex
	accounts     map[string]*entity.Account
	accountOrder []string
	bookings     map[string]*entity.Booking
	bookingOrder []string
	byVenue      map[string][]string
}

func NewStore(seed *database.Seed, hash database.PasswordHasher) (*Store, error) {
	s := &Store{
		venues:   make(map[string]*venueState),
		accounts: make(map[string]*entity.Account),
		bookings: make(map[string]*entity.Booking),
		byVenue:  make(map[string][]string),
	}
	if seed == nil {
		return s, nil
	}

	for _, v := range seed.Venues {
		if _, ok := s.venues[v.ID]; ok {
			return nil, fmt.Errorf("duplicate venue %s in seed", v.ID)
		}
		s.venues[v.ID] = &venueState{venue: v}
		s.venueOrder = append(s.venueOrder, v.ID)
	}

	accounts, err := seed.HashedAccounts(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to hash seed passwords: %w", err)
	}
	for i := range accounts {
		if err := s.addAccount(&accounts[i]); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	for i := range seed.Bookings {
		b := seed.Bookings[i]
		if _, ok := s.venues[b.VenueID]; !ok {
			return nil, fmt.Errorf("seed booking %s: %w", b.ID, entity.ErrVenueNotFound)
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = b.CreatedAt
		}
		s.putBooking(&b)
	}

	return s, nil
}

func (s *Store) venue(id string) (*venueState, error) {
	vs, ok := s.venues[id]
	if !ok {
		return nil, entity.ErrVenueNotFound
	}
	return vs, nil
}

// addAccount requires s.mu held for writing, or exclusive access during NewStore.
func (s *Store) addAccount(a *entity.Account) error {
	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return entity.ErrAccountExists
		}
	}
	if _, ok := s.accounts[a.ID]; ok {
		return fmt.Errorf("account %s already exists", a.ID)
	}
	s.accounts[a.ID] = a.Clone()
	s.accountOrder = append(s.accountOrder, a.ID)
	return nil
}

// putBooking requires s.mu held for writing, or exclusive access during NewStore.
func (s *Store) putBooking(b *entity.Booking) {
	s.bookings[b.ID] = b.Clone()
	s.bookingOrder = append(s.bookingOrder, b.ID)
	s.byVenue[b.VenueID] = append(s.byVenue[b.VenueID], b.ID)
}

// occupiedLocked requires the venue lock and s.mu (read or write).
func (s *Store) occupiedLocked(venueID, date string, window entity.TimeWindow) map[int]bool {
	occupied := make(map[int]bool)
	for _, id := range s.byVenue[venueID] {
		b := s.bookings[id]
		if b.HoldsSlot() && b.Date == date && b.Window().Overlaps(window) {
			occupied[b.SlotNumber] = true
		}
	}
	return occupied
}

// freeLocked requires the venue lock and s.mu (read or write).
func (s *Store) freeLocked(vs *venueState, date string, window entity.TimeWindow) []int {
	occupied := s.occupiedLocked(vs.venue.ID, date, window)
	free := make([]int, 0, vs.venue.TotalSlots-len(occupied))
	for slot := 1; slot <= vs.venue.TotalSlots; slot++ {
		if !occupied[slot] {
			free = append(free, slot)
		}
	}
	return free
}
