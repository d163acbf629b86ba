package entity

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusActive, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	VenueID    string          `json:"venue_id" db:"venue_id"`
	SlotNumber int             `json:"slot_number" db:"slot_number"`
	Date       string          `json:"date" db:"date"`
	StartTime  string          `json:"start_time" db:"start_time"`
	EndTime    string          `json:"end_time" db:"end_time"`
	Status     BookingStatus   `json:"status" db:"status"`
	QRCode     string          `json:"qr_code" db:"qr_code"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// HoldsSlot reports whether the booking currently occupies one unit of venue capacity.
func (b *Booking) HoldsSlot() bool {
	return b.Status == BookingStatusActive && b.SlotNumber > 0
}

func (b *Booking) Window() TimeWindow {
	return TimeWindow{Start: b.StartTime, End: b.EndTime}
}

// EndsBefore reports whether the booking window is fully in the past at now.
func (b *Booking) EndsBefore(now time.Time) bool {
	end, err := time.ParseInLocation(DateLayout+" "+ClockLayout, b.Date+" "+b.EndTime, now.Location())
	if err != nil {
		return false
	}
	return !end.After(now)
}

func (b *Booking) Clone() *Booking {
	c := *b
	return &c
}

// BookingPeriod selects bookings by date relative to today.
type BookingPeriod string

const (
	BookingPeriodPast     BookingPeriod = "past"
	BookingPeriodUpcoming BookingPeriod = "upcoming"
)

func (p BookingPeriod) Valid() bool {
	return p == BookingPeriodPast || p == BookingPeriodUpcoming
}

// BookingFilter narrows booking listings; zero fields match everything.
// Today is the reference date for When and is set by the service, not the caller.
type BookingFilter struct {
	VenueID string
	UserID  string
	Status  BookingStatus
	Date    string
	When    BookingPeriod
	Today   string
	Search  string
}

// Matches applies the filter to one booking. Search matches a substring of
// the booking id or the slot number, case-insensitively.
func (f BookingFilter) Matches(b *Booking) bool {
	if f.VenueID != "" && b.VenueID != f.VenueID {
		return false
	}
	if f.UserID != "" && b.UserID != f.UserID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	switch f.When {
	case BookingPeriodPast:
		if b.Date >= f.Today {
			return false
		}
	case BookingPeriodUpcoming:
		if b.Date < f.Today {
			return false
		}
	}
	if f.Search != "" {
		search := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(b.ID), search) &&
			!strings.Contains(strconv.Itoa(b.SlotNumber), search) {
			return false
		}
	}
	return true
}

type BookingEventType string

const (
	BookingEventCreated   BookingEventType = "booking.created"
	BookingEventCheckedIn BookingEventType = "booking.checked_in"
	BookingEventCompleted BookingEventType = "booking.completed"
	BookingEventCancelled BookingEventType = "booking.cancelled"
)

// BookingEvent is the lifecycle record sent to the event log.
type BookingEvent struct {
	Type           BookingEventType `json:"type"`
	BookingID      string           `json:"booking_id"`
	VenueID        string           `json:"venue_id"`
	UserID         string           `json:"user_id"`
	SlotNumber     int              `json:"slot_number"`
	AvailableSlots int              `json:"available_slots"`
	Reason         string           `json:"reason,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}
