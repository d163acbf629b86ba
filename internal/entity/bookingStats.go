package entity

import "fmt"

// BookingStats содержит счетчики бронирований по статусам
type BookingStats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

func (s *BookingStats) Add(status BookingStatus) {
	s.Total++
	switch status {
	case BookingStatusActive:
		s.Active++
	case BookingStatusCompleted:
		s.Completed++
	case BookingStatusCancelled:
		s.Cancelled++
	}
}

// VenueOccupancy describes how full a venue is right now.
type VenueOccupancy struct {
	Venue           *Venue        `json:"venue"`
	Bookings        *BookingStats `json:"bookings"`
	OccupiedSlots   int           `json:"occupied_slots"`
	UtilizationRate float64       `json:"utilization_rate"`
}

// NewVenueOccupancy derives occupancy from the venue counter.
func NewVenueOccupancy(v *Venue, stats *BookingStats) *VenueOccupancy {
	occupied := v.TotalSlots - v.AvailableSlots
	rate := 0.0
	if v.TotalSlots > 0 {
		rate = float64(occupied) / float64(v.TotalSlots)
	}
	return &VenueOccupancy{Venue: v, Bookings: stats, OccupiedSlots: occupied, UtilizationRate: rate}
}

func (o *VenueOccupancy) String() string {
	return fmt.Sprintf("Venue: %s, Occupied: %d/%d, Utilization: %.1f%%",
		o.Venue.Name, o.OccupiedSlots, o.Venue.TotalSlots, o.UtilizationRate*100)
}

// IsNearlyFull проверяет, осталось ли меньше 10% свободных мест
func (o *VenueOccupancy) IsNearlyFull() bool {
	return o.UtilizationRate >= 0.9
}
