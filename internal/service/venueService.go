package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/entity"
	"github.com/shopspring/decimal"
)

// Quote is the price of one window at a venue.
type Quote struct {
	VenueID      string          `json:"venue_id"`
	StartTime    string          `json:"start_time"`
	EndTime      string          `json:"end_time"`
	Hours        int             `json:"hours"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
	Amount       decimal.Decimal `json:"amount"`
}

type venueService struct {
	venues   database.VenueRepository
	bookings database.BookingRepository
}

func NewVenueService(venues database.VenueRepository, bookings database.BookingRepository) VenueService {
	return &venueService{
		venues:   venues,
		bookings: bookings,
	}
}

func (s *venueService) GetAllVenues(ctx context.Context) ([]*entity.Venue, error) {
	venues, err := s.venues.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get venues: %w", err)
	}
	return venues, nil
}

func (s *venueService) GetVenue(ctx context.Context, id string) (*entity.Venue, error) {
	return s.venues.GetByID(ctx, id)
}

// GetVenueOccupancy собирает заполненность и статистику броней
func (s *venueService) GetVenueOccupancy(ctx context.Context, id string) (*entity.VenueOccupancy, error) {
	venue, err := s.venues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := s.bookings.Stats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	return entity.NewVenueOccupancy(venue, stats), nil
}

func (s *venueService) Availability(ctx context.Context, venueID, date, startTime, endTime string) ([]int, error) {
	if _, err := entity.ParseDate(date); err != nil {
		return nil, err
	}
	window, err := entity.NewTimeWindow(startTime, endTime)
	if err != nil {
		return nil, err
	}

	free, err := s.bookings.FreeSlots(ctx, venueID, date, window)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("failed to get free slots: %w", err)
	}
	return free, nil
}

func (s *venueService) Quote(ctx context.Context, venueID, startTime, endTime string) (*Quote, error) {
	window, err := entity.NewTimeWindow(startTime, endTime)
	if err != nil {
		return nil, err
	}

	venue, err := s.venues.GetByID(ctx, venueID)
	if err != nil {
		return nil, err
	}

	hours := window.Hours()
	return &Quote{
		VenueID:      venue.ID,
		StartTime:    window.Start,
		EndTime:      window.End,
		Hours:        hours,
		PricePerHour: venue.PricePerHour,
		Amount:       venue.Price(hours),
	}, nil
}

func (s *venueService) TimeSlots() []string {
	return append([]string(nil), entity.TimeSlots...)
}
