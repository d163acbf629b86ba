package database

import (
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/entity"
	"github.com/shopspring/decimal"
)

// SeedAccount carries a plaintext password; stores hash it before saving.
type SeedAccount struct {
	Account  entity.Account
	Password string
}

type Seed struct {
	Venues   []entity.Venue
	Accounts []SeedAccount
	Bookings []entity.Booking
}

// DemoSeed is the catalogue the service starts with.
func DemoSeed() *Seed {
	created := func(s string) time.Time {
		t, _ := time.Parse(time.RFC3339, s)
		return t
	}

	return &Seed{
		Venues: []entity.Venue{
			{
				ID:             "mall-1",
				Name:           "Central Plaza",
				Location:       "Downtown",
				ImageURL:       "https://images.unsplash.com/photo-1519567241046-7bc37b86e6a2?q=80&w=2865&auto=format&fit=crop",
				TotalSlots:     200,
				AvailableSlots: 45,
				PricePerHour:   decimal.NewFromInt(5),
			},
			{
				ID:             "mall-2",
				Name:           "Riverside Mall",
				Location:       "Eastside",
				ImageURL:       "https://images.unsplash.com/photo-1581235720704-06d3acfcb36f?q=80&w=2680&auto=format&fit=crop",
				TotalSlots:     150,
				AvailableSlots: 30,
				PricePerHour:   decimal.NewFromInt(4),
			},
			{
				ID:             "mall-3",
				Name:           "Sunset Shopping Center",
				Location:       "Westside",
				ImageURL:       "https://images.unsplash.com/photo-1567449303078-57ad995bd17f?q=80&w=2680&auto=format&fit=crop",
				TotalSlots:     300,
				AvailableSlots: 120,
				PricePerHour:   decimal.NewFromInt(6),
			},
			{
				ID:             "mall-4",
				Name:           "Hillside Galleria",
				Location:       "Northside",
				ImageURL:       "https://images.unsplash.com/photo-1605431010173-fdaf4a11aadc?q=80&w=2592&auto=format&fit=crop",
				TotalSlots:     180,
				AvailableSlots: 75,
				PricePerHour:   decimal.NewFromInt(7),
			},
		},
		Accounts: []SeedAccount{
			{
				Account:  entity.Account{ID: "user-1", Name: "John Doe", Email: "user@example.com"},
				Password: "password123",
			},
			{
				Account:  entity.Account{ID: "admin-1", Name: "Admin User", Email: "admin@example.com", IsAdmin: true},
				Password: "admin123",
			},
		},
		Bookings: []entity.Booking{
			{
				ID:         "booking-1",
				UserID:     "user-1",
				VenueID:    "mall-1",
				SlotNumber: 42,
				Date:       "2025-04-23",
				StartTime:  "10:00",
				EndTime:    "12:00",
				Status:     entity.BookingStatusActive,
				QRCode:     "booking-1",
				Amount:     decimal.NewFromInt(10),
				CreatedAt:  created("2025-04-22T10:30:00Z"),
				UpdatedAt:  created("2025-04-22T10:30:00Z"),
			},
			{
				ID:         "booking-2",
				UserID:     "user-1",
				VenueID:    "mall-2",
				SlotNumber: 15,
				Date:       "2025-04-20",
				StartTime:  "14:00",
				EndTime:    "16:00",
				Status:     entity.BookingStatusCompleted,
				QRCode:     "booking-2",
				Amount:     decimal.NewFromInt(8),
				CreatedAt:  created("2025-04-19T09:15:00Z"),
				UpdatedAt:  created("2025-04-19T09:15:00Z"),
			},
		},
	}
}

// PasswordHasher turns a plaintext password into its stored form.
type PasswordHasher func(password string) (string, error)

// HashedAccounts returns the seed accounts with PasswordHash filled in.
func (s *Seed) HashedAccounts(hash PasswordHasher) ([]entity.Account, error) {
	accounts := make([]entity.Account, 0, len(s.Accounts))
	for _, sa := range s.Accounts {
		h, err := hash(sa.Password)
		if err != nil {
			return nil, err
		}
		a := sa.Account
		a.PasswordHash = h
		accounts = append(accounts, a)
	}
	return accounts, nil
}
