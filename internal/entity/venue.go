package entity

import "github.com/shopspring/decimal"

type Venue struct {
	ID             string          `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	Location       string          `json:"location" db:"location"`
	ImageURL       string          `json:"image_url" db:"image_url"`
	TotalSlots     int             `json:"total_slots" db:"total_slots"`
	AvailableSlots int             `json:"available_slots" db:"available_slots"`
	PricePerHour   decimal.Decimal `json:"price_per_hour" db:"price_per_hour"`
}

func (v *Venue) Clone() *Venue {
	c := *v
	return &c
}

// Reserve takes one unit of capacity.
func (v *Venue) Reserve() error {
	if v.AvailableSlots <= 0 {
		return ErrNoCapacity
	}
	v.AvailableSlots--
	return nil
}

// Release returns one unit of capacity, clamped at TotalSlots.
func (v *Venue) Release() {
	if v.AvailableSlots < v.TotalSlots {
		v.AvailableSlots++
	}
}

func (v *Venue) HasSlot(slot int) bool {
	return slot >= 1 && slot <= v.TotalSlots
}

// Price returns the amount charged for the given number of hours.
func (v *Venue) Price(hours int) decimal.Decimal {
	return v.PricePerHour.Mul(decimal.NewFromInt(int64(hours)))
}
