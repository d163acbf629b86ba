package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// Venue errors
	ErrVenueNotFound = fmt.Errorf("venue %w", ErrNotFound)
	ErrNoCapacity    = errors.New("no available slots at this venue")

	// Booking errors
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrNotActive       = errors.New("booking is not active")
	ErrExpired         = errors.New("booking date has passed")
	ErrNotToday        = errors.New("booking is not for today")
	ErrSlotUnavailable = errors.New("slot is already taken for this time")

	// QR errors
	ErrInvalidFormat    = errors.New("invalid QR code format")
	ErrInvalidSignature = errors.New("QR code signature does not match")

	// Account errors
	ErrAccountNotFound    = fmt.Errorf("account %w", ErrNotFound)
	ErrAccountExists      = errors.New("account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden operation")
)
