package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/database"
)

// Seed inserts the demo catalogue; rows that already exist are left untouched.
func Seed(ctx context.Context, db *sql.DB, seed *database.Seed, hash database.PasswordHasher) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	for _, v := range seed.Venues {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO venues (id, name, location, image_url, total_slots, available_slots, price_per_hour)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
			v.ID, v.Name, v.Location, v.ImageURL, v.TotalSlots, v.AvailableSlots, v.PricePerHour,
		)
		if err != nil {
			return fmt.Errorf("failed to seed venue %s: %v", v.ID, err)
		}
	}

	accounts, err := seed.HashedAccounts(hash)
	if err != nil {
		return fmt.Errorf("failed to hash seed passwords: %w", err)
	}
	now := time.Now()
	for _, a := range accounts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, name, email, password_hash, is_admin, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT DO NOTHING`,
			a.ID, a.Name, a.Email, a.PasswordHash, a.IsAdmin, now,
		)
		if err != nil {
			return fmt.Errorf("failed to seed account %s: %v", a.ID, err)
		}
	}

	for _, b := range seed.Bookings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (
				id, user_id, venue_id, slot_number, date, start_time, end_time,
				status, qr_code, amount, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING`,
			b.ID, b.UserID, b.VenueID, b.SlotNumber, b.Date, b.StartTime, b.EndTime,
			b.Status, b.QRCode, b.Amount, b.CreatedAt, b.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to seed booking %s: %v", b.ID, err)
		}
	}

	return tx.Commit()
}
