package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/entity"
)

const bookingColumns = `
	id, user_id, venue_id, slot_number, date, start_time, end_time,
	status, qr_code, amount, created_at, updated_at`

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) database.BookingRepository {
	return &bookingRepository{db: db}
}

func scanBooking(row interface{ Scan(...any) error }) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.VenueID,
		&b.SlotNumber,
		&b.Date,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.QRCode,
		&b.Amount,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) beginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	return tx, nil
}

// lockVenue takes the venue row lock that serializes every capacity change for the venue.
func lockVenue(ctx context.Context, tx *sql.Tx, venueID, mode string) (*entity.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = $1 ` + mode

	v, err := scanVenue(tx.QueryRowContext(ctx, query, venueID))
	if err == sql.ErrNoRows {
		return nil, entity.ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock venue: %v", err)
	}
	return v, nil
}

// lockBooking locks the booking's venue first and then the booking row, the same
// order Create uses, so concurrent lifecycle calls cannot deadlock.
func lockBooking(ctx context.Context, tx *sql.Tx, id string) (*entity.Booking, *entity.Venue, error) {
	var venueID string
	err := tx.QueryRowContext(ctx, `SELECT venue_id FROM bookings WHERE id = $1`, id).Scan(&venueID)
	if err == sql.ErrNoRows {
		return nil, nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get booking venue: %v", err)
	}

	venue, err := lockVenue(ctx, tx, venueID, "FOR UPDATE")
	if err != nil {
		return nil, nil, err
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	b, err := scanBooking(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock booking: %v", err)
	}
	return b, venue, nil
}

func occupiedSlots(ctx context.Context, tx *sql.Tx, venueID, date string, window entity.TimeWindow) (map[int]bool, error) {
	query := `
		SELECT slot_number
		FROM bookings
		WHERE venue_id = $1 AND date = $2 AND status = 'active' AND slot_number > 0
		  AND start_time < $4 AND $3 < end_time
	`

	rows, err := tx.QueryContext(ctx, query, venueID, date, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query occupied slots: %v", err)
	}
	defer rows.Close()

	occupied := make(map[int]bool)
	for rows.Next() {
		var slot int
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %v", err)
		}
		occupied[slot] = true
	}
	return occupied, rows.Err()
}

func freeSlots(total int, occupied map[int]bool) []int {
	free := make([]int, 0, total)
	for slot := 1; slot <= total; slot++ {
		if !occupied[slot] {
			free = append(free, slot)
		}
	}
	return free
}

// Create creates a new booking with transaction to ensure data consistency
func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	venue, err := lockVenue(ctx, tx, booking.VenueID, "FOR UPDATE")
	if err != nil {
		return err
	}

	if booking.SlotNumber > 0 && booking.Status == entity.BookingStatusActive {
		if !venue.HasSlot(booking.SlotNumber) {
			return fmt.Errorf("%w: slot %d is outside 1..%d", entity.ErrInvalidInput, booking.SlotNumber, venue.TotalSlots)
		}

		occupied, err := occupiedSlots(ctx, tx, booking.VenueID, booking.Date, booking.Window())
		if err != nil {
			return err
		}
		if occupied[booking.SlotNumber] {
			return entity.ErrSlotUnavailable
		}
		if venue.AvailableSlots <= 0 {
			return entity.ErrNoCapacity
		}

		_, err = tx.ExecContext(ctx, `UPDATE venues SET available_slots = available_slots - 1 WHERE id = $1`, booking.VenueID)
		if err != nil {
			return fmt.Errorf("failed to hold venue slot: %v", err)
		}
	}

	query := `
		INSERT INTO bookings (
			id, user_id, venue_id, slot_number, date, start_time, end_time,
			status, qr_code, amount, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = tx.ExecContext(ctx, query,
		booking.ID,
		booking.UserID,
		booking.VenueID,
		booking.SlotNumber,
		booking.Date,
		booking.StartTime,
		booking.EndTime,
		booking.Status,
		booking.QRCode,
		booking.Amount,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

// GetByID retrieves a booking by its ID
func (r *bookingRepository) GetByID(ctx context.Context, id string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %v", err)
	}
	return b, nil
}

func (r *bookingRepository) List(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.VenueID != "" {
		add("venue_id = $%d", filter.VenueID)
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Date != "" {
		add("date = $%d", filter.Date)
	}
	switch filter.When {
	case entity.BookingPeriodPast:
		add("date < $%d", filter.Today)
	case entity.BookingPeriodUpcoming:
		add("date >= $%d", filter.Today)
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(LOWER(id) LIKE $%d OR slot_number::text LIKE $%d)", n, n))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	return r.queryBookings(ctx, query, args...)
}

func (r *bookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*entity.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return bookings, nil
}

// FreeSlots reads under a share lock on the venue so no capacity change interleaves.
func (r *bookingRepository) FreeSlots(ctx context.Context, venueID, date string, window entity.TimeWindow) ([]int, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	venue, err := lockVenue(ctx, tx, venueID, "FOR SHARE")
	if err != nil {
		return nil, err
	}

	occupied, err := occupiedSlots(ctx, tx, venueID, date, window)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %v", err)
	}
	return freeSlots(venue.TotalSlots, occupied), nil
}

func (r *bookingRepository) AssignSlot(ctx context.Context, id string, pick database.SlotPicker) (*entity.Booking, bool, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	b, venue, err := lockBooking(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}

	if b.SlotNumber > 0 {
		return b, false, nil
	}
	if b.Status != entity.BookingStatusActive {
		return nil, false, entity.ErrNotActive
	}
	if venue.AvailableSlots <= 0 {
		return nil, false, entity.ErrNoCapacity
	}

	occupied, err := occupiedSlots(ctx, tx, b.VenueID, b.Date, b.Window())
	if err != nil {
		return nil, false, err
	}
	free := freeSlots(venue.TotalSlots, occupied)
	if len(free) == 0 {
		return nil, false, entity.ErrNoCapacity
	}

	slot := pick(free)
	if _, found := slices.BinarySearch(free, slot); !found {
		return nil, false, fmt.Errorf("picked slot %d is not free", slot)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `UPDATE bookings SET slot_number = $1, updated_at = $2 WHERE id = $3`, slot, now, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to assign slot: %v", err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE venues SET available_slots = available_slots - 1 WHERE id = $1`, b.VenueID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hold venue slot: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %v", err)
	}

	b.SlotNumber = slot
	b.UpdatedAt = now
	return b, true, nil
}

func (r *bookingRepository) Release(ctx context.Context, id string, status entity.BookingStatus) (*entity.Booking, error) {
	if status != entity.BookingStatusCompleted && status != entity.BookingStatusCancelled {
		return nil, fmt.Errorf("%w: cannot release into status %q", entity.ErrInvalidInput, status)
	}

	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, _, err := lockBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != entity.BookingStatusActive {
		return nil, entity.ErrNotActive
	}

	held := b.HoldsSlot()
	now := time.Now()

	_, err = tx.ExecContext(ctx, `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`, status, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %v", err)
	}

	if held {
		query := `UPDATE venues SET available_slots = LEAST(available_slots + 1, total_slots) WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, b.VenueID); err != nil {
			return nil, fmt.Errorf("failed to release venue slot: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %v", err)
	}

	b.Status = status
	b.UpdatedAt = now
	return b, nil
}

func (r *bookingRepository) ListOverdue(ctx context.Context, now time.Time) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'active' AND (date < $1 OR (date = $1 AND end_time <= $2))
		ORDER BY date, end_time
	`
	return r.queryBookings(ctx, query, entity.Today(now), now.Format(entity.ClockLayout))
}

func (r *bookingRepository) Stats(ctx context.Context, venueID string) (*entity.BookingStats, error) {
	query := `SELECT status, COUNT(*) FROM bookings WHERE ($1 = '' OR venue_id = $1) GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, venueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking stats: %w", err)
	}
	defer rows.Close()

	stats := &entity.BookingStats{}
	for rows.Next() {
		var (
			status entity.BookingStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan booking stats: %w", err)
		}
		for i := 0; i < count; i++ {
			stats.Add(status)
		}
	}
	return stats, rows.Err()
}
