package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/entity"
)

const venueColumns = `id, name, location, image_url, total_slots, available_slots, price_per_hour`

type venueRepository struct {
	db *sql.DB
}

func NewVenueRepository(db *sql.DB) database.VenueRepository {
	return &venueRepository{db: db}
}

func scanVenue(row interface{ Scan(...any) error }) (*entity.Venue, error) {
	var v entity.Venue
	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Location,
		&v.ImageURL,
		&v.TotalSlots,
		&v.AvailableSlots,
		&v.PricePerHour,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *venueRepository) GetByID(ctx context.Context, id string) (*entity.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = $1`

	v, err := scanVenue(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return v, nil
}

func (r *venueRepository) GetAll(ctx context.Context) ([]*entity.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query venues: %w", err)
	}
	defer rows.Close()

	var venues []*entity.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		venues = append(venues, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating venues: %w", err)
	}
	return venues, nil
}
