package memory

import (
	"context"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/entity"
)

type venueRepository struct {
	store *Store
}

func NewVenueRepository(store *Store) database.VenueRepository {
	return &venueRepository{store: store}
}

func (r *venueRepository) GetByID(ctx context.Context, id string) (*entity.Venue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vs, err := r.store.venue(id)
	if err != nil {
		return nil, err
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.venue.Clone(), nil
}

func (r *venueRepository) GetAll(ctx context.Context) ([]*entity.Venue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	venues := make([]*entity.Venue, 0, len(r.store.venueOrder))
	for _, id := range r.store.venueOrder {
		vs := r.store.venues[id]
		vs.mu.Lock()
		venues = append(venues, vs.venue.Clone())
		vs.mu.Unlock()
	}
	return venues, nil
}
