package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	venueKeyPrefix = "venue:"
	venuesAllKey   = "venues:all"
)

// VenueCache is a read-through cache in front of a VenueRepository.
// Redis failures fall back to the underlying repository.
type VenueCache struct {
	next   database.VenueRepository
	client redis.Cmdable
	ttl    time.Duration
}

func NewVenueCache(next database.VenueRepository, client redis.Cmdable, ttl time.Duration) *VenueCache {
	return &VenueCache{
		next:   next,
		client: client,
		ttl:    ttl,
	}
}

func venueKey(id string) string {
	return venueKeyPrefix + id
}

func (c *VenueCache) GetByID(ctx context.Context, id string) (*entity.Venue, error) {
	var venue entity.Venue
	if c.get(ctx, venueKey(id), &venue) {
		return &venue, nil
	}

	v, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.set(ctx, venueKey(id), v)
	return v, nil
}

func (c *VenueCache) GetAll(ctx context.Context) ([]*entity.Venue, error) {
	var venues []*entity.Venue
	if c.get(ctx, venuesAllKey, &venues) {
		return venues, nil
	}

	venues, err := c.next.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	c.set(ctx, venuesAllKey, venues)
	return venues, nil
}

// Invalidate drops the cached venue and the cached listing.
func (c *VenueCache) Invalidate(ctx context.Context, venueID string) error {
	return c.client.Del(ctx, venueKey(venueID), venuesAllKey).Err()
}

func (c *VenueCache) get(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).WithField("key", key).Warn("venue cache read failed")
		}
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("venue cache entry is corrupt")
		return false
	}
	return true
}

func (c *VenueCache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("venue cache write failed")
	}
}
