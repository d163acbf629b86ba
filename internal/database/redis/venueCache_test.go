package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/entity"
	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVenues struct {
	venues map[string]*entity.Venue
	calls  int
}

func (s *stubVenues) GetByID(ctx context.Context, id string) (*entity.Venue, error) {
	s.calls++
	v, ok := s.venues[id]
	if !ok {
		return nil, entity.ErrVenueNotFound
	}
	return v.Clone(), nil
}

func (s *stubVenues) GetAll(ctx context.Context) ([]*entity.Venue, error) {
	s.calls++
	var out []*entity.Venue
	for _, v := range s.venues {
		out = append(out, v.Clone())
	}
	return out, nil
}

func setupVenueCache() (*VenueCache, *stubVenues, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	stub := &stubVenues{venues: map[string]*entity.Venue{
		"mall-1": {
			ID:             "mall-1",
			Name:           "Central Plaza",
			TotalSlots:     200,
			AvailableSlots: 45,
			PricePerHour:   decimal.NewFromInt(5),
		},
	}}
	return NewVenueCache(stub, db, time.Minute), stub, mock
}

func TestVenueCache_MissLoadsAndStores(t *testing.T) {
	cache, stub, mock := setupVenueCache()
	ctx := context.Background()

	data, err := json.Marshal(stub.venues["mall-1"])
	require.NoError(t, err)

	mock.ExpectGet("venue:mall-1").RedisNil()
	mock.ExpectSet("venue:mall-1", data, time.Minute).SetVal("OK")

	v, err := cache.GetByID(ctx, "mall-1")
	require.NoError(t, err)
	assert.Equal(t, 45, v.AvailableSlots)
	assert.Equal(t, 1, stub.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueCache_HitSkipsRepository(t *testing.T) {
	cache, stub, mock := setupVenueCache()
	ctx := context.Background()

	cached := stub.venues["mall-1"].Clone()
	cached.AvailableSlots = 12
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	mock.ExpectGet("venue:mall-1").SetVal(string(data))

	v, err := cache.GetByID(ctx, "mall-1")
	require.NoError(t, err)
	assert.Equal(t, 12, v.AvailableSlots)
	assert.True(t, v.PricePerHour.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 0, stub.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueCache_RedisErrorFallsBack(t *testing.T) {
	cache, stub, mock := setupVenueCache()
	ctx := context.Background()

	mock.ExpectGet("venue:mall-1").SetErr(errors.New("connection refused"))
	mock.ExpectSet("venue:mall-1", mustJSON(t, stub.venues["mall-1"]), time.Minute).SetErr(errors.New("connection refused"))

	v, err := cache.GetByID(ctx, "mall-1")
	require.NoError(t, err)
	assert.Equal(t, "mall-1", v.ID)
	assert.Equal(t, 1, stub.calls)
}

func TestVenueCache_NotFoundIsNotCached(t *testing.T) {
	cache, _, mock := setupVenueCache()

	mock.ExpectGet("venue:nope").RedisNil()

	_, err := cache.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueCache_Invalidate(t *testing.T) {
	cache, _, mock := setupVenueCache()

	mock.ExpectDel("venue:mall-1", "venues:all").SetVal(2)

	require.NoError(t, cache.Invalidate(context.Background(), "mall-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
