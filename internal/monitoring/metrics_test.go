package monitoring

import (
	"context"
	"testing"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/database/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_CollectSetsVenueGauges(t *testing.T) {
	store, err := memory.NewStore(database.DemoSeed(), func(pw string) (string, error) { return pw, nil })
	require.NoError(t, err)

	m := NewMonitor(memory.NewVenueRepository(store))
	require.NoError(t, m.Collect(context.Background()))

	assert.Equal(t, 45.0, testutil.ToFloat64(venueAvailability.WithLabelValues("mall-1")))
	assert.Equal(t, 75.0, testutil.ToFloat64(venueAvailability.WithLabelValues("mall-4")))
}

func TestTrackBookingOperation(t *testing.T) {
	c := bookingOperations.WithLabelValues("create", "mall-9", "ok")
	before := testutil.ToFloat64(c)

	TrackBookingOperation("create", "mall-9", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
