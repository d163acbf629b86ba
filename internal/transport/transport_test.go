package transport

import (
	"bytes"
	"errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/database/memory"
	"github.com/ds124wfegd/parkingbooker/internal/service"
	"github.com/ds124wfegd/parkingbooker/internal/worker"
	"github.com/ds124wfegd/parkingbooker/pkg/qrpass"
	"github.com/ds124wfegd/parkingbooker/pkg/queue"
	"github.com/go-redis/redismock/v9"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithDLQ(t, nil)
}

func newTestAPIWithDLQ(t *testing.T, deadLetters DeadLetters) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := memory.NewStore(database.DemoSeed(), service.HashPassword)
	require.NoError(t, err)

	venues := memory.NewVenueRepository(store)
	accounts := memory.NewAccountRepository(store)
	bookings := memory.NewBookingRepository(store)

	now := func() time.Time { return time.Date(2025, 4, 22, 9, 0, 0, 0, time.UTC) }
	accountService := service.NewAccountService(accounts, "jwt-secret", time.Hour)
	venueService := service.NewVenueService(venues, bookings)
	bookingService := service.NewBookingService(bookings, venues, accounts, qrpass.NewCodec("qr-secret"),
		service.WithClock(now))

	router := InitRoutes(
		NewAuthHandler(accountService),
		NewVenueHandler(venueService),
		NewBookingHandler(bookingService),
		NewAdminHandler(deadLetters, worker.NewBookingCleanupWorker(bookingService, time.Minute)),
		RouterOptions{Tokens: accountService, RateLimit: 1000, Burst: 1000, Timeout: 5 * time.Second},
	)
	return &testAPI{t: t, router: router}
}

func (a *testAPI) do(method, path, token string, body any) (*httptest.ResponseRecorder, apiResponse) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (a *testAPI) login(email, password string) string {
	a.t.Helper()
	w, resp := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, resp.Error)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(resp.Data, &login))
	return login.Token
}

func TestHealthAndVenues(t *testing.T) {
	api := newTestAPI(t)

	w, _ := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := api.do(http.MethodGet, "/api/v1/venues", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var venues []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &venues))
	assert.Len(t, venues, 4)

	w, resp = api.do(http.MethodGet, "/api/v1/venues/mall-9", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", resp.Code)

	w, resp = api.do(http.MethodGet, "/api/v1/venues/mall-1/quote?start_time=10:00&end_time=13:00", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var quote map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &quote))
	assert.Equal(t, "15", quote["amount"])
}

func TestAvailability(t *testing.T) {
	api := newTestAPI(t)

	w, resp := api.do(http.MethodGet, "/api/v1/venues/mall-1/availability?date=2025-04-23&start_time=10:00", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 199, resp.Meta["count"])

	w, resp = api.do(http.MethodGet, "/api/v1/venues/mall-9/availability?date=2025-04-23&start_time=10:00", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, resp.Meta["count"])

	w, _ = api.do(http.MethodGet, "/api/v1/venues/mall-1/availability?date=2025-04-23", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = api.do(http.MethodGet, "/api/v1/venues/mall-1/availability?date=2025-04-23&start_time=7:00", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", resp.Code)
}

func TestBookingFlow(t *testing.T) {
	api := newTestAPI(t)
	user := api.login("user@example.com", "password123")
	admin := api.login("admin@example.com", "admin123")

	create := map[string]any{
		"venue_id":    "mall-1",
		"slot_number": 10,
		"date":        "2025-04-23",
		"start_time":  "10:00",
		"end_time":    "12:00",
	}

	w, _ := api.do(http.MethodPost, "/api/v1/bookings", "", create)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp := api.do(http.MethodPost, "/api/v1/bookings", user, create)
	require.Equal(t, http.StatusCreated, w.Code, resp.Error)
	var booking struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
		Amount string `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &booking))
	assert.Equal(t, "user-1", booking.UserID)
	assert.Equal(t, "10", booking.Amount)

	w, resp = api.do(http.MethodPost, "/api/v1/bookings", user, create)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SLOT_UNAVAILABLE", resp.Code)

	w, resp = api.do(http.MethodGet, "/api/v1/venues/mall-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var venue map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &venue))
	assert.EqualValues(t, 44, venue["available_slots"])

	w, resp = api.do(http.MethodGet, "/api/v1/bookings?limit=1", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, resp.Meta["total"])
	assert.Equal(t, true, resp.Meta["has_more"])

	w, resp = api.do(http.MethodGet, "/api/v1/admin/bookings?status=active", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, resp.Meta["total"])

	w, _ = api.do(http.MethodGet, "/api/v1/admin/bookings", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestQRScanFlow(t *testing.T) {
	api := newTestAPI(t)
	user := api.login("user@example.com", "password123")
	admin := api.login("admin@example.com", "admin123")

	w, resp := api.do(http.MethodGet, "/api/v1/bookings/booking-1/qr", user, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	var pass struct {
		Payload string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &pass))

	w, _ = api.do(http.MethodGet, "/api/v1/bookings/booking-1/qr.png", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w, _ = api.do(http.MethodGet, "/api/v1/bookings/booking-1/pass.pdf", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w, resp = api.do(http.MethodPost, "/api/v1/admin/scan/verify", admin, map[string]string{"payload": pass.Payload})
	require.Equal(t, http.StatusOK, w.Code, resp.Error)

	w, resp = api.do(http.MethodPost, "/api/v1/admin/scan/verify", admin, map[string]string{"payload": "garbage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FORMAT", resp.Code)

	// booking-1 is for tomorrow relative to the fixed clock
	w, resp = api.do(http.MethodPost, "/api/v1/admin/scan/checkin", admin, map[string]string{"payload": pass.Payload})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_TODAY", resp.Code)

	w, _ = api.do(http.MethodPost, "/api/v1/bookings/booking-1/cancel", user, map[string]string{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = api.do(http.MethodPost, "/api/v1/admin/scan/verify", admin, map[string]string{"payload": pass.Payload})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_ACTIVE", resp.Code)
}

func TestBookingsOfOtherUsersAreHidden(t *testing.T) {
	api := newTestAPI(t)

	w, resp := api.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Eve", "email": "eve@example.com", "password": "secret12",
	})
	require.Equal(t, http.StatusCreated, w.Code, resp.Error)
	eve := api.login("eve@example.com", "secret12")

	w, resp = api.do(http.MethodGet, "/api/v1/bookings/booking-1", eve, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", resp.Code)

	w, _ = api.do(http.MethodPost, "/api/v1/bookings/booking-1/cancel", eve, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = api.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Eve", "email": "EVE@example.com", "password": "secret12",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ACCOUNT_EXISTS", resp.Code)
}

func TestAdminCheckInAndComplete(t *testing.T) {
	api := newTestAPI(t)
	user := api.login("user@example.com", "password123")
	admin := api.login("admin@example.com", "admin123")

	w, resp := api.do(http.MethodPost, "/api/v1/bookings", user, map[string]any{
		"venue_id": "mall-2", "date": "2025-04-22", "start_time": "10:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, resp.Error)
	var booking struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &booking))

	w, resp = api.do(http.MethodPost, "/api/v1/admin/bookings/"+booking.ID+"/checkin", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	var checkedIn struct {
		SlotNumber int `json:"slot_number"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &checkedIn))
	assert.Greater(t, checkedIn.SlotNumber, 0)

	w, _ = api.do(http.MethodPost, "/api/v1/admin/bookings/"+booking.ID+"/complete", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = api.do(http.MethodPost, "/api/v1/admin/bookings/"+booking.ID+"/complete", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_ACTIVE", resp.Code)

	w, resp = api.do(http.MethodGet, "/api/v1/admin/stats?venue_id=mall-2", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]int
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, 2, stats["completed"])
}

func TestErrorStatus(t *testing.T) {
	status, code := errorStatus(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL", code)
}

func TestBookingListFilters(t *testing.T) {
	api := newTestAPI(t)
	user := api.login("user@example.com", "password123")
	admin := api.login("admin@example.com", "admin123")

	w, resp := api.do(http.MethodGet, "/api/v1/admin/bookings?search=42", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &found))
	require.Len(t, found, 1)
	assert.Equal(t, "booking-1", found[0].ID)

	w, resp = api.do(http.MethodGet, "/api/v1/admin/bookings?date=2025-04-20", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, resp.Meta["total"])

	// fixed clock is 2025-04-22
	w, resp = api.do(http.MethodGet, "/api/v1/bookings?when=upcoming", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &found))
	require.Len(t, found, 1)
	assert.Equal(t, "booking-1", found[0].ID)

	w, resp = api.do(http.MethodGet, "/api/v1/bookings?when=past", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &found))
	require.Len(t, found, 1)
	assert.Equal(t, "booking-2", found[0].ID)

	w, resp = api.do(http.MethodGet, "/api/v1/bookings?when=tomorrow", user, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", resp.Code)
}

func TestDeadLetterRoutes(t *testing.T) {
	client, mock := redismock.NewClientMock()
	api := newTestAPIWithDLQ(t, queue.NewRedisDLQHandler(client, "parking:events:dlq"))
	admin := api.login("admin@example.com", "admin123")

	msg, err := queue.NewMessage("msg-1", "booking.created", "mall-1", map[string]string{"booking_id": "booking-1"})
	require.NoError(t, err)
	failed, err := json.Marshal(queue.FailedMessage{
		Message:  msg,
		Error:    "broker down",
		FailedAt: time.Date(2025, 4, 22, 9, 0, 0, 0, time.UTC),
		Attempts: 3,
	})
	require.NoError(t, err)

	mock.ExpectZRevRange("parking:events:dlq", 0, 9).SetVal([]string{string(failed)})
	w, resp := api.do(http.MethodGet, "/api/v1/admin/events/dlq?limit=10", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	assert.EqualValues(t, 1, resp.Meta["count"])

	mock.ExpectZCard("parking:events:dlq").SetVal(1)
	mock.ExpectZRangeWithScores("parking:events:dlq", 0, 0).SetVal([]redis.Z{{Score: 1745312400, Member: string(failed)}})
	mock.ExpectZRevRangeWithScores("parking:events:dlq", 0, 0).SetVal([]redis.Z{{Score: 1745312400, Member: string(failed)}})
	w, resp = api.do(http.MethodGet, "/api/v1/admin/events/dlq/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	var stats queue.DLQStats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.EqualValues(t, 1, stats.QueueSize)

	mock.ExpectZCard("parking:events:dlq").SetVal(1)
	mock.ExpectDel("parking:events:dlq").SetVal(1)
	w, resp = api.do(http.MethodDelete, "/api/v1/admin/events/dlq", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	var purged map[string]int64
	require.NoError(t, json.Unmarshal(resp.Data, &purged))
	assert.EqualValues(t, 1, purged["removed"])

	mock.ExpectZRevRange("parking:events:dlq", 0, 49).SetErr(errors.New("connection refused"))
	w, resp = api.do(http.MethodGet, "/api/v1/admin/events/dlq", admin, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL", resp.Code)

	w, _ = api.do(http.MethodGet, "/api/v1/admin/events/dlq/stats", api.login("user@example.com", "password123"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadLetterRoutesWithoutRedis(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login("admin@example.com", "admin123")

	w, resp := api.do(http.MethodGet, "/api/v1/admin/events/dlq", admin, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "UNAVAILABLE", resp.Code)

	w, _ = api.do(http.MethodDelete, "/api/v1/admin/events/dlq", admin, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWorkerStatsRoute(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login("admin@example.com", "admin123")

	w, resp := api.do(http.MethodGet, "/api/v1/admin/worker/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, "booking_cleanup", stats["worker_type"])
	assert.Equal(t, "1m0s", stats["interval"])
	assert.EqualValues(t, 0, stats["runs"])
}
