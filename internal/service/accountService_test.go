package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/database/memory"
	"github.com/ds124wfegd/parkingbooker/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(t *testing.T) *accountService {
	t.Helper()
	store, err := memory.NewStore(database.DemoSeed(), HashPassword)
	require.NoError(t, err)
	return NewAccountService(memory.NewAccountRepository(store), "jwt-secret", time.Hour).(*accountService)
}

func TestAccountService_RegisterAndLogin(t *testing.T) {
	s := newAccountService(t)
	ctx := context.Background()

	account, err := s.Register(ctx, &RegisterRequest{Name: "Jane", Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(account.ID, "user-"))
	assert.NotEqual(t, "secret1", account.PasswordHash)
	assert.False(t, account.IsAdmin)

	resp, err := s.Login(ctx, &LoginRequest{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, account.ID, resp.Account.ID)

	claims, err := s.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.UserID)
	assert.False(t, claims.IsAdmin)
}

func TestAccountService_RegisterRejects(t *testing.T) {
	s := newAccountService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, &RegisterRequest{Name: "Dup", Email: "USER@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, entity.ErrAccountExists)

	_, err = s.Register(ctx, &RegisterRequest{Name: "", Email: "a@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = s.Register(ctx, &RegisterRequest{Name: "A", Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = s.Register(ctx, &RegisterRequest{Name: "A", Email: "a@example.com", Password: "123"})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestAccountService_LoginFailures(t *testing.T) {
	s := newAccountService(t)
	ctx := context.Background()

	_, err := s.Login(ctx, &LoginRequest{Email: "user@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)

	_, err = s.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)
}

func TestAccountService_AdminClaims(t *testing.T) {
	s := newAccountService(t)

	resp, err := s.Login(context.Background(), &LoginRequest{Email: "admin@example.com", Password: "admin123"})
	require.NoError(t, err)

	claims, err := s.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.True(t, claims.IsAdmin)
}

func TestAccountService_ParseTokenRejects(t *testing.T) {
	s := newAccountService(t)

	resp, err := s.Login(context.Background(), &LoginRequest{Email: "user@example.com", Password: "password123"})
	require.NoError(t, err)

	other := NewAccountService(nil, "other-secret", time.Hour)
	_, err = other.ParseToken(resp.Token)
	assert.ErrorIs(t, err, entity.ErrUnauthorized)

	_, err = s.ParseToken("garbage")
	assert.ErrorIs(t, err, entity.ErrUnauthorized)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.ParseToken(resp.Token)
	assert.ErrorIs(t, err, entity.ErrUnauthorized)
}
