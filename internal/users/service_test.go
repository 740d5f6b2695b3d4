package users

import (
	"context"
	"strings"
	"testing"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	svc := NewService(store, "admin", logger.Discard())
	svc.cost = bcrypt.MinCost
	return svc, store
}

func TestService_CreateAndVerify(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	require.NoError(t, svc.Create(ctx, "bob", "hunter2"))

	hash, err := store.GetHash(ctx, "bob")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	ok, err := svc.Verify(ctx, "bob", "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Verify(ctx, "bob", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Verify(ctx, "nobody", "hunter2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "missing username", password: "pw"},
		{name: "blank username", username: "   ", password: "pw"},
		{name: "missing password", username: "bob"},
		{name: "password too long", username: "bob", password: strings.Repeat("x", 73)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()

			err := svc.Create(context.Background(), tt.username, tt.password)

			assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestService_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	require.NoError(t, svc.Create(ctx, "bob", "pw"))
	err := svc.Create(ctx, "bob", "pw2")

	assert.True(t, apperr.IsKind(err, apperr.KindDuplicate))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestService_Revoke(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	require.NoError(t, svc.Create(ctx, "bob", "pw"))

	require.NoError(t, svc.Revoke(ctx, "bob"))

	err := svc.Revoke(ctx, "bob")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	err = svc.Revoke(ctx, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestService_RevokeAdminRefused(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	require.NoError(t, svc.EnsureAdmin(ctx, "root-pw"))

	err := svc.Revoke(ctx, "admin")

	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = store.GetHash(ctx, "admin")
	assert.NoError(t, err)
}

func TestService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing admin", func(t *testing.T) {
		svc, _ := newTestService()

		require.NoError(t, svc.EnsureAdmin(ctx, "root-pw"))

		ok, err := svc.Verify(ctx, "admin", "root-pw")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("keeps existing password", func(t *testing.T) {
		svc, _ := newTestService()
		require.NoError(t, svc.Create(ctx, "admin", "original"))

		require.NoError(t, svc.EnsureAdmin(ctx, "changed"))

		ok, _ := svc.Verify(ctx, "admin", "original")
		assert.True(t, ok)
	})

	t.Run("no password skips creation", func(t *testing.T) {
		svc, store := newTestService()

		require.NoError(t, svc.EnsureAdmin(ctx, ""))

		names, _ := store.List(ctx)
		assert.Empty(t, names)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	require.NoError(t, svc.Create(ctx, "carol", "pw"))
	require.NoError(t, svc.Create(ctx, "alice", "pw"))

	names, err := svc.List(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, names)
}
