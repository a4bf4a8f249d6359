package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromarket/agromarket-backend/pkg/config"
	redisclient "github.com/agromarket/agromarket-backend/pkg/redis"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	raw := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = raw.Close() })

	manager, err := NewManager(redisclient.Wrap(raw), config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	require.NoError(t, err)
	return manager, srv
}

func TestManagerGenerateAndRotate(t *testing.T) {
	manager, srv := newTestManager(t)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "access-123")
	require.NoError(t, err)
	stored, err := srv.Get("agro:session:access:access-123")
	require.NoError(t, err)
	assert.Equal(t, digest(token), stored)
	assert.NotContains(t, stored, token)
	assert.Equal(t, time.Hour, srv.TTL("agro:session:access:access-123"))

	_, _, err = manager.Rotate(ctx, "access-123", "wrong")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	newAccessID, newToken, err := manager.Rotate(ctx, "access-123", token)
	require.NoError(t, err)
	assert.NotEqual(t, "access-123", newAccessID)
	assert.False(t, srv.Exists("agro:session:access:access-123"))

	ok, err := manager.HasSession(ctx, newAccessID)
	require.NoError(t, err)
	assert.True(t, ok)
	stored, err = srv.Get("agro:session:access:" + newAccessID)
	require.NoError(t, err)
	assert.Equal(t, digest(newToken), stored)

	_, _, err = manager.Rotate(ctx, "access-123", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestManagerRotateIsSingleUse(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "access-race")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := manager.Rotate(ctx, "access-race", token); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestManagerRevoke(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	_, err := manager.Generate(ctx, "access-1")
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, "access-1"))

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, manager.Revoke(ctx, " "), ErrAccessIDRequired)
}

func TestNewManagerValidatesTTL(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{})
	assert.Error(t, err)

	_, err = NewManager(&redisclient.Client{}, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30})
	assert.Error(t, err)
}
