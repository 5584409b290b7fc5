package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"satistakip/backend/internal/cache"
	"satistakip/backend/internal/config"
	"satistakip/backend/internal/domain"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	require.Error(t, validateSecurityConfig(config.Config{AuthSecret: "short"}))
	require.Error(t, validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", SeedAdminPassword: "abc"}))
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	require.NoError(t, validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"}))
	require.NoError(t, validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", SeedAdminPassword: "uzun-bir-parola"}))
}

type usersStub struct {
	users []domain.UserAccount
}

func (u *usersStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	return u.users, nil
}

func (u *usersStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	u.users = append(u.users, user)
	return nil
}

func TestBootstrapAdminCreatesHashedAccountOnce(t *testing.T) {
	users := &usersStub{}
	logger := zaptest.NewLogger(t)

	require.NoError(t, bootstrapAdmin(context.Background(), users, "uzun-bir-parola", logger))
	require.Len(t, users.users, 1)
	assert.Equal(t, domain.RoleAdmin, users.users[0].Role)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.users[0].Password), []byte("uzun-bir-parola")))

	require.NoError(t, bootstrapAdmin(context.Background(), users, "baska-parola", logger))
	assert.Len(t, users.users, 1)
}

func TestBootstrapAdminWithoutPasswordLeavesTableEmpty(t *testing.T) {
	users := &usersStub{}
	require.NoError(t, bootstrapAdmin(context.Background(), users, "", zaptest.NewLogger(t)))
	assert.Empty(t, users.users)
}

func TestNewRateCacheUsesRedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, closeFn := newRateCache(context.Background(), config.Config{RedisAddr: mr.Addr()}, zaptest.NewLogger(t))
	require.NotNil(t, closeFn)
	t.Cleanup(func() { _ = closeFn() })
	assert.IsType(t, &cache.RedisRateCache{}, rc)
}

func TestNewRateCacheFallsBackToMemoryWhenRedisIsDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rc, closeFn := newRateCache(ctx, config.Config{RedisAddr: addr}, zaptest.NewLogger(t))
	assert.Nil(t, closeFn)
	assert.IsType(t, &cache.MemoryRateCache{}, rc)
}

func TestNewRateCacheWithoutRedisAddr(t *testing.T) {
	rc, closeFn := newRateCache(context.Background(), config.Config{}, zaptest.NewLogger(t))
	assert.Nil(t, closeFn)
	assert.IsType(t, &cache.MemoryRateCache{}, rc)
}
