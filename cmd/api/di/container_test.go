package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-onboarding-service/internal/config"
	domain "user-onboarding-service/internal/domain/user"
	"user-onboarding-service/internal/usecase/user"
)

func testConfig(t *testing.T, mr *miniredis.Miniredis) *config.Config {
	t.Helper()

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	cfg.DB.Driver = "sqlite"
	cfg.DB.Name = filepath.Join(t.TempDir(), "users.db")
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = mr.Port()
	cfg.Redis.MaxRetries = -1
	return cfg
}

func TestNewContainer_OutboxMode(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr)
	ctx := context.Background()

	c, err := NewContainer(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, c.Close()) })

	// the welcome mail went out while the service was being built
	entries, err := c.RedisClient.XRange(ctx, cfg.Mail.OutboxStream, "-", "+").Result()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Nil(t, c.MailPool)

	u := &domain.User{Name: "Jane Doe", Email: "jane@example.com"}
	require.NoError(t, c.UserUC.ProcessUser(ctx, u))
	require.NotZero(t, u.ID)

	got, err := c.UserUC.GetUser(ctx, user.GetUserRequest{ID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Email)

	assert.NotNil(t, c.GinHandler)
	assert.NotNil(t, c.RateLimiter)
	assert.Equal(t, c.Registry, c.RouterOpts.Gatherer)
}

func TestNewContainer_SMTPMode(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr)
	cfg.Mail.Mode = "smtp"
	cfg.Mail.SMTPHost = "127.0.0.1"
	cfg.Mail.SMTPPort = "1"
	cfg.Mail.Workers = 1

	// delivery is asynchronous, so an unreachable relay does not block startup
	c, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, c.MailPool)

	assert.NoError(t, c.Close())
	assert.False(t, mr.Exists(cfg.Mail.OutboxStream))
}

func TestNewContainer_WelcomeFailureAbortsStartup(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr)

	// XADD on a string key fails with WRONGTYPE
	require.NoError(t, mr.Set(cfg.Mail.OutboxStream, "occupied"))

	_, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "welcome")
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr)
	cfg.Mail.Mode = "fax"

	_, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}
