package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "50051", cfg.App.GRPCPort)
	assert.Equal(t, "8080", cfg.App.HTTPPort)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "outbox", cfg.Mail.Mode)
	assert.Equal(t, "mail.outbox", cfg.Mail.OutboxStream)
	assert.Equal(t, 300, cfg.Redis.CacheTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := "DB_DRIVER=sqlite\nDB_NAME=users.db\nHTTP_PORT=9090\nMAIL_MODE=smtp\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600))

	t.Setenv("HTTP_PORT", "9191")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "users.db", cfg.DB.DSN())
	assert.Equal(t, "9191", cfg.App.HTTPPort)
	assert.Equal(t, "smtp", cfg.Mail.Mode)
	assert.Equal(t, "localhost:587", cfg.Mail.SMTPAddr())
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	cfg.App.HTTPPort = cfg.App.GRPCPort
	cfg.DB.Driver = "mysql"
	cfg.Mail.Mode = "pigeon"
	cfg.Mail.Workers = 0

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
	assert.Contains(t, err.Error(), `unsupported DB_DRIVER "mysql"`)
	assert.Contains(t, err.Error(), `unsupported MAIL_MODE "pigeon"`)
	assert.Contains(t, err.Error(), "MAIL_WORKERS must be positive")
}

func TestDSN_Postgres(t *testing.T) {
	c := DatabaseConfig{Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable", c.DSN())

	r := RedisConfig{Host: "cache", Port: "6379"}
	assert.Equal(t, "cache:6379", r.Addr())
}
