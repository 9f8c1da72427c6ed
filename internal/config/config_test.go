package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://localhost/gearguard")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("REDIS_PASSWORD", "redis-pass")
	t.Setenv("RABBITMQ_DSN", "amqp://localhost")
	t.Setenv("EMAIL_SMTP_USERNAME", "noreply@gearguard.io")
	t.Setenv("EMAIL_SMTP_PASSWORD", "smtp-pass")
	t.Setenv("EMAIL_SMTP_HOST", "smtp.gearguard.io")
	t.Setenv("INITIAL_ADMIN_EMAIL", "admin@gearguard.io")
	t.Setenv("INITIAL_ADMIN_PASSWORD", "admin-pass")
	t.Setenv("SEED_USER_PASSWORD", "seed-pass")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 900, cfg.JWT.AccessExpiration)
	assert.Equal(t, 1209600, cfg.JWT.RefreshExpiration)
	assert.Equal(t, "__gearguard_session", cfg.Session.CookieName)
	assert.Equal(t, 465, cfg.Email.SMTP.Port)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}
