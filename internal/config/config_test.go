package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/shop")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "")
	t.Setenv("FLASH_SALE_TICK", "")
	t.Setenv("CART_LOCK_TTL", "")
	t.Setenv("KAFKA_BROKERS", " kafka1:9092, ,kafka2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, time.Minute, cfg.FlashSaleTick)
	assert.Equal(t, 5*time.Second, cfg.CartLockTTL)
	assert.Equal(t, []string{"kafka1:9092", "kafka2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "commerce.interactions", cfg.KafkaTopic)
	assert.Equal(t, "postgres://u:p@localhost:5432/shop", cfg.DSN())
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/shop")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_PostgresSettingsWithoutURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_DB", "shop")
	t.Setenv("POSTGRES_HOST", "db")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_USER")

	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PORT", "5433")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5433 user=app password=pw dbname=shop sslmode=disable", cfg.DSN())
}

func TestLoad_InvalidTick(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("FLASH_SALE_TICK", "soon")

	_, err := Load()
	require.Error(t, err)
}
