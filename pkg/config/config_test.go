package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsForMemoryStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AUTH_PROVIDER", "jwt")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("POLL_INTERVAL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "vendorchat:events", cfg.RedisChannel)
	assert.Equal(t, 30, cfg.MessageRatePerMinute)
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsUnknownDrivers(t *testing.T) {
	cfg := &Config{StoreDriver: "mongo", AuthProvider: AuthProviderJWT, JWTSecret: "x", MessageRatePerMinute: 1, MessageRateBurst: 1}
	assert.ErrorContains(t, cfg.Validate(), "STORE_DRIVER")

	cfg.StoreDriver = StoreDriverMemory
	cfg.AuthProvider = "saml"
	assert.ErrorContains(t, cfg.Validate(), "AUTH_PROVIDER")

	cfg.AuthProvider = AuthProviderFirebase
	assert.ErrorContains(t, cfg.Validate(), "FIREBASE_PROJECT_ID")
}
