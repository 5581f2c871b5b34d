package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, int64(100), cfg.Sale.AdmissionChunkSize)
	assert.Equal(t, int64(100), cfg.Sale.PurchasableQueueSize)
	assert.Equal(t, 5*time.Minute, cfg.Sale.SessionTTL)
	assert.Equal(t, 1000, cfg.Ingress.Capacity)
	assert.False(t, cfg.Ingress.Distributed)
	// No gateway URL means the payment client runs simulated
	assert.Empty(t, cfg.Payment.BaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ADMISSION_CHUNK_SIZE", "25")
	t.Setenv("SESSION_TTL_SEC", "60")
	t.Setenv("INGRESS_DISTRIBUTED", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, int64(25), cfg.Sale.AdmissionChunkSize)
	assert.Equal(t, time.Minute, cfg.Sale.SessionTTL)
	assert.True(t, cfg.Ingress.Distributed)
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("ADMISSION_CHUNK_SIZE", "not-a-number")

	cfg := Load()
	assert.Equal(t, int64(100), cfg.Sale.AdmissionChunkSize)
}
