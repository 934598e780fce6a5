package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SCAN_TIMEOUT", "")
	t.Setenv("MAIL_SEND_DELAY", "")
	t.Setenv("ENABLE_METRICS", "")

	cfg := LoadConfig()

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ScanTimeout)
	assert.Equal(t, 600*time.Millisecond, cfg.MailSendDelay)
	assert.Equal(t, int64(5), cfg.MailBreakerThreshold)
	assert.True(t, cfg.EnableMetrics)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SCAN_TIMEOUT", "2s")
	t.Setenv("SCAN_RATE_LIMIT", "30")
	t.Setenv("ENABLE_METRICS", "false")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.ScanTimeout)
	assert.Equal(t, 30, cfg.ScanRateLimit)
	assert.False(t, cfg.EnableMetrics)
}

func TestGetEnvAsDuration_Malformed(t *testing.T) {
	t.Setenv("BROKEN_DURATION", "soon")

	assert.Equal(t, 3*time.Second, getEnvAsDuration("BROKEN_DURATION", "3s"))
}

func TestGetEnvAsInt_Malformed(t *testing.T) {
	t.Setenv("BROKEN_INT", "ten")

	assert.Equal(t, 10, getEnvAsInt("BROKEN_INT", 10))
}
