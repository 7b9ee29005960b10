package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int           `env:"PV_TEST_PORT" envDefault:"8080"`
	Brokers  []string      `env:"PV_TEST_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	CacheTTL time.Duration `env:"PV_TEST_CACHE_TTL" envDefault:"5m"`
	Secret   string        `env:"PV_TEST_SECRET,required"`
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("PV_TEST_SECRET", "s3cr3t")
	t.Setenv("PV_TEST_BROKERS", "k1:9092,k2:9092")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "s3cr3t", cfg.Secret)
}

func TestLoad_MissingRequired(t *testing.T) {
	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PV_TEST_SECRET")
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("PV_TEST_SECRET", "x")
	t.Setenv("PV_TEST_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_NonPointer(t *testing.T) {
	assert.Error(t, Load(testConfig{}))
}
