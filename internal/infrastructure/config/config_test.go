package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, GeneralBackendPostgres, cfg.GeneralCorpus.Backend)
	assert.True(t, cfg.Resolver.RequireTokenOverlap)
	assert.Equal(t, 0.5, cfg.Resolver.DefaultConfidence)
	assert.Equal(t, 2*time.Second, cfg.Resolver.LookupTimeout)
	assert.Equal(t, 60.0, cfg.Nutrition.ReferenceWeightKg)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, time.Second, cfg.DedupWindow)
	assert.Equal(t, "host=localhost port=5432 user=postgres password= dbname=nutrition sslmode=disable", cfg.Database.ConnString())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_RESOLVER_PARALLEL", "true")
	t.Setenv("GENERAL_CORPUS_BACKEND", GeneralBackendOpenFoodFacts)
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/food")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Resolver.Parallel)
	assert.Equal(t, GeneralBackendOpenFoodFacts, cfg.GeneralCorpus.Backend)
	assert.Equal(t, "postgres://u:p@db:5432/food", cfg.Database.ConnString())
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestLoadConfig_FileWithNutritionDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
nutrition:
  reference_weight_kg: 70
  defaults:
    sodium: 2000
    sugar: 40
queue:
  workers: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("APP_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 70.0, cfg.Nutrition.ReferenceWeightKg)
	assert.Equal(t, map[string]float64{"sodium": 2000, "sugar": 40}, cfg.Nutrition.Defaults)
	assert.Equal(t, 3, cfg.Queue.Workers)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown backend":      {"GENERAL_CORPUS_BACKEND": "mongo"},
		"confidence too large": {"APP_RESOLVER_DEFAULT_CONFIDENCE": "1.5"},
		"zero workers":         {"APP_QUEUE_WORKERS": "0"},
		"missing config file":  {"APP_CONFIG_FILE": "/nonexistent/config.yaml"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
