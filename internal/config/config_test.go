package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pft-interpreter-server/internal/domain"
)

func validConfig() *domain.Config {
	return &domain.Config{
		Server: domain.ServerConfig{
			Host:      "127.0.0.1",
			Port:      8080,
			RateLimit: 20,
			RateBurst: 40,
		},
		Reference: domain.ReferenceConfig{
			Population: string(domain.EthnicityCaucasian),
		},
		Storage: domain.StorageConfig{
			FeedbackDBPath: "./data/feedback.db",
			OutputDir:      "./output",
		},
		Cache:   domain.CacheConfig{PredictionCacheSize: 2048},
		Logging: domain.LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	m := &Manager{config: validConfig()}
	assert.NoError(t, m.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantSub string
	}{
		{"zero port", func(c *domain.Config) { c.Server.Port = 0 }, "invalid server port"},
		{"port too large", func(c *domain.Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"zero rate limit", func(c *domain.Config) { c.Server.RateLimit = 0 }, "invalid rate limit"},
		{"unknown population", func(c *domain.Config) { c.Reference.Population = "unknown" }, "unsupported reference population"},
		{"missing db path", func(c *domain.Config) { c.Storage.FeedbackDBPath = "" }, "feedback database path"},
		{"missing output dir", func(c *domain.Config) { c.Storage.OutputDir = "" }, "output directory"},
		{"bad log level", func(c *domain.Config) { c.Logging.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := (&Manager{config: cfg}).Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantSub)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "debug"
	logger := (&Manager{config: cfg}).NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg.Logging.Level = "not-a-level"
	cfg.Logging.Format = "text"
	logger = (&Manager{config: cfg}).NewLogger()
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel(), "unparseable level falls back to info")
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestLoadReferenceTableDefault(t *testing.T) {
	m := &Manager{config: validConfig()}

	table, err := m.LoadReferenceTable()
	require.NoError(t, err)
	assert.Equal(t, domain.EthnicityCaucasian, table.Population())

	eq, err := table.Lookup(domain.FEV1, domain.Male)
	require.NoError(t, err)
	assert.NotZero(t, eq.Intercept)
}

const testTableYAML = `population: caucasian
equations:
  FEV1:
    M:
      intercept: -7.9
      ln_height: 1.9
      ln_age: -0.18
      cv_base: 0.12
      spline:
        - {age: 3, value: -0.09}
        - {age: 95, value: -0.075}
      cv_age:
        - {age: 3, value: 0.05}
        - {age: 95, value: 0.055}
    F:
      intercept: -7.3
      ln_height: 1.7
      ln_age: -0.16
      cv_base: 0.12
      spline:
        - {age: 3, value: -0.09}
        - {age: 95, value: -0.075}
      cv_age:
        - {age: 3, value: 0.05}
        - {age: 95, value: 0.055}
  FVC:
    M:
      intercept: -8.3
      ln_height: 2.0
      ln_age: -0.17
      cv_base: 0.11
      spline:
        - {age: 3, value: -0.09}
        - {age: 95, value: -0.075}
      cv_age:
        - {age: 3, value: 0.05}
        - {age: 95, value: 0.055}
    F:
      intercept: -7.9
      ln_height: 1.9
      ln_age: -0.15
      cv_base: 0.11
      spline:
        - {age: 3, value: -0.09}
        - {age: 95, value: -0.075}
      cv_age:
        - {age: 3, value: 0.05}
        - {age: 95, value: 0.055}
`

func TestLoadReferenceTableFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testTableYAML), 0644))

	cfg := validConfig()
	cfg.Reference.TableFile = path

	table, err := (&Manager{config: cfg}).LoadReferenceTable()
	require.NoError(t, err)

	eq, err := table.Lookup(domain.FVC, domain.Female)
	require.NoError(t, err)
	assert.InDelta(t, -7.9, eq.Intercept, 1e-9)
	assert.InDelta(t, 0.11, eq.CVBase, 1e-9)
	assert.Len(t, eq.Spline, 2)
}

func TestLoadReferenceTableMissingFile(t *testing.T) {
	cfg := validConfig()
	cfg.Reference.TableFile = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := (&Manager{config: cfg}).LoadReferenceTable()
	assert.Error(t, err)
}

func TestLoadReferenceTableIncomplete(t *testing.T) {
	// A table missing any (parameter, sex) combination is rejected at load
	// time, not at first lookup.
	partial := `population: caucasian
equations:
  FEV1:
    M:
      intercept: -7.9
      ln_height: 1.9
      ln_age: -0.18
      cv_base: 0.12
      spline:
        - {age: 3, value: -0.09}
        - {age: 95, value: -0.075}
      cv_age:
        - {age: 3, value: 0.05}
        - {age: 95, value: 0.055}
`
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte(partial), 0644))

	cfg := validConfig()
	cfg.Reference.TableFile = path

	_, err := (&Manager{config: cfg}).LoadReferenceTable()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing equation")
}
