package domain

import "time"

// Config is the complete server configuration, loaded once at startup by
// the config manager.
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Reference   ReferenceConfig `mapstructure:"reference"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Logging     LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
}

// ReferenceConfig selects the reference-equation coefficient table. When
// TableFile is empty the built-in GLI-2012 table is used; otherwise the
// YAML file replaces it wholesale, enabling alternate reference
// populations without touching classifier logic.
type ReferenceConfig struct {
	TableFile  string `mapstructure:"table_file"`
	Population string `mapstructure:"population"`
}

// StorageConfig holds paths for the review-feedback database and batch
// report output.
type StorageConfig struct {
	FeedbackDBPath string `mapstructure:"feedback_db_path"`
	OutputDir      string `mapstructure:"output_dir"`
}

// CacheConfig sizes the in-process prediction cache.
type CacheConfig struct {
	PredictionCacheSize int `mapstructure:"prediction_cache_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
