package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Outcomes OutcomesConfig `mapstructure:"outcomes"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Advisory AdvisoryConfig `mapstructure:"advisory"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig represents catalog database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// OutcomesConfig selects the outcome-assessment store backend. The SQLite
// backend exists for single-clinic and offline intake deployments.
type OutcomesConfig struct {
	Backend    string `mapstructure:"backend"` // postgres | sqlite
	SQLitePath string `mapstructure:"sqlite_path"`
}

// CacheConfig represents catalog cache configuration
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	MemoryTTL   time.Duration `mapstructure:"memory_ttl"`
	RedisTTL    time.Duration `mapstructure:"redis_ttl"`
	MaxEntries  int           `mapstructure:"max_entries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// AdvisoryConfig represents the safety-note phrasing collaborator
// configuration. The engine functions fully with Enabled=false.
type AdvisoryConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"` // requests per second
	RedisURL  string        `mapstructure:"redis_url"`  // phrase cache, optional
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
