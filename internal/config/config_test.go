package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rehab-triage-engine/internal/domain"
)

func validConfig() *domain.Config {
	return &domain.Config{
		Server: domain.ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: domain.DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "rehab_triage",
			Username: "postgres",
			SSLMode:  "disable",
		},
		Outcomes: domain.OutcomesConfig{
			Backend:    "postgres",
			SQLitePath: "data/outcomes.db",
		},
		Logging: domain.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*domain.Config)
		wantErr string
	}{
		{
			name:   "valid configuration",
			modify: func(c *domain.Config) {},
		},
		{
			name:    "invalid port",
			modify:  func(c *domain.Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "missing database host",
			modify:  func(c *domain.Config) { c.Database.Host = "" },
			wantErr: "database host is required",
		},
		{
			name:    "missing database name",
			modify:  func(c *domain.Config) { c.Database.Database = "" },
			wantErr: "database name is required",
		},
		{
			name:    "missing database username",
			modify:  func(c *domain.Config) { c.Database.Username = "" },
			wantErr: "database username is required",
		},
		{
			name:    "unknown outcomes backend",
			modify:  func(c *domain.Config) { c.Outcomes.Backend = "mysql" },
			wantErr: "invalid outcomes backend",
		},
		{
			name: "sqlite backend requires a path",
			modify: func(c *domain.Config) {
				c.Outcomes.Backend = "sqlite"
				c.Outcomes.SQLitePath = ""
			},
			wantErr: "sqlite outcome store requires a path",
		},
		{
			name: "sqlite backend with path is valid",
			modify: func(c *domain.Config) {
				c.Outcomes.Backend = "sqlite"
			},
		},
		{
			name: "advisory enabled without base URL",
			modify: func(c *domain.Config) {
				c.Advisory.Enabled = true
			},
			wantErr: "advisory phrasing enabled without a base URL",
		},
		{
			name: "advisory enabled with base URL is valid",
			modify: func(c *domain.Config) {
				c.Advisory.Enabled = true
				c.Advisory.BaseURL = "https://phrasing.internal"
			},
		},
		{
			name:    "invalid log level",
			modify:  func(c *domain.Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			m := &Manager{config: cfg}

			err := m.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestGetDatabaseConnectionString(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Password = "secret"
	m := &Manager{config: cfg}

	got := m.GetDatabaseConnectionString()
	assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=rehab_triage sslmode=disable", got)
}

func TestConfigGetters(t *testing.T) {
	cfg := validConfig()
	m := &Manager{config: cfg}

	assert.Equal(t, cfg, m.GetConfig())
	assert.Equal(t, &cfg.Database, m.GetDatabaseConfig())
	assert.Equal(t, &cfg.Server, m.GetServerConfig())
	assert.Equal(t, &cfg.Cache, m.GetCacheConfig())
	assert.Equal(t, &cfg.Advisory, m.GetAdvisoryConfig())
}
