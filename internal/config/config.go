package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Tree sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Ingest   IngestConfig
	Query    QueryConfig
	Database DatabaseConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server and process configuration.
type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// IngestConfig controls where the catalog is loaded from and how.
type IngestConfig struct {
	Source      string
	File        string
	Workers     int
	SkipInvalid bool
}

// QueryConfig controls species statistics lookups.
type QueryConfig struct {
	CacheTTL time.Duration
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration through v, so callers can bind command-line
// flags onto the same keys before loading. Bound flags take precedence over
// environment variables.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("PORT"),
			Env:      v.GetString("ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Ingest: IngestConfig{
			Source:      strings.ToLower(strings.TrimSpace(v.GetString("TREES_SOURCE"))),
			File:        v.GetString("TREES_FILE"),
			Workers:     v.GetInt("INGEST_WORKERS"),
			SkipInvalid: v.GetBool("INGEST_SKIP_INVALID"),
		},
		Query: QueryConfig{
			CacheTTL: v.GetDuration("QUERY_CACHE_TTL"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("TREES_SOURCE", SourceCSV)
	v.SetDefault("TREES_FILE", "data/2015_Street_Tree_Census.csv")
	v.SetDefault("INGEST_WORKERS", 4)
	v.SetDefault("INGEST_SKIP_INVALID", false)
	v.SetDefault("QUERY_CACHE_TTL", "5m")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "streettrees")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
}

// Validate checks that required configuration is present and valid.
// Database settings are only checked when trees are read from Postgres.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Ingest.Source {
	case SourceCSV:
		if c.Ingest.File == "" {
			return fmt.Errorf("TREES_FILE is required when TREES_SOURCE is %s", SourceCSV)
		}
	case SourcePostgres:
		if err := c.Database.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("TREES_SOURCE must be %q or %q, got %q", SourceCSV, SourcePostgres, c.Ingest.Source)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be at least 1")
	}

	if c.Query.CacheTTL < 0 {
		return fmt.Errorf("QUERY_CACHE_TTL must be non-negative")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return nil
}

func (d DatabaseConfig) validate() error {
	if d.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if d.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if d.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if d.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if d.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if d.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if d.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if d.PoolMin > d.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}
	return nil
}

// UsesDatabase reports whether the configured tree source is Postgres.
func (c *Config) UsesDatabase() bool {
	return c.Ingest.Source == SourcePostgres
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
