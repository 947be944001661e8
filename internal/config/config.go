// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Search   SearchConfig
	Tasks    TasksConfig
}

type ServerConfig struct {
	Port                string
	HealthPort          string
	GRPCHealthPort      string
	Environment         string
	AutoMigrate         bool
	EnableReflection    bool
	HealthCheckInterval time.Duration
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Timeout  time.Duration
}

type SearchConfig struct {
	URL       string
	IndexName string
	Timeout   time.Duration
	Refresh   string
}

type TasksConfig struct {
	DefaultOwner string
	TimeZone     string
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port:                getEnv("PORT", "4000"),
			HealthPort:          getEnv("HEALTH_PORT", "4001"),
			GRPCHealthPort:      getEnv("GRPC_HEALTH_PORT", "50051"),
			Environment:         getEnv("ENVIRONMENT", "development"),
			AutoMigrate:         getEnvAsBool("AUTO_MIGRATE", true),
			EnableReflection:    getEnvAsBool("ENABLE_REFLECTION", false),
			HealthCheckInterval: getEnvAsDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "tasknest"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			Timeout:  getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),
		},
		Search: SearchConfig{
			URL:       getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			IndexName: getEnv("ELASTICSEARCH_INDEX", "tasks"),
			Timeout:   getEnvAsDuration("ELASTICSEARCH_TIMEOUT", 5*time.Second),
			Refresh:   getEnv("ELASTICSEARCH_REFRESH", ""),
		},
		Tasks: TasksConfig{
			DefaultOwner: getEnv("DEFAULT_OWNER", "default-user"),
			TimeZone:     getEnv("TASKS_TIMEZONE", "Local"),
		},
	}, nil
}

// DSN returns the primary store connection string. DATABASE_URL wins over
// the discrete DB_* settings.
func (c *Config) DSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.DBName, c.Database.SSLMode,
	)
}

// Location resolves Tasks.TimeZone used for calendar-day boundaries.
func (c *Config) Location() (*time.Location, error) {
	if c.Tasks.TimeZone == "" || strings.EqualFold(c.Tasks.TimeZone, "Local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Tasks.TimeZone)
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ValidateConfig checks the loaded values before any connection is opened.
func (c *Config) ValidateConfig() error {
	var errs []string

	for name, port := range map[string]string{
		"PORT":             c.Server.Port,
		"HEALTH_PORT":      c.Server.HealthPort,
		"GRPC_HEALTH_PORT": c.Server.GRPCHealthPort,
	} {
		if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
			errs = append(errs, fmt.Sprintf("%s must be a valid port, got %q", name, port))
		}
	}
	if c.Server.Port == c.Server.HealthPort {
		errs = append(errs, "PORT and HEALTH_PORT must differ")
	}

	if u, err := url.Parse(c.Search.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("ELASTICSEARCH_URL must be an absolute URL, got %q", c.Search.URL))
	}
	if c.Search.IndexName == "" {
		errs = append(errs, "ELASTICSEARCH_INDEX must not be empty")
	}
	switch c.Search.Refresh {
	case "", "true", "false", "wait_for":
	default:
		errs = append(errs, fmt.Sprintf("ELASTICSEARCH_REFRESH must be one of true, false, wait_for, got %q", c.Search.Refresh))
	}
	if c.Search.Timeout <= 0 || c.Database.Timeout <= 0 {
		errs = append(errs, "timeouts must be positive")
	}

	if c.Tasks.DefaultOwner == "" {
		errs = append(errs, "DEFAULT_OWNER must not be empty")
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("TASKS_TIMEZONE is invalid: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Try parsing as duration string (e.g., "15m", "24h")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}

	return defaultValue
}
