package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Security SecurityConfig `yaml:"security"`
	Redis    RedisConfig    `yaml:"redis"`
	Events   EventsConfig   `yaml:"events"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	Type   string       `yaml:"type"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	MySQL  MySQLConfig  `yaml:"mysql"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Charset  string `yaml:"charset"`
}

// JWTConfig holds the signing material for both token kinds. The access and
// refresh secrets must differ and are never written to logs.
type JWTConfig struct {
	AccessSecret  string `yaml:"access_secret"`
	RefreshSecret string `yaml:"refresh_secret"`
	AccessTTL     string `yaml:"access_ttl"`
	RefreshTTL    string `yaml:"refresh_ttl"`
	SessionTTL    string `yaml:"session_ttl"`
	Issuer        string `yaml:"issuer"`
}

type SecurityConfig struct {
	BcryptCost int             `yaml:"bcrypt_cost"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EventsConfig struct {
	AMQPURL string `yaml:"amqp_url"`
	Queue   string `yaml:"queue"`
}

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
	DefaultSessionTTL = 30 * 24 * time.Hour
	DefaultQueue      = "famli.audit"
)

// Load reads the configuration file, an optional .env file and environment variables
func Load(configPath string) (*Config, error) {
	// Values from .env never override variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure data directory exists for SQLite
	if cfg.Database.Type == "sqlite" {
		dataDir := filepath.Dir(cfg.Database.SQLite.Path)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"FAMLI_JWT_SECRET":         &c.JWT.AccessSecret,
		"FAMLI_JWT_REFRESH_SECRET": &c.JWT.RefreshSecret,
		"FAMLI_DB_TYPE":            &c.Database.Type,
		"FAMLI_DB_PATH":            &c.Database.SQLite.Path,
		"FAMLI_MYSQL_HOST":         &c.Database.MySQL.Host,
		"FAMLI_MYSQL_USER":         &c.Database.MySQL.Username,
		"FAMLI_MYSQL_PASSWORD":     &c.Database.MySQL.Password,
		"FAMLI_MYSQL_DATABASE":     &c.Database.MySQL.Database,
		"FAMLI_REDIS_ADDR":         &c.Redis.Addr,
		"FAMLI_AMQP_URL":           &c.Events.AMQPURL,
		"FAMLI_MODE":               &c.Server.Mode,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if port := os.Getenv("FAMLI_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = filepath.Join("data", "famli.db")
	}
	if c.Database.MySQL.Port == 0 {
		c.Database.MySQL.Port = 3306
	}
	if c.Database.MySQL.Charset == "" {
		c.Database.MySQL.Charset = "utf8mb4"
	}
	if c.Security.BcryptCost == 0 {
		c.Security.BcryptCost = 10
	}
	if c.Security.RateLimit.RequestsPerMinute == 0 {
		c.Security.RateLimit.RequestsPerMinute = 20
	}
	if c.Events.Queue == "" {
		c.Events.Queue = DefaultQueue
	}
}

// Validate checks the settings that cannot be defaulted
func (c *Config) Validate() error {
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		return errors.New("jwt access and refresh secrets are required")
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return errors.New("jwt access and refresh secrets must differ")
	}

	for name, value := range map[string]string{
		"access_ttl":  c.JWT.AccessTTL,
		"refresh_ttl": c.JWT.RefreshTTL,
		"session_ttl": c.JWT.SessionTTL,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return fmt.Errorf("invalid jwt %s: %q", name, value)
		}
	}

	switch c.Database.Type {
	case "sqlite":
	case "mysql":
		// Validate MySQL configuration if MySQL is selected
		if c.Database.MySQL.Username == "" {
			return errors.New("MySQL username is required")
		}
		if c.Database.MySQL.Database == "" {
			return errors.New("MySQL database name is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	return nil
}

// AccessTokenTTL returns the access token lifetime, falling back to one hour
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return parseDuration(j.AccessTTL, DefaultAccessTTL)
}

func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return parseDuration(j.RefreshTTL, DefaultRefreshTTL)
}

// SessionLifetime is the absolute lifetime of a stored session row.
func (j JWTConfig) SessionLifetime() time.Duration {
	return parseDuration(j.SessionTTL, DefaultSessionTTL)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
