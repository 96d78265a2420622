package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds server and client settings for restaurant-finder.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Yelp     YelpConfig     `yaml:"yelp"`
	Client   ClientConfig   `yaml:"client"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig selects the SQL backend.
// Driver is "sqlite3" (DSN is a file path) or "postgres" (DSN is a connection URL).
// An empty MigrationsDir means the bundled directory for the driver.
type DatabaseConfig struct {
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	MigrationsDir string `yaml:"migrations_dir,omitempty"`
}

// CacheConfig configures the business detail cache. Type "none" disables it.
type CacheConfig struct {
	Type          string `yaml:"type"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	BusinessTTL   string `yaml:"business_ttl"`
}

type YelpConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	APIBaseURL string `yaml:"api_base_url"`
	StateFile  string `yaml:"state_file"`
	Timeout    string `yaml:"timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "./restaurant_finder.db",
		},
		Cache: CacheConfig{
			Type:        "redis",
			RedisAddr:   "localhost:6379",
			BusinessTTL: "6h",
		},
		Yelp: YelpConfig{
			BaseURL: "https://api.yelp.com/v3",
			Timeout: "10s",
		},
		Client: ClientConfig{
			APIBaseURL: "http://localhost:8080",
			StateFile:  defaultStateFile(),
			Timeout:    "15s",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".restaurant-finder-session.yaml"
	}
	return filepath.Join(home, ".restaurant-finder", "session.yaml")
}

// Dialect names the migrations subdirectory for the driver.
func (d DatabaseConfig) Dialect() string {
	if d.Driver == "sqlite3" {
		return "sqlite"
	}
	return d.Driver
}

// MigrationsPath is MigrationsDir, or ./database/migrations/<dialect> when unset.
func (d DatabaseConfig) MigrationsPath() string {
	if d.MigrationsDir != "" {
		return d.MigrationsDir
	}
	return filepath.Join(".", "database", "migrations", d.Dialect())
}

// LoadDotEnv loads a .env file into the process environment if one exists.
// Variables already set win over the file.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load reads the YAML file at path on top of the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("YELP_API_KEY"); v != "" {
		c.Yelp.APIKey = v
	}
	if v := os.Getenv("YELP_API_BASE_URL"); v != "" {
		c.Yelp.BaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("CACHE_TYPE"); v != "" {
		c.Cache.Type = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.RedisDB = n
		}
	}
	if v := os.Getenv("RESTAURANT_API_URL"); v != "" {
		c.Client.APIBaseURL = v
	}
	if v := os.Getenv("RESTAURANT_STATE_FILE"); v != "" {
		c.Client.StateFile = v
	}
}

// ValidateServer checks the settings the backend needs to start.
func (c *Config) ValidateServer() error {
	if c.Yelp.APIKey == "" {
		return fmt.Errorf("YELP_API_KEY is not set; add it to the config file or .env")
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is empty")
	}
	if _, err := parseDuration(c.Yelp.Timeout); err != nil {
		return fmt.Errorf("invalid yelp timeout: %w", err)
	}
	if _, err := parseDuration(c.Cache.BusinessTTL); err != nil {
		return fmt.Errorf("invalid cache business_ttl: %w", err)
	}
	return nil
}

// ValidateClient checks the settings the terminal client needs.
func (c *Config) ValidateClient() error {
	if c.Client.APIBaseURL == "" {
		return fmt.Errorf("client api_base_url is empty")
	}
	if c.Client.StateFile == "" {
		return fmt.Errorf("client state_file is empty")
	}
	if _, err := parseDuration(c.Client.Timeout); err != nil {
		return fmt.Errorf("invalid client timeout: %w", err)
	}
	return nil
}

// YelpTimeout returns the upstream request timeout.
func (c *Config) YelpTimeout() time.Duration {
	d, _ := parseDuration(c.Yelp.Timeout)
	return d
}

// BusinessTTL returns how long business details stay cached.
func (c *Config) BusinessTTL() time.Duration {
	d, _ := parseDuration(c.Cache.BusinessTTL)
	return d
}

// ClientTimeout returns the HTTP timeout used by the terminal client.
func (c *Config) ClientTimeout() time.Duration {
	d, _ := parseDuration(c.Client.Timeout)
	return d
}

// parseDuration treats an empty string as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
