package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"YELP_API_KEY", "YELP_API_BASE_URL", "PORT", "DATABASE_DRIVER", "DATABASE_URL",
		"CACHE_TYPE", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "RESTAURANT_API_URL", "RESTAURANT_STATE_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, "https://api.yelp.com/v3", cfg.Yelp.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.ClientTimeout())
	assert.Equal(t, 6*time.Hour, cfg.BusinessTTL())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Port = "9090"
	cfg.Yelp.APIKey = "yelp-key"
	cfg.Cache.Type = "none"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", loaded.Server.Port)
	assert.Equal(t, "yelp-key", loaded.Yelp.APIKey)
	assert.Equal(t, "none", loaded.Cache.Type)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("YELP_API_KEY", "env-key")
	t.Setenv("PORT", "3001")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/restaurants")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("RESTAURANT_API_URL", "http://api.local")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Yelp.APIKey)
	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/restaurants", cfg.Database.DSN)
	assert.Equal(t, 2, cfg.Cache.RedisDB)
	assert.Equal(t, "http://api.local", cfg.Client.APIBaseURL)
	assert.Equal(t, filepath.Join("database", "migrations", "postgres"), cfg.Database.MigrationsPath())
}

func TestDatabaseConfig_MigrationsPath(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{"sqlite default", DatabaseConfig{Driver: "sqlite3"}, filepath.Join("database", "migrations", "sqlite")},
		{"postgres default", DatabaseConfig{Driver: "postgres"}, filepath.Join("database", "migrations", "postgres")},
		{"explicit dir wins", DatabaseConfig{Driver: "postgres", MigrationsDir: "/srv/migrations"}, "/srv/migrations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.MigrationsPath())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("YELP_API_KEY")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("YELP_API_KEY=from-dotenv\n"), 0o600))

	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { os.Unsetenv("YELP_API_KEY") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Yelp.APIKey)
}

func TestLoadDotEnv_MissingFileIsIgnored(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestConfig_ValidateServer(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.ValidateServer(), "missing yelp key")

	cfg.Yelp.APIKey = "k"
	assert.NoError(t, cfg.ValidateServer())

	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.ValidateServer())

	cfg.Database.Driver = "sqlite3"
	cfg.Cache.BusinessTTL = "soon"
	assert.Error(t, cfg.ValidateServer())
}

func TestConfig_ValidateClient(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.ValidateClient())

	cfg.Client.Timeout = "fast"
	assert.Error(t, cfg.ValidateClient())

	cfg.Client.Timeout = ""
	cfg.Client.APIBaseURL = ""
	assert.Error(t, cfg.ValidateClient())
}
