package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"restaurant-finder/config"
	"restaurant-finder/models"

	utilcache "github.com/umakantv/go-utils/cache"
	"github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

const businessKeyPrefix = "business:"

// InitializeCache connects the configured cache backend.
// It returns nil when caching is disabled with type "none".
func InitializeCache(cfg config.CacheConfig) (utilcache.Cache, error) {
	if cfg.Type == "" || cfg.Type == "none" {
		logger.Info("Business cache disabled")
		return nil, nil
	}

	c, err := utilcache.New(utilcache.Config{
		Type:          cfg.Type,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Error("Failed to initialize cache:", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize %s cache: %w", cfg.Type, err)
	}
	return c, nil
}

// BusinessCache keeps upstream restaurant details keyed by id so favorite
// listings do not hit the directory once per saved restaurant.
// A nil *BusinessCache, or one without a backend, never hits.
type BusinessCache struct {
	backend utilcache.Cache
	ttl     time.Duration
}

// NewBusinessCache wraps backend; backend may be nil.
func NewBusinessCache(backend utilcache.Cache, ttl time.Duration) *BusinessCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &BusinessCache{backend: backend, ttl: ttl}
}

// Get returns the cached restaurant for id.
func (b *BusinessCache) Get(id string) (models.Restaurant, bool) {
	var r models.Restaurant
	if b == nil || b.backend == nil {
		return r, false
	}

	cached, err := b.backend.Get(businessKeyPrefix + id)
	if err != nil {
		return r, false
	}

	// the backend may hand back what we stored or its serialized form
	var raw []byte
	switch v := cached.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return r, false
	}

	if err := json.Unmarshal(raw, &r); err != nil {
		logger.Debug("Dropping undecodable business cache entry", zap.String("id", id), zap.Error(err))
		return r, false
	}
	return r, r.ID != ""
}

// Put stores r under its id.
func (b *BusinessCache) Put(r models.Restaurant) {
	if b == nil || b.backend == nil || r.ID == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	b.backend.Set(businessKeyPrefix+r.ID, string(data), b.ttl)
}

// Forget drops the entry for id.
func (b *BusinessCache) Forget(id string) {
	if b == nil || b.backend == nil {
		return
	}
	b.backend.Delete(businessKeyPrefix + id)
}
