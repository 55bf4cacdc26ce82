package external

import (
	"fmt"
	"time"

	"meetingindex.app/internal/config"
	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
)

// NewPositionCache creates the configured position cache backend
func NewPositionCache(cfg *config.Config) (ports.PositionCache, error) {
	ttl := time.Duration(cfg.Geocoder.CacheTTLDays) * 24 * time.Hour

	switch cfg.Geocoder.CacheType {
	case config.CacheTypeSqlite:
		return NewSqlitePositionCacheAdapter(cfg.Data.PositionsDBPath(), ttl)
	case config.CacheTypeRedis:
		return NewRedisPositionCacheAdapter(&cfg.Geocoder.Redis, ttl)
	default:
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("unsupported cache type: %s", cfg.Geocoder.CacheType), nil)
	}
}
