package cache

import (
	"path/filepath"
	"strings"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
)

// Open builds the snapshot cache selected by the config. A redis instance
// that cannot be reached is reported and the sqlite file is used instead,
// so offline runs keep working.
func Open(cfg config.CacheConfig, log *logger.Logger) (Cache, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "sqlite"
	}

	if provider == "redis" {
		c, err := NewRedis(RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			UseTLS:   cfg.Redis.UseTLS,
		})
		if err == nil {
			return c, nil
		}
		log.Warn("falling back to sqlite snapshot cache", "error", err)
	}

	dir := strings.TrimSpace(cfg.Directory)
	if dir == "" {
		dir = "data"
	}
	return NewWithPath(filepath.Join(dir, "snapshots.db"))
}
