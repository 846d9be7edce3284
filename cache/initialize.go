package cache

import (
	"os"

	"taskmaster/config"

	"github.com/umakantv/go-utils/cache"
	"github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

// InitializeCache builds the session cache. The memory backend is the
// default so the server runs standalone; set CACHE_TYPE=redis to share
// sessions across processes.
func InitializeCache(cfg config.Config) cache.Cache {
	c, err := cache.New(cache.Config{
		Type:          cfg.CacheType,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Error("Failed to initialize cache:", zap.Error(err))
		os.Exit(1)
	}
	return c
}
