package main

import (
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/skylift/rotoreval/internal/bemt"
	"github.com/skylift/rotoreval/internal/bemt/cache"
	"github.com/skylift/rotoreval/internal/config"
	httpiface "github.com/skylift/rotoreval/internal/interfaces/http"
	"github.com/skylift/rotoreval/internal/polar"
)

// buildCachedSolver assembles the evaluation cache from config: the
// in-process LRU always, plus the shared Redis backend when selected.
func buildCachedSolver(cfg config.Config, pol polar.Linear, metrics *httpiface.MetricsRegistry) *cache.CachedSolver {
	cs := cache.NewCachedSolver(
		bemt.NewSolver(pol), bemt.NewForwardSolver(pol),
		cache.NewEvalCache(cfg.Cache.MaxEntries),
		cache.NewKeyBuilder(cfg.Cache.PolarID))

	if cfg.Cache.Backend == config.CacheBackendRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		ttl := time.Duration(cfg.Cache.RedisTTLSeconds) * time.Second
		cs.SetRemote(cache.NewRedisStore(client, "", ttl))
		log.Info().Str("addr", cfg.Cache.RedisAddr).Dur("ttl", ttl).
			Msg("shared redis evaluation cache enabled")
	}
	if metrics != nil {
		cs.SetObserver(metrics)
	}
	return cs
}
