package main

import (
	"context"
	"time"

	"anoa.com/karmaforum/internal/bootstrap"
	"anoa.com/karmaforum/internal/config"
	searchService "anoa.com/karmaforum/internal/modules/search/service"
	"anoa.com/karmaforum/internal/server"
	"anoa.com/karmaforum/pkg/database"
	"anoa.com/karmaforum/pkg/logger"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	dsn := cfg.DatabaseURL
	if cfg.DBDriver == database.DriverPostgres {
		dsn = cfg.PostgresDSN()
	}
	db, err := database.Open(cfg.DBDriver, dsn)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if cfg.AuthFallbackUsername != "" {
		if _, err := bootstrap.SeedUser(db, cfg.AuthFallbackUsername, cfg.AuthFallbackUsername); err != nil {
			log.Fatalf("failed to seed fallback user: %v", err)
		}
	}

	redisClient := connectRedis(cfg.RedisURL)
	search := searchService.NewSearchService(cfg.MeiliSearchHost, cfg.MeiliMasterKey)

	srv := server.NewServer(cfg, db, redisClient, search)

	log.WithFields(log.Fields{"port": cfg.Port, "env": cfg.AppEnv}).Info("server starting")
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

// connectRedis returns nil when url is empty or redis is unreachable; every
// redis backed feature degrades to a no-op without it.
func connectRedis(url string) *redis.Client {
	if url == "" {
		log.Info("REDIS_URL not set, caches and rate limits disabled")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.WithError(err).Fatal("invalid REDIS_URL")
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable, caches and rate limits disabled")
		_ = client.Close()
		return nil
	}

	log.Info("redis connected")
	return client
}
