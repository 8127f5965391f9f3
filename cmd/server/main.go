package main

import (
	"log"

	"github.com/ecohuntapp/ecohunt-server/internal/config"
	"github.com/ecohuntapp/ecohunt-server/internal/model"
	"github.com/ecohuntapp/ecohunt-server/internal/server"
	"github.com/ecohuntapp/ecohunt-server/pkg/database"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	redisClient := connectRedis(cfg.RedisURL)

	srv := server.New(cfg, db, redisClient)
	defer srv.Shutdown()

	log.Printf("🚀 Server listening on port %s", cfg.Port)
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.Zone{},
		&model.Mission{},
		&model.MissionAnalysis{},
		&model.MissionMedia{},
		&model.PointLog{},
		&model.UserStats{},
		&model.UserLocation{},
	)
}

// connectRedis returns nil when Redis is not configured; realtime updates
// and rate limiting degrade gracefully without it.
func connectRedis(redisURL string) *redis.Client {
	if redisURL == "" {
		log.Println("⚠️ REDIS_URL not set, realtime updates disabled")
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("⚠️ Invalid REDIS_URL, realtime updates disabled: %v", err)
		return nil
	}

	return redis.NewClient(opts)
}
