package server

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/config"
	"github.com/ecohuntapp/ecohunt-server/internal/geocode"
	"github.com/ecohuntapp/ecohunt-server/internal/handler"
	"github.com/ecohuntapp/ecohunt-server/internal/middleware"
	"github.com/ecohuntapp/ecohunt-server/internal/repository"
	"github.com/ecohuntapp/ecohunt-server/internal/service"
	"github.com/ecohuntapp/ecohunt-server/pkg/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	cfg         *config.Config
	scheduler   *service.StatsScheduler
	redisClient *redis.Client
}

func New(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := repository.NewUserRepository(db)
	missionRepo := repository.NewMissionRepository(db)
	pointRepo := repository.NewPointRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	leaderboardRepo := repository.NewLeaderboardRepository(db)

	imageStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	meiliHost := cfg.MeiliSearchHost
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}
	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	searchSvc := service.NewSearchService(meiliClient)

	feed := service.NewChangeFeed(redisClient)
	analysisSvc := service.NewAnalysisService(context.Background(), cfg.GeminiAPIKey, cfg.AnalysisTimeout)
	geocoder := geocode.NewClient(cfg.NominatimURL, cfg.GeocodeCacheTTL)

	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret)
	authHandler := handler.NewAuthHandler(authSvc)

	missionSvc := service.NewMissionService(
		missionRepo, pointRepo, userRepo,
		imageStorage, analysisSvc, searchSvc, feed,
		redisClient, cfg.RateLimitMission,
	)
	missionHandler := handler.NewMissionHandler(missionSvc, analysisSvc, searchSvc)

	leaderboardSvc := service.NewLeaderboardService(leaderboardRepo)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardSvc, feed)

	profileSvc := service.NewProfileService(userRepo, pointRepo)
	profileHandler := handler.NewProfileHandler(profileSvc)

	locationSvc := service.NewLocationService(locationRepo, userRepo, feed)
	locationHandler := handler.NewLocationHandler(locationSvc, geocoder)

	scheduler := service.NewStatsScheduler(userRepo, feed)
	scheduler.Start()

	router := gin.New()
	setupCORS(router, cfg.AllowedOrigins)
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Mission routes
		protected.POST("/missions", missionHandler.Create)
		protected.GET("/missions", missionHandler.List)
		protected.GET("/missions/search", missionHandler.Search)
		protected.GET("/missions/:id", missionHandler.Get)
		protected.POST("/missions/:id/start", missionHandler.Start)
		protected.POST("/missions/:id/complete", missionHandler.Complete)
		protected.POST("/missions/:id/photos", missionHandler.AddPhoto)

		// AI analysis
		protected.POST("/analyze", missionHandler.Analyze)

		// Leaderboard
		protected.GET("/leaderboard", leaderboardHandler.Get)
		protected.GET("/leaderboard/ws", leaderboardHandler.HandleWebSocket)

		// Profile
		protected.GET("/profile/me", profileHandler.GetMe)
		protected.GET("/profile/:username", profileHandler.GetByUsername)

		// Map
		protected.POST("/locations", locationHandler.Update)
		protected.GET("/locations/nearby", locationHandler.Nearby)
		protected.GET("/geocode/reverse", locationHandler.ReverseGeocode)
	}

	return &Server{
		engine:      router,
		cfg:         cfg,
		scheduler:   scheduler,
		redisClient: redisClient,
	}
}

func (s *Server) Run() error {
	return s.engine.Run(":" + s.cfg.Port)
}

func (s *Server) Shutdown() {
	s.scheduler.Stop()
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
