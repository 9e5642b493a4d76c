package server

import (
	"net/http"
	"time"

	"anoa.com/karmaforum/internal/config"
	"anoa.com/karmaforum/internal/identity"
	"anoa.com/karmaforum/internal/middleware"
	"anoa.com/karmaforum/pkg/logger"
	"anoa.com/karmaforum/pkg/metrics"

	commentHttp "anoa.com/karmaforum/internal/modules/comment/delivery/http"
	commentRepo "anoa.com/karmaforum/internal/modules/comment/repository"
	commentService "anoa.com/karmaforum/internal/modules/comment/service"

	karmaHttp "anoa.com/karmaforum/internal/modules/karma/delivery/http"
	karmaRepo "anoa.com/karmaforum/internal/modules/karma/repository"
	karmaService "anoa.com/karmaforum/internal/modules/karma/service"

	leaderboardHttp "anoa.com/karmaforum/internal/modules/leaderboard/delivery/http"
	leaderboardService "anoa.com/karmaforum/internal/modules/leaderboard/service"

	postHttp "anoa.com/karmaforum/internal/modules/post/delivery/http"
	postRepo "anoa.com/karmaforum/internal/modules/post/repository"
	postService "anoa.com/karmaforum/internal/modules/post/service"

	reactionHttp "anoa.com/karmaforum/internal/modules/reaction/delivery/http"
	reactionRepo "anoa.com/karmaforum/internal/modules/reaction/repository"
	reactionService "anoa.com/karmaforum/internal/modules/reaction/service"

	searchHttp "anoa.com/karmaforum/internal/modules/search/delivery/http"
	searchService "anoa.com/karmaforum/internal/modules/search/service"

	userHttp "anoa.com/karmaforum/internal/modules/user/delivery/http"
	userRepo "anoa.com/karmaforum/internal/modules/user/repository"
	userService "anoa.com/karmaforum/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

// NewServer wires repositories, services and handlers. redisClient may be nil,
// in which case caches and rate limits are disabled.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, search searchService.SearchService) *Server {
	if search == nil {
		search = searchService.NoopSearchService{}
	}

	// User Module
	userRepository := userRepo.NewUserRepository(db)
	authSvc := userService.NewAuthService(userRepository, cfg.JWTSecret, 24*time.Hour)
	authHandler := userHttp.NewAuthHandler(authSvc)

	resolver := identity.NewResolver(userRepository, cfg.AuthFallbackUsername)
	if cfg.AuthFallbackUsername != "" {
		log.WithField("username", cfg.AuthFallbackUsername).Warn("requests without a token act as the fallback user")
	}

	// Karma Module
	ledgerRepository := karmaRepo.NewLedgerRepository(db)
	karmaSvc := karmaService.NewKarmaService(ledgerRepository, userRepository, cfg.LeaderboardWindow)
	karmaHandler := karmaHttp.NewKarmaHandler(karmaSvc)

	// Leaderboard Module
	leaderboardSvc := leaderboardService.NewLeaderboardService(ledgerRepository, userRepository, redisClient, leaderboardService.Options{
		Window:       cfg.LeaderboardWindow,
		DefaultLimit: cfg.LeaderboardDefaultLimit,
		CacheTTL:     cfg.LeaderboardCacheTTL,
	})
	leaderboardHandler := leaderboardHttp.NewLeaderboardHandler(leaderboardSvc)

	// Reaction Module
	reactionRepository := reactionRepo.NewReactionRepository(db, ledgerRepository)
	reactionSvc := reactionService.NewReactionService(reactionRepository, resolver, redisClient, cfg.LikeMaxAttempts)
	reactionHandler := reactionHttp.NewReactionHandler(reactionSvc)

	// Post & Comment Modules
	postRepository := postRepo.NewPostRepository(db)
	commentRepository := commentRepo.NewCommentRepository(db)
	commentSvc := commentService.NewCommentService(commentRepository, postRepository, resolver, search, redisClient, cfg.RateLimitComment)
	commentHandler := commentHttp.NewCommentHandler(commentSvc)
	postSvc := postService.NewPostService(postRepository, commentRepository, resolver, search, redisClient, cfg.RateLimitPost)
	postHandler := postHttp.NewPostHandler(postSvc)

	// Search Module
	searchHandler := searchHttp.NewSearchHandler(search)

	router := gin.New()

	setupCORS(router, cfg.Origins())

	router.Use(gin.Recovery())
	router.Use(logger.GinLogger("/metrics", "/healthz"))

	router.GET("/metrics", metrics.Handler())
	router.GET("/healthz", healthz(db))

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	api := router.Group("/api")
	api.Use(authMiddleware.Authenticate())

	if cfg.IsDevelopment() {
		api.POST("/auth/dev-token", authHandler.DevToken)
	}

	// Read routes
	api.GET("/posts", postHandler.ListPosts)
	api.GET("/posts/:post_id", postHandler.GetPost)
	api.GET("/posts/:post_id/likes", reactionHandler.GetPostLikes)
	api.GET("/comments/:comment_id/likes", reactionHandler.GetCommentLikes)
	api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
	api.GET("/users/:user_id/karma", karmaHandler.GetUserKarma)
	api.GET("/search/token", searchHandler.GetSearchToken)

	// Write routes; with a fallback identity configured the resolver supplies the user.
	writes := api.Group("")
	if cfg.AuthFallbackUsername == "" {
		writes.Use(authMiddleware.RequireIdentity())
	}
	{
		writes.POST("/posts", postHandler.CreatePost)
		writes.DELETE("/posts/:post_id", postHandler.DeletePost)
		writes.POST("/posts/:post_id/comments", commentHandler.CreateComment)
		writes.POST("/posts/:post_id/like", reactionHandler.LikePost)
		writes.POST("/comments/:comment_id/like", reactionHandler.LikeComment)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			log.WithError(err).Error("database ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
