package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirbiron/prompt-enhancer/config"
	"github.com/amirbiron/prompt-enhancer/handler"
	"github.com/amirbiron/prompt-enhancer/middleware"
	"github.com/amirbiron/prompt-enhancer/repository"
	"github.com/amirbiron/prompt-enhancer/services"
	"github.com/amirbiron/prompt-enhancer/usecase"
	"github.com/amirbiron/prompt-enhancer/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && os.Getenv("GO_ENV") != "test" {
		log.Printf("No .env file loaded: %v", err)
	}

	if os.Getenv("GO_ENV") == "test" {
		return
	}

	requiredEnvVars := []string{
		"MONGO_URI",
		"MONGO_DB",
		"JWT_SECRET_KEY",
		"JWT_EXPIRATION_TIME",
		"PORT",
	}
	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	utils.InitValidator()
	utils.InitJWT()
	utils.InitMongoClient()
}

func setupRouter(promptsService *usecase.PromptsService, sessionRepo *repository.SessionRepo) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestTracingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestSizeLimiter(1 << 20))

	// Public routes (no authentication required)
	public := router.Group("/api")
	{
		public.GET("/health", handler.HealthHandler)
		public.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Protected routes (service token required)
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		prompts := protected.Group("/prompts")
		{
			// History
			prompts.POST("/", func(c *gin.Context) {
				handler.CreatePromptHandler(c, promptsService)
			})
			prompts.GET("/", func(c *gin.Context) {
				handler.GetUserHistoryHandler(c, promptsService)
			})
			prompts.GET("/:id", func(c *gin.Context) {
				handler.GetPromptHandler(c, promptsService)
			})

			// Tag operations
			prompts.POST("/:id/tags", func(c *gin.Context) {
				handler.AddTagHandler(c, promptsService)
			})
			prompts.DELETE("/:id/tags/:tag", func(c *gin.Context) {
				handler.RemoveTagHandler(c, promptsService)
			})
			prompts.PUT("/:id/tags", func(c *gin.Context) {
				handler.ReplaceTagsHandler(c, promptsService)
			})
			prompts.GET("/by-tag/:tag", func(c *gin.Context) {
				handler.ListByTagHandler(c, promptsService)
			})
			prompts.GET("/tags", func(c *gin.Context) {
				handler.TagInventoryHandler(c, promptsService)
			})

			// Collection operations
			prompts.PUT("/:id/collection", func(c *gin.Context) {
				handler.AssignCollectionHandler(c, promptsService)
			})
			prompts.GET("/collections", func(c *gin.Context) {
				handler.ListCollectionsHandler(c, promptsService)
			})
			prompts.GET("/collections/:name", func(c *gin.Context) {
				handler.ListCollectionMembersHandler(c, promptsService)
			})

			// Lifecycle
			prompts.POST("/:id/archive", func(c *gin.Context) {
				handler.ArchivePromptHandler(c, promptsService)
			})
			prompts.POST("/:id/unarchive", func(c *gin.Context) {
				handler.UnarchivePromptHandler(c, promptsService)
			})

			// Feedback and examples
			prompts.POST("/:id/feedback", func(c *gin.Context) {
				handler.AddFeedbackHandler(c, promptsService)
			})
			prompts.GET("/top-improvements", middleware.CacheControlMiddleware("60"), func(c *gin.Context) {
				handler.TopImprovementsHandler(c, promptsService)
			})
		}

		session := protected.Group("/session")
		{
			session.GET("/", func(c *gin.Context) {
				handler.GetSessionHandler(c, sessionRepo)
			})
			session.PUT("/", func(c *gin.Context) {
				handler.SaveSessionHandler(c, sessionRepo)
			})
			session.DELETE("/", func(c *gin.Context) {
				handler.ClearSessionHandler(c, sessionRepo)
			})
		}

		admin := protected.Group("/admin")
		{
			admin.POST("/migrate", func(c *gin.Context) {
				handler.MigrateHandler(c, promptsService)
			})
			admin.GET("/stats", func(c *gin.Context) {
				handler.GetStatsHandler(c, promptsService)
			})
		}
	}

	return router
}

func main() {
	dbConfig := config.LoadDatabaseConfig()
	redisConfig := config.LoadRedisConfig()

	if redisConfig.Enabled {
		sessionCache, err := services.NewSessionCache(redisConfig.URL)
		if err != nil {
			log.Printf("Warning: session cache disabled: %v", err)
		} else {
			services.GlobalSessionCache = sessionCache
		}

		inventoryCache, err := services.NewInventoryCache(redisConfig.URL)
		if err != nil {
			log.Printf("Warning: inventory cache disabled: %v", err)
		} else {
			services.GlobalInventoryCache = inventoryCache
		}
	}

	db := utils.MongoClient.Database(dbConfig.DatabaseName)
	if err := repository.SetupIndexes(db); err != nil {
		log.Fatalf("Failed to set up indexes: %v", err)
	}

	promptsRepo := repository.GetPromptsRepo(utils.MongoClient)
	sessionRepo := repository.GetSessionRepo(utils.MongoClient)

	promptsService := &usecase.PromptsService{
		Store: promptsRepo,
		Cache: services.GlobalInventoryCache,
	}

	router := setupRouter(promptsService, sessionRepo)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	sig := <-signalChan
	log.Printf("Caught signal %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := utils.MongoClient.Disconnect(ctx); err != nil {
		log.Printf("Mongo disconnect error: %v", err)
	}
	log.Println("Server shutdown complete")
}
