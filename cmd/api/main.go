package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"gatekeeper-backend/internal/config"
	"gatekeeper-backend/internal/handlers"
	"gatekeeper-backend/internal/middleware"
	"gatekeeper-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)

	var providers []services.TextProvider
	if cfg.GroqAPIKey != "" {
		providers = append(providers, services.NewGroqProvider(cfg.GroqAPIKey))
	}
	if cfg.GeminiAPIKey != "" {
		providers = append(providers, services.NewGeminiProvider(cfg.GeminiAPIKey))
	}
	if len(providers) == 0 {
		log.Println("No AI provider keys configured; attempts will be rejected as unavailable")
	}
	oracle := services.NewProviderChain(providers...)

	var verifier services.PaymentVerifier = services.NoopVerifier{}
	if cfg.VerifyPayments {
		verifier = services.NewSolanaVerifier(cfg.SolanaNetwork, cfg.TreasuryWallet, cfg.AttemptPriceSOL)
	}

	wsHandler := handlers.NewWebSocketHandler()

	market := services.NewMarket(redisService, wsHandler)
	orchestrator := services.NewOrchestrator(redisService, market, oracle, verifier, wsHandler, cfg)

	authHandler := handlers.NewAuthHandler(jwtService)
	chatHandler := handlers.NewChatHandler(orchestrator, redisService)
	marketHandler := handlers.NewMarketHandler(market, redisService, verifier, cfg.VerifyPayments)
	adminHandler := handlers.NewAdminHandler(orchestrator, cfg.AdminSecret)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	router.POST("/auth/connect", authHandler.Connect)
	router.GET("/ws", wsHandler.HandleWebSocket)

	api := router.Group("/api")
	{
		api.GET("/feed", chatHandler.GetFeed)
		api.GET("/stats", chatHandler.GetStats)
		api.GET("/market", marketHandler.GetMarketStats)
		api.GET("/predictions/:walletAddress", marketHandler.GetUserPredictions)

		api.POST("/admin/register-game", adminHandler.RegisterGame)

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		{
			protected.POST("/chat", chatHandler.HandleChat)
			protected.POST("/predict", marketHandler.PlacePrediction)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
