package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"draw-engine-backend/internal/config"
	"draw-engine-backend/internal/handlers"
	"draw-engine-backend/internal/middleware"
	"draw-engine-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := services.NewRedisStore(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var chain services.ChainOracle
	var feed *services.ChainFeed
	if cfg.OracleMode == config.OracleModeCertified {
		feed = services.NewChainFeed(cfg.ChainFeedURL, store)
		chain = feed
	}

	oracle := services.NewOracle(store, chain, cfg)
	ledger := services.NewIntegrityLedger(store)
	wallet := services.NewRedisWallet(store)

	if feed != nil {
		go feed.Run(ctx, oracle)
	}

	if cfg.AnchorURL != "" {
		anchorWorker := services.NewAnchorWorker(store, services.NewHTTPAnchorer(cfg), cfg.AnchorMaxRetries)
		go anchorWorker.Run(ctx, time.Minute)
	} else {
		log.Println("No anchor endpoint configured, batch roots stay unanchored")
	}

	wsHandler := handlers.NewWebSocketHandler()
	resolver := services.NewResolver(store, ledger, wallet, wsHandler)

	drawHandler := handlers.NewDrawHandler(store, oracle, resolver)
	ticketHandler := handlers.NewTicketHandler(store, ledger)

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

	api := router.Group("/api")
	{
		api.GET("/draws/:id", drawHandler.GetDraw)
		api.GET("/randomness/:requestId/verify", drawHandler.VerifyRandomness)
		api.GET("/tickets/:id", ticketHandler.GetTicket)
		api.GET("/tickets/:id/proof", ticketHandler.GetTicketProof)
		api.GET("/batches/:id/verify", ticketHandler.VerifyBatch)
		api.GET("/ws", wsHandler.HandleWebSocket)

		api.POST("/tickets", ticketHandler.PurchaseTicket)

		protected := api.Group("/")
		protected.Use(middleware.ServiceAuth(cfg.ServiceSecret))
		{
			protected.POST("/draws", drawHandler.CreateDraw)
			protected.POST("/draws/:id/randomness", drawHandler.RequestRandomness)
			protected.POST("/draws/:id/numbers", drawHandler.ComputeNumbers)
			protected.POST("/draws/:id/batch/seal", ticketHandler.SealBatch)
			protected.POST("/draws/:id/resolve", drawHandler.ResolveDraw)
		}
	}

	log.Printf("Server starting on port %s (oracle mode: %s)", cfg.Port, cfg.OracleMode)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
