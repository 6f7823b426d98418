package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"analyticshub/api/config"
	"analyticshub/api/database"
	"analyticshub/api/enricher"
	"analyticshub/api/forwarder"
	"analyticshub/api/handlers"
	"analyticshub/api/middleware"
	"analyticshub/api/store"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfgPath).Msg("failed to load config")
	}

	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		mode = cfg.Server.GinMode
	}
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// --- PostgreSQL (dashboard users) ---
	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL")
	}
	defer dbClient.Close()

	// --- Flat record store (events, sessions, goals) ---
	records, err := store.NewRecordStore(cfg.Storage.DataDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Storage.DataDir).Msg("failed to initialize record store")
	}

	// --- Optional Kafka event forwarder ---
	var fwd store.EventForwarder
	if cfg.Kafka.Enabled {
		kf := forwarder.NewKafkaForwarder(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kf.Close()
		fwd = kf
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("event forwarding enabled")
	}

	// --- Stores ---
	userStore := store.NewUserStore(dbClient.DB)
	goalStore := store.NewGoalStore(records)
	if err := goalStore.Seed(); err != nil {
		log.Fatal().Err(err).Msg("failed to seed goals")
	}
	analyticsStore := store.NewAnalyticsStore(records, goalStore, fwd)
	statsStore := store.NewStatsStore(records)

	// --- Enrichment ---
	enrich := enricher.New(cfg.GeoIP.DatabasePath)
	defer enrich.Close()

	// --- Handlers ---
	authHandlers := handlers.NewAuthHandlers(userStore)
	trackHandlers := handlers.NewTrackHandlers(analyticsStore, enrich)
	statsHandlers := handlers.NewStatsHandlers(statsStore, analyticsStore)
	goalHandlers := handlers.NewGoalHandlers(goalStore)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware(cfg.Server.FEOrigin))

	api := r.Group("/api")
	{
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)

		// Tracking endpoints are public; the snippet embedded in customer
		// pages calls them without credentials.
		api.POST("/track", trackHandlers.TrackEvent)
		api.POST("/track/pageview", trackHandlers.TrackPageView)
		api.GET("/track/identity", trackHandlers.GetIdentity)

		protected := api.Group("/")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/sessions/:sessionId", trackHandlers.GetSession)

			statsGroup := protected.Group("/stats")
			{
				statsGroup.GET("/active-visitors", statsHandlers.GetActiveVisitors)
				statsGroup.GET("/dashboard", statsHandlers.GetDashboardStats)
				statsGroup.GET("/top-pages", statsHandlers.GetTopPages)
				statsGroup.GET("/traffic", statsHandlers.GetTrafficOverTime)
				statsGroup.GET("/recent-events", statsHandlers.GetRecentEvents)
				statsGroup.GET("/sessions", statsHandlers.GetSessionStats)
			}

			goalsGroup := protected.Group("/goals")
			{
				goalsGroup.GET("", goalHandlers.ListGoals)
				goalsGroup.POST("", goalHandlers.CreateGoal)
				goalsGroup.POST("/funnel", goalHandlers.GetConversionFunnel)
				goalsGroup.GET("/:slug", goalHandlers.GetGoal)
				goalsGroup.PUT("/:slug", goalHandlers.UpdateGoal)
				goalsGroup.DELETE("/:slug", goalHandlers.DeleteGoal)
				goalsGroup.GET("/:slug/performance", goalHandlers.GetGoalPerformance)
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Info().Str("port", port).Msg("analytics-hub API starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting")
}
