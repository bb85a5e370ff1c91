package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/bitkub-trader/internal/api"
	"github.com/ksred/bitkub-trader/internal/auth"
	"github.com/ksred/bitkub-trader/internal/config"
	"github.com/ksred/bitkub-trader/internal/database"
	"github.com/ksred/bitkub-trader/internal/store"
	"github.com/ksred/bitkub-trader/pkg/middleware"
)

// init configures logging before anything else runs. Development gets pretty
// console output; DEBUG=true lowers the level.
func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main runs the control API server. It shares the store with the worker
// process but never drives the engine directly: operators act through
// settings and flags, and the next cycle picks them up.
func main() {
	cfg := config.Load()

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	authService := auth.NewService(cfg.JWTSecret)
	authService.RegisterAPICredentials(cfg.APIKey, cfg.APISecret)
	authHandlers := auth.NewGinHandlers(authService)

	handlers := api.NewGinHandlers(store.NewDatabase(db))

	router.Use(middleware.RateLimit())
	setupRoutes(router, authService, authHandlers, handlers)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zlog.Info().Str("port", cfg.Port).Msg("control API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes wires the API surface: public auth, authenticated reads and
// authenticated control actions.
func setupRoutes(
	router *gin.Engine,
	authService *auth.Service,
	authHandlers *auth.GinHandlers,
	handlers *api.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(authService))
		{
			protected.GET("/status", handlers.StatusHandler())
			protected.GET("/settings", handlers.GetSettingsHandler())
			protected.PUT("/settings/strategy/:asset", handlers.UpdateStrategyHandler())
			protected.PUT("/settings/risk-limits", handlers.UpdateRiskLimitsHandler())
			protected.GET("/orders", handlers.OrdersHandler())
			protected.GET("/fills", handlers.FillsHandler())
			protected.GET("/equity", handlers.EquityHandler())
			protected.GET("/events", handlers.EventsHandler())

			bot := protected.Group("/bot")
			{
				bot.POST("/pause", handlers.PauseHandler())
				bot.POST("/resume", handlers.ResumeHandler())
				bot.POST("/kill", handlers.KillHandler())
				bot.DELETE("/kill", handlers.ClearKillHandler())
			}
		}
	}
}
