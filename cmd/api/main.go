package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dentalcare-connect/portal/internal/api/router"
	"github.com/dentalcare-connect/portal/internal/calcom"
	appconfig "github.com/dentalcare-connect/portal/internal/config"
	"github.com/dentalcare-connect/portal/internal/conversation"
	"github.com/dentalcare-connect/portal/internal/http/handlers"
	"github.com/dentalcare-connect/portal/internal/observability/metrics"
	"github.com/dentalcare-connect/portal/internal/portal"
	"github.com/dentalcare-connect/portal/internal/webchat"
	"github.com/dentalcare-connect/portal/pkg/logging"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dentalcare portal API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	portalMetrics := metrics.NewPortalMetrics(prometheus.DefaultRegisterer)

	gateway := calcom.NewClient(calcom.Options{
		BaseURL:     cfg.CalBaseURL,
		APIKey:      cfg.CalAPIKey,
		EventTypeID: cfg.CalEventTypeID,
		TimeZone:    cfg.CalTimeZone,
		Timeout:     cfg.CalTimeout,
	}, logger.Component("calcom"), portalMetrics)

	model, err := conversation.NewGeminiModel(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("failed to initialize Gemini model", "error", err)
		os.Exit(1)
	}
	agent := conversation.NewAgent(model, gateway, logger.Component("agent"), portalMetrics)

	timeZone, err := time.LoadLocation(cfg.CalTimeZone)
	if err != nil {
		logger.Warn("invalid time zone, falling back to UTC", "zone", cfg.CalTimeZone, "error", err)
		timeZone = time.UTC
	}

	service := portal.NewService(gateway, agent, timeZone, logger.Component("portal"))

	portalHandler := handlers.NewPortalHandler(service, cfg.AgentPhoneNumber, logger)
	webchatHandler := webchat.NewHandler(webchat.NewPortalAdapter(service), logger.Component("webchat"))

	r := router.New(&router.Config{
		Logger:             logger,
		PortalHandler:      portalHandler,
		WebchatHandler:     webchatHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRatePerSecond:  1,
		ChatBurst:          5,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
