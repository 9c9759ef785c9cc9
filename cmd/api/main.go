package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/kb-orchestrator/internal/adapters/http"
	"github.com/kirillkom/kb-orchestrator/internal/bootstrap"
	"github.com/kirillkom/kb-orchestrator/internal/config"
	"github.com/kirillkom/kb-orchestrator/internal/observability/logging"
	"github.com/kirillkom/kb-orchestrator/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(app.AskUC, app.SearchUC, app.Repo, serverMetrics, httpadapter.RouterConfig{
		Service:           "api",
		GeneralConfigured: cfg.KBGeneralID != "",
		SupportConfigured: cfg.KBSupportID != "",
		RateLimitRPS:      cfg.APIRateLimitRPS,
		RateLimitBurst:    cfg.APIRateLimitBurst,
		MaxInFlight:       cfg.APIMaxInFlight,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api_server", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown", "error", err)
	}
}
