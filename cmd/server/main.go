// Command server starts the Rebota HR assistant HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ollamacli "github.com/rebota-hq/rebota/internal/adapter/ai/ollama"
	"github.com/rebota-hq/rebota/internal/adapter/history"
	httpserver "github.com/rebota-hq/rebota/internal/adapter/httpserver"
	"github.com/rebota-hq/rebota/internal/adapter/observability"
	qdrantcli "github.com/rebota-hq/rebota/internal/adapter/vector/qdrant"
	"github.com/rebota-hq/rebota/internal/app"
	"github.com/rebota-hq/rebota/internal/config"
	"github.com/rebota-hq/rebota/internal/index"
	"github.com/rebota-hq/rebota/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	ai := ollamacli.New(cfg)
	qcli := qdrantcli.New(cfg.QdrantURL, cfg.QdrantAPIKey)
	idx := index.Open(qcli, cfg.QdrantCollection)
	histStore := history.NewStub()

	chatSvc := usecase.NewChatService(ai, ai, idx, histStore, cfg.RetrieveTopK, cfg.ContextTokenBudget, cfg.LLMModel)
	matchSvc := usecase.NewMatchService(ai, ai, cfg.MatchEmbedWeight, cfg.MatchLLMWeight)

	srv := httpserver.NewServer(cfg, chatSvc, matchSvc, ai.Healthcheck, qcli.Healthcheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
