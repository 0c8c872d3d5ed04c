// Package main provides the entry point for the ytproxy service.
// @title ytproxy API
// @version 1.0
// @description Resolves YouTube links to a catalog of downloadable formats and relays the chosen format's bytes.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:3001
// @BasePath /

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/denisAlshanov/ytproxy/docs" // Import for swagger docs
	"github.com/denisAlshanov/ytproxy/internal/api/handlers"
	"github.com/denisAlshanov/ytproxy/internal/api/router"
	"github.com/denisAlshanov/ytproxy/internal/config"
	"github.com/denisAlshanov/ytproxy/internal/services/catalog"
	"github.com/denisAlshanov/ytproxy/internal/services/downloader"
	"github.com/denisAlshanov/ytproxy/internal/services/extractor"
	"github.com/denisAlshanov/ytproxy/internal/services/relay"
	"github.com/denisAlshanov/ytproxy/internal/services/youtube"
	"github.com/denisAlshanov/ytproxy/internal/services/ytdlp"
	"github.com/denisAlshanov/ytproxy/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	utils.SetLogLevel(cfg.Server.LogLevel)
	logger := utils.GetLogger()
	logger.Info("Starting ytproxy service")

	ext := newExtractor(&cfg.Extractor)
	logger.WithField("backend", ext.Name()).Info("Extractor backend selected")

	readyCtx, readyCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := ext.Ready(readyCtx); err != nil {
		logger.WithError(err).Warn("Extractor backend is not ready - requests will fail until it is")
	}
	readyCancel()

	// Initialize services
	builder := catalog.NewBuilder(ext, cfg.Extractor.UserAgent)
	proxy := relay.NewProxy(ext, &cfg.Download)
	downloaderService := downloader.NewService(builder, proxy, &cfg.Download)

	// Initialize handlers
	videoHandler := handlers.NewVideoHandler(downloaderService)
	healthHandler := handlers.NewHealthHandler(ext)

	// Initialize router
	r := router.NewRouter(cfg, videoHandler, healthHandler)
	server := r.Server()

	// Start server
	go func() {
		logger.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server shutdown complete")
}

func newExtractor(cfg *config.ExtractorConfig) extractor.Extractor {
	switch cfg.Backend {
	case config.BackendYtDlp:
		return ytdlp.NewClient(cfg.YtDlpPath, cfg.Timeout, cfg.UserAgent)
	default:
		return youtube.NewClient(cfg.Timeout, cfg.UserAgent)
	}
}
