// Entry point for the clippit HTTP service: fetches GitHub issues, extracts
// their code snippets and runs them through the Rust playground's clippy.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/clippit/config"
	"github.com/hazyhaar/clippit/github"
	"github.com/hazyhaar/clippit/pipeline"
	"github.com/hazyhaar/clippit/playground"
	"github.com/hazyhaar/clippit/web"
)

func main() {
	host := flag.String("host", "", "host to listen on (default 0.0.0.0)")
	port := flag.Int("port", 0, "port to listen on (default 7878, or PORT env)")
	cfgPath := flag.String("config", env("CLIPPIT_CONFIG", "clippit.yaml"), "path to config file (optional)")
	flag.Parse()

	// Logging.
	var lvl slog.Level
	switch env("LOG_LEVEL", "info") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gh := github.New(github.Config{
		BaseURL:    cfg.GitHub.BaseURL,
		GraphQLURL: cfg.GitHub.GraphQLURL,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.Timeout,
	})
	play := playground.New(playground.Config{
		BaseURL:   cfg.Playground.BaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
	})
	svc := pipeline.New(gh, play)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           web.NewRouter(gh, svc),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
