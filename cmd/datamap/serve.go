package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"datamap/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured map over HTTP",
	Long:  "Builds the configured map and serves it at / (HTML) and /map.svg, with endpoints for choropleth updates, plugin layers, zoom and pointer events.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "HTTP server port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port := cfg.Server.Port
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		port = p
	}

	m, err := cfg.Build(ctx)
	if err != nil {
		return err
	}

	rc := server.OpenRedis(cfg.Server.Redis.Addr, cfg.Server.Redis.Password, cfg.Server.Redis.DB)
	if rc != nil {
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			zap.L().Warn("redis unavailable, caching in memory only", zap.String("addr", cfg.Server.Redis.Addr), zap.Error(err))
		}
	}
	cache := server.NewRenderCache(cfg.Server.CacheSize, cfg.Server.CacheTTL, rc, cfg.Server.Redis.Prefix)

	srv := server.New(server.Config{Port: port, CORSOrigins: cfg.Server.CORSOrigins}, m, cache, cfg.Seed())

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down map server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "map server")
	}
	return nil
}
