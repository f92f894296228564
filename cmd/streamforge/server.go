package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vddownco/video-downloader-hls/pkg/api"
	"github.com/vddownco/video-downloader-hls/pkg/config"
	"github.com/vddownco/video-downloader-hls/pkg/converter"
	"github.com/vddownco/video-downloader-hls/pkg/fetcher"
	"github.com/vddownco/video-downloader-hls/pkg/logging"
	"github.com/vddownco/video-downloader-hls/pkg/notify"
	"github.com/vddownco/video-downloader-hls/pkg/orchestrator"
	"github.com/vddownco/video-downloader-hls/pkg/prober"
	"github.com/vddownco/video-downloader-hls/pkg/storage"
	"github.com/vddownco/video-downloader-hls/pkg/store"
	"github.com/vddownco/video-downloader-hls/pkg/ws"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the conversion service",
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.Pipeline.StagingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Pipeline.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	st := store.NewMemoryStore()
	defer st.Close()

	hub := ws.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	resolver := storage.NewResolver(cmd.Context())

	var mirror *orchestrator.Mirror
	if cfg.Artifacts.MirrorURI != "" {
		if _, err := resolver.ForURI(cfg.Artifacts.MirrorURI); err != nil {
			return fmt.Errorf("artifact mirror: %w", err)
		}
		mirror = orchestrator.NewMirror(resolver, cfg.Artifacts.MirrorURI)
		logger.Info("artifact mirroring enabled", zap.String("uri", cfg.Artifacts.MirrorURI))
	}

	orch := orchestrator.New(orchestrator.Options{
		Store:      st,
		Fetcher:    fetcher.NewFetcher(resolver, fetcher.WithHeadTimeout(cfg.Pipeline.FetchHeadTimeout)),
		Prober:     prober.NewProber(prober.WithFFprobePath(cfg.Pipeline.FFprobePath), prober.WithTimeout(cfg.Pipeline.ProbeTimeout)),
		Converter:  converter.NewConverter(converter.WithFFmpegPath(cfg.Pipeline.FFmpegPath)),
		Notifier:   notify.NewNotifier(hub),
		Logger:     logger,
		StagingDir: cfg.Pipeline.StagingDir,
		OutputDir:  cfg.Pipeline.OutputDir,
		Retention:  cfg.Retention.Window,
		Mirror:     mirror,
	})
	defer orch.Close()

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Retention.SweepSchedule, func() {
		orch.SweepExpired(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", cfg.Retention.SweepSchedule, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	server := api.NewServer(orch, hub, logger)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}
