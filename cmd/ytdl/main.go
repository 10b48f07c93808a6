package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ytget/yt-multiloader/internal/api"
	"github.com/ytget/yt-multiloader/internal/config"
	"github.com/ytget/yt-multiloader/internal/download"
	"github.com/ytget/yt-multiloader/internal/extract"
	"github.com/ytget/yt-multiloader/internal/model"
	"github.com/ytget/yt-multiloader/internal/playlist"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("ytdl", pflag.ExitOnError)
	config.RegisterFlags(flags)
	playlists := flags.StringSlice("playlist", nil, "playlist URL to expand into videos, repeatable")
	showVersion := flags.BoolP("version", "v", false, "print version and exit")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ytdl [flags] URL...\n\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println("ytdl", version)
		return 0
	}

	cfgPath, _ := flags.GetString("config")
	cfg, err := config.Load(cfgPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 2
	}

	client, err := extract.New(cfg.ExtractOptions(), logger)
	if err != nil {
		logger.WithError(err).Error("failed to create extractor")
		return 2
	}

	svc := download.NewService(download.Options{
		OutputDir:   cfg.OutputDir,
		MaxParallel: cfg.MaxParallel,
		EventBuffer: cfg.EventBuffer,
	}, client, logger)
	svc.SetPlaylistResolver(playlist.NewResolver(logger))
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Listen != "" {
		return serve(ctx, cfg, svc, logger)
	}

	urls := append(flags.Args(), cfg.URLs...)
	if len(urls) == 0 && len(*playlists) == 0 {
		flags.Usage()
		return 2
	}

	// The runner drains events from the start so adding many items never
	// blocks on a full event buffer
	r := newRunner(os.Stdout, os.Stderr)
	tracked := make(chan []string, 1)
	finished := make(chan bool, 1)
	go func() {
		finished <- r.run(ctx, svc.Events(), tracked)
	}()

	svc.AddURLs(urls...)
	for _, pl := range *playlists {
		if _, err := svc.AddPlaylist(ctx, pl); err != nil {
			logger.WithError(err).WithField("playlist", pl).Error("failed to resolve playlist")
			return 1
		}
	}

	items := svc.Items()
	invalid := reportInvalid(os.Stdout, items)
	ids := eligibleIDs(items)
	if len(ids) == 0 {
		return 1
	}

	tracked <- ids
	svc.StartEligible()
	if !<-finished {
		fmt.Fprintln(os.Stderr, "interrupted")
		return 130
	}

	if invalid > 0 || r.failed > 0 {
		return 1
	}
	return 0
}

func eligibleIDs(items []model.DownloadItem) []string {
	var ids []string
	for _, item := range items {
		if item.Status.CanStart() && item.URL != "" && item.Invalid == "" {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// serve exposes the service over HTTP until ctx is done
func serve(ctx context.Context, cfg *config.Config, svc *download.Service, logger *logrus.Logger) int {
	if len(cfg.URLs) > 0 {
		svc.AddURLs(cfg.URLs...)
	}

	hub := api.NewHub(logger)
	router := api.NewRouter(api.NewHandler(svc, hub, logger), logger)
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(svc.Events())
		return nil
	})
	g.Go(func() error {
		logger.WithField("address", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		// Closing the service ends the event streams so Shutdown does not
		// wait on them
		svc.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server stopped with error")
		return 1
	}
	logger.Info("server stopped gracefully")
	return 0
}
