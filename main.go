package main

import (
	"fmt"
	"os"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/pflag"

	"github.com/ytget/yt-multiloader/internal/config"
	"github.com/ytget/yt-multiloader/internal/download"
	"github.com/ytget/yt-multiloader/internal/extract"
	"github.com/ytget/yt-multiloader/internal/platform"
	"github.com/ytget/yt-multiloader/internal/playlist"
	"github.com/ytget/yt-multiloader/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.ytget.yt-multiloader"
	AppName = "YT Multiloader"
)

func main() {
	flags := pflag.NewFlagSet(AppName, pflag.ExitOnError)
	config.RegisterFlags(flags)
	_ = flags.Parse(os.Args[1:])
	cfgPath, _ := flags.GetString("config")

	cfg, err := config.Load(cfgPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("%s v%s starting", AppName, version)

	myApp := app.NewWithID(AppID)
	myApp.Settings().SetTheme(ui.NewTheme())

	// Stored preferences win over file and flag values on the desktop
	settings := config.NewSettings(myApp, *cfg)
	*cfg = settings.Apply(*cfg)

	if err := platform.CreateDirectoryIfNotExists(cfg.OutputDir); err != nil {
		logger.WithError(err).Warn("failed to ensure downloads dir")
	}

	client, err := extract.New(cfg.ExtractOptions(), logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create extractor")
	}

	svc := download.NewService(download.Options{
		OutputDir:   cfg.OutputDir,
		MaxParallel: cfg.MaxParallel,
		EventBuffer: cfg.EventBuffer,
	}, client, logger)
	svc.SetPlaylistResolver(playlist.NewResolver(logger))
	defer svc.Close()

	if len(cfg.URLs) > 0 {
		svc.AddURLs(cfg.URLs...)
	}

	myWindow := myApp.NewWindow(fmt.Sprintf("%s v%s", AppName, version))
	ui.NewRootUI(myApp, myWindow, svc, settings, logger)

	myWindow.ShowAndRun()
}
