package config

import (
	"fyne.io/fyne/v2"

	"github.com/ytget/yt-multiloader/internal/extract"
)

// Settings keys for Fyne preferences
const (
	PrefDownloadDir = "download_directory"
	PrefMaxParallel = "max_parallel_downloads"
	PrefExtractor   = "extractor"
	PrefFormat      = "format"
)

// Settings stores the desktop user's choices in Fyne preferences. Values
// that were never set fall back to the loaded Config.
type Settings struct {
	app      fyne.App
	defaults Config
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App, defaults Config) *Settings {
	return &Settings{app: app, defaults: defaults}
}

// Apply overlays stored preferences on cfg
func (s *Settings) Apply(cfg Config) Config {
	cfg.OutputDir = s.GetDownloadDirectory()
	cfg.MaxParallel = s.GetMaxParallelDownloads()
	cfg.Extractor = s.GetExtractor()
	cfg.Format = s.GetFormat()
	return cfg
}

// GetDownloadDirectory returns the configured download directory
func (s *Settings) GetDownloadDirectory() string {
	dir := s.app.Preferences().String(PrefDownloadDir)
	if dir == "" {
		dir = s.defaults.OutputDir
		if dir == "" {
			dir = defaultOutputDir()
		}
		s.SetDownloadDirectory(dir)
	}
	return dir
}

// SetDownloadDirectory sets the download directory
func (s *Settings) SetDownloadDirectory(dir string) {
	s.app.Preferences().SetString(PrefDownloadDir, dir)
}

// GetMaxParallelDownloads returns the transfer limit, 0 means unbounded
func (s *Settings) GetMaxParallelDownloads() int {
	return clampParallel(s.app.Preferences().IntWithFallback(PrefMaxParallel, s.defaults.MaxParallel))
}

// SetMaxParallelDownloads sets the transfer limit
func (s *Settings) SetMaxParallelDownloads(count int) {
	s.app.Preferences().SetInt(PrefMaxParallel, clampParallel(count))
}

// GetExtractor returns the extraction backend
func (s *Settings) GetExtractor() string {
	kind := s.app.Preferences().StringWithFallback(PrefExtractor, s.defaults.Extractor)
	if !isExtractor(kind) {
		return DefaultExtractor
	}
	return kind
}

// SetExtractor sets the extraction backend, unknown kinds are ignored
func (s *Settings) SetExtractor(kind string) {
	if !isExtractor(kind) {
		return
	}
	s.app.Preferences().SetString(PrefExtractor, kind)
}

// GetExtractorOptions returns available extraction backends
func (s *Settings) GetExtractorOptions() []string {
	return []string{extract.KindYtDlp, extract.KindNative}
}

// GetFormat returns the yt-dlp format selector
func (s *Settings) GetFormat() string {
	format := s.app.Preferences().StringWithFallback(PrefFormat, s.defaults.Format)
	if format == "" {
		return DefaultFormat
	}
	return format
}

// SetFormat sets the yt-dlp format selector
func (s *Settings) SetFormat(format string) {
	if format == "" {
		format = DefaultFormat
	}
	s.app.Preferences().SetString(PrefFormat, format)
}

func clampParallel(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxParallelLimit {
		return MaxParallelLimit
	}
	return n
}

func isExtractor(kind string) bool {
	return kind == extract.KindYtDlp || kind == extract.KindNative
}
