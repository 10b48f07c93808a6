package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// yt-dlp defaults
const (
	DefaultFormat           = "best[ext=mp4]/best"
	DefaultProgressInterval = 500 * time.Millisecond
	stderrErrorPrefix       = "ERROR:"
)

// YtDlp drives the yt-dlp executable
type YtDlp struct {
	format   string
	interval time.Duration
	logger   logrus.FieldLogger
}

// NewYtDlp creates a yt-dlp backed client. An empty format selects DefaultFormat.
func NewYtDlp(format string, logger logrus.FieldLogger) *YtDlp {
	if format == "" {
		format = DefaultFormat
	}
	return &YtDlp{
		format:   format,
		interval: DefaultProgressInterval,
		logger:   logger.WithField("extractor", "yt-dlp"),
	}
}

// FetchMetadata runs yt-dlp without downloading and reads title and extension
// of the selected format from its JSON dump
func (y *YtDlp) FetchMetadata(ctx context.Context, url string) (Metadata, error) {
	res, err := ytdlp.New().
		SkipDownload().
		NoPlaylist().
		DumpSingleJSON().
		Format(y.format).
		Run(ctx, url)
	if err != nil {
		return Metadata{}, y.failure(res, err)
	}
	return parseMetadata(res.Stdout)
}

// Download runs yt-dlp for url. Progress updates are forwarded to onProgress;
// when it returns an error the yt-dlp process is stopped and that error is
// returned.
func (y *YtDlp) Download(ctx context.Context, url string, outputTemplate string, onProgress ProgressFunc) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		abortErr error
	)

	dl := ytdlp.New().
		NoPlaylist().
		ForceOverwrites().
		Format(y.format).
		Output(outputTemplate)

	dl.ProgressFunc(y.interval, func(update ytdlp.ProgressUpdate) {
		mu.Lock()
		defer mu.Unlock()

		if abortErr != nil {
			return
		}
		p, ok := progressFromUpdate(update)
		if !ok {
			return
		}
		if err := onProgress(p); err != nil {
			abortErr = err
			cancel()
		}
	})

	res, err := dl.Run(runCtx, url)

	mu.Lock()
	aborted := abortErr
	mu.Unlock()

	if aborted != nil {
		y.logger.WithField("url", url).Debug("yt-dlp stopped by progress callback")
		return aborted
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return y.failure(res, err)
	}
	return nil
}

// failure prefers the last "ERROR:" line yt-dlp printed, which carries the
// human readable reason (private, unavailable, sign in...)
func (y *YtDlp) failure(res *ytdlp.Result, err error) error {
	if res == nil {
		return err
	}
	msg := lastErrorLine(res.Stderr)
	if msg == "" {
		return err
	}
	y.logger.WithField("stderr", msg).Debug("yt-dlp failed")
	return &Error{Message: msg, Err: err}
}

// Error is a failure reported by the extractor
type Error struct {
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying process error
func (e *Error) Unwrap() error {
	return e.Err
}

// progressFromUpdate converts a yt-dlp progress update, ignoring phases the
// engine does not track
func progressFromUpdate(update ytdlp.ProgressUpdate) (Progress, bool) {
	switch update.Status {
	case ytdlp.ProgressStatusDownloading:
		return Progress{
			Phase:           PhaseDownloading,
			DownloadedBytes: int64(update.DownloadedBytes),
			TotalBytes:      int64(update.TotalBytes),
		}, true
	case ytdlp.ProgressStatusFinished:
		p := Progress{
			Phase:           PhaseFinished,
			DownloadedBytes: int64(update.DownloadedBytes),
			TotalBytes:      int64(update.TotalBytes),
		}
		if update.Info != nil && update.Info.Filename != nil {
			p.Filename = *update.Info.Filename
		}
		return p, true
	}
	return Progress{}, false
}

// parseMetadata reads the fields the engine needs from a yt-dlp info JSON
func parseMetadata(raw string) (Metadata, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return Metadata{}, errors.New("extractor returned no metadata")
	}

	title := gjson.Get(raw, "title").String()
	if title == "" {
		title = gjson.Get(raw, "fulltitle").String()
	}
	if title == "" {
		return Metadata{}, fmt.Errorf("extractor metadata has no title")
	}

	ext := gjson.Get(raw, "ext").String()
	if ext == "" {
		// merged formats only report the extension per requested format
		ext = gjson.Get(raw, "requested_downloads.0.ext").String()
	}

	return Metadata{Title: title, Ext: ext}, nil
}

// lastErrorLine returns the message of the last "ERROR:" line in stderr
func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, stderrErrorPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, stderrErrorPrefix))
		}
	}
	return ""
}
