package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-multiloader/internal/platform"
)

// Native client tuning
const (
	nativeProgressInterval = 250 * time.Millisecond
	partSuffix             = ".part"
	mimeMP4                = "video/mp4"
)

// Native extracts and transfers content with the pure Go YouTube client.
// Only progressive formats (audio and video in one stream) are used, so no
// muxing step is needed.
type Native struct {
	client *youtube.Client
	logger logrus.FieldLogger
}

// NewNative creates a client backed by github.com/kkdai/youtube/v2
func NewNative(logger logrus.FieldLogger) *Native {
	return &Native{
		client: &youtube.Client{},
		logger: logger.WithField("extractor", "native"),
	}
}

// FetchMetadata resolves the title and the extension of the format Download
// will pick
func (n *Native) FetchMetadata(ctx context.Context, url string) (Metadata, error) {
	video, err := n.client.GetVideoContext(ctx, url)
	if err != nil {
		return Metadata{}, nativeError(err)
	}
	format, err := selectProgressive(video.Formats)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Title: video.Title, Ext: extFromMime(format.MimeType)}, nil
}

// Download streams the selected format into the file named by
// outputTemplate. Data is written to a ".part" file and renamed on success.
func (n *Native) Download(ctx context.Context, url string, outputTemplate string, onProgress ProgressFunc) error {
	video, err := n.client.GetVideoContext(ctx, url)
	if err != nil {
		return nativeError(err)
	}
	format, err := selectProgressive(video.Formats)
	if err != nil {
		return err
	}

	target := platform.ResolveTemplate(outputTemplate, extFromMime(format.MimeType))
	if err := platform.CreateDirectoryIfNotExists(filepath.Dir(target)); err != nil {
		return &Error{Message: fmt.Sprintf("No such file or directory: %s", filepath.Dir(target)), Err: err}
	}

	stream, size, err := n.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nativeError(err)
	}
	defer stream.Close()

	part := target + partSuffix
	file, err := os.Create(part)
	if err != nil {
		return &Error{Message: fmt.Sprintf("No such file or directory: %s", part), Err: err}
	}

	pw := &progressWriter{total: size, onProgress: onProgress}
	written, copyErr := io.Copy(io.MultiWriter(file, pw), stream)
	closeErr := file.Close()

	if copyErr != nil {
		_ = os.Remove(part)
		if aborted := pw.aborted(); aborted != nil {
			return aborted
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("transfer failed: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(part)
		return fmt.Errorf("closing %s: %w", part, closeErr)
	}
	if err := os.Rename(part, target); err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("renaming %s: %w", part, err)
	}

	n.logger.WithFields(logrus.Fields{"file": target, "bytes": written}).Debug("native transfer finished")

	return onProgress(Progress{
		Phase:           PhaseFinished,
		DownloadedBytes: written,
		TotalBytes:      size,
		Filename:        target,
	})
}

// progressWriter reports transferred bytes at most every
// nativeProgressInterval. A callback error aborts the copy.
type progressWriter struct {
	total      int64
	written    int64
	last       time.Time
	onProgress ProgressFunc

	mu  sync.Mutex
	err error
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	now := time.Now()
	if now.Sub(p.last) < nativeProgressInterval {
		return len(b), nil
	}
	p.last = now

	if err := p.onProgress(Progress{
		Phase:           PhaseDownloading,
		DownloadedBytes: p.written,
		TotalBytes:      p.total,
	}); err != nil {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		return 0, err
	}
	return len(b), nil
}

func (p *progressWriter) aborted() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// selectProgressive picks the best format carrying both audio and video,
// preferring mp4 and then the highest resolution
func selectProgressive(formats youtube.FormatList) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || f.QualityLabel == "" {
			continue
		}
		if best == nil || betterFormat(f, best) {
			best = f
		}
	}
	if best == nil {
		return nil, &Error{Message: "Requested format is not available", Err: errors.New("no progressive format")}
	}
	return best, nil
}

func betterFormat(candidate, current *youtube.Format) bool {
	candMP4 := strings.HasPrefix(candidate.MimeType, mimeMP4)
	curMP4 := strings.HasPrefix(current.MimeType, mimeMP4)
	if candMP4 != curMP4 {
		return candMP4
	}
	if candidate.Height != current.Height {
		return candidate.Height > current.Height
	}
	return candidate.Bitrate > current.Bitrate
}

// extFromMime maps "video/mp4; codecs=..." to "mp4"
func extFromMime(mime string) string {
	base := strings.TrimSpace(strings.SplitN(mime, ";", 2)[0])
	if i := strings.IndexByte(base, '/'); i >= 0 && i < len(base)-1 {
		return base[i+1:]
	}
	return platform.DefaultExtension
}

// nativeError rewrites client sentinels into the wording yt-dlp uses, so
// both adapters classify the same way downstream
func nativeError(err error) error {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired):
		return &Error{Message: "Sign in to confirm your age", Err: err}
	case errors.Is(err, youtube.ErrVideoPrivate):
		return &Error{Message: "Private video", Err: err}
	}
	var status *youtube.ErrPlayabiltyStatus
	if errors.As(err, &status) {
		return &Error{Message: fmt.Sprintf("Video unavailable: %s", status.Reason), Err: err}
	}
	return err
}
