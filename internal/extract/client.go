package extract

import (
	"context"
	"errors"
)

// ErrCancelled is returned by a ProgressFunc to abort a transfer. Clients must
// return an error that wraps it when they stop because of it.
var ErrCancelled = errors.New("download cancelled")

// Phase of a progress event
type Phase string

const (
	PhaseDownloading Phase = "downloading"
	PhaseFinished    Phase = "finished"
)

// Progress is one report from a running transfer
type Progress struct {
	Phase           Phase
	DownloadedBytes int64
	TotalBytes      int64  // 0 when the size is not known yet
	Filename        string // final path, set with PhaseFinished
}

// Metadata describes a video before it is downloaded
type Metadata struct {
	Title string
	Ext   string
}

// ProgressFunc receives transfer progress. A non-nil return aborts the transfer.
type ProgressFunc func(Progress) error

// Client resolves video metadata and performs content transfers
type Client interface {
	FetchMetadata(ctx context.Context, url string) (Metadata, error)
	// Download writes the video to outputTemplate, where the "%(ext)s"
	// placeholder is replaced with the media extension.
	Download(ctx context.Context, url string, outputTemplate string, onProgress ProgressFunc) error
}

// IsCancelled reports whether err stems from an aborted progress callback
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
