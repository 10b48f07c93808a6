package download

import (
	"context"

	"github.com/ytget/yt-multiloader/internal/model"
)

// Downloader defines the interface front-ends use to drive the service.
type Downloader interface {
	AddItem() string
	AddURLs(urls ...string) []string
	AddPlaylist(ctx context.Context, url string) ([]string, error)
	SetURL(id, url string) error
	StartEligible() int
	Cancel(id string) error
	Remove(id string) error

	Get(id string) (model.DownloadItem, bool)
	Items() []model.DownloadItem
	Count() int
	HasStartable() bool
	AnyDownloading() bool
	OutputDir() string

	// Events delivers state changes; a single consumer should drain it
	Events() <-chan model.Event
}

var _ Downloader = (*Service)(nil)
