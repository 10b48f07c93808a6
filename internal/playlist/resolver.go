package playlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ytget/ytdlp/v2"
)

// Timeout constants
const (
	DefaultResolveTimeout = 60 * time.Second
)

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// URL templates
const (
	WatchURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// Playlist title constants
const (
	DefaultPlaylistName = "Unknown Playlist"
	MinPrefixLength     = 10
	PlaylistSuffix      = " Playlist"
)

// ErrNotPlaylist is returned for URLs without a list parameter
var ErrNotPlaylist = errors.New("not a playlist URL")

// Entry is one video of a playlist
type Entry struct {
	ID    string
	Title string
	URL   string
}

// Playlist is the resolved content of a playlist URL
type Playlist struct {
	ID      string
	Title   string
	URL     string
	Entries []Entry
}

// URLs returns the watch URLs of all entries in playlist order
func (p *Playlist) URLs() []string {
	urls := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		urls = append(urls, e.URL)
	}
	return urls
}

// FetchFunc lists the entries of a playlist by ID
type FetchFunc func(ctx context.Context, playlistID string) ([]Entry, error)

// Resolver turns playlist URLs into entries
type Resolver struct {
	timeout time.Duration
	fetch   FetchFunc
	logger  logrus.FieldLogger
}

// NewResolver creates a resolver backed by the ytdlp library
func NewResolver(logger logrus.FieldLogger) *Resolver {
	return &Resolver{
		timeout: DefaultResolveTimeout,
		fetch:   fetchAll,
		logger:  logger.WithField("component", "playlist"),
	}
}

// SetTimeout sets the timeout for resolve operations
func (r *Resolver) SetTimeout(timeout time.Duration) {
	r.timeout = timeout
}

// SetFetchFunc replaces the listing backend
func (r *Resolver) SetFetchFunc(fetch FetchFunc) {
	r.fetch = fetch
}

// IsPlaylistURL reports whether url carries a playlist ID
func IsPlaylistURL(url string) bool {
	return ExtractPlaylistID(url) != ""
}

// Resolve lists all videos of the playlist in url
func (r *Resolver) Resolve(ctx context.Context, url string) (*Playlist, error) {
	playlistID := ExtractPlaylistID(url)
	if playlistID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotPlaylist, url)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	entries, err := r.fetch(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	r.logger.WithFields(logrus.Fields{"playlist": playlistID, "videos": len(entries)}).Info("playlist resolved")

	return &Playlist{
		ID:      playlistID,
		Title:   playlistTitle(entries),
		URL:     url,
		Entries: entries,
	}, nil
}

// fetchAll is the default FetchFunc
func fetchAll(ctx context.Context, playlistID string) ([]Entry, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		entries = append(entries, Entry{
			ID:    it.VideoID,
			Title: it.Title,
			URL:   WatchURL(it.VideoID),
		})
	}
	return entries, nil
}

// WatchURL builds the canonical watch URL for a video ID
func WatchURL(videoID string) string {
	return fmt.Sprintf(WatchURLTemplate, videoID)
}

// ExtractPlaylistID extracts the playlist ID from the list= parameter
func ExtractPlaylistID(url string) string {
	parts := strings.SplitN(url, PlaylistParam, 2)
	if len(parts) < 2 {
		return ""
	}
	id := parts[1]
	if i := strings.Index(id, ParamSeparator); i >= 0 {
		id = id[:i]
	}
	return id
}

// playlistTitle derives a title from the common prefix of the first videos
func playlistTitle(entries []Entry) string {
	if len(entries) == 0 {
		return DefaultPlaylistName
	}
	if len(entries) > 1 {
		prefix := commonPrefix(entries[0].Title, entries[1].Title)
		if len(prefix) > MinPrefixLength {
			return strings.TrimSpace(prefix) + PlaylistSuffix
		}
	}
	return entries[0].Title + PlaylistSuffix
}

func commonPrefix(s1, s2 string) string {
	r1, r2 := []rune(s1), []rune(s2)
	n := min(len(r1), len(r2))
	for i := 0; i < n; i++ {
		if r1[i] != r2[i] {
			return string(r1[:i])
		}
	}
	return string(r1[:n])
}
