package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/yt-multiloader/internal/extract"
	"github.com/ytget/yt-multiloader/internal/model"
	"github.com/ytget/yt-multiloader/internal/playlist"
)

type downloadFunc func(ctx context.Context, url, template string, onProgress extract.ProgressFunc) error

// fakeClient is an extract.Client with scripted behaviour
type fakeClient struct {
	mu        sync.Mutex
	meta      extract.Metadata
	metaErr   error
	download  downloadFunc
	downloads int
	templates []string
}

func (f *fakeClient) FetchMetadata(context.Context, string) (extract.Metadata, error) {
	return f.meta, f.metaErr
}

func (f *fakeClient) Download(ctx context.Context, url, template string, onProgress extract.ProgressFunc) error {
	f.mu.Lock()
	f.downloads++
	f.templates = append(f.templates, template)
	fn := f.download
	f.mu.Unlock()

	if fn == nil {
		return onProgress(extract.Progress{Phase: extract.PhaseFinished})
	}
	return fn(ctx, url, template, onProgress)
}

func (f *fakeClient) Downloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

// recorder drains the event channel
type recorder struct {
	mu     sync.Mutex
	events []model.Event
	done   chan struct{}
}

func record(s *Service) *recorder {
	r := &recorder{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		for ev := range s.Events() {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		}
	}()
	return r
}

// stop closes the service and returns every event it published
func (r *recorder) stop(s *Service) []model.Event {
	s.Close()
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

func forItem(events []model.Event, id string, kind model.EventKind) []model.Event {
	var out []model.Event
	for _, ev := range events {
		if ev.Item.ID == id && ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func newTestService(t *testing.T, client extract.Client, opts Options) (*Service, *recorder) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	if opts.OutputDir == "" {
		opts.OutputDir = t.TempDir()
	}
	s := NewService(opts, client, logger)
	rec := record(s)
	t.Cleanup(s.Close)
	return s, rec
}

func testVideoClient() *fakeClient {
	return &fakeClient{meta: extract.Metadata{Title: "Test Video", Ext: "mp4"}}
}

func TestNewService(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewService(Options{OutputDir: "/tmp"}, testVideoClient(), logger)
	defer s.Close()

	assert.Equal(t, "/tmp", s.OutputDir())
	assert.Nil(t, s.sem)
	assert.Equal(t, DefaultEventBuffer, cap(s.events))
	assert.Equal(t, 0, s.Count())

	capped := NewService(Options{MaxParallel: 2, EventBuffer: 4}, testVideoClient(), logger)
	defer capped.Close()
	assert.NotNil(t, capped.sem)
	assert.Equal(t, 4, cap(capped.events))
}

func TestAddItemAndSetURL(t *testing.T) {
	s, rec := newTestService(t, testVideoClient(), Options{})

	id := s.AddItem()
	assert.Regexp(t, `^item-`, id)
	item, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.StatusIdle, item.Status)
	assert.False(t, s.HasStartable())

	require.NoError(t, s.SetURL(id, "https://vimeo.com/123"))
	item, _ = s.Get(id)
	assert.Equal(t, "invalid URL", item.Invalid)
	assert.False(t, s.HasStartable())

	require.NoError(t, s.SetURL(id, testURL))
	item, _ = s.Get(id)
	assert.Empty(t, item.Invalid)
	assert.True(t, s.HasStartable())

	assert.ErrorIs(t, s.SetURL("missing", testURL), ErrItemNotFound)

	events := rec.stop(s)
	assert.Len(t, forItem(events, id, model.EventAdded), 1)
	assert.Len(t, forItem(events, id, model.EventUpdated), 2)
}

func TestSuccessfulDownloadScenario(t *testing.T) {
	dir := t.TempDir()
	client := testVideoClient()
	s, rec := newTestService(t, client, Options{OutputDir: dir})

	id := s.AddURLs(testURL)[0]
	assert.Equal(t, 1, s.StartEligible())
	s.Wait()

	item, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, item.Status)
	assert.Equal(t, float64(100), item.Progress)
	assert.Equal(t, "Test Video", item.Title)
	assert.Equal(t, filepath.Join(dir, "Test Video.mp4"), item.Filename)
	assert.Empty(t, item.Error)
	assert.Equal(t, []string{filepath.Join(dir, "Test Video.%(ext)s")}, client.templates)

	events := rec.stop(s)
	updates := forItem(events, id, model.EventUpdated)
	require.NotEmpty(t, updates)
	assert.Equal(t, model.StatusCompleted, updates[len(updates)-1].Item.Status)
	assert.Empty(t, forItem(events, id, model.EventDuplicate))
}

func TestProgressIsNonDecreasingAndEndsAt100(t *testing.T) {
	client := testVideoClient()
	client.download = func(_ context.Context, _, _ string, on extract.ProgressFunc) error {
		for _, n := range []int64{10, 50, 30, 80, 80, 120} {
			if err := on(extract.Progress{Phase: extract.PhaseDownloading, DownloadedBytes: n, TotalBytes: 100}); err != nil {
				return err
			}
		}
		return on(extract.Progress{Phase: extract.PhaseFinished})
	}
	s, rec := newTestService(t, client, Options{})

	id := s.AddURLs(testURL)[0]
	require.Equal(t, 1, s.StartEligible())
	s.Wait()

	events := rec.stop(s)
	var last float64
	for _, ev := range forItem(events, id, model.EventUpdated) {
		if ev.Item.Status == model.StatusIdle {
			continue
		}
		assert.GreaterOrEqual(t, ev.Item.Progress, last)
		assert.LessOrEqual(t, ev.Item.Progress, float64(100))
		last = ev.Item.Progress
	}
	assert.Equal(t, float64(100), last)

	item, _ := s.Get(id)
	assert.Equal(t, model.StatusCompleted, item.Status)
}

func TestExistingFileSkipsTransfer(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "Test Video.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	client := testVideoClient()
	s, rec := newTestService(t, client, Options{OutputDir: dir})

	id := s.AddURLs(testURL)[0]
	require.Equal(t, 1, s.StartEligible())
	s.Wait()

	item, _ := s.Get(id)
	assert.Equal(t, model.StatusExists, item.Status)
	assert.Equal(t, float64(100), item.Progress)
	assert.Equal(t, existing, item.Filename)
	assert.Equal(t, 0, client.Downloads())

	events := rec.stop(s)
	dups := forItem(events, id, model.EventDuplicate)
	require.Len(t, dups, 1)
	assert.Equal(t, "Test Video", dups[0].Item.Title)
}

func TestPrivateVideoIsClassified(t *testing.T) {
	client := &fakeClient{metaErr: errors.New("ERROR: [youtube] dQw4w9WgXcQ: This video is private")}
	s, _ := newTestService(t, client, Options{})

	id := s.AddURLs(testURL)[0]
	require.Equal(t, 1, s.StartEligible())
	s.Wait()

	item, _ := s.Get(id)
	assert.Equal(t, model.StatusError, item.Status)
	assert.Equal(t, "private video", item.Error)
	assert.Equal(t, 0, client.Downloads())
}

func TestTransferErrorIsClassified(t *testing.T) {
	client := testVideoClient()
	client.download = func(context.Context, string, string, extract.ProgressFunc) error {
		return &extract.Error{Message: "Video unavailable. This video has been removed", Err: errors.New("exit status 1")}
	}
	s, _ := newTestService(t, client, Options{})

	id := s.AddURLs(testURL)[0]
	s.StartEligible()
	s.Wait()

	item, _ := s.Get(id)
	assert.Equal(t, model.StatusError, item.Status)
	assert.Equal(t, MsgUnavailable, item.Error)
}

func TestClientPanicIsRecovered(t *testing.T) {
	client := testVideoClient()
	client.download = func(context.Context, string, string, extract.ProgressFunc) error {
		panic("boom")
	}
	s, _ := newTestService(t, client, Options{})

	id := s.AddURLs(testURL)[0]
	s.StartEligible()
	s.Wait()

	item, _ := s.Get(id)
	assert.Equal(t, model.StatusError, item.Status)
	assert.Equal(t, "extractor panic: boom", item.Error)
	assert.True(t, s.HasStartable())
}

// blockingClient reports progress once, then waits for release
func blockingClient(started chan<- struct{}, release <-chan struct{}, honour bool) *fakeClient {
	var once sync.Once
	client := testVideoClient()
	client.download = func(ctx context.Context, _, _ string, on extract.ProgressFunc) error {
		if err := on(extract.Progress{Phase: extract.PhaseDownloading, DownloadedBytes: 10, TotalBytes: 100}); err != nil {
			return err
		}
		once.Do(func() { close(started) })
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
		for i := int64(20); i <= 100; i += 20 {
			err := on(extract.Progress{Phase: extract.PhaseDownloading, DownloadedBytes: i, TotalBytes: 100})
			if err != nil && honour {
				return fmt.Errorf("aborted by hook: %w", err)
			}
		}
		if err := on(extract.Progress{Phase: extract.PhaseFinished}); err != nil && honour {
			return err
		}
		return nil
	}
	return client
}

func TestCancelEndsCancelled(t *testing.T) {
	for _, honour := range []bool{true, false} {
		t.Run(fmt.Sprintf("client honours abort=%v", honour), func(t *testing.T) {
			started, release := make(chan struct{}), make(chan struct{})
			s, rec := newTestService(t, blockingClient(started, release, honour), Options{})

			id := s.AddURLs(testURL)[0]
			require.Equal(t, 1, s.StartEligible())
			<-started
			assert.True(t, s.AnyDownloading())

			require.NoError(t, s.Cancel(id))
			item, _ := s.Get(id)
			assert.Equal(t, model.StatusCancelled, item.Status)
			assert.True(t, item.Cancelled)
			assert.False(t, s.AnyDownloading())
			assert.False(t, s.HasStartable(), "worker still running")

			close(release)
			s.Wait()

			item, _ = s.Get(id)
			assert.Equal(t, model.StatusCancelled, item.Status)
			assert.Equal(t, float64(10), item.Progress)
			assert.Empty(t, item.Error)
			assert.True(t, s.HasStartable())

			events := rec.stop(s)
			for _, ev := range forItem(events, id, model.EventUpdated) {
				assert.NotEqual(t, model.StatusCompleted, ev.Item.Status)
			}
		})
	}
}

func TestCancelIsNoOpOnIdleAndTerminal(t *testing.T) {
	s, _ := newTestService(t, testVideoClient(), Options{})

	idle := s.AddURLs(testURL)[0]
	require.NoError(t, s.Cancel(idle))
	item, _ := s.Get(idle)
	assert.Equal(t, model.StatusIdle, item.Status)
	assert.False(t, item.Cancelled)

	s.StartEligible()
	s.Wait()
	require.NoError(t, s.Cancel(idle))
	item, _ = s.Get(idle)
	assert.Equal(t, model.StatusCompleted, item.Status)

	assert.ErrorIs(t, s.Cancel("missing"), ErrItemNotFound)
}

func TestSetURLResetsTerminalItem(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
		status model.Status
	}{
		{"completed", testVideoClient(), model.StatusCompleted},
		{"error", &fakeClient{metaErr: errors.New("Video unavailable")}, model.StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestService(t, tt.client, Options{})
			id := s.AddURLs(testURL)[0]
			s.StartEligible()
			s.Wait()

			item, _ := s.Get(id)
			require.Equal(t, tt.status, item.Status)

			require.NoError(t, s.SetURL(id, "https://www.youtube.com/shorts/aaaaaaaaaaa"))
			item, _ = s.Get(id)
			assert.Equal(t, model.StatusIdle, item.Status)
			assert.Empty(t, item.Title)
			assert.Empty(t, item.Filename)
			assert.Empty(t, item.Error)
			assert.Zero(t, item.Progress)
			assert.False(t, item.Cancelled)
		})
	}
}

func TestSetURLResetsExistsItem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Test Video.mp4"), nil, 0o644))
	s, _ := newTestService(t, testVideoClient(), Options{OutputDir: dir})

	id := s.AddURLs(testURL)[0]
	s.StartEligible()
	s.Wait()
	item, _ := s.Get(id)
	require.Equal(t, model.StatusExists, item.Status)

	require.NoError(t, s.SetURL(id, testURL))
	item, _ = s.Get(id)
	assert.Equal(t, model.StatusIdle, item.Status)
	assert.Empty(t, item.Filename)
	assert.Zero(t, item.Progress)
}

func TestSetURLBusyWhileDownloading(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	s, _ := newTestService(t, blockingClient(started, release, true), Options{})

	id := s.AddURLs(testURL)[0]
	s.StartEligible()
	<-started

	assert.ErrorIs(t, s.SetURL(id, "https://youtu.be/aaaaaaaaaaa"), ErrItemBusy)

	close(release)
	s.Wait()
}

func TestSetURLAfterCancelSupersedesRun(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	s, _ := newTestService(t, blockingClient(started, release, false), Options{})

	id := s.AddURLs(testURL)[0]
	s.StartEligible()
	<-started
	require.NoError(t, s.Cancel(id))

	require.NoError(t, s.SetURL(id, "https://youtu.be/aaaaaaaaaaa"))
	assert.Equal(t, 0, s.StartEligible(), "previous worker has not exited")

	close(release)
	s.Wait()

	item, _ := s.Get(id)
	assert.Equal(t, model.StatusIdle, item.Status)
	assert.Equal(t, "https://youtu.be/aaaaaaaaaaa", item.URL)
	assert.Zero(t, item.Progress)
	assert.Empty(t, item.Filename)
	assert.Equal(t, 1, s.StartEligible())
	s.Wait()
}

func TestRemoveOnlyItemResetsIt(t *testing.T) {
	s, rec := newTestService(t, testVideoClient(), Options{})

	id := s.AddURLs(testURL)[0]
	s.StartEligible()
	s.Wait()

	require.NoError(t, s.Remove(id))
	assert.Equal(t, 1, s.Count())
	item, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.StatusIdle, item.Status)
	assert.Empty(t, item.URL)
	assert.Empty(t, item.Title)
	assert.Empty(t, item.Filename)
	assert.Zero(t, item.Progress)

	events := rec.stop(s)
	assert.Empty(t, forItem(events, id, model.EventRemoved))
}

func TestRemoveOneOfSeveral(t *testing.T) {
	s, rec := newTestService(t, testVideoClient(), Options{})
	ids := s.AddURLs(testURL, "https://youtu.be/aaaaaaaaaaa", "")

	require.NoError(t, s.Remove(ids[1]))
	assert.Equal(t, 2, s.Count())
	_, ok := s.Get(ids[1])
	assert.False(t, ok)

	var order []string
	for _, it := range s.Items() {
		order = append(order, it.ID)
	}
	assert.Equal(t, []string{ids[0], ids[2]}, order)

	assert.ErrorIs(t, s.Remove(ids[1]), ErrItemNotFound)

	events := rec.stop(s)
	removed := forItem(events, ids[1], model.EventRemoved)
	require.Len(t, removed, 1)
	assert.True(t, removed[0].Item.Cancelled)
}

func TestRemoveDownloadingItemStopsIt(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	s, _ := newTestService(t, blockingClient(started, release, true), Options{})
	ids := s.AddURLs(testURL, "")

	s.StartEligible()
	<-started
	require.NoError(t, s.Remove(ids[0]))
	close(release)
	s.Wait()

	assert.Equal(t, 1, s.Count())
	assert.False(t, s.AnyDownloading())
}

func TestRemovedItemPublishesNothingAfterRemoval(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	s, rec := newTestService(t, blockingClient(started, release, false), Options{})
	ids := s.AddURLs(testURL, "")

	s.StartEligible()
	<-started
	require.NoError(t, s.Remove(ids[0]))
	close(release)
	s.Wait()

	events := rec.stop(s)
	removedAt := -1
	for i, ev := range events {
		if ev.Item.ID != ids[0] {
			continue
		}
		if ev.Kind == model.EventRemoved {
			removedAt = i
			continue
		}
		assert.Equal(t, -1, removedAt, "event %q published after removal", ev.Kind)
	}
	assert.NotEqual(t, -1, removedAt)
}

func TestWorkerExitAfterResetPublishesStartableItem(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	s, rec := newTestService(t, blockingClient(started, release, false), Options{})

	id := s.AddURLs(testURL)[0]
	s.StartEligible()
	<-started
	require.NoError(t, s.Cancel(id))
	newURL := "https://youtu.be/aaaaaaaaaaa"
	require.NoError(t, s.SetURL(id, newURL))
	assert.False(t, s.HasStartable(), "previous worker has not exited")

	close(release)
	s.Wait()
	assert.True(t, s.HasStartable())

	events := rec.stop(s)
	var idle []model.Event
	for _, ev := range forItem(events, id, model.EventUpdated) {
		if ev.Item.Status == model.StatusIdle && ev.Item.URL == newURL {
			idle = append(idle, ev)
		}
	}
	// one from SetURL, one once the old worker let go of the item
	require.Len(t, idle, 2)
	last := events[len(events)-1]
	assert.Equal(t, id, last.Item.ID)
	assert.Equal(t, model.StatusIdle, last.Item.Status)
}

func TestStartEligibleStartsOnlyIdleValid(t *testing.T) {
	client := testVideoClient()
	s, _ := newTestService(t, client, Options{})

	done := s.AddURLs(testURL)[0]
	require.Equal(t, 1, s.StartEligible())
	s.Wait()
	item, _ := s.Get(done)
	require.Equal(t, model.StatusCompleted, item.Status)

	s.AddURLs("not a video url")
	idle := s.AddURLs("https://www.youtube.com/watch?v=aaaaaaaaaaa")[0]

	assert.Equal(t, 1, s.StartEligible())
	s.Wait()

	item, _ = s.Get(idle)
	assert.Equal(t, model.StatusCompleted, item.Status)
	assert.Equal(t, 2, client.Downloads())
	assert.Equal(t, 0, s.StartEligible())
}

func TestMaxParallelBoundsTransfers(t *testing.T) {
	var active, peak atomic.Int32
	client := testVideoClient()
	client.download = func(_ context.Context, _, _ string, on extract.ProgressFunc) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return on(extract.Progress{Phase: extract.PhaseFinished})
	}

	dir := t.TempDir()
	s, _ := newTestService(t, client, Options{OutputDir: dir, MaxParallel: 1})
	// distinct titles are not needed, nothing is written to disk
	s.AddURLs(testURL, "https://youtu.be/aaaaaaaaaaa", "https://youtu.be/bbbbbbbbbbb")

	assert.Equal(t, 3, s.StartEligible())
	s.Wait()

	assert.Equal(t, int32(1), peak.Load())
	for _, it := range s.Items() {
		assert.Equal(t, model.StatusCompleted, it.Status)
	}
}

func TestCloseCancelsRunningItems(t *testing.T) {
	started := make(chan struct{})
	s, _ := newTestService(t, blockingClient(started, make(chan struct{}), true), Options{})

	id := s.AddURLs(testURL)[0]
	s.StartEligible()
	<-started

	s.Close()

	item, _ := s.Get(id)
	assert.Equal(t, model.StatusCancelled, item.Status)
	assert.Equal(t, 0, s.StartEligible())
}

type fakeResolver struct {
	pl  *playlist.Playlist
	err error
}

func (f fakeResolver) Resolve(context.Context, string) (*playlist.Playlist, error) {
	return f.pl, f.err
}

func TestAddPlaylist(t *testing.T) {
	s, _ := newTestService(t, testVideoClient(), Options{})

	_, err := s.AddPlaylist(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	assert.ErrorIs(t, err, ErrNoResolver)

	s.SetPlaylistResolver(fakeResolver{pl: &playlist.Playlist{
		ID: "PL1",
		Entries: []playlist.Entry{
			{ID: "aaaaaaaaaaa", URL: playlist.WatchURL("aaaaaaaaaaa")},
			{ID: "bbbbbbbbbbb", URL: playlist.WatchURL("bbbbbbbbbbb")},
		},
	}})
	ids, err := s.AddPlaylist(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	require.NoError(t, err)
	require.Len(t, ids, 2)

	item, _ := s.Get(ids[1])
	assert.Equal(t, "https://www.youtube.com/watch?v=bbbbbbbbbbb", item.URL)
	assert.Empty(t, item.Invalid)

	boom := errors.New("boom")
	s.SetPlaylistResolver(fakeResolver{err: boom})
	_, err = s.AddPlaylist(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, s.Count())
}
