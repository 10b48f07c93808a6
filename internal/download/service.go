package download

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/ytget/yt-multiloader/internal/extract"
	"github.com/ytget/yt-multiloader/internal/metrics"
	"github.com/ytget/yt-multiloader/internal/model"
	"github.com/ytget/yt-multiloader/internal/platform"
	"github.com/ytget/yt-multiloader/internal/playlist"
)

// Item ID prefix
const ItemIDPrefix = "item-"

// Event channel defaults
const DefaultEventBuffer = 256

var (
	// ErrItemNotFound is returned for unknown item IDs
	ErrItemNotFound = errors.New("item not found")

	// ErrItemBusy is returned when an item cannot change while downloading
	ErrItemBusy = errors.New("item is downloading")

	// ErrNoResolver is returned by AddPlaylist when no resolver is configured
	ErrNoResolver = errors.New("playlist resolver not configured")
)

// Options configures a Service
type Options struct {
	OutputDir string
	// MaxParallel bounds concurrent transfers, 0 means unbounded
	MaxParallel int
	EventBuffer int
}

// PlaylistResolver expands a playlist URL
type PlaylistResolver interface {
	Resolve(ctx context.Context, url string) (*playlist.Playlist, error)
}

// Service orchestrates download items. State changes are published as
// snapshots on Events; the service never calls into presentation code.
type Service struct {
	opts     Options
	client   extract.Client
	resolver PlaylistResolver
	logger   logrus.FieldLogger

	registry *registry
	rowsMu   sync.Mutex // serializes structural changes (add, remove)
	sem      *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	events    chan model.Event
	closeMu   sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewService creates a new download service
func NewService(opts Options, client extract.Client, logger logrus.FieldLogger) *Service {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		opts:     opts,
		client:   client,
		logger:   logger.WithField("component", "download"),
		registry: newRegistry(),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan model.Event, opts.EventBuffer),
	}
	if opts.MaxParallel > 0 {
		s.sem = semaphore.NewWeighted(int64(opts.MaxParallel))
	}
	return s
}

// SetPlaylistResolver sets the resolver used by AddPlaylist
func (s *Service) SetPlaylistResolver(r PlaylistResolver) {
	s.resolver = r
}

// OutputDir returns the directory downloads are written to
func (s *Service) OutputDir() string {
	return s.opts.OutputDir
}

// Events returns the channel of state changes. It is closed by Close.
func (s *Service) Events() <-chan model.Event {
	return s.events
}

// AddItem appends a new idle row with an empty URL and returns its ID
func (s *Service) AddItem() string {
	s.rowsMu.Lock()
	t := newTask(newItemID())
	s.registry.Add(t)
	s.rowsMu.Unlock()

	metrics.ItemsAdded.Inc()
	s.emit(model.EventAdded, t.snapshot())
	return t.id
}

// AddURLs adds one row per URL and returns the new IDs in order
func (s *Service) AddURLs(urls ...string) []string {
	ids := make([]string, 0, len(urls))
	for _, u := range urls {
		id := s.AddItem()
		// a fresh row is never busy
		_ = s.SetURL(id, u)
		ids = append(ids, id)
	}
	return ids
}

// AddPlaylist resolves a playlist URL and adds one row per video
func (s *Service) AddPlaylist(ctx context.Context, url string) ([]string, error) {
	if s.resolver == nil {
		return nil, ErrNoResolver
	}
	pl, err := s.resolver.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"playlist": pl.ID, "videos": len(pl.Entries)}).Info("adding playlist")
	return s.AddURLs(pl.URLs()...), nil
}

// SetURL stores a new URL for the item and resets it to idle
func (s *Service) SetURL(id, url string) error {
	t, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	var err error
	s.publish(t, model.EventUpdated, func() (item model.DownloadItem, ok bool) {
		item, err = t.setURL(url)
		return item, err == nil
	})
	return err
}

// StartEligible starts every eligible item in insertion order and returns
// how many were started
func (s *Service) StartEligible() int {
	if s.ctx.Err() != nil {
		return 0
	}

	started := 0
	for _, t := range s.registry.All() {
		var (
			run uint64
			url string
		)
		ok := s.publish(t, model.EventUpdated, func() (item model.DownloadItem, ok bool) {
			run, url, item, ok = t.begin()
			return item, ok
		})
		if !ok {
			continue
		}
		started++
		metrics.RunsStarted.Inc()

		s.logger.WithFields(logrus.Fields{"item": t.id, "url": url}).Info("download started")

		s.wg.Add(1)
		go s.execute(t, run, url)
	}
	return started
}

// Cancel requests cancellation of a downloading item
func (s *Service) Cancel(id string) error {
	t, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if s.publish(t, model.EventUpdated, t.requestCancel) {
		s.logger.WithField("item", id).Info("download cancel requested")
	}
	return nil
}

// Remove cancels the item and deletes it. The last remaining row is reset
// to an empty idle row instead.
func (s *Service) Remove(id string) error {
	s.rowsMu.Lock()
	defer s.rowsMu.Unlock()

	t, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if err := s.Cancel(id); err != nil {
		return err
	}

	if s.registry.Count() == 1 {
		s.publish(t, model.EventUpdated, func() (model.DownloadItem, bool) {
			return t.reset(), true
		})
		return nil
	}

	removed := s.publish(t, model.EventRemoved, func() (model.DownloadItem, bool) {
		if _, ok := s.registry.Remove(id); !ok {
			return model.DownloadItem{}, false
		}
		return t.snapshot(), true
	})
	if !removed {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	metrics.ItemsRemoved.Inc()
	return nil
}

// Get returns a snapshot of the item
func (s *Service) Get(id string) (model.DownloadItem, bool) {
	t, ok := s.registry.Get(id)
	if !ok {
		return model.DownloadItem{}, false
	}
	return t.snapshot(), true
}

// Items returns snapshots of all items in insertion order
func (s *Service) Items() []model.DownloadItem {
	tasks := s.registry.All()
	items := make([]model.DownloadItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, t.snapshot())
	}
	return items
}

// Count returns the number of items
func (s *Service) Count() int {
	return s.registry.Count()
}

// HasStartable reports whether StartEligible would start at least one item
func (s *Service) HasStartable() bool {
	for _, t := range s.registry.All() {
		if t.eligible() {
			return true
		}
	}
	return false
}

// AnyDownloading reports whether some item is downloading
func (s *Service) AnyDownloading() bool {
	return s.registry.AnyInStatus(model.StatusDownloading)
}

// Wait blocks until all started workers have exited
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close stops all workers, waits for them and closes the event channel
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()

		s.closeMu.Lock()
		s.closed = true
		close(s.events)
		s.closeMu.Unlock()
	})
}

// execute runs one download attempt on its own goroutine
func (s *Service) execute(t *task, run uint64, url string) {
	defer s.wg.Done()

	metrics.ActiveRuns.Inc()
	started := time.Now()
	log := s.logger.WithFields(logrus.Fields{"item": t.id, "url": url})

	var out outcome
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("extractor panicked")
			out = outcome{err: fmt.Errorf("extractor panic: %v", r)}
		}

		metrics.ActiveRuns.Dec()
		metrics.RunDuration.Observe(time.Since(started).Seconds())
		s.complete(t, run, out, log)
	}()

	out = s.transfer(t, run, url, log)
}

// transfer performs metadata lookup, the existence check and the transfer
func (s *Service) transfer(t *task, run uint64, url string, log logrus.FieldLogger) outcome {
	if s.sem != nil {
		if err := s.sem.Acquire(s.ctx, 1); err != nil {
			return outcome{err: fmt.Errorf("%w: %v", extract.ErrCancelled, err)}
		}
		defer s.sem.Release(1)
	}
	if t.shouldStop(run) {
		return outcome{err: extract.ErrCancelled}
	}

	meta, err := s.client.FetchMetadata(s.ctx, url)
	if err != nil {
		metrics.MetadataFailures.Inc()
		return s.failure(err)
	}
	s.publish(t, model.EventUpdated, func() (model.DownloadItem, bool) {
		return t.setTitle(run, meta.Title)
	})

	ext := meta.Ext
	if ext == "" {
		ext = platform.DefaultExtension
	}
	expected := platform.ExpectedPath(s.opts.OutputDir, meta.Title, ext)

	exists, err := platform.FileExists(expected)
	if err != nil {
		return outcome{err: err}
	}
	if exists {
		log.WithField("file", expected).Info("output already exists")
		return outcome{exists: true, expected: expected}
	}

	if t.shouldStop(run) {
		return outcome{err: extract.ErrCancelled}
	}
	if err := platform.CreateDirectoryIfNotExists(s.opts.OutputDir); err != nil {
		return outcome{err: err}
	}

	template := platform.OutputTemplate(s.opts.OutputDir, meta.Title)
	if err := s.client.Download(s.ctx, url, template, s.progressFunc(t, run)); err != nil {
		return s.failure(err)
	}
	return outcome{expected: expected}
}

// failure maps a shutdown of the service to cancellation
func (s *Service) failure(err error) outcome {
	if s.ctx.Err() != nil {
		return outcome{err: fmt.Errorf("%w: %v", extract.ErrCancelled, err)}
	}
	return outcome{err: err}
}

// progressFunc adapts extractor reports to item updates for one run
func (s *Service) progressFunc(t *task, run uint64) extract.ProgressFunc {
	return func(p extract.Progress) error {
		if t.shouldStop(run) {
			return extract.ErrCancelled
		}
		s.publish(t, model.EventUpdated, func() (model.DownloadItem, bool) {
			return t.applyProgress(run, p)
		})
		return nil
	}
}

// complete records the outcome and publishes it
func (s *Service) complete(t *task, run uint64, out outcome, log logrus.FieldLogger) {
	t.pub.Lock()
	defer t.pub.Unlock()

	item, dup, ok := t.finish(run, out)
	if !ok {
		log.Debug("dropping result of a superseded run")
		// The item may only now be startable again
		if item, live := t.released(); live {
			s.emit(model.EventUpdated, item)
		}
		return
	}

	metrics.RunsFinished.WithLabelValues(item.Status.String()).Inc()

	entry := log.WithField("status", item.Status)
	switch item.Status {
	case model.StatusError:
		entry.WithError(out.err).WithField("reason", item.Error).Warn("download failed")
	default:
		entry.Info("download finished")
	}

	s.emit(model.EventUpdated, item)
	if dup {
		s.emit(model.EventDuplicate, item)
	}
}

// publish applies change and emits its result under the task's publication
// lock, so the events of one item leave in the order its state changed. It
// reports whether change produced an event.
func (s *Service) publish(t *task, kind model.EventKind, change func() (model.DownloadItem, bool)) bool {
	t.pub.Lock()
	defer t.pub.Unlock()

	item, ok := change()
	if ok {
		s.emit(kind, item)
	}
	return ok
}

// emit publishes an event. It blocks while the buffer is full and gives up
// once the service is closing.
func (s *Service) emit(kind model.EventKind, item model.DownloadItem) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.events <- model.Event{Kind: kind, Item: item}:
	case <-s.ctx.Done():
	}
}

// newItemID generates a unique item ID using UUID v7
func newItemID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(ItemIDPrefix+"%d", time.Now().UnixNano())
	}
	return ItemIDPrefix + id.String()
}
