package download

import (
	"sync"
	"sync/atomic"

	"github.com/ytget/yt-multiloader/internal/extract"
	"github.com/ytget/yt-multiloader/internal/model"
	"github.com/ytget/yt-multiloader/internal/platform"
	"github.com/ytget/yt-multiloader/internal/validate"
)

// task owns the mutable state of one item. Every mutation made on behalf of
// a worker carries the run number it was started with and is dropped when
// the item has since been reset or restarted.
type task struct {
	id      string
	mu      sync.Mutex
	pub     sync.Mutex // held from a state change until its event is sent
	item    model.DownloadItem
	run     uint64
	running bool // a worker goroutine has not exited yet
	removed bool

	cancel atomic.Bool
}

// outcome is what a worker hands back when it is done
type outcome struct {
	exists   bool
	expected string
	err      error
}

func newTask(id string) *task {
	return &task{id: id, item: model.DownloadItem{ID: id, Status: model.StatusIdle}}
}

// snapshot returns a copy safe to hand to consumers
func (t *task) snapshot() model.DownloadItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *task) snapshotLocked() model.DownloadItem {
	it := t.item
	it.Cancelled = t.cancel.Load()
	return it
}

// setURL stores url and resets the item to a fresh idle row
func (t *task) setURL(url string) (model.DownloadItem, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.item.Status.IsActive() {
		return model.DownloadItem{}, ErrItemBusy
	}
	_, reason := validate.URL(url)
	t.resetLocked(url, reason)
	return t.snapshotLocked(), nil
}

// reset clears every field including the URL
func (t *task) reset() model.DownloadItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked("", "")
	return t.snapshotLocked()
}

func (t *task) resetLocked(url, invalid string) {
	t.item = model.DownloadItem{
		ID:      t.id,
		URL:     url,
		Status:  model.StatusIdle,
		Invalid: invalid,
	}
	t.cancel.Store(false)
	t.run++
}

// eligibleLocked reports whether a new run may begin
func (t *task) eligibleLocked() bool {
	if t.running || !t.item.Status.CanStart() {
		return false
	}
	ok, _ := validate.URL(t.item.URL)
	return ok
}

func (t *task) eligible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.eligibleLocked()
}

// begin moves an eligible item to downloading and returns the new run number
func (t *task) begin() (uint64, string, model.DownloadItem, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.eligibleLocked() {
		return 0, "", model.DownloadItem{}, false
	}
	t.run++
	t.running = true
	t.cancel.Store(false)
	t.item.Status = model.StatusDownloading
	t.item.Progress = 0
	t.item.Filename = ""
	t.item.Error = ""
	return t.run, t.item.URL, t.snapshotLocked(), true
}

// shouldStop reports whether the worker of run must abort
func (t *task) shouldStop(run uint64) bool {
	if t.cancel.Load() {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run != run
}

// requestCancel sets the cancel flag of a downloading item and marks it
// cancelled right away. Idle and terminal items are left alone.
func (t *task) requestCancel() (model.DownloadItem, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.item.Status.IsActive() {
		return model.DownloadItem{}, false
	}
	t.cancel.Store(true)
	t.item.Status = model.StatusCancelled
	return t.snapshotLocked(), true
}

// retire sets the cancel flag and supersedes the current run, so a worker
// still running for a removed item can no longer record a result
func (t *task) retire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel.Store(true)
	t.removed = true
	t.run++
}

// released returns a snapshot for a live item after a superseded worker
// exited. Removed items yield nothing.
func (t *task) released() (model.DownloadItem, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.removed {
		return model.DownloadItem{}, false
	}
	return t.snapshotLocked(), true
}

// update applies fn while the item is downloading in run
func (t *task) update(run uint64, fn func(it *model.DownloadItem) bool) (model.DownloadItem, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.run != run || !t.item.Status.IsActive() {
		return model.DownloadItem{}, false
	}
	if !fn(&t.item) {
		return model.DownloadItem{}, false
	}
	return t.snapshotLocked(), true
}

// setTitle records the resolved title
func (t *task) setTitle(run uint64, title string) (model.DownloadItem, bool) {
	return t.update(run, func(it *model.DownloadItem) bool {
		if it.Title == title {
			return false
		}
		it.Title = title
		return true
	})
}

// applyProgress folds one extractor report into the item. Progress never
// decreases and stays within [0,100].
func (t *task) applyProgress(run uint64, p extract.Progress) (model.DownloadItem, bool) {
	return t.update(run, func(it *model.DownloadItem) bool {
		switch p.Phase {
		case extract.PhaseDownloading:
			if p.TotalBytes <= 0 {
				return false
			}
			pct := clampPercent(float64(p.DownloadedBytes) / float64(p.TotalBytes) * 100)
			if pct <= it.Progress {
				return false
			}
			it.Progress = pct
			return true
		case extract.PhaseFinished:
			it.Progress = 100
			if it.Filename == "" {
				it.Filename = p.Filename
			}
			if it.Title == "" && p.Filename != "" {
				it.Title = platform.FileStem(p.Filename)
			}
			return true
		}
		return false
	})
}

// finish records the final state of run and releases the item for new runs.
// dup is true when the result is a fresh duplicate notice.
func (t *task) finish(run uint64, out outcome) (item model.DownloadItem, dup bool, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = false
	if t.run != run {
		return model.DownloadItem{}, false, false
	}

	switch {
	case t.cancel.Load():
		t.item.Status = model.StatusCancelled
	case out.err != nil && extract.IsCancelled(out.err):
		t.item.Status = model.StatusCancelled
	case out.err != nil:
		t.item.Status = model.StatusError
		t.item.Error = ClassifyError(out.err)
	case out.exists:
		t.item.Status = model.StatusExists
		t.item.Progress = 100
		t.item.Filename = out.expected
		dup = true
	default:
		t.item.Status = model.StatusCompleted
		t.item.Progress = 100
		if t.item.Filename == "" {
			t.item.Filename = out.expected
		}
	}
	return t.snapshotLocked(), dup, true
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
