package main

import (
	"context"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/ytget/yt-multiloader/internal/model"
)

// Result line markers
const (
	markCompleted = "✓"
	markExists    = "="
	markFailed    = "✗"
	markCancelled = "-"
)

// runner drains service events from the moment items are added. Once it is
// told which items were started it drives the aggregate progress bar and
// prints one line per finished item.
type runner struct {
	out    io.Writer
	barOut io.Writer
	bar    *progressbar.ProgressBar

	latest   map[string]model.DownloadItem
	pending  map[string]struct{}
	progress map[string]float64
	failed   int
}

func newRunner(out, barOut io.Writer) *runner {
	return &runner{
		out:    out,
		barOut: barOut,
		latest: make(map[string]model.DownloadItem),
	}
}

// run consumes events until every tracked item is terminal, the channel
// closes or ctx is done. It returns false when the batch did not finish.
func (r *runner) run(ctx context.Context, events <-chan model.Event, tracked <-chan []string) bool {
	for r.pending == nil || len(r.pending) > 0 {
		select {
		case <-ctx.Done():
			r.clearBar()
			return false
		case ids := <-tracked:
			tracked = nil
			r.track(ids)
		case ev, ok := <-events:
			if !ok {
				r.clearBar()
				return r.pending != nil && len(r.pending) == 0
			}
			r.handle(ev)
		}
	}
	_ = r.bar.Finish()
	return true
}

func (r *runner) track(ids []string) {
	r.pending = make(map[string]struct{}, len(ids))
	r.progress = make(map[string]float64, len(ids))
	r.bar = progressbar.NewOptions64(int64(len(ids))*100,
		progressbar.OptionSetWriter(r.barOut),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%d video(s)[reset]", len(ids))),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	for _, id := range ids {
		r.pending[id] = struct{}{}
		r.progress[id] = 0
	}
	// Events for these items may have been drained before the ids arrived
	for _, id := range ids {
		if item, ok := r.latest[id]; ok {
			r.handle(model.Event{Kind: model.EventUpdated, Item: item})
		}
	}
}

func (r *runner) handle(ev model.Event) {
	if ev.Kind == model.EventRemoved {
		delete(r.latest, ev.Item.ID)
		return
	}
	item := ev.Item
	r.latest[item.ID] = item

	if _, ok := r.pending[item.ID]; !ok {
		return
	}

	// Ignore the idle snapshots queued before the item was started
	if !item.Status.IsActive() && !item.Status.IsTerminal() {
		return
	}

	r.progress[item.ID] = item.Progress
	if item.Status.IsTerminal() {
		r.progress[item.ID] = 100
		delete(r.pending, item.ID)
		r.clearBar()
		r.report(item)
	}

	var sum float64
	for _, p := range r.progress {
		sum += p
	}
	_ = r.bar.Set64(int64(sum))
}

func (r *runner) clearBar() {
	if r.bar != nil {
		_ = r.bar.Clear()
	}
}

func (r *runner) report(item model.DownloadItem) {
	switch item.Status {
	case model.StatusCompleted:
		fmt.Fprintf(r.out, "%s %s -> %s\n", markCompleted, item.GetDisplayTitle(), item.Filename)
	case model.StatusExists:
		fmt.Fprintf(r.out, "%s %s (already downloaded) %s\n", markExists, item.GetDisplayTitle(), item.Filename)
	case model.StatusError:
		r.failed++
		fmt.Fprintf(r.out, "%s %s: %s\n", markFailed, item.URL, item.Error)
	case model.StatusCancelled:
		fmt.Fprintf(r.out, "%s %s: cancelled\n", markCancelled, item.URL)
	}
}

// reportInvalid prints items whose URL was rejected before starting and
// returns how many there were
func reportInvalid(out io.Writer, items []model.DownloadItem) int {
	n := 0
	for _, item := range items {
		if item.Invalid == "" {
			continue
		}
		n++
		fmt.Fprintf(out, "%s %s: %s\n", markFailed, item.URL, item.Invalid)
	}
	return n
}
