package ui

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/yt-multiloader/internal/model"
)

// ItemRow renders one download item: URL entry, title, progress and actions
type ItemRow struct {
	widget.BaseWidget

	item model.DownloadItem

	// UI components
	frame        *canvas.Rectangle
	urlEntry     *widget.Entry
	titleLabel   *widget.Label
	fileLabel    *widget.Label
	errorLabel   *widget.Label
	progressBar  *widget.ProgressBar
	percentLabel *widget.Label
	progressRow  *fyne.Container

	cancelBtn *widget.Button
	removeBtn *widget.Button

	// Callbacks
	onURLChanged func(id, url string)
	onCancel     func(id string)
	onRemove     func(id string)
}

// NewItemRow creates a row for item
func NewItemRow(item model.DownloadItem) *ItemRow {
	r := &ItemRow{item: item}
	r.ExtendBaseWidget(r)
	r.createUI()
	r.Update(item)
	return r
}

// SetCallbacks sets the action callbacks
func (r *ItemRow) SetCallbacks(onURLChanged func(id, url string), onCancel, onRemove func(id string)) {
	r.onURLChanged = onURLChanged
	r.onCancel = onCancel
	r.onRemove = onRemove
}

// ID returns the item ID the row renders
func (r *ItemRow) ID() string {
	return r.item.ID
}

func (r *ItemRow) createUI() {
	r.frame = canvas.NewRectangle(color.Transparent)
	r.frame.StrokeWidth = 1
	r.frame.CornerRadius = 6

	r.urlEntry = widget.NewEntry()
	r.urlEntry.SetPlaceHolder(URLPlaceholder)
	r.urlEntry.Validator = validateEntry
	r.urlEntry.SetText(r.item.URL)
	r.urlEntry.OnChanged = func(text string) {
		// Update re-enters here through SetText; only user edits matter
		if text == r.item.URL || r.onURLChanged == nil {
			return
		}
		r.onURLChanged(r.item.ID, text)
	}

	r.titleLabel = widget.NewLabel("")
	r.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	r.titleLabel.Truncation = fyne.TextTruncateEllipsis

	r.fileLabel = widget.NewLabel("")
	r.fileLabel.Truncation = fyne.TextTruncateEllipsis

	r.errorLabel = widget.NewLabel("")
	r.errorLabel.Importance = widget.DangerImportance
	r.errorLabel.Wrapping = fyne.TextWrapWord

	r.progressBar = widget.NewProgressBar()
	r.progressBar.Max = 100
	r.progressBar.TextFormatter = func() string { return "" }
	r.percentLabel = widget.NewLabel("")
	r.percentLabel.Alignment = fyne.TextAlignTrailing
	r.progressRow = container.NewBorder(nil, nil, nil, r.percentLabel, r.progressBar)

	r.cancelBtn = widget.NewButton(IconStop, func() {
		if r.onCancel != nil {
			r.onCancel(r.item.ID)
		}
	})
	r.cancelBtn.Importance = widget.DangerImportance

	r.removeBtn = widget.NewButton(IconClose, func() {
		if r.onRemove != nil {
			r.onRemove(r.item.ID)
		}
	})
	r.removeBtn.Importance = widget.LowImportance
}

// CreateRenderer implements fyne.Widget
func (r *ItemRow) CreateRenderer() fyne.WidgetRenderer {
	actions := container.NewHBox(r.cancelBtn, r.removeBtn)
	top := container.NewBorder(nil, nil, nil, actions, r.urlEntry)
	body := container.NewVBox(top, r.titleLabel, r.fileLabel, r.progressRow, r.errorLabel)
	return widget.NewSimpleRenderer(container.NewStack(r.frame, container.NewPadded(body)))
}

// Update renders item; must run on the Fyne goroutine
func (r *ItemRow) Update(item model.DownloadItem) {
	r.item = item
	status := item.Status
	busy := status.IsActive()
	done := status.IsDone()

	// The entry owns the text while the user types; the service only
	// clears it on reset
	if item.URL == "" && r.urlEntry.Text != "" {
		r.urlEntry.SetText("")
	}
	if busy || done {
		r.urlEntry.Disable()
	} else {
		r.urlEntry.Enable()
	}

	title := item.Title
	switch status {
	case model.StatusCompleted:
		title = IconDone + " " + item.Title
	case model.StatusExists:
		title = PrefixExists + item.Title
	}
	r.titleLabel.Importance = StatusImportance(status)
	r.titleLabel.SetText(title)
	showIf(r.titleLabel, item.Title != "" && (busy || done))

	if done && item.Filename != "" {
		r.fileLabel.SetText(IconFolder + " " + item.Filename)
		r.fileLabel.Show()
	} else {
		r.fileLabel.Hide()
	}

	r.progressBar.SetValue(item.Progress)
	r.percentLabel.SetText(fmt.Sprintf(ProgressLabelFormat, item.Percent()))
	showIf(r.progressRow, busy)

	msg := item.Error
	if msg == "" {
		msg = item.Invalid
	}
	r.errorLabel.SetText(msg)
	showIf(r.errorLabel, msg != "")

	showIf(r.cancelBtn, busy)
	showIf(r.removeBtn, !busy)

	r.frame.StrokeColor = StatusColor(status)
	if status == model.StatusIdle || status == model.StatusCancelled {
		r.frame.StrokeWidth = 1
	} else {
		r.frame.StrokeWidth = 2
	}
	r.frame.Refresh()
	r.Refresh()
}

func showIf(obj fyne.CanvasObject, visible bool) {
	if visible {
		obj.Show()
	} else {
		obj.Hide()
	}
}
