package ui

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-multiloader/internal/config"
	"github.com/ytget/yt-multiloader/internal/download"
	"github.com/ytget/yt-multiloader/internal/model"
	"github.com/ytget/yt-multiloader/internal/playlist"
	"github.com/ytget/yt-multiloader/internal/validate"
)

var errNotPlaylist = errors.New("not a playlist URL")

// RootUI represents the main UI structure
type RootUI struct {
	app      fyne.App
	window   fyne.Window
	svc      download.Downloader
	settings *config.Settings
	logger   logrus.FieldLogger

	// rows and gone are only touched on the Fyne goroutine
	rows map[string]*ItemRow
	gone map[string]struct{}
	list *fyne.Container

	addBtn      *widget.Button
	playlistBtn *widget.Button
	downloadBtn *widget.Button
	noticeLabel *widget.Label
	noticeTimer *time.Timer
}

// NewRootUI creates the main window content and starts consuming service
// events. The service must outlive the window.
func NewRootUI(app fyne.App, window fyne.Window, svc download.Downloader, settings *config.Settings, logger logrus.FieldLogger) *RootUI {
	ui := &RootUI{
		app:      app,
		window:   window,
		svc:      svc,
		settings: settings,
		logger:   logger.WithField("component", "ui"),
		rows:     make(map[string]*ItemRow),
		gone:     make(map[string]struct{}),
	}

	ui.setupUI()

	for _, item := range svc.Items() {
		ui.upsertRow(item)
	}
	if svc.Count() == 0 {
		svc.AddItem()
	}
	ui.refreshButtons()

	go ui.consume(svc.Events())
	return ui
}

func (ui *RootUI) setupUI() {
	ui.createMenu()

	ui.list = container.NewVBox()

	ui.addBtn = widget.NewButton(LabelAddRow, ui.onAddRow)
	ui.addBtn.Importance = widget.LowImportance

	ui.playlistBtn = widget.NewButton(LabelAddPlaylist, ui.onAddPlaylist)
	ui.playlistBtn.Importance = widget.LowImportance

	ui.downloadBtn = widget.NewButton(LabelDownload, ui.onDownloadClick)
	ui.downloadBtn.Importance = widget.HighImportance

	settingsBtn := widget.NewButton(IconSettings, ui.onShowSettings)
	settingsBtn.Importance = widget.LowImportance

	folderBtn := widget.NewButton(LabelOpenFolder, ui.onOpenFolder)
	folderBtn.Importance = widget.LowImportance

	dirLabel := widget.NewLabel(ui.svc.OutputDir())
	dirLabel.Truncation = fyne.TextTruncateEllipsis

	ui.noticeLabel = widget.NewLabel("")
	ui.noticeLabel.Importance = widget.HighImportance
	ui.noticeLabel.Hide()

	header := container.NewBorder(nil, nil, nil, settingsBtn, widget.NewLabelWithStyle(AppTitle, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	rows := container.NewVBox(ui.list, container.NewHBox(ui.addBtn, ui.playlistBtn))
	footer := container.NewVBox(
		ui.noticeLabel,
		ui.downloadBtn,
		container.NewBorder(nil, nil, nil, folderBtn, dirLabel),
	)

	ui.window.SetContent(container.NewBorder(header, footer, nil, nil, container.NewVScroll(rows)))
	ui.window.Resize(fyne.NewSize(WindowWidth, WindowHeight))
}

func (ui *RootUI) createMenu() {
	settingsItem := fyne.NewMenuItem("Settings", ui.onShowSettings)
	folderItem := fyne.NewMenuItem("Open download folder", ui.onOpenFolder)
	ui.window.SetMainMenu(fyne.NewMainMenu(fyne.NewMenu("File", folderItem, settingsItem)))
}

// consume applies service events until the channel is closed
func (ui *RootUI) consume(events <-chan model.Event) {
	for ev := range events {
		fyne.Do(func() {
			ui.apply(ev)
		})
	}
	ui.logger.Debug("event stream closed")
}

func (ui *RootUI) apply(ev model.Event) {
	// ids are never reused, so nothing may bring back a removed row
	if _, ok := ui.gone[ev.Item.ID]; ok {
		return
	}
	switch ev.Kind {
	case model.EventAdded, model.EventUpdated:
		ui.upsertRow(ev.Item)
	case model.EventRemoved:
		ui.gone[ev.Item.ID] = struct{}{}
		if row, ok := ui.rows[ev.Item.ID]; ok {
			ui.list.Remove(row)
			delete(ui.rows, ev.Item.ID)
		}
	case model.EventDuplicate:
		dialog.ShowInformation(LabelAlreadyExists, ev.Item.GetDisplayTitle(), ui.window)
	}
	ui.refreshButtons()
}

func (ui *RootUI) upsertRow(item model.DownloadItem) {
	if row, ok := ui.rows[item.ID]; ok {
		row.Update(item)
		return
	}
	row := NewItemRow(item)
	row.SetCallbacks(ui.onURLChanged, ui.onCancel, ui.onRemove)
	ui.rows[item.ID] = row
	ui.list.Add(row)
}

// refreshButtons mirrors service state in the bottom bar
func (ui *RootUI) refreshButtons() {
	if ui.svc.HasStartable() {
		ui.downloadBtn.Enable()
	} else {
		ui.downloadBtn.Disable()
	}
	if ui.svc.AnyDownloading() {
		ui.downloadBtn.SetText(LabelDownloading)
	} else {
		ui.downloadBtn.SetText(LabelDownload)
	}
}

func (ui *RootUI) onURLChanged(id, text string) {
	if err := ui.svc.SetURL(id, text); err != nil {
		ui.logger.WithError(err).WithField("item", id).Debug("url change rejected")
	}
}

func (ui *RootUI) onCancel(id string) {
	if err := ui.svc.Cancel(id); err != nil {
		ui.logger.WithError(err).WithField("item", id).Warn("cancel failed")
	}
}

func (ui *RootUI) onRemove(id string) {
	if err := ui.svc.Remove(id); err != nil {
		ui.logger.WithError(err).WithField("item", id).Warn("remove failed")
	}
}

func (ui *RootUI) onAddRow() {
	ui.svc.AddItem()
}

func (ui *RootUI) onDownloadClick() {
	n := ui.svc.StartEligible()
	ui.logger.WithField("started", n).Info("download requested")
}

func (ui *RootUI) onAddPlaylist() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder(PlaylistPlaceholder)
	entry.Validator = func(text string) error {
		if !playlist.IsPlaylistURL(text) {
			return errNotPlaylist
		}
		return nil
	}

	items := []*widget.FormItem{widget.NewFormItem("URL", entry)}
	dialog.ShowForm(LabelAddPlaylist, "Add", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		ui.playlistBtn.Disable()
		link := entry.Text
		go func() {
			ids, err := ui.svc.AddPlaylist(context.Background(), link)
			fyne.Do(func() {
				ui.playlistBtn.Enable()
				if err != nil {
					ui.logger.WithError(err).Warn("playlist resolution failed")
					dialog.ShowError(err, ui.window)
					return
				}
				ui.showNotice(playlistNotice(len(ids)))
			})
		}()
	}, ui.window)
}

func (ui *RootUI) onShowSettings() {
	NewSettingsDialog(ui.settings, ui.window, func() {
		ui.showNotice("Settings saved. Restart to apply.")
	}).Show()
}

func (ui *RootUI) onOpenFolder() {
	dir, err := filepath.Abs(ui.svc.OutputDir())
	if err != nil {
		dir = ui.svc.OutputDir()
	}
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(dir)}
	if err := ui.app.OpenURL(u); err != nil {
		ui.logger.WithError(err).Warn("open folder failed")
		dialog.ShowError(err, ui.window)
	}
}

// showNotice shows msg under the rows and hides it after a while
func (ui *RootUI) showNotice(msg string) {
	ui.noticeLabel.SetText(msg)
	ui.noticeLabel.Show()
	if ui.noticeTimer != nil {
		ui.noticeTimer.Stop()
	}
	ui.noticeTimer = time.AfterFunc(NoticeAutoHide, func() {
		fyne.Do(ui.noticeLabel.Hide)
	})
}

func playlistNotice(n int) string {
	if n == 1 {
		return "Added 1 video from playlist"
	}
	return "Added " + strconv.Itoa(n) + " videos from playlist"
}

func validateEntry(text string) error {
	if ok, reason := validate.URL(text); !ok && reason != "" {
		return errors.New(reason)
	}
	return nil
}
