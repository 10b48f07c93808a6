package ui

import (
	"errors"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/yt-multiloader/internal/config"
)

var errParallelRange = errors.New("enter a number from 0 to 32")

// SettingsDialog edits the stored preferences. New values take effect on
// the next start because the running service keeps its configuration.
type SettingsDialog struct {
	settings *config.Settings
	window   fyne.Window
	dialog   *dialog.ConfirmDialog
	onSaved  func()

	// UI components
	downloadDirEntry *widget.Entry
	maxParallelEntry *widget.Entry
	extractorSelect  *widget.Select
	formatEntry      *widget.Entry
}

// NewSettingsDialog creates a new settings dialog
func NewSettingsDialog(settings *config.Settings, window fyne.Window, onSaved func()) *SettingsDialog {
	sd := &SettingsDialog{
		settings: settings,
		window:   window,
		onSaved:  onSaved,
	}

	sd.createUI()
	return sd
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

func (sd *SettingsDialog) createUI() {
	sd.downloadDirEntry = widget.NewEntry()
	sd.downloadDirEntry.SetPlaceHolder("Download directory path")

	browseDirBtn := widget.NewButton("Browse", sd.onBrowseDirectory)
	downloadDirRow := container.NewBorder(nil, nil, nil, browseDirBtn, sd.downloadDirEntry)

	sd.maxParallelEntry = widget.NewEntry()
	sd.maxParallelEntry.SetPlaceHolder("0 = unlimited")
	sd.maxParallelEntry.Validator = validateParallel

	sd.extractorSelect = widget.NewSelect(sd.settings.GetExtractorOptions(), nil)

	sd.formatEntry = widget.NewEntry()
	sd.formatEntry.SetPlaceHolder(config.DefaultFormat)

	form := container.NewVBox(
		widget.NewLabel("Download Directory:"),
		downloadDirRow,

		widget.NewLabel("Max Parallel Downloads:"),
		sd.maxParallelEntry,

		widget.NewLabel("Extractor:"),
		sd.extractorSelect,

		widget.NewLabel("Format:"),
		sd.formatEntry,

		widget.NewSeparator(),
		widget.NewLabel("Changes apply after restart."),
	)

	sd.dialog = dialog.NewCustomConfirm(
		"Settings",
		"Save",
		"Cancel",
		form,
		sd.onSave,
		sd.window,
	)

	sd.dialog.Resize(fyne.NewSize(500, 380))
}

func (sd *SettingsDialog) loadCurrentSettings() {
	sd.downloadDirEntry.SetText(sd.settings.GetDownloadDirectory())
	sd.maxParallelEntry.SetText(strconv.Itoa(sd.settings.GetMaxParallelDownloads()))
	sd.extractorSelect.SetSelected(sd.settings.GetExtractor())
	sd.formatEntry.SetText(sd.settings.GetFormat())
}

func (sd *SettingsDialog) onBrowseDirectory() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		sd.downloadDirEntry.SetText(uri.Path())
	}, sd.window)
}

func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}

	if dir := sd.downloadDirEntry.Text; dir != "" {
		sd.settings.SetDownloadDirectory(dir)
	}

	if validateParallel(sd.maxParallelEntry.Text) == nil {
		n, _ := strconv.Atoi(sd.maxParallelEntry.Text)
		sd.settings.SetMaxParallelDownloads(n)
	}

	if sd.extractorSelect.Selected != "" {
		sd.settings.SetExtractor(sd.extractorSelect.Selected)
	}

	sd.settings.SetFormat(sd.formatEntry.Text)

	if sd.onSaved != nil {
		sd.onSaved()
	}
}

func validateParallel(text string) error {
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 || n > config.MaxParallelLimit {
		return errParallelRange
	}
	return nil
}
