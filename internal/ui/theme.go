package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/yt-multiloader/internal/model"
)

// Palette used for item states
var (
	ColorCompleted = color.NRGBA{R: 0x10, G: 0xB9, B: 0x81, A: 0xFF}
	ColorExists    = color.NRGBA{R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF}
	ColorFailed    = color.NRGBA{R: 0xEF, G: 0x44, B: 0x44, A: 0xFF}
	ColorIdle      = color.NRGBA{R: 0xE5, G: 0xE7, B: 0xEB, A: 0xFF}
)

// Theme tints the default theme with the item state palette and tightens
// padding so more rows fit.
type Theme struct{}

// NewTheme creates the application theme
func NewTheme() fyne.Theme {
	return &Theme{}
}

func (t *Theme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameSuccess:
		return ColorCompleted
	case theme.ColorNameError:
		return ColorFailed
	case theme.ColorNamePrimary:
		return ColorExists
	}
	return theme.DefaultTheme().Color(name, variant)
}

func (t *Theme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *Theme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *Theme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 3
	case theme.SizeNameInnerPadding:
		return 6
	case theme.SizeNameText:
		return 13
	case theme.SizeNameCaptionText:
		return 10
	}
	return theme.DefaultTheme().Size(name)
}

// StatusColor returns the border color of a row in status s
func StatusColor(s model.Status) color.Color {
	switch s {
	case model.StatusCompleted:
		return ColorCompleted
	case model.StatusExists:
		return ColorExists
	case model.StatusError, model.StatusDownloading:
		return ColorFailed
	default:
		return ColorIdle
	}
}

// StatusImportance maps s to the label importance used for the title
func StatusImportance(s model.Status) widget.Importance {
	switch s {
	case model.StatusCompleted:
		return widget.SuccessImportance
	case model.StatusExists:
		return widget.HighImportance
	case model.StatusError:
		return widget.DangerImportance
	default:
		return widget.MediumImportance
	}
}
