package ui

import "time"

// UI-wide constants to avoid magic numbers/strings scattered across the codebase.

// Icons (emojis/symbols)
const (
	IconSettings = "⚙"
	IconFolder   = "📁"
	IconDone     = "✓"
	IconExists   = "📦"
	IconError    = "❌"
	IconClose    = "×"
	IconStop     = "⏹"
)

// Text fragments
const (
	AppTitle            = "YT Multiloader"
	ProgressLabelFormat = "%d%%"
	URLPlaceholder      = "https://www.youtube.com/watch?v=..."
	PlaylistPlaceholder = "https://www.youtube.com/playlist?list=..."

	LabelAddRow        = "+ Add URL"
	LabelAddPlaylist   = "Add playlist"
	LabelDownload      = "Download"
	LabelDownloading   = "Downloading..."
	LabelOpenFolder    = IconFolder + " Open folder"
	LabelAlreadyExists = "Already downloaded"
	PrefixExists       = IconExists + " Already downloaded: "
)

// Layout sizing
const (
	WindowWidth  float32 = 720
	WindowHeight float32 = 560

	PercentLabelWidth float32 = 48
	ButtonWidth       float32 = 36
)

// Notices
const (
	NoticeAutoHide = 4 * time.Second
)
