package model

import (
	"path/filepath"
	"strings"
)

// DownloadItem is a point-in-time view of one user-submitted URL row
type DownloadItem struct {
	ID        string  `json:"id"`
	URL       string  `json:"url"`
	Status    Status  `json:"status"`
	Progress  float64 `json:"progress"`           // 0 to 100
	Title     string  `json:"title,omitempty"`    // resolved video title
	Filename  string  `json:"filename,omitempty"` // resolved output path
	Error     string  `json:"error,omitempty"`    // classified error, only with StatusError
	Invalid   string  `json:"invalid,omitempty"`  // inline validation reason for URL
	Cancelled bool    `json:"cancelled,omitempty"`
}

// Percent returns progress rounded down to a whole percentage in [0,100]
func (it DownloadItem) Percent() int {
	p := int(it.Progress)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// GetDisplayTitle returns title, file name, or URL in order of preference
func (it DownloadItem) GetDisplayTitle() string {
	if it.Title != "" && !strings.HasPrefix(it.Title, "http") {
		return it.Title
	}

	if it.Filename != "" {
		// Support both separators, output paths may come from another OS
		name := filepath.Base(strings.ReplaceAll(it.Filename, "\\", "/"))
		if idx := strings.LastIndex(name, "."); idx > 0 {
			name = name[:idx]
		}
		if name != "" && name != "." && name != "/" {
			return name
		}
	}

	return it.URL
}
