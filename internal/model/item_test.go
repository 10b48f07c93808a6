package model

import "testing"

func TestDownloadItem_Percent(t *testing.T) {
	tests := []struct {
		progress float64
		expected int
	}{
		{-5, 0},
		{0, 0},
		{42.9, 42},
		{100, 100},
		{130, 100},
	}

	for _, test := range tests {
		item := DownloadItem{Progress: test.progress}
		result := item.Percent()
		if result != test.expected {
			t.Errorf("Percent() with Progress=%.1f = %d, expected %d", test.progress, result, test.expected)
		}
	}
}

func TestDownloadItem_GetDisplayTitle(t *testing.T) {
	tests := []struct {
		title    string
		filename string
		url      string
		expected string
	}{
		{"Video Title", "", "https://youtu.be/dQw4w9WgXcQ", "Video Title"},
		{"", "/home/me/Downloads/Test Video.mp4", "https://youtu.be/dQw4w9WgXcQ", "Test Video"},
		{"", `C:\Users\me\Downloads\Clip.webm`, "https://youtu.be/dQw4w9WgXcQ", "Clip"},
		{"", "", "https://youtu.be/dQw4w9WgXcQ", "https://youtu.be/dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "", "https://youtu.be/dQw4w9WgXcQ", "https://youtu.be/dQw4w9WgXcQ"},
		{"", "", "", ""},
	}

	for _, test := range tests {
		item := DownloadItem{
			Title:    test.title,
			Filename: test.filename,
			URL:      test.url,
		}
		result := item.GetDisplayTitle()
		if result != test.expected {
			t.Errorf("GetDisplayTitle() with title='%s', filename='%s', url='%s' = '%s', expected '%s'",
				test.title, test.filename, test.url, result, test.expected)
		}
	}
}
