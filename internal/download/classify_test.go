package download

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	longPath := "ERROR: unable to open for writing: [Errno 2] No such file or directory: '/nonexistent/dir/Test Video.mp4'"

	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"sign in", "ERROR: Sign in to confirm your age", MsgAuthRequired},
		{"login lowercase", "LOGIN required", MsgAuthRequired},
		{"unavailable", "ERROR: Video unavailable", MsgUnavailable},
		{"private", "ERROR: [youtube] abc: Private video", MsgPrivate},
		{"cookie", "failed to load Cookie database", MsgCookieStore},
		{"no such file", longPath, MsgPathPrefix + string([]rune(longPath)[:50])},
		{"path lowercase", "bad Path", MsgPathPrefix + "bad Path"},
		{"blocked", "The uploader has not made this video available in your country; blocked", MsgGeoBlocked},
		{"geo", "geo restriction", MsgGeoBlocked},
		{"fallback", "something odd happened", "something odd happened"},
		{"empty", "", ""},
		// rule order: auth wins over private, unavailable wins over private
		{"auth before private", "Sign in, this is a private video", MsgAuthRequired},
		{"unavailable before private", "private video unavailable", MsgUnavailable},
		{"cookie before path", "cookie path broken", MsgCookieStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.raw))
		})
	}
}

func TestClassifyTruncatesRunes(t *testing.T) {
	raw := strings.Repeat("ж", 150)
	got := Classify(raw)
	assert.Equal(t, 100, len([]rune(got)))
	assert.Equal(t, strings.Repeat("ж", 100), got)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "", ClassifyError(nil))
	assert.Equal(t, MsgPrivate, ClassifyError(errors.New("This video is private")))
}
