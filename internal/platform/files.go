package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Operating system constants
const (
	OSAndroid = "android"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Naming constants
const (
	// ExtPlaceholder is substituted with the media extension by the extraction client
	ExtPlaceholder = "%(ext)s"

	// DefaultExtension is used when the extractor does not report one
	DefaultExtension = "mp4"

	// FallbackFileName replaces titles that sanitize to nothing
	FallbackFileName = "video"

	// MaxFileNameLength bounds the sanitized title in bytes
	MaxFileNameLength = 200
)

// Android downloads location, visible to the Gallery app
const (
	AndroidDownloadsDir = "/sdcard/Download"
)

// fileNameReplacer maps characters that are invalid on common filesystems
var fileNameReplacer = strings.NewReplacer(
	"\\", "_",
	"/", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"\x00", "",
)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// GetHomeDownloadsDir returns the standard Downloads directory for the user
func GetHomeDownloadsDir() (string, error) {
	isAndroid := runtime.GOOS == OSAndroid ||
		os.Getenv("ANDROID_DATA") != "" ||
		os.Getenv("ANDROID_ROOT") != ""
	if isAndroid {
		return AndroidDownloadsDir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, "Downloads"), nil
}

// SanitizeFileName turns a video title into a single safe path element.
// Invalid characters become "_", runs of "_" and whitespace collapse, leading
// dots are dropped and the result is capped at MaxFileNameLength bytes.
func SanitizeFileName(title string) string {
	s := fileNameReplacer.Replace(title)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimLeft(s, ".")
	s = truncateUTF8(s, MaxFileNameLength)
	s = strings.TrimSpace(s)
	if s == "" {
		return FallbackFileName
	}
	return s
}

// OutputTemplate returns the path handed to the extraction client, with the
// extension left as ExtPlaceholder. A literal "%" is written as "%%".
func OutputTemplate(dir, title string) string {
	name := filepath.Join(dir, SanitizeFileName(title))
	return strings.ReplaceAll(name, "%", "%%") + "." + ExtPlaceholder
}

// ExpectedPath returns where a video with this title and extension lands
func ExpectedPath(dir, title, ext string) string {
	return ResolveTemplate(OutputTemplate(dir, title), ext)
}

// ResolveTemplate substitutes the extension placeholder and unescapes "%%"
func ResolveTemplate(template, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = DefaultExtension
	}
	return strings.NewReplacer("%%", "%", ExtPlaceholder, ext).Replace(template)
}

// FileExists reports whether a regular file or directory exists at path.
// Errors other than "not exist" are returned so callers can surface them.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// FileStem returns the base name of path without its extension
func FileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return s[:cut]
}
