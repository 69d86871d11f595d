// Package scan discovers video files under a directory tree and computes
// their content hashes for deduplication.
package scan

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// videoExtensions are the file types considered uploadable.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// IsVideo reports whether the path has a recognized video extension.
func IsVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// Videos walks dir recursively and returns the absolute paths of all video
// files, sorted. Hidden files and hidden directories are skipped. Names are
// NFC-normalized for comparison so macOS NFD filenames dedup consistently,
// while the returned paths keep the original filesystem spelling for I/O.
func Videos(dir string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("scan: resolving %s: %w", dir, err)
	}

	var files []string

	walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()

		if d.IsDir() {
			if path != abs && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}

			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		if !IsVideo(norm.NFC.String(name)) {
			return nil
		}

		files = append(files, path)

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan: walking %s: %w", abs, walkErr)
	}

	sort.Strings(files)

	logger.Debug("scan complete", "dir", abs, "videos", len(files))

	return files, nil
}

// Thumbnail returns the path of a sibling image with the same stem as the
// video file, or "" when none exists. Checked in extension order, first
// match wins.
func Thumbnail(videoPath string) string {
	stem := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))

	for _, ext := range []string{".jpg", ".jpeg", ".png"} {
		candidate := stem + ext
		if fileExists(candidate) {
			return candidate
		}
	}

	return ""
}
