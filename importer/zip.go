// Package importer implements the extract/normalize half of a migration
// job: unpacking a Slack export ZIP and populating the universal entity
// graph from it (spec.md 4.2).
package importer

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"slackimporter/core"
)

// extractZip unpacks a Slack export archive into a fresh temp directory
// under baseDir, returning the directory path. Every entry's resolved path
// is checked against the destination root to reject zip-slip archives
// (".." path segments that would write outside destDir).
func extractZip(zipPath, baseDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to open export archive: %w", err)
	}
	defer r.Close()

	destDir := filepath.Join(baseDir, core.NewID("ex"))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create extract directory: %w", err)
	}

	for _, f := range r.File {
		if err := extractOne(destDir, f); err != nil {
			os.RemoveAll(destDir)
			return "", err
		}
	}

	return destDir, nil
}

func extractOne(destDir string, f *zip.File) error {
	targetPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(targetPath, filepath.Clean(destDir)+string(os.PathSeparator)) && targetPath != filepath.Clean(destDir) {
		return fmt.Errorf("export archive entry %q escapes extract directory", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(targetPath, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", f.Name, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %q: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", targetPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to extract %q: %w", f.Name, err)
	}
	return nil
}

// channelDayFiles walks an extracted export directory and returns the
// per-channel-day message files, grouped by the channel directory name, in
// the same shape mmetl's ParseSlackExportFile recognizes: a two-segment
// relative path "<channel>/<date>.json".
func channelDayFiles(extractDir string) (map[string][]string, error) {
	byChannel := make(map[string][]string)

	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extract directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "__uploads" {
			continue
		}
		channel := entry.Name()
		dayEntries, err := os.ReadDir(filepath.Join(extractDir, channel))
		if err != nil {
			return nil, fmt.Errorf("failed to read channel directory %q: %w", channel, err)
		}
		for _, day := range dayEntries {
			if day.IsDir() || !strings.HasSuffix(day.Name(), ".json") {
				continue
			}
			byChannel[channel] = append(byChannel[channel], filepath.Join(extractDir, channel, day.Name()))
		}
	}
	return byChannel, nil
}
