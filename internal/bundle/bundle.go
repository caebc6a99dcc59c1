// Package bundle writes the per-category result archives. Entries keep
// the relative directory layout of the uploaded batch: archive paths are
// POSIX-separated, never absolute, never leading-slashed.
package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/liliang-cn/docbatch/internal/domain"
	"github.com/liliang-cn/docbatch/pkg/log"
)

// Entry names one file to archive: where it lives on disk and where it
// goes inside the archive.
type Entry struct {
	SourcePath  string
	ArchivePath string
}

// CreateStructuredZip writes `<category>_<taskID>.zip` into downloadsDir
// containing every entry that exists on disk. Missing sources are logged
// and skipped; a partially written archive is removed on error.
func CreateStructuredZip(entries []Entry, category domain.Category, taskID, downloadsDir string) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("no entries for %s archive", category)
	}

	zipPath := filepath.Join(downloadsDir, fmt.Sprintf("%s_%s.zip", category, taskID))
	f, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create archive %s: %w", zipPath, err)
	}

	if err := writeEntries(f, entries); err != nil {
		f.Close()
		os.Remove(zipPath)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(zipPath)
		return "", fmt.Errorf("close archive %s: %w", zipPath, err)
	}
	return zipPath, nil
}

func writeEntries(w io.Writer, entries []Entry) error {
	logger := log.WithModule("bundle")
	zw := zip.NewWriter(w)

	for _, entry := range entries {
		name := NormalizeArchivePath(entry.ArchivePath)
		if name == "" {
			logger.Warn("skipping entry with empty archive path", "source", entry.SourcePath)
			continue
		}

		src, err := os.Open(entry.SourcePath)
		if err != nil {
			logger.Warn("skipping missing archive source", "source", entry.SourcePath, "error", err)
			continue
		}

		dst, err := zw.Create(name)
		if err != nil {
			src.Close()
			return fmt.Errorf("add archive entry %s: %w", name, err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			return fmt.Errorf("write archive entry %s: %w", name, err)
		}
		src.Close()
	}

	return zw.Close()
}

// NormalizeArchivePath converts a path to the archive form: forward
// slashes, no leading separator, no drive-style prefixes.
func NormalizeArchivePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimLeft(p, "/")
	for strings.HasPrefix(p, "../") {
		p = p[3:]
	}
	if p == ".." || p == "." {
		return ""
	}
	return p
}
