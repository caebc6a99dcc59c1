package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/liliang-cn/docbatch/pkg/log"
)

// CleanResult is the outcome of one sweep.
type CleanResult struct {
	Deleted    int   `json:"deleted"`
	BytesFreed int64 `json:"bytes_freed"`
	Errors     int   `json:"errors"`
}

// Cleaner reclaims task directories and transient files by age. It is
// run from the cron schedule, from the startup sweep, and from the
// manual clean endpoint.
type Cleaner struct {
	layout Layout
	logger *slog.Logger
}

func NewCleaner(layout Layout) *Cleaner {
	return &Cleaner{
		layout: layout,
		logger: log.WithModule("storage"),
	}
}

// CleanOldBatchTasks removes task directories whose modification time
// precedes now minus the given number of days.
func (c *Cleaner) CleanOldBatchTasks(days int) CleanResult {
	return c.cleanDirEntries(c.layout.BatchDir(), time.Duration(days)*24*time.Hour)
}

// CleanOldSingleFiles removes entries of the single-file area by the
// same age rule.
func (c *Cleaner) CleanOldSingleFiles(days int) CleanResult {
	return c.cleanDirEntries(c.layout.SingleDir(), time.Duration(days)*24*time.Hour)
}

// CleanTempFiles removes transcoder intermediates older than maxAge.
// Called at startup with one hour so live conversions are not touched.
func (c *Cleaner) CleanTempFiles(maxAge time.Duration) CleanResult {
	return c.cleanDirEntries(c.layout.TempDir(), maxAge)
}

func (c *Cleaner) cleanDirEntries(dir string, maxAge time.Duration) CleanResult {
	var result CleanResult
	cutoff := time.Now().Add(-maxAge)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("cannot read storage area", "dir", dir, "error", err)
			result.Errors++
		}
		return result
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			c.logger.Warn("cannot stat storage entry", "path", path, "error", err)
			result.Errors++
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		size, err := treeSize(path)
		if err != nil {
			c.logger.Warn("cannot size storage entry", "path", path, "error", err)
		}
		if err := os.RemoveAll(path); err != nil {
			c.logger.Warn("cannot remove storage entry", "path", path, "error", err)
			result.Errors++
			continue
		}
		result.Deleted++
		result.BytesFreed += size
	}

	if result.Deleted > 0 {
		c.logger.Info("storage sweep finished",
			"dir", dir,
			"deleted", result.Deleted,
			"bytes_freed", result.BytesFreed,
			"errors", result.Errors,
		)
	}
	return result
}

// AreaUsage describes one storage area for the usage report.
type AreaUsage struct {
	Entries int    `json:"entries"`
	Files   int    `json:"files"`
	Bytes   int64  `json:"bytes"`
	Human   string `json:"human"`
}

// UsageReport covers every storage area plus the total.
type UsageReport struct {
	Batch  AreaUsage `json:"batch"`
	Single AreaUsage `json:"single"`
	Temp   AreaUsage `json:"temp"`
	Total  AreaUsage `json:"total"`
}

// UsageInfo walks the storage areas and reports entry counts, file
// counts, and byte sizes.
func (c *Cleaner) UsageInfo() UsageReport {
	batch := c.areaUsage(c.layout.BatchDir())
	single := c.areaUsage(c.layout.SingleDir())
	temp := c.areaUsage(c.layout.TempDir())

	total := AreaUsage{
		Entries: batch.Entries + single.Entries + temp.Entries,
		Files:   batch.Files + single.Files + temp.Files,
		Bytes:   batch.Bytes + single.Bytes + temp.Bytes,
	}
	total.Human = FormatBytes(total.Bytes)

	return UsageReport{Batch: batch, Single: single, Temp: temp, Total: total}
}

func (c *Cleaner) areaUsage(dir string) AreaUsage {
	var usage AreaUsage

	entries, err := os.ReadDir(dir)
	if err == nil {
		usage.Entries = len(entries)
	}

	_ = filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		usage.Files++
		usage.Bytes += info.Size()
		return nil
	})

	usage.Human = FormatBytes(usage.Bytes)
	return usage
}

func treeSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// FormatBytes renders a byte count in the usual human units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	value := float64(n)
	for _, suffix := range []string{"KB", "MB", "GB", "TB"} {
		value /= unit
		if value < unit || suffix == "TB" {
			return fmt.Sprintf("%.1f %s", value, suffix)
		}
	}
	return fmt.Sprintf("%d B", n)
}
