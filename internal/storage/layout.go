// Package storage owns the on-disk layout of the service: per-task
// directories, the single-file area, the transcoder temp area, and the
// age-based cleaner that reclaims all of them.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// TaskDirs are the three subdirectories every batch task owns.
type TaskDirs struct {
	Root      string
	Original  string
	Converted string
	Downloads string
}

// Layout resolves every storage path from a single root directory:
//
//	<root>/batch/<task_id>/{original,converted,downloads}
//	<root>/single
//	<root>/temp
type Layout struct {
	Root string
}

func NewLayout(root string) Layout {
	return Layout{Root: root}
}

func (l Layout) BatchDir() string  { return filepath.Join(l.Root, "batch") }
func (l Layout) SingleDir() string { return filepath.Join(l.Root, "single") }
func (l Layout) TempDir() string   { return filepath.Join(l.Root, "temp") }

// TaskDirs returns the directory set of one task without creating it.
func (l Layout) TaskDirs(taskID string) TaskDirs {
	root := filepath.Join(l.BatchDir(), taskID)
	return TaskDirs{
		Root:      root,
		Original:  filepath.Join(root, "original"),
		Converted: filepath.Join(root, "converted"),
		Downloads: filepath.Join(root, "downloads"),
	}
}

// EnsureTaskDirs creates the full directory set for a new task. This is
// the one failure that fails a whole task.
func (l Layout) EnsureTaskDirs(taskID string) (TaskDirs, error) {
	dirs := l.TaskDirs(taskID)
	for _, dir := range []string{dirs.Original, dirs.Converted, dirs.Downloads} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return TaskDirs{}, fmt.Errorf("create task directory %s: %w", dir, err)
		}
	}
	return dirs, nil
}

// EnsureBaseDirs creates the shared areas at startup.
func (l Layout) EnsureBaseDirs() error {
	for _, dir := range []string{l.BatchDir(), l.SingleDir(), l.TempDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage directory %s: %w", dir, err)
		}
	}
	return nil
}

// MoveFile renames src to dst, falling back to copy+remove when the
// rename crosses filesystems. Parent directories of dst are created.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	content, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return os.Remove(src)
}
