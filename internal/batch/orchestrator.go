// Package batch is the ingestion orchestrator: it accepts a batch of
// uploaded files, elides identical uploads, fans per-file work out over
// a shared bounded worker pool, partitions the results into the eight
// terminal buckets, and bundles each bucket into a download archive.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/liliang-cn/docbatch/internal/config"
	"github.com/liliang-cn/docbatch/internal/dedup"
	"github.com/liliang-cn/docbatch/internal/domain"
	"github.com/liliang-cn/docbatch/internal/storage"
	"github.com/liliang-cn/docbatch/internal/task"
	"github.com/liliang-cn/docbatch/internal/textpipe"
	"github.com/liliang-cn/docbatch/pkg/log"
)

// Classifier decides text-only vs rich-media for a stored file.
type Classifier interface {
	Classify(ctx context.Context, path string) (domain.Verdict, error)
}

// Transcoder converts a stored file into the target extension, writing
// the result into the shared temp area.
type Transcoder interface {
	Convert(ctx context.Context, inputPath, targetExt string) (string, error)
}

// TextPipeline cleans and deduplicates document text.
type TextPipeline interface {
	Process(ctx context.Context, text, docName string) textpipe.Result
}

// Orchestrator runs batch tasks. One instance serves all tasks; the
// semaphore bounds per-file work globally, so concurrent tasks share
// the same worker budget.
type Orchestrator struct {
	cfg        config.BatchConfig
	layout     storage.Layout
	store      dedup.Store
	classifier Classifier
	transcoder Transcoder
	pipeline   TextPipeline
	registry   *task.Registry
	sem        chan struct{}
	logger     *slog.Logger
}

func New(
	cfg config.BatchConfig,
	layout storage.Layout,
	store dedup.Store,
	classifier Classifier,
	transcoder Transcoder,
	pipeline TextPipeline,
	registry *task.Registry,
) *Orchestrator {
	workers := cfg.MaxConcurrentTasks
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{
		cfg:        cfg,
		layout:     layout,
		store:      store,
		classifier: classifier,
		transcoder: transcoder,
		pipeline:   pipeline,
		registry:   registry,
		sem:        make(chan struct{}, workers),
		logger:     log.WithModule("batch"),
	}
}

// Submit ingests a batch and returns its task id immediately. Phase A
// (raw-byte dedup and persisting originals) runs inline so the caller's
// buffers can be released; everything after runs asynchronously.
func (o *Orchestrator) Submit(ctx context.Context, files []domain.FileInput) (string, error) {
	if len(files) == 0 {
		return "", domain.ErrEmptyBatch
	}

	taskID := newTaskID(time.Now())
	dirs, err := o.layout.EnsureTaskDirs(taskID)
	if err != nil {
		return "", fmt.Errorf("task %s: %w", taskID, err)
	}

	results := o.ingest(dirs, files)

	state := o.registry.Create(taskID, len(files), dirs)
	state.Results = results

	o.logger.Info("batch submitted", "task_id", taskID, "files", len(files))
	go o.run(taskID, dirs, results)

	return taskID, nil
}

// ingest is phase A: strictly ordered by input position. Every file is
// persisted under original/ before anything else happens to it, raw-byte
// duplicates included, so the per-category archives can always hand the
// uploaded bytes back.
func (o *Orchestrator) ingest(dirs storage.TaskDirs, files []domain.FileInput) []*domain.FileResult {
	results := make([]*domain.FileResult, len(files))
	seen := make(map[string]int, len(files))

	for i, file := range files {
		r := &domain.FileResult{
			Index:       i,
			PathInfo:    domain.ParsePath(file.RelativePath),
			Disposition: domain.DispositionNone,
		}
		results[i] = r

		if r.PathInfo.FullPath == "" {
			r.Disposition = domain.DispositionError
			r.Error = "empty relative path"
			continue
		}

		r.ByteHash = dedup.HashBytes(file.Content)

		dst := filepath.Join(dirs.Original, filepath.FromSlash(r.PathInfo.FullPath))
		if err := writeFile(dst, file.Content); err != nil {
			r.Disposition = domain.DispositionError
			r.Error = fmt.Sprintf("store original: %v", err)
			continue
		}
		r.OriginalPath = dst

		if _, dup := seen[r.ByteHash]; dup {
			r.Disposition = domain.DispositionDuplicate
			continue
		}
		seen[r.ByteHash] = i
	}
	return results
}

// run drives phases B through E. It deliberately detaches from the
// submit context: a task keeps processing after the submitting request
// returns.
func (o *Orchestrator) run(taskID string, dirs storage.TaskDirs, results []*domain.FileResult) {
	ctx := context.Background()
	started := time.Now()

	o.processFiles(ctx, taskID, dirs, results)

	buckets := bucketize(results)
	downloads := o.bundleBuckets(taskID, dirs, buckets)
	o.finalize(taskID, results, buckets, downloads)

	o.logger.Info("batch finished",
		"task_id", taskID,
		"files", len(results),
		"duration", time.Since(started),
	)
}

// Status returns the progress and result snapshot of a task.
func (o *Orchestrator) Status(taskID string) (domain.TaskSnapshot, error) {
	return o.registry.Snapshot(taskID)
}

// Download resolves the archive path for one result category.
func (o *Orchestrator) Download(taskID string, category string) (string, error) {
	if !domain.ValidCategory(category) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidCategory, category)
	}

	snap, err := o.registry.Snapshot(taskID)
	if err != nil {
		return "", err
	}

	path, ok := snap.Downloads[domain.Category(category)]
	if !ok || path == "" {
		return "", fmt.Errorf("%w: %s for task %s", domain.ErrArchiveNotFound, category, taskID)
	}
	return path, nil
}

// Store exposes the shared dedup store for status payloads and the
// reset command.
func (o *Orchestrator) Store() dedup.Store { return o.store }

// Tasks lists known task ids, newest first.
func (o *Orchestrator) Tasks() []string { return o.registry.List() }
