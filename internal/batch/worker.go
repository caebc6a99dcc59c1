package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/liliang-cn/docbatch/internal/dedup"
	"github.com/liliang-cn/docbatch/internal/docio"
	"github.com/liliang-cn/docbatch/internal/domain"
	"github.com/liliang-cn/docbatch/internal/storage"
	"github.com/liliang-cn/docbatch/internal/task"
)

// processFiles is phase B: bounded-concurrency per-file work. Only
// files that survived phase A enter; completion order is arbitrary and
// phase C re-imposes input order.
func (o *Orchestrator) processFiles(ctx context.Context, taskID string, dirs storage.TaskDirs, results []*domain.FileResult) {
	skipped := 0
	var wg sync.WaitGroup

	for _, r := range results {
		if r.Disposition != domain.DispositionNone {
			skipped++
			continue
		}

		wg.Add(1)
		go func(r *domain.FileResult) {
			defer wg.Done()

			o.sem <- struct{}{}
			defer func() { <-o.sem }()

			o.processFile(ctx, dirs, r)
			_ = o.registry.Update(taskID, func(s *task.State) {
				s.Progress.Completed++
			})
		}(r)
	}

	_ = o.registry.Update(taskID, func(s *task.State) {
		s.Progress.Completed += skipped
	})

	wg.Wait()
}

// processFile runs classification, conversion and the text pipeline for
// one file. Failures are recorded on the result and never escape: a
// panicking worker must not take the task down with it.
func (o *Orchestrator) processFile(ctx context.Context, dirs storage.TaskDirs, r *domain.FileResult) {
	defer func() {
		if p := recover(); p != nil {
			r.Disposition = domain.DispositionError
			r.Error = fmt.Sprintf("internal error: %v", p)
			o.logger.Error("file worker panicked", "path", r.PathInfo.FullPath, "panic", p)
		}
	}()

	if o.cfg.SkipTempFiles && strings.HasPrefix(r.PathInfo.FileName, "~$") {
		r.Disposition = domain.DispositionTempFile
		return
	}

	verdict, err := o.classifier.Classify(ctx, r.OriginalPath)
	if err != nil {
		r.Disposition = domain.DispositionError
		r.Error = fmt.Sprintf("classification: %v", err)
		return
	}
	r.Verdict = verdict

	targetExt, needsConvert, runPipeline := conversionPlan(r.PathInfo.Extension, verdict.TextOnly)
	if needsConvert {
		o.convertFile(ctx, dirs, r, targetExt, runPipeline)
		if r.Disposition == domain.DispositionError {
			return
		}
	}

	o.fillContentHash(r)
}

// convertFile invokes the transcoder and, for text-only files, runs the
// cleaning pipeline over the converted artifact before moving it into
// the task's converted/ tree. A failed transcode leaves the file
// unconverted; the classification verdict still decides its bucket.
func (o *Orchestrator) convertFile(ctx context.Context, dirs storage.TaskDirs, r *domain.FileResult, targetExt string, runPipeline bool) {
	out, err := o.transcoder.Convert(ctx, r.OriginalPath, targetExt)
	if err != nil {
		o.logger.Warn("conversion failed, keeping original",
			"path", r.PathInfo.FullPath, "target", targetExt, "error", err)
		return
	}

	if runPipeline {
		text, err := docio.ExtractDocxText(out)
		if err != nil {
			os.Remove(out)
			r.Disposition = domain.DispositionError
			r.Error = fmt.Sprintf("extract text: %v", err)
			return
		}

		result := o.pipeline.Process(ctx, text, r.PathInfo.FullPath)
		stats := result.Stats
		r.PipelineStats = &stats
		r.DocDuplicate = result.DocDuplicate

		// Duplicates keep their artifact too: the cleaned text is still
		// written so the download mirrors what was deduplicated against.
		if err := docio.WriteDocxText(out, result.CleanedText); err != nil {
			os.Remove(out)
			r.Disposition = domain.DispositionError
			r.Error = fmt.Sprintf("rewrite artifact: %v", err)
			return
		}
		r.ContentHash = dedup.HashText(result.CleanedText)
	}

	archivePath := r.PathInfo.WithExtension(targetExt)
	dst := filepath.Join(dirs.Converted, filepath.FromSlash(archivePath))
	if err := storage.MoveFile(out, dst); err != nil {
		os.Remove(out)
		r.Disposition = domain.DispositionError
		r.Error = fmt.Sprintf("store artifact: %v", err)
		return
	}
	r.ConvertedPath = dst
	r.ArchivePath = archivePath
}

// fillContentHash makes sure every bucketed file carries the hash its
// unique-bucket dedup runs on: extracted text for pure-text files, the
// artifact's bytes for rich-media files.
func (o *Orchestrator) fillContentHash(r *domain.FileResult) {
	if r.ContentHash != "" {
		return
	}

	if r.Verdict.TextOnly {
		if text, err := docio.ExtractDocxText(r.Artifact()); err == nil {
			r.ContentHash = dedup.HashText(text)
			return
		}
	}
	if r.ConvertedPath != "" {
		if h, err := dedup.HashFile(r.ConvertedPath); err == nil {
			r.ContentHash = h
			return
		}
	}
	r.ContentHash = r.ByteHash
}

// conversionPlan is the extension/classification matrix: which target
// extension a file converts to, and whether the text pipeline runs on
// the converted artifact.
func conversionPlan(ext string, textOnly bool) (targetExt string, needsConvert, runPipeline bool) {
	switch ext {
	case ".doc":
		return ".docx", true, textOnly
	case ".xls":
		return ".xlsx", true, false
	case ".ppt":
		return ".pptx", true, false
	case ".docx":
		if textOnly {
			return ".docx", true, true
		}
		return "", false, false
	case ".txt", ".md", ".pdf":
		if textOnly {
			return ".docx", true, true
		}
		return "", false, false
	default:
		return "", false, false
	}
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}
