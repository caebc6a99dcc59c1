package batch

import (
	"time"

	"github.com/liliang-cn/docbatch/internal/bundle"
	"github.com/liliang-cn/docbatch/internal/domain"
	"github.com/liliang-cn/docbatch/internal/storage"
	"github.com/liliang-cn/docbatch/internal/task"
)

// bucketize is phase C: partition results into the eight disjoint
// buckets, in input-index order. The first five base buckets partition
// the batch; all and the two unique buckets are derived views.
func bucketize(results []*domain.FileResult) map[domain.Category][]*domain.FileResult {
	buckets := make(map[domain.Category][]*domain.FileResult)

	for _, r := range results {
		switch {
		case r.Disposition == domain.DispositionDuplicate:
			buckets[domain.CategoryDuplicates] = append(buckets[domain.CategoryDuplicates], r)
		case r.Disposition == domain.DispositionTempFile:
			buckets[domain.CategoryTempFiles] = append(buckets[domain.CategoryTempFiles], r)
		case r.Disposition == domain.DispositionError:
			buckets[domain.CategoryFailed] = append(buckets[domain.CategoryFailed], r)
		case r.Verdict.TextOnly:
			buckets[domain.CategoryPureTextConverted] = append(buckets[domain.CategoryPureTextConverted], r)
		default:
			buckets[domain.CategoryRichMediaOriginal] = append(buckets[domain.CategoryRichMediaOriginal], r)
		}
	}

	buckets[domain.CategoryAll] = append(
		append([]*domain.FileResult(nil), buckets[domain.CategoryPureTextConverted]...),
		buckets[domain.CategoryRichMediaOriginal]...,
	)
	buckets[domain.CategoryUniquePureText] = dedupByContentHash(buckets[domain.CategoryPureTextConverted])
	buckets[domain.CategoryUniqueRichMedia] = dedupByContentHash(buckets[domain.CategoryRichMediaOriginal])

	return buckets
}

// dedupByContentHash keeps the earliest-indexed entry per hash.
func dedupByContentHash(results []*domain.FileResult) []*domain.FileResult {
	seen := make(map[string]struct{}, len(results))
	var unique []*domain.FileResult
	for _, r := range results {
		if _, ok := seen[r.ContentHash]; ok {
			continue
		}
		seen[r.ContentHash] = struct{}{}
		unique = append(unique, r)
	}
	return unique
}

// bundleBuckets is phase D: one archive per non-empty bucket. Result
// buckets archive their artifacts under the artifact's archive path;
// the duplicate, failed and temp buckets archive the raw originals so
// users can retrieve or retry them.
func (o *Orchestrator) bundleBuckets(taskID string, dirs storage.TaskDirs, buckets map[domain.Category][]*domain.FileResult) map[domain.Category]string {
	downloads := make(map[domain.Category]string, len(buckets))

	for _, category := range domain.Categories() {
		results := buckets[category]
		if len(results) == 0 {
			continue
		}

		var entries []bundle.Entry
		for _, r := range results {
			entry := bundle.Entry{SourcePath: r.Artifact(), ArchivePath: r.ArtifactArchivePath()}
			if rawBucket(category) {
				entry = bundle.Entry{SourcePath: r.OriginalPath, ArchivePath: r.PathInfo.FullPath}
			}
			if entry.SourcePath == "" {
				continue
			}
			entries = append(entries, entry)
		}
		if len(entries) == 0 {
			continue
		}

		zipPath, err := bundle.CreateStructuredZip(entries, category, taskID, dirs.Downloads)
		if err != nil {
			o.logger.Error("failed to bundle bucket", "task_id", taskID, "category", category, "error", err)
			continue
		}
		downloads[category] = zipPath
	}
	return downloads
}

func rawBucket(category domain.Category) bool {
	switch category {
	case domain.CategoryDuplicates, domain.CategoryFailed, domain.CategoryTempFiles:
		return true
	}
	return false
}

// finalize is phase E: publish the terminal snapshot.
func (o *Orchestrator) finalize(taskID string, results []*domain.FileResult, buckets map[domain.Category][]*domain.FileResult, downloads map[domain.Category]string) {
	var stats domain.DedupStats
	for _, r := range results {
		if r.Disposition == domain.DispositionDuplicate {
			stats.OriginalDuplicates++
		}
		if r.DocDuplicate {
			stats.DocDuplicates++
		}
		if r.PipelineStats != nil {
			stats.ParaExactDupTotal += r.PipelineStats.ParagraphsExactDup
			stats.ParaNearDupTotal += r.PipelineStats.ParagraphsNearDup
			stats.NoiseRemovedTotal += r.PipelineStats.NoiseRemovedCount
		}
	}

	pureText := make([]domain.PureTextEntry, 0, len(buckets[domain.CategoryPureTextConverted]))
	for _, r := range buckets[domain.CategoryPureTextConverted] {
		pureText = append(pureText, domain.PureTextEntry{
			OriginalPath:  r.PathInfo.FullPath,
			ConvertedPath: r.ArchivePath,
		})
	}

	richMedia := make([]domain.RichMediaEntry, 0, len(buckets[domain.CategoryRichMediaOriginal]))
	for _, r := range buckets[domain.CategoryRichMediaOriginal] {
		richMedia = append(richMedia, domain.RichMediaEntry{
			Path:   r.PathInfo.FullPath,
			Reason: r.Verdict.Reason,
		})
	}

	now := time.Now()
	_ = o.registry.Update(taskID, func(s *task.State) {
		s.Status = domain.StatusCompleted
		s.CompletedAt = &now
		s.Progress = domain.Progress{
			Total:           len(results),
			Completed:       len(results),
			PureTextCount:   len(buckets[domain.CategoryPureTextConverted]),
			RichMediaCount:  len(buckets[domain.CategoryRichMediaOriginal]),
			UniquePureCount: len(buckets[domain.CategoryUniquePureText]),
			UniqueRichCount: len(buckets[domain.CategoryUniqueRichMedia]),
			DuplicateCount:  len(buckets[domain.CategoryDuplicates]),
			FailedCount:     len(buckets[domain.CategoryFailed]),
			TempFileCount:   len(buckets[domain.CategoryTempFiles]),
		}
		s.PureTextFiles = pureText
		s.RichMediaFiles = richMedia
		s.Downloads = downloads
		s.DedupStats = stats
	})
}
