package domain

import (
	"path"
	"strings"
	"time"
)

// Category is one of the eight terminal result buckets of a batch task.
type Category string

const (
	CategoryPureTextConverted Category = "pure_text_converted"
	CategoryRichMediaOriginal Category = "rich_media_original"
	CategoryAll               Category = "all"
	CategoryUniquePureText    Category = "unique_pure_text"
	CategoryUniqueRichMedia   Category = "unique_rich_media"
	CategoryDuplicates        Category = "duplicates"
	CategoryFailed            Category = "failed"
	CategoryTempFiles         Category = "temp_files"
)

// Categories returns all bucket names in presentation order.
func Categories() []Category {
	return []Category{
		CategoryPureTextConverted,
		CategoryRichMediaOriginal,
		CategoryAll,
		CategoryUniquePureText,
		CategoryUniqueRichMedia,
		CategoryDuplicates,
		CategoryFailed,
		CategoryTempFiles,
	}
}

// ValidCategory reports whether s names a known bucket.
func ValidCategory(s string) bool {
	for _, c := range Categories() {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Disposition is the skip state of a single input file.
type Disposition string

const (
	DispositionNone      Disposition = "none"
	DispositionDuplicate Disposition = "duplicate"
	DispositionTempFile  Disposition = "temp-file"
	DispositionError     Disposition = "error"
)

// TaskStatus is the lifecycle state of a batch task.
type TaskStatus string

const (
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// FileInput is one uploaded file: a relative logical path plus payload.
type FileInput struct {
	RelativePath string `json:"relative_path"`
	Content      []byte `json:"-"`
	ContentType  string `json:"content_type,omitempty"`
}

// PathInfo is the decomposed form of an input's relative path. FullPath
// always uses forward slashes and never starts with a separator.
type PathInfo struct {
	FullPath  string `json:"full_path"`
	Directory string `json:"directory"`
	FileName  string `json:"file_name"`
	Stem      string `json:"stem"`
	Extension string `json:"extension"`
}

// ParsePath normalizes a relative upload path into its components.
// Backslashes become forward slashes and leading separators are dropped.
func ParsePath(relPath string) PathInfo {
	p := strings.ReplaceAll(relPath, "\\", "/")
	p = strings.TrimLeft(p, "/")
	p = path.Clean(p)
	if p == "." {
		p = ""
	}
	for strings.HasPrefix(p, "../") {
		p = p[3:]
	}
	if p == ".." {
		p = ""
	}

	dir, file := path.Split(p)
	ext := strings.ToLower(path.Ext(file))
	stem := strings.TrimSuffix(file, path.Ext(file))

	return PathInfo{
		FullPath:  p,
		Directory: dir,
		FileName:  file,
		Stem:      stem,
		Extension: ext,
	}
}

// WithExtension returns the full path with the extension swapped.
func (p PathInfo) WithExtension(ext string) string {
	return p.Directory + p.Stem + ext
}

// Verdict is a classification outcome with a human-readable reason.
type Verdict struct {
	TextOnly bool   `json:"text_only"`
	Reason   string `json:"reason"`
}

// PipelineStats reports what the text pipeline did to one document.
type PipelineStats struct {
	OriginalLength       int `json:"original_length"`
	NormalizedLength     int `json:"normalized_length"`
	NoiseRemovedCount    int `json:"noise_removed_count"`
	ParagraphsOriginal   int `json:"paragraphs_original"`
	ParagraphsExactDup   int `json:"paragraphs_exact_dup"`
	ParagraphsNearDup    int `json:"paragraphs_near_dup"`
	ParagraphsTooShort   int `json:"paragraphs_too_short"`
	ParagraphsAfterDedup int `json:"paragraphs_after_dedup"`
}

// FileResult is the per-input processing record. Every result lands in
// exactly one bucket after phase C.
type FileResult struct {
	Index         int            `json:"index"`
	PathInfo      PathInfo       `json:"path_info"`
	OriginalPath  string         `json:"original_path,omitempty"`
	ConvertedPath string         `json:"converted_path,omitempty"`
	ArchivePath   string         `json:"archive_path,omitempty"`
	Verdict       Verdict        `json:"verdict"`
	Disposition   Disposition    `json:"disposition"`
	Error         string         `json:"error,omitempty"`
	DocDuplicate  bool           `json:"doc_duplicate,omitempty"`
	ByteHash      string         `json:"-"`
	ContentHash   string         `json:"-"`
	PipelineStats *PipelineStats `json:"pipeline_stats,omitempty"`
}

// Artifact returns the on-disk path that represents this file in result
// archives: the converted artifact when one exists, else the original.
func (r *FileResult) Artifact() string {
	if r.ConvertedPath != "" {
		return r.ConvertedPath
	}
	return r.OriginalPath
}

// ArtifactArchivePath is the archive-relative path matching Artifact.
func (r *FileResult) ArtifactArchivePath() string {
	if r.ConvertedPath != "" && r.ArchivePath != "" {
		return r.ArchivePath
	}
	return r.PathInfo.FullPath
}

// Progress is the running per-bucket tally published in status payloads.
type Progress struct {
	Total           int `json:"total"`
	Completed       int `json:"completed"`
	PureTextCount   int `json:"pure_text_count"`
	RichMediaCount  int `json:"rich_media_count"`
	UniquePureCount int `json:"unique_pure_count"`
	UniqueRichCount int `json:"unique_rich_count"`
	DuplicateCount  int `json:"duplicate_count"`
	FailedCount     int `json:"failed_count"`
	TempFileCount   int `json:"temp_file_count"`
}

// DedupStats aggregates deduplication activity over one task.
type DedupStats struct {
	OriginalDuplicates int `json:"original_duplicates"`
	DocDuplicates      int `json:"doc_duplicates"`
	ParaExactDupTotal  int `json:"para_exact_dup_total"`
	ParaNearDupTotal   int `json:"para_near_dup_total"`
	NoiseRemovedTotal  int `json:"noise_removed_total"`
}

// PureTextEntry links an input to its converted artifact in status payloads.
type PureTextEntry struct {
	OriginalPath  string `json:"original_path"`
	ConvertedPath string `json:"converted_path"`
}

// RichMediaEntry names a rich-media input and why it was classified so.
type RichMediaEntry struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// TaskSnapshot is the externally visible state of one task.
type TaskSnapshot struct {
	TaskID         string              `json:"task_id"`
	Status         TaskStatus          `json:"status"`
	Progress       Progress            `json:"progress"`
	PureTextFiles  []PureTextEntry     `json:"pure_text_files"`
	RichMediaFiles []RichMediaEntry    `json:"rich_media_files"`
	Downloads      map[Category]string `json:"downloads"`
	DedupStats     DedupStats          `json:"dedup_stats"`
	Message        string              `json:"message,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
}
