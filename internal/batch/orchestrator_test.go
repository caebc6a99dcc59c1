package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/docbatch/internal/classify"
	"github.com/liliang-cn/docbatch/internal/config"
	"github.com/liliang-cn/docbatch/internal/convert"
	"github.com/liliang-cn/docbatch/internal/dedup"
	"github.com/liliang-cn/docbatch/internal/docio"
	"github.com/liliang-cn/docbatch/internal/domain"
	"github.com/liliang-cn/docbatch/internal/storage"
	"github.com/liliang-cn/docbatch/internal/task"
	"github.com/liliang-cn/docbatch/internal/textpipe"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, storage.Layout) {
	t.Helper()

	layout := storage.NewLayout(t.TempDir())
	require.NoError(t, layout.EnsureBaseDirs())

	cfg := config.BatchConfig{
		MaxConcurrentTasks: 2,
		ConversionTimeout:  30 * time.Second,
		SkipTempFiles:      true,
	}
	store := dedup.NewMemory()
	transcoder := convert.New(cfg, layout.TempDir()).WithEngine(convert.EngineNative)
	classifier := classify.New(transcoder)

	pipeline, err := textpipe.New(store, textpipe.Options{
		MinParagraphLen:          10,
		SimhashDistanceThreshold: 3,
	})
	require.NoError(t, err)

	return New(cfg, layout, store, classifier, transcoder, pipeline, task.NewRegistry()), layout
}

func waitDone(t *testing.T, o *Orchestrator, taskID string) domain.TaskSnapshot {
	t.Helper()

	var snap domain.TaskSnapshot
	require.Eventually(t, func() bool {
		s, err := o.Status(taskID)
		if err != nil {
			return false
		}
		snap = s
		return s.Status == domain.StatusCompleted
	}, 15*time.Second, 20*time.Millisecond)
	return snap
}

func archiveNames(t *testing.T, zipPath string) []string {
	t.Helper()

	r, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func xlsxBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("xl/worksheets/sheet1.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<worksheet/>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestSubmitEmptyBatch(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	_, err := o.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)
}

func TestPureTextMarkdown(t *testing.T) {
	o, layout := newTestOrchestrator(t)

	taskID, err := o.Submit(context.Background(), []domain.FileInput{
		{RelativePath: "docs/a.md", Content: []byte("# Title\n\nParagraph one is ten-plus characters long.")},
	})
	require.NoError(t, err)
	snap := waitDone(t, o, taskID)

	assert.Equal(t, 1, snap.Progress.PureTextCount)
	assert.Equal(t, 1, snap.Progress.UniquePureCount)
	assert.Zero(t, snap.DedupStats.DocDuplicates)
	require.Len(t, snap.PureTextFiles, 1)
	assert.Equal(t, "docs/a.md", snap.PureTextFiles[0].OriginalPath)
	assert.Equal(t, "docs/a.docx", snap.PureTextFiles[0].ConvertedPath)

	converted := filepath.Join(layout.TaskDirs(taskID).Converted, "docs", "a.docx")
	text, err := docio.ExtractDocxText(converted)
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Paragraph one is ten-plus characters long.")

	zipPath, err := o.Download(taskID, "pure_text_converted")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.docx"}, archiveNames(t, zipPath))
}

func TestExactDuplicateUpload(t *testing.T) {
	o, layout := newTestOrchestrator(t)
	body := []byte("# Title\n\nParagraph one is ten-plus characters long.")

	taskID, err := o.Submit(context.Background(), []domain.FileInput{
		{RelativePath: "docs/a.md", Content: body},
		{RelativePath: "docs/copy/a.md", Content: body},
	})
	require.NoError(t, err)
	snap := waitDone(t, o, taskID)

	assert.Equal(t, 1, snap.Progress.PureTextCount)
	assert.Equal(t, 1, snap.Progress.DuplicateCount)
	assert.Equal(t, 1, snap.DedupStats.OriginalDuplicates)

	dirs := layout.TaskDirs(taskID)
	assert.FileExists(t, filepath.Join(dirs.Original, "docs", "a.md"))
	assert.FileExists(t, filepath.Join(dirs.Original, "docs", "copy", "a.md"))

	zipPath, err := o.Download(taskID, "duplicates")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/copy/a.md"}, archiveNames(t, zipPath))
}

func TestParagraphDedupAcrossDocuments(t *testing.T) {
	o, layout := newTestOrchestrator(t)
	ctx := context.Background()

	first, err := o.Submit(ctx, []domain.FileInput{
		{RelativePath: "b.md", Content: []byte("Para X is long enough.\n\nPara Y is also long enough.")},
	})
	require.NoError(t, err)
	waitDone(t, o, first)

	second, err := o.Submit(ctx, []domain.FileInput{
		{RelativePath: "c.md", Content: []byte("Para X is long enough.\n\nPara Z is long enough.")},
	})
	require.NoError(t, err)
	snap := waitDone(t, o, second)

	assert.Equal(t, 1, snap.Progress.PureTextCount)
	assert.Equal(t, 1, snap.DedupStats.ParaExactDupTotal)
	assert.Zero(t, snap.DedupStats.DocDuplicates)

	text, err := docio.ExtractDocxText(filepath.Join(layout.TaskDirs(second).Converted, "c.docx"))
	require.NoError(t, err)
	assert.Contains(t, text, "Para Z is long enough.")
	assert.NotContains(t, text, "Para X")
}

func TestDocumentDuplicateAcrossBatches(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	body := []byte("A document body that is comfortably past the length filter.")

	first, err := o.Submit(ctx, []domain.FileInput{{RelativePath: "one.txt", Content: body}})
	require.NoError(t, err)
	waitDone(t, o, first)

	second, err := o.Submit(ctx, []domain.FileInput{{RelativePath: "two.txt", Content: body}})
	require.NoError(t, err)
	snap := waitDone(t, o, second)

	// Different path, same content, new task: the raw-byte dedup is
	// task-scoped, so the file processes again and the document
	// fingerprint flags it.
	assert.Equal(t, 1, snap.Progress.PureTextCount)
	assert.Equal(t, 1, snap.DedupStats.DocDuplicates)
}

func TestTempFileSkip(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	taskID, err := o.Submit(context.Background(), []domain.FileInput{
		{RelativePath: "~$report.docx", Content: []byte("lock file payload")},
	})
	require.NoError(t, err)
	snap := waitDone(t, o, taskID)

	assert.Equal(t, 1, snap.Progress.TempFileCount)
	assert.Zero(t, snap.Progress.PureTextCount)
	assert.Zero(t, snap.Progress.RichMediaCount)

	zipPath, err := o.Download(taskID, "temp_files")
	require.NoError(t, err)
	assert.Equal(t, []string{"~$report.docx"}, archiveNames(t, zipPath))
}

func TestRichSpreadsheet(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	taskID, err := o.Submit(context.Background(), []domain.FileInput{
		{RelativePath: "data.xlsx", Content: xlsxBytes(t)},
	})
	require.NoError(t, err)
	snap := waitDone(t, o, taskID)

	assert.Equal(t, 1, snap.Progress.RichMediaCount)
	require.Len(t, snap.RichMediaFiles, 1)
	assert.Equal(t, "data.xlsx", snap.RichMediaFiles[0].Path)
	assert.Equal(t, "Excel workbook (1 sheet)", snap.RichMediaFiles[0].Reason)

	zipPath, err := o.Download(taskID, "rich_media_original")
	require.NoError(t, err)
	assert.Equal(t, []string{"data.xlsx"}, archiveNames(t, zipPath))
}

func TestLegacyWithoutConverterIsRichMedia(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	taskID, err := o.Submit(context.Background(), []domain.FileInput{
		{RelativePath: "legacy/memo.doc", Content: []byte("\xd0\xcf\x11\xe0 legacy bytes")},
	})
	require.NoError(t, err)
	snap := waitDone(t, o, taskID)

	assert.Equal(t, 1, snap.Progress.RichMediaCount)
	require.Len(t, snap.RichMediaFiles, 1)
	assert.Equal(t, "legacy format requires converter", snap.RichMediaFiles[0].Reason)
}

func TestBucketPartitionInvariant(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	body := []byte("Shared content paragraph, long enough to keep.")

	taskID, err := o.Submit(context.Background(), []domain.FileInput{
		{RelativePath: "docs/keep.md", Content: body},
		{RelativePath: "docs/dup.md", Content: body},
		{RelativePath: "~$lock.docx", Content: []byte("lock")},
		{RelativePath: "sheet.xlsx", Content: xlsxBytes(t)},
		{RelativePath: "strange.xyz", Content: []byte("unknown format")},
	})
	require.NoError(t, err)
	snap := waitDone(t, o, taskID)

	p := snap.Progress
	assert.Equal(t, p.Total,
		p.PureTextCount+p.RichMediaCount+p.DuplicateCount+p.FailedCount+p.TempFileCount)
	assert.Equal(t, p.Total, p.Completed)
	assert.LessOrEqual(t, p.UniquePureCount, p.PureTextCount)
	assert.LessOrEqual(t, p.UniqueRichCount, p.RichMediaCount)
}

func TestUniqueRichMediaDedup(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	book := xlsxBytes(t)
	other := append(append([]byte(nil), book...), 0x00)

	taskID, err := o.Submit(context.Background(), []domain.FileInput{
		{RelativePath: "a/data.xlsx", Content: book},
		{RelativePath: "b/data.xlsx", Content: other},
	})
	require.NoError(t, err)
	snap := waitDone(t, o, taskID)

	assert.Equal(t, 2, snap.Progress.RichMediaCount)
	assert.Equal(t, 2, snap.Progress.UniqueRichCount)
}

func TestDownloadErrors(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	taskID, err := o.Submit(context.Background(), []domain.FileInput{
		{RelativePath: "note.txt", Content: []byte("A single plain note, past the length filter.")},
	})
	require.NoError(t, err)
	waitDone(t, o, taskID)

	_, err = o.Download(taskID, "nonsense")
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)

	_, err = o.Download(taskID, "failed")
	assert.ErrorIs(t, err, domain.ErrArchiveNotFound)

	_, err = o.Download("missing_task", "all")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskIDFormat(t *testing.T) {
	id := newTaskID(time.Date(2026, 8, 25, 13, 4, 5, 0, time.UTC))
	assert.Regexp(t, `^batch_20260825_130405_[0-9a-f]{6}$`, id)
}
