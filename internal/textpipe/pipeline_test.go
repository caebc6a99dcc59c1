package textpipe

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/docbatch/internal/dedup"
)

func newTestPipeline(t *testing.T, opts Options) (*Pipeline, dedup.Store) {
	t.Helper()
	store := dedup.NewMemory()
	p, err := New(store, opts)
	require.NoError(t, err)
	return p, store
}

func defaultOptions() Options {
	return Options{
		MinParagraphLen:          10,
		SimhashDistanceThreshold: 3,
		EnableNearDuplicate:      true,
	}
}

func TestProcessKeepsHeadingAndBody(t *testing.T) {
	p, _ := newTestPipeline(t, defaultOptions())

	text := "# Title\n\nParagraph one is ten-plus characters long."
	result := p.Process(context.Background(), text, "a.md")

	require.True(t, result.Success)
	assert.False(t, result.DocDuplicate)
	assert.Equal(t, 2, result.Stats.ParagraphsOriginal)
	assert.Equal(t, 2, result.Stats.ParagraphsAfterDedup)
	assert.Equal(t, 0, result.Stats.ParagraphsTooShort)
	assert.Equal(t, text, result.CleanedText)
}

func TestProcessDropsShortParagraphs(t *testing.T) {
	p, _ := newTestPipeline(t, defaultOptions())

	text := "tiny.\n\nThis paragraph is comfortably long enough to keep."
	result := p.Process(context.Background(), text, "short.txt")

	require.True(t, result.Success)
	assert.Equal(t, 2, result.Stats.ParagraphsOriginal)
	assert.Equal(t, 1, result.Stats.ParagraphsTooShort)
	assert.Equal(t, 1, result.Stats.ParagraphsAfterDedup)
	assert.Equal(t, "This paragraph is comfortably long enough to keep.", result.CleanedText)
}

func TestProcessLengthFilterExemptsOnlyRealHeadings(t *testing.T) {
	p, _ := newTestPipeline(t, defaultOptions())

	// "# Tags" is a heading and survives despite being short; "#golang"
	// has no space after the marker, renders as body text, and is
	// filtered like any other short paragraph.
	text := "# Tags\n\n#golang\n\nBody paragraph with enough characters."
	result := p.Process(context.Background(), text, "tags.md")

	require.True(t, result.Success)
	assert.Equal(t, 3, result.Stats.ParagraphsOriginal)
	assert.Equal(t, 1, result.Stats.ParagraphsTooShort)
	assert.Equal(t, "# Tags\n\nBody paragraph with enough characters.", result.CleanedText)
}

func TestProcessMinParagraphLenZeroKeepsEverything(t *testing.T) {
	opts := defaultOptions()
	opts.MinParagraphLen = 0
	p, _ := newTestPipeline(t, opts)

	result := p.Process(context.Background(), "tiny.\n\nThis paragraph is comfortably long enough to keep.", "short.txt")

	require.True(t, result.Success)
	assert.Equal(t, 0, result.Stats.ParagraphsTooShort)
	assert.Equal(t, 2, result.Stats.ParagraphsAfterDedup)
}

func TestProcessExactDedupAcrossDocuments(t *testing.T) {
	p, _ := newTestPipeline(t, defaultOptions())
	ctx := context.Background()

	first := p.Process(ctx, "Para X is long enough.\n\nPara Y is also long enough.", "b.md")
	require.True(t, first.Success)
	assert.Equal(t, 2, first.Stats.ParagraphsAfterDedup)

	second := p.Process(ctx, "Para X is long enough.\n\nPara Z is long enough.", "c.md")
	require.True(t, second.Success)
	assert.False(t, second.DocDuplicate)
	assert.Equal(t, 1, second.Stats.ParagraphsExactDup)
	assert.Equal(t, 0, second.Stats.ParagraphsNearDup)
	assert.Equal(t, "Para Z is long enough.", second.CleanedText)
}

func TestProcessIntraDocumentExactDedup(t *testing.T) {
	p, _ := newTestPipeline(t, defaultOptions())

	text := "Same paragraph appears twice in this document.\n\n" +
		"Same paragraph appears twice in this document.\n\n" +
		"Closing words differ from the opening."
	result := p.Process(context.Background(), text, "rep.txt")

	require.True(t, result.Success)
	assert.Equal(t, 3, result.Stats.ParagraphsOriginal)
	assert.Equal(t, 1, result.Stats.ParagraphsExactDup)
	assert.Equal(t, 2, result.Stats.ParagraphsAfterDedup)
	assert.Equal(t,
		"Same paragraph appears twice in this document.\n\nClosing words differ from the opening.",
		result.CleanedText)
}

func TestProcessIsIdempotentOnOwnOutput(t *testing.T) {
	p, _ := newTestPipeline(t, defaultOptions())
	ctx := context.Background()

	text := "Same paragraph appears twice in this document.\n\n" +
		"Same paragraph appears twice in this document.\n\n" +
		"Closing words differ from the opening."
	first := p.Process(ctx, text, "rep.txt")
	require.True(t, first.Success)

	second := p.Process(ctx, first.CleanedText, "rep-again.txt")
	assert.False(t, second.Success)
	assert.True(t, second.DocDuplicate)
	assert.Equal(t, first.CleanedText, second.CleanedText)
}

func TestProcessDocumentDuplicate(t *testing.T) {
	p, _ := newTestPipeline(t, defaultOptions())
	ctx := context.Background()

	text := "# Title\n\nParagraph one is ten-plus characters long."
	first := p.Process(ctx, text, "a.md")
	require.True(t, first.Success)

	second := p.Process(ctx, text, "a-copy.md")
	assert.False(t, second.Success)
	assert.True(t, second.DocDuplicate)
	assert.NotEmpty(t, second.CleanedText)
	assert.NotEmpty(t, second.Message)
}

func TestProcessNearDuplicateParagraphs(t *testing.T) {
	p, _ := newTestPipeline(t, defaultOptions())

	// Reordered tokens hash to the same simhash but a different SHA-256,
	// so only the near-duplicate stage can catch the second paragraph.
	text := "alpha beta gamma delta epsilon zeta\n\nbeta alpha gamma delta epsilon zeta"
	result := p.Process(context.Background(), text, "near.txt")

	require.True(t, result.Success)
	assert.Equal(t, 0, result.Stats.ParagraphsExactDup)
	assert.Equal(t, 1, result.Stats.ParagraphsNearDup)
	assert.Equal(t, 1, result.Stats.ParagraphsAfterDedup)
	assert.Equal(t, "alpha beta gamma delta epsilon zeta", result.CleanedText)
}

func TestProcessThresholdZeroDisablesNearDedup(t *testing.T) {
	opts := defaultOptions()
	opts.SimhashDistanceThreshold = 0
	p, _ := newTestPipeline(t, opts)

	text := "alpha beta gamma delta epsilon zeta\n\nbeta alpha gamma delta epsilon zeta"
	result := p.Process(context.Background(), text, "near.txt")

	require.True(t, result.Success)
	assert.Equal(t, 0, result.Stats.ParagraphsNearDup)
	assert.Equal(t, 2, result.Stats.ParagraphsAfterDedup)
}

func TestProcessNearDuplicateDisabledLeavesSimhashesUntouched(t *testing.T) {
	opts := defaultOptions()
	opts.EnableNearDuplicate = false
	p, store := newTestPipeline(t, opts)
	ctx := context.Background()

	result := p.Process(ctx, "Para X is long enough.\n\nPara Y is also long enough.", "b.md")
	require.True(t, result.Success)

	assert.Empty(t, store.AllParaSimhashes(ctx))
	stats := store.Stats(ctx)
	assert.Equal(t, int64(0), stats.SimhashCount)
	assert.Equal(t, int64(2), stats.ParaCount)

	// Exact dedup still works across documents without simhashes.
	second := p.Process(ctx, "Para X is long enough.\n\nPara Z is long enough.", "c.md")
	require.True(t, second.Success)
	assert.Equal(t, 1, second.Stats.ParagraphsExactDup)
}

func TestProcessEmptyDocumentNeverEntersStore(t *testing.T) {
	p, store := newTestPipeline(t, defaultOptions())
	ctx := context.Background()

	for _, text := range []string{"", "   \n\n \t ", "https://only-noise.example.com/path"} {
		result := p.Process(ctx, text, "empty.txt")
		require.True(t, result.Success, "input %q", text)
		assert.False(t, result.DocDuplicate)
		assert.Equal(t, "", result.CleanedText)
		assert.Equal(t, 0, result.Stats.ParagraphsAfterDedup)
	}

	stats := store.Stats(ctx)
	assert.Equal(t, int64(0), stats.DocCount)
	assert.Equal(t, int64(0), stats.ParaCount)
}

func TestProcessRemovesNoise(t *testing.T) {
	p, _ := newTestPipeline(t, defaultOptions())

	text := "这是第一段测试文本。\n\n" +
		"这是第二段测试文本，包含噪声: https://example.com/test 和 email@test.com\n\n" +
		"这是第三段测试文本，包含页码标记：第 3 页\n\n" +
		"这是第四段测试文本，结尾带有连续标点!!!!!!"
	result := p.Process(context.Background(), text, "noisy.txt")

	require.True(t, result.Success)
	assert.Equal(t, 4, result.Stats.NoiseRemovedCount)
	assert.Equal(t, 4, result.Stats.ParagraphsAfterDedup)
	assert.NotContains(t, result.CleanedText, "https://example.com/test")
	assert.NotContains(t, result.CleanedText, "email@test.com")
	assert.NotContains(t, result.CleanedText, "第 3 页")
	assert.NotContains(t, result.CleanedText, "!!!!!!")
}

func TestProcessCustomNoisePatterns(t *testing.T) {
	opts := defaultOptions()
	opts.CustomNoisePatterns = []string{`\d{4}-\d{2}-\d{2}`}
	p, _ := newTestPipeline(t, opts)

	result := p.Process(context.Background(), "Report issued on 2024-03-15 covers the fiscal year.", "dated.txt")

	require.True(t, result.Success)
	assert.Equal(t, 1, result.Stats.NoiseRemovedCount)
	assert.NotContains(t, result.CleanedText, "2024-03-15")
}

func TestNewRejectsInvalidNoisePattern(t *testing.T) {
	opts := defaultOptions()
	opts.CustomNoisePatterns = []string{`[unclosed`}

	_, err := New(dedup.NewMemory(), opts)
	assert.Error(t, err)
}

func TestProcessPreservesParagraphOrder(t *testing.T) {
	p, _ := newTestPipeline(t, defaultOptions())

	paras := []string{
		"First movement opens with a slow theme.",
		"Second movement answers in a quicker voice.",
		"Third movement returns to the opening material.",
		"Fourth movement closes with a coda.",
	}
	text := paras[0] + "\n\n" + paras[1] + "\n\n" + paras[0] + "\n\n" + paras[2] + "\n\n" + paras[3]
	result := p.Process(context.Background(), text, "order.txt")

	require.True(t, result.Success)
	assert.Equal(t, 1, result.Stats.ParagraphsExactDup)
	assert.Equal(t, strings.Join(paras, "\n\n"), result.CleanedText)
}

func TestProcessStatsLengths(t *testing.T) {
	p, _ := newTestPipeline(t, defaultOptions())

	text := "Windows line endings arrive here.\r\n\r\nSecond paragraph follows the break."
	result := p.Process(context.Background(), text, "crlf.txt")

	require.True(t, result.Success)
	assert.Equal(t, len([]rune(text)), result.Stats.OriginalLength)
	assert.Less(t, result.Stats.NormalizedLength, result.Stats.OriginalLength)
	assert.Equal(t, 2, result.Stats.ParagraphsAfterDedup)
}
