// Package textpipe cleans document text and filters duplicated content
// before the text is re-emitted as a .docx artifact. Cleaning covers
// encoding repair and noise removal; filtering covers document-level
// fingerprints plus exact and near-duplicate paragraph detection backed
// by the shared dedup store.
package textpipe

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/liliang-cn/docbatch/internal/dedup"
	"github.com/liliang-cn/docbatch/internal/domain"
	"github.com/liliang-cn/docbatch/pkg/log"
)

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// Options controls paragraph filtering. The zero value disables every
// filter except exact dedup, which is always on.
type Options struct {
	// MinParagraphLen drops paragraphs shorter than this many runes.
	// Markdown headings are exempt. Zero keeps everything.
	MinParagraphLen int
	// SimhashDistanceThreshold is the maximum Hamming distance at which
	// two paragraphs count as near-duplicates. Zero disables the distance
	// comparison, leaving exact dedup only.
	SimhashDistanceThreshold int
	// EnableNearDuplicate gates simhash computation entirely. When false
	// the simhash map is never read or written.
	EnableNearDuplicate bool
	// EnableCrossDocDedup is accepted for config compatibility. Paragraph
	// fingerprints live in the shared store, so dedup is cross-document
	// whenever the store is; the flag does not change behaviour.
	EnableCrossDocDedup bool
	// CustomNoisePatterns extend the default noise regex set.
	CustomNoisePatterns []string
}

// Result is what Process returns. Success is false only for document-level
// duplicates; CleanedText is populated either way so the caller can still
// write the artifact.
type Result struct {
	Success      bool
	DocDuplicate bool
	CleanedText  string
	Message      string
	Stats        domain.PipelineStats
}

type Pipeline struct {
	store  dedup.Store
	opts   Options
	noise  *noiseRemover
	logger *slog.Logger
}

func New(store dedup.Store, opts Options) (*Pipeline, error) {
	noise, err := newNoiseRemover(opts.CustomNoisePatterns)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		store:  store,
		opts:   opts,
		noise:  noise,
		logger: log.WithModule("textpipe"),
	}, nil
}

// Process runs the full pipeline on raw document text: normalization,
// noise removal, document fingerprint check, then per-paragraph dedup.
// Documents that clean down to nothing never enter the store.
func (p *Pipeline) Process(ctx context.Context, text, docName string) Result {
	var stats domain.PipelineStats
	stats.OriginalLength = utf8.RuneCountInString(text)

	normalized := Normalize(text)
	stats.NormalizedLength = utf8.RuneCountInString(normalized)

	cleaned, removed := p.noise.apply(normalized)
	stats.NoiseRemovedCount = removed

	if strings.TrimSpace(cleaned) == "" {
		return Result{
			Success:     true,
			CleanedText: "",
			Message:     "document is empty after cleaning",
			Stats:       stats,
		}
	}

	fingerprint := dedup.HashText(cleaned)
	if p.store.IsDocSeen(ctx, fingerprint) {
		p.logger.Debug("document fingerprint already recorded", "doc", docName)
		return Result{
			Success:      false,
			DocDuplicate: true,
			CleanedText:  cleaned,
			Message:      "document content duplicates previously ingested text",
			Stats:        stats,
		}
	}
	p.store.MarkDoc(ctx, fingerprint)

	kept := p.dedupParagraphs(ctx, cleaned, &stats)
	final := strings.Join(kept, "\n\n")
	stats.ParagraphsAfterDedup = len(kept)

	// Paragraph dedup may have changed the text, so the reassembled form
	// gets its own fingerprint. Re-running the pipeline on its own output
	// then reports doc_duplicate instead of re-ingesting.
	if final != cleaned && final != "" {
		p.store.MarkDoc(ctx, dedup.HashText(final))
	}

	p.logger.Debug("text pipeline finished",
		"doc", docName,
		"paragraphs_original", stats.ParagraphsOriginal,
		"paragraphs_after_dedup", stats.ParagraphsAfterDedup,
		"noise_removed", stats.NoiseRemovedCount,
	)

	return Result{
		Success:     true,
		CleanedText: final,
		Message:     "text cleaned",
		Stats:       stats,
	}
}

func (p *Pipeline) dedupParagraphs(ctx context.Context, text string, stats *domain.PipelineStats) []string {
	var known []uint64
	if p.opts.EnableNearDuplicate {
		existing := p.store.AllParaSimhashes(ctx)
		known = make([]uint64, 0, len(existing))
		for _, sh := range existing {
			known = append(known, sh)
		}
	}

	var kept []string
	for _, para := range splitParagraphs(text) {
		stats.ParagraphsOriginal++

		if utf8.RuneCountInString(para) < p.opts.MinParagraphLen && !isHeading(para) {
			stats.ParagraphsTooShort++
			continue
		}

		hash := dedup.HashText(para)
		if p.store.IsParaSeen(ctx, hash) {
			stats.ParagraphsExactDup++
			continue
		}

		if p.opts.EnableNearDuplicate {
			sh := dedup.Simhash(para)
			if p.opts.SimhashDistanceThreshold > 0 && nearAny(sh, known, p.opts.SimhashDistanceThreshold) {
				stats.ParagraphsNearDup++
				continue
			}
			p.store.MarkPara(ctx, hash, &sh)
			known = append(known, sh)
		} else {
			p.store.MarkPara(ctx, hash, nil)
		}

		kept = append(kept, para)
	}

	return kept
}

// splitParagraphs breaks text on blank lines and trims each piece. Pieces
// that trim to nothing are not paragraphs and are not counted.
func splitParagraphs(text string) []string {
	parts := paragraphBreak.Split(text, -1)
	paras := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		paras = append(paras, part)
	}
	return paras
}

// isHeading reports whether a paragraph is a markdown-style heading:
// one or more '#' markers followed by a space and the heading text.
// Headings are structural markers, so the length filter keeps them even
// when the heading text itself is short. The predicate matches what the
// docx writer styles as a heading, so a kept short paragraph never
// renders as plain body text.
func isHeading(para string) bool {
	level := 0
	for level < len(para) && para[level] == '#' {
		level++
	}
	return level > 0 && level < len(para) && para[level] == ' '
}

func nearAny(sh uint64, known []uint64, threshold int) bool {
	for _, k := range known {
		if dedup.HammingDistance(sh, k) <= threshold {
			return true
		}
	}
	return false
}
