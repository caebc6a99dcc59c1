// Package classify decides whether a document is text-only or
// rich-media. The verdict is strict: any structural element beyond
// paragraph-level text (tables, images, drawings, sheets, slides)
// disqualifies a file, and inherently tabular or presentational formats
// are never text-only.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/liliang-cn/docbatch/internal/docio"
	"github.com/liliang-cn/docbatch/internal/domain"
	"github.com/liliang-cn/docbatch/pkg/log"
)

// rulePrimitiveLimit is the per-page line/rectangle count at which a pdf
// is assumed to contain a ruled table.
const rulePrimitiveLimit = 11

var (
	markdownImage = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	htmlImage     = regexp.MustCompile(`(?i)<img\b`)
)

// Transcoder is the conversion capability the classifier needs for
// legacy binary formats: they are inspected through their modern zipped
// equivalents.
type Transcoder interface {
	Convert(ctx context.Context, inputPath, targetExt string) (string, error)
}

type Classifier struct {
	transcoder Transcoder
	logger     *slog.Logger
}

// New builds a classifier. The transcoder may be nil, in which case
// legacy formats are reported as rich-media because they cannot be
// inspected.
func New(transcoder Transcoder) *Classifier {
	return &Classifier{
		transcoder: transcoder,
		logger:     log.WithModule("classify"),
	}
}

// Classify inspects the file at path and returns the verdict. The error
// is non-nil only for I/O failures; unsupported extensions are a normal
// rich-media verdict, not an error.
func (c *Classifier) Classify(ctx context.Context, path string) (domain.Verdict, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt", ".md":
		return c.classifyPlainText(path)
	case ".docx":
		return c.classifyDocx(path)
	case ".xlsx":
		return c.classifyXlsx(path)
	case ".pptx":
		return c.classifyPptx(path)
	case ".pdf":
		return c.classifyPDF(path)
	case ".doc":
		return c.classifyLegacy(ctx, path, ".docx", c.classifyDocx)
	case ".xls":
		return c.classifyLegacy(ctx, path, ".xlsx", c.classifyXlsx)
	case ".ppt":
		return c.classifyLegacy(ctx, path, ".pptx", c.classifyPptx)
	default:
		return domain.Verdict{TextOnly: false, Reason: "unsupported format"}, nil
	}
}

func (c *Classifier) classifyPlainText(path string) (domain.Verdict, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("read %s: %w", path, err)
	}

	text := string(content)
	if markdownImage.MatchString(text) || htmlImage.MatchString(text) {
		return domain.Verdict{TextOnly: false, Reason: "contains image references"}, nil
	}
	return domain.Verdict{TextOnly: true, Reason: "plain text document"}, nil
}

func (c *Classifier) classifyDocx(path string) (domain.Verdict, error) {
	tables, paragraphs, err := docio.DocxBodyCounts(path)
	if err != nil {
		return domain.Verdict{}, err
	}
	imageRels, drawings, err := docio.DocxMediaCounts(path)
	if err != nil {
		return domain.Verdict{}, err
	}

	switch {
	case tables > 0:
		return domain.Verdict{Reason: fmt.Sprintf("contains %d tables", tables)}, nil
	case imageRels > 0:
		return domain.Verdict{Reason: fmt.Sprintf("contains %d images", imageRels)}, nil
	case drawings > 0:
		return domain.Verdict{Reason: fmt.Sprintf("contains %d graphic objects", drawings)}, nil
	case paragraphs == 0:
		return domain.Verdict{Reason: "no textual paragraphs"}, nil
	}
	return domain.Verdict{
		TextOnly: true,
		Reason:   fmt.Sprintf("pure-text document (%d paragraphs)", paragraphs),
	}, nil
}

func (c *Classifier) classifyXlsx(path string) (domain.Verdict, error) {
	sheets, err := docio.SheetCount(path)
	if err != nil {
		return domain.Verdict{}, err
	}
	return domain.Verdict{Reason: fmt.Sprintf("Excel workbook (%s)", plural(sheets, "sheet"))}, nil
}

func (c *Classifier) classifyPptx(path string) (domain.Verdict, error) {
	slides, err := docio.SlideCount(path)
	if err != nil {
		return domain.Verdict{}, err
	}
	return domain.Verdict{Reason: fmt.Sprintf("PowerPoint presentation (%s)", plural(slides, "slide"))}, nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func (c *Classifier) classifyPDF(path string) (domain.Verdict, error) {
	insp, err := docio.InspectPDF(path)
	if err != nil {
		return domain.Verdict{}, err
	}

	switch {
	case insp.RasterImages > 0:
		return domain.Verdict{Reason: fmt.Sprintf("contains %d images", insp.RasterImages)}, nil
	case insp.FormXObjects > 0:
		return domain.Verdict{Reason: fmt.Sprintf("contains %d vector drawings", insp.FormXObjects)}, nil
	case insp.MaxPagePrimitives >= rulePrimitiveLimit:
		return domain.Verdict{
			Reason: fmt.Sprintf("contains ruled lines (%d primitives per page)", insp.MaxPagePrimitives),
		}, nil
	}
	return domain.Verdict{
		TextOnly: true,
		Reason:   fmt.Sprintf("pure-text document (%d pages)", insp.Pages),
	}, nil
}

// classifyLegacy transcodes a legacy binary file to its modern zipped
// equivalent in the transcoder's temp area, classifies that, and removes
// the intermediate.
func (c *Classifier) classifyLegacy(ctx context.Context, path, targetExt string,
	classify func(string) (domain.Verdict, error)) (domain.Verdict, error) {

	if c.transcoder == nil {
		return domain.Verdict{Reason: "legacy format requires converter"}, nil
	}

	converted, err := c.transcoder.Convert(ctx, path, targetExt)
	if err != nil {
		c.logger.Warn("legacy transcode for classification failed", "path", path, "error", err)
		return domain.Verdict{Reason: "legacy format requires converter"}, nil
	}
	defer os.Remove(converted)

	return classify(converted)
}
