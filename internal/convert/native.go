package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/liliang-cn/docbatch/internal/docio"
	"github.com/liliang-cn/docbatch/internal/domain"
)

// convertNative handles the pairs that have a pure-Go implementation.
// Legacy binary formats (.doc, .xls, .ppt) have none and require the
// external converter.
func (t *Transcoder) convertNative(ctx context.Context, inputPath, targetExt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTranscodeFailed, err)
	}

	srcExt := strings.ToLower(filepath.Ext(inputPath))
	outPath := t.tempOutputPath(targetExt)

	switch {
	case targetExt == ".docx" && (srcExt == ".txt" || srcExt == ".md"):
		return t.wrapPlainText(inputPath, outPath)
	case targetExt == ".docx" && srcExt == ".pdf":
		return t.extractToDocx(inputPath, outPath, docio.ExtractPDFText)
	case targetExt == ".docx" && srcExt == ".docx":
		// Identity staging: the pipeline rewrites the copy in place.
		if err := copyFile(inputPath, outPath); err != nil {
			return "", fmt.Errorf("%w: copy docx: %v", domain.ErrTranscodeFailed, err)
		}
		return outPath, nil
	case targetExt == ".docx" && srcExt == ".xlsx":
		return t.extractToDocx(inputPath, outPath, docio.ExtractXlsxText)
	case targetExt == ".docx" && srcExt == ".pptx":
		return t.extractToDocx(inputPath, outPath, docio.ExtractPptxText)
	default:
		return "", fmt.Errorf("%w: no native engine for %s -> %s", domain.ErrTranscodeFailed, srcExt, targetExt)
	}
}

// wrapPlainText turns a .txt or .md file into a docx, one paragraph
// per line. Lines are kept verbatim, heading markers included, so the
// text pipeline still sees the markdown structure; the pipeline rewrite
// is what styles headings.
func (t *Transcoder) wrapPlainText(inputPath, outPath string) (string, error) {
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrTranscodeFailed, inputPath, err)
	}
	if err := docio.WriteDocxVerbatim(outPath, string(content)); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTranscodeFailed, err)
	}
	return outPath, nil
}

// extractToDocx pulls the plain text out of a container and rewraps it
// as a docx.
func (t *Transcoder) extractToDocx(inputPath, outPath string, extract func(string) (string, error)) (string, error) {
	text, err := extract(inputPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTranscodeFailed, err)
	}
	if err := docio.WriteDocxText(outPath, text); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTranscodeFailed, err)
	}
	return outPath, nil
}

func (t *Transcoder) tempOutputPath(targetExt string) string {
	stem := "temp_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return filepath.Join(t.tempDir, stem+targetExt)
}
