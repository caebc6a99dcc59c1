// Package docio reads and writes the document containers the batch
// pipeline handles: docx paragraph walks and rewrites via go-docx, raw
// OPC part inspection for classification, pdf text and primitive scans,
// and text extraction from workbook and presentation containers.
package docio

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// headingSizes maps markdown heading levels to docx half-point font
// sizes. Levels deeper than three render at the level-three size.
var headingSizes = []string{"32", "28", "26"}

// ExtractDocxText returns the document's paragraph text, paragraphs
// joined by blank lines. Tables are skipped: only paragraph-level text
// feeds the cleaning pipeline.
func ExtractDocxText(path string) (string, error) {
	doc, err := openDocx(path)
	if err != nil {
		return "", err
	}

	var paras []string
	for _, item := range doc.Document.Body.Items {
		p, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := strings.TrimSpace(p.String())
		if text == "" {
			continue
		}
		paras = append(paras, text)
	}
	return strings.Join(paras, "\n\n"), nil
}

// DocxBodyCounts reports the table count and the non-empty paragraph
// count of the main document part.
func DocxBodyCounts(path string) (tables, paragraphs int, err error) {
	doc, err := openDocx(path)
	if err != nil {
		return 0, 0, err
	}

	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Table:
			tables++
		case *docx.Paragraph:
			if strings.TrimSpace(it.String()) != "" {
				paragraphs++
			}
		}
	}
	return tables, paragraphs, nil
}

// WriteDocxText writes plain text as a fresh docx file at path. Each
// non-blank line becomes one paragraph; lines starting with markdown
// heading markers become sized heading paragraphs with the markers
// stripped.
func WriteDocxText(path, text string) error {
	w := docx.New().WithDefaultTheme()

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		para := w.AddParagraph()
		if level, body := headingLevel(line); level > 0 {
			para.AddText(body).Size(headingSizes[level-1])
		} else {
			para.AddText(line)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create docx %s: %w", path, err)
	}
	defer f.Close()

	if _, err := w.WriteTo(f); err != nil {
		return fmt.Errorf("write docx %s: %w", path, err)
	}
	return nil
}

// WriteDocxVerbatim writes plain text as a docx without interpreting
// markdown markers: one plain paragraph per non-blank line. Used to
// stage .txt/.md inputs so heading markers survive into the cleaning
// pipeline; the post-pipeline rewrite styles them.
func WriteDocxVerbatim(path, text string) error {
	w := docx.New().WithDefaultTheme()

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		w.AddParagraph().AddText(line)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create docx %s: %w", path, err)
	}
	defer f.Close()

	if _, err := w.WriteTo(f); err != nil {
		return fmt.Errorf("write docx %s: %w", path, err)
	}
	return nil
}

// headingLevel parses a markdown heading prefix. It returns the level
// capped at three and the heading text, or zero when the line is not a
// heading.
func headingLevel(line string) (int, string) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level >= len(line) || line[level] != ' ' {
		return 0, ""
	}
	if level > 3 {
		level = 3
	}
	return level, strings.TrimSpace(line[level:])
}

func openDocx(path string) (*docx.Docx, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open docx %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat docx %s: %w", path, err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx %s: %w", path, err)
	}
	return doc, nil
}
