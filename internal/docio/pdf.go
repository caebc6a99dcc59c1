package docio

import (
	"fmt"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/liliang-cn/docbatch/pkg/log"
)

// PDFInspection summarises the non-textual content of a pdf for the
// classifier: raster image XObjects, form XObjects (complex vector
// drawings), and the densest page's line/rectangle primitive count.
type PDFInspection struct {
	RasterImages      int
	FormXObjects      int
	MaxPagePrimitives int
	Pages             int
}

// ExtractPDFText concatenates the plain text of every page. Pages whose
// text cannot be decoded are skipped with a warning, matching how bad
// pages behave in practice: most of the document is still usable.
func ExtractPDFText(path string) (text string, err error) {
	defer recoverPDF(path, &err)

	r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}

	logger := log.WithModule("docio")
	var content strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			logger.Warn("failed to extract pdf page text", "path", path, "page", i, "error", err)
			continue
		}
		content.WriteString(pageText)
		content.WriteString("\n")
	}
	return content.String(), nil
}

// InspectPDF scans every page's resource dictionary and content for the
// structural elements that disqualify a pdf from the text-only verdict.
func InspectPDF(path string) (insp PDFInspection, err error) {
	defer recoverPDF(path, &err)

	r, err := pdf.Open(path)
	if err != nil {
		return insp, fmt.Errorf("open pdf %s: %w", path, err)
	}

	insp.Pages = r.NumPage()
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		xobjects := p.Resources().Key("XObject")
		for _, name := range xobjects.Keys() {
			switch xobjects.Key(name).Key("Subtype").Name() {
			case "Image":
				insp.RasterImages++
			case "Form":
				insp.FormXObjects++
			}
		}

		if n := len(p.Content().Rect); n > insp.MaxPagePrimitives {
			insp.MaxPagePrimitives = n
		}
	}
	return insp, nil
}

// recoverPDF converts parser panics into errors. The pdf library panics
// on malformed cross-reference tables, and a broken upload must surface
// as a per-file error, not take down a worker.
func recoverPDF(path string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed pdf %s: %v", path, r)
	}
}
