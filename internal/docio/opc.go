package docio

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// relationship mirrors one entry of an OPC .rels part.
type relationship struct {
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

type relationships struct {
	Relationships []relationship `xml:"Relationship"`
}

// DocxMediaCounts inspects the OPC container of a .docx: image
// relationships of the main document part and embedded graphic objects
// (drawings, pictures, OLE objects) in the document XML.
func DocxMediaCounts(path string) (imageRels, drawings int, err error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open container %s: %w", path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		switch f.Name {
		case "word/_rels/document.xml.rels":
			rels, err := readRelationships(f)
			if err != nil {
				return 0, 0, err
			}
			for _, rel := range rels {
				if strings.HasSuffix(rel.Type, "/image") {
					imageRels++
				}
			}
		case "word/document.xml":
			content, err := readZipFile(f)
			if err != nil {
				return 0, 0, err
			}
			drawings += bytes.Count(content, []byte("<w:drawing"))
			drawings += bytes.Count(content, []byte("<w:pict"))
			drawings += bytes.Count(content, []byte("<w:object"))
		}
	}
	return imageRels, drawings, nil
}

// SheetCount counts worksheets in an .xlsx container.
func SheetCount(path string) (int, error) {
	return countParts(path, "xl/worksheets/sheet")
}

// SlideCount counts slides in a .pptx container.
func SlideCount(path string) (int, error) {
	return countParts(path, "ppt/slides/slide")
}

func countParts(path, prefix string) (int, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("open container %s: %w", path, err)
	}
	defer r.Close()

	count := 0
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, prefix) && strings.HasSuffix(f.Name, ".xml") {
			count++
		}
	}
	return count, nil
}

// ExtractXlsxText collects the shared strings and inline cell strings of
// a workbook, one line per string.
func ExtractXlsxText(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open container %s: %w", path, err)
	}
	defer r.Close()

	var lines []string
	for _, f := range r.File {
		if f.Name != "xl/sharedStrings.xml" &&
			!(strings.HasPrefix(f.Name, "xl/worksheets/") && strings.HasSuffix(f.Name, ".xml")) {
			continue
		}
		texts, err := collectElementText(f, "t")
		if err != nil {
			return "", err
		}
		lines = append(lines, texts...)
	}
	return strings.Join(lines, "\n"), nil
}

// ExtractPptxText collects the text runs of every slide, slides
// separated by blank lines.
func ExtractPptxText(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open container %s: %w", path, err)
	}
	defer r.Close()

	var slides []string
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		texts, err := collectElementText(f, "t")
		if err != nil {
			return "", err
		}
		if len(texts) > 0 {
			slides = append(slides, strings.Join(texts, "\n"))
		}
	}
	return strings.Join(slides, "\n\n"), nil
}

// collectElementText gathers the character data of every element with
// the given local name, in document order.
func collectElementText(f *zip.File, local string) ([]string, error) {
	content, err := readZipFile(f)
	if err != nil {
		return nil, err
	}

	var (
		texts []string
		depth int
	)
	dec := xml.NewDecoder(bytes.NewReader(content))
	var current strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == local {
				depth++
				current.Reset()
			}
		case xml.CharData:
			if depth > 0 {
				current.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == local && depth > 0 {
				depth--
				if s := strings.TrimSpace(current.String()); s != "" {
					texts = append(texts, s)
				}
			}
		}
	}
	return texts, nil
}

func readRelationships(f *zip.File) ([]relationship, error) {
	content, err := readZipFile(f)
	if err != nil {
		return nil, err
	}
	var rels relationships
	if err := xml.Unmarshal(content, &rels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Name, err)
	}
	return rels.Relationships, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", f.Name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read part %s: %w", f.Name, err)
	}
	return content, nil
}
