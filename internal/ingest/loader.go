package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"docqa-assistant/internal/model"
	"docqa-assistant/internal/pkg/pdfextract"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrNoContent         = errors.New("no content extracted")
	ErrPDFParse          = errors.New("PDF parsing failed. This might be due to complex layout, scanned content, or corrupted file. Try: 1) Converting to text format, 2) Using OCR software, 3) Simplifying the PDF")
)

// Section is one loaded unit of a document (a PDF page, a CSV row, or the
// whole text) before splitting.
type Section struct {
	Text     string
	Metadata map[string]string
}

type loaderFunc func(data []byte) ([]Section, error)

var loaders = map[string]loaderFunc{
	"pdf":  loadPDF,
	"txt":  loadPlain,
	"md":   loadPlain,
	"docx": loadDOCX,
	"html": loadHTML,
	"htm":  loadHTML,
	"csv":  loadCSV,
}

// FormatOf returns the lower-cased extension of a file name.
func FormatOf(name string) string {
	ext := path.Ext(strings.TrimSpace(name))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Load picks the loader from the file extension.
func Load(name string, data []byte) ([]Section, error) {
	format := FormatOf(name)
	load, ok := loaders[format]
	if !ok || !model.IsSupportedFormat(format) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	sections, err := load(data)
	if err != nil {
		if format == "pdf" {
			return nil, fmt.Errorf("%w: %v", ErrPDFParse, err)
		}
		return nil, fmt.Errorf("load %s failed: %w", format, err)
	}
	kept := sections[:0]
	for _, s := range sections {
		if strings.TrimSpace(s.Text) != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoContent
	}
	return kept, nil
}

func loadPlain(data []byte) ([]Section, error) {
	return []Section{{Text: string(data)}}, nil
}

func loadPDF(data []byte) ([]Section, error) {
	pages, err := pdfextract.ExtractPages(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	out := make([]Section, 0, len(pages))
	for _, p := range pages {
		out = append(out, Section{
			Text:     p.Text,
			Metadata: map[string]string{model.MetaPage: strconv.Itoa(p.Number - 1)},
		})
	}
	return out, nil
}

func loadCSV(data []byte) ([]Section, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Section
	for row := 0; ; row++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		lines := make([]string, 0, len(header))
		for i, col := range header {
			val := ""
			if i < len(record) {
				val = record[i]
			}
			lines = append(lines, strings.TrimSpace(col)+": "+strings.TrimSpace(val))
		}
		out = append(out, Section{
			Text:     strings.Join(lines, "\n"),
			Metadata: map[string]string{"row": strconv.Itoa(row)},
		})
	}
	return out, nil
}

var skippedHTMLElements = map[string]bool{"script": true, "style": true, "noscript": true, "template": true}

var blockHTMLElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "section": true, "article": true, "pre": true, "blockquote": true,
	"title": true, "table": true, "ul": true, "ol": true, "header": true, "footer": true,
}

func loadHTML(data []byte) ([]Section, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedHTMLElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte(' ')
				}
				b.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockHTMLElements[n.Data] && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	walk(doc)
	return []Section{{Text: strings.TrimSpace(b.String())}}, nil
}

// loadDOCX reads word/document.xml and keeps paragraph breaks.
func loadDOCX(data []byte) ([]Section, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx archive failed: %w", err)
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return nil, errors.New("docx has no word/document.xml")
	}
	rc, err := body.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var b strings.Builder
	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse docx xml failed: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return []Section{{Text: strings.TrimSpace(b.String())}}, nil
}
