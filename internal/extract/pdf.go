package extract

import (
	"bytes"
	"fmt"
	"io"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFExtractor handles PDF files. Pages are joined with blank lines and
// pages whose text cannot be decoded are skipped.
type PDFExtractor struct{}

// Extract reads the text layer of every page
func (e *PDFExtractor) Extract(r io.Reader, filename string) (*Document, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}

	title := titleFromName(filename)
	if info := reader.Trailer().Key("Info"); !info.IsNull() {
		if t := info.Key("Title").Text(); t != "" {
			title = t
		}
	}

	return &Document{
		Title:  title,
		Format: FormatPDF,
		Text:   joinParagraphs(pages),
	}, nil
}
