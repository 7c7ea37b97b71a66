package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXExtractor handles Word documents. Body paragraphs and table cells are
// emitted in document order, one paragraph per block.
type DOCXExtractor struct{}

// Extract reads paragraph and table text
func (e *DOCXExtractor) Extract(r io.Reader, filename string) (*Document, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var paragraphs []string
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			paragraphs = append(paragraphs, paragraphText(it))
		case *docx.Table:
			paragraphs = append(paragraphs, tableText(it)...)
		}
	}

	return &Document{
		Title:  titleFromName(filename),
		Format: FormatDOCX,
		Text:   joinParagraphs(paragraphs),
	}, nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			writeRun(&buf, c)
		case *docx.Hyperlink:
			writeRun(&buf, &c.Run)
		}
	}
	return strings.TrimSpace(buf.String())
}

func writeRun(buf *strings.Builder, run *docx.Run) {
	for _, rc := range run.Children {
		switch t := rc.(type) {
		case *docx.Text:
			buf.WriteString(t.Text)
		case *docx.Tab, *docx.BarterRabbet:
			buf.WriteByte(' ')
		}
	}
}

func tableText(t *docx.Table) []string {
	var out []string
	for _, row := range t.TableRows {
		for _, cell := range row.TableCells {
			for _, p := range cell.Paragraphs {
				out = append(out, paragraphText(p))
			}
			for _, nested := range cell.Tables {
				out = append(out, tableText(nested)...)
			}
		}
	}
	return out
}
