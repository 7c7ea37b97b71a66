// Package extract converts uploaded or downloaded documents into plain text.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// Format names reported in Document.Format
const (
	FormatPDF      = "pdf"
	FormatDOCX     = "docx"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatText     = "text"
)

// MaxDocumentBytes caps how much of a single document is read
const MaxDocumentBytes = 50 << 20

// Document is the extracted text of one file. Paragraphs are separated by
// blank lines; an empty Text is valid and means nothing readable was found.
type Document struct {
	Title  string
	Format string
	Text   string
}

// Extractor turns raw document bytes into a Document
type Extractor interface {
	Extract(r io.Reader, filename string) (*Document, error)
}

var extensions = map[string]string{
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".txt":      FormatText,
	".text":     FormatText,
}

var contentTypes = map[string]string{
	"application/pdf": FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDOCX,
	"text/markdown":         FormatMarkdown,
	"text/x-markdown":       FormatMarkdown,
	"text/html":             FormatHTML,
	"application/xhtml+xml": FormatHTML,
	"text/plain":            FormatText,
}

// ForFile returns the extractor for a filename's extension
func ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	format, ok := extensions[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
	return ForFormat(format)
}

// ForContentType returns the extractor for an HTTP Content-Type header
func ForContentType(contentType string) (Extractor, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("parse content type: %w", err)
	}
	format, ok := contentTypes[mediaType]
	if !ok {
		return nil, fmt.Errorf("unsupported content type: %q", mediaType)
	}
	return ForFormat(format)
}

// ForFormat returns the extractor for a format name
func ForFormat(format string) (Extractor, error) {
	switch format {
	case FormatPDF:
		return &PDFExtractor{}, nil
	case FormatDOCX:
		return &DOCXExtractor{}, nil
	case FormatMarkdown:
		return &MarkdownExtractor{}, nil
	case FormatHTML:
		return &HTMLExtractor{}, nil
	case FormatText:
		return &TextExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
}

// IsSupported reports whether filename has an extension ForFile accepts
func IsSupported(filename string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// SupportedExtensions lists the accepted file extensions
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".md", ".markdown", ".html", ".htm", ".txt", ".text"}
}

// titleFromName strips directories and the extension from a filename
func titleFromName(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// readAll reads r up to MaxDocumentBytes, failing on anything larger
func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(data) > MaxDocumentBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxDocumentBytes)
	}
	return data, nil
}

// joinParagraphs trims paragraphs, drops empty ones and joins with blank lines
func joinParagraphs(paragraphs []string) string {
	var buf bytes.Buffer
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(p)
	}
	return buf.String()
}
