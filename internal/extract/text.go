package extract

import (
	"io"
	"strings"
	"unicode/utf8"
)

// TextExtractor handles plain text files
type TextExtractor struct{}

// Extract normalizes line endings and strips a UTF-8 byte order mark
func (e *TextExtractor) Extract(r io.Reader, filename string) (*Document, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}

	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	return &Document{
		Title:  titleFromName(filename),
		Format: FormatText,
		Text:   strings.TrimSpace(text),
	}, nil
}
