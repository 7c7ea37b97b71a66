package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLExtractor handles HTML pages. Text is taken from the main content
// region when the page marks one (main, then article or role=main, then
// body) and page chrome such as navigation and scripts is skipped.
type HTMLExtractor struct{}

var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"template": true,
	"svg":      true,
	"form":     true,
	"button":   true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "dd": true, "dt": true, "br": true,
	"td": true, "th": true,
}

// Extract returns the visible text of the page
func (e *HTMLExtractor) Extract(r io.Reader, filename string) (*Document, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(nodeText(findFirst(doc, isElement("title"))))
	if title == "" {
		title = titleFromName(filename)
	}

	return &Document{
		Title:  title,
		Format: FormatHTML,
		Text:   visibleText(mainContent(doc)),
	}, nil
}

// mainContent picks the element holding the document body
func mainContent(doc *html.Node) *html.Node {
	if n := findFirst(doc, isElement("main")); n != nil {
		return n
	}
	if n := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && (n.Data == "article" || attr(n, "role") == "main")
	}); n != nil {
		return n
	}
	if n := findFirst(doc, isElement("body")); n != nil {
		return n
	}
	return doc
}

// visibleText collects text nodes, breaking paragraphs at block elements
func visibleText(root *html.Node) string {
	var (
		paragraphs []string
		current    strings.Builder
	)
	flush := func() {
		paragraphs = append(paragraphs, current.String())
		current.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipElements[n.Data] || attr(n, "hidden") != "" || attr(n, "aria-hidden") == "true" {
				return
			}
			if blockElements[n.Data] {
				flush()
				defer flush()
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				if current.Len() > 0 {
					current.WriteByte(' ')
				}
				current.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(root)
	flush()
	return joinParagraphs(paragraphs)
}

func isElement(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			buf.WriteString(c.Data)
		}
	}
	return buf.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			if a.Val == "" {
				return key
			}
			return a.Val
		}
	}
	return ""
}
