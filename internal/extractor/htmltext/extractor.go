// Package htmltext extracts visible page text using goquery.
package htmltext

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/JakeFAU/webanalyst/internal/analysis"
)

// skippedElements hold text that is never rendered.
var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"template": {},
}

// Extractor implements analysis.Extractor.
type Extractor struct {
	maxChars int
}

// New returns an Extractor that keeps at most maxChars characters.
// A non-positive value keeps the default budget.
func New(maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = analysis.DefaultMaxChars
	}
	return &Extractor{maxChars: maxChars}
}

// Extract returns the visible text of an HTML response, each text node
// trimmed and joined by a single space, truncated to the character budget.
func (e *Extractor) Extract(resp analysis.FetchResponse) (string, error) {
	reader, err := utf8Reader(resp)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return analysis.Truncate(VisibleText(doc), e.maxChars), nil
}

// VisibleText joins the trimmed text nodes of doc with single spaces.
func VisibleText(doc *goquery.Document) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		case html.CommentNode, html.DoctypeNode:
			return
		case html.ElementNode:
			if _, skip := skippedElements[n.Data]; skip {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

// utf8Reader decodes bodies that are not already UTF-8, using the declared
// Content-Type or, failing that, the document's meta tags.
func utf8Reader(resp analysis.FetchResponse) (io.Reader, error) {
	if utf8.Valid(resp.Body) {
		return bytes.NewReader(resp.Body), nil
	}
	r, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType())
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	return r, nil
}
