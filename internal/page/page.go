package page

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is a single node located on a rendered page.
type Element interface {
	// Text returns the node's text content.
	Text() string
}

// Page is the query surface over one rendered product page.
type Page interface {
	// FindFirst locates the first element matching the selector.
	FindFirst(selector string) (Element, bool)

	// AllMatching returns every element matching the selector,
	// in document order.
	AllMatching(selector string) []Element

	// Content returns the page text used for site-agnostic scans.
	Content() string
}

type docPage struct {
	doc     *goquery.Document
	content string
}

type docElement struct {
	sel *goquery.Selection
}

// Parse builds a Page from rendered HTML.
func Parse(r io.Reader) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &docPage{doc: doc, content: doc.Text()}, nil
}

// ParseString builds a Page from an HTML string.
func ParseString(html string) (Page, error) {
	return Parse(strings.NewReader(html))
}

func (p *docPage) FindFirst(selector string) (Element, bool) {
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false
	}
	return &docElement{sel: sel}, true
}

func (p *docPage) AllMatching(selector string) []Element {
	var out []Element
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &docElement{sel: s})
	})
	return out
}

func (p *docPage) Content() string {
	return p.content
}

func (e *docElement) Text() string {
	return e.sel.Text()
}
