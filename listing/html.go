package listing

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pablogventura/likebook-wifi-book-uploader/types"
)

// HTMLParser parses the legacy firmware's HTML index page, which links
// every stored book as an anchor under /files/. The anchor text carries an
// optional trailing size in parentheses.
type HTMLParser struct{}

var _ Parser = HTMLParser{}

func (HTMLParser) Parse(r io.Reader) ([]types.BookEntry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing HTML: %w", err)
	}

	var books []types.BookEntry
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.HasPrefix(href, "/files/") {
			return
		}
		escaped := strings.TrimPrefix(href, "/files/")
		name, err := url.PathUnescape(escaped)
		if err != nil || name == "" {
			return
		}
		books = append(books, types.BookEntry{
			Index: len(books) + 1,
			Name:  name,
			Size:  anchorSize(sel.Text(), name),
		})
	})
	if books == nil {
		books = []types.BookEntry{}
	}
	return books, nil
}

// anchorSize extracts a trailing "(<size>)" annotation from the anchor
// text, e.g. "book.epub (1.2 MB)" -> "1.2 MB".
func anchorSize(text, name string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), name))
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		return strings.TrimSpace(rest[1 : len(rest)-1])
	}
	return ""
}
