package fetcher

import (
	"html"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var titlePolicy = bluemonday.StrictPolicy()

// ParseTitle extracts a page title from raw HTML. The document <title> wins;
// pages without one fall back to the article title readability finds.
func ParseTitle(contents, pageURL string) string {
	if strings.TrimSpace(contents) == "" {
		return ""
	}

	if doc, err := xhtml.Parse(strings.NewReader(contents)); err == nil {
		if t := CleanTitle(findTitle(doc)); t != "" {
			return t
		}
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(contents), u)
	if err != nil {
		return ""
	}
	return CleanTitle(article.Title)
}

// CleanTitle strips markup and entities from a title and collapses runs of
// whitespace.
func CleanTitle(s string) string {
	s = titlePolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// findTitle returns the text of the first <title> element outside of <svg>.
func findTitle(n *xhtml.Node) string {
	if n.Type == xhtml.ElementNode {
		switch n.DataAtom {
		case atom.Svg:
			return ""
		case atom.Title:
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == xhtml.TextNode {
					sb.WriteString(c.Data)
				}
			}
			return sb.String()
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
