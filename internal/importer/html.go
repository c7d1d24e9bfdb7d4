// Package importer reads bookmark files into records ready for
// repository.BulkAdd.
package importer

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/urlutil"
)

// ParseHTML parses a Netscape bookmark file. Headings become groups and
// anchors become links under the nearest enclosing heading. A heading's
// contents are the DL inside its DT or, failing that, the DL right after
// it. Files without any DL are imported flat. Anchors that are not valid
// http(s) URLs are skipped. A missing ADD_DATE leaves AddDate zero so the
// import time is used.
func ParseHTML(r io.Reader) ([]model.Record, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	p := &htmlParser{}
	if dl := findFirst(doc, atom.Dl); dl != nil {
		p.walkList(dl, nil)
		return p.records, nil
	}

	// No folder structure: import every anchor at the top level.
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			p.addLink(n, nil)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return p.records, nil
}

type htmlParser struct {
	records []model.Record
}

// walkList handles the children of a DL. Wrapper elements such as the
// <p> that follows every <DL> are looked through.
func (p *htmlParser) walkList(dl *html.Node, parentID *string) {
	// pending is the group whose heading had no DL inside its DT; the next
	// sibling DL belongs to it.
	var pending *string
	for c := dl.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Dt:
			pending = p.walkEntry(c, parentID)
		case atom.Dl:
			if pending != nil {
				p.walkList(c, pending)
				pending = nil
			} else {
				p.walkList(c, parentID)
			}
		default:
			p.walkList(c, parentID)
		}
	}
}

// walkEntry handles one DT. It returns the new group's id when the group
// still waits for its DL.
func (p *htmlParser) walkEntry(dt *html.Node, parentID *string) *string {
	first := firstElement(dt)
	if first == nil {
		return nil
	}

	switch first.DataAtom {
	case atom.A:
		p.addLink(first, parentID)
		return nil
	case atom.H3, atom.H1:
		id := p.addGroup(first, parentID)
		for c := first.NextSibling; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Dl {
				p.walkList(c, &id)
				return nil
			}
		}
		return &id
	}
	return nil
}

func (p *htmlParser) addGroup(h *html.Node, parentID *string) string {
	id := model.NewID()
	title := textContent(h)
	if title == "" {
		title = model.UntitledGroup
	}
	p.records = append(p.records, model.Record{
		ID:               id,
		Type:             string(model.KindGroup),
		Title:            title,
		URL:              model.GroupURL(id),
		ParentID:         parentID,
		AddDate:          addDate(h),
		DynamicParamKeys: []string{},
		Status:           string(model.StatusUnchecked),
	})
	return id
}

// addLink records every anchor, valid or not. Anchors without an http(s)
// URL are rejected and counted as skipped at import time.
func (p *htmlParser) addLink(a *html.Node, parentID *string) {
	href := strings.TrimSpace(attr(a, "href"))
	title := textContent(a)
	if title == "" {
		title = urlutil.PseudoTitle(href)
	}
	p.records = append(p.records, model.Record{
		ID:               model.NewID(),
		Type:             string(model.KindLink),
		Title:            title,
		URL:              href,
		ParentID:         parentID,
		AddDate:          addDate(a),
		DynamicParamKeys: []string{},
		Status:           string(model.StatusUnchecked),
	})
}

// addDate converts the ADD_DATE attribute from seconds to milliseconds.
func addDate(n *html.Node) int64 {
	v := attr(n, "add_date")
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return secs * 1000
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func firstElement(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// textContent returns the trimmed text content of a node.
func textContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// attr returns the value of an attribute, case-insensitive.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
