// Package exporter writes the bookmark collection out as the JSON export
// format or as a Netscape bookmark file.
package exporter

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/minimark/internal/model"
)

// Format names an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/bookmarks-export-YYYY-MM-DD.<ext>
func DefaultExportPath(format Format) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("bookmarks-export-%s.%s", time.Now().Format("2006-01-02"), format)
	return filepath.Join(home, "Downloads", filename), nil
}

// Export writes items to w in the given format.
func Export(w io.Writer, items []model.Bookmark, format Format) error {
	switch format {
	case FormatJSON:
		return ExportJSON(w, items)
	case FormatHTML:
		_, err := io.WriteString(w, ExportHTML(items))
		return err
	}
	return fmt.Errorf("unknown export format %q", format)
}

// ExportJSON writes every item as an indented JSON array of records.
// Nullable fields are written as explicit nulls and transient flags are
// left out.
func ExportJSON(w io.Writer, items []model.Bookmark) error {
	recs := make([]model.Record, len(items))
	for i, b := range items {
		recs[i] = b.Record()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// ExportHTML renders items as a Netscape bookmark file. Groups come before
// links at every level. Items whose parent is missing are written at the top
// level. Archived links are included.
func ExportHTML(items []model.Bookmark) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	t := newTree(items)
	t.write(&b, "", 1)

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

type tree struct {
	children map[string][]model.Bookmark
	written  map[string]bool
}

func newTree(items []model.Bookmark) *tree {
	ids := make(map[string]bool, len(items))
	for _, it := range items {
		ids[it.ID] = true
	}
	t := &tree{children: make(map[string][]model.Bookmark), written: make(map[string]bool)}
	for _, it := range items {
		parent := it.Parent()
		if !ids[parent] {
			parent = ""
		}
		t.children[parent] = append(t.children[parent], it)
	}
	return t
}

// write recursively writes groups and links for a given parent.
func (t *tree) write(b *strings.Builder, parentID string, indent int) {
	prefix := strings.Repeat("    ", indent)
	items := t.children[parentID]

	for _, g := range items {
		if !g.IsGroup() || t.written[g.ID] {
			continue
		}
		t.written[g.ID] = true
		fmt.Fprintf(b, "%s<DT><H3 ADD_DATE=\"%d\">%s</H3>\n", prefix, g.AddDate.Unix(), html.EscapeString(g.Title))
		fmt.Fprintf(b, "%s<DL><p>\n", prefix)
		t.write(b, g.ID, indent+1)
		fmt.Fprintf(b, "%s</DL><p>\n", prefix)
	}

	for _, l := range items {
		if !l.IsLink() || t.written[l.ID] {
			continue
		}
		t.written[l.ID] = true
		fmt.Fprintf(b,
			"%s<DT><A HREF=\"%s\" ADD_DATE=\"%d\">%s</A>\n",
			prefix,
			html.EscapeString(l.URL),
			l.AddDate.Unix(),
			html.EscapeString(l.Title),
		)
	}
}
