package urlutil_test

import (
	"testing"

	"github.com/nikbrunner/minimark/internal/urlutil"
)

func TestIsValidHTTPURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com", true},
		{"http://example.com/a?b=c", true},
		{"HTTPS://EXAMPLE.COM", true},
		{"ftp://x.com", false},
		{"not a url", false},
		{"example.com", false},
		{"https://", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := urlutil.IsValidHTTPURL(tt.in); got != tt.want {
				t.Errorf("IsValidHTTPURL(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"https://www.example.com/path", "www.example.com", true},
		{"http://sub.Example.org:8080", "sub.example.org", true},
		{"not a url", "", false},
		{"ftp://x.com", "", false},
		{"", "", false},
		{"group:123", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := urlutil.ExtractDomain(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractDomain(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPseudoTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.foo.com/bar/baz.html", "foo.com / baz"},
		{"https://foo.com/", "foo.com"},
		{"https://foo.com", "foo.com"},
		{"https://foo.com/a/b/", "foo.com / b"},
		{"https://foo.com/index.PHP", "foo.com / index"},
		{"https://foo.com/.html", "foo.com"},
		{"not a url", "Untitled Link"},
		{"ftp://x.com/a", "Untitled Link"},
		{"mailto:someone@example.com", "Untitled Link"},
		{"", "Untitled Link"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := urlutil.PseudoTitle(tt.in); got != tt.want {
				t.Errorf("PseudoTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsPlaceholderTitle(t *testing.T) {
	u := "https://www.foo.com/bar/baz.html"

	if !urlutil.IsPlaceholderTitle(u, u) {
		t.Error("URL as title should be a placeholder")
	}
	if !urlutil.IsPlaceholderTitle("foo.com / baz", u) {
		t.Error("pseudo-title should be a placeholder")
	}
	if !urlutil.IsPlaceholderTitle("  ", u) {
		t.Error("blank title should be a placeholder")
	}
	if urlutil.IsPlaceholderTitle("Baz Docs", u) {
		t.Error("real title should not be a placeholder")
	}
}

func TestQueryKeysAndApplyParams(t *testing.T) {
	u := "https://search.example.com/q?term=go&page=2&term=again"

	keys := urlutil.QueryKeys(u)
	if len(keys) != 2 || keys[0] != "term" || keys[1] != "page" {
		t.Fatalf("QueryKeys = %v, want [term page]", keys)
	}

	got := urlutil.ApplyParams(u, []string{"term"}, map[string]string{"term": "rust", "page": "9"})
	want := "https://search.example.com/q?page=2&term=rust"
	if got != want {
		t.Errorf("ApplyParams = %q, want %q", got, want)
	}

	if got := urlutil.ApplyParams(u, nil, map[string]string{"term": "x"}); got != u {
		t.Errorf("ApplyParams without keys changed URL to %q", got)
	}
}

func TestToggleKey(t *testing.T) {
	keys, on := urlutil.ToggleKey(nil, "q")
	if !on || len(keys) != 1 {
		t.Fatalf("expected q to be added, got %v %v", keys, on)
	}

	orig := []string{"a", "q", "b"}
	keys, on = urlutil.ToggleKey(orig, "q")
	if on || len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("expected q to be removed, got %v %v", keys, on)
	}
	if len(orig) != 3 || orig[1] != "q" {
		t.Errorf("input slice was modified: %v", orig)
	}
}
