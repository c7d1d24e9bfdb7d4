// Package urlutil holds the URL helpers shared by ingest, import, grouping
// and liveness checks.
package urlutil

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// UntitledLink is the title used when nothing can be derived from a URL.
const UntitledLink = "Untitled Link"

var documentExt = regexp.MustCompile(`(?i)\.(html|htm|php|asp|aspx)$`)

// IsValidHTTPURL reports whether s is an absolute http or https URL.
func IsValidHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	return u.Host != ""
}

// ExtractDomain returns the lower-cased hostname of an http(s) URL.
// ok is false for empty or non-http input.
func ExtractDomain(rawURL string) (string, bool) {
	if rawURL == "" || !strings.HasPrefix(rawURL, "http") {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}

// PseudoTitle builds a readable title from the hostname and the last path
// segment, e.g. "https://www.foo.com/bar/baz.html" gives "foo.com / baz".
// Anything that is not an http(s) URL is an untitled link.
func PseudoTitle(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		return UntitledLink
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return UntitledLink
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return UntitledLink
	}

	var last string
	for _, seg := range strings.Split(u.EscapedPath(), "/") {
		if seg != "" {
			last = seg
		}
	}
	if last == "" {
		return host
	}
	last = documentExt.ReplaceAllString(last, "")
	if last == "" {
		return host
	}
	return host + " / " + last
}

// IsPlaceholderTitle reports whether title is only a stand-in derived from
// the URL rather than a real page title.
func IsPlaceholderTitle(title, rawURL string) bool {
	t := strings.TrimSpace(title)
	return t == "" || t == rawURL || t == PseudoTitle(rawURL)
}

// QueryKeys lists the distinct query parameter names of rawURL in the order
// they appear.
func QueryKeys(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	var keys []string
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		k, _, _ := strings.Cut(pair, "=")
		if k, err = url.QueryUnescape(k); err != nil || k == "" {
			continue
		}
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// ApplyParams sets the given dynamic parameters on rawURL. Keys without a
// value in values keep what the URL already carries.
func ApplyParams(rawURL string, keys []string, values map[string]string) string {
	if len(keys) == 0 || len(values) == 0 {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for _, k := range keys {
		if v, ok := values[k]; ok {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ToggleKey adds key to keys when absent and removes it otherwise. It
// returns the new slice and whether key is now present.
func ToggleKey(keys []string, key string) ([]string, bool) {
	if i := slices.Index(keys, key); i >= 0 {
		return slices.Delete(slices.Clone(keys), i, i+1), false
	}
	return append(slices.Clone(keys), key), true
}
