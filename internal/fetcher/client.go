// Package fetcher talks to the page-fetching proxy used to derive titles for
// new links and to probe link liveness.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nikbrunner/minimark/internal/logger"
	"github.com/nikbrunner/minimark/internal/urlutil"
)

const (
	DefaultProxyURL   = "https://api.allorigins.win/get"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 1
	DefaultBackoff    = 2 * time.Second

	// maxBody caps how much of a proxy response is read.
	maxBody = 8 << 20
)

var ErrEmptyContents = errors.New("proxy returned no contents")

// NetworkError is returned when the proxy round trip fails.
type NetworkError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("fetch %s (%d attempts): %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Options configures a Client. Zero values take the defaults.
type Options struct {
	ProxyURL   string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     logger.Logger
}

// Client fetches page contents through the proxy.
type Client struct {
	proxyURL   string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
	log        logger.Logger

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a proxy client.
func NewClient(opts Options) *Client {
	c := &Client{
		proxyURL:   opts.ProxyURL,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		httpClient: opts.HTTPClient,
		log:        opts.Logger,
		sleep:      sleepCtx,
	}
	if c.proxyURL == "" {
		c.proxyURL = DefaultProxyURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.backoff <= 0 {
		c.backoff = DefaultBackoff
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	return c
}

type proxyResponse struct {
	Contents *string `json:"contents"`
}

// Contents performs a single proxy request for pageURL and returns the page
// body the proxy relayed. The caller's context bounds the request.
func (c *Client) Contents(ctx context.Context, pageURL string) (string, error) {
	endpoint := c.proxyURL + "?url=" + url.QueryEscape(pageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &NetworkError{URL: pageURL, Attempts: 1, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{URL: pageURL, Attempts: 1, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", &NetworkError{URL: pageURL, Attempts: 1, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &NetworkError{URL: pageURL, Attempts: 1, Err: fmt.Errorf("proxy status %d", resp.StatusCode)}
	}

	var pr proxyResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return "", &NetworkError{URL: pageURL, Attempts: 1, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if pr.Contents == nil {
		return "", nil
	}
	return *pr.Contents, nil
}

// ContentsWithTimeout is Contents bounded by the client's per-attempt
// timeout.
func (c *Client) ContentsWithTimeout(ctx context.Context, pageURL string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Contents(ctx, pageURL)
}

// FetchTitle retrieves the page title for pageURL. Each attempt has its own
// timeout; failed attempts are retried up to MaxRetries times with a linear
// backoff. Any failure yields the URL's pseudo-title.
func (c *Client) FetchTitle(ctx context.Context, pageURL string) string {
	title, err := c.fetchTitle(ctx, pageURL)
	if err != nil {
		c.log.Warn("title fetch failed, using fallback",
			logger.String("url", pageURL),
			logger.String("reason", Reason(err)),
		)
		return urlutil.PseudoTitle(pageURL)
	}
	return title
}

func (c *Client) fetchTitle(ctx context.Context, pageURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff*time.Duration(attempt)); err != nil {
				return "", &NetworkError{URL: pageURL, Attempts: attempt, Err: err}
			}
		}

		contents, err := c.ContentsWithTimeout(ctx, pageURL, c.timeout)
		switch {
		case err != nil:
			lastErr = err
		case contents == "":
			lastErr = ErrEmptyContents
		default:
			if title := ParseTitle(contents, pageURL); title != "" {
				return title, nil
			}
			lastErr = errors.New("no title in page")
		}

		c.log.Debug("title fetch attempt failed",
			logger.String("url", pageURL),
			logger.Int("attempt", attempt+1),
			logger.Error(lastErr),
		)
	}

	var ne *NetworkError
	if errors.As(lastErr, &ne) {
		ne.Attempts = c.maxRetries + 1
		return "", ne
	}
	return "", &NetworkError{URL: pageURL, Attempts: c.maxRetries + 1, Err: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
