// Package fetch downloads web pages and extracts their visible text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/helixml/snippets/domain/generation"
)

// DefaultUserAgents are tried in order until one gets a usable page.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

const (
	defaultTimeout  = 5 * time.Second
	defaultMaxBytes = 5 << 20
)

// ErrEmptyPage indicates a page without visible text.
var ErrEmptyPage = errors.New("empty page")

// Fetcher downloads pages with a hard per-attempt timeout, rotating user
// agents when a site refuses one.
type Fetcher struct {
	client     *http.Client
	userAgents []string
	timeout    time.Duration
	maxBytes   int64
	logger     *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgents replaces the user agent rotation. An empty list keeps the
// defaults.
func WithUserAgents(agents []string) Option {
	return func(f *Fetcher) {
		if len(agents) > 0 {
			f.userAgents = append([]string(nil), agents...)
		}
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     &http.Client{},
		userAgents: DefaultUserAgents,
		timeout:    defaultTimeout,
		maxBytes:   defaultMaxBytes,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the visible text of the page at link. Each user agent gets
// one attempt; the first non-empty page wins.
func (f *Fetcher) Fetch(ctx context.Context, link string) (string, error) {
	var errs []error
	for _, agent := range f.userAgents {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := f.attempt(ctx, link, agent)
		if err == nil {
			return text, nil
		}
		f.logger.DebugContext(ctx, "fetch attempt failed", slog.String("link", link), slog.Any("error", err))
		errs = append(errs, err)
	}
	return "", fmt.Errorf("fetch %s: %w", link, errors.Join(errs...))
}

func (f *Fetcher) attempt(ctx context.Context, link, agent string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", agent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, f.maxBytes)
	var text string
	if isPlainText(resp.Header.Get("Content-Type")) {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		text = CollapseWhitespace(string(raw))
	} else {
		text, err = VisibleText(body)
		if err != nil {
			return "", err
		}
	}

	if text == "" {
		return "", ErrEmptyPage
	}
	return text, nil
}

func isPlainText(contentType string) bool {
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.EqualFold(media, "text/plain")
}

var _ generation.PageFetcher = (*Fetcher)(nil)
