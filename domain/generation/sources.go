package generation

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// DefaultExcludedDomains are video and social hosts whose pages carry no
// readable article text.
var DefaultExcludedDomains = []string{
	"youtube.com",
	"youtu.be",
	"vimeo.com",
	"tiktok.com",
	"dailymotion.com",
	"instagram.com",
	"facebook.com",
}

// Source is a fetched web page usable as synthesis context.
type Source struct {
	Title       string
	Description string
	Link        string
	Text        string
}

// SourceGatherer searches the web and downloads the top results.
type SourceGatherer struct {
	searcher WebSearcher
	fetcher  PageFetcher
	limit    int
	minChars int
	excluded []string
	logger   *slog.Logger
}

// SourceOption configures a SourceGatherer.
type SourceOption func(*SourceGatherer)

// WithSourceLimit caps the number of search results used.
func WithSourceLimit(n int) SourceOption {
	return func(g *SourceGatherer) {
		if n > 0 {
			g.limit = n
		}
	}
}

// WithMinSourceChars drops pages with less visible text than n runes.
func WithMinSourceChars(n int) SourceOption {
	return func(g *SourceGatherer) { g.minChars = n }
}

// WithExcludedDomains drops results hosted on any of the domains or their
// subdomains. An empty list keeps the defaults.
func WithExcludedDomains(domains []string) SourceOption {
	return func(g *SourceGatherer) {
		if len(domains) == 0 {
			return
		}
		g.excluded = make([]string, 0, len(domains))
		for _, d := range domains {
			d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
			if d != "" {
				g.excluded = append(g.excluded, d)
			}
		}
	}
}

// WithSourceLogger sets the logger for dropped sources.
func WithSourceLogger(l *slog.Logger) SourceOption {
	return func(g *SourceGatherer) { g.logger = l }
}

// NewSourceGatherer creates a SourceGatherer.
func NewSourceGatherer(searcher WebSearcher, fetcher PageFetcher, opts ...SourceOption) *SourceGatherer {
	g := &SourceGatherer{
		searcher: searcher,
		fetcher:  fetcher,
		limit:    5,
		minChars: 150,
		logger:   slog.Default(),
	}
	WithExcludedDomains(DefaultExcludedDomains)(g)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Search runs the web search and returns normalized results: entries without
// title or link, duplicate links and excluded hosts are dropped, and the list
// is capped at the source limit.
func (g *SourceGatherer) Search(ctx context.Context, topic string) ([]SearchResult, error) {
	results, err := g.searcher.Search(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	return g.normalize(results), nil
}

func (g *SourceGatherer) normalize(results []SearchResult) []SearchResult {
	seen := make(map[string]struct{}, len(results))
	normalized := make([]SearchResult, 0, min(len(results), g.limit))
	for _, r := range results {
		if len(normalized) == g.limit {
			break
		}
		r.Title = strings.TrimSpace(r.Title)
		r.Link = strings.TrimSpace(r.Link)
		if r.Title == "" || r.Link == "" {
			continue
		}
		if _, dup := seen[r.Link]; dup {
			continue
		}
		if g.isExcluded(r.Link) {
			continue
		}
		seen[r.Link] = struct{}{}
		normalized = append(normalized, r)
	}
	return normalized
}

func (g *SourceGatherer) isExcluded(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range g.excluded {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Fetch downloads every result concurrently and keeps the pages with enough
// text, in result order. It returns ErrNoSources when none remain.
func (g *SourceGatherer) Fetch(ctx context.Context, results []SearchResult) ([]Source, error) {
	if len(results) == 0 {
		return nil, ErrNoSources
	}

	fetched := make([]*Source, len(results))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(len(results))
	for i, r := range results {
		eg.Go(func() error {
			text, err := g.fetcher.Fetch(egCtx, r.Link)
			if err != nil {
				g.logger.WarnContext(ctx, "dropping source", slog.String("link", r.Link), slog.Any("error", err))
				return nil
			}
			text = strings.TrimSpace(text)
			if utf8.RuneCountInString(text) < g.minChars {
				g.logger.DebugContext(ctx, "dropping short source", slog.String("link", r.Link), slog.Int("chars", utf8.RuneCountInString(text)))
				return nil
			}
			fetched[i] = &Source{Title: r.Title, Description: r.Snippet, Link: r.Link, Text: text}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sources := make([]Source, 0, len(results))
	for _, s := range fetched {
		if s != nil {
			sources = append(sources, *s)
		}
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	return sources, nil
}
