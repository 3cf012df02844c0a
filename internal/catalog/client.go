package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultSearchURL = "https://www.beatport.com/search"
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_11_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/50.0.2661.102 Safari/537.36"
	defaultTimeout   = 2 * time.Minute
	defaultRateLimit = time.Second

	// maxPageSize bounds how much of a result page is read.
	maxPageSize = 16 << 20
)

// Config holds catalog client settings.
type Config struct {
	SearchURL string
	UserAgent string
	// Timeout bounds one lookup, including the wait for the rate limiter.
	Timeout time.Duration
	// RateLimit is the minimum interval between requests.
	RateLimit time.Duration
	// MinScore is the score the best candidate must exceed.
	MinScore float64
}

// DefaultConfig returns the settings for the public Beatport site.
func DefaultConfig() Config {
	return Config{
		SearchURL: defaultSearchURL,
		UserAgent: defaultUserAgent,
		Timeout:   defaultTimeout,
		RateLimit: defaultRateLimit,
		MinScore:  DefaultMinScore,
	}
}

// Query is the locally known metadata of an album.
type Query struct {
	Album       string
	AlbumArtist string
	// FirstArtist is the artist tag of the first track, used when the album
	// artist is VariousArtists. It may list several artists separated by ",".
	FirstArtist string
	// Date is the date or year tag of the first track.
	Date string
}

// Client queries the catalog search page.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a catalog client. Zero fields in cfg take their
// default value.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.SearchURL == "" {
		cfg.SearchURL = def.SearchURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(cfg.RateLimit), 1),
	}
}

// SearchTerms builds the "q" parameter: album, artist and year, each
// URL-encoded and joined by "+".
func SearchTerms(q Query) string {
	artist := q.AlbumArtist
	if artist == VariousArtists {
		artist, _, _ = strings.Cut(q.FirstArtist, ",")
	}
	return url.QueryEscape(q.Album) + "+" + url.QueryEscape(artist) + "+" + url.QueryEscape(yearOf(q.Date))
}

// SearchURL returns the request URL for a query.
func (c *Client) SearchURL(q Query) string {
	sep := "?"
	if strings.Contains(c.cfg.SearchURL, "?") {
		sep = "&"
	}
	return c.cfg.SearchURL + sep + "q=" + SearchTerms(q)
}

// Resolve searches the catalog and returns the best candidate scoring above
// MinScore. Any lookup failure is reported as ErrNoMatch; only
// cancellation of ctx itself is returned as ctx.Err().
func (c *Client) Resolve(ctx context.Context, q Query) (*Match, error) {
	m, err := c.resolve(ctx, q)
	if err == nil {
		return m, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, ErrNoMatch) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrNoMatch, err)
}

func (c *Client) resolve(ctx context.Context, q Query) (*Match, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SearchURL(q), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("search status %d", resp.StatusCode)
	}

	candidates, err := ParsePage(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return c.choose(candidates)
}

// choose applies best-candidate selection and the score threshold.
func (c *Client) choose(candidates []Candidate) (*Match, error) {
	best, ok := Best(candidates)
	if !ok {
		return nil, fmt.Errorf("%w: no candidates", ErrNoMatch)
	}
	if best.Score <= c.cfg.MinScore {
		return nil, fmt.Errorf("%w: best score %g does not exceed %g", ErrNoMatch, best.Score, c.cfg.MinScore)
	}
	if strings.TrimSpace(best.CatalogNumber) == "" {
		return nil, fmt.Errorf("%w: best candidate has no catalog number", ErrNoMatch)
	}
	return &Match{
		Candidate: best,
		ISRC:      CatalogID(best.CatalogNumber),
		Genre:     Genre(best.Genres),
	}, nil
}

// yearOf returns the part of a date before the first "-", or "" when that
// part is not a number.
func yearOf(date string) string {
	year, _, _ := strings.Cut(strings.TrimSpace(date), "-")
	if year == "" || strings.Trim(year, "0123456789") != "" {
		return ""
	}
	return year
}
