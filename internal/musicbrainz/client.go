package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tonearm/internal/config"
	"tonearm/internal/services"
)

// Searcher finds artist candidates by name.
type Searcher interface {
	SearchArtists(ctx context.Context, name string) ([]Candidate, error)
}

// Client talks to the MusicBrainz web service.
type Client struct {
	baseURL    string
	userAgent  string
	limit      int
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New returns a client for baseURL (e.g. https://musicbrainz.org/ws/2).
func New(baseURL, userAgent string, limit int, timeout time.Duration, opts ...Option) *Client {
	if limit <= 0 {
		limit = 1
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the [musicbrainz] section.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	return New(cfg.MusicBrainz.BaseURL, cfg.FullUserAgent(), cfg.MusicBrainz.SearchLimit, cfg.RequestTimeout(), opts...)
}

// SearchArtists runs an exact-phrase artist search and returns candidates
// in the service's score order.
func (c *Client) SearchArtists(ctx context.Context, name string) ([]Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "musicbrainz", "search", "artist name is empty", nil)
	}

	params := url.Values{}
	params.Set("query", ArtistQuery(name))
	params.Set("fmt", "json")
	params.Set("limit", strconv.Itoa(c.limit))
	endpoint := c.baseURL + "/artist?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "musicbrainz", "build request", endpoint, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, services.Wrap(services.ErrTimeout, "musicbrainz", "search", name, err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrExternalService, "musicbrainz", "search", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, statusError(resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded artistSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "musicbrainz", "decode", name, err)
	}
	return decoded.Artists, nil
}

func statusError(code int, body string) error {
	msg := fmt.Sprintf("status %d", code)
	if body != "" {
		msg += ": " + body
	}
	switch {
	case code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable:
		return services.Wrap(services.ErrTransient, "musicbrainz", "search", msg, nil)
	case code >= 500:
		return services.Wrap(services.ErrExternalService, "musicbrainz", "search", msg, nil)
	default:
		return services.Wrap(services.ErrValidation, "musicbrainz", "search", msg, nil)
	}
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

// ArtistQuery builds the Lucene query matching name as an exact phrase in
// the artist field.
func ArtistQuery(name string) string {
	return `artist:"` + EscapeLucene(name) + `"`
}

const luceneSpecial = `+-&|!(){}[]^"~*?:\/`

// EscapeLucene backslash-escapes Lucene query syntax characters.
func EscapeLucene(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if strings.ContainsRune(luceneSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
