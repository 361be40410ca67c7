// Package reddit fetches ranked posts from subreddit listings.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/place-mention-heatmap/internal/adapter/resilience"
	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/failsafe-go/failsafe-go"
)

// DefaultBaseURL is the public Reddit host serving .json listings.
const DefaultBaseURL = "https://www.reddit.com"

// Client implements domain.ItemSource over the public "hot" listing of a
// subreddit.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	executor   failsafe.Executor[*http.Response]
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a Reddit listing client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		baseURL:    base,
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{Timeout: opts.Timeout},
		executor:   resilience.NewHTTPRetryExecutor(opts.MaxRetries, 500*time.Millisecond, 5*time.Second),
		logger:     logger,
	}
}

// FetchRanked returns up to limit hot posts of the subreddit named by source.
// Failures wrap domain.ErrSourceFault.
func (c *Client) FetchRanked(ctx context.Context, source string, limit int) ([]domain.Item, error) {
	source = strings.TrimPrefix(strings.TrimSpace(source), "r/")
	if source == "" {
		return nil, fmt.Errorf("%w: empty source name", domain.ErrSourceFault)
	}

	params := url.Values{
		"limit":    {strconv.Itoa(limit)},
		"raw_json": {"1"},
	}
	fullURL := fmt.Sprintf("%s/r/%s/hot.json?%s", c.baseURL, url.PathEscape(source), params.Encode())

	resp, err := c.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		return c.get(ctx, fullURL)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceFault, source, err)
	}
	defer resp.Body.Close()

	var body listing
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %s: decode listing: %w", domain.ErrSourceFault, source, err)
	}

	items := make([]domain.Item, 0, len(body.Data.Children))
	for _, child := range body.Data.Children {
		p := child.Data
		items = append(items, domain.Item{
			Title:     p.Title,
			Score:     p.Score,
			CreatedAt: time.Unix(int64(p.CreatedUTC), 0).UTC(),
			IsSelf:    p.IsSelf,
			URL:       p.URL,
		})
	}
	c.logger.Debug("listing fetched", "source", source, "items", len(items))
	return items, nil
}

// get performs one attempt. Retryable statuses come back as plain errors,
// other non-200 statuses as resilience.ErrPermanent.
func (c *Client) get(ctx context.Context, fullURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", errors.Join(err, resilience.ErrPermanent))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing request: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	_ = resp.Body.Close()
	if resilience.RetryableStatus(resp.StatusCode) {
		return nil, fmt.Errorf("reddit API error: status %d: %s", resp.StatusCode, snippet)
	}
	return nil, fmt.Errorf("reddit API error: status %d: %s: %w", resp.StatusCode, snippet, resilience.ErrPermanent)
}

// Reddit listing response types.

type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title      string  `json:"title"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	IsSelf     bool    `json:"is_self"`
	URL        string  `json:"url"`
}
