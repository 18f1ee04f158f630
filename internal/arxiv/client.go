// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv queries the arXiv API and normalizes raw Atom entries
// into canonical Paper records. It is the only component that talks to
// the upstream API.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/arxiv-harvester/internal/httputil"
	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// DefaultBaseURL is the arXiv search endpoint.
const DefaultBaseURL = "https://export.arxiv.org/api/query"

// ErrFetchFailed marks upstream failures that survived the retry budget.
// A harvest run that sees this error aborts without touching cadence state.
var ErrFetchFailed = errors.New("fetch failed")

// Client is a paginated, rate-limited arXiv API client. Page requests
// are spaced by the configured delay even when responses return fast.
type Client struct {
	hc      *http.Client
	cfg     types.ClientConfig
	baseURL string
	limiter *rate.Limiter
	warn    io.Writer
}

// NewClient builds a Client from cfg. Warnings about dropped entries are
// written to warn; pass io.Discard (or nil) to silence them.
func NewClient(cfg types.ClientConfig, warn io.Writer) *Client {
	cfg = cfg.WithDefaults()
	if warn == nil {
		warn = io.Discard
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		hc:      &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Every(cfg.PageDelay), 1),
		warn:    warn,
	}
}

// Search fetches papers matching req, paging until MaxResults entries
// are collected or the upstream returns an empty page. MaxResults 0
// means no cap. The call is all-or-nothing: any page failure discards
// results already fetched and returns ErrFetchFailed.
func (c *Client) Search(ctx context.Context, req types.SearchRequest) ([]types.Paper, error) {
	query := buildQuery(req)
	if query == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	var papers []types.Paper
	for start := 0; ; {
		pageSize := c.cfg.PageSize
		if req.MaxResults > 0 {
			if remaining := req.MaxResults - len(papers); remaining < pageSize {
				pageSize = remaining
			}
		}

		page, rawCount, err := c.fetchPage(ctx, query, req, start, pageSize)
		if err != nil {
			return nil, err
		}

		papers = append(papers, page...)
		start += rawCount

		// Zero raw entries signals upstream exhaustion. A page whose
		// entries were all filtered out is not exhaustion.
		if rawCount == 0 {
			break
		}
		if req.MaxResults > 0 && len(papers) >= req.MaxResults {
			papers = papers[:req.MaxResults]
			break
		}
	}

	return papers, nil
}

// GetPaperByID fetches a single paper via the id_list parameter.
func (c *Client) GetPaperByID(ctx context.Context, id string) (*types.Paper, error) {
	u := c.baseURL + "?" + url.Values{"id_list": {id}}.Encode()

	feed, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	papers := c.normalize(feed.Entries)
	if len(papers) == 0 {
		return nil, fmt.Errorf("%w: paper %s not found", ErrFetchFailed, id)
	}
	return &papers[0], nil
}

// fetchPage issues one page request and returns the normalized papers
// and the raw (pre-filter) entry count.
func (c *Client) fetchPage(ctx context.Context, query string, req types.SearchRequest, start, pageSize int) ([]types.Paper, int, error) {
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = types.SortRelevance
	}
	sortOrder := req.SortOrder
	if sortOrder == "" {
		sortOrder = types.OrderDescending
	}

	params := url.Values{
		"search_query": {query},
		"start":        {strconv.Itoa(start)},
		"max_results":  {strconv.Itoa(pageSize)},
		"sortBy":       {string(sortBy)},
		"sortOrder":    {string(sortOrder)},
	}

	feed, err := c.get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, 0, err
	}

	return c.normalize(feed.Entries), len(feed.Entries), nil
}

// get enforces the inter-page delay, performs the request with retries,
// and decodes the Atom feed.
func (c *Client) get(ctx context.Context, url string) (*atomFeed, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(c.hc, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: arXiv API request: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: arXiv API returned HTTP %d", ErrFetchFailed, resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: parsing arXiv response: %v", ErrFetchFailed, err)
	}
	return &feed, nil
}

// normalize converts raw Atom entries into Papers. Entries missing a
// title or identifier are dropped with a warning, not escalated.
func (c *Client) normalize(entries []atomEntry) []types.Paper {
	var papers []types.Paper
	for _, entry := range entries {
		title := strings.TrimSpace(entry.Title)
		id := strings.TrimSpace(entry.ID)
		if title == "" || id == "" {
			fmt.Fprintf(c.warn, "warning: dropping malformed entry (id=%q title=%q)\n", id, title)
			continue
		}

		p := types.Paper{
			ExternalID:  types.ExternalIDFrom(id),
			CanonicalID: id,
			Title:       title,
			Summary:     strings.TrimSpace(entry.Summary),
			Category:    entry.PrimaryCategory.Term,
		}

		for _, a := range entry.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				p.Authors = append(p.Authors, name)
			}
		}

		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			p.Published = t.UTC()
		}

		for _, link := range entry.Links {
			if link.Title == "pdf" || strings.Contains(link.Href, "/pdf/") {
				p.SourceURL = link.Href
				break
			}
		}

		papers = append(papers, p)
	}
	return papers
}

// buildQuery constructs the search_query parameter: the free-text query
// AND'd with the category filter and submitted-date range.
func buildQuery(req types.SearchRequest) string {
	var parts []string

	if req.Query != "" {
		parts = append(parts, req.Query)
	}

	if len(req.Categories) > 0 {
		cats := make([]string, len(req.Categories))
		for i, c := range req.Categories {
			cats[i] = "cat:" + c
		}
		clause := strings.Join(cats, " OR ")
		if len(cats) > 1 {
			clause = "(" + clause + ")"
		}
		parts = append(parts, clause)
	}

	if !req.From.IsZero() && !req.To.IsZero() {
		parts = append(parts, fmt.Sprintf("submittedDate:[%s TO %s]",
			req.From.Format("20060102150405"), req.To.Format("20060102150405")))
	}

	return strings.Join(parts, " AND ")
}

// arXiv Atom feed XML structures.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID              string       `xml:"id"`
	Title           string       `xml:"title"`
	Summary         string       `xml:"summary"`
	Published       string       `xml:"published"`
	Authors         []atomAuthor `xml:"author"`
	Links           []atomLink   `xml:"link"`
	PrimaryCategory atomCategory `xml:"primary_category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}
