// Package api is typed access to the job-board endpoints. It builds URLs
// and interprets statuses; payloads are returned raw for the normalizer.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobdeck/internal/fetch"
	"github.com/amishk599/jobdeck/internal/filter"
	"github.com/amishk599/jobdeck/internal/model"
)

// Actions accepted by Action.
const (
	ActionApply  = "apply"
	ActionSave   = "save"
	ActionUnsave = "unsave"
)

// DefaultPageSize is the search page size when none is configured.
const DefaultPageSize = 20

// Doer is the part of fetch.Fetcher the client needs.
type Doer interface {
	Do(ctx context.Context, method, url string, body any, timeout time.Duration) (any, error)
	FetchAll(ctx context.Context, reqs []fetch.NamedRequest) (fetch.Result, error)
}

// Options configures a Client.
type Options struct {
	PageSize       int
	SourceTimeouts map[string]time.Duration // keyed by model.Source* names
}

// InsightsQuery parameterizes the insight endpoints.
type InsightsQuery struct {
	UserID   string
	Limit    int
	Position string
}

// Client calls the job-board API.
type Client struct {
	base           *url.URL
	doer           Doer
	pageSize       int
	sourceTimeouts map[string]time.Duration
}

// New creates a client rooted at baseURL.
func New(baseURL string, doer Doer, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:           base,
		doer:           doer,
		pageSize:       opts.PageSize,
		sourceTimeouts: opts.SourceTimeouts,
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	return c, nil
}

// PageSize returns the configured search page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

// endpoint joins path segments onto the base URL. Segments are escaped, so
// an id containing "/" stays one segment.
func (c *Client) endpoint(query url.Values, segments ...string) string {
	u := *c.base
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	u.Path = c.base.Path + "/" + strings.Join(segments, "/")
	u.RawPath = c.base.EscapedPath() + "/" + strings.Join(escaped, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// SearchURL returns the search request URL for s. The page and page size
// are always sent.
func (c *Client) SearchURL(s filter.State) string {
	q := s.Values()
	page := s.Page
	if page < 1 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(c.pageSize))
	return c.endpoint(q, "jobs", "search")
}

// Search runs a job search and returns the raw envelope.
func (c *Client) Search(ctx context.Context, s filter.State) (any, error) {
	body, err := c.doer.Do(ctx, http.MethodGet, c.SearchURL(s), nil, c.sourceTimeouts[model.SourceJobs])
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}
	return body, nil
}

// SearchRequest is the search as a named request for a FetchAll batch.
func (c *Client) SearchRequest(name string, s filter.State) fetch.NamedRequest {
	return fetch.NamedRequest{Name: name, URL: c.SearchURL(s), Timeout: c.sourceTimeouts[model.SourceJobs]}
}

// Job fetches one job. A 404 is reported as model.ErrNotFound.
func (c *Client) Job(ctx context.Context, id string) (any, error) {
	body, err := c.doer.Do(ctx, http.MethodGet, c.endpoint(nil, "jobs", id), nil, 0)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, notFound(err))
	}
	return body, nil
}

// Similar fetches jobs similar to id.
func (c *Client) Similar(ctx context.Context, id string) (any, error) {
	body, err := c.doer.Do(ctx, http.MethodGet, c.endpoint(nil, "jobs", id, "similar"), nil, 0)
	if err != nil {
		return nil, fmt.Errorf("similar jobs for %s: %w", id, notFound(err))
	}
	return body, nil
}

// InsightRequests builds the named requests for the given insight sources.
// Unknown names are skipped.
func (c *Client) InsightRequests(q InsightsQuery, names []string) []fetch.NamedRequest {
	reqs := make([]fetch.NamedRequest, 0, len(names))
	for _, name := range names {
		var u string
		switch name {
		case model.SourceRecommendations:
			v := url.Values{}
			if q.UserID != "" {
				v.Set("user_id", q.UserID)
			}
			if q.Limit > 0 {
				v.Set("limit", strconv.Itoa(q.Limit))
			}
			u = c.endpoint(v, "api", "ai", "recommendations")
		case model.SourceSkillsDemand:
			u = c.skillsDemandURL(q.Limit)
		case model.SourceSalaryInsights:
			v := url.Values{}
			if q.Position != "" {
				v.Set("position", q.Position)
			}
			u = c.endpoint(v, "api", "ai", "salary-insights")
		default:
			continue
		}
		reqs = append(reqs, fetch.NamedRequest{Name: name, URL: u, Timeout: c.sourceTimeouts[name]})
	}
	return reqs
}

// SkillsDemandRequest is the skills-demand request on its own.
func (c *Client) SkillsDemandRequest(limit int) fetch.NamedRequest {
	return fetch.NamedRequest{
		Name:    model.SourceSkillsDemand,
		URL:     c.skillsDemandURL(limit),
		Timeout: c.sourceTimeouts[model.SourceSkillsDemand],
	}
}

func (c *Client) skillsDemandURL(limit int) string {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return c.endpoint(v, "api", "ai", "skills-demand")
}

// FetchAll runs a batch through the underlying fetcher.
func (c *Client) FetchAll(ctx context.Context, reqs []fetch.NamedRequest) (fetch.Result, error) {
	return c.doer.FetchAll(ctx, reqs)
}

// Action posts apply, save or unsave for a job. A response with
// success=false is model.ErrActionRejected; an empty 2xx body counts as
// success.
func (c *Client) Action(ctx context.Context, id, action string) error {
	switch action {
	case ActionApply, ActionSave, ActionUnsave:
	default:
		return fmt.Errorf("unknown action %q", action)
	}

	body, err := c.doer.Do(ctx, http.MethodPost, c.endpoint(nil, "jobs", id, action), nil, 0)
	if err != nil {
		return fmt.Errorf("%s job %s: %w", action, id, notFound(err))
	}

	resp, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	success, ok := resp["success"].(bool)
	if ok && !success {
		if msg, _ := resp["message"].(string); msg != "" {
			return fmt.Errorf("%s job %s: %s: %w", action, id, msg, model.ErrActionRejected)
		}
		return fmt.Errorf("%s job %s: %w", action, id, model.ErrActionRejected)
	}
	return nil
}

// notFound maps a 404 to model.ErrNotFound, keeping the HTTP error in the chain.
func notFound(err error) error {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", model.ErrNotFound, err)
	}
	return err
}
