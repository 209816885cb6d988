// Package fetch issues JSON requests to the job-data endpoints. FetchAll fans
// a set of named requests out concurrently and settles all of them, so one
// slow or broken source never takes its siblings down.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobdeck/internal/model"
)

// DefaultTimeout applies to requests that do not set their own.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a non-2xx body is kept in the error.
const maxErrorBody = 512

// Limiter spaces requests to the same host.
type Limiter interface {
	WaitURL(ctx context.Context, rawURL string) error
}

// NamedRequest is one GET in a FetchAll batch.
type NamedRequest struct {
	Name    string
	URL     string
	Timeout time.Duration // zero means the fetcher default
}

// Result is the settled outcome of a FetchAll batch. Every request appears
// in exactly one of Results or Failures.
type Result struct {
	Results  map[string]any
	Failures []model.SourceFailure
}

// Failed reports whether the named request failed.
func (r Result) Failed(name string) bool {
	for _, f := range r.Failures {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Options configures a Fetcher.
type Options struct {
	Client         *http.Client
	UserAgent      string
	Token          string // sent as a bearer token when set
	DefaultTimeout time.Duration
	MaxConcurrency int // zero or negative means unbounded
	Limiter        Limiter
	Logger         *slog.Logger
}

// Fetcher performs JSON requests. It holds no per-call state and is safe for
// concurrent use.
type Fetcher struct {
	client         *http.Client
	userAgent      string
	token          string
	defaultTimeout time.Duration
	maxConcurrency int
	limiter        Limiter
	logger         *slog.Logger
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		client:         opts.Client,
		userAgent:      opts.UserAgent,
		token:          opts.Token,
		defaultTimeout: opts.DefaultTimeout,
		maxConcurrency: opts.MaxConcurrency,
		limiter:        opts.Limiter,
		logger:         opts.Logger,
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.defaultTimeout <= 0 {
		f.defaultTimeout = DefaultTimeout
	}
	if f.logger == nil {
		f.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return f
}

// FetchAll issues every request concurrently, each under its own timeout,
// and waits for all of them. Failures are listed in request order. The only
// error returned is the caller's context being cancelled.
func (f *Fetcher) FetchAll(ctx context.Context, reqs []NamedRequest) (Result, error) {
	values := make([]any, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	if f.maxConcurrency > 0 {
		g.SetLimit(f.maxConcurrency)
	}
	for i, req := range reqs {
		g.Go(func() error {
			// Errors are collected per slot; returning nil keeps siblings running.
			values[i], errs[i] = f.Do(ctx, http.MethodGet, req.URL, nil, req.Timeout)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("fetch all: %w", err)
	}

	res := Result{Results: make(map[string]any, len(reqs))}
	for i, req := range reqs {
		if errs[i] != nil {
			f.logger.Warn("source failed", "source", req.Name, "url", req.URL, "error", errs[i])
			res.Failures = append(res.Failures, model.SourceFailure{
				Name:   req.Name,
				Reason: Reason(errs[i]),
				Err:    errs[i],
			})
			continue
		}
		res.Results[req.Name] = values[i]
	}
	return res, nil
}

// Do performs one request and decodes the JSON response. body, when not nil,
// is encoded as the JSON request body. A zero timeout uses the default.
//
// Errors are *model.NetworkError, *model.HTTPError or *model.ParseError,
// except for the caller's own cancellation which is returned as is.
func (f *Fetcher) Do(ctx context.Context, method, url string, body any, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}
	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, url); err != nil {
			return nil, err
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body for %s: %w", url, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.transportError(ctx, url, err)
	}
	defer resp.Body.Close()

	f.logger.Debug("response", "method", method, "url", url, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("%s %s: %s", method, url, bytes.TrimSpace(snippet)),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, f.transportError(ctx, url, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, &model.ParseError{Source: url, Err: err}
	}
	return out, nil
}

// transportError classifies a failed round trip. The caller's cancellation
// passes through untouched; everything else is a NetworkError.
func (f *Fetcher) transportError(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return &model.NetworkError{URL: url, Timeout: timeout, Err: err}
}

// ParseRetryAfter parses a Retry-After header value into a duration.
// Supports seconds format (e.g. "120") and HTTP dates. Returns zero if absent
// or unparseable.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Reason renders an error as a short user-facing reason.
func Reason(err error) string {
	var (
		netErr   *model.NetworkError
		httpErr  *model.HTTPError
		parseErr *model.ParseError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &netErr) && netErr.Timeout:
		return "request timed out"
	case errors.As(err, &netErr):
		return "server unreachable"
	case errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests:
		if httpErr.RetryAfter > 0 {
			return fmt.Sprintf("rate limited, retry in %s", httpErr.RetryAfter.Round(time.Second))
		}
		return "rate limited"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("server returned %d %s", httpErr.StatusCode, http.StatusText(httpErr.StatusCode))
	case errors.As(err, &parseErr):
		return "unexpected response"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return err.Error()
}
