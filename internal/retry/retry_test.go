package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/jobdeck/internal/fetch"
	"github.com/amishk599/jobdeck/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantKind      string
		wantRetryable bool
	}{
		{"nil", nil, "", false},
		{"timeout", &model.NetworkError{URL: "u", Timeout: true, Err: context.DeadlineExceeded}, "timeout", true},
		{"unreachable", &model.NetworkError{URL: "u", Err: errors.New("refused")}, "network", true},
		{"429", &model.HTTPError{StatusCode: 429}, "rate_limited", true},
		{"500", &model.HTTPError{StatusCode: 500}, "server", true},
		{"503 wrapped", fmt.Errorf("search: %w", &model.HTTPError{StatusCode: 503}), "server", true},
		{"400", &model.HTTPError{StatusCode: 400}, "client", false},
		{"403", &model.HTTPError{StatusCode: 403}, "client", false},
		{"404", &model.HTTPError{StatusCode: 404}, "not_found", false},
		{"parse", &model.ParseError{Source: "jobs", Err: errors.New("bad")}, "parse", true},
		{"cancelled", fmt.Errorf("load: %w", context.Canceled), "cancelled", false},
		{"rejected", fmt.Errorf("save: %w", model.ErrActionRejected), "rejected", false},
		{"synthetic", model.ErrSyntheticID, "rejected", false},
		{"untyped", errors.New("connection reset"), "unknown", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Kind != tt.wantKind || got.Retryable != tt.wantRetryable {
				t.Errorf("Classify() = %+v, want {%s %v}", got, tt.wantKind, tt.wantRetryable)
			}
			if IsRetryable(tt.err) != tt.wantRetryable {
				t.Errorf("IsRetryable() = %v, want %v", !tt.wantRetryable, tt.wantRetryable)
			}
		})
	}
}

// recordingSearch fails with the queued errors, then succeeds, recording
// the request it was asked to repeat.
type recordingSearch struct {
	mu       sync.Mutex
	requests []string
	errs     []error
}

func (r *recordingSearch) fetch(request string) func(ctx context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.requests = append(r.requests, request)
		if len(r.errs) > 0 {
			err := r.errs[0]
			r.errs = r.errs[1:]
			return nil, err
		}
		return &model.SearchPage{Jobs: []model.Job{{ID: "1"}}, Page: 1, Total: 1}, nil
	}
}

func TestController_SearchServerErrorThenRetry(t *testing.T) {
	search := &recordingSearch{errs: []error{&model.HTTPError{StatusCode: 500}}}
	c := NewController("jobs", []string{model.SourceJobs},
		Single(model.SourceJobs, search.fetch("q=go&page=2")), WithLogger(discardLogger()))

	view, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != TotalError {
		t.Fatalf("Status = %v, want total_error", view.Status)
	}
	if view.Message != "Error loading jobs" {
		t.Errorf("Message = %q", view.Message)
	}
	panel, _ := view.Panel(model.SourceJobs)
	if panel.State != PanelFailed || !panel.Retryable {
		t.Errorf("panel = %+v", panel)
	}
	if panel.Data != nil {
		t.Error("a failed search must not present an empty result list")
	}

	view, err = c.RetryAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != Loaded {
		t.Errorf("Status after retry = %v, want loaded", view.Status)
	}
	if want := []string{"q=go&page=2", "q=go&page=2"}; !reflect.DeepEqual(search.requests, want) {
		t.Errorf("requests = %v, want the identical request twice", search.requests)
	}
}

// insightsLoader serves scripted per-source outcomes and records calls.
type insightsLoader struct {
	mu       sync.Mutex
	calls    [][]string
	outcomes map[string][]error // per source, consumed in order; nil means success
	data     map[string]any
}

func (l *insightsLoader) load(ctx context.Context, names []string) (fetch.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, names)
	res := fetch.Result{Results: map[string]any{}}
	for _, name := range names {
		var err error
		if q := l.outcomes[name]; len(q) > 0 {
			err, l.outcomes[name] = q[0], q[1:]
		}
		if err != nil {
			res.Failures = append(res.Failures, model.SourceFailure{Name: name, Reason: fetch.Reason(err), Err: err})
			continue
		}
		res.Results[name] = l.data[name]
	}
	return res, nil
}

func newInsightsLoader() *insightsLoader {
	return &insightsLoader{
		outcomes: map[string][]error{},
		data: map[string]any{
			model.SourceRecommendations: []model.Job{{ID: "r1"}},
			model.SourceSkillsDemand:    []model.SkillDemand{{Skill: "Go", Demand: 10}},
			model.SourceSalaryInsights:  &model.SalaryInsights{Position: "SRE", Median: ptr(120000)},
		},
	}
}

func ptr(f float64) *float64 { return &f }

func TestController_PartialErrorAndScopedRetry(t *testing.T) {
	loader := newInsightsLoader()
	loader.outcomes[model.SourceRecommendations] = []error{
		&model.NetworkError{URL: "/api/ai/recommendations", Timeout: true, Err: context.DeadlineExceeded},
	}
	c := NewController("insights", model.InsightSources, loader.load, WithLogger(discardLogger()))

	view, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != PartialError {
		t.Fatalf("Status = %v, want partial_error", view.Status)
	}
	recs, _ := view.Panel(model.SourceRecommendations)
	if recs.State != PanelFailed {
		t.Fatalf("recommendations state = %v", recs.State)
	}
	if recs.Notice != "No recommendations available" || recs.Reason != "request timed out" || !recs.Retryable {
		t.Errorf("recommendations panel = %+v", recs)
	}
	for _, name := range []string{model.SourceSkillsDemand, model.SourceSalaryInsights} {
		if p, _ := view.Panel(name); p.State != PanelReady {
			t.Errorf("%s state = %v, want ready", name, p.State)
		}
	}

	view, err = c.Retry(context.Background(), model.SourceRecommendations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != Loaded {
		t.Errorf("Status after scoped retry = %v, want loaded", view.Status)
	}
	if got := loader.calls[len(loader.calls)-1]; !reflect.DeepEqual(got, []string{model.SourceRecommendations}) {
		t.Errorf("scoped retry fetched %v", got)
	}
	skills, _ := view.Panel(model.SourceSkillsDemand)
	if d, ok := skills.Data.([]model.SkillDemand); !ok || len(d) != 1 {
		t.Errorf("skills panel lost its data: %+v", skills)
	}
}

func TestController_EmptyDiffersFromFailed(t *testing.T) {
	loader := newInsightsLoader()
	loader.data[model.SourceSkillsDemand] = []model.SkillDemand{}
	loader.outcomes[model.SourceRecommendations] = []error{&model.HTTPError{StatusCode: 403}}
	c := NewController("insights", model.InsightSources, loader.load)

	view, _ := c.Load(context.Background())
	if view.Status != PartialError {
		t.Fatalf("Status = %v, want partial_error", view.Status)
	}
	skills, _ := view.Panel(model.SourceSkillsDemand)
	recs, _ := view.Panel(model.SourceRecommendations)

	if skills.State != PanelEmpty {
		t.Errorf("expected empty skills panel, got %v", skills.State)
	}
	if recs.State != PanelFailed || recs.Retryable {
		t.Errorf("403 should fail without retry: %+v", recs)
	}
	if skills.Notice == FailureNotice(model.SourceSkillsDemand) {
		t.Error("empty and failed panels must not share copy")
	}
}

func TestController_EmptyIsNotUsableData(t *testing.T) {
	loader := newInsightsLoader()
	loader.data[model.SourceSkillsDemand] = []model.SkillDemand{}
	loader.outcomes[model.SourceRecommendations] = []error{&model.HTTPError{StatusCode: 502}}
	loader.outcomes[model.SourceSalaryInsights] = []error{&model.NetworkError{URL: "u", Timeout: true, Err: context.DeadlineExceeded}}
	c := NewController("insights", model.InsightSources, loader.load)

	view, _ := c.Load(context.Background())
	if view.Status != TotalError || view.Message != "Error loading insights" {
		t.Errorf("two failed plus one empty: view = %+v, want total_error", view)
	}
}

func TestController_AllEmptyIsLoaded(t *testing.T) {
	loader := newInsightsLoader()
	loader.data[model.SourceRecommendations] = []model.Job{}
	loader.data[model.SourceSkillsDemand] = []model.SkillDemand{}
	loader.data[model.SourceSalaryInsights] = nil
	c := NewController("insights", model.InsightSources, loader.load)

	view, _ := c.Load(context.Background())
	if view.Status != Loaded {
		t.Errorf("Status = %v, want loaded when nothing failed", view.Status)
	}
}

func TestController_AllFailedIsTotalError(t *testing.T) {
	loader := newInsightsLoader()
	for _, name := range model.InsightSources {
		loader.outcomes[name] = []error{&model.HTTPError{StatusCode: 502}}
	}
	c := NewController("insights", model.InsightSources, loader.load)

	view, _ := c.Load(context.Background())
	if view.Status != TotalError || view.Message != "Error loading insights" {
		t.Errorf("view = %+v", view)
	}

	view, _ = c.RetryAll(context.Background())
	if view.Status != Loaded {
		t.Errorf("Status after full retry = %v", view.Status)
	}
	if len(loader.calls) != 2 || !reflect.DeepEqual(loader.calls[0], loader.calls[1]) {
		t.Errorf("full retry should repeat the identical request: %v", loader.calls)
	}
}

func TestController_StaleRetryDropped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	call := 0

	load := func(ctx context.Context, names []string) (fetch.Result, error) {
		mu.Lock()
		call++
		n := call
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release
			return fetch.Result{Results: map[string]any{"jobs": "stale"}}, nil
		}
		return fetch.Result{Results: map[string]any{"jobs": "fresh"}}, nil
	}
	c := NewController("jobs", []string{"jobs"}, load)

	done := make(chan View, 1)
	go func() {
		v, _ := c.Retry(context.Background(), "jobs")
		done <- v
	}()
	<-started

	if _, err := c.Retry(context.Background(), "jobs"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("first retry did not return")
	}

	p, _ := c.View().Panel("jobs")
	if p.Data != "fresh" {
		t.Errorf("Data = %v, want fresh", p.Data)
	}
}

func TestController_CancelledLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewController("jobs", []string{"jobs"}, Single("jobs", func(ctx context.Context) (any, error) {
		return nil, ctx.Err()
	}))
	if _, err := c.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if c.View().Status != Loading {
		t.Errorf("Status = %v, want loading", c.View().Status)
	}
}

func TestController_RetryUnknownSource(t *testing.T) {
	c := NewController("insights", model.InsightSources, newInsightsLoader().load)
	if _, err := c.Retry(context.Background(), "weather"); err == nil {
		t.Error("expected error for unknown source")
	}
}
