// Package service is the surface views consume: searches, job detail,
// insights, actions and suggestions, all returning normalized models.
package service

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/amishk599/jobdeck/internal/api"
	"github.com/amishk599/jobdeck/internal/fetch"
	"github.com/amishk599/jobdeck/internal/filter"
	"github.com/amishk599/jobdeck/internal/model"
	"github.com/amishk599/jobdeck/internal/normalize"
	"github.com/amishk599/jobdeck/internal/store"
	"github.com/amishk599/jobdeck/internal/suggest"
)

// InsightsQuery parameterizes GetInsights.
type InsightsQuery = api.InsightsQuery

// Options configures a Service.
type Options struct {
	FallbackSearchURL string
	SuggestLimit      int
	Now               func() time.Time
}

// Service wires the API client, the normalizer and the local store.
type Service struct {
	client   *api.Client
	saved    model.SavedStore
	logger   *slog.Logger
	fallback string
	now      func() time.Time
	engine   *suggest.Engine
}

// New creates a Service. A nil store records nothing locally.
func New(client *api.Client, saved model.SavedStore, opts Options, logger *slog.Logger) *Service {
	if saved == nil {
		saved = store.NewNopStore()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Service{
		client:   client,
		saved:    saved,
		logger:   logger,
		fallback: opts.FallbackSearchURL,
		now:      opts.Now,
	}
	s.engine = suggest.NewEngine(s, opts.SuggestLimit)
	return s
}

func (s *Service) normalizeOptions() normalize.Options {
	return normalize.Options{Now: s.now(), FallbackSearchURL: s.fallback}
}

// Search runs one page of a search. Records that cannot be normalized are
// dropped, logged and counted in SearchPage.Dropped. A response that is not
// a search envelope is an error, never an empty page.
func (s *Service) Search(ctx context.Context, st filter.State) (*model.SearchPage, error) {
	body, err := s.client.Search(ctx, st)
	if err != nil {
		return nil, err
	}
	return s.searchPage(st, body)
}

func (s *Service) searchPage(st filter.State, body any) (*model.SearchPage, error) {
	env, err := normalize.SearchEnvelope(body, s.client.PageSize())
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}

	page := max(st.Page, 1)
	jobs, errs := normalize.Jobs(env.Items, (page-1)*s.client.PageSize(), s.normalizeOptions())
	s.logDropped("search", errs)

	return &model.SearchPage{
		Jobs:       jobs,
		Total:      env.Total,
		TotalPages: env.TotalPages,
		Page:       page,
		Dropped:    len(errs),
	}, nil
}

// GetByID fetches and normalizes one job. The body may be the job itself or
// wrap it under "job" or "data"; a body without an id takes the requested one.
func (s *Service) GetByID(ctx context.Context, id string) (model.Job, error) {
	if normalize.IsSyntheticID(id) {
		return model.Job{}, fmt.Errorf("get job %s: %w", id, model.ErrSyntheticID)
	}
	body, err := s.client.Job(ctx, id)
	if err != nil {
		return model.Job{}, err
	}
	job, err := normalize.Job(withID(unwrapJob(body), id), 0, s.normalizeOptions())
	if err != nil {
		return model.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// GetSimilar fetches jobs similar to id.
func (s *Service) GetSimilar(ctx context.Context, id string) ([]model.Job, error) {
	if normalize.IsSyntheticID(id) {
		return nil, fmt.Errorf("similar jobs for %s: %w", id, model.ErrSyntheticID)
	}
	body, err := s.client.Similar(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := normalize.List(body, "similar")
	if err != nil {
		return nil, fmt.Errorf("similar jobs for %s: %w", id, err)
	}
	jobs, errs := normalize.Jobs(items, 0, s.normalizeOptions())
	s.logDropped("similar", errs)
	return jobs, nil
}

// LoadInsights fetches the named insight sources in parallel and decodes
// each. Results hold []model.Job for recommendations, []model.SkillDemand
// for skills demand and *model.SalaryInsights for salary insights. A source
// whose body cannot be decoded becomes a failure like any other.
func (s *Service) LoadInsights(ctx context.Context, q InsightsQuery, names []string) (fetch.Result, error) {
	raw, err := s.client.FetchAll(ctx, s.client.InsightRequests(q, names))
	if err != nil {
		return fetch.Result{}, fmt.Errorf("load insights: %w", err)
	}

	res := fetch.Result{Results: make(map[string]any, len(raw.Results)), Failures: raw.Failures}
	for _, name := range names {
		body, ok := raw.Results[name]
		if !ok {
			continue
		}
		data, err := s.decodeInsight(name, body)
		if err != nil {
			s.logger.Warn("insight source unreadable", "source", name, "error", err)
			res.Failures = append(res.Failures, model.SourceFailure{Name: name, Reason: fetch.Reason(err), Err: err})
			continue
		}
		res.Results[name] = data
	}
	sortFailures(res.Failures, names)
	return res, nil
}

func (s *Service) decodeInsight(name string, body any) (any, error) {
	switch name {
	case model.SourceRecommendations:
		items, err := normalize.Recommendations(body)
		if err != nil {
			return nil, err
		}
		jobs, errs := normalize.Jobs(items, 0, s.normalizeOptions())
		s.logDropped(name, errs)
		return jobs, nil
	case model.SourceSkillsDemand:
		return normalize.SkillsDemand(body)
	case model.SourceSalaryInsights:
		return normalize.SalaryInsights(body)
	}
	return nil, fmt.Errorf("unknown insight source %q", name)
}

// GetInsights fetches every insight source. It fails only when ctx is
// cancelled; unavailable sources are listed in Failures.
func (s *Service) GetInsights(ctx context.Context, q InsightsQuery) (model.AggregatedInsights, error) {
	res, err := s.LoadInsights(ctx, q, model.InsightSources)
	if err != nil {
		return model.AggregatedInsights{}, err
	}

	out := model.AggregatedInsights{Failures: res.Failures, Present: make(map[string]bool, len(res.Results))}
	for name := range res.Results {
		out.Present[name] = true
	}
	if jobs, ok := res.Results[model.SourceRecommendations].([]model.Job); ok {
		out.Recommendations = jobs
	}
	if skills, ok := res.Results[model.SourceSkillsDemand].([]model.SkillDemand); ok {
		out.SkillsDemand = skills
	}
	if salary, ok := res.Results[model.SourceSalaryInsights].(*model.SalaryInsights); ok {
		out.SalaryInsights = salary
	}
	return out, nil
}

// Apply submits an application and records it locally.
func (s *Service) Apply(ctx context.Context, job model.Job) error {
	if err := s.action(ctx, job, api.ActionApply); err != nil {
		return err
	}
	if err := s.saved.MarkApplied(job); err != nil {
		return fmt.Errorf("record application for %s: %w", job.ID, err)
	}
	return nil
}

// Save bookmarks a job on the server and locally.
func (s *Service) Save(ctx context.Context, job model.Job) error {
	if err := s.action(ctx, job, api.ActionSave); err != nil {
		return err
	}
	if err := s.saved.MarkSaved(job); err != nil {
		return fmt.Errorf("record save for %s: %w", job.ID, err)
	}
	return nil
}

// Unsave removes a bookmark on the server and locally.
func (s *Service) Unsave(ctx context.Context, job model.Job) error {
	if err := s.action(ctx, job, api.ActionUnsave); err != nil {
		return err
	}
	if err := s.saved.Unsave(job.ID); err != nil {
		return fmt.Errorf("remove save for %s: %w", job.ID, err)
	}
	return nil
}

func (s *Service) action(ctx context.Context, job model.Job, action string) error {
	if job.HasSyntheticID || normalize.IsSyntheticID(job.ID) {
		return fmt.Errorf("%s job %q: %w", action, job.Title, model.ErrSyntheticID)
	}
	if err := s.client.Action(ctx, job.ID, action); err != nil {
		return err
	}
	s.logger.Info("job action", "action", action, "job_id", job.ID, "title", job.Title)
	return nil
}

// Saved lists locally recorded saved jobs, newest first.
func (s *Service) Saved() ([]model.SavedJob, error) {
	return s.saved.ListSaved()
}

// IsSaved reports whether a job is saved locally.
func (s *Service) IsSaved(id string) (bool, error) {
	return s.saved.IsSaved(id)
}

func (s *Service) logDropped(source string, errs []error) {
	for _, err := range errs {
		s.logger.Warn("dropping job record", "source", source, "error", err)
	}
}

func unwrapJob(body any) any {
	obj, ok := body.(map[string]any)
	if !ok {
		return body
	}
	for _, key := range []string{"job", "data"} {
		if inner, ok := obj[key].(map[string]any); ok {
			return inner
		}
	}
	return body
}

// withID fills in id on a copy of a record that has none.
func withID(body any, id string) any {
	obj, ok := body.(map[string]any)
	if !ok || normalize.HasID(obj) {
		return body
	}
	out := maps.Clone(obj)
	out["id"] = id
	return out
}

// sortFailures orders failures by the position of their source in names.
func sortFailures(failures []model.SourceFailure, names []string) {
	slices.SortStableFunc(failures, func(a, b model.SourceFailure) int {
		return cmp.Compare(slices.Index(names, a.Name), slices.Index(names, b.Name))
	})
}
