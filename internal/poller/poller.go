package poller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/jobdeck/internal/filter"
	"github.com/amishk599/jobdeck/internal/model"
)

// Searcher runs one page of a search.
type Searcher interface {
	Search(ctx context.Context, s filter.State) (*model.SearchPage, error)
}

// SearchPoller owns the full poll pipeline for one saved search:
// search → local match → freshness → dedup → notify → mark seen.
type SearchPoller struct {
	Name     string
	query    filter.State
	pages    int
	searcher Searcher
	store    model.JobStore
	notifier model.Notifier
	maxAge   time.Duration
	logger   *slog.Logger
	now      func() time.Time
	observer Observer
}

// NewSearchPoller creates a poller wired with all its dependencies. pages is
// how many result pages each poll reads (at least 1). maxAge drops jobs
// posted longer ago than that; zero disables the check.
func NewSearchPoller(
	name string,
	query filter.State,
	pages int,
	searcher Searcher,
	store model.JobStore,
	notifier model.Notifier,
	maxAge time.Duration,
	logger *slog.Logger,
) *SearchPoller {
	return &SearchPoller{
		Name:     name,
		query:    query,
		pages:    max(pages, 1),
		searcher: searcher,
		store:    store,
		notifier: notifier,
		maxAge:   maxAge,
		logger:   logger,
		now:      time.Now,
	}
}

// Stats summarizes one poll.
type Stats struct {
	Fetched  int
	Dropped  int
	Matched  int
	New      int
	Seeding  bool
	Duration time.Duration
}

// Observer is told the outcome of every poll.
type Observer interface {
	ObservePoll(search string, stats Stats, err error)
}

// SetObserver registers o to receive poll outcomes.
func (p *SearchPoller) SetObserver(o Observer) {
	p.observer = o
}

// Poll runs one poll cycle. On the first successful run of this search every
// match is recorded as seen without notifying, so a new watch does not flood
// the notifier with the existing backlog. Seeding is tracked per search name,
// so adding a search to a store other searches already use still seeds.
func (p *SearchPoller) Poll(ctx context.Context) error {
	start := p.now()
	var stats Stats
	err := p.poll(ctx, &stats)
	stats.Duration = p.now().Sub(start)
	if p.observer != nil {
		p.observer.ObservePoll(p.Name, stats, err)
	}
	return err
}

func (p *SearchPoller) poll(ctx context.Context, stats *Stats) error {
	jobs, dropped, err := p.fetch(ctx)
	if err != nil {
		return fmt.Errorf("polling %s: %w", p.Name, err)
	}
	stats.Fetched, stats.Dropped = len(jobs), dropped

	var matched []model.Job
	for _, job := range jobs {
		if p.query.Matches(job) && p.fresh(job) {
			matched = append(matched, job)
		}
	}
	stats.Matched = len(matched)

	seeded, err := p.store.IsSeeded(p.Name)
	if err != nil {
		return fmt.Errorf("polling %s: checking store: %w", p.Name, err)
	}
	firstRun := !seeded
	stats.Seeding = firstRun

	var newJobs []model.Job
	for _, job := range matched {
		seen, err := p.store.HasSeen(SeenKey(job))
		if err != nil {
			return fmt.Errorf("polling %s: checking seen status: %w", p.Name, err)
		}
		if !seen {
			newJobs = append(newJobs, job)
		}
	}

	if len(newJobs) > 0 && !firstRun {
		if err := p.notifier.Notify(p.Name, newJobs); err != nil {
			return fmt.Errorf("polling %s: notifying: %w", p.Name, err)
		}
	}

	for _, job := range newJobs {
		if err := p.store.MarkSeen(SeenKey(job)); err != nil {
			return fmt.Errorf("polling %s: marking seen: %w", p.Name, err)
		}
	}
	if firstRun {
		if err := p.store.MarkSeeded(p.Name); err != nil {
			return fmt.Errorf("polling %s: marking seeded: %w", p.Name, err)
		}
	} else {
		stats.New = len(newJobs)
	}

	p.logger.Info("polled search",
		"search", p.Name,
		"query", filter.Serialize(p.query),
		"fetched", len(jobs),
		"dropped", dropped,
		"matched", len(matched),
		"new", len(newJobs),
		"seeding", firstRun,
	)

	return nil
}

// fetch reads up to p.pages pages, stopping early at the last page.
func (p *SearchPoller) fetch(ctx context.Context) ([]model.Job, int, error) {
	var (
		jobs    []model.Job
		dropped int
	)
	for page := 1; page <= p.pages; page++ {
		res, err := p.searcher.Search(ctx, filter.Apply(p.query, filter.WithPage(page)))
		if err != nil {
			if page > 1 {
				p.logger.Warn("stopping at failed page", "search", p.Name, "page", page, "error", err)
				break
			}
			return nil, 0, err
		}
		jobs = append(jobs, res.Jobs...)
		dropped += res.Dropped
		if res.TotalPages > 0 && page >= res.TotalPages || len(res.Jobs) == 0 {
			break
		}
	}
	return jobs, dropped, nil
}

func (p *SearchPoller) fresh(job model.Job) bool {
	if p.maxAge <= 0 || job.PostedAt == nil {
		return true
	}
	return p.now().Sub(*job.PostedAt) <= p.maxAge
}

// SeenKey identifies a job across polls. Synthetic ids depend on the record's
// position in a page, so those jobs are keyed by title and company instead.
func SeenKey(job model.Job) string {
	if !job.HasSyntheticID {
		return job.ID
	}
	return "local:" + strings.ToLower(job.Title) + "|" + strings.ToLower(job.Company.Name)
}
