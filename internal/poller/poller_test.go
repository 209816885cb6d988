package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobdeck/internal/filter"
	"github.com/amishk599/jobdeck/internal/model"
)

// --- Fakes ---

// fakeSearcher serves canned pages keyed by page number and records queries.
type fakeSearcher struct {
	pages   map[int]*model.SearchPage
	errs    map[int]error
	queries []filter.State
}

func (f *fakeSearcher) Search(_ context.Context, s filter.State) (*model.SearchPage, error) {
	f.queries = append(f.queries, s)
	if err := f.errs[s.Page]; err != nil {
		return nil, err
	}
	if p, ok := f.pages[s.Page]; ok {
		return p, nil
	}
	return &model.SearchPage{Page: s.Page}, nil
}

// InMemoryStore is a map-based store for testing dedup.
type InMemoryStore struct {
	seen   map[string]bool
	seeded map[string]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{seen: make(map[string]bool), seeded: make(map[string]bool)}
}

func (s *InMemoryStore) HasSeen(jobID string) (bool, error) {
	return s.seen[jobID], nil
}

func (s *InMemoryStore) MarkSeen(jobID string) error {
	s.seen[jobID] = true
	return nil
}

func (s *InMemoryStore) Cleanup(_ time.Duration) error { return nil }

func (s *InMemoryStore) IsSeeded(search string) (bool, error) {
	return s.seeded[search], nil
}

func (s *InMemoryStore) MarkSeeded(search string) error {
	s.seeded[search] = true
	return nil
}

// RecordingNotifier records which jobs were sent to Notify.
type RecordingNotifier struct {
	Search   string
	Notified []model.Job
	Err      error
}

func (n *RecordingNotifier) Notify(search string, jobs []model.Job) error {
	if n.Err != nil {
		return n.Err
	}
	n.Search = search
	n.Notified = append(n.Notified, jobs...)
	return nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func timePtr(t time.Time) *time.Time { return &t }

func makeJobs(ids ...string) []model.Job {
	jobs := make([]model.Job, len(ids))
	for i, id := range ids {
		jobs[i] = model.Job{
			ID:       id,
			Title:    "Go Engineer",
			Company:  model.Company{Name: "Acme"},
			Location: "Berlin",
			ApplyURL: "https://example.com/" + id,
		}
	}
	return jobs
}

func onePage(jobs []model.Job) *fakeSearcher {
	return &fakeSearcher{pages: map[int]*model.SearchPage{
		1: {Jobs: jobs, Total: len(jobs), TotalPages: 1, Page: 1},
	}}
}

// seededStore returns a store where the go-berlin search has already seeded,
// so polls are not treated as a first run.
func seededStore() *InMemoryStore {
	s := NewInMemoryStore()
	s.MarkSeeded("go-berlin")
	return s
}

func newPoller(s Searcher, store model.JobStore, n model.Notifier, query filter.State) *SearchPoller {
	return NewSearchPoller("go-berlin", query, 1, s, store, n, 0, discardLogger())
}

// --- Tests ---

func TestPoll_MatchAndDedup(t *testing.T) {
	store := seededStore()
	store.MarkSeen("2")

	notifier := &RecordingNotifier{}
	p := newPoller(onePage(makeJobs("1", "2", "3")), store, notifier, filter.Reset())

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(notifier.Notified); got != 2 {
		t.Errorf("notified = %d, want 2", got)
	}
	if notifier.Search != "go-berlin" {
		t.Errorf("search = %q, want go-berlin", notifier.Search)
	}
	for _, id := range []string{"1", "2", "3"} {
		if seen, _ := store.HasSeen(id); !seen {
			t.Errorf("job %s should be marked seen", id)
		}
	}
}

func TestPoll_SearchError(t *testing.T) {
	notifier := &RecordingNotifier{}
	s := &fakeSearcher{errs: map[int]error{1: errors.New("network down")}}
	p := newPoller(s, seededStore(), notifier, filter.Reset())

	if err := p.Poll(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(notifier.Notified) != 0 {
		t.Error("notifier should not be called on search error")
	}
}

func TestPoll_LocalMatchDropsStrays(t *testing.T) {
	jobs := makeJobs("1", "2")
	jobs[1].Title = "Java Developer"

	notifier := &RecordingNotifier{}
	store := seededStore()
	p := newPoller(onePage(jobs), store, notifier, filter.Apply(filter.Reset(), filter.WithText("go")))

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.Notified) != 1 || notifier.Notified[0].ID != "1" {
		t.Errorf("notified = %+v, want only job 1", notifier.Notified)
	}
	if seen, _ := store.HasSeen("2"); seen {
		t.Error("non-matching job should not be marked seen")
	}
}

func TestPoll_FirstRunSeedsWithoutNotifying(t *testing.T) {
	store := NewInMemoryStore()
	notifier := &RecordingNotifier{}
	p := newPoller(onePage(makeJobs("1", "2")), store, notifier, filter.Reset())

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.Notified) != 0 {
		t.Errorf("first run should not notify, got %d jobs", len(notifier.Notified))
	}
	if seen, _ := store.HasSeen("1"); !seen {
		t.Error("first run should seed the store")
	}
	if seeded, _ := store.IsSeeded("go-berlin"); !seeded {
		t.Error("first run should mark the search seeded")
	}

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if len(notifier.Notified) != 0 {
		t.Errorf("second poll re-notified the backlog: %d jobs", len(notifier.Notified))
	}
}

func TestPoll_NewSearchSeedsInSharedStore(t *testing.T) {
	store := seededStore()
	store.MarkSeen("1")

	notifier := &RecordingNotifier{}
	p := NewSearchPoller("rust-remote", filter.Reset(), 1, onePage(makeJobs("1", "2", "3")), store, notifier, 0, discardLogger())

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.Notified) != 0 {
		t.Errorf("a new search should seed silently, notified %d jobs", len(notifier.Notified))
	}
	if seeded, _ := store.IsSeeded("rust-remote"); !seeded {
		t.Error("expected rust-remote to be seeded")
	}

	p.searcher = onePage(makeJobs("1", "2", "3", "4"))
	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if len(notifier.Notified) != 1 || notifier.Notified[0].ID != "4" {
		t.Errorf("notified = %+v, want only job 4", notifier.Notified)
	}
}

func TestPoll_FailedFirstRunStaysUnseeded(t *testing.T) {
	store := NewInMemoryStore()
	p := newPoller(&fakeSearcher{errs: map[int]error{1: errors.New("boom")}}, store, &RecordingNotifier{}, filter.Reset())

	if err := p.Poll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if seeded, _ := store.IsSeeded("go-berlin"); seeded {
		t.Error("a failed poll must not mark the search seeded")
	}
}

func TestPoll_Freshness(t *testing.T) {
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	jobs := makeJobs("fresh", "stale", "undated")
	jobs[0].PostedAt = timePtr(now.Add(-30 * time.Minute))
	jobs[1].PostedAt = timePtr(now.Add(-48 * time.Hour))

	notifier := &RecordingNotifier{}
	p := NewSearchPoller("q", filter.Reset(), 1, onePage(jobs), seededStore(), notifier, 24*time.Hour, discardLogger())
	p.now = func() time.Time { return now }

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := map[string]bool{}
	for _, j := range notifier.Notified {
		got[j.ID] = true
	}
	if !got["fresh"] || !got["undated"] || got["stale"] {
		t.Errorf("notified = %v, want fresh and undated only", got)
	}
}

func TestPoll_ReadsMultiplePages(t *testing.T) {
	s := &fakeSearcher{pages: map[int]*model.SearchPage{
		1: {Jobs: makeJobs("1"), TotalPages: 2, Page: 1},
		2: {Jobs: makeJobs("2"), TotalPages: 2, Page: 2},
	}}
	notifier := &RecordingNotifier{}
	p := NewSearchPoller("q", filter.Reset(), 5, s, seededStore(), notifier, 0, discardLogger())

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.queries) != 2 {
		t.Fatalf("searched %d pages, want 2 (stops at TotalPages)", len(s.queries))
	}
	if s.queries[1].Page != 2 {
		t.Errorf("second query page = %d, want 2", s.queries[1].Page)
	}
	if len(notifier.Notified) != 2 {
		t.Errorf("notified = %d, want 2", len(notifier.Notified))
	}
}

func TestPoll_LaterPageFailureKeepsEarlierResults(t *testing.T) {
	s := &fakeSearcher{
		pages: map[int]*model.SearchPage{1: {Jobs: makeJobs("1"), TotalPages: 3, Page: 1}},
		errs:  map[int]error{2: errors.New("boom")},
	}
	notifier := &RecordingNotifier{}
	p := NewSearchPoller("q", filter.Reset(), 3, s, seededStore(), notifier, 0, discardLogger())

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.Notified) != 1 {
		t.Errorf("notified = %d, want 1", len(notifier.Notified))
	}
}

func TestPoll_NotifyErrorLeavesJobsUnseen(t *testing.T) {
	store := seededStore()
	notifier := &RecordingNotifier{Err: errors.New("slack down")}
	p := newPoller(onePage(makeJobs("1")), store, notifier, filter.Reset())

	if err := p.Poll(context.Background()); err == nil {
		t.Fatal("expected error from notifier")
	}
	if seen, _ := store.HasSeen("1"); seen {
		t.Error("job should stay unseen so the next poll retries it")
	}
}

func TestSeenKey(t *testing.T) {
	job := model.Job{ID: "abc"}
	if got := SeenKey(job); got != "abc" {
		t.Errorf("SeenKey(job) = %q, want abc", got)
	}

	a := model.Job{ID: "local~1", HasSyntheticID: true, Title: "Go Dev", Company: model.Company{Name: "Acme"}}
	b := model.Job{ID: "local~2", HasSyntheticID: true, Title: "go dev", Company: model.Company{Name: "ACME"}}
	if SeenKey(a) != SeenKey(b) {
		t.Errorf("synthetic keys differ: %q vs %q", SeenKey(a), SeenKey(b))
	}
}

type recordingObserver struct {
	search string
	stats  Stats
	err    error
	calls  int
}

func (o *recordingObserver) ObservePoll(search string, stats Stats, err error) {
	o.search, o.stats, o.err = search, stats, err
	o.calls++
}

func TestPoll_ReportsStatsToObserver(t *testing.T) {
	store := seededStore()
	store.MarkSeen("2")
	obs := &recordingObserver{}

	page := onePage(makeJobs("1", "2", "3"))
	page.pages[1].Dropped = 1
	p := newPoller(page, store, &RecordingNotifier{}, filter.Reset())
	p.SetObserver(obs)

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Stats{Fetched: 3, Dropped: 1, Matched: 3, New: 2}
	got := obs.stats
	got.Duration = 0
	if obs.calls != 1 || obs.search != "go-berlin" || got != want || obs.err != nil {
		t.Errorf("observer got calls=%d search=%q stats=%+v err=%v, want stats %+v", obs.calls, obs.search, got, obs.err, want)
	}
}

func TestPoll_ObserverSeesFailuresAndSeeding(t *testing.T) {
	obs := &recordingObserver{}
	failing := newPoller(&fakeSearcher{errs: map[int]error{1: errors.New("boom")}}, seededStore(), &RecordingNotifier{}, filter.Reset())
	failing.SetObserver(obs)

	if err := failing.Poll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if obs.err == nil {
		t.Error("observer should receive the poll error")
	}

	seeding := newPoller(onePage(makeJobs("1", "2")), NewInMemoryStore(), &RecordingNotifier{}, filter.Reset())
	seeding.SetObserver(obs)
	if err := seeding.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !obs.stats.Seeding || obs.stats.New != 0 {
		t.Errorf("seeding poll stats = %+v, want Seeding and New=0", obs.stats)
	}
}
