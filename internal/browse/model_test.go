package browse

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/jobdeck/internal/fetch"
	"github.com/amishk599/jobdeck/internal/filter"
	"github.com/amishk599/jobdeck/internal/model"
	"github.com/amishk599/jobdeck/internal/retry"
	"github.com/amishk599/jobdeck/internal/service"
	"github.com/amishk599/jobdeck/internal/suggest"
)

// fakeBackend records calls and serves canned responses.
type fakeBackend struct {
	mu          sync.Mutex
	searches    []filter.State
	searchErr   error
	pages       map[int]*model.SearchPage
	insightRuns [][]string
	failing     map[string]bool
	details     []string
	saved       []model.Job
	cancels     int
}

func (f *fakeBackend) Search(_ context.Context, s filter.State) (*model.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, s)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if p, ok := f.pages[s.Page]; ok {
		return p, nil
	}
	return &model.SearchPage{Jobs: jobsNamed("Go Developer"), Total: 1, TotalPages: 1, Page: s.Page}, nil
}

func (f *fakeBackend) GetByID(_ context.Context, id string) (model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details = append(f.details, id)
	return model.Job{ID: id, Title: "Go Developer", Description: "Full description"}, nil
}

func (f *fakeBackend) LoadInsights(_ context.Context, _ service.InsightsQuery, names []string) (fetch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insightRuns = append(f.insightRuns, slices.Clone(names))
	res := fetch.Result{Results: map[string]any{}}
	for _, name := range names {
		if f.failing[name] {
			err := &model.HTTPError{StatusCode: 503}
			res.Failures = append(res.Failures, model.SourceFailure{Name: name, Reason: fetch.Reason(err), Err: err})
			continue
		}
		res.Results[name] = []model.SkillDemand{{Skill: "Go", Demand: 10}}
	}
	return res, nil
}

func (f *fakeBackend) Suggest(_ context.Context, term string) ([]suggest.Suggestion, bool, error) {
	return nil, true, nil
}

func (f *fakeBackend) CancelSuggest() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeBackend) Save(_ context.Context, job model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, job)
	return nil
}

func (f *fakeBackend) Apply(_ context.Context, _ model.Job) error { return nil }

func jobsNamed(titles ...string) []model.Job {
	jobs := make([]model.Job, len(titles))
	for i, title := range titles {
		jobs[i] = model.Job{ID: fmt.Sprintf("job-%d", i+1), Title: title, Company: model.Company{Name: "Acme"}}
	}
	return jobs
}

func newTestModel(b *fakeBackend, debounce time.Duration) Model {
	m := New(context.Background(), b, Options{
		Debounce: debounce,
		Now:      func() time.Time { return time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC) },
	})
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd and any batched commands, returning the messages.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// deliver runs cmd and feeds the search, suggestion and insight results back.
func deliver(m Model, cmd tea.Cmd) Model {
	for _, msg := range run(cmd) {
		switch msg.(type) {
		case searchDoneMsg, suggestDoneMsg, insightsDoneMsg, detailDoneMsg, actionDoneMsg:
			m, _ = update(m, msg)
		}
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = update(m, key(string(r)))
	}
	return m
}

func (f *fakeBackend) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

func (f *fakeBackend) lastSearch() filter.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches[len(f.searches)-1]
}

func TestInit_SearchesAndLoadsInsights(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(b, 0)

	m = deliver(m, m.Init())

	if b.searchCount() != 1 {
		t.Fatalf("searches = %d, want 1", b.searchCount())
	}
	if got := m.machine.Snapshot().Phase; got != filter.PhaseSuccess {
		t.Errorf("phase = %v, want success", got)
	}
	if len(m.jobs()) != 1 {
		t.Errorf("jobs = %d, want 1", len(m.jobs()))
	}
	if got := m.insights.View().Status; got != retry.Loaded {
		t.Errorf("insights status = %v, want loaded", got)
	}
}

func TestDebounce_OnlyLastTickSearches(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(b, time.Hour)
	m = deliver(m, m.Init())
	m.focusOn(focusText)

	m = typeText(m, "go")
	first := m.debounceGen - 1

	m, cmd := update(m, debounceMsg{gen: first})
	if cmd != nil {
		t.Fatal("stale debounce tick should not search")
	}

	m, cmd = update(m, debounceMsg{gen: m.debounceGen})
	m = deliver(m, cmd)

	if b.searchCount() != 2 {
		t.Fatalf("searches = %d, want initial + 1", b.searchCount())
	}
	if got := b.lastSearch().Text; got != "go" {
		t.Errorf("searched text = %q, want go", got)
	}
}

func TestEnter_CommitsImmediatelyAndDropsPendingTick(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(b, time.Hour)
	m = deliver(m, m.Init())
	m.focusOn(focusText)

	m = typeText(m, "rust")
	pending := m.debounceGen

	m, cmd := update(m, key("enter"))
	m = deliver(m, cmd)

	if m.focus != focusNone {
		t.Error("enter should leave the input")
	}
	if got := b.lastSearch().Text; got != "rust" {
		t.Errorf("searched text = %q, want rust", got)
	}
	if _, cmd := update(m, debounceMsg{gen: pending}); cmd != nil {
		t.Error("tick scheduled before enter should be dropped")
	}
}

func TestSearch_StaleResultDropped(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(b, 0)

	older, _ := m.machine.Set(filter.Apply(filter.Reset(), filter.WithText("java")))
	newer, _ := m.machine.Set(filter.Apply(filter.Reset(), filter.WithText("go")))

	m, _ = update(m, searchDoneMsg{ticket: newer, page: &model.SearchPage{Jobs: jobsNamed("Go Dev"), Page: 1}})
	m, _ = update(m, searchDoneMsg{ticket: older, page: &model.SearchPage{Jobs: jobsNamed("Java Dev", "Java Lead"), Page: 1}})

	jobs := m.jobs()
	if len(jobs) != 1 || jobs[0].Title != "Go Dev" {
		t.Errorf("jobs = %+v, want the newer result only", jobs)
	}
}

func TestSearch_FailureOffersRetry(t *testing.T) {
	b := &fakeBackend{searchErr: &model.HTTPError{StatusCode: 500}}
	m := newTestModel(b, 0)
	m = deliver(m, m.Init())

	if got := m.machine.Snapshot().Phase; got != filter.PhaseFailed {
		t.Fatalf("phase = %v, want failed", got)
	}
	out := m.renderList()
	for _, want := range []string{"Error loading jobs", "No jobs available", "500", "press r to retry"} {
		if !strings.Contains(out, want) {
			t.Errorf("list missing %q:\n%s", want, out)
		}
	}

	b.mu.Lock()
	b.searchErr = nil
	b.mu.Unlock()

	m, cmd := update(m, key("r"))
	m = deliver(m, cmd)

	if b.searchCount() != 2 {
		t.Fatalf("searches = %d, want 2", b.searchCount())
	}
	if !b.searches[0].Equal(b.searches[1]) {
		t.Errorf("retry searched %+v, want identical %+v", b.searches[1], b.searches[0])
	}
	if got := m.machine.Snapshot().Phase; got != filter.PhaseSuccess {
		t.Errorf("phase after retry = %v, want success", got)
	}
}

func TestPaging(t *testing.T) {
	b := &fakeBackend{pages: map[int]*model.SearchPage{
		1: {Jobs: jobsNamed("A"), Total: 3, TotalPages: 3, Page: 1},
		2: {Jobs: jobsNamed("B"), Total: 3, TotalPages: 3, Page: 2},
	}}
	m := newTestModel(b, 0)
	m = deliver(m, m.Init())

	if _, cmd := update(m, key("p")); cmd != nil {
		t.Error("previous page on page 1 should do nothing")
	}

	m, cmd := update(m, key("n"))
	m = deliver(m, cmd)

	if got := b.lastSearch().Page; got != 2 {
		t.Errorf("searched page = %d, want 2", got)
	}
	if jobs := m.jobs(); len(jobs) != 1 || jobs[0].Title != "B" {
		t.Errorf("jobs = %+v, want page 2", jobs)
	}
}

func TestInsights_PanelRetryIsScoped(t *testing.T) {
	b := &fakeBackend{failing: map[string]bool{model.SourceSkillsDemand: true}}
	m := newTestModel(b, 0)
	m = deliver(m, m.loadInsightsCmd())

	if got := m.insights.View().Status; got != retry.PartialError {
		t.Fatalf("status = %v, want partial error", got)
	}
	if out := m.renderInsights(40); !strings.Contains(out, "No skills demand data available") || !strings.Contains(out, "press 2 to retry") {
		t.Errorf("insights missing failure notice:\n%s", out)
	}

	if _, cmd := update(m, key("1")); cmd != nil {
		t.Error("retrying a ready panel should do nothing")
	}

	b.mu.Lock()
	b.failing = nil
	b.mu.Unlock()

	m, cmd := update(m, key("2"))
	m = deliver(m, cmd)

	last := b.insightRuns[len(b.insightRuns)-1]
	if len(last) != 1 || last[0] != model.SourceSkillsDemand {
		t.Errorf("retry fetched %v, want only skills_demand", last)
	}
	if got := m.insights.View().Status; got != retry.Loaded {
		t.Errorf("status after retry = %v, want loaded", got)
	}
}

func TestSuggestions_StaleTermIgnoredAndTabAccepts(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(b, time.Hour)
	m.focusOn(focusText)
	m = typeText(m, "dev")

	m, _ = update(m, suggestDoneMsg{term: "de", ok: true, items: []suggest.Suggestion{{Value: "Design"}}})
	if len(m.suggestions) != 0 {
		t.Fatalf("suggestions for an old term were applied: %+v", m.suggestions)
	}

	m, _ = update(m, suggestDoneMsg{term: "dev", ok: false, items: []suggest.Suggestion{{Value: "Devil"}}})
	if len(m.suggestions) != 0 {
		t.Fatalf("superseded suggestions were applied: %+v", m.suggestions)
	}

	m, _ = update(m, suggestDoneMsg{term: "dev", ok: true, items: []suggest.Suggestion{{Value: "Developer"}, {Value: "DevOps"}}})
	if len(m.suggestions) != 2 {
		t.Fatalf("suggestions = %+v, want 2", m.suggestions)
	}

	gen := m.debounceGen
	m, cmd := update(m, key("tab"))
	if m.text.Value() != "Developer" {
		t.Errorf("text = %q, want Developer", m.text.Value())
	}
	if cmd == nil || m.debounceGen != gen+1 {
		t.Error("accepting a suggestion should schedule a search")
	}
}

func TestSuggestions_LeavingInputCancelsLookup(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(b, time.Hour)
	m.focusOn(focusText)
	m = typeText(m, "dev")
	m, _ = update(m, suggestDoneMsg{term: "dev", ok: true, items: []suggest.Suggestion{{Value: "Developer"}}})

	m, _ = update(m, key("esc"))
	if len(m.suggestions) != 0 {
		t.Errorf("suggestions kept after esc: %+v", m.suggestions)
	}
	b.mu.Lock()
	cancels := b.cancels
	b.mu.Unlock()
	if cancels != 1 {
		t.Errorf("CancelSuggest calls = %d, want 1", cancels)
	}

	m.focusOn(focusText)
	_, _ = update(m, key("enter"))
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancels != 2 {
		t.Errorf("CancelSuggest calls after enter = %d, want 2", b.cancels)
	}
}

func TestDetail_FetchesServerJob(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(b, 0)
	m = deliver(m, m.Init())

	m, cmd := update(m, key("enter"))
	if m.view != viewDetail || !m.detailLoading {
		t.Fatalf("view = %v loading = %v, want detail loading", m.view, m.detailLoading)
	}
	m = deliver(m, cmd)

	if m.detailLoading || m.detailJob.Description != "Full description" {
		t.Errorf("detail job = %+v, want fetched description", m.detailJob)
	}

	m, _ = update(m, key("esc"))
	if m.view != viewList {
		t.Error("esc should return to the list")
	}
}

func TestDetail_ResponseMatchedByRequestedID(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(b, 0)
	m = deliver(m, m.Init())
	m, _ = update(m, key("enter"))
	requested := m.detailJob.ID

	m, _ = update(m, detailDoneMsg{id: "job-99", job: model.Job{ID: "job-99", Description: "other job"}})
	if !m.detailLoading {
		t.Fatal("a response for another job was applied")
	}

	// A body without an id still belongs to the job that was asked for.
	m, _ = update(m, detailDoneMsg{id: requested, job: model.Job{ID: requested, Title: "Go Developer", Description: "Fetched"}})
	if m.detailLoading || m.detailJob.Description != "Fetched" {
		t.Errorf("detail job = %+v, want fetched description", m.detailJob)
	}
	if m.detailJob.ID != requested || m.detailJob.HasSyntheticID {
		t.Errorf("detail id = %q synthetic=%v, want %q", m.detailJob.ID, m.detailJob.HasSyntheticID, requested)
	}

	m, _ = update(m, detailDoneMsg{id: requested, err: model.ErrNotFound})
	if m.detailErr != "this job no longer exists" || m.detailJob.ID != requested {
		t.Errorf("detailErr = %q, job id = %q", m.detailErr, m.detailJob.ID)
	}
}

func TestDetail_SyntheticJobIsNotFetched(t *testing.T) {
	synthetic := model.Job{ID: "local~1", HasSyntheticID: true, Title: "Scraped"}
	b := &fakeBackend{pages: map[int]*model.SearchPage{1: {Jobs: []model.Job{synthetic}, TotalPages: 1, Page: 1}}}
	m := newTestModel(b, 0)
	m = deliver(m, m.Init())

	m, cmd := update(m, key("enter"))
	if cmd != nil {
		t.Error("synthetic job should not be fetched")
	}
	if !strings.Contains(m.renderDetail(), "no server id") {
		t.Error("detail should explain that actions are unavailable")
	}
}

func TestSave_ReportsStatus(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(b, 0)
	m = deliver(m, m.Init())

	m, cmd := update(m, key("s"))
	m = deliver(m, cmd)

	if len(b.saved) != 1 {
		t.Fatalf("saved = %d, want 1", len(b.saved))
	}
	if m.status != "Saved Go Developer at Acme" {
		t.Errorf("status = %q", m.status)
	}
}

func TestActionStatus(t *testing.T) {
	job := model.Job{Title: "SRE", Company: model.Company{Name: "Acme"}}
	tests := []struct {
		name string
		msg  actionDoneMsg
		want string
	}{
		{"saved", actionDoneMsg{action: "save", job: job}, "Saved SRE at Acme"},
		{"applied", actionDoneMsg{action: "apply", job: job}, "Applied to SRE at Acme"},
		{"synthetic", actionDoneMsg{action: "save", job: job, err: fmt.Errorf("save: %w", model.ErrSyntheticID)}, "This listing has no server id, so it cannot be saved"},
		{"rejected", actionDoneMsg{action: "apply", job: job, err: fmt.Errorf("apply: %w", model.ErrActionRejected)}, "Could not apply SRE: the server declined"},
		{"network", actionDoneMsg{action: "save", job: job, err: &model.NetworkError{URL: "x", Err: errors.New("refused")}}, "Could not save SRE: server unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := actionStatus(tt.msg); got != tt.want {
				t.Errorf("actionStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}
