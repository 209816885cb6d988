// Package browse is the interactive terminal browser: a debounced search box
// with autocomplete, a paged job list, a job detail view and the insights
// panels with per-panel retry.
package browse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/jobdeck/internal/display"
	"github.com/amishk599/jobdeck/internal/fetch"
	"github.com/amishk599/jobdeck/internal/filter"
	"github.com/amishk599/jobdeck/internal/model"
	"github.com/amishk599/jobdeck/internal/retry"
	"github.com/amishk599/jobdeck/internal/service"
	"github.com/amishk599/jobdeck/internal/suggest"
)

// Backend is the part of the service the browser drives.
type Backend interface {
	Search(ctx context.Context, s filter.State) (*model.SearchPage, error)
	GetByID(ctx context.Context, id string) (model.Job, error)
	LoadInsights(ctx context.Context, q service.InsightsQuery, names []string) (fetch.Result, error)
	Suggest(ctx context.Context, term string) ([]suggest.Suggestion, bool, error)
	CancelSuggest()
	Save(ctx context.Context, job model.Job) error
	Apply(ctx context.Context, job model.Job) error
}

// Options configures the browser.
type Options struct {
	Initial  filter.State
	Debounce time.Duration // zero searches on every keystroke
	Insights service.InsightsQuery
	Logger   *slog.Logger
	Now      func() time.Time
}

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

type focusField int

const (
	focusNone focusField = iota
	focusText
	focusLocation
)

// inflight holds the cancel func of the running search. It is shared by
// every copy of the model.
type inflight struct {
	cancel context.CancelFunc
}

func (f *inflight) replace(cancel context.CancelFunc) {
	if f.cancel != nil {
		f.cancel()
	}
	f.cancel = cancel
}

// Lines per job item in the list view (title + subtitle + blank separator).
const jobItemHeight = 3

// Messages.

type searchDoneMsg struct {
	ticket filter.Ticket
	page   *model.SearchPage
	err    error
}

type debounceMsg struct {
	gen uint64
}

type suggestDoneMsg struct {
	term  string
	items []suggest.Suggestion
	ok    bool
	err   error
}

type insightsDoneMsg struct {
	err error
}

type detailDoneMsg struct {
	id  string // the id that was requested
	job model.Job
	err error
}

type actionDoneMsg struct {
	action string
	job    model.Job
	err    error
}

// Model is the bubbletea model of the browser.
type Model struct {
	backend  Backend
	ctx      context.Context
	machine  *filter.Machine
	insights *retry.Controller
	debounce time.Duration
	logger   *slog.Logger
	now      func() time.Time

	text        textinput.Model
	location    textinput.Model
	focus       focusField
	pending     filter.State // edited, not yet searched
	debounceGen uint64
	suggestions []suggest.Suggestion

	list     viewport.Model
	detail   viewport.Model
	spin     spinner.Model
	cursor   int
	width    int
	height   int
	ready    bool
	view     viewState
	status   string
	inflight *inflight
	showAI   bool
	quitting bool

	detailJob     model.Job
	detailLoading bool
	detailErr     string
}

// New creates a browser model. ctx bounds every request it issues.
func New(ctx context.Context, backend Backend, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	text := textinput.New()
	text.Placeholder = "search jobs"
	text.Prompt = "Search: "
	text.SetValue(opts.Initial.Text)

	location := textinput.New()
	location.Placeholder = "anywhere"
	location.Prompt = "Where: "
	location.SetValue(opts.Initial.Location)

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = spinnerStyle

	q := opts.Insights
	load := func(ctx context.Context, names []string) (fetch.Result, error) {
		return backend.LoadInsights(ctx, q, names)
	}

	return Model{
		backend:  backend,
		ctx:      ctx,
		machine:  filter.NewMachine(opts.Initial),
		insights: retry.NewController("insights", model.InsightSources, load, retry.WithLogger(opts.Logger)),
		debounce: opts.Debounce,
		logger:   opts.Logger,
		now:      opts.Now,
		text:     text,
		location: location,
		pending:  filter.Apply(opts.Initial),
		spin:     spin,
		inflight: &inflight{},
		showAI:   true,
	}
}

func (m Model) Init() tea.Cmd {
	t, _ := m.machine.Set(m.pending)
	return tea.Batch(m.spin.Tick, m.searchCmd(t), m.loadInsightsCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detail.Width = m.width - 4
			m.detail.Height = m.height - 4
			m.detail.SetContent(m.renderDetail())
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case debounceMsg:
		if msg.gen != m.debounceGen {
			return m, nil
		}
		return m, tea.Batch(m.commit(), m.suggestCmd(m.text.Value()))

	case searchDoneMsg:
		if !m.machine.Resolve(msg.ticket, msg.page, msg.err) {
			m.logger.Debug("dropping stale search result", "generation", msg.ticket.Generation)
			return m, nil
		}
		if msg.err != nil {
			m.logger.Warn("search failed", "query", filter.Serialize(msg.ticket.State), "error", msg.err)
		}
		m.cursor = 0
		m.list.SetYOffset(0)
		m.recalcContent()
		return m, nil

	case suggestDoneMsg:
		if !msg.ok || msg.term != m.text.Value() {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Debug("suggestions failed", "term", msg.term, "error", msg.err)
			m.suggestions = nil
			return m, nil
		}
		m.suggestions = msg.items
		return m, nil

	case insightsDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.logger.Warn("insights failed", "error", msg.err)
		}
		return m, nil

	case detailDoneMsg:
		if msg.id != m.detailJob.ID {
			return m, nil
		}
		m.detailLoading = false
		switch {
		case errors.Is(msg.err, model.ErrNotFound):
			m.detailErr = "this job no longer exists"
		case msg.err != nil:
			m.detailErr = "could not load details: " + fetch.Reason(msg.err)
		default:
			m.detailErr = ""
			m.detailJob = msg.job
		}
		m.detail.SetContent(m.renderDetail())
		return m, nil

	case actionDoneMsg:
		m.status = actionStatus(msg)
		return m, nil

	case tea.KeyMsg:
		if m.focus != focusNone {
			return m.updateInput(msg)
		}
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "esc":
		m.blur()
		m.dropSuggestions()
		return m, nil
	case "enter":
		m.blur()
		m.debounceGen++ // drops the pending tick
		m.dropSuggestions()
		return m, m.commit()
	case "tab":
		if m.focus == focusText && len(m.suggestions) > 0 {
			m.text.SetValue(m.suggestions[0].Value)
			m.text.CursorEnd()
			m.suggestions = nil
			return m, m.edited()
		}
		return m, nil
	}

	var cmd tea.Cmd
	before := m.text.Value() + "\x00" + m.location.Value()
	if m.focus == focusText {
		m.text, cmd = m.text.Update(msg)
	} else {
		m.location, cmd = m.location.Update(msg)
	}
	if m.text.Value()+"\x00"+m.location.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.edited())
}

// edited records the input values and schedules the search. Free-text edits
// wait for the debounce; the tick carries a generation so only the last
// keystroke's tick searches.
func (m *Model) edited() tea.Cmd {
	prev := m.pending
	m.pending = filter.Apply(prev,
		filter.WithText(m.text.Value()),
		filter.WithLocation(m.location.Value()),
	)
	if m.debounce <= 0 || !filter.NeedsDebounce(prev, m.pending) {
		return tea.Batch(m.commit(), m.suggestCmd(m.text.Value()))
	}
	m.debounceGen++
	gen := m.debounceGen
	return tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return debounceMsg{gen: gen}
	})
}

// commit hands the pending state to the machine and searches when it changed.
func (m *Model) commit() tea.Cmd {
	t, ok := m.machine.Set(m.pending)
	if !ok {
		return nil
	}
	m.status = ""
	return m.searchCmd(t)
}

func (m *Model) apply(changes ...filter.Change) tea.Cmd {
	m.pending = filter.Apply(m.machine.State(), changes...)
	return m.commit()
}

func (m Model) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.machine.Snapshot()
	switch msg.String() {
	case "q", "ctrl+c":
		return m.quit()
	case "/":
		return m, m.focusOn(focusText)
	case "l":
		return m, m.focusOn(focusLocation)
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "n", "right":
		if snap.Page != nil && snap.State.Page < snap.Page.TotalPages {
			return m, m.apply(filter.WithPage(snap.State.Page + 1))
		}
		return m, nil
	case "p", "left":
		if snap.State.Page > 1 {
			return m, m.apply(filter.WithPage(snap.State.Page - 1))
		}
		return m, nil
	case "c":
		m.text.SetValue("")
		m.location.SetValue("")
		m.pending = filter.Reset()
		return m, m.commit()
	case "r":
		if snap.Phase == filter.PhaseFailed {
			return m, m.searchCmd(m.machine.Refresh())
		}
		return m, nil
	case "R":
		return m, m.retryInsightsCmd("")
	case "1", "2", "3":
		i := int(msg.String()[0] - '1')
		return m, m.retryInsightsCmd(model.InsightSources[i])
	case "i":
		m.showAI = !m.showAI
		m.recalcLayout()
		return m, nil
	case "enter":
		return m.openDetailView()
	case "s":
		if job, ok := m.selected(); ok {
			return m, m.actionCmd("save", job)
		}
		return m, nil
	case "a":
		if job, ok := m.selected(); ok {
			return m, m.actionCmd("apply", job)
		}
		return m, nil
	}

	// Forward other keys (pgup/pgdn/home/end) to the list viewport.
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m.quit()
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		openURL(m.detailJob.ApplyURL)
		return m, nil
	case "s":
		return m, m.actionCmd("save", m.detailJob)
	case "a":
		return m, m.actionCmd("apply", m.detailJob)
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m Model) openDetailView() (tea.Model, tea.Cmd) {
	job, ok := m.selected()
	if !ok {
		return m, nil
	}

	m.view = viewDetail
	m.detailJob = job
	m.detailErr = ""
	m.detail = viewport.New(max(m.width-4, 20), max(m.height-4, 5))

	// Synthetic ids exist only locally; the list copy is all there is.
	if !job.HasSyntheticID {
		m.detailLoading = true
		m.detail.SetContent(m.renderDetail())
		return m, m.detailCmd(job.ID)
	}
	m.detail.SetContent(m.renderDetail())
	return m, nil
}

func (m *Model) focusOn(f focusField) tea.Cmd {
	m.focus = f
	if f == focusText {
		m.location.Blur()
		return m.text.Focus()
	}
	m.text.Blur()
	return m.location.Focus()
}

func (m *Model) blur() {
	m.focus = focusNone
	m.text.Blur()
	m.location.Blur()
}

// dropSuggestions clears the list and abandons the lookup feeding it.
func (m *Model) dropSuggestions() {
	m.suggestions = nil
	m.backend.CancelSuggest()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.inflight.replace(nil)
	m.backend.CancelSuggest()
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) moveCursor(delta int) {
	jobs := m.jobs()
	m.cursor = clamp(m.cursor+delta, 0, max(len(jobs)-1, 0))
	m.recalcContent()
	m.ensureCursorVisible()
}

func (m *Model) ensureCursorVisible() {
	cursorTop := m.cursor * jobItemHeight
	cursorBottom := cursorTop + jobItemHeight - 1

	if cursorTop < m.list.YOffset {
		m.list.SetYOffset(cursorTop)
	} else if cursorBottom >= m.list.YOffset+m.list.Height {
		m.list.SetYOffset(cursorBottom - m.list.Height + 1)
	}
}

func (m Model) jobs() []model.Job {
	if page := m.machine.Snapshot().Page; page != nil {
		return page.Jobs
	}
	return nil
}

func (m Model) selected() (model.Job, bool) {
	jobs := m.jobs()
	if m.cursor < 0 || m.cursor >= len(jobs) {
		return model.Job{}, false
	}
	return jobs[m.cursor], true
}

// Commands. Each captures what it needs so it can run off the event loop.

func (m *Model) searchCmd(t filter.Ticket) tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.inflight.replace(cancel)
	backend := m.backend
	return func() tea.Msg {
		page, err := backend.Search(ctx, t.State)
		return searchDoneMsg{ticket: t, page: page, err: err}
	}
}

func (m Model) suggestCmd(term string) tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		items, ok, err := backend.Suggest(ctx, term)
		return suggestDoneMsg{term: term, items: items, ok: ok, err: err}
	}
}

func (m Model) loadInsightsCmd() tea.Cmd {
	ctrl, ctx := m.insights, m.ctx
	return func() tea.Msg {
		_, err := ctrl.Load(ctx)
		return insightsDoneMsg{err: err}
	}
}

// retryInsightsCmd retries one panel, or every panel when name is empty.
func (m Model) retryInsightsCmd(name string) tea.Cmd {
	ctrl, ctx := m.insights, m.ctx
	if name != "" {
		if p, ok := ctrl.View().Panel(name); !ok || p.State != retry.PanelFailed {
			return nil
		}
	}
	return func() tea.Msg {
		var err error
		if name == "" {
			_, err = ctrl.RetryAll(ctx)
		} else {
			_, err = ctrl.Retry(ctx, name)
		}
		return insightsDoneMsg{err: err}
	}
}

func (m Model) detailCmd(id string) tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		job, err := backend.GetByID(ctx, id)
		if err != nil {
			return detailDoneMsg{id: id, err: err}
		}
		return detailDoneMsg{id: id, job: job}
	}
}

func (m Model) actionCmd(action string, job model.Job) tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		var err error
		switch action {
		case "save":
			err = backend.Save(ctx, job)
		case "apply":
			err = backend.Apply(ctx, job)
		default:
			err = fmt.Errorf("unknown action %q", action)
		}
		return actionDoneMsg{action: action, job: job, err: err}
	}
}

var actionVerbs = map[string]string{"save": "saved", "apply": "applied to"}

func actionStatus(msg actionDoneMsg) string {
	verb := actionVerbs[msg.action]
	switch {
	case msg.err == nil:
		return fmt.Sprintf("%s %s", strings.ToUpper(verb[:1])+verb[1:], display.Headline(msg.job))
	case errors.Is(msg.err, model.ErrSyntheticID):
		return "This listing has no server id, so it cannot be " + verb
	case errors.Is(msg.err, model.ErrActionRejected):
		return fmt.Sprintf("Could not %s %s: the server declined", msg.action, msg.job.Title)
	}
	return fmt.Sprintf("Could not %s %s: %s", msg.action, msg.job.Title, fetch.Reason(msg.err))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	if url == "" {
		return
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the browser in the alternate screen and blocks until the user quits.
func Run(ctx context.Context, backend Backend, opts Options) error {
	p := tea.NewProgram(New(ctx, backend, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	if m, ok := final.(Model); ok {
		m.inflight.replace(nil)
	}
	return nil
}
