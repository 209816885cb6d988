// Package retry decides what a view shows after a multi-source load: which
// sources are ready, empty or failed, whether the whole load failed, and
// what can be retried. Retries are always caller actions; nothing here
// sleeps or backs off on its own.
package retry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/amishk599/jobdeck/internal/fetch"
	"github.com/amishk599/jobdeck/internal/model"
)

// Status is the overall state of a load.
type Status int

const (
	Loading Status = iota
	Loaded
	PartialError // at least one source has data and at least one failed
	TotalError   // some source failed and none has data
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case PartialError:
		return "partial_error"
	case TotalError:
		return "total_error"
	}
	return "unknown"
}

// PanelState is the state of one source.
type PanelState int

const (
	PanelLoading PanelState = iota
	PanelReady
	PanelEmpty  // succeeded with no data
	PanelFailed // failed; shows a notice, the reason and a scoped retry
)

func (p PanelState) String() string {
	switch p {
	case PanelLoading:
		return "loading"
	case PanelReady:
		return "ready"
	case PanelEmpty:
		return "empty"
	case PanelFailed:
		return "failed"
	}
	return "unknown"
}

// Panel is the presentation of one source.
type Panel struct {
	Name      string
	State     PanelState
	Data      any
	Notice    string // set for empty and failed panels, never the same text for both
	Reason    string // why the source failed
	Retryable bool
	Err       error
}

// View is a snapshot of a controller.
type View struct {
	Status  Status
	Panels  []Panel
	Message string // "Error loading <label>" on total failure
}

// Panel returns the named panel.
func (v View) Panel(name string) (Panel, bool) {
	for _, p := range v.Panels {
		if p.Name == name {
			return p, true
		}
	}
	return Panel{}, false
}

// Loader fetches the named sources. It returns an error only when ctx was
// cancelled; source failures belong in the result.
type Loader func(ctx context.Context, names []string) (fetch.Result, error)

// Single adapts a one-source fetch function to a Loader. Errors other than
// the caller's cancellation become a failure of that source.
func Single(name string, fn func(ctx context.Context) (any, error)) Loader {
	return func(ctx context.Context, _ []string) (fetch.Result, error) {
		data, err := fn(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fetch.Result{}, ctxErr
		}
		if err != nil {
			return fetch.Result{Failures: []model.SourceFailure{{Name: name, Reason: fetch.Reason(err), Err: err}}}, nil
		}
		return fetch.Result{Results: map[string]any{name: data}}, nil
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

type panelState struct {
	gen   uint64
	panel Panel
}

// Controller tracks the panels of one view. Each source carries its own
// generation, so when retries overlap only the newest response for a source
// is applied.
type Controller struct {
	label  string
	names  []string
	load   Loader
	logger *slog.Logger

	mu     sync.Mutex
	panels map[string]*panelState
}

// NewController creates a controller over the named sources. label names
// the view in the total-failure message.
func NewController(label string, names []string, load Loader, opts ...Option) *Controller {
	c := &Controller{
		label:  label,
		names:  slices.Clone(names),
		load:   load,
		panels: make(map[string]*panelState, len(names)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, name := range names {
		c.panels[name] = &panelState{panel: Panel{Name: name, State: PanelLoading}}
	}
	return c
}

// Load fetches every source. It is also the full retry: the identical
// request is issued again.
func (c *Controller) Load(ctx context.Context) (View, error) {
	return c.run(ctx, c.names)
}

// RetryAll re-issues the full request.
func (c *Controller) RetryAll(ctx context.Context) (View, error) {
	c.logger.Info("retrying all sources", "view", c.label)
	return c.run(ctx, c.names)
}

// Retry re-fetches one source and merges it into the view. The other
// panels are untouched.
func (c *Controller) Retry(ctx context.Context, name string) (View, error) {
	if _, ok := c.panels[name]; !ok {
		return c.View(), fmt.Errorf("retry %s: unknown source %q", c.label, name)
	}
	c.logger.Info("retrying source", "view", c.label, "source", name)
	return c.run(ctx, []string{name})
}

func (c *Controller) run(ctx context.Context, names []string) (View, error) {
	gens := c.begin(names)

	res, err := c.load(ctx, names)
	if err != nil {
		return c.View(), fmt.Errorf("load %s: %w", c.label, err)
	}

	c.mu.Lock()
	for _, name := range names {
		ps := c.panels[name]
		if ps.gen != gens[name] {
			c.logger.Debug("dropping stale response", "view", c.label, "source", name)
			continue
		}
		ps.panel = c.settle(name, res)
	}
	view := c.viewLocked()
	c.mu.Unlock()
	return view, nil
}

func (c *Controller) begin(names []string) map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	gens := make(map[string]uint64, len(names))
	for _, name := range names {
		ps := c.panels[name]
		ps.gen++
		ps.panel = Panel{Name: name, State: PanelLoading}
		gens[name] = ps.gen
	}
	return gens
}

func (c *Controller) settle(name string, res fetch.Result) Panel {
	for _, f := range res.Failures {
		if f.Name != name {
			continue
		}
		reason := f.Reason
		if reason == "" {
			reason = fetch.Reason(f.Err)
		}
		return Panel{
			Name:      name,
			State:     PanelFailed,
			Notice:    FailureNotice(name),
			Reason:    reason,
			Retryable: Classify(f.Err).Retryable,
			Err:       f.Err,
		}
	}
	data, ok := res.Results[name]
	if !ok || isEmpty(data) {
		return Panel{Name: name, State: PanelEmpty, Data: data, Notice: EmptyNotice(name)}
	}
	return Panel{Name: name, State: PanelReady, Data: data}
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{Panels: make([]Panel, 0, len(c.names))}
	// Only panels holding data count as usable: an empty panel next to
	// failed ones still leaves nothing to show.
	var loading, usable, failed int
	for _, name := range c.names {
		p := c.panels[name].panel
		v.Panels = append(v.Panels, p)
		switch p.State {
		case PanelLoading:
			loading++
		case PanelFailed:
			failed++
		case PanelReady:
			usable++
		}
	}
	switch {
	case loading > 0:
		v.Status = Loading
	case failed == 0:
		v.Status = Loaded
	case usable == 0:
		v.Status = TotalError
		v.Message = "Error loading " + c.label
	default:
		v.Status = PartialError
	}
	return v
}

var failureNotices = map[string]string{
	model.SourceRecommendations: "No recommendations available",
	model.SourceSkillsDemand:    "No skills demand data available",
	model.SourceSalaryInsights:  "No salary insights available",
	model.SourceJobs:            "No jobs available",
}

// FailureNotice is the copy shown on a failed panel.
func FailureNotice(name string) string {
	if n, ok := failureNotices[name]; ok {
		return n
	}
	return "No " + strings.ReplaceAll(name, "_", " ") + " available"
}

// EmptyNotice is the copy shown on a panel whose source returned nothing.
func EmptyNotice(name string) string {
	return "Nothing to show for " + strings.ReplaceAll(name, "_", " ") + " yet"
}

// isEmpty treats nil, zero-length slices and maps, and values with an
// Empty() method reporting true as empty.
func isEmpty(data any) bool {
	if data == nil {
		return true
	}
	if e, ok := data.(interface{ Empty() bool }); ok {
		return e.Empty()
	}
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return false
}
