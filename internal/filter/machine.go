package filter

import (
	"sync"

	"github.com/amishk599/jobdeck/internal/model"
)

// Phase is where the machine is in its fetch cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseSuccess
	PhasePartialSuccess // a page was delivered but some records were dropped
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseSuccess:
		return "success"
	case PhasePartialSuccess:
		return "partial_success"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// Ticket identifies one fetch. Only the ticket of the latest generation can
// resolve the machine.
type Ticket struct {
	Generation uint64
	State      State
}

// Snapshot is a consistent view of the machine.
type Snapshot struct {
	State      State
	Phase      Phase
	Page       *model.SearchPage
	Err        error
	Generation uint64
}

// Machine tracks the current state and its in-flight fetch. Results from
// superseded generations are dropped, so the last request wins no matter the
// order responses arrive in.
type Machine struct {
	mu    sync.Mutex
	state State
	gen   uint64
	phase Phase
	page  *model.SearchPage
	err   error
}

// NewMachine returns an idle machine holding initial.
func NewMachine(initial State) *Machine {
	return &Machine{state: initial.normalized()}
}

// Set moves to next and starts a fetch when next differs from the current
// state. It returns false, and no ticket, when nothing changed.
func (m *Machine) Set(next State) (Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if next.Equal(m.state) && m.phase != PhaseIdle {
		return Ticket{}, false
	}
	m.state = next.normalized()
	return m.begin(), true
}

// Apply is Set(Apply(current, changes...)).
func (m *Machine) Apply(changes ...Change) (Ticket, bool) {
	return m.Set(Apply(m.State(), changes...))
}

// Refresh starts a new fetch of the current state, superseding any fetch in
// flight. It backs the full retry.
func (m *Machine) Refresh() Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin()
}

func (m *Machine) begin() Ticket {
	m.gen++
	m.phase = PhaseFetching
	return Ticket{Generation: m.gen, State: m.state.clone()}
}

// Resolve records the outcome of the fetch for t. A stale ticket is ignored
// and Resolve returns false. A current result fully replaces the previous
// one; an error clears it.
func (m *Machine) Resolve(t Ticket, page *model.SearchPage, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.Generation != m.gen {
		return false
	}
	switch {
	case err != nil:
		m.phase, m.page, m.err = PhaseFailed, nil, err
	case page != nil && page.Dropped > 0:
		m.phase, m.page, m.err = PhasePartialSuccess, page, nil
	default:
		m.phase, m.page, m.err = PhaseSuccess, page, nil
	}
	return true
}

// IsCurrent reports whether t is still the latest generation.
func (m *Machine) IsCurrent(t Ticket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return t.Generation == m.gen
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Snapshot returns the current state, phase and result together.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:      m.state.clone(),
		Phase:      m.phase,
		Page:       m.page,
		Err:        m.err,
		Generation: m.gen,
	}
}
