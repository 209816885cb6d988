package suggest

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"
)

// CorpusSource loads the candidate terms for an input, typically remotely.
type CorpusSource interface {
	Corpus(ctx context.Context, term string) ([]Term, error)
}

// Engine answers suggestion queries against a remote corpus. Only the most
// recent query's answer is delivered: each call takes a new generation and
// cancels the previous call's context, and a call that finishes after a
// newer one started reports ok=false.
type Engine struct {
	source CorpusSource
	limit  int

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewEngine creates an Engine returning at most limit suggestions.
func NewEngine(source CorpusSource, limit int) *Engine {
	return &Engine{source: source, limit: limit}
}

// Query returns suggestions for term. ok is false when a newer query
// superseded this one; the result must then be ignored.
func (e *Engine) Query(ctx context.Context, term string) (suggestions []Suggestion, ok bool, err error) {
	gen, qctx := e.begin(ctx)

	if utf8.RuneCountInString(strings.TrimSpace(term)) < MinTermLength {
		return nil, e.finish(gen), nil
	}

	corpus, err := e.source.Corpus(qctx, term)
	if !e.finish(gen) {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}
	return Suggest(term, corpus, e.limit), true, nil
}

// Cancel supersedes any query in flight.
func (e *Engine) Cancel() {
	e.begin(context.Background())
	e.mu.Lock()
	e.finishLocked()
	e.mu.Unlock()
}

func (e *Engine) begin(ctx context.Context) (uint64, context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	qctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	return e.gen, qctx
}

// finish reports whether gen is still the latest and releases its context.
func (e *Engine) finish(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return false
	}
	e.finishLocked()
	return true
}

func (e *Engine) finishLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}
