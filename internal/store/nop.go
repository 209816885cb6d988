package store

import (
	"time"

	"github.com/amishk599/jobdeck/internal/model"
)

// NopStore is a no-op store used in dry-run mode. It never marks jobs as seen
// and reports every search as seeded, so every job appears new on each poll.
// It remembers no saved jobs.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) HasSeen(jobID string) (bool, error)    { return false, nil }
func (s *NopStore) MarkSeen(jobID string) error           { return nil }
func (s *NopStore) Cleanup(olderThan time.Duration) error { return nil }
func (s *NopStore) IsSeeded(search string) (bool, error)  { return true, nil }
func (s *NopStore) MarkSeeded(search string) error        { return nil }

func (s *NopStore) MarkSaved(job model.Job) error        { return nil }
func (s *NopStore) Unsave(jobID string) error            { return nil }
func (s *NopStore) IsSaved(jobID string) (bool, error)   { return false, nil }
func (s *NopStore) MarkApplied(job model.Job) error      { return nil }
func (s *NopStore) ListSaved() ([]model.SavedJob, error) { return nil, nil }
