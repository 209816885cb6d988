package model

import "time"

// RemoteKind describes where the work happens.
type RemoteKind string

const (
	RemoteKindRemote      RemoteKind = "remote"
	RemoteKindHybrid      RemoteKind = "hybrid"
	RemoteKindOnsite      RemoteKind = "onsite"
	RemoteKindUnspecified RemoteKind = "unspecified"
)

// UnknownCompany is the company name used when a payload names none.
const UnknownCompany = "Unknown Company"

// Unified representation of a job listing from any endpoint
// (search, detail, similar, recommendations).
type Job struct {
	ID             string     // from id / _id, or synthetic
	HasSyntheticID bool       // true when ID was derived locally; never send it to the server
	Title          string     // job title
	Company        Company    // always populated, even from a bare string
	Location       string     // location string
	RemoteKind     RemoteKind // derived from the remote/work type flags
	JobType        string     // "" when the payload has none
	Salary         *Salary    // nil when no salary encoding was recognized
	PostedAt       *time.Time // nil when absent, invalid, or implausible
	Skills         []string   // deduplicated, first spelling wins
	ApplyURL       string     // direct apply link or a constructed search link
	Description    string     // plain text
	Raw            any        // original payload, kept for debugging
}

// Company is the structured company of a job.
type Company struct {
	Name        string
	Logo        string
	Website     string
	Description string
}

// Salary is a reconciled salary. Min and Max are nil when unknown, never zero
// placeholders. Text holds a free-text salary that could not be parsed.
type Salary struct {
	Min       *float64
	Max       *float64
	Currency  string
	Estimated bool
	Text      string
}

// SearchPage is one page of normalized search results.
type SearchPage struct {
	Jobs       []Job
	Total      int
	TotalPages int
	Page       int
	Dropped    int // records dropped because they could not be normalized
}

// JobStore tracks which job IDs have been seen for deduplication, and which
// watched searches have had their backlog recorded.
type JobStore interface {
	HasSeen(jobID string) (bool, error)
	MarkSeen(jobID string) error
	Cleanup(olderThan time.Duration) error
	IsSeeded(search string) (bool, error)
	MarkSeeded(search string) error
}

// SavedStore records jobs the user saved or applied to.
type SavedStore interface {
	MarkSaved(job Job) error
	Unsave(jobID string) error
	IsSaved(jobID string) (bool, error)
	MarkApplied(job Job) error // records the job as saved too
	ListSaved() ([]SavedJob, error)
}

// SavedJob is a locally recorded saved job.
type SavedJob struct {
	ID        string
	Title     string
	Company   string
	SavedAt   time.Time
	AppliedAt *time.Time
}

// Notifier sends notifications for new job matches.
type Notifier interface {
	Notify(search string, jobs []Job) error
}
