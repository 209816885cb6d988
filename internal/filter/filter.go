// Package filter owns the search query state: the filters and page the user
// has chosen, how filter actions change them, and their shareable query
// string form.
package filter

import (
	"slices"
	"strings"
	"time"
)

// DefaultDebounce is how long free-text edits settle before a fetch starts.
const DefaultDebounce = 300 * time.Millisecond

// State is the full set of search inputs. It is a value: actions return a
// new State and the fetch layer never mutates one.
type State struct {
	Text       string
	Location   string
	JobType    string
	SalaryBand string
	Experience string
	DatePosted string
	Skills     []string
	Company    string
	Page       int // 1-based; values below 1 mean 1
}

// Change is one filter action.
type Change func(*State)

func WithText(v string) Change       { return func(s *State) { s.Text = v } }
func WithLocation(v string) Change   { return func(s *State) { s.Location = v } }
func WithJobType(v string) Change    { return func(s *State) { s.JobType = v } }
func WithSalaryBand(v string) Change { return func(s *State) { s.SalaryBand = v } }
func WithExperience(v string) Change { return func(s *State) { s.Experience = v } }
func WithDatePosted(v string) Change { return func(s *State) { s.DatePosted = v } }
func WithCompany(v string) Change    { return func(s *State) { s.Company = v } }
func WithPage(p int) Change          { return func(s *State) { s.Page = p } }

// WithSkills replaces the skill list.
func WithSkills(skills ...string) Change {
	return func(s *State) { s.Skills = slices.Clone(skills) }
}

// WithoutSkill removes one skill, compared case-insensitively.
func WithoutSkill(skill string) Change {
	return func(s *State) {
		s.Skills = slices.DeleteFunc(slices.Clone(s.Skills), func(v string) bool {
			return strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(skill))
		})
	}
}

// Apply returns s with changes applied. When any filter other than the page
// ends up different, the page resets to 1, even if a page was also set in
// the same call.
func Apply(s State, changes ...Change) State {
	next := s.clone()
	for _, change := range changes {
		change(&next)
	}
	next = next.normalized()
	if !sameFilters(s.normalized(), next) {
		next.Page = 1
	}
	return next
}

// Reset returns the default state.
func Reset() State {
	return State{Page: 1}
}

// Equal reports value equality.
func (s State) Equal(o State) bool {
	a, b := s.normalized(), o.normalized()
	return sameFilters(a, b) && a.Page == b.Page
}

// IsDefault reports whether no filter is set and the page is 1.
func (s State) IsDefault() bool {
	return s.Equal(Reset())
}

// NeedsDebounce reports whether moving from prev to next only touched the
// free-text fields (text, location, company).
func NeedsDebounce(prev, next State) bool {
	a, b := prev.normalized(), next.normalized()
	textChanged := a.Text != b.Text || a.Location != b.Location || a.Company != b.Company
	if !textChanged {
		return false
	}
	a.Text, a.Location, a.Company = b.Text, b.Location, b.Company
	return sameFilters(a, b)
}

func sameFilters(a, b State) bool {
	return a.Text == b.Text &&
		a.Location == b.Location &&
		a.JobType == b.JobType &&
		a.SalaryBand == b.SalaryBand &&
		a.Experience == b.Experience &&
		a.DatePosted == b.DatePosted &&
		a.Company == b.Company &&
		slices.Equal(a.Skills, b.Skills)
}

func (s State) clone() State {
	s.Skills = slices.Clone(s.Skills)
	return s
}

// normalized trims every value, drops empty and duplicate skills, and clamps
// the page to at least 1.
func (s State) normalized() State {
	s.Text = strings.TrimSpace(s.Text)
	s.Location = strings.TrimSpace(s.Location)
	s.JobType = strings.TrimSpace(s.JobType)
	s.SalaryBand = strings.TrimSpace(s.SalaryBand)
	s.Experience = strings.TrimSpace(s.Experience)
	s.DatePosted = strings.TrimSpace(s.DatePosted)
	s.Company = strings.TrimSpace(s.Company)
	s.Skills = dedupeSkills(s.Skills)
	if s.Page < 1 {
		s.Page = 1
	}
	return s
}

// dedupeSkills also splits comma-separated entries, so "go, sql" is two skills.
func dedupeSkills(skills []string) []string {
	var out []string
	seen := make(map[string]bool, len(skills))
	for _, skill := range splitSkills(skills) {
		skill = strings.TrimSpace(skill)
		key := strings.ToLower(skill)
		if skill == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, skill)
	}
	return out
}

func splitSkills(skills []string) []string {
	var out []string
	for _, skill := range skills {
		out = append(out, strings.Split(skill, ",")...)
	}
	return out
}
