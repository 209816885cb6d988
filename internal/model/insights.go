package model

// Names of the insight sources fetched in parallel.
const (
	SourceRecommendations = "recommendations"
	SourceSkillsDemand    = "skills_demand"
	SourceSalaryInsights  = "salary_insights"
	SourceJobs            = "jobs"
)

// InsightSources lists the insight sources in panel order.
var InsightSources = []string{SourceRecommendations, SourceSkillsDemand, SourceSalaryInsights}

// SkillDemand is one row of the skills-demand panel.
type SkillDemand struct {
	Skill  string
	Demand int
	Growth *float64 // percent, nil when the payload carries no trend
}

// SalaryInsights summarizes the market salary for a position.
type SalaryInsights struct {
	Position   string
	Currency   string
	Min        *float64
	Max        *float64
	Average    *float64
	Median     *float64
	SampleSize int
}

// Empty reports whether no figure at all was provided.
func (s *SalaryInsights) Empty() bool {
	return s == nil || (s.Min == nil && s.Max == nil && s.Average == nil && s.Median == nil)
}

// SourceFailure records why a named source produced no data.
type SourceFailure struct {
	Name   string
	Reason string
	Err    error
}

// AggregatedInsights is the AI-panel bundle. Each source is independently
// present or absent; Present distinguishes "returned nothing" from "failed".
type AggregatedInsights struct {
	Recommendations []Job
	SkillsDemand    []SkillDemand
	SalaryInsights  *SalaryInsights
	Failures        []SourceFailure
	Present         map[string]bool
}

// Failed reports whether the named source failed.
func (a AggregatedInsights) Failed(name string) bool {
	for _, f := range a.Failures {
		if f.Name == name {
			return true
		}
	}
	return false
}
