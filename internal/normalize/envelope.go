package normalize

import (
	"errors"
	"fmt"
	"math"

	"github.com/amishk599/jobdeck/internal/model"
)

// Envelope is the decoded search response: the raw items plus paging totals.
type Envelope struct {
	Items      []any
	Total      int
	TotalPages int
}

// SearchEnvelope accepts {items|jobs|results|data: [...], total, total_pages}
// or a bare array. A body without a recognizable list is a ParseError, so a
// broken response is never mistaken for zero results.
func SearchEnvelope(body any, pageSize int) (Envelope, error) {
	items, data, err := list(body, model.SourceJobs, "items", "jobs", "results", "data")
	if err != nil {
		return Envelope{}, err
	}

	env := Envelope{Items: items, Total: len(items)}
	if data != nil {
		if total := getNumber(data, "total", "total_count", "totalCount", "count"); total != nil {
			env.Total = int(*total)
		}
		env.TotalPages = getInt(data, "total_pages", "totalPages", "pages")
	}
	if env.TotalPages == 0 && pageSize > 0 && env.Total > 0 {
		env.TotalPages = int(math.Ceil(float64(env.Total) / float64(pageSize)))
	}
	return env, nil
}

// List decodes an endpoint returning a job array, bare or wrapped.
func List(body any, source string) ([]any, error) {
	items, _, err := list(body, source, "items", "jobs", "similar", "results", "data")
	return items, err
}

// Recommendations decodes the recommendations body. Items that wrap the job
// under "job" are unwrapped.
func Recommendations(body any) ([]any, error) {
	items, _, err := list(body, model.SourceRecommendations, "recommendations", "items", "jobs", "data")
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			if inner := getObject(obj, "job"); inner != nil {
				out = append(out, inner)
				continue
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// SkillsDemand decodes the skills-demand body. Plain strings are accepted as
// skills with unknown demand; entries without a skill name are skipped.
func SkillsDemand(body any) ([]model.SkillDemand, error) {
	items, _, err := list(body, model.SourceSkillsDemand, "skills", "skills_demand", "skillsDemand", "items", "data")
	if err != nil {
		return nil, err
	}
	out := make([]model.SkillDemand, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if s := stringValue(v); s != "" {
				out = append(out, model.SkillDemand{Skill: s})
			}
		case map[string]any:
			skill := getString(v, "skill", "name", "skill_name", "skillName")
			if skill == "" {
				continue
			}
			out = append(out, model.SkillDemand{
				Skill:  skill,
				Demand: getInt(v, "demand", "count", "demand_count", "demandCount", "job_count", "jobCount", "jobs"),
				Growth: getNumber(v, "growth", "trend", "growth_rate", "growthRate"),
			})
		}
	}
	return out, nil
}

// SalaryInsights decodes the salary-insights body, optionally wrapped under
// "data" or "salary_insights". A body with no figures decodes to an empty
// value rather than an error.
func SalaryInsights(body any) (*model.SalaryInsights, error) {
	data, ok := body.(map[string]any)
	if !ok {
		return nil, &model.ParseError{Source: model.SourceSalaryInsights, Err: fmt.Errorf("expected object, got %T", body)}
	}
	if inner := getObject(data, "salary_insights", "salaryInsights", "data"); inner != nil {
		data = inner
	}
	return &model.SalaryInsights{
		Position:   getString(data, "position", "title", "job_title"),
		Currency:   getString(data, "currency"),
		Min:        getNumber(data, "min", "min_salary", "minSalary"),
		Max:        getNumber(data, "max", "max_salary", "maxSalary"),
		Average:    getNumber(data, "average", "avg", "average_salary", "averageSalary", "avg_salary", "mean"),
		Median:     getNumber(data, "median", "median_salary", "medianSalary"),
		SampleSize: getInt(data, "sample_size", "sampleSize", "count", "data_points"),
	}, nil
}

// list finds the item array of a body and returns the enclosing object, if any.
func list(body any, source string, keys ...string) ([]any, map[string]any, error) {
	switch v := body.(type) {
	case []any:
		return v, nil, nil
	case map[string]any:
		if items, ok := getArray(v, keys...); ok {
			return items, v, nil
		}
		// One level of nesting: {"data": {"items": [...], "total": 3}}
		if inner := getObject(v, "data", "result"); inner != nil {
			if items, ok := getArray(inner, keys...); ok {
				return items, inner, nil
			}
		}
		return nil, nil, &model.ParseError{Source: source, Err: errors.New("no item list in response")}
	}
	return nil, nil, &model.ParseError{Source: source, Err: fmt.Errorf("expected array or object, got %T", body)}
}
