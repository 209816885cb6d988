package filter

import (
	"net/url"
	"strconv"
	"strings"
)

// Query string keys. The search endpoint accepts the same names.
const (
	keyText       = "q"
	keyLocation   = "location"
	keyJobType    = "job_type"
	keySalary     = "salary"
	keyExperience = "experience"
	keyDatePosted = "date_posted"
	keySkills     = "skills"
	keyCompany    = "company"
	keyPage       = "page"
)

// Values returns the state as URL values. Empty fields and page 1 are
// omitted; skills repeat in order.
func (s State) Values() url.Values {
	s = s.normalized()
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set(keyText, s.Text)
	set(keyLocation, s.Location)
	set(keyJobType, s.JobType)
	set(keySalary, s.SalaryBand)
	set(keyExperience, s.Experience)
	set(keyDatePosted, s.DatePosted)
	set(keyCompany, s.Company)
	for _, skill := range s.Skills {
		v.Add(keySkills, skill)
	}
	if s.Page > 1 {
		v.Set(keyPage, strconv.Itoa(s.Page))
	}
	return v
}

// Serialize encodes the state as a shareable query string with keys sorted.
func Serialize(s State) string {
	return s.Values().Encode()
}

// Parse decodes a query string, with or without a leading "?". Unknown keys
// are ignored and a missing or invalid page is 1.
func Parse(qs string) State {
	// ParseQuery keeps the pairs it could decode alongside the error.
	v, _ := url.ParseQuery(strings.TrimPrefix(qs, "?"))
	s := State{
		Text:       v.Get(keyText),
		Location:   v.Get(keyLocation),
		JobType:    v.Get(keyJobType),
		SalaryBand: v.Get(keySalary),
		Experience: v.Get(keyExperience),
		DatePosted: v.Get(keyDatePosted),
		Company:    v.Get(keyCompany),
	}
	s.Skills = v[keySkills]
	if p, err := strconv.Atoi(v.Get(keyPage)); err == nil {
		s.Page = p
	}
	return s.normalized()
}
