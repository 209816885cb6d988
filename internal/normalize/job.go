// Package normalize reconciles the loosely specified job payloads returned by
// the search, detail, similar and recommendation endpoints into model.Job.
//
// Every function here is pure: the clock is passed in through Options, and
// malformed fields degrade to zero values instead of failing the record.
package normalize

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobdeck/internal/model"
)

// DefaultFallbackSearchURL is prefixed to the escaped "title company" query
// when a payload has no apply link.
const DefaultFallbackSearchURL = "https://www.google.com/search?q="

// syntheticNamespace scopes the UUIDv5 ids derived for records without an id.
var syntheticNamespace = uuid.MustParse("8a4f2c7e-1b3d-5e6f-9a0b-c1d2e3f4a5b6")

// SyntheticIDPrefix starts every derived id. A derived id is the prefix
// followed by a version 5 UUID; a server id that merely shares the prefix is
// not one.
const SyntheticIDPrefix = "local~"

// Options carries the inputs normalization needs besides the payload.
type Options struct {
	Now               time.Time // reference time for the posting-age check
	FallbackSearchURL string    // defaults to DefaultFallbackSearchURL
}

// Job converts one raw job-like value into a canonical Job. index is the
// record's position in its list and only feeds the synthetic id. The only
// failures are a non-object payload and a record with no id, title or company.
func Job(raw any, index int, opts Options) (model.Job, error) {
	data, ok := raw.(map[string]any)
	if !ok {
		return model.Job{}, &model.NormalizationError{Index: index, Reason: fmt.Sprintf("expected object, got %T", raw)}
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	job := model.Job{
		Title:       getString(data, "title", "job_title", "jobTitle", "position"),
		Company:     resolveCompany(data),
		Location:    resolveLocation(data),
		JobType:     getString(data, "job_type", "jobType", "employment_type", "employmentType", "contract_type"),
		Salary:      resolveSalary(data),
		PostedAt:    resolvePostedAt(data, opts.Now),
		Skills:      resolveSkills(data),
		Description: extractText(getString(data, "description", "job_description", "jobDescription", "summary")),
		Raw:         raw,
	}
	job.RemoteKind = resolveRemoteKind(data, job.Location)

	job.ID = resolveID(data)
	if job.ID == "" {
		hasCompany := job.Company.Name != model.UnknownCompany
		if job.Title == "" && !hasCompany {
			return model.Job{}, &model.NormalizationError{Index: index, Reason: "no id, title or company"}
		}
		job.ID = syntheticID(job.Title, job.Company.Name, index)
		job.HasSyntheticID = true
	}

	job.ApplyURL = resolveApplyURL(data, job, opts.FallbackSearchURL)
	return job, nil
}

// Jobs normalizes a list, dropping records that fail. offset is added to each
// record's position so synthetic ids stay stable across pages.
func Jobs(raws []any, offset int, opts Options) ([]model.Job, []error) {
	jobs := make([]model.Job, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		job, err := Job(raw, offset+i, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, errs
}

func resolveID(data map[string]any) string {
	for _, key := range []string{"id", "_id"} {
		switch v := data[key].(type) {
		case map[string]any:
			// Extended JSON object ids: {"$oid": "..."}
			if oid := getString(v, "$oid"); oid != "" {
				return oid
			}
		default:
			if s := stringValue(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func syntheticID(title, company string, index int) string {
	name := fmt.Sprintf("%s|%s|%d", strings.ToLower(title), strings.ToLower(company), index)
	return SyntheticIDPrefix + uuid.NewSHA1(syntheticNamespace, []byte(name)).String()
}

// IsSyntheticID reports whether id has the exact shape of a derived id. It
// is for bare ids only; a decoded job carries Job.HasSyntheticID instead.
func IsSyntheticID(id string) bool {
	rest, ok := strings.CutPrefix(id, SyntheticIDPrefix)
	if !ok {
		return false
	}
	u, err := uuid.Parse(rest)
	return err == nil && u.Version() == 5 && u.String() == rest
}

// HasID reports whether a raw record carries an id of its own.
func HasID(data map[string]any) bool {
	return resolveID(data) != ""
}

func resolveCompany(data map[string]any) model.Company {
	var c model.Company
	switch v := data["company"].(type) {
	case string:
		c.Name = strings.TrimSpace(v)
	case map[string]any:
		c.Name = getString(v, "name", "display_name", "displayName")
		c.Logo = getString(v, "logo", "logo_url", "logoUrl")
		c.Website = getString(v, "website", "website_url", "websiteUrl", "url")
		c.Description = extractText(getString(v, "description"))
	}
	if c.Name == "" {
		c.Name = getString(data, "companyName", "company_name")
	}
	if c.Name == "" {
		c.Name = model.UnknownCompany
	}
	if c.Logo == "" {
		c.Logo = getString(data, "company_logo", "companyLogo", "logo")
	}
	return c
}

func resolveLocation(data map[string]any) string {
	if loc := getString(data, "location", "job_location", "jobLocation"); loc != "" {
		return loc
	}
	if obj := getObject(data, "location"); obj != nil {
		if name := getString(obj, "name", "display_name", "displayName"); name != "" {
			return name
		}
		var parts []string
		for _, key := range []string{"city", "state", "country"} {
			if p := getString(obj, key); p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, ", ")
	}
	if arr, ok := getArray(data, "locations"); ok {
		var parts []string
		for _, item := range arr {
			if s := stringValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return getString(data, "city")
}

// resolveRemoteKind prefers explicit work-type strings, then remote booleans,
// then a "remote" mention in the location.
func resolveRemoteKind(data map[string]any, location string) model.RemoteKind {
	for _, key := range []string{"remote_type", "remoteType", "work_type", "workType", "workplace_type", "workplaceType", "remote"} {
		if kind := parseRemoteText(getString(data, key)); kind != "" {
			return kind
		}
	}
	if remote, ok := getBool(data, "isRemote", "is_remote", "remote"); ok {
		if remote {
			return model.RemoteKindRemote
		}
		return model.RemoteKindOnsite
	}
	if strings.Contains(strings.ToLower(location), "remote") {
		return model.RemoteKindRemote
	}
	return model.RemoteKindUnspecified
}

func parseRemoteText(s string) model.RemoteKind {
	s = strings.ToLower(s)
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "hybrid"):
		return model.RemoteKindHybrid
	case strings.Contains(s, "remote"):
		return model.RemoteKindRemote
	case strings.Contains(s, "onsite"), strings.Contains(s, "on-site"), strings.Contains(s, "on site"),
		strings.Contains(s, "office"), strings.Contains(s, "in-person"), strings.Contains(s, "in person"):
		return model.RemoteKindOnsite
	}
	return ""
}

// resolveSkills reads the first non-empty skills field. Duplicates are
// compared case-insensitively and the first spelling is kept.
func resolveSkills(data map[string]any) []string {
	var raw []string
	for _, key := range []string{"skills", "required_skills", "requiredSkills", "tags", "technologies", "tech_stack"} {
		switch v := data[key].(type) {
		case []any:
			for _, item := range v {
				switch it := item.(type) {
				case map[string]any:
					raw = append(raw, getString(it, "name", "skill", "label"))
				default:
					raw = append(raw, stringValue(it))
				}
			}
		case string:
			raw = append(raw, strings.Split(v, ",")...)
		}
		if len(raw) > 0 {
			break
		}
	}
	return dedupe(raw)
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func resolveApplyURL(data map[string]any, job model.Job, fallback string) string {
	if u := getString(data, "apply_url", "applyUrl", "source_url", "sourceUrl", "url", "redirect_url", "redirectUrl"); u != "" {
		return u
	}
	terms := job.Title
	if job.Company.Name != model.UnknownCompany {
		terms = strings.TrimSpace(terms + " " + job.Company.Name)
	}
	if terms == "" {
		return ""
	}
	if fallback == "" {
		fallback = DefaultFallbackSearchURL
	}
	return fallback + url.QueryEscape(terms)
}
