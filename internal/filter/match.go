package filter

import (
	"strings"

	"github.com/amishk599/jobdeck/internal/model"
)

// Matches reports whether a job satisfies the text, location, company, job
// type and skill filters locally. Matching is case-insensitive substring
// matching; salary, experience and date filters are left to the server.
// Watches use it to discard results a backend returned despite the filters.
func (s State) Matches(job model.Job) bool {
	s = s.normalized()
	haystack := strings.ToLower(strings.Join([]string{
		job.Title, job.Company.Name, job.Description, strings.Join(job.Skills, " "),
	}, " "))

	for _, term := range strings.Fields(strings.ToLower(s.Text)) {
		if !strings.Contains(haystack, term) {
			return false
		}
	}

	if s.Location != "" && !matchesLocation(job, s.Location) {
		return false
	}

	if s.Company != "" && !strings.Contains(strings.ToLower(job.Company.Name), strings.ToLower(s.Company)) {
		return false
	}

	if s.JobType != "" && job.JobType != "" && canonicalJobType(job.JobType) != canonicalJobType(s.JobType) {
		return false
	}

	for _, skill := range s.Skills {
		if !strings.Contains(haystack, strings.ToLower(skill)) {
			return false
		}
	}

	return true
}

func matchesLocation(job model.Job, want string) bool {
	want = strings.ToLower(want)
	if strings.Contains(strings.ToLower(job.Location), want) {
		return true
	}
	return want == "remote" && job.RemoteKind == model.RemoteKindRemote
}

// canonicalJobType folds "Full-time", "full_time" and "FULL TIME" together.
func canonicalJobType(v string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(v))
}
