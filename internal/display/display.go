// Package display formats normalized jobs for terminal and notification output.
package display

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/amishk599/jobdeck/internal/model"
)

// Posted renders the posting date relative to now, e.g. "3 days ago".
func Posted(job model.Job, now time.Time) string {
	if job.PostedAt == nil {
		return "date unknown"
	}
	return humanize.RelTime(*job.PostedAt, now, "ago", "from now")
}

// Salary renders a salary range, e.g. "$80k – $120k (est.)". Free text is
// returned verbatim when no bound was parsed.
func Salary(s *model.Salary) string {
	if s == nil {
		return "not listed"
	}
	var out string
	switch {
	case s.Min != nil && s.Max != nil && *s.Min == *s.Max:
		out = amount(*s.Min, s.Currency)
	case s.Min != nil && s.Max != nil:
		out = amount(*s.Min, s.Currency) + " - " + amount(*s.Max, s.Currency)
	case s.Min != nil:
		out = "from " + amount(*s.Min, s.Currency)
	case s.Max != nil:
		out = "up to " + amount(*s.Max, s.Currency)
	case s.Text != "":
		return s.Text
	default:
		return "not listed"
	}
	if s.Estimated {
		out += " (est.)"
	}
	return out
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
}

func amount(v float64, currency string) string {
	var num string
	if v >= 1000 && math.Mod(v, 1000) == 0 {
		num = humanize.Comma(int64(v/1000)) + "k"
	} else {
		num = humanize.CommafWithDigits(v, 0)
	}
	if sym, ok := currencySymbols[strings.ToUpper(currency)]; ok {
		return sym + num
	}
	if currency != "" {
		return num + " " + strings.ToUpper(currency)
	}
	return num
}

// Where combines location and remote kind, e.g. "Berlin (hybrid)".
func Where(job model.Job) string {
	loc := job.Location
	if loc == "" {
		loc = "location unknown"
	}
	switch job.RemoteKind {
	case model.RemoteKindRemote, model.RemoteKindHybrid, model.RemoteKindOnsite:
		if !strings.Contains(strings.ToLower(loc), string(job.RemoteKind)) {
			return fmt.Sprintf("%s (%s)", loc, job.RemoteKind)
		}
	}
	return loc
}

// Count renders "1 job" / "1,204 jobs".
func Count(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

// Headline is "Title at Company".
func Headline(job model.Job) string {
	title := job.Title
	if title == "" {
		title = "Untitled role"
	}
	return title + " at " + job.Company.Name
}
