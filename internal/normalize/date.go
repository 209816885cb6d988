package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// maxPostingAge bounds how old a posting date may be before it is treated as bogus.
const maxPostingAge = 3650 * 24 * time.Hour

// Tried in order; the first field holding a plausible date wins.
var dateKeys = []string{
	"posted_date", "created_at", "postedAt",
	"posted_at", "createdAt", "published_at", "publishedAt", "date_posted", "datePosted",
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// resolvePostedAt returns nil when no date field parses to a plausible time.
func resolvePostedAt(data map[string]any, now time.Time) *time.Time {
	for _, key := range dateKeys {
		val, ok := data[key]
		if !ok || val == nil {
			continue
		}
		t, ok := parseDate(val)
		if !ok || !plausible(t, now) {
			continue
		}
		return &t
	}
	return nil
}

func plausible(t, now time.Time) bool {
	age := now.Sub(t)
	return age >= 0 && age <= maxPostingAge
}

// parseDate accepts the layouts above and Unix epochs in seconds or milliseconds.
func parseDate(val any) (time.Time, bool) {
	switch v := val.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		if isDigits(s) {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return time.Time{}, false
			}
			return fromEpoch(float64(n))
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromEpoch(f)
	case float64:
		return fromEpoch(v)
	case int64:
		return fromEpoch(float64(v))
	case int:
		return fromEpoch(float64(v))
	}
	return time.Time{}, false
}

// fromEpoch treats values of 1e12 and above as milliseconds.
func fromEpoch(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return time.Time{}, false
	}
	if f >= 1e12 {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	return time.Unix(int64(f), 0).UTC(), true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
