// Package suggest ranks autocomplete suggestions for partial search input.
package suggest

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"
)

// MinTermLength is the shortest trimmed input, in characters, that yields
// suggestions.
const MinTermLength = 3

// Kinds of corpus entries.
const (
	KindTitle = "title"
	KindSkill = "skill"
)

// Term is one corpus entry.
type Term struct {
	Value      string
	Popularity int
	Kind       string
}

// Suggestion is a ranked match.
type Suggestion struct {
	Value      string
	Popularity int
	Kind       string
	Prefix     bool // the term matched at the start of Value
}

// Suggest returns corpus entries containing term, case-insensitively.
// Prefix matches rank first, then higher popularity, then alphabetical order.
// Entries differing only in case collapse into the most popular one. A limit
// of zero or less returns every match.
func Suggest(term string, corpus []Term, limit int) []Suggestion {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinTermLength {
		return nil
	}
	needle := strings.ToLower(term)

	best := make(map[string]int) // lowercased value -> index in matches
	var matches []Suggestion
	for _, t := range corpus {
		value := strings.TrimSpace(t.Value)
		lower := strings.ToLower(value)
		idx := strings.Index(lower, needle)
		if idx < 0 {
			continue
		}
		s := Suggestion{Value: value, Popularity: t.Popularity, Kind: t.Kind, Prefix: idx == 0}
		if i, ok := best[lower]; ok {
			if s.Popularity > matches[i].Popularity {
				matches[i] = s
			}
			continue
		}
		best[lower] = len(matches)
		matches = append(matches, s)
	}

	slices.SortFunc(matches, compare)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func compare(a, b Suggestion) int {
	if a.Prefix != b.Prefix {
		if a.Prefix {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.Popularity, a.Popularity); c != 0 {
		return c
	}
	if c := cmp.Compare(strings.ToLower(a.Value), strings.ToLower(b.Value)); c != 0 {
		return c
	}
	return cmp.Compare(a.Value, b.Value)
}

// Values returns the suggestion strings in rank order.
func Values(suggestions []Suggestion) []string {
	out := make([]string, len(suggestions))
	for i, s := range suggestions {
		out[i] = s.Value
	}
	return out
}
