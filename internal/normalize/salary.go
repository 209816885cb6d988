package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/amishk599/jobdeck/internal/model"
)

var (
	// A multiplier must end its word, so "5 months" has no m suffix while
	// "120000USD" still reads as an amount.
	salaryAmountRegex = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)(?:\s*([kKmM])\b)?`)
	// Matched against upper-cased text; codes may touch digits ("120000USD").
	salaryCurrencyRegex = regexp.MustCompile(`(?:^|[^A-Z])(USD|EUR|GBP|CAD|AUD|INR|JPY|CHF|SGD|NZD)(?:[^A-Z]|$)`)
)

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"US$", "USD"},
	{"C$", "CAD"},
	{"A$", "AUD"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"₹", "INR"},
	{"¥", "JPY"},
}

// resolveSalary walks the salary encodings in order: structured object,
// flat min/max pair, free-text string, bare number.
func resolveSalary(data map[string]any) *model.Salary {
	currency := getString(data, "salary_currency", "salaryCurrency", "currency")
	estimated, _ := getBool(data, "salary_estimated", "salaryEstimated", "is_salary_estimated")

	if obj := getObject(data, "salary", "salary_range", "salaryRange"); obj != nil {
		min := getNumber(obj, "min", "min_value", "minValue", "minimum", "from")
		max := getNumber(obj, "max", "max_value", "maxValue", "maximum", "to")
		if min != nil || max != nil {
			s := &model.Salary{Min: min, Max: max, Currency: currency, Estimated: estimated}
			if c := getString(obj, "currency", "currency_code", "currencyCode"); c != "" {
				s.Currency = c
			}
			if e, ok := getBool(obj, "estimated", "is_estimated", "isEstimated"); ok {
				s.Estimated = e
			}
			return s
		}
	}

	min := getNumber(data, "salary_min", "salaryMin", "min_salary", "minSalary")
	max := getNumber(data, "salary_max", "salaryMax", "max_salary", "maxSalary")
	if min != nil || max != nil {
		return &model.Salary{Min: min, Max: max, Currency: currency, Estimated: estimated}
	}

	if text := getTextSalary(data); text != "" {
		s := parseSalaryText(text)
		if s.Currency == "" {
			s.Currency = currency
		}
		s.Estimated = estimated
		return s
	}

	if v := numberValue(data["salary"]); v != nil {
		return &model.Salary{Min: v, Max: v, Currency: currency, Estimated: estimated}
	}
	return nil
}

func getTextSalary(data map[string]any) string {
	for _, key := range []string{"salary", "salary_range", "salaryRange", "salary_text", "salaryText"} {
		if s, ok := data[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// parseSalaryText extracts a range from strings such as "$80,000 - $120,000",
// "80k-120k", "Up to €50k" or "From 60K GBP". Text always keeps the original
// string; Min and Max stay nil when no amount is found.
func parseSalaryText(text string) *model.Salary {
	s := &model.Salary{Text: text, Currency: detectCurrency(text)}

	matches := salaryAmountRegex.FindAllStringSubmatch(text, 2)
	var amounts []float64
	var suffixes []string
	for _, m := range matches {
		n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		amounts = append(amounts, n)
		suffixes = append(suffixes, strings.ToLower(m[2]))
	}
	if len(amounts) == 0 {
		return s
	}

	// "80-120k": the trailing multiplier applies to both bounds, and in
	// "80k-120" the leading one does. "80k-120000" is already scaled.
	if len(amounts) == 2 && amounts[0] <= amounts[1] {
		switch {
		case suffixes[0] == "" && suffixes[1] != "":
			suffixes[0] = suffixes[1]
		case suffixes[1] == "" && suffixes[0] != "" && amounts[1] < amounts[0]*multiplier(suffixes[0]):
			suffixes[1] = suffixes[0]
		}
	}
	for i := range amounts {
		amounts[i] *= multiplier(suffixes[i])
	}

	lower := strings.ToLower(text)
	switch {
	case len(amounts) == 2:
		lo, hi := amounts[0], amounts[1]
		if lo > hi {
			lo, hi = hi, lo
		}
		s.Min, s.Max = &lo, &hi
	case strings.Contains(lower, "up to"), strings.Contains(lower, "max"):
		s.Max = &amounts[0]
	case strings.Contains(lower, "from"), strings.Contains(lower, "+"), strings.Contains(lower, "min"):
		s.Min = &amounts[0]
	default:
		v := amounts[0]
		s.Min, s.Max = &amounts[0], &v
	}
	return s
}

func multiplier(suffix string) float64 {
	switch suffix {
	case "k":
		return 1_000
	case "m":
		return 1_000_000
	}
	return 1
}

func detectCurrency(text string) string {
	if m := salaryCurrencyRegex.FindStringSubmatch(strings.ToUpper(text)); m != nil {
		return m[1]
	}
	for _, cs := range currencySymbols {
		if strings.Contains(text, cs.symbol) {
			return cs.code
		}
	}
	return ""
}
