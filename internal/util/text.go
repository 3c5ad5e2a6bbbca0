package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NormalizeSpaces collapses runs of whitespace, including non-breaking spaces.
func NormalizeSpaces(input string) string {
	s := strings.ReplaceAll(input, "\u00A0", " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// IsBlank treats whitespace-only cells and the "nan" placeholder as empty.
func IsBlank(input string) bool {
	s := strings.TrimSpace(input)
	return s == "" || strings.EqualFold(s, "nan")
}

func StringPtr(s string) *string {
	return &s
}

// OptionalString returns nil for blank cells and the trimmed value otherwise.
func OptionalString(input string) *string {
	if IsBlank(input) {
		return nil
	}
	return StringPtr(strings.TrimSpace(input))
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NormalizeName is the comparison key for fuzzy name lookups.
func NormalizeName(input string) string {
	return strings.ToLower(NormalizeSpaces(input))
}

func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	pairs := func(s string) []string {
		r := []rune(s)
		if len(r) < 2 {
			return nil
		}
		out := make([]string, 0, len(r)-1)
		for i := 0; i < len(r)-1; i++ {
			out = append(out, string(r[i:i+2]))
		}
		return out
	}

	aPairs := pairs(a)
	bPairs := pairs(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}
