// Package engagement turns human-readable social counts ("1.2K", "3M", "42")
// into integers. Everything here is pure.
package engagement

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/abelbrown/feedkeeper/internal/model"
)

// ParseCount parses a count label. Returns 0 for absent or unparseable input.
//
// A leading decimal number may be followed by K (thousands) or M (millions),
// case-insensitive, optionally separated by a space. Thousands separators are
// ignored. Without a suffix only the integer part counts.
func ParseCount(text string) int {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}

	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	num := s[:end]
	if num == "" || num == "." {
		return 0
	}

	rest := strings.TrimLeftFunc(s[end:], unicode.IsSpace)
	mult := 0.0
	if rest != "" {
		switch rest[0] {
		case 'K', 'k':
			mult = 1_000
		case 'M', 'm':
			mult = 1_000_000
		}
		// "12 more" must not read as 12M: the suffix has to stand alone.
		if mult != 0 && len(rest) > 1 && isLetter(rest[1]) {
			mult = 0
		}
	}

	if mult != 0 {
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0
		}
		return clamp(math.Round(f * mult))
	}

	intPart, _, _ := strings.Cut(num, ".")
	if intPart == "" {
		return 0
	}
	n, err := strconv.Atoi(intPart)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Parse normalizes the three raw labels of a post into an Engagement.
func Parse(likes, comments, shares string) model.Engagement {
	return model.NewEngagement(ParseCount(likes), ParseCount(comments), ParseCount(shares))
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func clamp(f float64) int {
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
