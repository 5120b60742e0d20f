package textutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

var pointsRegex = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParsePoints extracts a point value from listing cell text.
// The source renders values like "100", "1,000.0" or "50 pts",
// so thousands separators and trailing unit text are tolerated.
func ParsePoints(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	match := pointsRegex.FindString(cleaned)
	if match == "" {
		return 0, fmt.Errorf("no numeric value in %q", raw)
	}
	points, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parse points %q: %w", raw, err)
	}
	if points < 0 {
		return 0, fmt.Errorf("negative points %v in %q", points, raw)
	}
	return points, nil
}
