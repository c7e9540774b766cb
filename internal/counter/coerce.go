package counter

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// digitSeparators are stripped from string counts, e.g. "1,234".
var digitSeparators = strings.NewReplacer(",", "", "_", "", " ", "", "\u00a0", "", "\u202f", "")

// Coerce converts a decoded JSON value into a non-negative count.
// Absent, null, boolean, negative and non-numeric values yield 0, and
// values beyond math.MaxInt saturate.
func Coerce(v any) int {
	switch n := v.(type) {
	case json.Number:
		return fromString(n.String())
	case float64:
		return fromFloat(n)
	case int:
		return clamp(int64(n))
	case int64:
		return clamp(n)
	case string:
		i, err := strconv.ParseInt(digitSeparators.Replace(strings.TrimSpace(n)), 10, 64)
		if err != nil {
			return 0
		}
		return clamp(i)
	}
	return 0
}

// fromString parses a JSON number literal, truncating fractions.
func fromString(s string) int {
	if s == "" {
		return 0
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return clamp(i)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return fromFloat(f)
}

func fromFloat(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f >= float64(math.MaxInt) {
		return math.MaxInt
	}
	return int(f)
}

func clamp(i int64) int {
	if i <= 0 {
		return 0
	}
	if i > int64(math.MaxInt) {
		return math.MaxInt
	}
	return int(i)
}
