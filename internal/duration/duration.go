// Package duration parses the human-readable duration strings accepted by the
// annotation's timeout field ("30s", "500ms", "2m", bare "45") into a
// millisecond count, and renders millisecond counts back for display.
package duration

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Sentinel error kinds. Callers match them with errors.Is to distinguish a
// malformed magnitude from an unknown unit or an overflowing multiplication.
var (
	ErrEmpty         = errors.New("duration cannot be empty")
	ErrMissingNumber = errors.New("missing number")
	ErrInvalidNumber = errors.New("invalid number")
	ErrUnknownUnit   = errors.New("unknown duration unit")
	ErrOverflow      = errors.New("duration overflow")
	ErrZero          = errors.New("duration cannot be zero")
)

const maxMillis = math.MaxInt64

// Parse converts a duration string into milliseconds. The magnitude is a run
// of leading ASCII digits; the remainder is the unit, matched
// case-insensitively. A bare number defaults to seconds.
func Parse(text string) (int64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, ErrEmpty
	}

	split := len(s)
	for i, r := range s {
		if r < '0' || r > '9' {
			split = i
			break
		}
	}
	numStr := s[:split]
	unit := strings.TrimSpace(s[split:])

	if numStr == "" {
		return 0, fmt.Errorf("invalid duration %q: %w", s, ErrMissingNumber)
	}

	var num int64
	for _, r := range numStr {
		digit := int64(r - '0')
		if num > (maxMillis-digit)/10 {
			return 0, fmt.Errorf("invalid duration %q: %w", s, ErrInvalidNumber)
		}
		num = num*10 + digit
	}

	var multiplier int64
	switch strings.ToLower(unit) {
	case "s", "sec", "secs", "second", "seconds", "":
		multiplier = 1000
	case "ms", "milli", "millis", "millisecond", "milliseconds":
		multiplier = 1
	case "m", "min", "mins", "minute", "minutes":
		multiplier = 60 * 1000
	default:
		return 0, fmt.Errorf("%w %q: valid units are s, ms, m", ErrUnknownUnit, unit)
	}

	if num != 0 && num > maxMillis/multiplier {
		return 0, fmt.Errorf("duration %q: %w", s, ErrOverflow)
	}
	millis := num * multiplier

	if millis == 0 {
		return 0, fmt.Errorf("duration %q: %w", s, ErrZero)
	}

	return millis, nil
}

// Format renders a millisecond count for failure messages: whole positive
// seconds as "{n}s", everything else as "{n}ms". It is display-only and is
// never round-tripped through Parse.
func Format(millis int64) string {
	if millis >= 1000 && millis%1000 == 0 {
		return fmt.Sprintf("%ds", millis/1000)
	}
	return fmt.Sprintf("%dms", millis)
}
