// Package duration parses the short-form auction durations users type,
// such as "5m" or "2h".
package duration

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Errors returned by Parse.
var (
	ErrUnknownUnit         = errors.New("unknown duration unit")
	ErrNonPositiveDuration = errors.New("duration must be positive")
)

// Parse converts text like "5m" (minutes) or "2h" (hours) into a Duration.
// The value must be a positive integer with no sign or decimals.
func Parse(text string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, text)
	}

	num, unit := s[:len(s)-1], s[len(s)-1]
	for i := 0; i < len(num); i++ {
		if num[i] < '0' || num[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, text)
		}
	}

	n, err := strconv.ParseInt(num, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, text)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNonPositiveDuration, text)
	}

	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, text)
	}
}
