package limiter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidArgument marks construction-time configuration errors.
var ErrInvalidArgument = errors.New("invalid argument")

// Limit is one sliding-window constraint: at most MaxCount admissions in any
// trailing Window. The zero value is invalid; build limits with NewLimit.
type Limit struct {
	maxCount int
	window   time.Duration
}

// NewLimit validates and returns a Limit.
func NewLimit(maxCount int, window time.Duration) (Limit, error) {
	if maxCount <= 0 {
		return Limit{}, fmt.Errorf("%w: max count must be positive, got %d", ErrInvalidArgument, maxCount)
	}
	if window <= 0 {
		return Limit{}, fmt.Errorf("%w: window must be positive, got %s", ErrInvalidArgument, window)
	}
	return Limit{maxCount: maxCount, window: window}, nil
}

// MustLimit is like NewLimit but panics on invalid input.
// Intended for package-level declarations and tests.
func MustLimit(maxCount int, window time.Duration) Limit {
	l, err := NewLimit(maxCount, window)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Limit) MaxCount() int { return l.maxCount }

func (l Limit) Window() time.Duration { return l.window }

// Valid reports whether l was built through NewLimit.
func (l Limit) Valid() bool {
	return l.maxCount > 0 && l.window > 0
}

// String renders the compact "max/window" form accepted by ParseLimit.
func (l Limit) String() string {
	return strconv.Itoa(l.maxCount) + "/" + l.window.String()
}

// ParseLimit parses "max/window", e.g. "10/3s" or "1000/24h".
func ParseLimit(s string) (Limit, error) {
	count, window, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Limit{}, fmt.Errorf("%w: limit %q must look like max/window", ErrInvalidArgument, s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil {
		return Limit{}, fmt.Errorf("%w: limit %q: parsing max count: %v", ErrInvalidArgument, s, err)
	}
	d, err := time.ParseDuration(strings.TrimSpace(window))
	if err != nil {
		return Limit{}, fmt.Errorf("%w: limit %q: parsing window: %v", ErrInvalidArgument, s, err)
	}
	return NewLimit(n, d)
}

// ParseLimits parses a comma-separated list of limits.
func ParseLimits(s string) ([]Limit, error) {
	var limits []Limit
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		l, err := ParseLimit(part)
		if err != nil {
			return nil, err
		}
		limits = append(limits, l)
	}
	if len(limits) == 0 {
		return nil, fmt.Errorf("%w: at least one limit is required", ErrInvalidArgument)
	}
	return limits, nil
}

// FormatLimits is the inverse of ParseLimits.
func FormatLimits(limits []Limit) string {
	parts := make([]string, len(limits))
	for i, l := range limits {
		parts[i] = l.String()
	}
	return strings.Join(parts, ",")
}
