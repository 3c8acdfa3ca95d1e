package replay

import (
	"strings"
	"time"
)

// Filter defines criteria for selecting arrivals during a simulation.
type Filter struct {
	Args   []string      // Only include args containing one of these (empty = all)
	After  time.Duration // Only include arrivals after this offset (zero = no limit)
	Before time.Duration // Only include arrivals before this offset (zero = no limit)
}

// Match returns true if the arrival passes the filter.
func (f *Filter) Match(a Arrival) bool {
	if len(f.Args) > 0 && !matchArg(f.Args, a.Arg) {
		return false
	}
	if f.After > 0 && a.At <= f.After {
		return false
	}
	if f.Before > 0 && a.At >= f.Before {
		return false
	}
	return true
}

func matchArg(patterns []string, arg string) bool {
	for _, p := range patterns {
		if strings.Contains(arg, p) {
			return true
		}
	}
	return false
}
