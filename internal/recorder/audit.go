package recorder

import (
	"fmt"
	"sort"
	"time"

	"github.com/SmitUplenchwar2687/admit/internal/limiter"
)

// LimitReport is the audit result for one limit.
type LimitReport struct {
	Limit string `json:"limit"`
	Max   int    `json:"max"`
	Peak  int    `json:"peak"` // most admissions seen inside any trailing window
	OK    bool   `json:"ok"`
}

// MaxInWindow returns the largest number of times falling inside any
// trailing interval (t-window, t]. times need not be sorted.
func MaxInWindow(times []time.Time, window time.Duration) int {
	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	peak, lo := 0, 0
	for hi := range sorted {
		for sorted[hi].Sub(sorted[lo]) >= window {
			lo++
		}
		if n := hi - lo + 1; n > peak {
			peak = n
		}
	}
	return peak
}

// Verify checks the recorded admissions of one coordinator against limits.
func Verify(records []AdmissionRecord, limits []limiter.Limit) []LimitReport {
	var admitted []time.Time
	for _, rec := range records {
		if rec.Admitted() {
			admitted = append(admitted, rec.AdmittedAt)
		}
	}

	reports := make([]LimitReport, len(limits))
	for i, l := range limits {
		peak := MaxInWindow(admitted, l.Window())
		reports[i] = LimitReport{
			Limit: l.String(),
			Max:   l.MaxCount(),
			Peak:  peak,
			OK:    peak <= l.MaxCount(),
		}
	}
	return reports
}

// CheckReports returns an error naming the first violated limit.
func CheckReports(reports []LimitReport) error {
	for _, r := range reports {
		if !r.OK {
			return fmt.Errorf("limit %s exceeded: %d admissions inside one window", r.Limit, r.Peak)
		}
	}
	return nil
}
