package recorder

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SmitUplenchwar2687/admit/internal/limiter"
)

// AdmissionRecord is the audit entry for one Execute call.
type AdmissionRecord struct {
	ID          string          `json:"id"`
	Coordinator string          `json:"coordinator,omitempty"`
	Seq         uint64          `json:"seq"`
	Arg         string          `json:"arg,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
	AdmittedAt  time.Time       `json:"admitted_at,omitempty"`
	Wait        time.Duration   `json:"wait"`
	Rounds      int             `json:"rounds"`
	Binding     string          `json:"binding,omitempty"` // limit that delayed the call, "max/window"
	Outcome     limiter.Outcome `json:"outcome"`
	Error       string          `json:"error,omitempty"`
}

// Admitted reports whether the call passed admission.
func (r AdmissionRecord) Admitted() bool {
	return r.Outcome != limiter.OutcomeCanceled && !r.AdmittedAt.IsZero()
}

// FromEvent converts a coordinator event into a record with a fresh ID.
func FromEvent(e limiter.Event) AdmissionRecord {
	rec := AdmissionRecord{
		ID:          uuid.NewString(),
		Coordinator: e.Coordinator,
		Seq:         e.Seq,
		RequestedAt: e.RequestedAt,
		AdmittedAt:  e.AdmittedAt,
		Wait:        e.Wait,
		Rounds:      e.Rounds,
		Outcome:     e.Outcome,
	}
	if e.Arg != nil {
		rec.Arg = fmt.Sprint(e.Arg)
	}
	if e.Delayed() {
		rec.Binding = e.Binding.String()
	}
	if e.Err != nil {
		rec.Error = e.Err.Error()
	}
	return rec
}
