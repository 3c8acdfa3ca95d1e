package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/zeebo/errs"

	"github.com/SmitUplenchwar2687/admit/internal/recorder"
)

// Arrival is one call in a trace: the argument it carries and when it
// arrives, as an offset from the start of the trace.
type Arrival struct {
	At  time.Duration
	Arg string
}

// rawArrival is the on-disk shape with a human-readable offset.
type rawArrival struct {
	At  string `json:"at"`
	Arg string `json:"arg,omitempty"`
}

func (a Arrival) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawArrival{At: a.At.String(), Arg: a.Arg})
}

func (a *Arrival) UnmarshalJSON(b []byte) error {
	var raw rawArrival
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	at, err := time.ParseDuration(raw.At)
	if err != nil {
		return fmt.Errorf("invalid arrival offset %q: %w", raw.At, err)
	}
	if at < 0 {
		return fmt.Errorf("arrival offset must not be negative, got %s", at)
	}
	*a = Arrival{At: at, Arg: raw.Arg}
	return nil
}

// Trace is a replayable sequence of arrivals.
type Trace struct {
	Arrivals []Arrival `json:"arrivals"`
}

// Sorted returns the arrivals ordered by offset. Arrivals sharing an offset
// keep their file order.
func (t Trace) Sorted() []Arrival {
	out := make([]Arrival, len(t.Arrivals))
	copy(out, t.Arrivals)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At < out[j].At })
	return out
}

// Span is the offset of the last arrival.
func (t Trace) Span() time.Duration {
	var span time.Duration
	for _, a := range t.Arrivals {
		if a.At > span {
			span = a.At
		}
	}
	return span
}

// FromRecords rebuilds a trace from recorded admissions, using each call's
// request time relative to the earliest one. Canceled calls are kept: they
// were real arrivals.
func FromRecords(records []recorder.AdmissionRecord) Trace {
	if len(records) == 0 {
		return Trace{}
	}
	first := records[0].RequestedAt
	for _, r := range records[1:] {
		if r.RequestedAt.Before(first) {
			first = r.RequestedAt
		}
	}

	t := Trace{Arrivals: make([]Arrival, len(records))}
	for i, r := range records {
		t.Arrivals[i] = Arrival{At: r.RequestedAt.Sub(first), Arg: r.Arg}
	}
	return t
}

// LoadTrace reads a JSON trace.
func LoadTrace(r io.Reader) (Trace, error) {
	var t Trace
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return Trace{}, fmt.Errorf("decoding trace: %w", err)
	}
	return t, nil
}

// LoadTraceFile reads a JSON trace from path.
func LoadTraceFile(path string) (Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return Trace{}, fmt.Errorf("opening trace: %w", err)
	}
	defer f.Close()
	return LoadTrace(f)
}

// WriteJSON writes t as indented JSON.
func (t Trace) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// WriteFile writes t as indented JSON to path.
func (t Trace) WriteFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	defer func() { err = errs.Combine(err, f.Close()) }()
	return t.WriteJSON(f)
}
