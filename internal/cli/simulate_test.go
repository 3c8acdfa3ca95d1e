package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/admit/internal/limiter"
	"github.com/SmitUplenchwar2687/admit/internal/recorder"
	"github.com/SmitUplenchwar2687/admit/internal/replay"
)

func writeTraceFixture(t *testing.T, arrivals ...replay.Arrival) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.json")
	if err := (replay.Trace{Arrivals: arrivals}).WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func simulateJSON(t *testing.T, args ...string) replay.Summary {
	t.Helper()
	out, err := execute(t, append([]string{"simulate", "--json"}, args...)...)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	var summary replay.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decoding summary: %v\n%s", err, out)
	}
	return summary
}

func TestSimulateCmd_BindingLimitShifts(t *testing.T) {
	burst := make([]replay.Arrival, 5)
	for i := range burst {
		burst[i] = replay.Arrival{Arg: "req"}
	}
	path := writeTraceFixture(t, burst...)

	for _, strategy := range []string{"poll", "serialized"} {
		t.Run(strategy, func(t *testing.T) {
			s := simulateJSON(t, "--file", path, "--limits", "2/300ms,3/600ms", "--strategy", strategy)
			if s.Admitted != 5 || s.Delayed != 3 {
				t.Errorf("admitted = %d, delayed = %d, want 5 and 3", s.Admitted, s.Delayed)
			}
			if s.MaxDelay != 600*time.Millisecond {
				t.Errorf("max delay = %s, want 600ms", s.MaxDelay)
			}
			if s.MeanDelay != 300*time.Millisecond {
				t.Errorf("mean delay = %s, want 300ms", s.MeanDelay)
			}
			for _, l := range s.Limits {
				if !l.OK {
					t.Errorf("limit %s exceeded: peak %d", l.Limit, l.Peak)
				}
			}
		})
	}
}

func TestSimulateCmd_Filter(t *testing.T) {
	path := writeTraceFixture(t,
		replay.Arrival{At: 0, Arg: "user-1"},
		replay.Arrival{At: 0, Arg: "user-2"},
		replay.Arrival{At: time.Second, Arg: "user-1"},
		replay.Arrival{At: 2 * time.Second, Arg: "user-1"},
	)

	s := simulateJSON(t, "--file", path, "--limits", "1/1h", "--args", "user-1", "--before", "2s")
	if s.TotalArrivals != 4 || s.Filtered != 2 {
		t.Errorf("total = %d, filtered = %d, want 4 and 2", s.TotalArrivals, s.Filtered)
	}
	if s.MaxDelay != time.Hour-time.Second {
		t.Errorf("max delay = %s, want 59m59s", s.MaxDelay)
	}
}

func TestSimulateCmd_FromRecords(t *testing.T) {
	rec := recorder.New(nil)
	for i, at := range []time.Duration{0, 0, 500 * time.Millisecond} {
		err := rec.Record(t.Context(), recorder.AdmissionRecord{
			Seq:         uint64(i + 1),
			Arg:         "caller",
			RequestedAt: epoch.Add(at),
			AdmittedAt:  epoch.Add(at),
			Outcome:     limiter.OutcomeOK,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "admissions.json")
	if err := rec.ExportFile(path); err != nil {
		t.Fatal(err)
	}

	s := simulateJSON(t, "--records", path, "--limits", "1/1s")
	if s.Admitted != 3 {
		t.Fatalf("admitted = %d, want 3", s.Admitted)
	}
	// Admissions at 0, 1s and 2s.
	if s.MaxDelay != 1500*time.Millisecond {
		t.Errorf("max delay = %s, want 1.5s", s.MaxDelay)
	}
	if s.Duration != 2*time.Second {
		t.Errorf("virtual duration = %s, want 2s", s.Duration)
	}
}

func TestSimulateCmd_Timeline(t *testing.T) {
	path := writeTraceFixture(t, replay.Arrival{Arg: "first"}, replay.Arrival{Arg: "second"})

	out, err := execute(t, "simulate", "--file", path, "--limits", "1/1m", "--timeline")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	for _, want := range []string{"=== admit simulate ===", "first", "second", "delay 1m0s", "binding 1/1m0s", "peak 1/1  ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSimulateCmd_InputFlags(t *testing.T) {
	if _, err := execute(t, "simulate"); err == nil {
		t.Error("expected error without --file or --records")
	}
	path := writeTraceFixture(t, replay.Arrival{Arg: "x"})
	if _, err := execute(t, "simulate", "--file", path, "--records", path); err == nil {
		t.Error("expected error with both --file and --records")
	}
	if _, err := execute(t, "simulate", "--file", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing trace")
	}
}

func TestSimulateCmd_ConfigLimits(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "admit.yaml")
	writeConfigFixture(t, cfgPath, "limits:\n  - max: 1\n    window: 10s\n")
	path := writeTraceFixture(t, replay.Arrival{}, replay.Arrival{})

	s := simulateJSON(t, "--file", path, "--config", cfgPath)
	if s.MaxDelay != 10*time.Second {
		t.Errorf("max delay = %s, want 10s from config limits", s.MaxDelay)
	}
}
