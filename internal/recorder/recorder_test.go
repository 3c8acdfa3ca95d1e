package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/SmitUplenchwar2687/admit/internal/limiter"
)

var (
	epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx   = context.Background()
)

func okRecord(seq uint64, admitted time.Time) AdmissionRecord {
	return AdmissionRecord{
		ID:          "rec",
		Seq:         seq,
		RequestedAt: admitted,
		AdmittedAt:  admitted,
		Rounds:      1,
		Outcome:     limiter.OutcomeOK,
	}
}

type memSink struct {
	mu      sync.Mutex
	records []AdmissionRecord
	err     error
	closed  bool
}

func (s *memSink) Write(_ context.Context, rec AdmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func (s *memSink) Close() error {
	s.closed = true
	return s.err
}

func TestRecorder_Record(t *testing.T) {
	rec := New(nil)

	if err := rec.Record(ctx, okRecord(1, epoch)); err != nil {
		t.Fatal(err)
	}
	if rec.Len() != 1 {
		t.Errorf("Len() = %d, want 1", rec.Len())
	}
}

func TestRecorder_Records_ReturnsCopy(t *testing.T) {
	rec := New(nil)
	rec.Record(ctx, okRecord(1, epoch))

	records := rec.Records()
	records[0].Arg = "mutated"

	if rec.Records()[0].Arg != "" {
		t.Error("Records() should return a copy, original was mutated")
	}
}

func TestRecorder_StreamToWriter(t *testing.T) {
	var buf bytes.Buffer
	rec := New(&buf)

	rec.Record(ctx, okRecord(1, epoch))
	rec.Record(ctx, okRecord(2, epoch.Add(time.Second)))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var r AdmissionRecord
	if err := json.Unmarshal(lines[1], &r); err != nil {
		t.Fatal(err)
	}
	if r.Seq != 2 {
		t.Errorf("second record seq = %d, want 2", r.Seq)
	}
}

func TestRecorder_SinksReceiveAndErrorsSurface(t *testing.T) {
	good := &memSink{}
	bad := &memSink{err: errors.New("sink down")}
	rec := New(nil, WithSink(good), WithSink(bad))

	err := rec.Record(ctx, okRecord(1, epoch))
	if err == nil {
		t.Fatal("expected sink error to surface")
	}
	if len(good.records) != 1 || len(bad.records) != 1 {
		t.Errorf("sinks got %d and %d records, want 1 each", len(good.records), len(bad.records))
	}
	if rec.Len() != 1 {
		t.Errorf("record should be kept in memory despite sink error, Len() = %d", rec.Len())
	}

	if err := rec.Close(); err == nil {
		t.Error("Close() should report the failing sink")
	}
	if !good.closed || !bad.closed {
		t.Error("Close() should close every sink")
	}
}

func TestRecorder_ObserveAdmission(t *testing.T) {
	sink := &memSink{err: errors.New("ignored")}
	rec := New(nil, WithSink(sink), WithLogger(zaptest.NewLogger(t)))
	limit := limiter.MustLimit(2, time.Second)

	rec.ObserveAdmission(limiter.Event{
		Coordinator: "api",
		Seq:         7,
		Arg:         42,
		RequestedAt: epoch,
		AdmittedAt:  epoch.Add(300 * time.Millisecond),
		Wait:        300 * time.Millisecond,
		Rounds:      31,
		Binding:     limit,
		Outcome:     limiter.OutcomeError,
		Err:         errors.New("upstream 503"),
	})

	got := rec.Records()
	if len(got) != 1 {
		t.Fatalf("Len() = %d, want 1", len(got))
	}
	r := got[0]
	if r.ID == "" {
		t.Error("record should get an ID")
	}
	if r.Arg != "42" || r.Binding != "2/1s" || r.Error != "upstream 503" || r.Seq != 7 {
		t.Errorf("unexpected record: %+v", r)
	}
	if !r.Admitted() {
		t.Error("errored action was still admitted")
	}
}

func TestFromEvent_Canceled(t *testing.T) {
	r := FromEvent(limiter.Event{Outcome: limiter.OutcomeCanceled, Err: context.Canceled, RequestedAt: epoch})
	if r.Admitted() {
		t.Error("canceled call must not count as admitted")
	}
	if r.Binding != "" {
		t.Errorf("Binding = %q, want empty", r.Binding)
	}
}

func TestRecorder_ExportFileAndLoad(t *testing.T) {
	rec := New(nil)
	rec.Record(ctx, okRecord(1, epoch))
	rec.Record(ctx, okRecord(2, epoch.Add(5*time.Second)))

	path := filepath.Join(t.TempDir(), "admissions.json")
	if err := rec.ExportFile(path); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	loaded, err := LoadJSON(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d records, want 2", len(loaded))
	}
	if !loaded[1].AdmittedAt.Equal(epoch.Add(5 * time.Second)) {
		t.Errorf("admitted_at not preserved: %v", loaded[1].AdmittedAt)
	}
}

func TestRecorder_ConcurrentAccess(t *testing.T) {
	rec := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec.Record(ctx, okRecord(uint64(i), epoch))
		}(i)
	}
	wg.Wait()

	if rec.Len() != 100 {
		t.Errorf("Len() = %d, want 100", rec.Len())
	}
}

// slowSink takes a fixed time per write, like a remote stream under load.
type slowSink struct {
	delay time.Duration
	n     atomic.Int32
}

func (s *slowSink) Write(context.Context, AdmissionRecord) error {
	time.Sleep(s.delay)
	s.n.Add(1)
	return nil
}

func (s *slowSink) Close() error { return nil }

func TestRecorder_SlowSinkDoesNotSerializeCallers(t *testing.T) {
	sink := &slowSink{delay: 50 * time.Millisecond}
	var stream bytes.Buffer
	rec := New(&stream, WithSink(sink))

	c, err := limiter.New(func(context.Context, int) (int, error) { return 0, nil },
		[]limiter.Limit{limiter.MustLimit(100, time.Second)},
		limiter.WithObserver(rec))
	if err != nil {
		t.Fatal(err)
	}

	const callers = 10
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := c.Execute(ctx, i); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// Serialized sink writes would take callers*delay = 500ms.
	if elapsed > 250*time.Millisecond {
		t.Errorf("%d concurrent calls took %s, sink writes should overlap", callers, elapsed)
	}
	if got := sink.n.Load(); got != callers {
		t.Errorf("sink saw %d records, want %d", got, callers)
	}
	if rec.Len() != callers {
		t.Errorf("Len() = %d, want %d", rec.Len(), callers)
	}
	if lines := bytes.Count(stream.Bytes(), []byte("\n")); lines != callers {
		t.Errorf("stream has %d lines, want %d", lines, callers)
	}
}
