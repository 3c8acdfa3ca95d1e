package recorder

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/admit/internal/limiter"
)

// Sink receives every record as it is captured.
type Sink interface {
	Write(ctx context.Context, rec AdmissionRecord) error
	Close() error
}

// Recorder captures admission records for export and audit.
// Thread-safe for concurrent use.
//
// Only the in-memory log is guarded by mu. Stream and sink writes happen
// outside it so that concurrent callers never queue behind each other's I/O;
// sinks must therefore be safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []AdmissionRecord

	// wmu serializes lines on writer, which is a plain io.Writer.
	wmu    sync.Mutex
	writer io.Writer // optional: stream records as they arrive

	sinks []Sink // fixed after New
	log   *zap.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithSink forwards every record to s.
func WithSink(s Sink) Option {
	return func(r *Recorder) { r.sinks = append(r.sinks, s) }
}

// WithLogger reports sink failures that happen on the observer path.
func WithLogger(log *zap.Logger) Option {
	return func(r *Recorder) { r.log = log }
}

// New creates a new Recorder. If w is non-nil, records are also
// written to w as newline-delimited JSON as they arrive.
func New(w io.Writer, opts ...Option) *Recorder {
	r := &Recorder{
		writer: w,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record captures a single admission record.
func (r *Recorder) Record(ctx context.Context, rec AdmissionRecord) error {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()

	var group errs.Group
	if r.writer != nil {
		group.Add(r.stream(rec))
	}
	for _, s := range r.sinks {
		group.Add(s.Write(ctx, rec))
	}
	return group.Err()
}

func (r *Recorder) stream(rec AdmissionRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	r.wmu.Lock()
	defer r.wmu.Unlock()
	_, err = r.writer.Write(line)
	return err
}

// ObserveAdmission lets a Recorder be passed to limiter.WithObserver.
// Sink errors cannot reach the caller here, so they are logged.
func (r *Recorder) ObserveAdmission(e limiter.Event) {
	rec := FromEvent(e)
	if err := r.Record(context.Background(), rec); err != nil {
		r.log.Warn("recording admission", zap.String("id", rec.ID), zap.Error(err))
	}
}

// Records returns a copy of all recorded admissions.
func (r *Recorder) Records() []AdmissionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]AdmissionRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of recorded items.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// ExportJSON writes all records to the given writer as a JSON array.
func (r *Recorder) ExportJSON(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.records)
}

// ExportFile writes all records to a file as a JSON array.
func (r *Recorder) ExportFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, f.Close()) }()
	return r.ExportJSON(f)
}

// Close closes every sink.
func (r *Recorder) Close() error {
	var group errs.Group
	for _, s := range r.sinks {
		group.Add(s.Close())
	}
	return group.Err()
}

// LoadJSON reads admission records from a JSON array.
func LoadJSON(r io.Reader) ([]AdmissionRecord, error) {
	var records []AdmissionRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}
