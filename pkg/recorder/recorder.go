package recorder

import (
	"context"
	"io"
	"time"

	internalrecorder "github.com/SmitUplenchwar2687/admit/internal/recorder"
	"github.com/SmitUplenchwar2687/admit/pkg/limiter"
)

// AdmissionRecord is the audit entry for one Execute call.
type AdmissionRecord = internalrecorder.AdmissionRecord

// Recorder captures admission records for export and audit.
type Recorder = internalrecorder.Recorder

// Sink receives every record as it is captured.
type Sink = internalrecorder.Sink

// Option configures a Recorder.
type Option = internalrecorder.Option

// RedisConfig configures the Redis stream sink.
type RedisConfig = internalrecorder.RedisConfig

// RedisSink appends admission records to a Redis stream.
type RedisSink = internalrecorder.RedisSink

// LimitReport is the audit result for one limit.
type LimitReport = internalrecorder.LimitReport

var (
	WithSink   = internalrecorder.WithSink
	WithLogger = internalrecorder.WithLogger
)

// New creates a new Recorder.
func New(w io.Writer, opts ...Option) *Recorder {
	return internalrecorder.New(w, opts...)
}

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(ctx context.Context, cfg *RedisConfig) (*RedisSink, error) {
	return internalrecorder.NewRedisSink(ctx, cfg)
}

// FromEvent converts a coordinator event into a record.
func FromEvent(e limiter.Event) AdmissionRecord {
	return internalrecorder.FromEvent(e)
}

// LoadJSON reads admission records from a JSON array.
func LoadJSON(r io.Reader) ([]AdmissionRecord, error) {
	return internalrecorder.LoadJSON(r)
}

// MaxInWindow returns the most times inside any trailing window.
func MaxInWindow(times []time.Time, window time.Duration) int {
	return internalrecorder.MaxInWindow(times, window)
}

// Verify checks recorded admissions against limits.
func Verify(records []AdmissionRecord, limits []limiter.Limit) []LimitReport {
	return internalrecorder.Verify(records, limits)
}
