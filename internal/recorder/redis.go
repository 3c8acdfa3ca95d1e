package recorder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisStream      = "admit:admissions"
	defaultRedisMaxLen      = 100000
	defaultRedisPoolSize    = 10
	defaultRedisMaxRetries  = 3
	defaultRedisDialTimeout = 5 * time.Second
)

// RedisConfig configures the Redis stream sink.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Stream      string
	MaxLen      int64 // approximate stream cap; older entries are trimmed
	PoolSize    int
	MaxRetries  int
	DialTimeout time.Duration
}

// RedisSink appends admission records to a Redis stream so that external
// auditors can follow admissions with XREAD. Window state is never stored.
type RedisSink struct {
	client redis.UniversalClient
	stream string
	maxLen int64

	closeOnce sync.Once
	closeErr  error
}

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(ctx context.Context, cfg *RedisConfig) (*RedisSink, error) {
	conf, err := normalizeRedisConfig(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:        conf.Addr,
		Password:    conf.Password,
		DB:          conf.DB,
		PoolSize:    conf.PoolSize,
		MaxRetries:  conf.MaxRetries,
		DialTimeout: conf.DialTimeout,
	})

	s := newRedisSink(client, conf)
	if err := pingWithRetry(ctx, client, conf.MaxRetries); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return s, nil
}

func newRedisSink(client redis.UniversalClient, conf *RedisConfig) *RedisSink {
	return &RedisSink{
		client: client,
		stream: conf.Stream,
		maxLen: conf.MaxLen,
	}
}

// Stream returns the stream key records are appended to.
func (s *RedisSink) Stream() string { return s.stream }

// Write appends rec to the stream.
func (s *RedisSink) Write(ctx context.Context, rec AdmissionRecord) error {
	values := map[string]interface{}{
		"id":           rec.ID,
		"coordinator":  rec.Coordinator,
		"seq":          strconv.FormatUint(rec.Seq, 10),
		"arg":          rec.Arg,
		"requested_at": rec.RequestedAt.UTC().Format(time.RFC3339Nano),
		"wait_ms":      strconv.FormatInt(rec.Wait.Milliseconds(), 10),
		"rounds":       strconv.Itoa(rec.Rounds),
		"outcome":      string(rec.Outcome),
	}
	if !rec.AdmittedAt.IsZero() {
		values["admitted_at"] = rec.AdmittedAt.UTC().Format(time.RFC3339Nano)
	}
	if rec.Binding != "" {
		values["binding"] = rec.Binding
	}
	if rec.Error != "" {
		values["error"] = rec.Error
	}

	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("appending to redis stream %q: %w", s.stream, err)
	}
	return nil
}

// Close releases Redis resources. It is idempotent.
func (s *RedisSink) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}

func pingWithRetry(ctx context.Context, client redis.UniversalClient, maxRetries int) error {
	attempts := maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	backoff := 100 * time.Millisecond
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := client.Ping(ctx).Err(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
	}

	if lastErr == nil {
		lastErr = errors.New("ping failed with unknown error")
	}
	return lastErr
}

func normalizeRedisConfig(cfg *RedisConfig) (*RedisConfig, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	conf := *cfg
	if conf.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if conf.Stream == "" {
		conf.Stream = defaultRedisStream
	}
	if conf.MaxLen <= 0 {
		conf.MaxLen = defaultRedisMaxLen
	}
	if conf.PoolSize <= 0 {
		conf.PoolSize = defaultRedisPoolSize
	}
	if conf.MaxRetries <= 0 {
		conf.MaxRetries = defaultRedisMaxRetries
	}
	if conf.DialTimeout <= 0 {
		conf.DialTimeout = defaultRedisDialTimeout
	}
	return &conf, nil
}
