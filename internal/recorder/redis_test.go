package recorder

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	testcontainers "github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/SmitUplenchwar2687/admit/internal/limiter"
)

func newRedisSinkForTest(t *testing.T, stream string) (*RedisSink, *redis.Client) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := rediscontainer.Run(ctx, "redis:7.2-alpine")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("container mapped port: %v", err)
	}
	addr := net.JoinHostPort(host, port.Port())

	sink, err := NewRedisSink(ctx, &RedisConfig{Addr: addr, Stream: stream, MaxLen: 1000})
	if err != nil {
		t.Fatalf("NewRedisSink() error: %v", err)
	}
	t.Cleanup(func() { _ = sink.Close() })

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return sink, client
}

func TestRedisSink_AppendsToStream(t *testing.T) {
	sink, client := newRedisSinkForTest(t, "test:admissions")
	rec := New(nil, WithSink(sink))

	rec.Record(ctx, AdmissionRecord{
		ID: "a", Seq: 1, Arg: "x",
		RequestedAt: epoch, AdmittedAt: epoch.Add(20 * time.Millisecond),
		Wait: 20 * time.Millisecond, Rounds: 3, Binding: "10/3s",
		Outcome: limiter.OutcomeOK,
	})
	if err := rec.Record(ctx, AdmissionRecord{ID: "b", Seq: 2, RequestedAt: epoch, Outcome: limiter.OutcomeCanceled, Error: "context canceled"}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	n, err := client.XLen(ctx, "test:admissions").Result()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("XLEN = %d, want 2", n)
	}

	msgs, err := client.XRange(ctx, "test:admissions", "-", "+").Result()
	if err != nil {
		t.Fatal(err)
	}
	first := msgs[0].Values
	if first["id"] != "a" || first["binding"] != "10/3s" || first["wait_ms"] != "20" || first["outcome"] != "ok" {
		t.Errorf("unexpected first entry: %v", first)
	}
	second := msgs[1].Values
	if _, ok := second["admitted_at"]; ok {
		t.Error("canceled entry should not carry admitted_at")
	}
	if second["error"] != "context canceled" {
		t.Errorf("error = %v, want context canceled", second["error"])
	}
}

func TestRedisSink_CloseIdempotent(t *testing.T) {
	sink, _ := newRedisSinkForTest(t, "")
	if sink.Stream() != defaultRedisStream {
		t.Errorf("Stream() = %q, want %q", sink.Stream(), defaultRedisStream)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}

func TestNormalizeRedisConfig(t *testing.T) {
	if _, err := normalizeRedisConfig(nil); err == nil {
		t.Error("nil config should fail")
	}
	if _, err := normalizeRedisConfig(&RedisConfig{}); err == nil {
		t.Error("missing addr should fail")
	}

	conf, err := normalizeRedisConfig(&RedisConfig{Addr: "localhost:6379"})
	if err != nil {
		t.Fatal(err)
	}
	if conf.Stream != defaultRedisStream || conf.MaxLen != defaultRedisMaxLen || conf.DialTimeout != defaultRedisDialTimeout {
		t.Errorf("defaults not applied: %+v", conf)
	}
}
