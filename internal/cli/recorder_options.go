package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/admit/internal/config"
	"github.com/SmitUplenchwar2687/admit/internal/recorder"
)

// recorderOptions select where admission records go besides memory.
type recorderOptions struct {
	path             string
	redisHost        string
	redisPort        int
	redisPassword    string
	redisDB          int
	redisStream      string
	redisMaxLen      int64
	redisPoolSize    int
	redisMaxRetries  int
	redisDialTimeout time.Duration
}

func (o *recorderOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.path, "record-stream", "", "append every admission record to this NDJSON file")
	cmd.Flags().StringVar(&o.redisHost, "redis-host", "", "redis host (or host:port) for the admission stream; empty disables")
	cmd.Flags().IntVar(&o.redisPort, "redis-port", 6379, "redis port")
	cmd.Flags().StringVar(&o.redisPassword, "redis-password", "", "redis password")
	cmd.Flags().IntVar(&o.redisDB, "redis-db", 0, "redis database index")
	cmd.Flags().StringVar(&o.redisStream, "redis-stream", "admit:admissions", "redis stream key")
	cmd.Flags().Int64Var(&o.redisMaxLen, "redis-max-len", 100000, "approximate redis stream length cap")
	cmd.Flags().IntVar(&o.redisPoolSize, "redis-pool-size", 10, "redis connection pool size")
	cmd.Flags().IntVar(&o.redisMaxRetries, "redis-max-retries", 3, "redis max retries")
	cmd.Flags().DurationVar(&o.redisDialTimeout, "redis-dial-timeout", 5*time.Second, "redis dial timeout")
}

func (o *recorderOptions) applyConfigIfUnset(cmd *cobra.Command, cfg *config.RecorderConfig) {
	if cfg == nil {
		return
	}

	if !cmd.Flags().Changed("record-stream") {
		o.path = cfg.Path
	}
	if !cmd.Flags().Changed("redis-host") && cfg.Redis.Addr != "" {
		o.redisHost = cfg.Redis.Addr
	}
	if !cmd.Flags().Changed("redis-password") {
		o.redisPassword = cfg.Redis.Password
	}
	if !cmd.Flags().Changed("redis-db") {
		o.redisDB = cfg.Redis.DB
	}
	if !cmd.Flags().Changed("redis-stream") && cfg.Redis.Stream != "" {
		o.redisStream = cfg.Redis.Stream
	}
	if !cmd.Flags().Changed("redis-max-len") && cfg.Redis.MaxLen > 0 {
		o.redisMaxLen = cfg.Redis.MaxLen
	}
}

func (o *recorderOptions) normalize() error {
	if o.redisHost == "" {
		return nil
	}

	host, port, err := normalizeRedisHostPort(o.redisHost, o.redisPort)
	if err != nil {
		return err
	}
	o.redisHost = host
	o.redisPort = port
	return nil
}

func (o *recorderOptions) redisConfig() *recorder.RedisConfig {
	if o.redisHost == "" {
		return nil
	}
	return &recorder.RedisConfig{
		Addr:        net.JoinHostPort(o.redisHost, strconv.Itoa(o.redisPort)),
		Password:    o.redisPassword,
		DB:          o.redisDB,
		Stream:      o.redisStream,
		MaxLen:      o.redisMaxLen,
		PoolSize:    o.redisPoolSize,
		MaxRetries:  o.redisMaxRetries,
		DialTimeout: o.redisDialTimeout,
	}
}

// open builds the recorder. The returned close func closes the sinks and
// the stream file.
func (o *recorderOptions) open(ctx context.Context, log *zap.Logger) (*recorder.Recorder, func() error, error) {
	if err := o.normalize(); err != nil {
		return nil, nil, err
	}

	var (
		file *os.File
		sink recorder.Sink
		opts = []recorder.Option{recorder.WithLogger(log)}
	)
	if rc := o.redisConfig(); rc != nil {
		var err error
		if sink, err = openRedisSink(ctx, rc); err != nil {
			return nil, nil, err
		}
		log.Info("streaming admissions to redis", zap.String("addr", rc.Addr), zap.String("stream", rc.Stream))
		opts = append(opts, recorder.WithSink(sink))
	}
	if o.path != "" {
		f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			err = fmt.Errorf("opening record stream: %w", err)
			if sink != nil {
				err = errs.Combine(err, sink.Close())
			}
			return nil, nil, err
		}
		file = f
		log.Info("streaming admissions to file", zap.String("path", o.path))
	}

	var rec *recorder.Recorder
	if file != nil {
		rec = recorder.New(file, opts...)
	} else {
		rec = recorder.New(nil, opts...)
	}
	closeFn := func() error {
		err := rec.Close()
		if file != nil {
			err = errs.Combine(err, file.Close())
		}
		return err
	}
	return rec, closeFn, nil
}

// openRedisSink connects the Redis stream sink. Tests replace it.
var openRedisSink = func(ctx context.Context, cfg *recorder.RedisConfig) (recorder.Sink, error) {
	return recorder.NewRedisSink(ctx, cfg)
}

func normalizeRedisHostPort(host string, port int) (string, int, error) {
	if strings.Contains(host, ":") {
		h, p, err := net.SplitHostPort(host)
		if err != nil {
			return "", 0, fmt.Errorf("invalid --redis-host value %q: %w", host, err)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid redis port in --redis-host %q: %w", host, err)
		}
		host = h
		port = n
	}

	if host == "" {
		return "", 0, fmt.Errorf("redis host cannot be empty")
	}
	if port <= 0 {
		return "", 0, fmt.Errorf("redis port must be positive, got %d", port)
	}

	return host, port, nil
}
