package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestServerCmd_ShutdownExportsRecords(t *testing.T) {
	dir := t.TempDir()
	recordPath := filepath.Join(dir, "admissions.json")
	streamPath := filepath.Join(dir, "admissions.ndjson")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{
		"server", "--addr", "127.0.0.1:0", "--limits", "5/1s",
		"--record", recordPath, "--record-stream", streamPath,
		"--env-file=", "--log-level=error",
	})
	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("server returned error on shutdown: %v", err)
	}

	if !strings.Contains(out.String(), "/dashboard/") {
		t.Errorf("startup banner missing dashboard URL:\n%s", out.String())
	}
	for _, path := range []string{recordPath, streamPath} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s should exist after shutdown: %v", filepath.Base(path), err)
		}
	}
}

func TestServerCmd_InvalidLimits(t *testing.T) {
	if _, err := execute(t, "server", "--addr", "127.0.0.1:0", "--limits", "0/1s"); err == nil {
		t.Fatal("expected error for invalid limits")
	}
}

func TestServerCmd_RedisUnreachable(t *testing.T) {
	_, err := execute(t, "server", "--addr", "127.0.0.1:0",
		"--redis-host", "127.0.0.1:1", "--redis-max-retries", "1", "--redis-dial-timeout", "100ms")
	if err == nil {
		t.Fatal("expected error when redis is unreachable")
	}
}
