package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/admit/internal/config"
	"github.com/SmitUplenchwar2687/admit/internal/replay"
)

func writeConfigFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestGenerateTraceCmd(t *testing.T) {
	for _, pattern := range []string{"steady", "burst", "ramp"} {
		t.Run(pattern, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "trace.json")
			out, err := execute(t, "generate", "trace", "--output", path, "--count", "40",
				"--args", "3", "--duration", "10s", "--pattern", pattern, "--seed", "7")
			if err != nil {
				t.Fatalf("generate trace failed: %v", err)
			}
			if !strings.Contains(out, "Generated 40 arrivals") {
				t.Errorf("unexpected output: %s", out)
			}

			trace, err := replay.LoadTraceFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if len(trace.Arrivals) != 40 {
				t.Errorf("arrivals = %d, want 40", len(trace.Arrivals))
			}
			if trace.Span() > 10*time.Second {
				t.Errorf("span = %s, want within 10s", trace.Span())
			}
		})
	}
}

func TestGenerateTraceCmd_UnknownPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	if _, err := execute(t, "generate", "trace", "--output", path, "--pattern", "zigzag"); err == nil {
		t.Fatal("expected error for unknown pattern")
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("no file should be written for an unknown pattern")
	}
}

func TestGenerateConfigCmd(t *testing.T) {
	for _, name := range []string{"admit.json", "admit.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if _, err := execute(t, "generate", "config", "--output", path); err != nil {
				t.Fatalf("generate config failed: %v", err)
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				t.Fatalf("generated config should load: %v", err)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("generated config should be valid: %v", err)
			}
		})
	}
}
