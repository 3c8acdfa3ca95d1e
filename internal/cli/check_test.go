package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SmitUplenchwar2687/admit/internal/config"
)

func TestCheckCmd_Defaults(t *testing.T) {
	out, err := execute(t, "check")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	for _, want := range []string{"Configuration OK", "10/3s", "100/1m0s", "1000/24h0m0s", "Strategy:      poll", "Metrics:       /metrics"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckCmd_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admit.yaml")
	writeConfigFixture(t, path, `
limits:
  - max: 5
    window: 1s
admission:
  strategy: serialized
recorder:
  redis:
    addr: redis:6379
    password: hunter2
metrics:
  enabled: false
`)

	out, err := execute(t, "check", "--config", path, "--json")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Error("redis password must not be printed")
	}

	var cfg config.Config
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("decoding config: %v\n%s", err, out)
	}
	if len(cfg.Limits) != 1 || cfg.Limits[0].Max != 5 {
		t.Errorf("limits = %+v", cfg.Limits)
	}
	if cfg.Admission.Strategy != "serialized" || cfg.Metrics.Enabled {
		t.Errorf("config = %+v", cfg)
	}
}

func TestCheckCmd_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admit.json")
	writeConfigFixture(t, path, `{ "admission": { "strategy": "fifo" } }`)

	if _, err := execute(t, "check", "--config", path); err == nil {
		t.Fatal("expected validation error")
	}
}
