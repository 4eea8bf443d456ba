package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAndDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
log:
  level: debug
  format: json
exam:
  defaultDuration: 25m
  durations:
    Full-length: 2h
    sprint: 90s
    broken: soon
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	durations, fallback := cfg.ExamDurations()
	if fallback != 25*time.Minute {
		t.Fatalf("expected 25m fallback, got %s", fallback)
	}
	if durations["full-length"] != 2*time.Hour {
		t.Fatalf("expected override, got %s", durations["full-length"])
	}
	if durations["topic-wise"] != DefaultTopicDuration {
		t.Fatalf("expected built-in topic-wise, got %s", durations["topic-wise"])
	}
	if durations["sprint"] != 90*time.Second {
		t.Fatalf("expected sprint 90s, got %s", durations["sprint"])
	}
	if _, ok := durations["broken"]; ok {
		t.Fatalf("unparsable duration should be ignored")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("nope", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on garbage, got %s", got)
	}
	if got := TTLDuration("3s", time.Minute); got != 3*time.Second {
		t.Fatalf("expected 3s, got %s", got)
	}
}

func TestBuiltInDurationsWithoutConfig(t *testing.T) {
	durations, fallback := Config{}.ExamDurations()
	if fallback != DefaultTopicDuration {
		t.Fatalf("expected 40m fallback, got %s", fallback)
	}
	if durations["full-length"] != DefaultFullLengthDuration {
		t.Fatalf("expected 180m full-length, got %s", durations["full-length"])
	}
	if _, ok := durations["Full-length"]; ok {
		t.Fatalf("keys should be lower-cased")
	}
}
