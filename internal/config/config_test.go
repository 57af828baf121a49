package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Memory.ShortTermCap != 10 || cfg.Memory.FactCap != 50 {
		t.Fatalf("memory defaults: %+v", cfg.Memory)
	}
	if cfg.Audio.MinSamples != 1600 || cfg.Audio.SettleDelayMs != 150 {
		t.Fatalf("audio defaults: %+v", cfg.Audio)
	}
	if cfg.Bus.Addr == "" {
		t.Fatal("bus addr must default")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Memory.ShortTermCap != 10 {
		t.Fatalf("expected defaults, got %+v", cfg.Memory)
	}
}

func TestLoadOverridesOnlyMentionedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "murmur.yaml")
	body := `
audio:
  preferred_device: "USB Microphone"
memory:
  fact_cap: 25
rate_limit:
  llm_per_minute: 5
integrations:
  disabled: [discord]
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.PreferredDevice != "USB Microphone" {
		t.Fatalf("device: %q", cfg.Audio.PreferredDevice)
	}
	if cfg.Memory.FactCap != 25 {
		t.Fatalf("fact cap: %d", cfg.Memory.FactCap)
	}
	if cfg.Memory.ShortTermCap != 10 {
		t.Fatal("unmentioned field must keep its default")
	}
	if cfg.RateLimit.LLMPerMinute != 5 {
		t.Fatalf("rate limit: %+v", cfg.RateLimit)
	}
	if len(cfg.Integrations.Disabled) != 1 || cfg.Integrations.Disabled[0] != "discord" {
		t.Fatalf("disabled: %v", cfg.Integrations.Disabled)
	}
}

func TestLoadBrokenFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("audio: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
