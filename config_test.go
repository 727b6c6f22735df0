package main

import (
	"flag"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fmcore.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Channel != 1 || cfg.SampleRate != 24000 || cfg.BlockSize != 256 || cfg.Polyphony != 8 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
channel: omni
sample_rate: "48000"
block_size: 128
output: WAV
wav: out.wav
banks:
  - rom1a.syx
  - rom1b.syx
debug: true
`)
	cfg := DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Channel != Omni {
		t.Fatalf("channel=%d want omni", cfg.Channel)
	}
	if cfg.SampleRate != 48000 || cfg.BlockSize != 128 {
		t.Fatalf("rate=%d block=%d", cfg.SampleRate, cfg.BlockSize)
	}
	if cfg.Output != OutputWAV || cfg.WAVPath != "out.wav" || !cfg.Debug {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !slices.Equal(cfg.Banks, []string{"rom1a.syx", "rom1b.syx"}) {
		t.Fatalf("banks=%v", cfg.Banks)
	}
	if cfg.Polyphony != 8 {
		t.Fatalf("polyphony=%d, unset keys must keep their default", cfg.Polyphony)
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"channel: 17\n", "out of range"},
		{"channel: nine\n", "channel"},
		{"voices: 3\n", "unknown key"},
		{"block_size: [1, 2]\n", "block_size"},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		err := cfg.LoadFile(writeConfig(t, tt.body))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%q: err=%v want containing %q", tt.body, err, tt.want)
		}
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "channel: 3\nsample_rate: 48000\npolyphony: 4\n")
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := loadConfig(fs, []string{"-config", path, "-channel", "omni", "-polyphony", "16", "-output", "none"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Channel != Omni || cfg.Polyphony != 16 || cfg.Output != OutputNone {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.SampleRate != 48000 {
		t.Fatalf("rate=%d, file value lost", cfg.SampleRate)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 0
	cfg.Output = "speaker"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("invalid config accepted")
	}
	for _, want := range []string{"sample rate", "unknown output"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("err=%v, want it to mention %q", err, want)
		}
	}

	cfg = DefaultConfig()
	cfg.Output = OutputWAV
	if err := cfg.Validate(); err == nil {
		t.Fatalf("wav output without a file accepted")
	}
}
