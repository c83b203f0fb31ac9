package main

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/linuxmatters/normalize/internal/logging"
	"github.com/linuxmatters/normalize/internal/processor"
)

// isolate keeps the user's own config files out of the test
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func parse(t *testing.T, args ...string) (*CLI, error) {
	t.Helper()
	c := &CLI{}
	parser, err := kong.New(c, parserOptions()...)
	if err != nil {
		t.Fatalf("kong.New() error = %v", err)
	}
	_, err = parser.Parse(args)
	return c, err
}

func mustConfig(t *testing.T, args ...string) *processor.Config {
	t.Helper()
	c, err := parse(t, args...)
	if err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}
	cfg, err := c.runConfig(log.New(io.Discard))
	if err != nil {
		t.Fatalf("runConfig() error = %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	isolate(t)
	cfg := mustConfig(t, "a.wav")

	if cfg.Target != processor.DefaultTarget {
		t.Errorf("Target = %v, want %v", cfg.Target, processor.DefaultTarget)
	}
	if cfg.Mode != processor.ModeSingle || cfg.Peak || cfg.Compression || cfg.PrintOnly || cfg.GainSet {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Threshold != -1 || cfg.Jobs != 1 || cfg.ClipWarnThreshold != 0.001 {
		t.Errorf("Threshold %v, Jobs %d, ClipWarn %v", cfg.Threshold, cfg.Jobs, cfg.ClipWarnThreshold)
	}
	f := cfg.StreamFormat
	if f.SampleRate != 44100 || f.Channels != 2 || f.BitsPerSample != 16 {
		t.Errorf("StreamFormat = %v", f)
	}
}

func TestFlags(t *testing.T) {
	isolate(t)

	tests := []struct {
		name  string
		args  []string
		check func(*testing.T, *processor.Config)
	}{
		{
			name: "batch with compression",
			args: []string{"-b", "-c", "-t", "3", "--jobs", "4", "--backup", ".orig", "a.wav"},
			check: func(t *testing.T, cfg *processor.Config) {
				if cfg.Mode != processor.ModeBatch || !cfg.Compression || cfg.Threshold != 3 || cfg.Jobs != 4 || cfg.BackupSuffix != ".orig" {
					t.Errorf("got %+v", cfg)
				}
			},
		},
		{
			name: "mix print only",
			args: []string{"-m", "-n", "a.wav", "b.wav"},
			check: func(t *testing.T, cfg *processor.Config) {
				if cfg.Mode != processor.ModeMix || !cfg.PrintOnly {
					t.Errorf("got %+v", cfg)
				}
			},
		},
		{
			name: "explicit gain implies batch",
			args: []string{"-g", "6dB", "a.wav"},
			check: func(t *testing.T, cfg *processor.Config) {
				if !cfg.GainSet || cfg.Mode != processor.ModeBatch || cfg.GainDB != 6 {
					t.Errorf("got %+v", cfg)
				}
				if math.Abs(cfg.Gain-math.Pow(10, 6.0/20)) > 1e-12 {
					t.Errorf("Gain = %v", cfg.Gain)
				}
			},
		},
		{
			name: "amplitude in dBFS",
			args: []string{"--amplitude=-18dBFS", "a.wav"},
			check: func(t *testing.T, cfg *processor.Config) {
				if math.Abs(processor.LinearToDb(cfg.Target)+18) > 1e-9 {
					t.Errorf("Target = %v", cfg.Target)
				}
			},
		},
		{
			name: "peak",
			args: []string{"--peak", "a.wav"},
			check: func(t *testing.T, cfg *processor.Config) {
				if !cfg.Peak || cfg.Mode != processor.ModeSingle {
					t.Errorf("got %+v", cfg)
				}
			},
		},
		{
			name: "stdin format",
			args: []string{"--stdin-rate", "8000", "--stdin-channels", "1", "--stdin-bits", "8", "-"},
			check: func(t *testing.T, cfg *processor.Config) {
				f := cfg.StreamFormat
				if f.SampleRate != 8000 || f.Channels != 1 || f.BitsPerSample != 8 || f.FrameSize() != 1 {
					t.Errorf("StreamFormat = %v", f)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, mustConfig(t, tt.args...))
		})
	}
}

func TestConflictingFlags(t *testing.T) {
	dir := isolate(t)

	tests := [][]string{
		{"-m", "-b", "a.wav"},
		{"--peak", "-m", "a.wav"},
		{"--peak", "-b", "a.wav"},
		{"-c", "--clipping", "a.wav"},
		{"--jobs", "0", "a.wav"},
		{"--watch", dir, "-g", "2"},
		{"-a", "2", "a.wav"},
		{"-g", "-1", "a.wav"},
	}
	for _, args := range tests {
		if _, err := parse(t, args...); err == nil {
			t.Errorf("Parse(%v) succeeded, want error", args)
		}
	}
}

func TestBadStreamFormat(t *testing.T) {
	isolate(t)

	for _, args := range [][]string{
		{"--stdin-channels", "0", "-"},
		{"--stdin-bits", "40", "-"},
		{"--stdin-rate", "50", "-"},
	} {
		c, err := parse(t, args...)
		if err != nil {
			t.Fatalf("Parse(%v) error = %v", args, err)
		}
		if _, err := c.runConfig(nil); err == nil {
			t.Errorf("runConfig accepted %v", args)
		}
	}
}

func TestConfigFile(t *testing.T) {
	dir := isolate(t)

	if err := os.WriteFile(filepath.Join(dir, "normalize.toml"), []byte("batch = true\njobs = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := mustConfig(t, "a.wav")
	if cfg.Mode != processor.ModeBatch || cfg.Jobs != 3 {
		t.Errorf("working directory config not applied: %+v", cfg)
	}

	other := filepath.Join(dir, "other.toml")
	if err := os.WriteFile(other, []byte("compression = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg = mustConfig(t, "--config", other, "a.wav")
	if !cfg.Compression {
		t.Errorf("--config file not applied: %+v", cfg)
	}
}

func TestWriteReports(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "take.wav")

	s := &processor.Summary{
		Mode: processor.ModeSingle,
		Files: []*processor.FileResult{{
			Path:    path,
			Info:    &processor.SignalInfo{Level: 0.1, Peak: 0.5},
			Gain:    2.5,
			Applied: &processor.GainResult{Gain: 2.5, Samples: 100},
		}},
		Rejected: []*processor.FileResult{{Path: filepath.Join(dir, "missing", "gone.wav"), Err: os.ErrNotExist}},
	}

	var buf strings.Builder
	writeReports(s, processor.DefaultConfig(), time.Now(), log.New(&buf))

	b, err := os.ReadFile(logging.ReportPath(path))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(b), "Gain: +7.96 dB") {
		t.Errorf("unexpected report:\n%s", b)
	}
	if !strings.Contains(buf.String(), "failed to write report") {
		t.Errorf("report failure not logged: %q", buf.String())
	}
}
