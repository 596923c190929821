package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/patrol-search/core"
	"github.com/signalsfoundry/patrol-search/internal/logging"
)

func quietEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PATROL_SEED", "")
	t.Setenv("PATROL_WORKERS", "")
	t.Setenv("PATROL_TRACING_ENABLED", "false")
}

// TestIntegration_ReferenceScenario runs a small search end to end and checks
// the summary, the JSON report and the replay output.
func TestIntegration_ReferenceScenario(t *testing.T) {
	quietEnv(t)
	out := filepath.Join(t.TempDir(), "best.json")

	var stdout bytes.Buffer
	err := run(context.Background(), []string{
		"-batches", "2",
		"-repeats", "5",
		"-seed", "7",
		"-workers", "2",
		"-out", out,
		"-replay",
	}, &stdout, logging.Noop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	text := stdout.String()
	for _, want := range []string{"Completed 2 batches of 5 flights (seed 7)", "Highest probability", "step 159:"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var rep jsonReport
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(rep.Path) != 160 {
		t.Fatalf("report path has %d points, want 160", len(rep.Path))
	}
	if len(rep.Probabilities) != 2 || rep.Seed != 7 {
		t.Fatalf("report = %+v", rep)
	}
	if len(rep.Tracks) != rep.Detections {
		t.Fatalf("report lists %d tracks for %d detections", len(rep.Tracks), rep.Detections)
	}
	for _, p := range rep.Path {
		if p.X <= 0 || p.X >= 20 || p.Y <= 0 || p.Y >= 8 {
			t.Fatalf("path point %+v outside the arena", p)
		}
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	quietEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("step_length: 12\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"-config", path}, &stdout, logging.Noop()); err == nil {
		t.Fatalf("expected configuration error")
	}
	if stdout.Len() != 0 {
		t.Fatalf("no report expected on configuration error, got %q", stdout.String())
	}
}

func TestRunRejectsBadFlagOverride(t *testing.T) {
	quietEnv(t)
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"-batches", "-1"}, &stdout, logging.Noop()); err == nil {
		t.Fatalf("expected error for negative batch count")
	}
}

func TestReplayPathReportsLastStep(t *testing.T) {
	path := core.Path{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}}

	var out bytes.Buffer
	if got := replayPath(context.Background(), &out, path, 0).Now(); got != 2 {
		t.Fatalf("full replay stopped at step %d, want 2", got)
	}
	if !strings.Contains(out.String(), "step   2: (3.000, 1.000)") {
		t.Fatalf("unexpected replay output:\n%s", out.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out.Reset()
	if got := replayPath(ctx, &out, path, time.Hour).Now(); got != -1 {
		t.Fatalf("cancelled replay stopped at step %d, want -1", got)
	}
	if out.Len() != 0 {
		t.Fatalf("cancelled replay printed %q", out.String())
	}
}

func TestParseFlagsHelp(t *testing.T) {
	_, _, err := parseFlags([]string{"-h"})
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("parseFlags(-h) error = %v, want flag.ErrHelp", err)
	}
}
