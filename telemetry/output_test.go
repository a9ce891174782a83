package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputManager_DisabledIsNil(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("expected nil manager without error, got %v, %v", om, err)
	}
	// Methods are safe on a nil manager
	if err := om.WriteEvents([]Event{NewSurfacedEvent(1, 1, 0, 0, 0)}); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestOutputManager_HeadersWrittenOnce(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := om.WriteEvents([]Event{NewSubmergedEvent(5, 3, 1.5, -2, 0.25)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := om.WriteEvents([]Event{NewSurfacedEvent(9, 3, 1.5, -2, -0.5)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := om.WritePerf(PerfStats{PhasePct: map[string]float64{}}, 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "events.csv"))
	if err != nil {
		t.Fatalf("reading events.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines:\n%s", len(lines), data)
	}
	if lines[0] != "tick,type,probe,x,z,depth" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "5,submerged,3,") || !strings.HasPrefix(lines[2], "9,surfaced,3,") {
		t.Errorf("unexpected rows %q, %q", lines[1], lines[2])
	}

	if _, err := os.Stat(filepath.Join(dir, "perf.csv")); err != nil {
		t.Errorf("expected perf.csv: %v", err)
	}
}
