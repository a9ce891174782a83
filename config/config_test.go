package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	if cfg.Engine.QueryCapacity != 4096 {
		t.Errorf("expected query capacity 4096, got %d", cfg.Engine.QueryCapacity)
	}
	if cfg.Engine.MaxWaveComponents != 512 {
		t.Errorf("expected 512 wave components, got %d", cfg.Engine.MaxWaveComponents)
	}
	if cfg.Derived.NumSpectral != cfg.Spectrum.Octaves*cfg.Spectrum.ComponentsPerOctave {
		t.Errorf("derived spectral count mismatch: %d", cfg.Derived.NumSpectral)
	}
	if len(cfg.Spectrum.ChopScales) != cfg.Spectrum.Octaves {
		t.Errorf("expected %d chop scales, got %d", cfg.Spectrum.Octaves, len(cfg.Spectrum.ChopScales))
	}
}

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	data := []byte("engine:\n  query_capacity: 128\nspectrum:\n  octaves: 10\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading override: %v", err)
	}

	if cfg.Engine.QueryCapacity != 128 {
		t.Errorf("expected overridden capacity 128, got %d", cfg.Engine.QueryCapacity)
	}
	if cfg.Engine.MaxWaveComponents != 512 {
		t.Errorf("expected default component count to survive, got %d", cfg.Engine.MaxWaveComponents)
	}
	// Two extra octaves beyond the defaults list are padded with 1.0
	if len(cfg.Spectrum.GravityScales) != 10 || cfg.Spectrum.GravityScales[9] != 1.0 {
		t.Errorf("expected padded gravity scales, got %v", cfg.Spectrum.GravityScales)
	}
}

func TestLoadRejectsBadCapacity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  query_capacity: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for zero query capacity")
	}
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Ocean.SeaLevel = 2.5

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("writing yaml: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reloading yaml: %v", err)
	}
	if loaded.Derived.SeaLevel32 != 2.5 {
		t.Errorf("expected sea level 2.5 after reload, got %f", loaded.Derived.SeaLevel32)
	}
}
