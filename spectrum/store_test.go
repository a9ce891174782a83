package spectrum

import (
	"math"
	"testing"
)

func TestStore_CapacityRoundsUpToGroups(t *testing.T) {
	s := NewStore(10, 9.81)
	if s.Capacity() != 12 {
		t.Errorf("expected capacity 12, got %d", s.Capacity())
	}
}

func TestStore_AddAndPad(t *testing.T) {
	s := NewStore(16, 9.81)
	s.Begin(0, 0)
	for i := 0; i < 5; i++ {
		if !s.Add(10, 1, 0, 0, 1, 1) {
			t.Fatalf("add %d failed", i)
		}
	}
	s.End()

	v := s.View()
	if v.Groups() != 2 {
		t.Fatalf("expected 2 groups for 5 components, got %d", v.Groups())
	}
	if s.Len() != 5 {
		t.Errorf("expected 5 components, got %d", s.Len())
	}
	// Lanes 1..3 of the second group are padding
	for l := 1; l < GroupWidth; l++ {
		if v.Amps[1][l] != 0 || v.WaveNumbers[1][l] != 0 || v.ChopAmps[1][l] != 0 {
			t.Errorf("expected zero padding in lane %d, got amp=%f k=%f", l, v.Amps[1][l], v.WaveNumbers[1][l])
		}
	}
}

func TestStore_PaddingClearsStaleData(t *testing.T) {
	s := NewStore(8, 9.81)
	s.Begin(0, 0)
	for i := 0; i < 8; i++ {
		s.Add(10, 2, 0, 0, 1, 1)
	}
	s.End()

	// Rebuild with fewer components; old lanes must not leak into the view
	s.Begin(0, 0)
	s.Add(10, 1, 0, 0, 1, 1)
	s.End()

	v := s.View()
	if v.Groups() != 1 {
		t.Fatalf("expected 1 group, got %d", v.Groups())
	}
	for l := 1; l < GroupWidth; l++ {
		if v.Amps[0][l] != 0 {
			t.Errorf("stale amplitude in lane %d: %f", l, v.Amps[0][l])
		}
	}
}

func TestStore_FullReturnsFalse(t *testing.T) {
	s := NewStore(4, 9.81)
	s.Begin(0, 0)
	for i := 0; i < 4; i++ {
		if !s.Add(10, 1, 0, 0, 1, 1) {
			t.Fatalf("add %d failed before capacity", i)
		}
	}
	if s.Add(10, 1, 0, 0, 1, 1) {
		t.Error("expected add beyond capacity to fail")
	}
	s.End()
	if s.Len() != 4 {
		t.Errorf("expected 4 components after overflow, got %d", s.Len())
	}
}

func TestStore_NegligibleAmplitudeDropped(t *testing.T) {
	s := NewStore(4, 9.81)
	s.Begin(0, 0)
	if !s.Add(10, 0.0005, 0, 0, 1, 1) {
		t.Error("dropping a negligible component should not report failure")
	}
	s.End()
	if s.Len() != 0 {
		t.Errorf("expected negligible component to be dropped, got %d stored", s.Len())
	}
	if s.View().Groups() != 0 {
		t.Errorf("expected no groups, got %d", s.View().Groups())
	}
}

func TestStore_InvalidWavelength(t *testing.T) {
	s := NewStore(4, 9.81)
	s.Begin(0, 0)
	if s.Add(0, 1, 0, 0, 1, 1) {
		t.Error("expected zero wavelength to be rejected")
	}
	if s.Add(-3, 1, 0, 0, 1, 1) {
		t.Error("expected negative wavelength to be rejected")
	}
}

func TestStore_ComponentValues(t *testing.T) {
	const g = 9.81
	s := NewStore(4, g)
	s.Begin(0, 30)
	s.Add(20, 0.5, 15, 0.25, 2, 1)
	s.End()

	comps := s.Components()
	if len(comps) != 1 {
		t.Fatalf("expected 1 component, got %d", len(comps))
	}
	c := comps[0]

	wantK := 2 * math.Pi / 20
	if math.Abs(float64(c.WaveNumber)-wantK) > 1e-6 {
		t.Errorf("expected k=%f, got %f", wantK, c.WaveNumber)
	}
	if c.ChopAmplitude != 1.0 {
		t.Errorf("expected chop amplitude 1.0 (scale*amp), got %f", c.ChopAmplitude)
	}
	// Wind angle is added to the component angle
	angle := 45 * math.Pi / 180
	if math.Abs(float64(c.DirX)-math.Cos(angle)) > 1e-6 || math.Abs(float64(c.DirZ)-math.Sin(angle)) > 1e-6 {
		t.Errorf("expected direction at 45 deg, got (%f, %f)", c.DirX, c.DirZ)
	}
	if math.Abs(float64(c.Phase)-0.25) > 1e-6 {
		t.Errorf("expected phase 0.25 at t=0, got %f", c.Phase)
	}
}

func TestStore_PhaseAdvancesWithDispersion(t *testing.T) {
	const g = 9.81
	const wl = 30.0
	const tm = 3.0
	s := NewStore(4, g)
	s.Begin(tm, 0)
	s.Add(wl, 1, 0, 0, 1, 1)
	s.End()

	k := 2 * math.Pi / wl
	c := math.Sqrt(g * wl / (2 * math.Pi))
	want := math.Mod(k*c*tm, 2*math.Pi)

	got := float64(s.Components()[0].Phase)
	if math.Abs(got-want) > 1e-5 {
		t.Errorf("expected phase %f, got %f", want, got)
	}
}

func TestStore_PhaseWrappedForLongRuns(t *testing.T) {
	s := NewStore(4, 9.81)
	s.Begin(1e6, 0)
	s.Add(1, 1, 0, 0, 1, 1)
	s.End()

	ph := s.Components()[0].Phase
	if ph < 0 || ph >= 2*math.Pi+1e-5 {
		t.Errorf("expected phase wrapped into [0, 2pi), got %f", ph)
	}
}
