package main

import (
	"testing"

	"github.com/pthm-cable/swell/config"
)

func gentleSpectrum() config.SpectrumConfig {
	return config.SpectrumConfig{
		Octaves:             3,
		ComponentsPerOctave: 4,
		MinWavelength:       8,
		MaxWavelength:       64,
		WindSpeed:           6,
		AmplitudeScale:      1,
		DirectionSpread:     40,
		Seed:                9,
	}
}

func TestStudy_ZeroChopIsExact(t *testing.T) {
	s := NewStudy(gentleSpectrum(), 9.81, 3, 0, 20, 100, 1, 200)
	row := s.Run(0, 4)

	if row.Samples != 20 {
		t.Errorf("expected 20 samples, got %d", row.Samples)
	}
	if row.MaxPosErr > 1e-6 || row.MaxHeightErr > 1e-6 {
		t.Errorf("expected no error without chop, got pos %g height %g", row.MaxPosErr, row.MaxHeightErr)
	}
}

func TestStudy_MinimizerNeverWorse(t *testing.T) {
	s := NewStudy(gentleSpectrum(), 9.81, 3, 0, 20, 100, 2, 300)

	for _, iters := range []int{1, 4} {
		row := s.Run(1.5, iters)
		if row.OptResidual > row.FixedResidual+1e-9 {
			t.Errorf("iterations=%d: minimizer residual %g above fixed-point residual %g",
				iters, row.OptResidual, row.FixedResidual)
		}
		if row.MeanPosErr < 0 || row.MaxPosErr < row.MeanPosErr {
			t.Errorf("iterations=%d: inconsistent errors mean %g max %g", iters, row.MeanPosErr, row.MaxPosErr)
		}
	}
}

func TestParseFloats(t *testing.T) {
	got, err := parseFloats("0, 1.5,,2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != 0 || got[1] != 1.5 || got[2] != 2 {
		t.Errorf("expected [0 1.5 2], got %v", got)
	}
	if _, err := parseFloats("x"); err == nil {
		t.Error("expected error for non-numeric input")
	}
}
