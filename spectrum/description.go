package spectrum

import (
	"math"
	"math/rand/v2"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/swell/config"
)

// Pierson-Moskowitz constants.
const (
	pmAlpha = 8.1e-3
	pmBeta  = 0.74
)

// Description is the time-independent wave description that is ingested into a
// Store once per tick. Components are laid out octave by octave; chop and
// gravity scales apply per octave.
type Description struct {
	ComponentsPerOctave int

	Wavelengths []float32
	Amplitudes  []float32
	Angles      []float32 // degrees, relative to the wind direction
	Phases      []float32 // radians at t=0

	ChopScales    []float32
	GravityScales []float32
}

// NewDescription builds a description from configuration. Wavelengths are
// log-spaced between the configured bounds, amplitudes follow a
// Pierson-Moskowitz power curve for the configured wind speed, angles are
// jittered around the wind with simplex noise, and phases are drawn from a
// seeded source so repeated runs match.
func NewDescription(cfg config.SpectrumConfig, gravity float64) *Description {
	n := cfg.Octaves * cfg.ComponentsPerOctave
	d := &Description{
		ComponentsPerOctave: cfg.ComponentsPerOctave,
		Wavelengths:         make([]float32, n),
		Amplitudes:          make([]float32, n),
		Angles:              make([]float32, n),
		Phases:              make([]float32, n),
		ChopScales:          make([]float32, cfg.Octaves),
		GravityScales:       make([]float32, cfg.Octaves),
	}
	if n == 0 {
		return d
	}

	wavelengths := make([]float64, n)
	if n == 1 {
		wavelengths[0] = cfg.MaxWavelength
	} else {
		floats.LogSpan(wavelengths, cfg.MinWavelength, cfg.MaxWavelength)
	}

	omegas := make([]float64, n)
	for i, wl := range wavelengths {
		omegas[i] = math.Sqrt(gravity * twoPi / wl)
	}

	omegaPeak := 0.0
	if cfg.WindSpeed > 0 {
		omegaPeak = gravity / cfg.WindSpeed
	}

	noise := opensimplex.NewNormalized(cfg.Seed)
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)^0x9e3779b97f4a7c15))

	for i := 0; i < n; i++ {
		w := omegas[i]
		var dw float64
		switch {
		case n == 1:
			dw = w * 0.1
		case i < n-1:
			dw = math.Abs(omegas[i+1] - w)
		default:
			dw = math.Abs(w - omegas[i-1])
		}

		s := pmAlpha * gravity * gravity / math.Pow(w, 5)
		if omegaPeak > 0 {
			s *= math.Exp(-pmBeta * math.Pow(omegaPeak/w, 4))
		}
		amp := math.Sqrt(2*s*dw) * cfg.AmplitudeScale

		jitter := 2*noise.Eval2(float64(i)*0.37, float64(cfg.Seed%1024)*0.11) - 1

		d.Wavelengths[i] = float32(wavelengths[i])
		d.Amplitudes[i] = float32(amp)
		d.Angles[i] = float32(jitter * cfg.DirectionSpread)
		d.Phases[i] = float32(rng.Float64() * twoPi)
	}

	for o := 0; o < cfg.Octaves; o++ {
		d.ChopScales[o] = 1
		d.GravityScales[o] = 1
		if o < len(cfg.ChopScales) {
			d.ChopScales[o] = float32(cfg.ChopScales[o])
		}
		if o < len(cfg.GravityScales) {
			d.GravityScales[o] = float32(cfg.GravityScales[o])
		}
	}

	return d
}

// Len returns the number of components in the description.
func (d *Description) Len() int { return len(d.Wavelengths) }

// Ingest adds every component to the store, which must be between Begin and
// End. It returns the number of components offered before the store ran out of
// space and whether all of them fit.
func (d *Description) Ingest(s *Store) (int, bool) {
	cpo := d.ComponentsPerOctave
	if cpo < 1 {
		cpo = 1
	}
	for i := range d.Wavelengths {
		octave := i / cpo
		chop, grav := float32(1), float32(1)
		if octave < len(d.ChopScales) {
			chop = d.ChopScales[octave]
		}
		if octave < len(d.GravityScales) {
			grav = d.GravityScales[octave]
		}
		if !s.Add(d.Wavelengths[i], d.Amplitudes[i], d.Angles[i], d.Phases[i], chop, grav) {
			return i, false
		}
	}
	return len(d.Wavelengths), true
}
