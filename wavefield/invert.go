package wavefield

import "github.com/pthm-cable/swell/spectrum"

// DefaultIterations is enough for the horizontal displacement of typical
// ocean spectra. The map is not contractive for extreme chop, where the
// result is approximate.
const DefaultIterations = 4

// Solver inverts the horizontal displacement by successive substitution.
type Solver struct {
	Iterations int
	SeaLevel   float32
}

// NewSolver returns a solver with the default iteration count.
func NewSolver(seaLevel float32) Solver {
	return Solver{Iterations: DefaultIterations, SeaLevel: seaLevel}
}

// Undisplaced returns the reference position whose horizontal displacement
// lands on world position (x, z). It always runs exactly s.Iterations steps.
func (s Solver) Undisplaced(v spectrum.View, x, z float32) (float32, float32) {
	rx, rz := x, z
	for i := 0; i < s.Iterations; i++ {
		dx, dz := Horizontal(v, rx, rz)
		rx -= rx + dx - x
		rz -= rz + dz - z
	}
	return rx, rz
}

// Height returns the surface height at world position (x, z).
func (s Solver) Height(v spectrum.View, x, z float32) float32 {
	rx, rz := s.Undisplaced(v, x, z)
	return Vertical(v, rx, rz) + s.SeaLevel
}
