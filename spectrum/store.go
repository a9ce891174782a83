// Package spectrum holds the spectral description of the wave field in a
// fixed-capacity, lane-grouped layout that the evaluator can walk without
// branching on a remainder.
package spectrum

import "math"

// GroupWidth is the number of components packed into one lane group.
const GroupWidth = 4

// MinAmplitude is the amplitude at or below which a component is not stored.
const MinAmplitude = 0.001

const twoPi = 2 * math.Pi

// Lanes holds one value per component of a group.
type Lanes [GroupWidth]float32

// Component is one unpacked spectral line.
type Component struct {
	WaveNumber    float32
	Amplitude     float32
	DirX, DirZ    float32
	Phase         float32
	ChopAmplitude float32
}

// View is a read-only window over the active groups of a Store.
// All slices have the same length.
type View struct {
	WaveNumbers []Lanes
	Amps        []Lanes
	DirX        []Lanes
	DirZ        []Lanes
	Phases      []Lanes
	ChopAmps    []Lanes
}

// Groups returns the number of lane groups in the view.
func (v View) Groups() int { return len(v.Amps) }

// Store is the spectrum storage, rebuilt every tick between Begin and End.
type Store struct {
	waveNumbers []Lanes
	amps        []Lanes
	dirX        []Lanes
	dirZ        []Lanes
	phases      []Lanes
	chopAmps    []Lanes

	// Write cursor
	group int
	lane  int

	// Published by End
	activeGroups int
	count        int
	pending      int

	gravity float64
	time    float64
	windDeg float64
}

// NewStore allocates storage for maxComponents spectral lines, rounded up to a
// whole number of groups.
func NewStore(maxComponents int, gravity float32) *Store {
	groups := (maxComponents + GroupWidth - 1) / GroupWidth
	if groups < 1 {
		groups = 1
	}
	return &Store{
		waveNumbers: make([]Lanes, groups),
		amps:        make([]Lanes, groups),
		dirX:        make([]Lanes, groups),
		dirZ:        make([]Lanes, groups),
		phases:      make([]Lanes, groups),
		chopAmps:    make([]Lanes, groups),
		gravity:     float64(gravity),
	}
}

// Capacity returns the maximum number of components the store can hold.
func (s *Store) Capacity() int { return len(s.amps) * GroupWidth }

// Len returns the number of components published by the last End.
func (s *Store) Len() int { return s.count }

// Begin resets the write cursor. time and windDirectionDeg apply to every
// component added until the next Begin.
func (s *Store) Begin(time, windDirectionDeg float32) {
	s.group = 0
	s.lane = 0
	s.pending = 0
	s.time = float64(time)
	s.windDeg = float64(windDirectionDeg)
}

// Add appends one spectral line. Components with negligible amplitude are
// skipped and still report true. Returns false if the store is full or the
// wavelength is not positive; the store is unchanged in that case.
func (s *Store) Add(wavelength, amplitude, angleDeg, phase, chopScale, gravityScale float32) bool {
	if !(wavelength > 0) {
		return false
	}
	if amplitude <= MinAmplitude {
		return true
	}
	if s.group >= len(s.amps) {
		return false
	}

	wl := float64(wavelength)
	k := twoPi / wl
	c := math.Sqrt(s.gravity * wl * float64(gravityScale) / twoPi)
	ph := math.Mod(float64(phase)+k*c*s.time, twoPi)
	if ph < 0 {
		ph += twoPi
	}
	angle := (s.windDeg + float64(angleDeg)) * math.Pi / 180

	g, l := s.group, s.lane
	s.waveNumbers[g][l] = float32(k)
	s.amps[g][l] = amplitude
	s.chopAmps[g][l] = chopScale * amplitude
	s.dirX[g][l] = float32(math.Cos(angle))
	s.dirZ[g][l] = float32(math.Sin(angle))
	s.phases[g][l] = float32(ph)

	s.pending++
	s.next()
	return true
}

func (s *Store) next() {
	s.lane = (s.lane + 1) % GroupWidth
	if s.lane == 0 {
		s.group++
	}
}

// End zero-pads the trailing partial group and publishes the active range.
func (s *Store) End() {
	for s.lane != 0 {
		g, l := s.group, s.lane
		s.waveNumbers[g][l] = 0
		s.amps[g][l] = 0
		s.chopAmps[g][l] = 0
		s.dirX[g][l] = 0
		s.dirZ[g][l] = 0
		s.phases[g][l] = 0
		s.next()
	}
	s.activeGroups = s.group
	s.count = s.pending
}

// View returns the groups published by the last End.
func (s *Store) View() View {
	n := s.activeGroups
	return View{
		WaveNumbers: s.waveNumbers[:n],
		Amps:        s.amps[:n],
		DirX:        s.dirX[:n],
		DirZ:        s.dirZ[:n],
		Phases:      s.phases[:n],
		ChopAmps:    s.chopAmps[:n],
	}
}

// Components unpacks the published components, skipping padding lanes.
func (s *Store) Components() []Component {
	v := s.View()
	out := make([]Component, 0, s.count)
	for g := 0; g < v.Groups(); g++ {
		for l := 0; l < GroupWidth; l++ {
			if v.Amps[g][l] == 0 {
				continue
			}
			out = append(out, Component{
				WaveNumber:    v.WaveNumbers[g][l],
				Amplitude:     v.Amps[g][l],
				DirX:          v.DirX[g][l],
				DirZ:          v.DirZ[g][l],
				Phase:         v.Phases[g][l],
				ChopAmplitude: v.ChopAmps[g][l],
			})
		}
	}
	return out
}
