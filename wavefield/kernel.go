// Package wavefield evaluates the summed wave displacement at query positions
// and inverts the horizontal displacement to recover true surface height.
//
// All functions are pure: they read a spectrum.View and write nothing, so
// distinct query positions can be evaluated from any number of goroutines.
package wavefield

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swell/spectrum"
)

func cos32(x float32) float32 { return float32(math.Cos(float64(x))) }
func sin32(x float32) float32 { return float32(math.Sin(float64(x))) }

// Vertical returns Σ a·cos(k·(d·p) + φ) at (x, z).
func Vertical(v spectrum.View, x, z float32) float32 {
	var height float32
	for g := range v.Amps {
		k, a, ph := &v.WaveNumbers[g], &v.Amps[g], &v.Phases[g]
		dx, dz := &v.DirX[g], &v.DirZ[g]

		// Lane partials, summed horizontally
		h0 := a[0] * cos32(k[0]*(dx[0]*x+dz[0]*z)+ph[0])
		h1 := a[1] * cos32(k[1]*(dx[1]*x+dz[1]*z)+ph[1])
		h2 := a[2] * cos32(k[2]*(dx[2]*x+dz[2]*z)+ph[2])
		h3 := a[3] * cos32(k[3]*(dx[3]*x+dz[3]*z)+ph[3])
		height += (h0 + h1) + (h2 + h3)
	}
	return height
}

// Horizontal returns Σ -chop·d·sin(k·(d·p) + φ) at (x, z).
func Horizontal(v spectrum.View, x, z float32) (float32, float32) {
	var sx, sz float32
	for g := range v.Amps {
		k, c, ph := &v.WaveNumbers[g], &v.ChopAmps[g], &v.Phases[g]
		dx, dz := &v.DirX[g], &v.DirZ[g]

		var lx, lz float32
		for l := 0; l < spectrum.GroupWidth; l++ {
			disp := -c[l] * sin32(k[l]*(dx[l]*x+dz[l]*z)+ph[l])
			lx += dx[l] * disp
			lz += dz[l] * disp
		}
		sx += lx
		sz += lz
	}
	return sx, sz
}

// Displacement returns the full displacement (horizontal X, vertical, horizontal Z)
// at reference position (x, z). The phase argument is shared between the two
// terms so each lane is evaluated once.
func Displacement(v spectrum.View, x, z float32) mgl32.Vec3 {
	var sx, sy, sz float32
	for g := range v.Amps {
		k, a, c, ph := &v.WaveNumbers[g], &v.Amps[g], &v.ChopAmps[g], &v.Phases[g]
		dx, dz := &v.DirX[g], &v.DirZ[g]

		var lx, ly, lz float32
		for l := 0; l < spectrum.GroupWidth; l++ {
			s, co := math.Sincos(float64(k[l]*(dx[l]*x+dz[l]*z) + ph[l]))
			disp := -c[l] * float32(s)
			lx += dx[l] * disp
			lz += dz[l] * disp
			ly += a[l] * float32(co)
		}
		sx += lx
		sy += ly
		sz += lz
	}
	return mgl32.Vec3{sx, sy, sz}
}

// VerticalScalar is the one-component-at-a-time reference for Vertical.
func VerticalScalar(comps []spectrum.Component, x, z float32) float32 {
	var height float32
	for _, c := range comps {
		height += c.Amplitude * cos32(c.WaveNumber*(c.DirX*x+c.DirZ*z)+c.Phase)
	}
	return height
}

// HorizontalScalar is the one-component-at-a-time reference for Horizontal.
func HorizontalScalar(comps []spectrum.Component, x, z float32) (float32, float32) {
	var sx, sz float32
	for _, c := range comps {
		disp := -c.ChopAmplitude * sin32(c.WaveNumber*(c.DirX*x+c.DirZ*z)+c.Phase)
		sx += c.DirX * disp
		sz += c.DirZ * disp
	}
	return sx, sz
}
