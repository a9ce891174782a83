package components

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swell/config"
)

// Body holds the physical shape of a probe.
type Body struct {
	Radius    float32
	Freeboard float32 // Deck height above still water
}

// BodyFromConfig returns a body with the configured dimensions.
func BodyFromConfig(cfg config.ProbesConfig) Body {
	return Body{
		Radius:    float32(cfg.Radius),
		Freeboard: float32(cfg.Freeboard),
	}
}

// Ring fills dst with n points evenly spaced on the hull ring in probe-local
// space and returns it. A single point sits at the centre.
func (b Body) Ring(dst []mgl32.Vec3, n int) []mgl32.Vec3 {
	dst = dst[:0]
	if n == 1 {
		return append(dst, mgl32.Vec3{})
	}
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		dst = append(dst, mgl32.Vec3{
			b.Radius * float32(math.Cos(a)),
			0,
			b.Radius * float32(math.Sin(a)),
		})
	}
	return dst
}

// Transform returns the probe-local to world transform for pos.
func Transform(pos Position) mgl32.Mat4 {
	return mgl32.Translate3D(pos.X, 0, pos.Z).Mul4(mgl32.HomogRotate3DY(pos.Heading))
}
