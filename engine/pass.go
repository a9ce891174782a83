package engine

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swell/query"
	"github.com/pthm-cable/swell/spectrum"
	"github.com/pthm-cable/swell/wavefield"
)

// pass holds everything one evaluation pass reads. It is built on the driving
// goroutine at schedule time; workers only read view and the input arrays of
// buffers and write the result slots of their own chunk.
type pass struct {
	view    spectrum.View
	buffers *query.Buffers
	solver  wavefield.Solver
}

func (p *pass) run(start, end int) {
	b := p.buffers
	sea := p.solver.SeaLevel

	for i := start; i < end; i++ {
		x, z := b.WorldXZ(i)

		switch b.Modes[i] {
		case query.ModeReferenceHeight:
			b.Heights[i] = wavefield.Vertical(p.view, x, z) + sea

		case query.ModeDisplacement:
			d := wavefield.Displacement(p.view, x, z)
			b.Displacements[i] = d
			b.Heights[i] = d.Y() + sea

		case query.ModeUndisplaced:
			rx, rz := p.solver.Undisplaced(p.view, x, z)
			h := wavefield.Vertical(p.view, rx, rz) + sea
			b.Displacements[i] = mgl32.Vec3{rx, h, rz}
			b.Heights[i] = h

		default:
			b.Heights[i] = p.solver.Height(p.view, x, z)
		}
	}
}
