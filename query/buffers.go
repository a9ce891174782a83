package query

import "github.com/go-gl/mathgl/mgl32"

// Mode selects what the evaluation pass computes for a slot.
type Mode uint8

const (
	// ModeHeight inverts the horizontal displacement and returns the true
	// surface height at the query's world XZ.
	ModeHeight Mode = iota
	// ModeReferenceHeight returns the height at the query treated as an
	// undisplaced reference position.
	ModeReferenceHeight
	// ModeDisplacement returns the full displacement at the reference position.
	ModeDisplacement
	// ModeUndisplaced returns the reference position that displaces onto the
	// query's world XZ, with the surface height in Y.
	ModeUndisplaced
)

func (m Mode) String() string {
	switch m {
	case ModeHeight:
		return "height"
	case ModeReferenceHeight:
		return "reference_height"
	case ModeDisplacement:
		return "displacement"
	case ModeUndisplaced:
		return "undisplaced"
	default:
		return "unknown"
	}
}

// Request is what an owner submits for its segment.
type Request struct {
	Mode      Mode
	Transform mgl32.Mat4 // Applied to every position; zero value means identity
	Positions []mgl32.Vec3
}

// Buffers are the shared per-slot arrays. Positions, Transforms and Modes are
// written by owners through Write; Heights and Displacements are written only
// by the evaluation pass.
type Buffers struct {
	Positions     []mgl32.Vec3
	Transforms    []mgl32.Mat4
	Modes         []Mode
	Heights       []float32
	Displacements []mgl32.Vec3
}

// NewBuffers allocates buffers for capacity slots.
func NewBuffers(capacity int) *Buffers {
	b := &Buffers{
		Positions:     make([]mgl32.Vec3, capacity),
		Transforms:    make([]mgl32.Mat4, capacity),
		Modes:         make([]Mode, capacity),
		Heights:       make([]float32, capacity),
		Displacements: make([]mgl32.Vec3, capacity),
	}
	ident := mgl32.Ident4()
	for i := range b.Transforms {
		b.Transforms[i] = ident
	}
	return b
}

// Len returns the slot capacity.
func (b *Buffers) Len() int { return len(b.Positions) }

// Write stores a request into the slots of seg. len(req.Positions) must equal
// seg.Length.
func (b *Buffers) Write(seg Segment, req Request) {
	m := req.Transform
	if m == (mgl32.Mat4{}) {
		m = mgl32.Ident4()
	}
	copy(b.Positions[seg.Start:seg.End()], req.Positions)
	for i := seg.Start; i < seg.End(); i++ {
		b.Transforms[i] = m
		b.Modes[i] = req.Mode
	}
}

// Move relocates every per-slot array, results included, so that an owner's
// last results remain readable at its new offset.
func (b *Buffers) Move(m Move) {
	copy(b.Positions[m.To:m.To+m.Length], b.Positions[m.From:m.From+m.Length])
	copy(b.Transforms[m.To:m.To+m.Length], b.Transforms[m.From:m.From+m.Length])
	copy(b.Modes[m.To:m.To+m.Length], b.Modes[m.From:m.From+m.Length])
	copy(b.Heights[m.To:m.To+m.Length], b.Heights[m.From:m.From+m.Length])
	copy(b.Displacements[m.To:m.To+m.Length], b.Displacements[m.From:m.From+m.Length])
}

// WorldXZ returns the horizontal world position of slot i.
func (b *Buffers) WorldXZ(i int) (x, z float32) {
	p := mgl32.TransformCoordinate(b.Positions[i], b.Transforms[i])
	return p.X(), p.Z()
}
