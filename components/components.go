// Package components defines ECS components for the floating sample probes.
package components

import "github.com/pthm-cable/swell/query"

// Position represents a probe's horizontal world position and heading.
type Position struct {
	X, Z    float32
	Heading float32 // radians about +Y
}

// Velocity represents a probe's horizontal drift velocity.
type Velocity struct {
	X, Z float32
}

// Probe identifies the query segment a probe owns.
type Probe struct {
	ID        uint32
	Points    int  // Current sample count, may change between ticks
	Submitted bool // Holds a segment evaluated this tick
}

// Owner returns the segment owner key for the probe.
func (p Probe) Owner() query.OwnerID { return query.OwnerID(p.ID) }

// Submersion holds the results read back for a probe.
type Submersion struct {
	MeanHeight float32
	MaxHeight  float32
	Depth      float32 // MaxHeight above the deck, negative when clear
	Submerged  bool
}
