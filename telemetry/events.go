// Package telemetry provides perf tracking, sea-state window stats and CSV
// output for the headless driver.
package telemetry

// EventType identifies telemetry events.
type EventType uint8

const (
	EventSubmerged EventType = iota
	EventSurfaced
)

func (t EventType) String() string {
	switch t {
	case EventSubmerged:
		return "submerged"
	case EventSurfaced:
		return "surfaced"
	default:
		return "unknown"
	}
}

// MarshalCSV writes the event type by name.
func (t EventType) MarshalCSV() (string, error) {
	return t.String(), nil
}

// Event is a probe crossing the surface. Depth is the submersion of the
// deepest sample at the tick of the crossing, negative when clear of the water.
type Event struct {
	Tick    int32     `csv:"tick"`
	Type    EventType `csv:"type"`
	ProbeID uint32    `csv:"probe"`
	X       float32   `csv:"x"`
	Z       float32   `csv:"z"`
	Depth   float32   `csv:"depth"`
}

// NewSubmergedEvent creates an event for a probe that went under.
func NewSubmergedEvent(tick int32, probeID uint32, x, z, depth float32) Event {
	return Event{Tick: tick, Type: EventSubmerged, ProbeID: probeID, X: x, Z: z, Depth: depth}
}

// NewSurfacedEvent creates an event for a probe that came clear.
func NewSurfacedEvent(tick int32, probeID uint32, x, z, depth float32) Event {
	return Event{Tick: tick, Type: EventSurfaced, ProbeID: probeID, X: x, Z: z, Depth: depth}
}
