// Package query manages the shared, fixed-capacity query buffers and the
// registry of owner segments inside them.
package query

import (
	"errors"
	"sort"
)

var (
	// ErrCapacity is returned when a reservation does not fit above the high-water mark.
	ErrCapacity = errors.New("query: out of slot capacity")
	// ErrUnknownOwner is returned for owners without a registered segment.
	ErrUnknownOwner = errors.New("query: unknown owner")
)

// OwnerID identifies a caller that owns a segment.
type OwnerID uint64

// Segment is a contiguous slot range owned by one caller.
type Segment struct {
	Owner  OwnerID
	Start  int
	Length int
}

// End returns one past the last slot of the segment.
func (s Segment) End() int { return s.Start + s.Length }

// Move describes a slot range relocated by compaction.
type Move struct {
	From, To, Length int
}

// Registry maps owners to segments. Released segments leave gaps until
// Compact is called; new segments are always placed at the high-water mark.
type Registry struct {
	capacity  int
	highWater int
	segments  map[OwnerID]Segment
}

// NewRegistry creates an empty registry over capacity slots.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		segments: make(map[OwnerID]Segment),
	}
}

// Capacity returns the total number of slots.
func (r *Registry) Capacity() int { return r.capacity }

// HighWater returns the end of the highest segment ever allocated since the
// last compaction.
func (r *Registry) HighWater() int { return r.highWater }

// Len returns the number of registered owners.
func (r *Registry) Len() int { return len(r.segments) }

// Occupied returns the number of slots held by registered segments.
func (r *Registry) Occupied() int {
	n := 0
	for _, s := range r.segments {
		n += s.Length
	}
	return n
}

// Gaps returns the number of dead slots below the high-water mark.
func (r *Registry) Gaps() int { return r.highWater - r.Occupied() }

// Lookup returns the segment of owner.
func (r *Registry) Lookup(owner OwnerID) (Segment, bool) {
	s, ok := r.segments[owner]
	return s, ok
}

// Reserve returns a segment of count slots for owner. An existing segment of
// the same size is reused as is; one of a different size is released and a new
// one is allocated at the high-water mark. On ErrCapacity the registry is
// unchanged.
func (r *Registry) Reserve(owner OwnerID, count int) (Segment, error) {
	if s, ok := r.segments[owner]; ok && s.Length == count {
		return s, nil
	}
	if count < 0 || r.highWater+count > r.capacity {
		return Segment{}, ErrCapacity
	}

	s := Segment{Owner: owner, Start: r.highWater, Length: count}
	r.segments[owner] = s
	r.highWater += count
	return s, nil
}

// Release drops the segment of owner, leaving its slots as a gap.
func (r *Registry) Release(owner OwnerID) error {
	if _, ok := r.segments[owner]; !ok {
		return ErrUnknownOwner
	}
	delete(r.segments, owner)
	return nil
}

// Segments returns the registered segments ordered by start slot.
func (r *Registry) Segments() []Segment {
	out := make([]Segment, 0, len(r.segments))
	for _, s := range r.segments {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Owner < out[j].Owner
	})
	return out
}

// Compact packs the registered segments to the front of the buffer in their
// current order and returns the relocations needed to carry slot data along.
// Moves are ordered so that applying them in sequence never overwrites data
// that has not moved yet. Every slot index handed out before the call is
// invalid afterwards.
func (r *Registry) Compact() []Move {
	var moves []Move
	next := 0
	for _, s := range r.Segments() {
		if s.Start != next {
			moves = append(moves, Move{From: s.Start, To: next, Length: s.Length})
		}
		s.Start = next
		r.segments[s.Owner] = s
		next += s.Length
	}
	r.highWater = next
	return moves
}

// Reset drops every segment.
func (r *Registry) Reset() {
	clear(r.segments)
	r.highWater = 0
}
