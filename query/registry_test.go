package query

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func assertDisjoint(t *testing.T, segs []Segment) {
	t.Helper()
	for i := 1; i < len(segs); i++ {
		if segs[i].Start < segs[i-1].End() {
			t.Errorf("segments overlap: %+v and %+v", segs[i-1], segs[i])
		}
	}
}

func TestRegistry_UniqueOwnersWithinCapacity(t *testing.T) {
	r := NewRegistry(100)
	counts := []int{10, 25, 5, 40, 20}

	for i, c := range counts {
		if _, err := r.Reserve(OwnerID(i+1), c); err != nil {
			t.Fatalf("reserve %d failed: %v", i, err)
		}
	}

	segs := r.Segments()
	if len(segs) != len(counts) {
		t.Fatalf("expected %d segments, got %d", len(counts), len(segs))
	}
	assertDisjoint(t, segs)
	if r.HighWater() != 100 {
		t.Errorf("expected high-water 100, got %d", r.HighWater())
	}
}

func TestRegistry_OverCapacityLeavesStateUnchanged(t *testing.T) {
	r := NewRegistry(50)
	a, _ := r.Reserve(1, 30)

	_, err := r.Reserve(2, 30)
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
	if _, ok := r.Lookup(2); ok {
		t.Error("failed reservation should not register owner")
	}
	if got, _ := r.Lookup(1); got != a {
		t.Errorf("existing segment changed: %+v -> %+v", a, got)
	}
	if r.HighWater() != 30 {
		t.Errorf("expected high-water 30, got %d", r.HighWater())
	}
}

func TestRegistry_SameSizeIsNoOp(t *testing.T) {
	r := NewRegistry(64)
	first, _ := r.Reserve(7, 16)
	r.Reserve(8, 8)

	again, err := r.Reserve(7, 16)
	if err != nil {
		t.Fatal(err)
	}
	if again != first {
		t.Errorf("expected same segment %+v, got %+v", first, again)
	}
	if r.HighWater() != 24 {
		t.Errorf("expected high-water 24, got %d", r.HighWater())
	}
}

func TestRegistry_ResizeReallocatesWithoutTouchingOthers(t *testing.T) {
	r := NewRegistry(64)
	r.Reserve(1, 8)
	other, _ := r.Reserve(2, 8)

	resized, err := r.Reserve(1, 12)
	if err != nil {
		t.Fatal(err)
	}
	if resized.Start != 16 || resized.Length != 12 {
		t.Errorf("expected resized segment at 16 len 12, got %+v", resized)
	}
	if got, _ := r.Lookup(2); got != other {
		t.Errorf("other owner moved: %+v -> %+v", other, got)
	}
	if r.Gaps() != 8 {
		t.Errorf("expected 8 gap slots, got %d", r.Gaps())
	}
	assertDisjoint(t, r.Segments())
}

func TestRegistry_ResizeFailureKeepsOldSegment(t *testing.T) {
	r := NewRegistry(20)
	old, _ := r.Reserve(1, 10)

	if _, err := r.Reserve(1, 15); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
	if got, ok := r.Lookup(1); !ok || got != old {
		t.Errorf("expected old segment kept after failed resize, got %+v ok=%v", got, ok)
	}
}

func TestRegistry_ReleaseUnknown(t *testing.T) {
	r := NewRegistry(10)
	if err := r.Release(99); !errors.Is(err, ErrUnknownOwner) {
		t.Errorf("expected ErrUnknownOwner, got %v", err)
	}
}

func TestRegistry_ReleaseLeavesGap(t *testing.T) {
	r := NewRegistry(30)
	r.Reserve(1, 10)
	r.Reserve(2, 10)

	if err := r.Release(1); err != nil {
		t.Fatal(err)
	}
	if r.HighWater() != 20 {
		t.Errorf("release should not move the high-water mark, got %d", r.HighWater())
	}
	if r.Gaps() != 10 {
		t.Errorf("expected 10 gap slots, got %d", r.Gaps())
	}
	// The gap is not reused until compaction
	if _, err := r.Reserve(3, 15); !errors.Is(err, ErrCapacity) {
		t.Errorf("expected ErrCapacity with gap unreclaimed, got %v", err)
	}
}

func TestRegistry_CompactPacks(t *testing.T) {
	r := NewRegistry(100)
	r.Reserve(1, 10)
	r.Reserve(2, 20)
	r.Reserve(3, 5)
	r.Reserve(4, 15)
	r.Release(2)
	r.Release(1)

	moves := r.Compact()

	if r.HighWater() != r.Occupied() {
		t.Errorf("expected tight packing, high-water %d occupied %d", r.HighWater(), r.Occupied())
	}
	if r.HighWater() != 20 {
		t.Errorf("expected high-water 20, got %d", r.HighWater())
	}
	s3, _ := r.Lookup(3)
	s4, _ := r.Lookup(4)
	if s3.Start != 0 || s4.Start != 5 {
		t.Errorf("expected owner 3 at 0 and owner 4 at 5, got %d and %d", s3.Start, s4.Start)
	}
	want := []Move{{From: 30, To: 0, Length: 5}, {From: 35, To: 5, Length: 15}}
	if len(moves) != len(want) {
		t.Fatalf("expected %d moves, got %v", len(want), moves)
	}
	for i := range want {
		if moves[i] != want[i] {
			t.Errorf("move %d: expected %+v, got %+v", i, want[i], moves[i])
		}
	}
}

func TestBuffers_MoveCarriesResults(t *testing.T) {
	r := NewRegistry(16)
	b := NewBuffers(16)

	gap, _ := r.Reserve(1, 4)
	seg, _ := r.Reserve(2, 4)
	b.Write(gap, Request{Positions: make([]mgl32.Vec3, 4)})
	b.Write(seg, Request{Mode: ModeDisplacement, Positions: []mgl32.Vec3{{1, 0, 1}, {2, 0, 2}, {3, 0, 3}, {4, 0, 4}}})
	for i := seg.Start; i < seg.End(); i++ {
		b.Heights[i] = float32(i)
	}

	r.Release(1)
	for _, m := range r.Compact() {
		b.Move(m)
	}

	moved, _ := r.Lookup(2)
	if moved.Start != 0 {
		t.Fatalf("expected owner 2 at slot 0, got %d", moved.Start)
	}
	for i := 0; i < 4; i++ {
		if b.Heights[i] != float32(seg.Start+i) {
			t.Errorf("slot %d: expected height %d, got %f", i, seg.Start+i, b.Heights[i])
		}
		if b.Modes[i] != ModeDisplacement {
			t.Errorf("slot %d: expected mode carried, got %v", i, b.Modes[i])
		}
	}
}

func TestBuffers_WorldXZAppliesTransform(t *testing.T) {
	b := NewBuffers(2)
	seg := Segment{Owner: 1, Start: 0, Length: 1}
	b.Write(seg, Request{
		Transform: mgl32.Translate3D(10, 5, -4).Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(90))),
		Positions: []mgl32.Vec3{{1, 0, 0}},
	})

	x, z := b.WorldXZ(0)
	// Rotating +X by 90 degrees about Y gives -Z
	if abs32(x-10) > 1e-5 || abs32(z-(-5)) > 1e-5 {
		t.Errorf("expected (10, -5), got (%f, %f)", x, z)
	}

	// Zero transform means identity
	b.Write(Segment{Owner: 2, Start: 1, Length: 1}, Request{Positions: []mgl32.Vec3{{3, 1, 4}}})
	x, z = b.WorldXZ(1)
	if x != 3 || z != 4 {
		t.Errorf("expected identity transform (3, 4), got (%f, %f)", x, z)
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
