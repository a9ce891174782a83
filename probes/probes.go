// Package probes runs a population of floating sample probes in an ECS world.
// Each probe owns one query segment: a ring of sample points around its hull
// submitted in probe-local space together with its transform.
package probes

import (
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/swell/components"
	"github.com/pthm-cable/swell/config"
	"github.com/pthm-cable/swell/query"
	"github.com/pthm-cable/swell/telemetry"
)

// Sampler is the part of the engine probes use.
type Sampler interface {
	ReserveTransformedQuerySegment(owner query.OwnerID, transform mgl32.Mat4, local []mgl32.Vec3) error
	ReleaseQuerySegment(owner query.OwnerID) error
	RetrieveHeights(owner query.OwnerID, out []float32) error
}

// Sample is the per-probe state published to observers.
type Sample struct {
	ID        uint32  `json:"id"`
	X         float32 `json:"x"`
	Z         float32 `json:"z"`
	Heading   float32 `json:"heading"`
	Height    float32 `json:"height"`
	Depth     float32 `json:"depth"`
	Submerged bool    `json:"submerged"`
}

// System owns the probe world.
type System struct {
	cfg config.ProbesConfig
	rng *rand.Rand

	world  *ecs.World
	mapper *ecs.Map5[
		components.Position,
		components.Velocity,
		components.Body,
		components.Probe,
		components.Submersion,
	]
	filter *ecs.Filter5[
		components.Position,
		components.Velocity,
		components.Body,
		components.Probe,
		components.Submersion,
	]

	nextID  uint32
	count   int
	failed  int
	local   []mgl32.Vec3
	heights []float32
	sampled []float64
}

// NewSystem creates an empty probe world.
func NewSystem(cfg config.ProbesConfig, seed uint64) *System {
	world := ecs.NewWorld()
	maxPoints := max(2*cfg.PointsPerProbe, 1)
	return &System{
		cfg:   cfg,
		rng:   rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d)),
		world: world,
		mapper: ecs.NewMap5[
			components.Position,
			components.Velocity,
			components.Body,
			components.Probe,
			components.Submersion,
		](world),
		filter: ecs.NewFilter5[
			components.Position,
			components.Velocity,
			components.Body,
			components.Probe,
			components.Submersion,
		](world),
		nextID:  1,
		local:   make([]mgl32.Vec3, 0, maxPoints),
		heights: make([]float32, maxPoints),
	}
}

// Len returns the number of live probes.
func (s *System) Len() int { return s.count }

// Spawn adds n probes at random positions, drifting along random headings.
func (s *System) Spawn(n int) {
	half := float32(s.cfg.Area / 2)
	speed := float32(s.cfg.DriftSpeed)
	body := components.BodyFromConfig(s.cfg)

	for i := 0; i < n; i++ {
		heading := s.rng.Float32() * 2 * math.Pi
		pos := components.Position{
			X:       (s.rng.Float32()*2 - 1) * half,
			Z:       (s.rng.Float32()*2 - 1) * half,
			Heading: heading,
		}
		sin, cos := math.Sincos(float64(heading))
		vel := components.Velocity{X: speed * float32(cos), Z: speed * float32(sin)}
		probe := components.Probe{ID: s.nextID, Points: max(s.cfg.PointsPerProbe, 1)}
		sub := components.Submersion{Depth: -body.Freeboard}

		s.mapper.NewEntity(&pos, &vel, &body, &probe, &sub)
		s.nextID++
		s.count++
	}
}

// Despawn removes up to n probes, releasing their segments.
func (s *System) Despawn(sampler Sampler, n int) error {
	if n <= 0 {
		return nil
	}

	type victim struct {
		entity ecs.Entity
		owner  query.OwnerID
	}
	victims := make([]victim, 0, n)

	// Collect first; the world must not change while a query is open
	q := s.filter.Query()
	for q.Next() {
		if len(victims) < n {
			_, _, _, probe, _ := q.Get()
			victims = append(victims, victim{entity: q.Entity(), owner: probe.Owner()})
		}
	}

	var errs []error
	for _, v := range victims {
		if err := sampler.ReleaseQuerySegment(v.owner); err != nil && !errors.Is(err, query.ErrUnknownOwner) {
			errs = append(errs, err)
		}
		s.world.RemoveEntity(v.entity)
		s.count--
	}
	return errors.Join(errs...)
}

// Drift advances every probe by dt seconds, wrapping at the area edges, and
// occasionally changes a probe's sample count.
func (s *System) Drift(dt float32) {
	half := float32(s.cfg.Area / 2)
	maxPoints := len(s.heights)

	q := s.filter.Query()
	for q.Next() {
		pos, vel, _, probe, _ := q.Get()

		pos.X = wrap(pos.X+vel.X*dt, half)
		pos.Z = wrap(pos.Z+vel.Z*dt, half)
		pos.Heading = float32(math.Mod(float64(pos.Heading)+0.05*float64(dt), 2*math.Pi))

		if s.cfg.ResizeChance > 0 && s.rng.Float64() < s.cfg.ResizeChance {
			probe.Points = 1 + s.rng.IntN(maxPoints)
		}
	}
}

func wrap(v, half float32) float32 {
	if half <= 0 {
		return v
	}
	span := 2 * half
	for v >= half {
		v -= span
	}
	for v < -half {
		v += span
	}
	return v
}

// Submit reserves each probe's segment with its current ring and transform.
// Probes that do not fit are skipped this tick; the count is returned.
func (s *System) Submit(sampler Sampler) int {
	failed := 0

	q := s.filter.Query()
	for q.Next() {
		pos, _, body, probe, _ := q.Get()

		s.local = body.Ring(s.local, probe.Points)
		err := sampler.ReserveTransformedQuerySegment(probe.Owner(), components.Transform(*pos), s.local)
		probe.Submitted = err == nil
		if err != nil {
			failed++
		}
	}

	s.failed = failed
	return failed
}

// Failed returns the number of probes rejected by the last Submit.
func (s *System) Failed() int { return s.failed }

// Collect reads back every submitted probe and returns the surface crossings
// since the previous Collect.
func (s *System) Collect(sampler Sampler, tick int32) []telemetry.Event {
	var events []telemetry.Event
	s.sampled = s.sampled[:0]

	q := s.filter.Query()
	for q.Next() {
		pos, _, body, probe, sub := q.Get()
		if !probe.Submitted {
			continue
		}

		out := s.heights[:probe.Points]
		if err := sampler.RetrieveHeights(probe.Owner(), out); err != nil {
			slog.Warn("probe retrieve failed", "probe", probe.ID, "error", err)
			continue
		}

		var sum float32
		peak := out[0]
		for _, h := range out {
			sum += h
			peak = max(peak, h)
		}
		mean := sum / float32(len(out))
		s.sampled = append(s.sampled, float64(mean))

		wasSubmerged := sub.Submerged
		sub.MeanHeight = mean
		sub.MaxHeight = peak
		sub.Depth = peak - body.Freeboard
		sub.Submerged = sub.Depth > 0

		switch {
		case sub.Submerged && !wasSubmerged:
			events = append(events, telemetry.NewSubmergedEvent(tick, probe.ID, pos.X, pos.Z, sub.Depth))
		case !sub.Submerged && wasSubmerged:
			events = append(events, telemetry.NewSurfacedEvent(tick, probe.ID, pos.X, pos.Z, sub.Depth))
		}
	}

	return events
}

// Heights returns the mean surface height of each probe read by the last Collect.
// The slice is reused by the next Collect.
func (s *System) Heights() []float64 { return s.sampled }

// Samples returns the state of up to limit probes (all when limit <= 0).
func (s *System) Samples(limit int) []Sample {
	out := make([]Sample, 0, s.count)

	q := s.filter.Query()
	for q.Next() {
		if limit > 0 && len(out) >= limit {
			continue
		}
		pos, _, _, probe, sub := q.Get()
		out = append(out, Sample{
			ID:        probe.ID,
			X:         pos.X,
			Z:         pos.Z,
			Heading:   pos.Heading,
			Height:    sub.MeanHeight,
			Depth:     sub.Depth,
			Submerged: sub.Submerged,
		})
	}
	return out
}
