// Package engine is the wave-field query engine: it owns the spectrum store,
// the shared query buffers and their segment registry, and schedules one
// data-parallel evaluation pass per tick.
//
// The engine is driven from a single goroutine. Safety between that goroutine
// and an in-flight pass comes from a join barrier, not locks: every operation
// that mutates or reads the shared buffers first waits for the pass.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swell/config"
	"github.com/pthm-cable/swell/query"
	"github.com/pthm-cable/swell/spectrum"
	"github.com/pthm-cable/swell/wavefield"
)

var (
	// ErrPassInFlight is returned when scheduling while a pass is outstanding.
	ErrPassInFlight = errors.New("engine: evaluation pass in flight")
	// ErrSpectrumOpen is returned when scheduling between BeginSpectrumUpdate and EndSpectrumUpdate.
	ErrSpectrumOpen = errors.New("engine: spectrum update in progress")
	// ErrShortBuffer is returned when a retrieve destination is smaller than the segment.
	ErrShortBuffer = errors.New("engine: output buffer shorter than segment")
)

// State is the lifecycle state of an Engine.
type State uint8

const (
	StateUninitialized State = iota
	StateIdle
	StateScheduled
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// Options configures an Engine. The zero value is usable.
type Options struct {
	Dispatcher          Dispatcher // nil = worker pool sized by Workers/BatchSize
	Workers             int
	BatchSize           int
	Gravity             float32
	InversionIterations int
	SeaLevel            float32
	WindDirectionDeg    float32
	Logger              *slog.Logger
}

// OptionsFromConfig maps loaded configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Workers:             cfg.Engine.Workers,
		BatchSize:           cfg.Engine.BatchSize,
		Gravity:             cfg.Derived.Gravity32,
		InversionIterations: cfg.Engine.InversionIterations,
		SeaLevel:            cfg.Derived.SeaLevel32,
		WindDirectionDeg:    cfg.Derived.WindDir32,
	}
}

// Stats summarizes engine activity since Initialize.
type Stats struct {
	Passes           int
	LastPassSlots    int
	LastPassDuration time.Duration
	CapacityFailures int
	Compactions      int
	SpectrumDropped  int // components refused by the last spectrum update
}

// LogValue implements slog.LogValuer for structured logging.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("passes", s.Passes),
		slog.Int("last_pass_slots", s.LastPassSlots),
		slog.Int64("last_pass_us", s.LastPassDuration.Microseconds()),
		slog.Int("capacity_failures", s.CapacityFailures),
		slog.Int("compactions", s.Compactions),
		slog.Int("spectrum_dropped", s.SpectrumDropped),
	)
}

// Engine is the query engine. Create with New, then Initialize.
type Engine struct {
	opts  Options
	log   *slog.Logger
	state State

	dispatcher Dispatcher
	store      *spectrum.Store
	registry   *query.Registry
	buffers    *query.Buffers

	updating bool
	refused  int

	time     float32
	seaLevel float32
	windDeg  float32

	passStart time.Time
	passSlots int
	stats     Stats
}

// New creates an uninitialized engine.
func New(opts Options) *Engine {
	if opts.Gravity == 0 {
		opts.Gravity = 9.81
	}
	if opts.InversionIterations <= 0 {
		opts.InversionIterations = wavefield.DefaultIterations
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		opts:     opts,
		log:      log,
		seaLevel: opts.SeaLevel,
		windDeg:  opts.WindDirectionDeg,
	}
}

func (e *Engine) mustBeInitialized(op string) {
	if e.state == StateUninitialized {
		panic(fmt.Sprintf("engine: %s called on uninitialized engine", op))
	}
}

// Initialize allocates every fixed-size buffer. Calling it again without
// Teardown panics.
func (e *Engine) Initialize(queryCapacity, maxWaveComponents int) {
	if e.state != StateUninitialized {
		panic("engine: Initialize called twice without Teardown")
	}
	if queryCapacity <= 0 || maxWaveComponents <= 0 {
		panic(fmt.Sprintf("engine: invalid capacities query=%d components=%d", queryCapacity, maxWaveComponents))
	}

	e.store = spectrum.NewStore(maxWaveComponents, e.opts.Gravity)
	e.registry = query.NewRegistry(queryCapacity)
	e.buffers = query.NewBuffers(queryCapacity)

	e.dispatcher = e.opts.Dispatcher
	if e.dispatcher == nil {
		e.dispatcher = NewPool(e.opts.Workers, e.opts.BatchSize)
	}

	// Publish an empty spectrum so a pass before the first update is flat
	e.store.Begin(e.time, e.windDeg)
	e.store.End()

	e.updating = false
	e.stats = Stats{}
	e.state = StateIdle

	e.log.Info("engine initialized",
		"query_capacity", queryCapacity,
		"wave_capacity", e.store.Capacity(),
		"inversion_iterations", e.opts.InversionIterations,
	)
}

// Teardown waits for any pass, stops the dispatcher and releases all buffers.
func (e *Engine) Teardown() {
	e.mustBeInitialized("Teardown")
	e.Synchronize()
	e.dispatcher.Close()

	e.dispatcher = nil
	e.store = nil
	e.registry = nil
	e.buffers = nil
	e.updating = false
	e.state = StateUninitialized
}

// State returns the lifecycle state.
func (e *Engine) State() State { return e.state }

// Stats returns activity counters.
func (e *Engine) Stats() Stats { return e.stats }

// SetTime sets the simulation time used by the next spectrum update.
func (e *Engine) SetTime(t float32) { e.time = t }

// SetSeaLevel sets the sea level added to heights by the next pass.
func (e *Engine) SetSeaLevel(h float32) { e.seaLevel = h }

// SetWindDirection sets the global wind angle, in degrees, added to every
// component angle by the next spectrum update.
func (e *Engine) SetWindDirection(deg float32) { e.windDeg = deg }

// BeginSpectrumUpdate starts rebuilding the spectrum.
func (e *Engine) BeginSpectrumUpdate() {
	e.mustBeInitialized("BeginSpectrumUpdate")
	e.Synchronize()
	e.store.Begin(e.time, e.windDeg)
	e.updating = true
	e.refused = 0
}

// AddComponent appends one spectral line. It returns false without effect
// when the store is full or the wavelength is not positive.
func (e *Engine) AddComponent(wavelength, amplitude, angleDeg, phase, chopScale, gravityScale float32) bool {
	e.mustBeInitialized("AddComponent")
	if !e.updating {
		panic("engine: AddComponent called outside BeginSpectrumUpdate/EndSpectrumUpdate")
	}
	if !e.store.Add(wavelength, amplitude, angleDeg, phase, chopScale, gravityScale) {
		e.refused++
		return false
	}
	return true
}

// EndSpectrumUpdate pads and publishes the spectrum.
func (e *Engine) EndSpectrumUpdate() {
	e.mustBeInitialized("EndSpectrumUpdate")
	if !e.updating {
		return
	}
	e.store.End()
	e.updating = false
	e.stats.SpectrumDropped = e.refused
	if e.refused > 0 {
		e.log.Warn("spectrum components refused",
			"refused", e.refused,
			"stored", e.store.Len(),
			"capacity", e.store.Capacity(),
		)
	}
}

// IngestSpectrum rebuilds the spectrum from a description at the current
// time and returns the number of components stored.
func (e *Engine) IngestSpectrum(d *spectrum.Description) int {
	e.BeginSpectrumUpdate()
	if n, ok := d.Ingest(e.store); !ok {
		e.refused = d.Len() - n
	}
	e.EndSpectrumUpdate()
	return e.store.Len()
}

// SpectrumLen returns the number of stored components.
func (e *Engine) SpectrumLen() int {
	e.mustBeInitialized("SpectrumLen")
	return e.store.Len()
}

// Reserve claims or reuses the segment for owner and writes the request into it.
// On failure the registry and buffers are unchanged.
func (e *Engine) Reserve(owner query.OwnerID, req query.Request) error {
	e.mustBeInitialized("Reserve")
	e.Synchronize()

	seg, err := e.registry.Reserve(owner, len(req.Positions))
	if err != nil {
		e.stats.CapacityFailures++
		e.log.Warn("query segment reservation failed",
			"owner", uint64(owner),
			"count", len(req.Positions),
			"high_water", e.registry.HighWater(),
			"capacity", e.registry.Capacity(),
			"gaps", e.registry.Gaps(),
			"error", err,
		)
		return fmt.Errorf("reserving %d slots for owner %d: %w", len(req.Positions), owner, err)
	}

	e.buffers.Write(seg, req)
	return nil
}

// ReserveQuerySegment submits world-space positions for true-height queries.
func (e *Engine) ReserveQuerySegment(owner query.OwnerID, positions []mgl32.Vec3) error {
	return e.Reserve(owner, query.Request{Mode: query.ModeHeight, Positions: positions})
}

// ReserveTransformedQuerySegment submits local positions and the owner's
// local-to-world transform for true-height queries.
func (e *Engine) ReserveTransformedQuerySegment(owner query.OwnerID, transform mgl32.Mat4, local []mgl32.Vec3) error {
	return e.Reserve(owner, query.Request{Mode: query.ModeHeight, Transform: transform, Positions: local})
}

// ReleaseQuerySegment drops the segment of owner, leaving a gap until compaction.
func (e *Engine) ReleaseQuerySegment(owner query.OwnerID) error {
	e.mustBeInitialized("ReleaseQuerySegment")
	e.Synchronize()
	return e.registry.Release(owner)
}

// CompactQuerySegments removes the gaps left by released segments. Data and
// last results move with their owners; slot indices obtained earlier are invalid.
func (e *Engine) CompactQuerySegments() {
	e.mustBeInitialized("CompactQuerySegments")
	e.Synchronize()

	before := e.registry.HighWater()
	for _, m := range e.registry.Compact() {
		e.buffers.Move(m)
	}
	e.stats.Compactions++
	e.log.Debug("query segments compacted", "high_water_before", before, "high_water", e.registry.HighWater())
}

// Segment returns the segment currently held by owner.
func (e *Engine) Segment(owner query.OwnerID) (query.Segment, bool) {
	e.mustBeInitialized("Segment")
	return e.registry.Lookup(owner)
}

// HighWater returns the end of the active slot range.
func (e *Engine) HighWater() int {
	e.mustBeInitialized("HighWater")
	return e.registry.HighWater()
}

// Gaps returns the number of released slots below the high-water mark.
func (e *Engine) Gaps() int {
	e.mustBeInitialized("Gaps")
	return e.registry.Gaps()
}

// QueryCapacity returns the slot capacity.
func (e *Engine) QueryCapacity() int {
	e.mustBeInitialized("QueryCapacity")
	return e.registry.Capacity()
}

// ScheduleEvaluation launches a pass over [0, HighWater). It never queues a
// second pass: ErrPassInFlight means the caller must Synchronize first. With no
// active slots it succeeds without doing anything.
func (e *Engine) ScheduleEvaluation() error {
	e.mustBeInitialized("ScheduleEvaluation")
	if e.state == StateScheduled {
		return ErrPassInFlight
	}
	if e.updating {
		return ErrSpectrumOpen
	}

	n := e.registry.HighWater()
	if n == 0 {
		return nil
	}

	p := &pass{
		view:    e.store.View(),
		buffers: e.buffers,
		solver:  wavefield.Solver{Iterations: e.opts.InversionIterations, SeaLevel: e.seaLevel},
	}

	e.state = StateScheduled
	e.passStart = time.Now()
	e.passSlots = n
	e.dispatcher.Dispatch(n, p.run)
	return nil
}

// Synchronize blocks until the in-flight pass, if any, has completed.
func (e *Engine) Synchronize() {
	e.mustBeInitialized("Synchronize")
	if e.state != StateScheduled {
		return
	}
	e.dispatcher.Wait()
	e.state = StateIdle

	e.stats.Passes++
	e.stats.LastPassSlots = e.passSlots
	e.stats.LastPassDuration = time.Since(e.passStart)
}

// RetrieveHeights copies the last computed heights of owner's segment into out.
func (e *Engine) RetrieveHeights(owner query.OwnerID, out []float32) error {
	e.mustBeInitialized("RetrieveHeights")
	e.Synchronize()

	seg, ok := e.registry.Lookup(owner)
	if !ok {
		return query.ErrUnknownOwner
	}
	if len(out) < seg.Length {
		return ErrShortBuffer
	}
	copy(out, e.buffers.Heights[seg.Start:seg.End()])
	return nil
}

// RetrieveDisplacements copies the last computed displacement results of
// owner's segment into out. Only ModeDisplacement and ModeUndisplaced slots
// produce displacement results.
func (e *Engine) RetrieveDisplacements(owner query.OwnerID, out []mgl32.Vec3) error {
	e.mustBeInitialized("RetrieveDisplacements")
	e.Synchronize()

	seg, ok := e.registry.Lookup(owner)
	if !ok {
		return query.ErrUnknownOwner
	}
	if len(out) < seg.Length {
		return ErrShortBuffer
	}
	copy(out, e.buffers.Displacements[seg.Start:seg.End()])
	return nil
}
