// Package game runs the headless host loop: it drives the wave-field engine
// once per tick on behalf of a population of floating probes.
package game

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/pthm-cable/swell/config"
	"github.com/pthm-cable/swell/engine"
	"github.com/pthm-cable/swell/probes"
	"github.com/pthm-cable/swell/server"
	"github.com/pthm-cable/swell/spectrum"
	"github.com/pthm-cable/swell/telemetry"
)

// Options configures a Game.
type Options struct {
	Config    *config.Config // nil = config.Cfg()
	Seed      int64          // Probe RNG seed; 0 = time-based
	LogStats  bool
	OutputDir string
	ServeAddr string      // Overrides cfg.Server.Addr when set
	Hub       *server.Hub // Broadcast to an existing hub instead of listening
	Inline    bool        // Evaluate passes on the calling goroutine
}

// Game owns the engine and everything that feeds it.
type Game struct {
	cfg *config.Config
	rng *rand.Rand

	engine      *engine.Engine
	description *spectrum.Description
	probes      *probes.System

	perfCollector *telemetry.PerfCollector
	collector     *telemetry.Collector
	outputManager *telemetry.OutputManager
	logStats      bool
	lastPasses    int

	hub        *server.Hub
	httpServer *http.Server

	tick    int32
	simTime float32
}

// NewGameWithOptions builds the engine, the spectrum description and the
// initial probe population.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	engOpts := engine.OptionsFromConfig(cfg)
	if opts.Inline {
		engOpts.Dispatcher = engine.Inline{}
	}
	eng := engine.New(engOpts)
	eng.Initialize(cfg.Engine.QueryCapacity, cfg.Engine.MaxWaveComponents)

	description := spectrum.NewDescription(cfg.Spectrum, cfg.Ocean.Gravity)
	if description.Len() > cfg.Engine.MaxWaveComponents {
		slog.Warn("spectrum description exceeds wave capacity",
			"components", description.Len(),
			"capacity", cfg.Engine.MaxWaveComponents,
		)
	}

	outputManager, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		eng.Teardown()
		return nil, err
	}
	if err := outputManager.WriteConfig(cfg); err != nil {
		eng.Teardown()
		outputManager.Close()
		return nil, err
	}

	g := &Game{
		cfg:           cfg,
		rng:           rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>17|1)),
		engine:        eng,
		description:   description,
		probes:        probes.NewSystem(cfg.Probes, uint64(seed)),
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		collector:     telemetry.NewCollector(int32(cfg.Telemetry.LogInterval), cfg.Derived.DT32),
		outputManager: outputManager,
		logStats:      opts.LogStats,
		hub:           opts.Hub,
	}

	addr := cfg.Server.Addr
	if opts.ServeAddr != "" {
		addr = opts.ServeAddr
	}
	if g.hub == nil && addr != "" {
		g.hub = server.NewHub()
		g.httpServer = server.Serve(addr, g.hub)
	}

	g.probes.Spawn(cfg.Probes.Count)
	return g, nil
}

// UpdateHeadless runs a single tick.
func (g *Game) UpdateHeadless() {
	g.simulationStep()
}

// simulationStep runs one engine cycle: rebuild the spectrum, submit
// queries, evaluate and read back.
func (g *Game) simulationStep() {
	dt := g.cfg.Derived.DT32
	g.perfCollector.StartTick()

	// 1. Spectrum at the current time
	g.perfCollector.StartPhase(telemetry.PhaseSpectrum)
	g.engine.SetTime(g.simTime)
	g.engine.IngestSpectrum(g.description)

	// 2. Move probes, replace some, submit segments
	g.perfCollector.StartPhase(telemetry.PhaseSubmit)
	g.probes.Drift(dt)
	g.churn()
	failed := g.probes.Submit(g.engine)

	// 3. Reclaim gaps under capacity pressure and retry the rejected probes
	g.perfCollector.StartPhase(telemetry.PhaseCompact)
	if g.shouldCompact(failed) {
		g.engine.CompactQuerySegments()
		if failed > 0 {
			failed = g.probes.Submit(g.engine)
		}
		if failed > 0 {
			slog.Warn("probes rejected after compaction", "tick", g.tick, "failed", failed)
		}
	}

	// 4. Launch the pass
	g.perfCollector.StartPhase(telemetry.PhaseSchedule)
	if err := g.engine.ScheduleEvaluation(); err != nil {
		slog.Error("failed to schedule evaluation", "tick", g.tick, "error", err)
	}

	// 5. Join
	g.perfCollector.StartPhase(telemetry.PhaseSynchronize)
	g.engine.Synchronize()
	if st := g.engine.Stats(); st.Passes > g.lastPasses {
		g.perfCollector.RecordPass(st.LastPassSlots, st.LastPassDuration)
		g.lastPasses = st.Passes
	}

	// 6. Read back
	g.perfCollector.StartPhase(telemetry.PhaseCollect)
	events := g.probes.Collect(g.engine, g.tick)
	g.collector.RecordEvents(events)

	// 7. Output
	g.perfCollector.StartPhase(telemetry.PhaseOutput)
	if err := g.outputManager.WriteEvents(events); err != nil {
		slog.Error("failed to write events", "error", err)
	}
	g.broadcast()

	g.perfCollector.EndTick()

	g.tick++
	g.simTime += dt

	g.flushTelemetry()
}

// churn replaces one probe with a fresh one at the configured rate, leaving
// a released segment behind for compaction.
func (g *Game) churn() {
	if g.cfg.Probes.ChurnChance <= 0 || g.probes.Len() == 0 {
		return
	}
	if g.rng.Float64() >= g.cfg.Probes.ChurnChance {
		return
	}
	if err := g.probes.Despawn(g.engine, 1); err != nil {
		slog.Warn("probe release failed", "tick", g.tick, "error", err)
	}
	g.probes.Spawn(1)
}

func (g *Game) shouldCompact(failed int) bool {
	gaps := g.engine.Gaps()
	if gaps == 0 {
		return false
	}
	if failed > 0 {
		return true
	}
	threshold := g.cfg.Engine.CompactThreshold
	return threshold > 0 && gaps > threshold
}

// Engine returns the query engine.
func (g *Game) Engine() *engine.Engine { return g.engine }

// Probes returns the probe system.
func (g *Game) Probes() *probes.System { return g.probes }

// Perf returns the rolling performance stats.
func (g *Game) Perf() telemetry.PerfStats { return g.perfCollector.Stats() }

// Tick returns the number of completed ticks.
func (g *Game) Tick() int32 { return g.tick }

// Unload releases engine buffers and closes output and observers.
func (g *Game) Unload() {
	g.engine.Teardown()

	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}

	if g.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to stop observer server", "error", err)
		}
		g.hub.Close()
	}
}
