package game

import (
	"log/slog"

	"github.com/pthm-cable/swell/server"
	"github.com/pthm-cable/swell/telemetry"
)

// flushTelemetry checks if the stats window should be flushed.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	st := g.engine.Stats()
	stats := g.collector.Flush(g.tick, g.probes.Heights(), telemetry.WindowStats{
		Probes:        g.probes.Len(),
		ActiveSlots:   g.engine.HighWater(),
		GapSlots:      g.engine.Gaps(),
		WaveCount:     g.engine.SpectrumLen(),
		Compactions:   st.Compactions,
		ReserveFailed: st.CapacityFailures,
	})
	perfStats := g.perfCollector.Stats()

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}

// broadcast sends the probe state to observers every BroadcastEvery ticks.
func (g *Game) broadcast() {
	if g.hub == nil {
		return
	}
	every := int32(max(g.cfg.Server.BroadcastEvery, 1))
	if g.tick%every != 0 {
		return
	}

	samples := g.probes.Samples(g.cfg.Server.MaxProbesFrame)
	submerged := 0
	for _, s := range samples {
		if s.Submerged {
			submerged++
		}
	}

	frame := server.Frame{
		Tick:      g.tick,
		Time:      g.simTime,
		SeaLevel:  g.cfg.Derived.SeaLevel32,
		Waves:     g.engine.SpectrumLen(),
		Submerged: submerged,
		Probes:    samples,
	}
	if _, err := g.hub.Broadcast(frame); err != nil {
		slog.Error("failed to broadcast frame", "tick", g.tick, "error", err)
	}
}
