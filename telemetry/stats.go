package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated sea-state statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Engine state at window end
	Probes        int `csv:"probes"`
	ActiveSlots   int `csv:"active_slots"`
	GapSlots      int `csv:"gap_slots"`
	WaveCount     int `csv:"waves"`
	Compactions   int `csv:"compactions"`
	ReserveFailed int `csv:"reserve_failed"`

	// Surface heights sampled at window end
	HeightMean float64 `csv:"height_mean"`
	HeightStd  float64 `csv:"height_std"`
	HeightP10  float64 `csv:"height_p10"`
	HeightP50  float64 `csv:"height_p50"`
	HeightP90  float64 `csv:"height_p90"`

	// Significant wave height estimate, 4 standard deviations
	Hs float64 `csv:"hs"`

	// Events during window
	Submerged int `csv:"submerged"`
	Surfaced  int `csv:"surfaced"`
}

// ComputeHeightStats returns mean, standard deviation and percentiles of
// sampled heights. Returns zeros for an empty slice.
func ComputeHeightStats(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.LinInterp, sorted, nil)
	p50 = stat.Quantile(0.50, stat.LinInterp, sorted, nil)
	p90 = stat.Quantile(0.90, stat.LinInterp, sorted, nil)

	return mean, std, p10, p50, p90
}

// Collector accumulates events and height samples between flushes.
type Collector struct {
	windowTicks int32
	dt          float32
	startTick   int32

	submerged int
	surfaced  int
}

// NewCollector creates a collector flushing every windowTicks ticks.
func NewCollector(windowTicks int32, dt float32) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks, dt: dt}
}

// RecordEvents counts surface crossings.
func (c *Collector) RecordEvents(events []Event) {
	for _, e := range events {
		switch e.Type {
		case EventSubmerged:
			c.submerged++
		case EventSurfaced:
			c.surfaced++
		}
	}
}

// ShouldFlush reports whether the window ending at tick is complete.
func (c *Collector) ShouldFlush(tick int32) bool {
	return tick-c.startTick >= c.windowTicks
}

// Flush builds the window stats from end-of-window samples and resets the counters.
// base carries the engine-state fields, which are copied through.
func (c *Collector) Flush(tick int32, heights []float64, base WindowStats) WindowStats {
	s := base
	s.WindowStartTick = c.startTick
	s.WindowEndTick = tick
	s.SimTimeSec = float64(tick) * float64(c.dt)
	s.HeightMean, s.HeightStd, s.HeightP10, s.HeightP50, s.HeightP90 = ComputeHeightStats(heights)
	s.Hs = 4 * s.HeightStd
	s.Submerged = c.submerged
	s.Surfaced = c.surfaced

	c.startTick = tick
	c.submerged = 0
	c.surfaced = 0
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("probes", s.Probes),
		slog.Int("active_slots", s.ActiveSlots),
		slog.Int("gap_slots", s.GapSlots),
		slog.Int("waves", s.WaveCount),
		slog.Int("compactions", s.Compactions),
		slog.Int("reserve_failed", s.ReserveFailed),
		slog.Float64("height_mean", s.HeightMean),
		slog.Float64("height_std", s.HeightStd),
		slog.Float64("height_p10", s.HeightP10),
		slog.Float64("height_p50", s.HeightP50),
		slog.Float64("height_p90", s.HeightP90),
		slog.Float64("hs", s.Hs),
		slog.Int("submerged", s.Submerged),
		slog.Int("surfaced", s.Surfaced),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"probes", s.Probes,
		"active_slots", s.ActiveSlots,
		"gap_slots", s.GapSlots,
		"hs", s.Hs,
		"submerged", s.Submerged,
		"surfaced", s.Surfaced,
	)
}
