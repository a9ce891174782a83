package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for the driver tick.
const (
	PhaseSpectrum    = "spectrum"
	PhaseSubmit      = "submit"
	PhaseCompact     = "compact"
	PhaseSchedule    = "schedule"
	PhaseSynchronize = "synchronize"
	PhaseCollect     = "collect"
	PhaseOutput      = "output"
)

var phases = []string{
	PhaseSpectrum, PhaseSubmit, PhaseCompact, PhaseSchedule,
	PhaseSynchronize, PhaseCollect, PhaseOutput,
}

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration

	// Evaluation pass, zero when none ran this tick
	PassDuration time.Duration
	PassSlots    int
}

// PerfCollector tracks performance metrics over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	currentPass   time.Duration
	currentSlots  int
	tickStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of ticks to average over (e.g., 60 for 1 second at 60Hz).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTick begins timing a new driver tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.currentPass = 0
	p.currentSlots = 0
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	// End previous phase if any
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// RecordPass attaches the evaluation pass of the current tick, as measured
// by the engine from schedule to synchronize.
func (p *PerfCollector) RecordPass(slots int, d time.Duration) {
	p.currentSlots = slots
	p.currentPass = d
}

// EndTick finishes timing the current tick and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	// End final phase
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		TickDuration: now.Sub(p.tickStart),
		Phases:       p.currentPhases,
		PassDuration: p.currentPass,
		PassSlots:    p.currentSlots,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Tick timing
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total tick time
	PhasePct map[string]float64

	// Throughput
	TicksPerSecond float64

	// Evaluation passes
	AvgPassDuration time.Duration
	AvgPassSlots    float64
	SlotsPerSecond  float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var totalTick, totalPass time.Duration
	var minTick, maxTick time.Duration
	var totalSlots, passes int
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalTick += s.TickDuration

		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		if s.TickDuration > maxTick {
			maxTick = s.TickDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}

		if s.PassSlots > 0 {
			passes++
			totalPass += s.PassDuration
			totalSlots += s.PassSlots
		}
	}

	avgTick := totalTick / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avgTick > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avgTick) * 100
		}
	}

	var ticksPerSec float64
	if avgTick > 0 {
		ticksPerSec = float64(time.Second) / float64(avgTick)
	}

	stats := PerfStats{
		AvgTickDuration: avgTick,
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		TicksPerSecond:  ticksPerSec,
	}
	if passes > 0 {
		stats.AvgPassDuration = totalPass / time.Duration(passes)
		stats.AvgPassSlots = float64(totalSlots) / float64(passes)
		if totalPass > 0 {
			stats.SlotsPerSecond = float64(totalSlots) / totalPass.Seconds()
		}
	}
	return stats
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"min_tick_us", s.MinTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
		"avg_pass_us", s.AvgPassDuration.Microseconds(),
		"avg_pass_slots", int(s.AvgPassSlots),
	}

	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
		slog.Int64("avg_pass_us", s.AvgPassDuration.Microseconds()),
		slog.Float64("slots_per_sec", s.SlotsPerSecond),
	}

	for phase, pct := range s.PhasePct {
		attrs = append(attrs, slog.Float64(phase+"_pct", pct))
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd      int32   `csv:"window_end"`
	AvgTickUS      int64   `csv:"avg_tick_us"`
	MinTickUS      int64   `csv:"min_tick_us"`
	MaxTickUS      int64   `csv:"max_tick_us"`
	TicksPerSec    float64 `csv:"ticks_per_sec"`
	AvgPassUS      int64   `csv:"avg_pass_us"`
	AvgPassSlots   float64 `csv:"avg_pass_slots"`
	SlotsPerSec    float64 `csv:"slots_per_sec"`
	SpectrumPct    float64 `csv:"spectrum_pct"`
	SubmitPct      float64 `csv:"submit_pct"`
	CompactPct     float64 `csv:"compact_pct"`
	SchedulePct    float64 `csv:"schedule_pct"`
	SynchronizePct float64 `csv:"synchronize_pct"`
	CollectPct     float64 `csv:"collect_pct"`
	OutputPct      float64 `csv:"output_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:      windowEnd,
		AvgTickUS:      s.AvgTickDuration.Microseconds(),
		MinTickUS:      s.MinTickDuration.Microseconds(),
		MaxTickUS:      s.MaxTickDuration.Microseconds(),
		TicksPerSec:    s.TicksPerSecond,
		AvgPassUS:      s.AvgPassDuration.Microseconds(),
		AvgPassSlots:   s.AvgPassSlots,
		SlotsPerSec:    s.SlotsPerSecond,
		SpectrumPct:    s.PhasePct[PhaseSpectrum],
		SubmitPct:      s.PhasePct[PhaseSubmit],
		CompactPct:     s.PhasePct[PhaseCompact],
		SchedulePct:    s.PhasePct[PhaseSchedule],
		SynchronizePct: s.PhasePct[PhaseSynchronize],
		CollectPct:     s.PhasePct[PhaseCollect],
		OutputPct:      s.PhasePct[PhaseOutput],
	}
}
