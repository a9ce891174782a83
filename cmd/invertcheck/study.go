package main

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/swell/config"
	"github.com/pthm-cable/swell/spectrum"
	"github.com/pthm-cable/swell/wavefield"
)

// Row is one line of the study: the fixed-point solver at a given chop and
// iteration count compared against a numerical minimizer.
type Row struct {
	Chop          float64 `csv:"chop"`
	Iterations    int     `csv:"iterations"`
	Samples       int     `csv:"samples"`
	MeanPosErr    float64 `csv:"mean_pos_err"`
	MaxPosErr     float64 `csv:"max_pos_err"`
	MeanHeightErr float64 `csv:"mean_height_err"`
	MaxHeightErr  float64 `csv:"max_height_err"`
	FixedResidual float64 `csv:"fixed_residual"` // Mean |r + D(r) - w| of the fixed-point answer
	OptResidual   float64 `csv:"opt_residual"`   // Same for the minimizer
	OptFailures   int     `csv:"opt_failures"`
}

// Study holds the spectrum and sample points shared by every row.
type Study struct {
	cfg     config.SpectrumConfig
	gravity float64
	time    float32
	wind    float32
	points  [][2]float32
	evals   int
}

// NewStudy draws samples world positions inside a square of side area.
func NewStudy(cfg config.SpectrumConfig, gravity float64, time, wind float32, samples int, area float64, seed uint64, evals int) *Study {
	rng := rand.New(rand.NewPCG(seed, 1))
	pts := make([][2]float32, samples)
	for i := range pts {
		pts[i] = [2]float32{
			float32((rng.Float64()*2 - 1) * area / 2),
			float32((rng.Float64()*2 - 1) * area / 2),
		}
	}
	return &Study{cfg: cfg, gravity: gravity, time: time, wind: wind, points: pts, evals: evals}
}

// view builds the spectrum with every octave at the given chop.
func (s *Study) view(chop float64) spectrum.View {
	cfg := s.cfg
	cfg.ChopScales = make([]float64, cfg.Octaves)
	for i := range cfg.ChopScales {
		cfg.ChopScales[i] = chop
	}

	d := spectrum.NewDescription(cfg, s.gravity)
	store := spectrum.NewStore(max(d.Len(), 1), float32(s.gravity))
	store.Begin(s.time, s.wind)
	d.Ingest(store)
	store.End()
	return store.View()
}

func residual(v spectrum.View, rx, rz, wx, wz float64) float64 {
	dx, dz := wavefield.Horizontal(v, float32(rx), float32(rz))
	ex := rx + float64(dx) - wx
	ez := rz + float64(dz) - wz
	return math.Hypot(ex, ez)
}

// Run evaluates one row.
func (s *Study) Run(chop float64, iterations int) Row {
	v := s.view(chop)
	solver := wavefield.Solver{Iterations: iterations}
	row := Row{Chop: chop, Iterations: iterations, Samples: len(s.points)}

	for _, p := range s.points {
		wx, wz := float64(p[0]), float64(p[1])
		fx, fz := solver.Undisplaced(v, p[0], p[1])

		problem := optimize.Problem{
			Func: func(x []float64) float64 {
				r := residual(v, x[0], x[1], wx, wz)
				return r * r
			},
		}
		settings := &optimize.Settings{FuncEvaluations: s.evals}

		// Start from the fixed-point answer so the minimizer can only improve on it
		ox, oz := float64(fx), float64(fz)
		result, err := optimize.Minimize(problem, []float64{ox, oz}, settings, &optimize.NelderMead{})
		if err != nil {
			row.OptFailures++
		}
		if result != nil {
			ox, oz = result.X[0], result.X[1]
		}

		posErr := math.Hypot(float64(fx)-ox, float64(fz)-oz)
		fh := float64(wavefield.Vertical(v, fx, fz))
		oh := float64(wavefield.Vertical(v, float32(ox), float32(oz)))
		heightErr := math.Abs(fh - oh)

		row.MeanPosErr += posErr
		row.MaxPosErr = math.Max(row.MaxPosErr, posErr)
		row.MeanHeightErr += heightErr
		row.MaxHeightErr = math.Max(row.MaxHeightErr, heightErr)
		row.FixedResidual += residual(v, float64(fx), float64(fz), wx, wz)
		row.OptResidual += residual(v, ox, oz, wx, wz)
	}

	if n := float64(len(s.points)); n > 0 {
		row.MeanPosErr /= n
		row.MeanHeightErr /= n
		row.FixedResidual /= n
		row.OptResidual /= n
	}
	return row
}
