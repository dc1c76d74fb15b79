package bootstrap

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Outcome is the raw result of one bootstrap run.
type Outcome struct {
	Proportion float64
	Exceeded   int
	Iterations int
}

// ResampleSize is the irrelevant draw size: fraction of n rounded, at least 1.
func ResampleSize(n int, fraction float64) int {
	return max(1, int(math.Round(fraction*float64(n))))
}

// BAD runs the bootstrapped amplitude difference: the proportion of
// iterations in which a resampled probe mean exceeds a resampled irrelevant
// mean. The probe draw keeps the probe count; the irrelevant draw is scaled
// by the configured fraction.
func (c *Classifier) BAD(probe, irrelevant []float64, rng *rand.Rand) (Outcome, error) {
	if err := checkScalars(model.CategoryProbe, probe); err != nil {
		return Outcome{}, err
	}
	if err := checkScalars(model.CategoryIrrelevant, irrelevant); err != nil {
		return Outcome{}, err
	}

	nIrr := ResampleSize(len(irrelevant), c.cfg.IrrelevantFraction)
	out := Outcome{Iterations: c.cfg.Iterations}
	for k := 0; k < c.cfg.Iterations; k++ {
		mp := resampleMean(probe, len(probe), rng)
		mi := resampleMean(irrelevant, nIrr, rng)
		if mp-mi > 0 {
			out.Exceeded++
		}
	}
	out.Proportion = float64(out.Exceeded) / float64(out.Iterations)
	return out, nil
}

// BCD runs the bootstrapped correlation difference. Each iteration averages
// resampled probe, target and irrelevant waveforms, removes the across-
// category mean at every time point, and scores corr(P,T) - corr(P,I).
func (c *Classifier) BCD(probe, target, irrelevant [][]float64, rng *rand.Rand) (Outcome, error) {
	width, err := checkWaveforms(probe, target, irrelevant)
	if err != nil {
		return Outcome{}, err
	}

	nIrr := ResampleSize(len(irrelevant), c.cfg.IrrelevantFraction)
	p := make([]float64, width)
	t := make([]float64, width)
	irr := make([]float64, width)

	out := Outcome{Iterations: c.cfg.Iterations}
	for k := 0; k < c.cfg.Iterations; k++ {
		resampleAverage(p, probe, len(probe), rng)
		resampleAverage(t, target, len(target), rng)
		resampleAverage(irr, irrelevant, nIrr, rng)
		doubleCenter(p, t, irr)

		diff := stat.Correlation(p, t, nil) - stat.Correlation(p, irr, nil)
		if math.IsNaN(diff) {
			return Outcome{}, &common.NumericDegeneracyError{
				Detail: fmt.Sprintf("flat resampled waveform in iteration %d", k+1),
			}
		}
		if diff > 0 {
			out.Exceeded++
		}
	}
	out.Proportion = float64(out.Exceeded) / float64(out.Iterations)
	return out, nil
}

func resampleMean(xs []float64, n int, rng *rand.Rand) float64 {
	sum := 0.0
	for j := 0; j < n; j++ {
		sum += xs[rng.IntN(len(xs))]
	}
	return sum / float64(n)
}

// resampleAverage fills dst with the mean of n waveforms drawn with
// replacement from pop.
func resampleAverage(dst []float64, pop [][]float64, n int, rng *rand.Rand) {
	for j := range dst {
		dst[j] = 0
	}
	for j := 0; j < n; j++ {
		floats.Add(dst, pop[rng.IntN(len(pop))])
	}
	floats.Scale(1/float64(n), dst)
}

// doubleCenter subtracts the across-waveform mean at each time point. The
// per-waveform mean is removed by the correlation itself.
func doubleCenter(ws ...[]float64) {
	for j := range ws[0] {
		m := 0.0
		for _, w := range ws {
			m += w[j]
		}
		m /= float64(len(ws))
		for _, w := range ws {
			w[j] -= m
		}
	}
}

func checkScalars(category model.Category, xs []float64) error {
	if len(xs) == 0 {
		return &common.InsufficientDataError{Category: string(category), Need: 1}
	}
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return &common.NumericDegeneracyError{Category: string(category), Detail: "population contains NaN or Inf"}
		}
	}
	if len(xs) == 1 {
		return &common.NumericDegeneracyError{Category: string(category), Detail: "single epoch has no variance"}
	}
	if stat.Variance(xs, nil) == 0 {
		return &common.NumericDegeneracyError{Category: string(category), Detail: "zero variance"}
	}
	return nil
}

func checkWaveforms(pops ...[][]float64) (int, error) {
	categories := []model.Category{model.CategoryProbe, model.CategoryTarget, model.CategoryIrrelevant}
	width := -1
	for pi, pop := range pops {
		if len(pop) == 0 {
			return 0, &common.InsufficientDataError{Category: string(categories[pi]), Need: 1}
		}
		for _, w := range pop {
			if width < 0 {
				width = len(w)
			}
			if len(w) != width {
				return 0, common.NewConfigurationError("epochs", "%s waveforms have %d and %d points", categories[pi], width, len(w))
			}
			for _, x := range w {
				if math.IsNaN(x) || math.IsInf(x, 0) {
					return 0, &common.NumericDegeneracyError{Category: string(categories[pi]), Detail: "waveform contains NaN or Inf"}
				}
			}
		}
	}
	if width < 2 {
		return 0, &common.NumericDegeneracyError{Detail: fmt.Sprintf("waveforms have %d points, correlation needs at least 2", width)}
	}
	return width, nil
}
