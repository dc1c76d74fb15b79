// Package bootstrap decides from per-channel ERP populations whether a
// subject shows a reliable probe-recognition effect.
//
// Two metrics share one resampling scaffold. BAD compares resampled probe and
// irrelevant amplitude means. BCD compares how well the resampled probe
// waveform correlates with the target waveform against how well it
// correlates with the irrelevant waveform. Each channel runs on its own
// random stream derived from the configured seed, so results do not depend
// on how channels are scheduled across workers.
package bootstrap

import (
	"errors"
	"strings"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/config"
)

// Metric selects the bootstrap comparator.
type Metric string

// Metrics.
const (
	MetricBAD Metric = "bad"
	MetricBCD Metric = "bcd"
)

// ParseMetric accepts the metric names plus bc-ad for BCD.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bad":
		return MetricBAD, nil
	case "bcd", "bc-ad", "bcad":
		return MetricBCD, nil
	default:
		return "", common.NewConfigurationError("classifier.metric", "unknown metric %q, want bad or bcd", s)
	}
}

// Aggregation names the rule combining channel labels into one verdict.
type Aggregation string

// Aggregation policies.
const (
	// AggregateAny calls guilty when any channel is guilty.
	AggregateAny Aggregation = "any"
	// AggregateMajority calls a verdict only when more than half of the
	// channels share it.
	AggregateMajority Aggregation = "majority"
)

// ParseAggregation validates a policy name.
func ParseAggregation(s string) (Aggregation, error) {
	switch a := Aggregation(strings.ToLower(strings.TrimSpace(s))); a {
	case AggregateAny, AggregateMajority:
		return a, nil
	default:
		return "", common.NewConfigurationError("classifier.aggregation", "unknown policy %q, want any or majority", s)
	}
}

// Thresholds is the inclusive decision pair: p >= Guilty is guilty and
// p <= Innocent is innocent.
type Thresholds struct {
	Guilty   float64
	Innocent float64
}

// Config holds every classifier parameter.
type Config struct {
	Metric      Metric      `json:"metric" yaml:"metric" validate:"oneof=bad bcd"`
	Aggregation Aggregation `json:"aggregation" yaml:"aggregation" validate:"oneof=any majority"`
	// Iterations is the bootstrap iteration count K.
	Iterations        int     `json:"iterations" yaml:"iterations" validate:"gte=1"`
	GuiltyThreshold   float64 `json:"guilty_threshold" yaml:"guilty_threshold" validate:"gte=0,lte=1"`
	InnocentThreshold float64 `json:"innocent_threshold" yaml:"innocent_threshold" validate:"gte=0,lte=1"`
	// IrrelevantFraction scales the irrelevant resample size so it is
	// comparable to the probe count. 1 resamples the full population size.
	IrrelevantFraction float64 `json:"irrelevant_fraction" yaml:"irrelevant_fraction" validate:"gt=0,lte=1"`
	// MinEpochs is the smallest population accepted per category.
	MinEpochs int    `json:"min_epochs" yaml:"min_epochs" validate:"gte=1"`
	Seed      uint64 `json:"seed" yaml:"seed"`
	// Workers bounds parallel channels; zero uses GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers" validate:"gte=0"`
}

// DefaultConfig returns BAD with 1000 iterations, a 0.90/0.10 threshold pair
// and any-channel aggregation.
func DefaultConfig() Config {
	return Config{
		Metric:             MetricBAD,
		Aggregation:        AggregateAny,
		Iterations:         1000,
		GuiltyThreshold:    0.90,
		InnocentThreshold:  0.10,
		IrrelevantFraction: 0.25,
		MinEpochs:          15,
		Seed:               1,
	}
}

// Thresholds returns the configured decision pair.
func (c Config) Thresholds() Thresholds {
	return Thresholds{Guilty: c.GuiltyThreshold, Innocent: c.InnocentThreshold}
}

// Validate checks ranges and that the thresholds leave a gap.
func (c Config) Validate() error {
	if err := config.ValidateStruct(c); err != nil {
		var cfgErr *common.ConfigurationError
		if errors.As(err, &cfgErr) && cfgErr.Field != "" {
			cfgErr.Field = "classifier." + cfgErr.Field
		}
		return err
	}
	if c.InnocentThreshold >= c.GuiltyThreshold {
		return common.NewConfigurationError("classifier.innocent_threshold",
			"%.3f must be below guilty_threshold %.3f", c.InnocentThreshold, c.GuiltyThreshold)
	}
	return nil
}
