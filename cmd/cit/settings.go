package main

import (
	"github.com/Veraticus/p300-cit/internal/bootstrap"
	"github.com/Veraticus/p300-cit/internal/epochs"
	"github.com/spf13/viper"
)

// Classifier setting keys.
const (
	keyMetric             = "classifier.metric"
	keyAggregation        = "classifier.aggregation"
	keyIterations         = "classifier.iterations"
	keyGuiltyThreshold    = "classifier.guilty_threshold"
	keyInnocentThreshold  = "classifier.innocent_threshold"
	keyIrrelevantFraction = "classifier.irrelevant_fraction"
	keyMinEpochs          = "classifier.min_epochs"
	keySeed               = "classifier.seed"
	keyWorkers            = "classifier.workers"
	keyWindowStart        = "classifier.window_start"
	keyWindowEnd          = "classifier.window_end"
	keyAmplitudeMode      = "classifier.amplitude_mode"
)

// analysisSettings is everything a classify run reads from configuration.
type analysisSettings struct {
	Mode       epochs.Mode
	Classifier bootstrap.Config
	Window     epochs.Window
}

func setClassifierDefaults(v *viper.Viper) {
	d := bootstrap.DefaultConfig()
	v.SetDefault(keyMetric, string(d.Metric))
	v.SetDefault(keyAggregation, string(d.Aggregation))
	v.SetDefault(keyIterations, d.Iterations)
	v.SetDefault(keyGuiltyThreshold, d.GuiltyThreshold)
	v.SetDefault(keyInnocentThreshold, d.InnocentThreshold)
	v.SetDefault(keyIrrelevantFraction, d.IrrelevantFraction)
	v.SetDefault(keyMinEpochs, d.MinEpochs)
	v.SetDefault(keySeed, d.Seed)
	v.SetDefault(keyWorkers, d.Workers)
	v.SetDefault(keyWindowStart, epochs.DefaultWindow.Start)
	v.SetDefault(keyWindowEnd, epochs.DefaultWindow.End)
	v.SetDefault(keyAmplitudeMode, string(epochs.ModeMean))
}

// loadAnalysisSettings reads and validates the classifier settings.
func loadAnalysisSettings(v *viper.Viper) (analysisSettings, error) {
	setClassifierDefaults(v)

	metric, err := bootstrap.ParseMetric(v.GetString(keyMetric))
	if err != nil {
		return analysisSettings{}, err
	}
	aggregation, err := bootstrap.ParseAggregation(v.GetString(keyAggregation))
	if err != nil {
		return analysisSettings{}, err
	}
	mode, err := epochs.ParseMode(v.GetString(keyAmplitudeMode))
	if err != nil {
		return analysisSettings{}, err
	}

	s := analysisSettings{
		Classifier: bootstrap.Config{
			Metric:             metric,
			Aggregation:        aggregation,
			Iterations:         v.GetInt(keyIterations),
			GuiltyThreshold:    v.GetFloat64(keyGuiltyThreshold),
			InnocentThreshold:  v.GetFloat64(keyInnocentThreshold),
			IrrelevantFraction: v.GetFloat64(keyIrrelevantFraction),
			MinEpochs:          v.GetInt(keyMinEpochs),
			Seed:               v.GetUint64(keySeed),
			Workers:            v.GetInt(keyWorkers),
		},
		Window: epochs.Window{
			Start: v.GetFloat64(keyWindowStart),
			End:   v.GetFloat64(keyWindowEnd),
		},
		Mode: mode,
	}

	if err := s.Classifier.Validate(); err != nil {
		return analysisSettings{}, err
	}
	if err := s.Window.Validate(); err != nil {
		return analysisSettings{}, err
	}
	return s, nil
}
