package bootstrap

import (
	"context"
	"sync"
	"testing"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideBoundaries(t *testing.T) {
	th := DefaultConfig().Thresholds()

	tests := []struct {
		p    float64
		want model.Label
	}{
		{p: 1, want: model.LabelGuilty},
		{p: 0.90, want: model.LabelGuilty},
		{p: 0.899, want: model.LabelIndeterminate},
		{p: 0.5, want: model.LabelIndeterminate},
		{p: 0.101, want: model.LabelIndeterminate},
		{p: 0.10, want: model.LabelInnocent},
		{p: 0, want: model.LabelInnocent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decide(tt.p, th), "p=%v", tt.p)
	}

	// An asymmetric pair moves only the innocent side.
	asym := Thresholds{Guilty: 0.90, Innocent: 0.70}
	assert.Equal(t, model.LabelInnocent, Decide(0.70, asym))
	assert.Equal(t, model.LabelIndeterminate, Decide(0.75, asym))
}

func TestBADProportionAtGuiltyBoundary(t *testing.T) {
	// 900 of 1000 iterations is exactly the guilty threshold.
	p := float64(900) / float64(1000)
	assert.Equal(t, model.LabelGuilty, Decide(p, DefaultConfig().Thresholds()))
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 0.95, Confidence(model.LabelGuilty, 0.95), 1e-12)
	assert.InDelta(t, 0.97, Confidence(model.LabelInnocent, 0.03), 1e-12)
	assert.InDelta(t, 0.6, Confidence(model.LabelIndeterminate, 0.4), 1e-12)
	assert.InDelta(t, 0.6, Confidence(model.LabelIndeterminate, 0.6), 1e-12)
}

func channel(name string, p float64) model.ChannelResult {
	th := DefaultConfig().Thresholds()
	return model.ChannelResult{Channel: name, Proportion: &p, Label: Decide(p, th)}
}

func TestAggregate(t *testing.T) {
	th := DefaultConfig().Thresholds()
	unevaluated := model.ChannelResult{Channel: "O1", Label: model.LabelIndeterminate}

	tests := []struct {
		name    string
		policy  Aggregation
		results []model.ChannelResult
		want    model.Label
		maxChan string
	}{
		{
			name:    "any with one guilty channel",
			policy:  AggregateAny,
			results: []model.ChannelResult{channel("Pz", 0.95), channel("Cz", 0.5), channel("Fz", 0.02)},
			want:    model.LabelGuilty,
			maxChan: "Pz",
		},
		{
			name:    "any with all innocent",
			policy:  AggregateAny,
			results: []model.ChannelResult{channel("Pz", 0.05), channel("Cz", 0.1)},
			want:    model.LabelInnocent,
			maxChan: "Cz",
		},
		{
			name:    "majority with one guilty of three",
			policy:  AggregateMajority,
			results: []model.ChannelResult{channel("Pz", 0.95), channel("Cz", 0.5), channel("Fz", 0.5)},
			want:    model.LabelIndeterminate,
			maxChan: "Pz",
		},
		{
			name:    "majority with two guilty of three",
			policy:  AggregateMajority,
			results: []model.ChannelResult{channel("Pz", 0.95), channel("Cz", 0.92), channel("Fz", 0.5)},
			want:    model.LabelGuilty,
			maxChan: "Pz",
		},
		{
			name:    "majority counts unevaluated channels",
			policy:  AggregateMajority,
			results: []model.ChannelResult{channel("Pz", 0.95), unevaluated},
			want:    model.LabelIndeterminate,
			maxChan: "Pz",
		},
		{
			name:    "majority innocent",
			policy:  AggregateMajority,
			results: []model.ChannelResult{channel("Pz", 0.05), channel("Cz", 0.0), channel("Fz", 0.95)},
			want:    model.LabelInnocent,
			maxChan: "Fz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Aggregate(tt.policy, th, tt.results)
			assert.Equal(t, tt.want, v.Label)
			assert.Equal(t, tt.maxChan, v.MaxChannel)
			assert.NotEmpty(t, v.Reason)
			assert.GreaterOrEqual(t, v.Confidence, 0.5)
		})
	}

	none := Aggregate(AggregateAny, th, []model.ChannelResult{unevaluated})
	assert.Equal(t, model.LabelIndeterminate, none.Label)
	assert.Zero(t, none.Confidence)
	assert.Contains(t, none.Reason, "no channel")
}

func classifyData() []model.ChannelData {
	return []model.ChannelData{
		{Channel: "Pz", Probe: []float64{10, 12, 11, 13, 9, 14}, Irrelevant: []float64{2, 3, 1, 4, 2, 3, 1, 2}},
		{Channel: "Cz", Probe: sequential(20), Irrelevant: sequential(20)},
		{Channel: "O1", Probe: sequential(3), Irrelevant: sequential(20)},
	}
}

func TestClassify(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []int
	)
	cfg := DefaultConfig()
	cfg.MinEpochs = 6
	cfg.IrrelevantFraction = 1
	c, err := New(cfg, WithProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, done)
		assert.Equal(t, 3, total)
	}))
	require.NoError(t, err)

	result, err := c.Classify(context.Background(), classifyData())
	require.NoError(t, err)

	assert.Equal(t, model.LabelGuilty, result.Label)
	assert.Equal(t, "Pz", result.MaxChannel)
	assert.InDelta(t, 1.0, result.MaxProportion, 1e-12)
	assert.Equal(t, "bad", result.Metric)
	assert.Equal(t, "any", result.Aggregation)
	assert.NotEmpty(t, result.ID)
	require.Len(t, result.Channels, 3)

	assert.Equal(t, "Pz", result.Channels[0].Channel)
	assert.Equal(t, "O1", result.Channels[2].Channel)
	assert.ErrorIs(t, result.Channels[2].Err, common.ErrInsufficientData)
	assert.Equal(t, map[model.Label]int{model.LabelGuilty: 1, model.LabelInnocent: 0, model.LabelIndeterminate: 2}, result.Counts())
	assert.ElementsMatch(t, []int{1, 2, 3}, calls)

	cfg.Aggregation = AggregateMajority
	majority, err := New(cfg)
	require.NoError(t, err)
	result, err = majority.Classify(context.Background(), classifyData())
	require.NoError(t, err)
	assert.Equal(t, model.LabelIndeterminate, result.Label)
}

func TestClassifyIndependentOfWorkers(t *testing.T) {
	proportions := func(workers int) []float64 {
		cfg := DefaultConfig()
		cfg.MinEpochs = 6
		cfg.Workers = workers
		c, err := New(cfg)
		require.NoError(t, err)

		result, err := c.Classify(context.Background(), classifyData())
		require.NoError(t, err)

		var out []float64
		for _, ch := range result.Channels {
			if ch.Evaluated() {
				out = append(out, *ch.Proportion)
			}
		}
		return out
	}

	assert.Equal(t, proportions(1), proportions(4))
}

func TestClassifyEmpty(t *testing.T) {
	c := testClassifier(t, nil)
	_, err := c.Classify(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrInsufficientData)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "defaults"},
		{name: "zero iterations", mutate: func(c *Config) { c.Iterations = 0 }, field: "classifier.iterations"},
		{name: "unknown metric", mutate: func(c *Config) { c.Metric = "auc" }, field: "classifier.metric"},
		{name: "unknown aggregation", mutate: func(c *Config) { c.Aggregation = "all" }, field: "classifier.aggregation"},
		{name: "zero fraction", mutate: func(c *Config) { c.IrrelevantFraction = 0 }, field: "classifier.irrelevant_fraction"},
		{name: "threshold above one", mutate: func(c *Config) { c.GuiltyThreshold = 1.5 }, field: "classifier.guilty_threshold"},
		{name: "inverted thresholds", mutate: func(c *Config) { c.InnocentThreshold = 0.95 }, field: "classifier.innocent_threshold"},
		{name: "zero min epochs", mutate: func(c *Config) { c.MinEpochs = 0 }, field: "classifier.min_epochs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var cfgErr *common.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParseMetricAndAggregation(t *testing.T) {
	for input, want := range map[string]Metric{"bad": MetricBAD, "BCD": MetricBCD, "bc-ad": MetricBCD} {
		got, err := ParseMetric(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMetric("auc")
	assert.ErrorIs(t, err, common.ErrConfiguration)

	a, err := ParseAggregation("Majority")
	require.NoError(t, err)
	assert.Equal(t, AggregateMajority, a)
	_, err = ParseAggregation("all")
	assert.ErrorIs(t, err, common.ErrConfiguration)
}
