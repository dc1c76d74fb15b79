package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called after each channel finishes.
type ProgressFunc func(done, total int)

// Option configures a Classifier.
type Option func(*Classifier)

// WithProgress reports per-channel progress.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Classifier) {
		c.progress = fn
	}
}

// Classifier runs the bootstrap over channel populations.
type Classifier struct {
	progress ProgressFunc
	cfg      Config
}

// New validates cfg and creates a classifier.
func New(cfg Config, opts ...Option) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Classifier{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the classifier configuration.
func (c *Classifier) Config() Config {
	return c.cfg
}

// ChannelRand derives the random stream of one channel from the seed.
func ChannelRand(seed uint64, channel string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(channel))
	return rand.New(rand.NewPCG(seed, h.Sum64()))
}

// ClassifyChannel evaluates one channel. Populations below the minimum epoch
// count, or that cannot support the statistic, yield an indeterminate result
// with the reason filled in; the typed error is returned alongside it and
// recorded in the result's Err.
func (c *Classifier) ClassifyChannel(ctx context.Context, data model.ChannelData) (model.ChannelResult, error) {
	res := model.ChannelResult{
		Channel:     data.Channel,
		Iterations:  c.cfg.Iterations,
		NProbe:      len(data.Probe),
		NIrrelevant: len(data.Irrelevant),
	}
	if c.cfg.Metric == MetricBCD {
		res.NProbe = len(data.ProbeWaveforms)
		res.NIrrelevant = len(data.IrrelevantWaveforms)
		res.NTarget = len(data.TargetWaveforms)
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := c.checkCounts(res); err != nil {
		return indeterminate(res, err), err
	}

	rng := ChannelRand(c.cfg.Seed, data.Channel)
	var (
		out Outcome
		err error
	)
	switch c.cfg.Metric {
	case MetricBCD:
		out, err = c.BCD(data.ProbeWaveforms, data.TargetWaveforms, data.IrrelevantWaveforms, rng)
	default:
		out, err = c.BAD(data.Probe, data.Irrelevant, rng)
	}
	if err != nil {
		err = withChannel(err, data.Channel)
		return indeterminate(res, err), err
	}

	p := out.Proportion
	res.Proportion = &p
	res.Exceeded = out.Exceeded
	res.Label = Decide(p, c.cfg.Thresholds())
	res.Confidence = Confidence(res.Label, p)
	return res, nil
}

// Classify evaluates every channel in parallel and aggregates the labels.
// Per-channel data problems are recorded on the channel and do not fail the
// run; other errors, including cancellation, do.
func (c *Classifier) Classify(ctx context.Context, data []model.ChannelData) (*model.ClassificationResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no channels to classify: %w", common.ErrInsufficientData)
	}

	workers := c.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]model.ChannelResult, len(data))
	var (
		mu   sync.Mutex
		done int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range data {
		g.Go(func() error {
			res, err := c.ClassifyChannel(gCtx, data[i])
			if err != nil && !recoverable(err) {
				return err
			}
			res.Err = err
			results[i] = res

			if c.progress != nil {
				mu.Lock()
				done++
				c.progress(done, len(data))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.Err != nil {
			common.LogInfo("Channel not evaluated", common.Fields{"channel": r.Channel, "reason": r.Reason})
		}
	}

	settings, err := json.Marshal(c.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode classifier settings: %w", err)
	}

	v := Aggregate(c.cfg.Aggregation, c.cfg.Thresholds(), results)
	return &model.ClassificationResult{
		CreatedAt:         time.Now().UTC(),
		ID:                uuid.NewString(),
		Metric:            string(c.cfg.Metric),
		Aggregation:       string(c.cfg.Aggregation),
		Label:             v.Label,
		Reason:            v.Reason,
		MaxChannel:        v.MaxChannel,
		Channels:          results,
		Confidence:        v.Confidence,
		MaxProportion:     max(v.MaxProportion, 0),
		GuiltyThreshold:   c.cfg.GuiltyThreshold,
		InnocentThreshold: c.cfg.InnocentThreshold,
		Iterations:        c.cfg.Iterations,
		Seed:              c.cfg.Seed,
		Settings:          settings,
	}, nil
}

func (c *Classifier) checkCounts(res model.ChannelResult) error {
	need := c.cfg.MinEpochs
	check := func(category model.Category, have int) error {
		if have < need {
			return &common.InsufficientDataError{Channel: res.Channel, Category: string(category), Have: have, Need: need}
		}
		return nil
	}

	if err := check(model.CategoryProbe, res.NProbe); err != nil {
		return err
	}
	if err := check(model.CategoryIrrelevant, res.NIrrelevant); err != nil {
		return err
	}
	if c.cfg.Metric == MetricBCD {
		return check(model.CategoryTarget, res.NTarget)
	}
	return nil
}

func recoverable(err error) bool {
	return errors.Is(err, common.ErrInsufficientData) || errors.Is(err, common.ErrNumericDegeneracy)
}

func indeterminate(res model.ChannelResult, err error) model.ChannelResult {
	res.Label = model.LabelIndeterminate
	res.Err = err
	res.Confidence = 0
	res.Reason = err.Error()
	return res
}

func withChannel(err error, channel string) error {
	var insufficient *common.InsufficientDataError
	if errors.As(err, &insufficient) && insufficient.Channel == "" {
		insufficient.Channel = channel
	}
	var degenerate *common.NumericDegeneracyError
	if errors.As(err, &degenerate) && degenerate.Channel == "" {
		degenerate.Channel = channel
	}
	return err
}
