package epochs

import (
	"fmt"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mode selects how a window of samples is reduced to one amplitude.
type Mode string

// Amplitude modes.
const (
	ModeMean       Mode = "mean"
	ModePeakToPeak Mode = "peak_to_peak"
)

// ParseMode accepts the mode names plus "p2p".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", string(ModeMean):
		return ModeMean, nil
	case string(ModePeakToPeak), "p2p", "peak-to-peak":
		return ModePeakToPeak, nil
	default:
		return "", common.NewConfigurationError("classifier.amplitude_mode", "unknown mode %q, want mean or peak_to_peak", s)
	}
}

// Window is a post-stimulus interval in seconds, inclusive at both ends.
type Window struct {
	Start float64
	End   float64
}

// DefaultWindow is the classic P300 window.
var DefaultWindow = Window{Start: 0.3, End: 0.6}

// Validate rejects empty or inverted windows.
func (w Window) Validate() error {
	if w.End <= w.Start {
		return common.NewConfigurationError("classifier.window_end", "window end %v must be after start %v", w.End, w.Start)
	}
	return nil
}

// bounds returns the half-open index range of times inside the window.
func (w Window) bounds(times []float64) (int, int) {
	lo, hi := -1, -1
	for i, t := range times {
		if t < w.Start || t > w.End {
			continue
		}
		if lo < 0 {
			lo = i
		}
		hi = i + 1
	}
	return lo, hi
}

// WindowAmplitude reduces the part of waveform inside w to a single value.
func WindowAmplitude(times, waveform []float64, w Window, mode Mode) (float64, error) {
	if len(times) != len(waveform) {
		return 0, fmt.Errorf("waveform has %d points, time axis has %d", len(waveform), len(times))
	}
	lo, hi := w.bounds(times)
	if lo < 0 {
		return 0, common.NewConfigurationError("classifier.window_start", "window %v-%vs contains no samples", w.Start, w.End)
	}

	segment := waveform[lo:hi]
	switch mode {
	case ModeMean, "":
		return stat.Mean(segment, nil), nil
	case ModePeakToPeak:
		return floats.Max(segment) - floats.Min(segment), nil
	default:
		return 0, fmt.Errorf("unknown amplitude mode %q", mode)
	}
}

// Amplitudes replaces every sample's amplitude with its window amplitude.
// The set must carry waveforms.
func Amplitudes(set *model.EpochSet, w Window, mode Mode) error {
	if !set.HasWaveforms() {
		return common.NewConfigurationError("epochs", "window amplitudes need waveform epochs")
	}
	if err := w.Validate(); err != nil {
		return err
	}

	for i := range set.Samples {
		s := &set.Samples[i]
		a, err := WindowAmplitude(set.Times, s.Waveform, w, mode)
		if err != nil {
			return fmt.Errorf("channel %s epoch %d: %w", s.Channel, s.Epoch, err)
		}
		s.Amplitude = a
	}
	return nil
}
