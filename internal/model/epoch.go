package model

import "sort"

// AmplitudeSample is one accepted epoch for a channel: a scalar amplitude,
// a waveform, or both.
type AmplitudeSample struct {
	Channel   string    `json:"channel"`
	Category  Category  `json:"category"`
	Waveform  []float64 `json:"waveform,omitempty"`
	Epoch     int       `json:"epoch"`
	Amplitude float64   `json:"amplitude"`
}

// EpochSet is the preprocessed epoch collection of one recording.
type EpochSet struct {
	// Times is the waveform time axis in seconds, empty for scalar-only sets.
	Times   []float64         `json:"times,omitempty"`
	Samples []AmplitudeSample `json:"samples"`
}

// HasWaveforms reports whether every sample carries a waveform.
func (s *EpochSet) HasWaveforms() bool {
	if len(s.Samples) == 0 {
		return false
	}
	for _, sample := range s.Samples {
		if len(sample.Waveform) == 0 {
			return false
		}
	}
	return true
}

// Channels returns the channel names in first-seen order.
func (s *EpochSet) Channels() []string {
	seen := make(map[string]bool)
	var channels []string
	for _, sample := range s.Samples {
		if !seen[sample.Channel] {
			seen[sample.Channel] = true
			channels = append(channels, sample.Channel)
		}
	}
	return channels
}

// ChannelData holds the per-category populations of one channel. Scalar
// populations feed BAD; waveform populations feed BCD.
type ChannelData struct {
	Channel             string      `json:"channel"`
	Probe               []float64   `json:"probe,omitempty"`
	Irrelevant          []float64   `json:"irrelevant,omitempty"`
	ProbeWaveforms      [][]float64 `json:"probe_waveforms,omitempty"`
	TargetWaveforms     [][]float64 `json:"target_waveforms,omitempty"`
	IrrelevantWaveforms [][]float64 `json:"irrelevant_waveforms,omitempty"`
}

// ChannelNames returns the sorted channel names of a data set.
func ChannelNames(data []ChannelData) []string {
	names := make([]string, len(data))
	for i, d := range data {
		names[i] = d.Channel
	}
	sort.Strings(names)
	return names
}
