package epochs

import (
	"sort"

	"github.com/Veraticus/p300-cit/internal/model"
)

// ChannelData groups samples into per-channel populations, ordered by
// channel name. Target scalars are not kept since only BCD uses targets.
func ChannelData(set *model.EpochSet) []model.ChannelData {
	byChannel := make(map[string]*model.ChannelData)
	for _, s := range set.Samples {
		d, ok := byChannel[s.Channel]
		if !ok {
			d = &model.ChannelData{Channel: s.Channel}
			byChannel[s.Channel] = d
		}

		switch s.Category {
		case model.CategoryProbe:
			d.Probe = append(d.Probe, s.Amplitude)
			if len(s.Waveform) > 0 {
				d.ProbeWaveforms = append(d.ProbeWaveforms, s.Waveform)
			}
		case model.CategoryIrrelevant:
			d.Irrelevant = append(d.Irrelevant, s.Amplitude)
			if len(s.Waveform) > 0 {
				d.IrrelevantWaveforms = append(d.IrrelevantWaveforms, s.Waveform)
			}
		case model.CategoryTarget:
			if len(s.Waveform) > 0 {
				d.TargetWaveforms = append(d.TargetWaveforms, s.Waveform)
			}
		}
	}

	out := make([]model.ChannelData, 0, len(byChannel))
	for _, d := range byChannel {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// Filter keeps the named channels. An empty list keeps everything.
func Filter(data []model.ChannelData, channels []string) []model.ChannelData {
	if len(channels) == 0 {
		return data
	}
	keep := make(map[string]bool, len(channels))
	for _, c := range channels {
		keep[c] = true
	}

	var out []model.ChannelData
	for _, d := range data {
		if keep[d.Channel] {
			out = append(out, d)
		}
	}
	return out
}
