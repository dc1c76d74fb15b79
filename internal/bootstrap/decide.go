package bootstrap

import (
	"fmt"
	"sort"

	"github.com/Veraticus/p300-cit/internal/model"
)

// Decide maps a bootstrap proportion to a label. Both thresholds are
// inclusive, so a proportion of exactly 0.90 is guilty under the defaults.
func Decide(p float64, t Thresholds) model.Label {
	switch {
	case p >= t.Guilty:
		return model.LabelGuilty
	case p <= t.Innocent:
		return model.LabelInnocent
	default:
		return model.LabelIndeterminate
	}
}

// Confidence is the share of iterations backing label.
func Confidence(label model.Label, p float64) float64 {
	switch label {
	case model.LabelGuilty:
		return p
	case model.LabelInnocent:
		return 1 - p
	default:
		return max(p, 1-p)
	}
}

// Verdict is the combined outcome over all channels.
type Verdict struct {
	Label         model.Label
	Reason        string
	MaxChannel    string
	MaxProportion float64
	Confidence    float64
}

// Aggregate combines channel results under policy. Channels without a
// proportion never support a verdict; under the majority policy they still
// count toward the channel total.
func Aggregate(policy Aggregation, t Thresholds, results []model.ChannelResult) Verdict {
	var evaluated []model.ChannelResult
	for _, r := range results {
		if r.Evaluated() {
			evaluated = append(evaluated, r)
		}
	}
	if len(evaluated) == 0 {
		return Verdict{Label: model.LabelIndeterminate, Reason: "no channel could be evaluated"}
	}

	v := Verdict{MaxProportion: -1}
	proportions := make([]float64, len(evaluated))
	counts := make(map[model.Label]int)
	for i, r := range evaluated {
		p := *r.Proportion
		proportions[i] = p
		counts[r.Label]++
		if p > v.MaxProportion {
			v.MaxProportion = p
			v.MaxChannel = r.Channel
		}
	}

	switch policy {
	case AggregateMajority:
		half := len(results) / 2
		switch {
		case counts[model.LabelGuilty] > half:
			v.Label = model.LabelGuilty
		case counts[model.LabelInnocent] > half:
			v.Label = model.LabelInnocent
		default:
			v.Label = model.LabelIndeterminate
		}
		v.Reason = fmt.Sprintf("%d guilty, %d innocent of %d channels", counts[model.LabelGuilty], counts[model.LabelInnocent], len(results))
		v.Confidence = Confidence(v.Label, median(proportions))
	default:
		v.Label = Decide(v.MaxProportion, t)
		v.Reason = fmt.Sprintf("highest proportion %.3f on %s", v.MaxProportion, v.MaxChannel)
		v.Confidence = Confidence(v.Label, v.MaxProportion)
	}
	return v
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
