package sequence

import (
	"sort"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
)

// BlockSummary counts categories inside one block.
type BlockSummary struct {
	Index      int `json:"index"`
	Trials     int `json:"trials"`
	Probe      int `json:"probe"`
	Irrelevant int `json:"irrelevant"`
	Targets    int `json:"targets"`
}

// Summary describes the distribution of a generated sequence.
type Summary struct {
	Objects    map[string]int `json:"objects"`
	Views      map[string]int `json:"views"`
	S2Strings  map[string]int `json:"s2_strings"`
	Blocks     []BlockSummary `json:"blocks"`
	Total      int            `json:"total"`
	Probe      int            `json:"probe"`
	Irrelevant int            `json:"irrelevant"`
	Targets    int            `json:"targets"`
	Nontargets int            `json:"nontargets"`
	// MinObjectGap is the smallest distance between two trials of the same
	// object, or zero when no object repeats.
	MinObjectGap int `json:"min_object_gap"`
}

// Summarize tallies a trial sequence.
func Summarize(trials []model.Trial) Summary {
	s := Summary{
		Objects:   make(map[string]int),
		Views:     make(map[string]int),
		S2Strings: make(map[string]int),
		Total:     len(trials),
	}

	lastSeen := make(map[string]int)
	blocks := make(map[int]*BlockSummary)
	for i, t := range trials {
		s.Objects[t.S1Object]++
		s.Views[t.S1View]++
		s.S2Strings[t.S2String]++

		b, ok := blocks[t.BlockIndex]
		if !ok {
			b = &BlockSummary{Index: t.BlockIndex}
			blocks[t.BlockIndex] = b
		}
		b.Trials++

		switch t.S1Category {
		case model.CategoryProbe:
			s.Probe++
			b.Probe++
		case model.CategoryIrrelevant:
			s.Irrelevant++
			b.Irrelevant++
		}
		if t.S2Category == model.CategoryTarget {
			s.Targets++
			b.Targets++
		} else {
			s.Nontargets++
		}

		if prev, ok := lastSeen[t.S1Object]; ok {
			if gap := i - prev; s.MinObjectGap == 0 || gap < s.MinObjectGap {
				s.MinObjectGap = gap
			}
		}
		lastSeen[t.S1Object] = i
	}

	for _, b := range blocks {
		s.Blocks = append(s.Blocks, *b)
	}
	sort.Slice(s.Blocks, func(i, j int) bool { return s.Blocks[i].Index < s.Blocks[j].Index })
	return s
}

// TargetFraction is the realized S2 target fraction.
func (s Summary) TargetFraction() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Targets) / float64(s.Total)
}

// Log writes the totals at info level and the per-object and per-view
// distribution at debug level.
func (s Summary) Log() {
	common.LogInfo("Generated trial sequence", common.Fields{
		"total_trials": s.Total,
		"blocks":       len(s.Blocks),
		"probe":        s.Probe,
		"irrelevant":   s.Irrelevant,
		"targets":      s.Targets,
		"nontargets":   s.Nontargets,
		"min_gap":      s.MinObjectGap,
	})

	objects := make(common.Fields, len(s.Objects))
	for k, v := range s.Objects {
		objects[k] = v
	}
	common.LogDebug("S1 distribution by object", objects)

	views := make(common.Fields, len(s.Views))
	for k, v := range s.Views {
		views[k] = v
	}
	common.LogDebug("S1 distribution by view", views)
}
