package sequence

import (
	"testing"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTrials() ([]model.Trial, Expectations) {
	objects := []string{"a", "b", "a", "b"}
	trials := make([]model.Trial, len(objects))
	for i, o := range objects {
		trials[i] = model.Trial{
			S1Object:   o,
			S1View:     o + "1",
			S2Category: model.CategoryNontarget,
			S1Category: model.CategoryIrrelevant,
		}
	}
	trials[1].S2Category = model.CategoryTarget
	Partition(trials, 2)

	return trials, Expectations{
		Counts:                  map[string]int{"a": 2, "b": 2},
		Views:                   map[string][]string{"a": {"a1"}, "b": {"b1"}},
		MinGap:                  2,
		Targets:                 1,
		BlockSize:               2,
		AvoidConsecutiveTargets: true,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func([]model.Trial, *Expectations) []model.Trial
		constraint string
	}{
		{name: "valid"},
		{
			name:       "wrong length",
			mutate:     func(tr []model.Trial, _ *Expectations) []model.Trial { return tr[:3] },
			constraint: "length",
		},
		{
			name: "adjacent object",
			mutate: func(tr []model.Trial, _ *Expectations) []model.Trial {
				tr[1], tr[2] = tr[2], tr[1]
				Partition(tr, 2)
				return tr
			},
			constraint: "object spacing",
		},
		{
			name: "consecutive targets",
			mutate: func(tr []model.Trial, e *Expectations) []model.Trial {
				tr[2].S2Category = model.CategoryTarget
				e.Targets = 2
				return tr
			},
			constraint: "S2 target spacing",
		},
		{
			name: "target count",
			mutate: func(tr []model.Trial, e *Expectations) []model.Trial {
				e.Targets = 2
				return tr
			},
			constraint: "target ratio",
		},
		{
			name: "bad numbering",
			mutate: func(tr []model.Trial, _ *Expectations) []model.Trial {
				tr[3].TrialIndex = 9
				return tr
			},
			constraint: "numbering",
		},
		{
			name: "bad block",
			mutate: func(tr []model.Trial, _ *Expectations) []model.Trial {
				tr[2].BlockIndex = 1
				return tr
			},
			constraint: "blocks",
		},
		{
			name: "unbalanced views",
			mutate: func(tr []model.Trial, e *Expectations) []model.Trial {
				e.Views["a"] = []string{"a1", "a2"}
				return tr
			},
			constraint: "view rotation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trials, exp := validTrials()
			if tt.mutate != nil {
				trials = tt.mutate(trials, &exp)
			}

			err := Validate(trials, exp)
			if tt.constraint == "" {
				assert.NoError(t, err)
				return
			}

			var unsat *common.ConstraintUnsatisfiableError
			require.ErrorAs(t, err, &unsat)
			assert.Equal(t, tt.constraint, unsat.Constraint)
		})
	}
}
