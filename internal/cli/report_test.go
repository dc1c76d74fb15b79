package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/Veraticus/p300-cit/internal/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"Name", "N"}, [][]string{
		{"pendrive", "80"},
		{"cup", "80"},
	})

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, out, "pendrive")
	assert.Contains(t, lines[len(lines)-1], "cup")
}

func TestRenderResult(t *testing.T) {
	p := 0.97
	result := &model.ClassificationResult{
		Label:             model.LabelGuilty,
		Confidence:        0.97,
		MaxChannel:        "Pz",
		MaxProportion:     0.97,
		Metric:            "bad",
		Aggregation:       "any",
		Iterations:        1000,
		GuiltyThreshold:   0.9,
		InnocentThreshold: 0.1,
		Channels: []model.ChannelResult{
			{Channel: "Pz", Proportion: &p, Label: model.LabelGuilty, Confidence: 0.97, NProbe: 80, NIrrelevant: 320},
			{Channel: "Fz", Label: model.LabelIndeterminate, Reason: "insufficient data", NProbe: 3, NIrrelevant: 320},
		},
	}

	out := RenderResult(result)
	assert.Contains(t, out, "GUILTY")
	assert.Contains(t, out, "Pz (p = 0.970)")
	assert.Contains(t, out, "80/320")
	assert.Contains(t, out, "insufficient data")
	assert.Contains(t, out, "Classification Result")
}

func TestRenderSummary(t *testing.T) {
	trials := []model.Trial{
		{S1Object: "pendrive", S1View: "v1", S1Category: model.CategoryProbe, S2Category: model.CategoryTarget, S2String: "111111", TrialIndex: 1, BlockIndex: 1},
		{S1Object: "cup", S1View: "v2", S1Category: model.CategoryIrrelevant, S2Category: model.CategoryNontarget, S2String: "222222", TrialIndex: 2, BlockIndex: 1},
		{S1Object: "pendrive", S1View: "v1", S1Category: model.CategoryProbe, S2Category: model.CategoryNontarget, S2String: "333333", TrialIndex: 3, BlockIndex: 2},
	}

	out := RenderSummary(model.Participant{ID: "007", Session: "1", Condition: "thief"}, sequence.Summarize(trials))
	assert.Contains(t, out, "Participant: 007, session 1 (thief)")
	assert.Contains(t, out, "Trials: 3 in 2 blocks")
	assert.Contains(t, out, "S1: 2 probe, 1 irrelevant")
	assert.Contains(t, out, "Closest repeat of an object: 2 trials")
	assert.Contains(t, out, "pendrive")
}

func TestLabelStyle(t *testing.T) {
	for _, label := range []model.Label{model.LabelGuilty, model.LabelInnocent, model.LabelIndeterminate} {
		assert.Contains(t, LabelStyle(label).Render(string(label)), string(label))
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 4, "Classifying channels...")
	p.Update(1, 4)
	p.Update(4, 4)
	p.Finish()

	assert.Contains(t, buf.String(), "4/4")
}
