package markers

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "block_start|block=2", Format(BlockStart, F("block", 2)))
	assert.Equal(t, "S1_onset_probe|trial=12,stim_id=pendrive",
		Format(S1Onset(model.CategoryProbe), F("trial", 12), F("stim_id", "pendrive")))
	assert.Equal(t, "ITI_start", Format(ITIStart))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Marker
		wantErr bool
	}{
		{
			name:  "bare name",
			input: "block_end",
			want:  Marker{Name: BlockEnd},
		},
		{
			name:  "ordered fields",
			input: "S2_response|trial=3,key=j,rt=0.4312,correct=1",
			want: Marker{Name: S2Response, Fields: []Field{
				{Key: "trial", Value: "3"},
				{Key: "key", Value: "j"},
				{Key: "rt", Value: "0.4312"},
				{Key: "correct", Value: "1"},
			}},
		},
		{
			name:  "trailing separator",
			input: "fixation_onset|",
			want:  Marker{Name: FixationOnset},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "missing name", input: "|trial=1", wantErr: true},
		{name: "field without value separator", input: "trial_start|trial", wantErr: true},
		{name: "empty key", input: "trial_start|=4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if len(tt.want.Fields) > 0 {
				assert.Equal(t, tt.input, got.String())
			}
		})
	}
}

func TestMarkerFieldAccess(t *testing.T) {
	m, err := Parse("S1_onset_irrelevant|trial=7,stim_id=wallet")
	require.NoError(t, err)

	n, err := m.Int("trial")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	v, ok := m.Get("stim_id")
	assert.True(t, ok)
	assert.Equal(t, "wallet", v)

	_, err = m.Int("block")
	assert.Error(t, err)
	_, err = m.Int("stim_id")
	assert.Error(t, err)

	c, ok := m.Category()
	assert.True(t, ok)
	assert.Equal(t, model.CategoryIrrelevant, c)
}

func TestCategoryFromTag(t *testing.T) {
	tests := []struct {
		tag  string
		want model.Category
		ok   bool
	}{
		{tag: "S1_onset_probe", want: model.CategoryProbe, ok: true},
		{tag: "S1_onset_irrelevant", want: model.CategoryIrrelevant, ok: true},
		{tag: "S2_onset_target", want: model.CategoryTarget, ok: true},
		{tag: "S2_onset_nontarget", want: model.CategoryNontarget, ok: true},
		{tag: "probe", want: model.CategoryProbe, ok: true},
		{tag: "irr", want: model.CategoryIrrelevant, ok: true},
		{tag: "S1_onset_target"},
		{tag: "S2_onset_probe"},
		{tag: "S1_response"},
		{tag: "block_start"},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, ok := CategoryFromTag(tt.tag)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewSender(WriterOutlet{W: &buf})

	n, err := s.Send(BlockStart, F("block", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Send(FixationOnset, F("trial", 1))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "block_start|block=1\nfixation_onset|trial=1\n", buf.String())
	assert.Equal(t, 2, s.Count())
}

type failingOutlet struct{}

func (failingOutlet) Send(string) error { return errors.New("stream closed") }

func TestSenderFailureKeepsCount(t *testing.T) {
	s := NewSender(failingOutlet{})
	n, err := s.Send(ITIStart)
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Zero(t, s.Count())
}

func testTiming() Timing {
	return Timing{
		Fixation:       500 * time.Millisecond,
		S1:             300 * time.Millisecond,
		S2:             300 * time.Millisecond,
		ResponseWindow: 1500 * time.Millisecond,
		BlockBreak:     30 * time.Second,
	}
}

func TestScriptForTrial(t *testing.T) {
	trial := model.Trial{
		S1Object:    "pendrive",
		S1Category:  model.CategoryProbe,
		S2Category:  model.CategoryTarget,
		TrialIndex:  4,
		BlockIndex:  1,
		ISIDuration: 1200 * time.Millisecond,
		ITIDuration: 1800 * time.Millisecond,
	}

	planned, next := ScriptForTrial(trial, 10*time.Second, testTiming())
	require.Len(t, planned, 5)

	var names []string
	for _, p := range planned {
		names = append(names, p.String())
	}
	assert.Equal(t, []string{
		"trial_start|trial=4,block=1",
		"fixation_onset|trial=4",
		"S1_onset_probe|trial=4,stim_id=pendrive",
		"S2_onset_target|trial=4",
		"ITI_start|trial=4",
	}, names)

	assert.Equal(t, 10*time.Second, planned[1].At)
	assert.Equal(t, 10500*time.Millisecond, planned[2].At)
	assert.Equal(t, 12*time.Second, planned[3].At)
	assert.Equal(t, 13800*time.Millisecond, planned[4].At)
	assert.Equal(t, 15600*time.Millisecond, next)
}

func TestScriptObjectNamesSurviveParse(t *testing.T) {
	for _, name := range []string{"pendrive", "phone_case", "usb-stick", "Key2"} {
		require.True(t, model.ValidObjectName(name), name)

		trial := model.Trial{S1Object: name, S1Category: model.CategoryIrrelevant, S2Category: model.CategoryNontarget, TrialIndex: 1, BlockIndex: 1}
		planned, _ := ScriptForTrial(trial, 0, testTiming())

		m, err := Parse(planned[2].String())
		require.NoError(t, err, name)
		got, ok := m.Get("stim_id")
		require.True(t, ok)
		assert.Equal(t, name, got)
	}

	for _, name := range []string{"a,b", "a=b", "a|b", ""} {
		assert.False(t, model.ValidObjectName(name), name)
	}
}

func TestScript(t *testing.T) {
	trials := []model.Trial{
		{S1Object: "a", S1Category: model.CategoryProbe, S2Category: model.CategoryNontarget, TrialIndex: 1, BlockIndex: 1},
		{S1Object: "b", S1Category: model.CategoryIrrelevant, S2Category: model.CategoryTarget, TrialIndex: 2, BlockIndex: 1},
		{S1Object: "a", S1Category: model.CategoryProbe, S2Category: model.CategoryNontarget, TrialIndex: 3, BlockIndex: 2},
	}

	script := Script(trials, testTiming())
	// Two blocks with start and end plus five markers per trial.
	require.Len(t, script, 4+3*5)

	for i, p := range script {
		assert.Equal(t, i+1, p.Seq)
		if i > 0 {
			assert.GreaterOrEqual(t, p.At, script[i-1].At)
		}
	}

	assert.Equal(t, BlockStart, script[0].Name)
	assert.Equal(t, BlockEnd, script[11].Name)
	assert.Equal(t, BlockStart, script[12].Name)
	assert.Equal(t, script[11].At+30*time.Second, script[12].At)
	assert.Equal(t, BlockEnd, script[len(script)-1].Name)

	onsets := 0
	for _, p := range script {
		if c, ok := p.Category(); ok {
			onsets++
			trial, err := p.Int("trial")
			require.NoError(t, err)
			tr := trials[trial-1]
			assert.True(t, c == tr.S1Category || c == tr.S2Category)
		}
	}
	assert.Equal(t, 6, onsets)
	assert.Equal(t, script[len(script)-1].At, Duration(script))
	assert.Zero(t, Duration(nil))
}
