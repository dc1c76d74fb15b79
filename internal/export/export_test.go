package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *model.Session {
	return &model.Session{
		ID:          "sess-1",
		Participant: model.Participant{ID: "007", Session: "1", Condition: "thief"},
		Seed:        42,
		BlockSize:   2,
		Trials: []model.Trial{
			{
				S1Object: "pendrive", S1View: "images/probe_pendrive_view1.jpg", S1Category: model.CategoryProbe,
				S2String: "111111", S2Category: model.CategoryTarget,
				TrialIndex: 1, BlockIndex: 1,
				ISIDuration: 1234 * time.Millisecond, ITIDuration: 1500 * time.Millisecond,
			},
			{
				S1Object: "mouse", S1View: "irr_mouse_view2.jpg", S1Category: model.CategoryIrrelevant,
				S2String: "222222", S2Category: model.CategoryNontarget,
				TrialIndex: 2, BlockIndex: 1,
				ISIDuration: time.Second, ITIDuration: 2 * time.Second,
			},
		},
	}
}

func readCSV(t *testing.T, data string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteTrialsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrialsCSV(&buf, testSession()))

	records := readCSV(t, buf.String())
	require.Len(t, records, 3)
	assert.Equal(t, TrialColumns, records[0])
	assert.Equal(t, []string{
		"007", "1", "thief", "1", "1",
		"probe", "pendrive", "probe_pendrive_view1.jpg",
		"1.234",
		"target", "111111",
		"1.500",
	}, records[1])
	assert.Equal(t, "irr_mouse_view2.jpg", records[2][7])
	assert.Equal(t, "nontarget", records[2][9])
}

func TestWriteTrialsJSON(t *testing.T) {
	var buf bytes.Buffer
	session := testSession()
	require.NoError(t, WriteTrialsJSON(&buf, session))

	var decoded model.Session
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, session.Trials, decoded.Trials)
	assert.Equal(t, session.Participant, decoded.Participant)
}

func testResult() *model.ClassificationResult {
	p := 0.953
	return &model.ClassificationResult{
		ID:            "an-1",
		Label:         model.LabelGuilty,
		Reason:        "highest proportion on Pz",
		MaxChannel:    "Pz",
		MaxProportion: 0.953,
		Confidence:    0.953,
		Iterations:    1000,
		Channels: []model.ChannelResult{
			{Channel: "Pz", Proportion: &p, Exceeded: 953, Iterations: 1000, Label: model.LabelGuilty, Confidence: 0.953, NProbe: 80, NIrrelevant: 320},
			{Channel: "Fz", Label: model.LabelIndeterminate, Reason: "insufficient data", Iterations: 1000, NProbe: 4, NIrrelevant: 320},
		},
	}
}

func TestWriteResultCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResultCSV(&buf, testResult()))

	records := readCSV(t, buf.String())
	require.Len(t, records, 4)
	assert.Equal(t, ResultColumns, records[0])

	assert.Equal(t, "Pz", records[1][1])
	assert.Equal(t, "0.953", records[1][2])
	assert.Equal(t, "953", records[1][3])

	assert.Equal(t, "Fz", records[2][1])
	assert.Empty(t, records[2][2], "unevaluated channels have no proportion")
	assert.Equal(t, "indeterminate", records[2][5])

	assert.Equal(t, OverallChannel, records[3][1])
	assert.Equal(t, "guilty", records[3][5])
}

func TestWriteResultJSON(t *testing.T) {
	var buf bytes.Buffer
	result := testResult()
	result.Channels[1].Err = errors.New("not serialized")
	require.NoError(t, WriteResultJSON(&buf, result))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "guilty", decoded["label"])

	channels, ok := decoded["channels"].([]any)
	require.True(t, ok)
	require.Len(t, channels, 2)
	fz, ok := channels[1].(map[string]any)
	require.True(t, ok)
	assert.Nil(t, fz["proportion"])
	assert.NotContains(t, fz, "Err")
}

func TestOutputFilename(t *testing.T) {
	now := time.Date(2026, 5, 4, 13, 7, 9, 0, time.UTC)

	tests := []struct {
		name        string
		participant model.Participant
		suffix      string
		format      Format
		want        string
	}{
		{"numeric session padded", model.Participant{ID: "P01", Session: "3"}, "sequence", FormatCSV, "P01_S03_20260504_130709_sequence.csv"},
		{"with condition", model.Participant{ID: "P01", Session: "12", Condition: "control"}, "result", FormatJSON, "P01_S12_control_20260504_130709_result.json"},
		{"label session kept", model.Participant{ID: "007", Session: "pilot"}, "sequence", FormatCSV, "007_Spilot_20260504_130709_sequence.csv"},
		{"no suffix", model.Participant{ID: "007", Session: "1"}, "", FormatCSV, "007_S01_20260504_130709.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputFilename(tt.participant, tt.suffix, tt.format, now))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("fif")
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trials.csv")
	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		return WriteTrialsCSV(w, testSession())
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "participant_id,session_id"))

	failing := errors.New("boom")
	err = WriteFile(filepath.Join(t.TempDir(), "x.csv"), func(io.Writer) error { return failing })
	assert.ErrorIs(t, err, failing)
}
