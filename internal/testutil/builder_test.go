package testutil

import (
	"testing"

	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionBuilder(t *testing.T) {
	session := NewSessionBuilder(t).
		WithID("s-9").
		WithParticipant(model.Participant{ID: "007", Session: "2"}).
		WithTrials(12).
		WithBlockSize(4).
		Build()

	assert.Equal(t, "s-9", session.ID)
	require.Len(t, session.Trials, 12)
	assert.Equal(t, 3, session.NumBlocks())
	assert.Equal(t, model.CategoryProbe, session.Trials[0].S1Category)
	assert.Equal(t, model.CategoryTarget, session.Trials[4].S2Category)
	for i, trial := range session.Trials {
		assert.Equal(t, i+1, trial.TrialIndex)
	}
}

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t,
		NewSessionBuilder(t).WithID("a").Build(),
		NewSessionBuilder(t).WithID("b").WithTrials(3).Build(),
	)

	got := db.MustGetSession("b")
	assert.Len(t, got.Trials, 3)
}
