package main

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/p300-cit/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoredSessionReplaysMarkers(t *testing.T) {
	p, c := declaredProtocol(t)
	session, err := generateSession(p, c, time.Now())
	require.NoError(t, err)

	db := testutil.SetupTestDB(t, session)
	stored := db.MustGetSession(session.ID)

	want, err := sessionScript(session)
	require.NoError(t, err)
	got, err := sessionScript(stored)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	infos, err := db.Storage.ListSessions(context.Background(), "P07")
	require.NoError(t, err)
	rows := sessionRows(infos)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{session.ID, "P07", "1", "thief", "400", "5", "1"}, rows[0][:7])
}

func TestStoredAnalysis(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.NewSessionBuilder(t).WithID("s-1").Build())
	ctx := context.Background()

	s, err := loadAnalysisSettings(viper.New())
	require.NoError(t, err)
	s.Classifier.Iterations = 100

	data, err := prepareChannels(scalarSet("Pz"), s, nil)
	require.NoError(t, err)
	result, err := classify(ctx, s.Classifier, data)
	require.NoError(t, err)
	result.SessionID = "s-1"
	result.Source = "epochs.csv"

	require.NoError(t, db.Storage.SaveAnalysis(ctx, result))

	listed, err := db.Storage.ListAnalyses(ctx, 0)
	require.NoError(t, err)
	rows := analysisRows(listed)
	require.Len(t, rows, 1)
	assert.Equal(t, result.ID, rows[0][0])
	assert.Equal(t, "epochs.csv", rows[0][1])
	assert.Equal(t, "1.000", rows[0][4])
}
