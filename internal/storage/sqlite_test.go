package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testSession(id string, n int) *model.Session {
	session := &model.Session{
		ID:          id,
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Participant: model.Participant{ID: "007", Session: "2", Condition: "guilty"},
		Protocol:    "seed: 99\n",
		Seed:        99,
		BlockSize:   2,
	}
	for i := 0; i < n; i++ {
		cat := model.CategoryIrrelevant
		if i%5 == 0 {
			cat = model.CategoryProbe
		}
		session.Trials = append(session.Trials, model.Trial{
			S1Object:    "obj",
			S1View:      "obj_view1",
			S1Category:  cat,
			S2String:    "222222",
			S2Category:  model.CategoryNontarget,
			TrialIndex:  i + 1,
			BlockIndex:  i/2 + 1,
			ISIDuration: time.Duration(1000+i) * time.Millisecond,
			ITIDuration: 1750 * time.Millisecond,
		})
	}
	return session
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := createTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestSessionRoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	session := testSession("s-1", 5)
	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, session.Trials, got.Trials)
	assert.Equal(t, session.Participant, got.Participant)
	assert.Equal(t, session.Protocol, got.Protocol)
	assert.Equal(t, uint64(99), got.Seed)
	assert.True(t, session.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, 3, got.NumBlocks())
}

func TestSessionLargeSeed(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	session := testSession("s-big", 1)
	session.Seed = ^uint64(0) - 7
	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx, "s-big")
	require.NoError(t, err)
	assert.Equal(t, session.Seed, got.Seed)
}

func TestSessionErrors(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetSession(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyString)

	//nolint:staticcheck // nil context is the case under test
	assert.ErrorIs(t, store.SaveSession(nil, testSession("x", 1)), ErrNilContext)
	assert.ErrorIs(t, store.SaveSession(ctx, nil), ErrNilParameter)
	assert.ErrorIs(t, store.SaveSession(ctx, testSession("", 1)), ErrInvalidSession)
	assert.ErrorIs(t, store.SaveSession(ctx, testSession("empty", 0)), ErrInvalidSession)

	bad := testSession("renumbered", 3)
	bad.Trials[1].TrialIndex = 7
	assert.ErrorIs(t, store.SaveSession(ctx, bad), ErrInvalidSession)

	require.NoError(t, store.SaveSession(ctx, testSession("dup", 2)))
	assert.Error(t, store.SaveSession(ctx, testSession("dup", 2)))
}

func TestListAndDeleteSessions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	older := testSession("a", 4)
	newer := testSession("b", 6)
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	other := testSession("c", 2)
	other.Participant.ID = "008"
	other.Participant.Condition = ""
	for _, s := range []*model.Session{older, newer, other} {
		require.NoError(t, store.SaveSession(ctx, s))
	}

	all, err := store.ListSessions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, 6, all[0].Trials)
	assert.Equal(t, 3, all[0].Blocks)

	mine, err := store.ListSessions(ctx, "007")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	require.NoError(t, store.DeleteSession(ctx, "a"))
	_, err = store.GetSession(ctx, "a")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, store.DeleteSession(ctx, "a"), common.ErrNotFound)

	var orphans int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM trials WHERE session_id = 'a'").Scan(&orphans))
	assert.Zero(t, orphans)
}

func testAnalysis(id string) *model.ClassificationResult {
	p := 0.97
	return &model.ClassificationResult{
		ID:                id,
		CreatedAt:         time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		SessionID:         "s-1",
		Source:            "epochs.csv",
		Metric:            "bad",
		Aggregation:       "any",
		Label:             model.LabelGuilty,
		Reason:            "highest proportion 0.970 on Pz",
		MaxChannel:        "Pz",
		MaxProportion:     0.97,
		Confidence:        0.97,
		GuiltyThreshold:   0.9,
		InnocentThreshold: 0.1,
		Iterations:        1000,
		Seed:              5,
		Settings:          json.RawMessage(`{"metric":"bad"}`),
		Channels: []model.ChannelResult{
			{Channel: "Pz", Proportion: &p, Label: model.LabelGuilty, Confidence: 0.97, Exceeded: 970, Iterations: 1000, NProbe: 80, NIrrelevant: 320},
			{Channel: "O1", Label: model.LabelIndeterminate, Reason: "insufficient data", Iterations: 1000, NProbe: 3, NIrrelevant: 320},
		},
	}
}

func TestAnalysisRoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	want := testAnalysis("a-1")
	require.NoError(t, store.SaveAnalysis(ctx, want))

	got, err := store.GetAnalysis(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, want.Label, got.Label)
	assert.Equal(t, want.SessionID, got.SessionID)
	assert.Equal(t, want.Source, got.Source)
	assert.Equal(t, want.MaxChannel, got.MaxChannel)
	assert.JSONEq(t, string(want.Settings), string(got.Settings))
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

	require.Len(t, got.Channels, 2)
	// Channels come back ordered by name.
	assert.Equal(t, "O1", got.Channels[0].Channel)
	assert.Nil(t, got.Channels[0].Proportion)
	assert.Equal(t, "insufficient data", got.Channels[0].Reason)
	require.NotNil(t, got.Channels[1].Proportion)
	assert.InDelta(t, 0.97, *got.Channels[1].Proportion, 1e-12)
	assert.Equal(t, 970, got.Channels[1].Exceeded)
}

func TestListAnalyses(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	first := testAnalysis("a-1")
	second := testAnalysis("a-2")
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	second.SessionID = ""
	require.NoError(t, store.SaveAnalysis(ctx, first))
	require.NoError(t, store.SaveAnalysis(ctx, second))

	all, err := store.ListAnalyses(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a-2", all[0].ID)
	assert.Empty(t, all[0].SessionID)
	assert.Empty(t, all[0].Channels)

	limited, err := store.ListAnalyses(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAnalysisErrors(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.GetAnalysis(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, store.SaveAnalysis(ctx, nil), ErrNilParameter)

	noID := testAnalysis("")
	assert.ErrorIs(t, store.SaveAnalysis(ctx, noID), ErrInvalidAnalysis)

	badLabel := testAnalysis("x")
	badLabel.Label = "maybe"
	assert.ErrorIs(t, store.SaveAnalysis(ctx, badLabel), ErrInvalidAnalysis)

	dup := testAnalysis("y")
	dup.Channels[1].Channel = "Pz"
	assert.ErrorIs(t, store.SaveAnalysis(ctx, dup), ErrInvalidAnalysis)
}

func TestBackup(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSession(ctx, testSession("s-1", 3)))

	dest := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, store.Backup(ctx, dest))

	restored, err := NewSQLiteStorage(dest)
	require.NoError(t, err)
	defer func() { _ = restored.Close() }()
	require.NoError(t, restored.Migrate(ctx))

	got, err := restored.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, got.Trials, 3)

	assert.Error(t, store.Backup(ctx, dest), "existing file is not overwritten")
	assert.Error(t, store.Backup(ctx, "relative.db"))
	assert.Error(t, store.Backup(ctx, filepath.Join(t.TempDir(), "it's.db")))
}
