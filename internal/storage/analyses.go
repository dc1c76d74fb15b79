package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
)

// SaveAnalysis stores a classification run with its channel results.
func (s *SQLiteStorage) SaveAnalysis(ctx context.Context, result *model.ClassificationResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAnalysis(result); err != nil {
		return err
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analyses (
			id, session_id, source, metric, aggregation, label, reason, max_channel, max_proportion,
			confidence, guilty_threshold, innocent_threshold, iterations, seed, settings, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, result.ID, nullString(result.SessionID), result.Source, result.Metric, result.Aggregation,
		string(result.Label), result.Reason, result.MaxChannel, result.MaxProportion, result.Confidence,
		result.GuiltyThreshold, result.InnocentThreshold, result.Iterations, int64(result.Seed),
		nullString(string(result.Settings)), result.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO analysis_channels (
			analysis_id, channel, proportion, label, reason, confidence, exceeded, iterations,
			n_probe, n_irrelevant, n_target
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, ch := range result.Channels {
		var proportion sql.NullFloat64
		if ch.Proportion != nil {
			proportion = sql.NullFloat64{Float64: *ch.Proportion, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			result.ID, ch.Channel, proportion, string(ch.Label), ch.Reason, ch.Confidence, ch.Exceeded,
			ch.Iterations, ch.NProbe, ch.NIrrelevant, ch.NTarget,
		); err != nil {
			return fmt.Errorf("failed to save channel %s: %w", ch.Channel, err)
		}
	}

	return tx.Commit()
}

// GetAnalysis loads a classification run with its channels ordered by name.
func (s *SQLiteStorage) GetAnalysis(ctx context.Context, id string) (*model.ClassificationResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, analysisSelect+` WHERE id = ?`, id)
	result, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	channels, err := s.getChannels(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	result.Channels = channels
	return result, nil
}

// ListAnalyses returns classification runs without channel detail, newest
// first. A limit of zero returns all runs.
func (s *SQLiteStorage) ListAnalyses(ctx context.Context, limit int) ([]model.ClassificationResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := analysisSelect + ` ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ClassificationResult
	for rows.Next() {
		result, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *result)
	}
	return out, rows.Err()
}

const analysisSelect = `
	SELECT id, session_id, source, metric, aggregation, label, reason, max_channel, max_proportion,
		confidence, guilty_threshold, innocent_threshold, iterations, seed, settings, created_at
	FROM analyses`

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (*model.ClassificationResult, error) {
	var (
		r                                         model.ClassificationResult
		label                                     string
		sessionID, source, reason, maxCh, setting sql.NullString
		seed                                      int64
	)
	err := row.Scan(&r.ID, &sessionID, &source, &r.Metric, &r.Aggregation, &label, &reason, &maxCh,
		&r.MaxProportion, &r.Confidence, &r.GuiltyThreshold, &r.InnocentThreshold, &r.Iterations,
		&seed, &setting, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}

	r.Label = model.Label(label)
	r.SessionID = sessionID.String
	r.Source = source.String
	r.Reason = reason.String
	r.MaxChannel = maxCh.String
	r.Seed = uint64(seed)
	if setting.Valid {
		r.Settings = []byte(setting.String)
	}
	return &r, nil
}

func (s *SQLiteStorage) getChannels(ctx context.Context, q queryable, analysisID string) ([]model.ChannelResult, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT channel, proportion, label, reason, confidence, exceeded, iterations, n_probe, n_irrelevant, n_target
		FROM analysis_channels WHERE analysis_id = ? ORDER BY channel
	`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ChannelResult
	for rows.Next() {
		var (
			ch         model.ChannelResult
			proportion sql.NullFloat64
			label      string
			reason     sql.NullString
		)
		if err := rows.Scan(&ch.Channel, &proportion, &label, &reason, &ch.Confidence, &ch.Exceeded,
			&ch.Iterations, &ch.NProbe, &ch.NIrrelevant, &ch.NTarget); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		if proportion.Valid {
			p := proportion.Float64
			ch.Proportion = &p
		}
		ch.Label = model.Label(label)
		ch.Reason = reason.String
		out = append(out, ch)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
