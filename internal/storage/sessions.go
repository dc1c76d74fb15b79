package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/Veraticus/p300-cit/internal/service"
)

// SaveSession stores a session and all of its trials atomically.
func (s *SQLiteStorage) SaveSession(ctx context.Context, session *model.Session) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSession(session); err != nil {
		return err
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (
			id, participant_id, session_label, condition, seed, block_size, protocol, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.Participant.ID, session.Participant.Session, session.Participant.Condition,
		int64(session.Seed), session.BlockSize, session.Protocol, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trials (
			session_id, trial_index, block_index, s1_object, s1_view, s1_category,
			s2_string, s2_category, isi_ns, iti_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range session.Trials {
		if _, err := stmt.ExecContext(ctx,
			session.ID, t.TrialIndex, t.BlockIndex, t.S1Object, t.S1View, string(t.S1Category),
			t.S2String, string(t.S2Category), int64(t.ISIDuration), int64(t.ITIDuration),
		); err != nil {
			return fmt.Errorf("failed to save trial %d: %w", t.TrialIndex, err)
		}
	}

	return tx.Commit()
}

// GetSession loads a session with its trials in presentation order.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*model.Session, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var (
		session   model.Session
		seed      int64
		condition sql.NullString
		protocol  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, participant_id, session_label, condition, seed, block_size, protocol, created_at
		FROM sessions WHERE id = ?
	`, id).Scan(&session.ID, &session.Participant.ID, &session.Participant.Session, &condition,
		&seed, &session.BlockSize, &protocol, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	session.Seed = uint64(seed)
	session.Participant.Condition = condition.String
	session.Protocol = protocol.String

	trials, err := s.getTrials(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	session.Trials = trials
	return &session, nil
}

func (s *SQLiteStorage) getTrials(ctx context.Context, q queryable, sessionID string) ([]model.Trial, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT trial_index, block_index, s1_object, s1_view, s1_category, s2_string, s2_category, isi_ns, iti_ns
		FROM trials WHERE session_id = ? ORDER BY trial_index
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var trials []model.Trial
	for rows.Next() {
		var (
			t          model.Trial
			s1, s2     string
			isiNs, iti int64
		)
		if err := rows.Scan(&t.TrialIndex, &t.BlockIndex, &t.S1Object, &t.S1View, &s1, &t.S2String, &s2, &isiNs, &iti); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		t.S1Category = model.Category(s1)
		t.S2Category = model.Category(s2)
		t.ISIDuration = time.Duration(isiNs)
		t.ITIDuration = time.Duration(iti)
		trials = append(trials, t)
	}
	return trials, rows.Err()
}

// ListSessions returns stored sessions, newest first. An empty participantID
// lists every participant.
func (s *SQLiteStorage) ListSessions(ctx context.Context, participantID string) ([]service.SessionInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT s.id, s.participant_id, s.session_label, s.condition, s.seed, s.block_size, s.created_at,
			(SELECT COUNT(*) FROM trials t WHERE t.session_id = s.id),
			(SELECT COALESCE(MAX(t.block_index), 0) FROM trials t WHERE t.session_id = s.id)
		FROM sessions s`
	var args []any
	if participantID != "" {
		query += ` WHERE s.participant_id = ?`
		args = append(args, participantID)
	}
	query += ` ORDER BY s.created_at DESC, s.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []service.SessionInfo
	for rows.Next() {
		var (
			info      service.SessionInfo
			seed      int64
			condition sql.NullString
		)
		if err := rows.Scan(&info.ID, &info.Participant.ID, &info.Participant.Session, &condition,
			&seed, &info.BlockSize, &info.CreatedAt, &info.Trials, &info.Blocks); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		info.Seed = uint64(seed)
		info.Participant.Condition = condition.String
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and its trials.
func (s *SQLiteStorage) DeleteSession(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, common.ErrNotFound)
	}
	return nil
}
