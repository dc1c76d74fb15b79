package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/p300-cit/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidSession  = errors.New("invalid session")
	ErrInvalidAnalysis = errors.New("invalid analysis")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateSession(session *model.Session) error {
	if session == nil {
		return fmt.Errorf("%w: session", ErrNilParameter)
	}
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidSession)
	}
	if strings.TrimSpace(session.Participant.ID) == "" {
		return fmt.Errorf("%w: missing participant ID", ErrInvalidSession)
	}
	if len(session.Trials) == 0 {
		return fmt.Errorf("%w: no trials", ErrInvalidSession)
	}
	for i, t := range session.Trials {
		if t.TrialIndex != i+1 {
			return fmt.Errorf("%w: trial at position %d has index %d", ErrInvalidSession, i+1, t.TrialIndex)
		}
	}
	return nil
}

func validateAnalysis(result *model.ClassificationResult) error {
	if result == nil {
		return fmt.Errorf("%w: analysis", ErrNilParameter)
	}
	if strings.TrimSpace(result.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidAnalysis)
	}

	switch result.Label {
	case model.LabelGuilty, model.LabelInnocent, model.LabelIndeterminate:
	default:
		return fmt.Errorf("%w: unknown label %q", ErrInvalidAnalysis, result.Label)
	}

	seen := make(map[string]bool, len(result.Channels))
	for _, ch := range result.Channels {
		if strings.TrimSpace(ch.Channel) == "" {
			return fmt.Errorf("%w: channel without a name", ErrInvalidAnalysis)
		}
		if seen[ch.Channel] {
			return fmt.Errorf("%w: duplicate channel %s", ErrInvalidAnalysis, ch.Channel)
		}
		seen[ch.Channel] = true
	}
	return nil
}
