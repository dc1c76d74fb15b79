// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/p300-cit/internal/model"
)

// SessionInfo summarizes a stored session without its trials.
type SessionInfo struct {
	CreatedAt   time.Time
	ID          string
	Participant model.Participant
	Seed        uint64
	BlockSize   int
	Trials      int
	Blocks      int
}

// SessionStore persists generated sessions.
type SessionStore interface {
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context, participantID string) ([]SessionInfo, error)
	DeleteSession(ctx context.Context, id string) error
}

// AnalysisStore persists classification runs.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, result *model.ClassificationResult) error
	GetAnalysis(ctx context.Context, id string) (*model.ClassificationResult, error)
	ListAnalyses(ctx context.Context, limit int) ([]model.ClassificationResult, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	SessionStore
	AnalysisStore

	// Database management
	Migrate(ctx context.Context) error
	Backup(ctx context.Context, destPath string) error
	Path() string
	Close() error
}
