package recoveryapp

import (
	"context"

	"flowforge/internal/core/apperrors"
	postPort "flowforge/internal/ports/post"
	recoveryPort "flowforge/internal/ports/recovery"
	"flowforge/internal/ports/videojob"

	"go.uber.org/zap"
)

// Reconciler folds one journaled operation's provider-side outcome into
// the post. The video service satisfies it; it never submits new jobs.
type Reconciler interface {
	ReconcileOperation(ctx context.Context, postID, operationID string) (videojob.Status, error)
}

// Summary counts what a ledger replay did.
type Summary struct {
	Entries   int
	Recovered int
	Skipped   int
	Failed    int
}

// RecoveryService replays the recovery ledger after a crash: every
// journaled submission is reattached to its post and polled to a current
// status. Nothing is ever resubmitted; the provider already accepted
// these jobs.
type RecoveryService struct {
	Posts  postPort.Repository
	Videos Reconciler
	Ledger recoveryPort.Reader
	Logger *zap.Logger
}

func NewRecoveryService(
	posts postPort.Repository,
	videos Reconciler,
	ledger recoveryPort.Reader,
	logger *zap.Logger,
) *RecoveryService {
	return &RecoveryService{Posts: posts, Videos: videos, Ledger: ledger, Logger: logger}
}

type outcome int

const (
	outcomeRecovered outcome = iota
	outcomeSkipped
	outcomeFailed
)

// Run replays every submitted ledger entry once and returns the tally.
func (s *RecoveryService) Run(ctx context.Context) (*Summary, error) {
	entries, err := s.Ledger.Entries(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Entries: len(entries)}
	for _, entry := range entries {
		if entry.Status != recoveryPort.StatusSubmitted {
			continue
		}
		switch s.replay(ctx, entry) {
		case outcomeRecovered:
			summary.Recovered++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
		}
	}
	return summary, nil
}

func (s *RecoveryService) replay(ctx context.Context, entry recoveryPort.Entry) outcome {
	p, err := s.Posts.FindByID(ctx, entry.PostID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			s.Logger.Warn("journaled post no longer exists",
				zap.String("post_id", entry.PostID),
				zap.String("operation_id", entry.OperationID))
			return outcomeSkipped
		}
		s.Logger.Error("could not load journaled post",
			zap.String("post_id", entry.PostID),
			zap.Error(err))
		return outcomeFailed
	}

	// A terminal post already absorbed this operation's outcome.
	if p.VideoStatus.Terminal() {
		return outcomeSkipped
	}

	// The crash window: the provider accepted the job but the post row was
	// never updated. Reattach the journaled operation before polling.
	if p.VideoOperationID == "" {
		if err := s.Posts.SetVideoSubmission(ctx, entry.PostID, postPort.VideoSubmission{
			Provider:    entry.Provider,
			OperationID: entry.OperationID,
		}); err != nil {
			s.Logger.Error("could not reattach journaled operation",
				zap.String("post_id", entry.PostID),
				zap.String("operation_id", entry.OperationID),
				zap.Error(err))
			return outcomeFailed
		}
		s.Logger.Info("reattached journaled operation",
			zap.String("post_id", entry.PostID),
			zap.String("operation_id", entry.OperationID))
	} else if p.VideoOperationID != entry.OperationID {
		// A later submission superseded this one; leave the post alone.
		return outcomeSkipped
	}

	if _, err := s.Videos.ReconcileOperation(ctx, entry.PostID, entry.OperationID); err != nil {
		s.Logger.Error("could not reconcile journaled operation",
			zap.String("post_id", entry.PostID),
			zap.String("operation_id", entry.OperationID),
			zap.Error(err))
		return outcomeFailed
	}
	return outcomeRecovered
}
