package transition

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"flowforge/internal/core/apperrors"
	"flowforge/internal/core/audit"
	"flowforge/internal/core/batch"
	"flowforge/internal/core/guard"
	transitionPort "flowforge/internal/ports/transition"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// Request is one attempted batch transition. PostIDs narrows regeneration
// resets to specific posts; it is ignored for forward transitions.
type Request struct {
	BatchID string
	Target  batch.State
	Actor   string
	PostIDs []string
}

// Applier is the only component permitted to mutate batch lifecycle state.
// It evaluates the guard engine against a fresh snapshot and commits the
// state change, the audit entry and any regeneration resets atomically,
// using optimistic concurrency against the snapshot state.
type Applier struct {
	store  transitionPort.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewApplier(store transitionPort.Store, logger *zap.Logger) *Applier {
	return &Applier{store: store, logger: logger, now: time.Now}
}

// Apply validates and performs the requested transition, returning the new
// state. Denials return state_transition_error with the unmet facts; a lost
// optimistic-concurrency race returns conflict.
func (a *Applier) Apply(ctx context.Context, req Request) (batch.State, error) {
	snap, err := a.store.Snapshot(ctx, req.BatchID)
	if err != nil {
		return "", err
	}

	decision := guard.Evaluate(snap, req.Target, a.now())
	entry := a.auditEntry(snap, req, decision)

	if !decision.Allowed {
		if auditErr := a.store.AppendAudit(ctx, entry); auditErr != nil {
			a.logger.Error("failed to record denied transition",
				zap.String("batch_id", req.BatchID),
				zap.Error(auditErr))
		}
		a.logger.Info("transition denied",
			zap.String("batch_id", req.BatchID),
			zap.String("from_state", string(snap.State)),
			zap.String("target_state", string(req.Target)),
			zap.String("actor", req.Actor),
			zap.String("reason", decision.Reason))
		return "", apperrors.StateTransition(decision.Reason, decision.Details)
	}

	change := transitionPort.Change{
		BatchID:      req.BatchID,
		From:         snap.State,
		To:           req.Target,
		Audit:        entry,
		Reset:        resetFor(snap.State, req.Target),
		ResetPostIDs: req.PostIDs,
	}
	if err := a.store.Commit(ctx, change); err != nil {
		if errors.Is(err, transitionPort.ErrStaleState) {
			return "", apperrors.Conflict("batch state changed concurrently", map[string]any{
				"batch_id":       req.BatchID,
				"expected_state": string(snap.State),
			})
		}
		return "", err
	}

	a.logger.Info("batch transitioned",
		zap.String("batch_id", req.BatchID),
		zap.String("from_state", string(snap.State)),
		zap.String("to_state", string(req.Target)),
		zap.String("actor", req.Actor))
	return req.Target, nil
}

func (a *Applier) auditEntry(snap guard.Snapshot, req Request, decision guard.Decision) *audit.Entry {
	var detailsJSON string
	if len(decision.Details) > 0 {
		if raw, err := json.Marshal(decision.Details); err == nil {
			detailsJSON = string(raw)
		}
	}
	return &audit.Entry{
		ID:          uuid.Must(uuid.NewV4()),
		BatchID:     uuid.FromStringOrNil(req.BatchID),
		Actor:       req.Actor,
		FromState:   string(snap.State),
		ToState:     string(req.Target),
		Allowed:     decision.Allowed,
		Reason:      decision.Reason,
		DetailsJSON: detailsJSON,
		CreatedAt:   a.now(),
	}
}

func resetFor(from, to batch.State) transitionPort.PostReset {
	if from != batch.StateQA {
		return transitionPort.ResetNone
	}
	switch to {
	case batch.StateScripted:
		return transitionPort.ResetPromptAndVideo
	case batch.StatePromptsBuilt:
		return transitionPort.ResetVideo
	default:
		return transitionPort.ResetNone
	}
}
