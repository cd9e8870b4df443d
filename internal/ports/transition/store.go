package transition

import (
	"context"
	"errors"

	"flowforge/internal/core/audit"
	"flowforge/internal/core/batch"
	"flowforge/internal/core/guard"
)

// ErrStaleState is returned by Commit when the batch state changed between
// snapshot and write. Callers surface it as a conflict so the client can
// re-fetch and retry.
var ErrStaleState = errors.New("batch state changed concurrently")

// PostReset selects which post fields a regeneration transition clears.
type PostReset int

const (
	ResetNone PostReset = iota
	// ResetVideo clears video job fields only (QA -> PROMPTS_BUILT).
	ResetVideo
	// ResetPromptAndVideo clears the assembled prompt as well
	// (QA -> SCRIPTED).
	ResetPromptAndVideo
)

// Change is one atomic state move: conditional state update, audit append
// and any regeneration resets succeed or fail together.
type Change struct {
	BatchID string
	From    batch.State
	To      batch.State
	Audit   *audit.Entry
	Reset   PostReset
	// ResetPostIDs limits regeneration resets to the named posts;
	// empty means every post in the batch.
	ResetPostIDs []string
}

// Store is the outbound port the transition applier writes through.
type Store interface {
	// Snapshot loads the aggregate view guards evaluate.
	Snapshot(ctx context.Context, batchID string) (guard.Snapshot, error)
	// Commit applies the change as a single atomic unit, failing with
	// ErrStaleState when the snapshot state no longer matches.
	Commit(ctx context.Context, change Change) error
	// AppendAudit records a denied attempt outside any state change.
	AppendAudit(ctx context.Context, entry *audit.Entry) error
}
