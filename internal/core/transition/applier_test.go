package transition

import (
	"context"
	"testing"
	"time"

	"flowforge/internal/core/apperrors"
	"flowforge/internal/core/audit"
	"flowforge/internal/core/batch"
	"flowforge/internal/core/guard"
	transitionPort "flowforge/internal/ports/transition"

	"go.uber.org/zap"
)

type fakeStore struct {
	snapshot  guard.Snapshot
	commits   []transitionPort.Change
	audits    []*audit.Entry
	commitErr error
}

func (f *fakeStore) Snapshot(ctx context.Context, batchID string) (guard.Snapshot, error) {
	return f.snapshot, nil
}

func (f *fakeStore) Commit(ctx context.Context, change transitionPort.Change) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits = append(f.commits, change)
	return nil
}

func (f *fakeStore) AppendAudit(ctx context.Context, entry *audit.Entry) error {
	f.audits = append(f.audits, entry)
	return nil
}

func scriptedSnapshot() guard.Snapshot {
	return guard.Snapshot{
		BatchID: "b1",
		State:   batch.StateSeeded,
		Counts:  batch.TypeCounts{Value: 1},
		Posts: []guard.PostFacts{
			{ID: "p1", ScriptApproved: true},
		},
	}
}

func TestApplyAllowedCommitsChangeWithAudit(t *testing.T) {
	store := &fakeStore{snapshot: scriptedSnapshot()}
	applier := NewApplier(store, zap.NewNop())

	state, err := applier.Apply(context.Background(), Request{
		BatchID: "b1",
		Target:  batch.StateScripted,
		Actor:   "alice",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if state != batch.StateScripted {
		t.Errorf("state = %s, want SCRIPTED", state)
	}
	if len(store.commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(store.commits))
	}

	change := store.commits[0]
	if change.From != batch.StateSeeded || change.To != batch.StateScripted {
		t.Errorf("change %s -> %s, want SEEDED -> SCRIPTED", change.From, change.To)
	}
	if change.Audit == nil {
		t.Fatal("commit must carry the audit entry")
	}
	if !change.Audit.Allowed || change.Audit.Actor != "alice" {
		t.Errorf("audit = %+v, want allowed entry for alice", change.Audit)
	}
	if len(store.audits) != 0 {
		t.Error("allowed transitions must not append audit outside the commit")
	}
}

func TestApplyDeniedRecordsAuditAndReturnsTaxonomyError(t *testing.T) {
	snap := scriptedSnapshot()
	snap.Posts[0].ScriptApproved = false
	store := &fakeStore{snapshot: snap}
	applier := NewApplier(store, zap.NewNop())

	_, err := applier.Apply(context.Background(), Request{
		BatchID: "b1",
		Target:  batch.StateScripted,
		Actor:   "alice",
	})
	if !apperrors.IsCode(err, apperrors.CodeStateTransition) {
		t.Fatalf("err = %v, want state_transition_error", err)
	}
	appErr := apperrors.From(err)
	if _, ok := appErr.Details["pending_posts"]; !ok {
		t.Errorf("details = %v, want pending_posts", appErr.Details)
	}

	if len(store.commits) != 0 {
		t.Error("denied transition must not commit")
	}
	if len(store.audits) != 1 {
		t.Fatalf("audits = %d, want 1 denial entry", len(store.audits))
	}
	entry := store.audits[0]
	if entry.Allowed {
		t.Error("denial audit must record Allowed=false")
	}
	if entry.FromState != "SEEDED" || entry.ToState != "SCRIPTED" {
		t.Errorf("audit states %s -> %s", entry.FromState, entry.ToState)
	}
	if entry.DetailsJSON == "" {
		t.Error("denial audit must carry the unmet facts")
	}
}

func TestApplyStaleStateMapsToConflict(t *testing.T) {
	store := &fakeStore{snapshot: scriptedSnapshot(), commitErr: transitionPort.ErrStaleState}
	applier := NewApplier(store, zap.NewNop())

	_, err := applier.Apply(context.Background(), Request{
		BatchID: "b1",
		Target:  batch.StateScripted,
		Actor:   "alice",
	})
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	appErr := apperrors.From(err)
	if appErr.Details["expected_state"] != "SEEDED" {
		t.Errorf("details = %v, want expected_state SEEDED", appErr.Details)
	}
}

func TestApplyRegenerationResets(t *testing.T) {
	cases := []struct {
		target batch.State
		reset  transitionPort.PostReset
	}{
		{batch.StateScripted, transitionPort.ResetPromptAndVideo},
		{batch.StatePromptsBuilt, transitionPort.ResetVideo},
		{batch.StatePublishPlan, transitionPort.ResetNone},
	}

	for _, tc := range cases {
		snap := guard.Snapshot{
			BatchID: "b1",
			State:   batch.StateQA,
			Counts:  batch.TypeCounts{Value: 1},
			Posts: []guard.PostFacts{
				{ID: "p1", ScriptApproved: true, PromptBuilt: true, VideoStatus: "completed", QAPass: true},
			},
		}
		store := &fakeStore{snapshot: snap}
		applier := NewApplier(store, zap.NewNop())

		_, err := applier.Apply(context.Background(), Request{
			BatchID: "b1",
			Target:  tc.target,
			Actor:   "alice",
			PostIDs: []string{"p1"},
		})
		if err != nil {
			t.Fatalf("Apply to %s: %v", tc.target, err)
		}
		change := store.commits[0]
		if change.Reset != tc.reset {
			t.Errorf("QA -> %s reset = %v, want %v", tc.target, change.Reset, tc.reset)
		}
		if len(change.ResetPostIDs) != 1 || change.ResetPostIDs[0] != "p1" {
			t.Errorf("ResetPostIDs = %v", change.ResetPostIDs)
		}
	}
}

func TestApplyEveryAttemptProducesExactlyOneAuditEntry(t *testing.T) {
	// Alternate allowed and denied attempts; each leaves one entry.
	allowedSnap := scriptedSnapshot()
	deniedSnap := scriptedSnapshot()
	deniedSnap.Posts[0].ScriptApproved = false

	store := &fakeStore{snapshot: allowedSnap}
	applier := NewApplier(store, zap.NewNop())
	applier.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	if _, err := applier.Apply(context.Background(), Request{BatchID: "b1", Target: batch.StateScripted, Actor: "a"}); err != nil {
		t.Fatalf("allowed attempt: %v", err)
	}
	store.snapshot = deniedSnap
	if _, err := applier.Apply(context.Background(), Request{BatchID: "b1", Target: batch.StateScripted, Actor: "a"}); err == nil {
		t.Fatal("denied attempt must error")
	}

	total := len(store.commits) + len(store.audits)
	if total != 2 {
		t.Errorf("audit entries = %d, want one per attempt", total)
	}
}
