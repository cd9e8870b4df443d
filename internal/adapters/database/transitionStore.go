package database

import (
	"context"
	"errors"

	"flowforge/internal/core/apperrors"
	"flowforge/internal/core/audit"
	"flowforge/internal/core/batch"
	"flowforge/internal/core/guard"
	"flowforge/internal/core/post"
	transitionPort "flowforge/internal/ports/transition"

	"gorm.io/gorm"
)

// TransitionStoreDatabase implements the transition store port on gorm.
// Commit serializes writes per batch through a conditional update on the
// snapshot state: a concurrent transition makes the WHERE clause miss and
// the whole transaction rolls back with ErrStaleState.
type TransitionStoreDatabase struct {
	db *gorm.DB
}

func NewTransitionStoreDatabase(db *gorm.DB) *TransitionStoreDatabase {
	return &TransitionStoreDatabase{db: db}
}

func (s *TransitionStoreDatabase) Snapshot(ctx context.Context, batchID string) (guard.Snapshot, error) {
	var b batch.Batch
	if err := s.db.WithContext(ctx).Where("id = ?", batchID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return guard.Snapshot{}, apperrors.NotFound("batch not found", map[string]any{"batch_id": batchID})
		}
		return guard.Snapshot{}, err
	}

	var posts []*post.Post
	if err := s.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("created_at").Find(&posts).Error; err != nil {
		return guard.Snapshot{}, err
	}

	facts := make([]guard.PostFacts, 0, len(posts))
	for _, p := range posts {
		facts = append(facts, guard.PostFacts{
			ID:             p.ID.String(),
			Type:           p.Type,
			ScriptApproved: p.ScriptApproved,
			PromptBuilt:    p.PromptBuilt,
			VideoStatus:    p.VideoStatus,
			QAPass:         p.QAPassed(),
			ScheduledAt:    p.ScheduledAt,
		})
	}
	return guard.Snapshot{
		BatchID: b.ID.String(),
		State:   b.State,
		Counts:  b.Counts(),
		Posts:   facts,
	}, nil
}

func (s *TransitionStoreDatabase) Commit(ctx context.Context, change transitionPort.Change) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&batch.Batch{}).
			Where("id = ? AND state = ?", change.BatchID, change.From).
			Update("state", change.To)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return transitionPort.ErrStaleState
		}

		if err := tx.Create(change.Audit).Error; err != nil {
			return err
		}

		resets := resetColumns(change.Reset)
		if resets == nil {
			return nil
		}
		q := tx.Model(&post.Post{}).Where("batch_id = ?", change.BatchID)
		if len(change.ResetPostIDs) > 0 {
			q = q.Where("id IN ?", change.ResetPostIDs)
		}
		return q.Updates(resets).Error
	})
}

func (s *TransitionStoreDatabase) AppendAudit(ctx context.Context, entry *audit.Entry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func resetColumns(reset transitionPort.PostReset) map[string]interface{} {
	switch reset {
	case transitionPort.ResetVideo, transitionPort.ResetPromptAndVideo:
		cols := map[string]interface{}{
			"video_provider":     "",
			"video_operation_id": "",
			"video_status":       string(post.VideoPending),
			"video_url":          "",
			"video_error":        "",
			"video_meta_json":    "",
			"qa_pass":            nil,
			"qa_notes":           "",
			"qa_checks_json":     "",
		}
		if reset == transitionPort.ResetPromptAndVideo {
			cols["prompt_json"] = ""
			cols["prompt_built"] = false
		}
		return cols
	default:
		return nil
	}
}
