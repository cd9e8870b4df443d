package database

import (
	"context"
	"testing"
	"time"

	"flowforge/internal/core/apperrors"
	batchEntity "flowforge/internal/core/batch"
	postEntity "flowforge/internal/core/post"
	postPort "flowforge/internal/ports/post"

	"github.com/gofrs/uuid"
)

func TestBatchRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewBatchRepositoryDatabase(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &batchEntity.Batch{
		ID:         uuid.Must(uuid.NewV4()),
		Brand:      "acme",
		State:      batchEntity.StateSetup,
		ValueCount: 2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.FindByID(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Brand != "acme" || got.State != batchEntity.StateSetup {
		t.Errorf("got = %+v", got)
	}

	if _, err := repo.FindByID(ctx, uuid.Must(uuid.NewV4()).String()); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestBatchRepositoryListFiltersArchived(t *testing.T) {
	db := openTestDB(t)
	repo := NewBatchRepositoryDatabase(db)
	ctx := context.Background()

	live := seedBatch(t, db, batchEntity.StateSetup)
	archived := seedBatch(t, db, batchEntity.StateSetup)
	if _, err := repo.SetArchived(ctx, archived.ID.String(), true); err != nil {
		t.Fatalf("SetArchived: %v", err)
	}

	no := false
	batches, total, err := repo.List(ctx, &no, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(batches) != 1 || batches[0].ID != live.ID {
		t.Errorf("batches = %+v (total %d), want only the live batch", batches, total)
	}

	_, total, err = repo.List(ctx, nil, 10, 0)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2 without the filter", total)
	}
}

func TestBatchRepositoryFindByState(t *testing.T) {
	db := openTestDB(t)
	repo := NewBatchRepositoryDatabase(db)
	ctx := context.Background()

	gated := seedBatch(t, db, batchEntity.StatePromptsBuilt)
	seedBatch(t, db, batchEntity.StateQA)
	parked := seedBatch(t, db, batchEntity.StatePromptsBuilt)
	if _, err := repo.SetArchived(ctx, parked.ID.String(), true); err != nil {
		t.Fatalf("SetArchived: %v", err)
	}

	batches, err := repo.FindByState(ctx, batchEntity.StatePromptsBuilt)
	if err != nil {
		t.Fatalf("FindByState: %v", err)
	}
	if len(batches) != 1 || batches[0].ID != gated.ID {
		t.Errorf("batches = %+v, want only the live PROMPTS_BUILT batch", batches)
	}
}

func TestPostRepositoryVideoLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostRepositoryDatabase(db)
	ctx := context.Background()
	b := seedBatch(t, db, batchEntity.StateScripted)
	p := seedPost(t, db, b.ID, func(p *postEntity.Post) {
		p.VideoStatus = postEntity.VideoPending
		p.VideoProvider = ""
		p.VideoURL = ""
		p.QAPass = nil
	})
	id := p.ID.String()

	if err := repo.SetVideoSubmission(ctx, id, postPort.VideoSubmission{
		Provider:    "veo",
		OperationID: "op-1",
	}); err != nil {
		t.Fatalf("SetVideoSubmission: %v", err)
	}
	got, _ := repo.FindByID(ctx, id)
	if got.VideoStatus != postEntity.VideoSubmitted || got.VideoOperationID != "op-1" {
		t.Errorf("after submission: %+v", got)
	}

	inFlight, err := repo.FindByVideoStatus(ctx, []postEntity.VideoStatus{
		postEntity.VideoSubmitted, postEntity.VideoProcessing,
	})
	if err != nil {
		t.Fatalf("FindByVideoStatus: %v", err)
	}
	if len(inFlight) != 1 || inFlight[0].ID != p.ID {
		t.Errorf("inFlight = %+v, want the submitted post", inFlight)
	}

	if err := repo.MarkVideoCompleted(ctx, id, "op-1", "https://cdn/p.mp4", `{"duration_seconds":8}`); err != nil {
		t.Fatalf("MarkVideoCompleted: %v", err)
	}
	got, _ = repo.FindByID(ctx, id)
	if got.VideoStatus != postEntity.VideoCompleted || got.VideoURL == "" {
		t.Errorf("after completion: %+v", got)
	}
}

func TestPostRepositoryUpdateScriptRevokesApproval(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostRepositoryDatabase(db)
	ctx := context.Background()
	b := seedBatch(t, db, batchEntity.StateSeeded)
	p := seedPost(t, db, b.ID, nil)

	if err := repo.UpdateScript(ctx, p.ID.String(), "new script"); err != nil {
		t.Fatalf("UpdateScript: %v", err)
	}
	got, _ := repo.FindByID(ctx, p.ID.String())
	if got.ScriptText != "new script" {
		t.Errorf("script = %q", got.ScriptText)
	}
	if got.ScriptApproved {
		t.Error("editing the script must revoke approval")
	}
}

func TestPostRepositorySchedule(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostRepositoryDatabase(db)
	ctx := context.Background()
	b := seedBatch(t, db, batchEntity.StatePublishPlan)
	p := seedPost(t, db, b.ID, nil)

	at := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	if err := repo.SetSchedule(ctx, p.ID.String(), postPort.Schedule{
		ScheduledAt:    at,
		SocialNetworks: "tiktok,instagram",
	}); err != nil {
		t.Fatalf("SetSchedule: %v", err)
	}
	got, _ := repo.FindByID(ctx, p.ID.String())
	if got.ScheduledAt == nil || !got.ScheduledAt.Equal(at) {
		t.Errorf("scheduled_at = %v, want %v", got.ScheduledAt, at)
	}
	if got.SocialNetworks != "tiktok,instagram" {
		t.Errorf("networks = %q", got.SocialNetworks)
	}
}

func TestVideoStatusCheckConstraint(t *testing.T) {
	db := openTestDB(t)
	b := seedBatch(t, db, batchEntity.StateScripted)
	p := seedPost(t, db, b.ID, nil)

	err := db.Model(&postEntity.Post{}).
		Where("id = ?", p.ID).
		Update("video_status", "exploded").Error
	if err == nil {
		t.Fatal("check constraint must reject unknown video_status values")
	}
}
