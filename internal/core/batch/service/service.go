package batchapp

import (
	"context"
	"fmt"

	"flowforge/internal/core/apperrors"
	batchEntity "flowforge/internal/core/batch"
	postEntity "flowforge/internal/core/post"
	"flowforge/internal/core/transition"
	auditPort "flowforge/internal/ports/audit"
	batchPort "flowforge/internal/ports/batch"
	postPort "flowforge/internal/ports/post"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

const maxBatchPosts = 100

// SeedInput describes one post to create while seeding a batch.
type SeedInput struct {
	PostType   string
	TopicTitle string
	ScriptText string
}

// BatchService owns batch lifecycle use-cases. State moves go through the
// transition applier exclusively.
type BatchService struct {
	Batches batchPort.Repository
	Posts   postPort.Repository
	Audits  auditPort.Repository
	Applier *transition.Applier
	Logger  *zap.Logger
}

func NewBatchService(
	batches batchPort.Repository,
	posts postPort.Repository,
	audits auditPort.Repository,
	applier *transition.Applier,
	logger *zap.Logger,
) *BatchService {
	return &BatchService{
		Batches: batches,
		Posts:   posts,
		Audits:  audits,
		Applier: applier,
		Logger:  logger,
	}
}

// Create makes a new batch in the SETUP state.
func (s *BatchService) Create(ctx context.Context, brand string, counts batchEntity.TypeCounts) (*batchPort.DTO, error) {
	if err := validateConfig(brand, counts); err != nil {
		return nil, err
	}

	b := &batchEntity.Batch{
		ID:             uuid.Must(uuid.NewV4()),
		Brand:          brand,
		State:          batchEntity.StateSetup,
		ValueCount:     counts.Value,
		LifestyleCount: counts.Lifestyle,
		ProductCount:   counts.Product,
	}
	created, err := s.Batches.Create(ctx, b)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("batch created",
		zap.String("batch_id", created.ID.String()),
		zap.String("brand", brand),
		zap.Int("expected_posts", counts.Total()))
	return batchPort.FromEntity(created), nil
}

// SeedPosts creates the configured posts for a SETUP batch and advances it
// to SEEDED through the applier.
func (s *BatchService) SeedPosts(ctx context.Context, batchID string, seeds []SeedInput, actor string) (*batchPort.DTO, error) {
	b, err := s.Batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b.State != batchEntity.StateSetup {
		return nil, apperrors.StateTransition("batch is not in SETUP state", map[string]any{
			"batch_id":      batchID,
			"current_state": string(b.State),
		})
	}

	posts, err := buildSeedPosts(b, seeds)
	if err != nil {
		return nil, err
	}
	if err := s.Posts.CreateMany(ctx, posts); err != nil {
		return nil, err
	}

	newState, err := s.Applier.Apply(ctx, transition.Request{
		BatchID: batchID,
		Target:  batchEntity.StateSeeded,
		Actor:   actor,
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("batch seeded",
		zap.String("batch_id", batchID),
		zap.Int("posts_created", len(posts)),
		zap.String("new_state", string(newState)))
	return s.dto(ctx, batchID)
}

// Get returns the batch with its posts and a per-video-status summary.
func (s *BatchService) Get(ctx context.Context, batchID string) (*batchPort.DetailDTO, error) {
	b, err := s.Batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	posts, err := s.Posts.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	dtos := make([]*postPort.DTO, 0, len(posts))
	for _, p := range posts {
		dtos = append(dtos, postPort.FromEntity(p))
	}
	return &batchPort.DetailDTO{
		DTO:          *batchPort.FromEntity(b),
		PostsCount:   len(posts),
		PostsByState: countByVideoStatus(posts),
		Posts:        dtos,
	}, nil
}

// List returns batches with optional archived filtering.
func (s *BatchService) List(ctx context.Context, archived *bool, limit, offset int) (*batchPort.ListDTO, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	batches, total, err := s.Batches.List(ctx, archived, limit, offset)
	if err != nil {
		return nil, err
	}
	dtos := make([]*batchPort.DTO, 0, len(batches))
	for _, b := range batches {
		dtos = append(dtos, batchPort.FromEntity(b))
	}
	return &batchPort.ListDTO{Batches: dtos, Total: total}, nil
}

// Status returns the lightweight polling payload. Batch state can change
// asynchronously between any two reads: the reconciliation worker advances
// PROMPTS_BUILT batches to QA on its own.
func (s *BatchService) Status(ctx context.Context, batchID string) (*batchPort.StatusDTO, error) {
	b, err := s.Batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	posts, err := s.Posts.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return &batchPort.StatusDTO{
		ID:           b.ID.String(),
		State:        string(b.State),
		PostsCount:   len(posts),
		PostsByState: countByVideoStatus(posts),
		UpdatedAt:    b.UpdatedAt,
	}, nil
}

// Advance requests a lifecycle transition on behalf of an operator.
func (s *BatchService) Advance(ctx context.Context, batchID, targetState, actor string, postIDs []string) (*batchPort.DTO, error) {
	target, ok := batchEntity.ParseState(targetState)
	if !ok {
		return nil, apperrors.Validation("unknown target state", map[string]any{
			"target_state": targetState,
		})
	}
	if _, err := s.Applier.Apply(ctx, transition.Request{
		BatchID: batchID,
		Target:  target,
		Actor:   actor,
		PostIDs: postIDs,
	}); err != nil {
		return nil, err
	}
	return s.dto(ctx, batchID)
}

// Duplicate creates a fresh SETUP batch with the same configuration.
func (s *BatchService) Duplicate(ctx context.Context, batchID, newBrand string) (*batchPort.DTO, error) {
	original, err := s.Batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	brand := newBrand
	if brand == "" {
		brand = fmt.Sprintf("%s (Copy)", original.Brand)
	}
	dto, err := s.Create(ctx, brand, original.Counts())
	if err != nil {
		return nil, err
	}
	s.Logger.Info("batch duplicated",
		zap.String("original_batch_id", batchID),
		zap.String("new_batch_id", dto.ID))
	return dto, nil
}

// Archive flips the archived flag.
func (s *BatchService) Archive(ctx context.Context, batchID string, archived bool) (*batchPort.DTO, error) {
	b, err := s.Batches.SetArchived(ctx, batchID, archived)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("batch archive flag updated",
		zap.String("batch_id", batchID),
		zap.Bool("archived", archived))
	return batchPort.FromEntity(b), nil
}

// QAStatus summarizes QA progress and whether the batch can advance to
// PUBLISH_PLAN.
func (s *BatchService) QAStatus(ctx context.Context, batchID string) (*batchPort.QAStatusDTO, error) {
	if _, err := s.Batches.FindByID(ctx, batchID); err != nil {
		return nil, err
	}
	posts, err := s.Posts.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	total := len(posts)
	withVideos := 0
	passed := 0
	for _, p := range posts {
		if p.VideoStatus == postEntity.VideoCompleted {
			withVideos++
		}
		if p.QAPassed() {
			passed++
		}
	}
	allPassed := total > 0 && passed == total
	return &batchPort.QAStatusDTO{
		BatchID:             batchID,
		TotalPosts:          total,
		PostsWithVideos:     withVideos,
		PostsQAPassed:       passed,
		PostsQAPending:      withVideos - passed,
		AllPassed:           allPassed,
		CanAdvanceToPublish: allPassed,
	}, nil
}

// AuditTrail returns every transition attempt recorded for a batch,
// successful and rejected, oldest first.
func (s *BatchService) AuditTrail(ctx context.Context, batchID string) ([]*auditPort.DTO, error) {
	if _, err := s.Batches.FindByID(ctx, batchID); err != nil {
		return nil, err
	}
	entries, err := s.Audits.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*auditPort.DTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, auditPort.FromEntity(e))
	}
	return dtos, nil
}

func (s *BatchService) dto(ctx context.Context, batchID string) (*batchPort.DTO, error) {
	b, err := s.Batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return batchPort.FromEntity(b), nil
}

func validateConfig(brand string, counts batchEntity.TypeCounts) error {
	details := map[string]any{}
	if brand == "" || len(brand) > 100 {
		details["brand"] = "must be 1-100 characters"
	}
	for name, n := range map[string]int{
		"value":     counts.Value,
		"lifestyle": counts.Lifestyle,
		"product":   counts.Product,
	} {
		if n < 0 || n > maxBatchPosts {
			details[name] = fmt.Sprintf("must be between 0 and %d", maxBatchPosts)
		}
	}
	if total := counts.Total(); total < 1 || total > maxBatchPosts {
		details["total"] = fmt.Sprintf("must be between 1 and %d", maxBatchPosts)
	}
	if len(details) > 0 {
		return apperrors.Validation("invalid batch configuration", details)
	}
	return nil
}

func buildSeedPosts(b *batchEntity.Batch, seeds []SeedInput) ([]*postEntity.Post, error) {
	if len(seeds) == 0 {
		return nil, apperrors.Validation("at least one seed post is required", nil)
	}

	posts := make([]*postEntity.Post, 0, len(seeds))
	seen := map[postEntity.Type]int{}
	for i, seed := range seeds {
		typ, ok := postEntity.ParseType(seed.PostType)
		if !ok {
			return nil, apperrors.Validation("unknown post type", map[string]any{
				"index":     i,
				"post_type": seed.PostType,
			})
		}
		seen[typ]++
		posts = append(posts, &postEntity.Post{
			ID:          uuid.Must(uuid.NewV4()),
			BatchID:     b.ID,
			Type:        typ,
			TopicTitle:  seed.TopicTitle,
			ScriptText:  seed.ScriptText,
			VideoStatus: postEntity.VideoPending,
		})
	}

	counts := b.Counts()
	want := map[postEntity.Type]int{
		postEntity.TypeValue:     counts.Value,
		postEntity.TypeLifestyle: counts.Lifestyle,
		postEntity.TypeProduct:   counts.Product,
	}
	mismatches := map[string]any{}
	for typ, expected := range want {
		if seen[typ] != expected {
			mismatches[string(typ)] = map[string]int{"expected": expected, "actual": seen[typ]}
		}
	}
	if len(mismatches) > 0 {
		return nil, apperrors.Validation("seed posts do not match batch configuration", map[string]any{
			"count_mismatches": mismatches,
		})
	}
	return posts, nil
}

func countByVideoStatus(posts []*postEntity.Post) map[string]int {
	byStatus := map[string]int{}
	for _, p := range posts {
		byStatus[string(p.VideoStatus)]++
	}
	return byStatus
}
