package publishapp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"flowforge/internal/core/apperrors"
	batchEntity "flowforge/internal/core/batch"
	"flowforge/internal/core/guard"
	"flowforge/internal/core/transition"
	batchPort "flowforge/internal/ports/batch"
	postPort "flowforge/internal/ports/post"

	"go.uber.org/zap"
)

var knownNetworks = map[string]struct{}{
	"tiktok":    {},
	"instagram": {},
	"facebook":  {},
}

// PlanItem assigns one post a publish slot.
type PlanItem struct {
	PostID         string
	ScheduledAt    time.Time
	SocialNetworks []string
}

// PlanDTO is the current publish plan for a batch.
type PlanDTO struct {
	BatchID   string          `json:"batch_id"`
	Scheduled int             `json:"scheduled"`
	Total     int             `json:"total"`
	Posts     []*postPort.DTO `json:"posts"`
}

// PublishService manages the publish plan for a PUBLISH_PLAN batch and
// confirms it into COMPLETE through the applier.
type PublishService struct {
	Batches batchPort.Repository
	Posts   postPort.Repository
	Applier *transition.Applier
	Logger  *zap.Logger
	now     func() time.Time
}

func NewPublishService(
	batches batchPort.Repository,
	posts postPort.Repository,
	applier *transition.Applier,
	logger *zap.Logger,
) *PublishService {
	return &PublishService{
		Batches: batches,
		Posts:   posts,
		Applier: applier,
		Logger:  logger,
		now:     time.Now,
	}
}

// SetPlan validates and stores publish slots for posts in the batch. The
// same rules are re-checked by the transition guard when the batch is
// confirmed, so a plan that slips into the past is still caught.
func (s *PublishService) SetPlan(ctx context.Context, batchID string, items []PlanItem) (*PlanDTO, error) {
	b, err := s.Batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b.State != batchEntity.StatePublishPlan {
		return nil, apperrors.StateTransition("batch is not in PUBLISH_PLAN state", map[string]any{
			"batch_id":      batchID,
			"current_state": string(b.State),
		})
	}
	if len(items) == 0 {
		return nil, apperrors.Validation("plan must contain at least one post", nil)
	}

	posts, err := s.Posts.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*postPort.DTO, len(posts))
	for _, p := range posts {
		byID[p.ID.String()] = postPort.FromEntity(p)
	}

	if err := s.validatePlan(items, byID); err != nil {
		return nil, err
	}

	for _, item := range items {
		if err := s.Posts.SetSchedule(ctx, item.PostID, postPort.Schedule{
			ScheduledAt:    item.ScheduledAt.UTC(),
			SocialNetworks: strings.Join(item.SocialNetworks, ","),
		}); err != nil {
			return nil, err
		}
	}

	s.Logger.Info("publish plan updated",
		zap.String("batch_id", batchID),
		zap.Int("posts_scheduled", len(items)))
	return s.GetPlan(ctx, batchID)
}

// GetPlan returns the batch's posts with their current publish slots.
func (s *PublishService) GetPlan(ctx context.Context, batchID string) (*PlanDTO, error) {
	if _, err := s.Batches.FindByID(ctx, batchID); err != nil {
		return nil, err
	}
	posts, err := s.Posts.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	plan := &PlanDTO{BatchID: batchID, Total: len(posts)}
	for _, p := range posts {
		if p.ScheduledAt != nil {
			plan.Scheduled++
		}
		plan.Posts = append(plan.Posts, postPort.FromEntity(p))
	}
	return plan, nil
}

// Confirm finalizes the plan and advances the batch to COMPLETE. Actual
// network delivery happens elsewhere; this records the scheduling result
// per post and lets the guard verify every slot one last time.
func (s *PublishService) Confirm(ctx context.Context, batchID, actor string) (*PlanDTO, error) {
	b, err := s.Batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b.State != batchEntity.StatePublishPlan {
		return nil, apperrors.StateTransition("batch is not in PUBLISH_PLAN state", map[string]any{
			"batch_id":      batchID,
			"current_state": string(b.State),
		})
	}

	posts, err := s.Posts.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		if p.ScheduledAt == nil {
			return nil, apperrors.Validation("every post needs a publish slot before confirming", map[string]any{
				"post_id": p.ID.String(),
			})
		}
	}

	if _, err := s.Applier.Apply(ctx, transition.Request{
		BatchID: batchID,
		Target:  batchEntity.StateComplete,
		Actor:   actor,
	}); err != nil {
		return nil, err
	}

	for _, p := range posts {
		platformIDs := map[string]string{}
		for _, network := range strings.Split(p.SocialNetworks, ",") {
			if network == "" {
				continue
			}
			platformIDs[network] = fmt.Sprintf("%s:%s", network, p.ID.String())
		}
		raw, err := json.Marshal(platformIDs)
		if err != nil {
			return nil, err
		}
		if err := s.Posts.SetPublishResult(ctx, p.ID.String(), "scheduled", string(raw)); err != nil {
			return nil, err
		}
	}

	s.Logger.Info("publish plan confirmed",
		zap.String("batch_id", batchID),
		zap.Int("posts", len(posts)))
	return s.GetPlan(ctx, batchID)
}

func (s *PublishService) validatePlan(items []PlanItem, byID map[string]*postPort.DTO) error {
	now := s.now()
	details := map[string]any{}
	seen := map[string]struct{}{}
	times := make([]time.Time, 0, len(items))

	for _, item := range items {
		if _, ok := byID[item.PostID]; !ok {
			details[item.PostID] = "post does not belong to this batch"
			continue
		}
		if _, dup := seen[item.PostID]; dup {
			details[item.PostID] = "post scheduled more than once"
			continue
		}
		seen[item.PostID] = struct{}{}

		if !item.ScheduledAt.After(now) {
			details[item.PostID] = "scheduled time must be in the future"
			continue
		}
		if len(item.SocialNetworks) == 0 {
			details[item.PostID] = "at least one social network is required"
			continue
		}
		for _, network := range item.SocialNetworks {
			if _, ok := knownNetworks[strings.ToLower(network)]; !ok {
				details[item.PostID] = fmt.Sprintf("unknown social network %q", network)
				break
			}
		}
		if _, bad := details[item.PostID]; !bad {
			times = append(times, item.ScheduledAt)
		}
	}

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for i := 1; i < len(times); i++ {
		if times[i].Sub(times[i-1]) < guard.MinScheduleGap {
			details["schedule_gap"] = fmt.Sprintf("slots must be at least %d minutes apart", int(guard.MinScheduleGap.Minutes()))
			break
		}
	}

	if len(details) > 0 {
		return apperrors.Validation("invalid publish plan", details)
	}
	return nil
}
