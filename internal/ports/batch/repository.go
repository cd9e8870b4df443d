package batch

import (
	"context"
	"time"

	"flowforge/internal/core/batch"
	postPort "flowforge/internal/ports/post"
)

// Repository is the outbound port for batch persistence. Lifecycle state is
// deliberately absent from the update surface: only the transition store may
// move a batch between states.
type Repository interface {
	Create(ctx context.Context, b *batch.Batch) (*batch.Batch, error)
	FindByID(ctx context.Context, id string) (*batch.Batch, error)
	List(ctx context.Context, archived *bool, limit, offset int) ([]*batch.Batch, int64, error)
	FindByState(ctx context.Context, state batch.State) ([]*batch.Batch, error)
	SetArchived(ctx context.Context, id string, archived bool) (*batch.Batch, error)
}

// DTO is the batch representation returned to inbound adapters.
type DTO struct {
	ID             string           `json:"id"`
	Brand          string           `json:"brand"`
	State          string           `json:"state"`
	PostTypeCounts batch.TypeCounts `json:"post_type_counts"`
	Archived       bool             `json:"archived"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ListDTO is the paginated list payload.
type ListDTO struct {
	Batches []*DTO `json:"batches"`
	Total   int64  `json:"total"`
}

// DetailDTO is the batch detail payload including owned posts.
type DetailDTO struct {
	DTO
	PostsCount   int             `json:"posts_count"`
	PostsByState map[string]int  `json:"posts_by_state"`
	Posts        []*postPort.DTO `json:"posts"`
}

// StatusDTO is the lightweight polling payload for a batch.
type StatusDTO struct {
	ID           string         `json:"id"`
	State        string         `json:"state"`
	PostsCount   int            `json:"posts_count"`
	PostsByState map[string]int `json:"posts_by_state"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// QAStatusDTO summarizes QA progress for a batch.
type QAStatusDTO struct {
	BatchID             string `json:"batch_id"`
	TotalPosts          int    `json:"total_posts"`
	PostsWithVideos     int    `json:"posts_with_videos"`
	PostsQAPassed       int    `json:"posts_qa_passed"`
	PostsQAPending      int    `json:"posts_qa_pending"`
	AllPassed           bool   `json:"all_passed"`
	CanAdvanceToPublish bool   `json:"can_advance_to_publish"`
}

// FromEntity maps a batch entity onto its DTO.
func FromEntity(b *batch.Batch) *DTO {
	return &DTO{
		ID:             b.ID.String(),
		Brand:          b.Brand,
		State:          string(b.State),
		PostTypeCounts: b.Counts(),
		Archived:       b.Archived,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}
