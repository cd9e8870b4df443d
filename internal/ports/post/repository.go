package post

import (
	"context"
	"time"

	"flowforge/internal/core/post"
)

// VideoSubmission carries the provider acceptance merged into a post after
// a generation job is accepted.
type VideoSubmission struct {
	Provider    string
	OperationID string
	MetaJSON    string
}

// Schedule is a per-post publish plan entry.
type Schedule struct {
	ScheduledAt    time.Time
	SocialNetworks string
}

// Repository is the outbound port for post persistence.
type Repository interface {
	CreateMany(ctx context.Context, posts []*post.Post) error
	FindByID(ctx context.Context, id string) (*post.Post, error)
	FindByBatchID(ctx context.Context, batchID string) ([]*post.Post, error)
	FindByVideoStatus(ctx context.Context, statuses []post.VideoStatus) ([]*post.Post, error)
	UpdateScript(ctx context.Context, id, scriptText string) error
	SetScriptApproved(ctx context.Context, id string, approved bool) error
	SetPrompt(ctx context.Context, id, promptJSON string) error
	SetVideoSubmission(ctx context.Context, id string, sub VideoSubmission) error
	SetVideoStatus(ctx context.Context, id string, status post.VideoStatus, metaJSON string) error
	MarkVideoCompleted(ctx context.Context, id, operationID, videoURL, metaJSON string) error
	MarkVideoFailed(ctx context.Context, id, reason string) error
	SetQADecision(ctx context.Context, id string, pass bool, notes string) error
	SetQAChecks(ctx context.Context, id, checksJSON string) error
	SetSchedule(ctx context.Context, id string, schedule Schedule) error
	SetPublishResult(ctx context.Context, id, publishStatus, platformIDsJSON string) error
}

// DTO is the post representation returned to inbound adapters.
type DTO struct {
	ID             string     `json:"id"`
	BatchID        string     `json:"batch_id"`
	PostType       string     `json:"post_type"`
	TopicTitle     string     `json:"topic_title"`
	ScriptText     string     `json:"script_text"`
	ScriptApproved bool       `json:"script_approved"`
	PromptBuilt    bool       `json:"prompt_built"`
	VideoProvider  string     `json:"video_provider,omitempty"`
	VideoStatus    string     `json:"video_status"`
	VideoURL       string     `json:"video_url,omitempty"`
	VideoError     string     `json:"video_error,omitempty"`
	QAPass         *bool      `json:"qa_pass,omitempty"`
	QANotes        string     `json:"qa_notes,omitempty"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	PublishStatus  string     `json:"publish_status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// VideoStatusDTO is the polling payload for a single post's video job.
type VideoStatusDTO struct {
	PostID      string `json:"post_id"`
	OperationID string `json:"operation_id,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Status      string `json:"status"`
	VideoURL    string `json:"video_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// FromEntity maps a post entity onto its DTO.
func FromEntity(p *post.Post) *DTO {
	return &DTO{
		ID:             p.ID.String(),
		BatchID:        p.BatchID.String(),
		PostType:       string(p.Type),
		TopicTitle:     p.TopicTitle,
		ScriptText:     p.ScriptText,
		ScriptApproved: p.ScriptApproved,
		PromptBuilt:    p.PromptBuilt,
		VideoProvider:  p.VideoProvider,
		VideoStatus:    string(p.VideoStatus),
		VideoURL:       p.VideoURL,
		VideoError:     p.VideoError,
		QAPass:         p.QAPass,
		QANotes:        p.QANotes,
		ScheduledAt:    p.ScheduledAt,
		PublishStatus:  p.PublishStatus,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
