package postapp

import (
	"context"
	"encoding/json"

	"flowforge/internal/core/apperrors"
	postPort "flowforge/internal/ports/post"

	"go.uber.org/zap"
)

const maxScriptLength = 10000

// PostService owns per-post editing use-cases: script text, script
// approval, and the generation prompt. None of these touch batch state.
type PostService struct {
	Posts  postPort.Repository
	Logger *zap.Logger
}

func NewPostService(posts postPort.Repository, logger *zap.Logger) *PostService {
	return &PostService{Posts: posts, Logger: logger}
}

// Get returns a single post.
func (s *PostService) Get(ctx context.Context, postID string) (*postPort.DTO, error) {
	p, err := s.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return postPort.FromEntity(p), nil
}

// UpdateScript replaces the script text. Any prior approval is revoked so
// the new text has to be reviewed again.
func (s *PostService) UpdateScript(ctx context.Context, postID, scriptText string) (*postPort.DTO, error) {
	if scriptText == "" || len(scriptText) > maxScriptLength {
		return nil, apperrors.Validation("invalid script text", map[string]any{
			"script_text": "must be 1-10000 characters",
		})
	}
	if _, err := s.Posts.FindByID(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.Posts.UpdateScript(ctx, postID, scriptText); err != nil {
		return nil, err
	}
	s.Logger.Info("post script updated", zap.String("post_id", postID))
	return s.Get(ctx, postID)
}

// ApproveScript marks the current script text as reviewed.
func (s *PostService) ApproveScript(ctx context.Context, postID string) (*postPort.DTO, error) {
	p, err := s.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.ScriptText == "" {
		return nil, apperrors.Validation("post has no script to approve", map[string]any{
			"post_id": postID,
		})
	}
	if err := s.Posts.SetScriptApproved(ctx, postID, true); err != nil {
		return nil, err
	}
	s.Logger.Info("post script approved", zap.String("post_id", postID))
	return s.Get(ctx, postID)
}

// UnapproveScript withdraws a prior approval without touching the text.
func (s *PostService) UnapproveScript(ctx context.Context, postID string) (*postPort.DTO, error) {
	if _, err := s.Posts.FindByID(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.Posts.SetScriptApproved(ctx, postID, false); err != nil {
		return nil, err
	}
	s.Logger.Info("post script approval withdrawn", zap.String("post_id", postID))
	return s.Get(ctx, postID)
}

// SetPrompt stores the video-generation prompt for a post. The prompt is
// an opaque JSON document; only well-formedness is checked here.
func (s *PostService) SetPrompt(ctx context.Context, postID, promptJSON string) (*postPort.DTO, error) {
	if !json.Valid([]byte(promptJSON)) {
		return nil, apperrors.Validation("prompt must be valid JSON", map[string]any{
			"post_id": postID,
		})
	}
	p, err := s.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !p.ScriptApproved {
		return nil, apperrors.Validation("script must be approved before building a prompt", map[string]any{
			"post_id": postID,
		})
	}
	if err := s.Posts.SetPrompt(ctx, postID, promptJSON); err != nil {
		return nil, err
	}
	s.Logger.Info("post prompt set", zap.String("post_id", postID))
	return s.Get(ctx, postID)
}

// ByBatch returns every post in a batch.
func (s *PostService) ByBatch(ctx context.Context, batchID string) ([]*postPort.DTO, error) {
	posts, err := s.Posts.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*postPort.DTO, 0, len(posts))
	for _, p := range posts {
		dtos = append(dtos, postPort.FromEntity(p))
	}
	return dtos, nil
}
