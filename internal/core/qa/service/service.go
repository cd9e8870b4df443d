package qaapp

import (
	"context"
	"encoding/json"
	"math"
	"net/http"

	"flowforge/internal/core/apperrors"
	postEntity "flowforge/internal/core/post"
	postPort "flowforge/internal/ports/post"

	"go.uber.org/zap"
)

const (
	targetDurationSeconds = 8.0
	durationTolerance     = 0.5
	minResolution         = 720
)

// Checks is the automated QA result recorded on a post. Pass is the
// conjunction of the individual checks.
type Checks struct {
	PostID         string  `json:"post_id"`
	DurationOK     bool    `json:"duration_ok"`
	ResolutionOK   bool    `json:"resolution_ok"`
	FileAccessible bool    `json:"file_accessible"`
	Pass           bool    `json:"pass"`
	Duration       float64 `json:"duration_seconds,omitempty"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

// QAService runs automated checks against completed videos and records
// operator pass/fail decisions. Decisions never move batch state; the
// QA gate is enforced when the batch transition is requested.
type QAService struct {
	Posts      postPort.Repository
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewQAService(posts postPort.Repository, httpClient *http.Client, logger *zap.Logger) *QAService {
	return &QAService{Posts: posts, HTTPClient: httpClient, Logger: logger}
}

type videoMeta struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
}

// AutoCheck verifies a completed video against the production rules and
// persists the result. It does not make the pass/fail decision.
func (s *QAService) AutoCheck(ctx context.Context, postID string) (*Checks, error) {
	p, err := s.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.VideoStatus != postEntity.VideoCompleted || p.VideoURL == "" {
		return nil, apperrors.Validation("post has no completed video to check", map[string]any{
			"post_id":      postID,
			"video_status": string(p.VideoStatus),
		})
	}

	checks := &Checks{PostID: postID}

	var meta videoMeta
	if p.VideoMetaJSON != "" {
		if err := json.Unmarshal([]byte(p.VideoMetaJSON), &meta); err != nil {
			checks.Notes = "video metadata unreadable"
		}
	}
	checks.Duration = meta.DurationSeconds
	checks.Width = meta.Width
	checks.Height = meta.Height
	checks.DurationOK = math.Abs(meta.DurationSeconds-targetDurationSeconds) <= durationTolerance
	if meta.Width > 0 && meta.Height > 0 {
		shorter := meta.Width
		if meta.Height < shorter {
			shorter = meta.Height
		}
		checks.ResolutionOK = shorter >= minResolution
	}
	checks.FileAccessible = s.accessible(ctx, p.VideoURL)
	checks.Pass = checks.DurationOK && checks.ResolutionOK && checks.FileAccessible

	raw, err := json.Marshal(checks)
	if err != nil {
		return nil, err
	}
	if err := s.Posts.SetQAChecks(ctx, postID, string(raw)); err != nil {
		return nil, err
	}

	s.Logger.Info("qa checks recorded",
		zap.String("post_id", postID),
		zap.Bool("pass", checks.Pass))
	return checks, nil
}

// Decide records an operator's pass/fail decision for a post.
func (s *QAService) Decide(ctx context.Context, postID string, pass bool, notes string) (*postPort.DTO, error) {
	p, err := s.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.VideoStatus != postEntity.VideoCompleted {
		return nil, apperrors.Validation("qa decision requires a completed video", map[string]any{
			"post_id":      postID,
			"video_status": string(p.VideoStatus),
		})
	}
	if err := s.Posts.SetQADecision(ctx, postID, pass, notes); err != nil {
		return nil, err
	}
	s.Logger.Info("qa decision recorded",
		zap.String("post_id", postID),
		zap.Bool("pass", pass))
	updated, err := s.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return postPort.FromEntity(updated), nil
}

func (s *QAService) accessible(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}
