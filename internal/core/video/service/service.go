package videoapp

import (
	"context"
	"fmt"

	"flowforge/internal/core/apperrors"
	postEntity "flowforge/internal/core/post"
	assetPort "flowforge/internal/ports/assetstore"
	postPort "flowforge/internal/ports/post"
	recoveryPort "flowforge/internal/ports/recovery"
	"flowforge/internal/ports/videojob"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// GenerateOptions are the operator-facing knobs for a generation request.
// Empty fields fall back to the service defaults.
type GenerateOptions struct {
	Provider    string
	AspectRatio string
	Resolution  string
}

// BatchResult summarizes a batch-wide generation request. Skipped lists
// posts left alone with the reason; Failed lists submission errors.
type BatchResult struct {
	Submitted int               `json:"submitted"`
	Skipped   map[string]string `json:"skipped,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// VideoService submits generation jobs and reconciles their outcomes.
// Submissions are journaled to the recovery ledger before the post row is
// updated: the provider charging for a job it accepted must never be
// forgotten because this process died at the wrong moment.
type VideoService struct {
	Posts    postPort.Repository
	Provider videojob.Provider
	Assets   assetPort.Store
	Ledger   recoveryPort.Ledger
	Defaults videojob.SubmitOptions
	Logger   *zap.Logger
}

func NewVideoService(
	posts postPort.Repository,
	provider videojob.Provider,
	assets assetPort.Store,
	ledger recoveryPort.Ledger,
	defaults videojob.SubmitOptions,
	logger *zap.Logger,
) *VideoService {
	return &VideoService{
		Posts:    posts,
		Provider: provider,
		Assets:   assets,
		Ledger:   ledger,
		Defaults: defaults,
		Logger:   logger,
	}
}

// Generate submits one post's prompt to the provider.
func (s *VideoService) Generate(ctx context.Context, postID string, opts GenerateOptions) (*postPort.VideoStatusDTO, error) {
	p, err := s.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if reason := notGeneratable(p); reason != "" {
		return nil, apperrors.Conflict(reason, map[string]any{
			"post_id":      postID,
			"video_status": string(p.VideoStatus),
		})
	}

	submitOpts, err := s.resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	if err := s.submit(ctx, p, submitOpts); err != nil {
		return nil, err
	}
	return s.Status(ctx, postID)
}

// GenerateAll submits every eligible post in a batch. Posts without a
// built prompt, already in flight, or already completed are skipped, not
// failed: re-running the operation after a partial outage is safe.
func (s *VideoService) GenerateAll(ctx context.Context, batchID string, opts GenerateOptions) (*BatchResult, error) {
	posts, err := s.Posts.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	submitOpts, err := s.resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Skipped: map[string]string{}, Failed: map[string]string{}}
	for _, p := range posts {
		if reason := notGeneratable(p); reason != "" {
			result.Skipped[p.ID.String()] = reason
			continue
		}
		if err := s.submit(ctx, p, submitOpts); err != nil {
			result.Failed[p.ID.String()] = err.Error()
			continue
		}
		result.Submitted++
	}
	if len(result.Skipped) == 0 {
		result.Skipped = nil
	}
	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	s.Logger.Info("batch generation requested",
		zap.String("batch_id", batchID),
		zap.Int("submitted", result.Submitted),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

// Status returns the current video job view of a post.
func (s *VideoService) Status(ctx context.Context, postID string) (*postPort.VideoStatusDTO, error) {
	p, err := s.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &postPort.VideoStatusDTO{
		PostID:      p.ID.String(),
		OperationID: p.VideoOperationID,
		Provider:    p.VideoProvider,
		Status:      string(p.VideoStatus),
		VideoURL:    p.VideoURL,
		Error:       p.VideoError,
	}, nil
}

// ReconcileOperation polls one operation and folds the observed outcome
// into the post row. It is shared by the reconciliation worker and the
// ledger replay tool; it never submits new jobs.
func (s *VideoService) ReconcileOperation(ctx context.Context, postID, operationID string) (videojob.Status, error) {
	result, err := s.Provider.Poll(ctx, operationID)
	if err != nil {
		return "", err
	}

	switch result.Status {
	case videojob.StatusCompleted:
		url, err := s.storeAsset(ctx, postID, result.AssetLocation)
		if err != nil {
			return "", err
		}
		if err := s.Posts.MarkVideoCompleted(ctx, postID, operationID, url, result.MetaJSON); err != nil {
			return "", err
		}
		s.Logger.Info("video completed",
			zap.String("post_id", postID),
			zap.String("operation_id", operationID))
	case videojob.StatusFailed:
		if err := s.Posts.MarkVideoFailed(ctx, postID, result.Reason); err != nil {
			return "", err
		}
		s.Logger.Warn("video failed",
			zap.String("post_id", postID),
			zap.String("operation_id", operationID),
			zap.String("reason", result.Reason))
	case videojob.StatusProcessing:
		if err := s.Posts.SetVideoStatus(ctx, postID, postEntity.VideoProcessing, result.MetaJSON); err != nil {
			return "", err
		}
	}
	return result.Status, nil
}

func (s *VideoService) submit(ctx context.Context, p *postEntity.Post, opts videojob.SubmitOptions) error {
	sub, err := s.Provider.Submit(ctx, p.PromptJSON, opts)
	if err != nil {
		return err
	}

	correlationID := uuid.Must(uuid.NewV4()).String()
	entry := recoveryPort.Entry{
		PostID:        p.ID.String(),
		OperationID:   sub.OperationID,
		Provider:      sub.Provider,
		CorrelationID: correlationID,
		Status:        recoveryPort.StatusSubmitted,
	}
	if err := s.Ledger.Append(ctx, entry); err != nil {
		// The provider already accepted the job. Surface the failure
		// loudly rather than continue with an unjournaled paid operation.
		s.Logger.Error("recovery ledger append failed after provider accept",
			zap.String("post_id", p.ID.String()),
			zap.String("operation_id", sub.OperationID),
			zap.Error(err))
		return apperrors.Internal(fmt.Sprintf("journal submission %s: %v", sub.OperationID, err))
	}

	if err := s.Posts.SetVideoSubmission(ctx, p.ID.String(), postPort.VideoSubmission{
		Provider:    sub.Provider,
		OperationID: sub.OperationID,
	}); err != nil {
		// The ledger retains the operation id; replay will reattach it.
		s.Logger.Error("post update failed after journaled submission",
			zap.String("post_id", p.ID.String()),
			zap.String("operation_id", sub.OperationID),
			zap.Error(err))
		return err
	}

	s.Logger.Info("video generation journaled",
		zap.String("post_id", p.ID.String()),
		zap.String("operation_id", sub.OperationID),
		zap.String("correlation_id", correlationID))
	return nil
}

func (s *VideoService) storeAsset(ctx context.Context, postID, assetLocation string) (string, error) {
	data, err := s.Provider.Download(ctx, assetLocation)
	if err != nil {
		return "", err
	}
	upload, err := s.Assets.Upload(ctx, fmt.Sprintf("%s.mp4", postID), data)
	if err != nil {
		return "", err
	}
	return upload.URL, nil
}

func (s *VideoService) resolveOptions(opts GenerateOptions) (videojob.SubmitOptions, error) {
	resolved := videojob.SubmitOptions{
		Provider:    opts.Provider,
		AspectRatio: opts.AspectRatio,
		Resolution:  opts.Resolution,
	}
	if resolved.Provider == "" {
		resolved.Provider = s.Defaults.Provider
	}
	if resolved.AspectRatio == "" {
		resolved.AspectRatio = s.Defaults.AspectRatio
	}
	if resolved.Resolution == "" {
		resolved.Resolution = s.Defaults.Resolution
	}
	if resolved.Resolution == "1080p" && resolved.AspectRatio != "16:9" {
		return videojob.SubmitOptions{}, apperrors.Validation("1080p output requires a 16:9 aspect ratio", map[string]any{
			"aspect_ratio": resolved.AspectRatio,
			"resolution":   resolved.Resolution,
		})
	}
	return resolved, nil
}

func notGeneratable(p *postEntity.Post) string {
	switch {
	case !p.PromptBuilt || p.PromptJSON == "":
		return "post has no built prompt"
	case p.VideoStatus.InFlight():
		return "video generation already in flight"
	case p.VideoStatus == postEntity.VideoCompleted:
		return "video already completed"
	default:
		return ""
	}
}
