package database

import (
	"context"
	"errors"

	"flowforge/internal/core/apperrors"
	"flowforge/internal/core/post"
	postPort "flowforge/internal/ports/post"

	"gorm.io/gorm"
)

// PostRepositoryDatabase implements the post repository port on gorm.
type PostRepositoryDatabase struct {
	db *gorm.DB
}

func NewPostRepositoryDatabase(db *gorm.DB) *PostRepositoryDatabase {
	return &PostRepositoryDatabase{db: db}
}

func (repo *PostRepositoryDatabase) CreateMany(ctx context.Context, posts []*post.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return repo.db.WithContext(ctx).Create(posts).Error
}

func (repo *PostRepositoryDatabase) FindByID(ctx context.Context, id string) (*post.Post, error) {
	var p post.Post
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("post not found", map[string]any{"post_id": id})
		}
		return nil, err
	}
	return &p, nil
}

func (repo *PostRepositoryDatabase) FindByBatchID(ctx context.Context, batchID string) ([]*post.Post, error) {
	var posts []*post.Post
	if err := repo.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("created_at").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (repo *PostRepositoryDatabase) FindByVideoStatus(ctx context.Context, statuses []post.VideoStatus) ([]*post.Post, error) {
	var posts []*post.Post
	if err := repo.db.WithContext(ctx).Where("video_status IN ?", statuses).Order("updated_at").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (repo *PostRepositoryDatabase) UpdateScript(ctx context.Context, id, scriptText string) error {
	return repo.update(ctx, id, map[string]interface{}{
		"script_text":     scriptText,
		"script_approved": false,
	})
}

func (repo *PostRepositoryDatabase) SetScriptApproved(ctx context.Context, id string, approved bool) error {
	return repo.update(ctx, id, map[string]interface{}{"script_approved": approved})
}

func (repo *PostRepositoryDatabase) SetPrompt(ctx context.Context, id, promptJSON string) error {
	return repo.update(ctx, id, map[string]interface{}{
		"prompt_json":  promptJSON,
		"prompt_built": true,
	})
}

func (repo *PostRepositoryDatabase) SetVideoSubmission(ctx context.Context, id string, sub postPort.VideoSubmission) error {
	return repo.update(ctx, id, map[string]interface{}{
		"video_provider":     sub.Provider,
		"video_operation_id": sub.OperationID,
		"video_status":       string(post.VideoSubmitted),
		"video_error":        "",
		"video_meta_json":    sub.MetaJSON,
	})
}

func (repo *PostRepositoryDatabase) SetVideoStatus(ctx context.Context, id string, status post.VideoStatus, metaJSON string) error {
	cols := map[string]interface{}{"video_status": string(status)}
	if metaJSON != "" {
		cols["video_meta_json"] = metaJSON
	}
	return repo.update(ctx, id, cols)
}

func (repo *PostRepositoryDatabase) MarkVideoCompleted(ctx context.Context, id, operationID, videoURL, metaJSON string) error {
	return repo.update(ctx, id, map[string]interface{}{
		"video_operation_id": operationID,
		"video_status":       string(post.VideoCompleted),
		"video_url":          videoURL,
		"video_error":        "",
		"video_meta_json":    metaJSON,
	})
}

func (repo *PostRepositoryDatabase) MarkVideoFailed(ctx context.Context, id, reason string) error {
	return repo.update(ctx, id, map[string]interface{}{
		"video_status": string(post.VideoFailed),
		"video_error":  reason,
	})
}

func (repo *PostRepositoryDatabase) SetQADecision(ctx context.Context, id string, pass bool, notes string) error {
	return repo.update(ctx, id, map[string]interface{}{
		"qa_pass":  pass,
		"qa_notes": notes,
	})
}

func (repo *PostRepositoryDatabase) SetQAChecks(ctx context.Context, id, checksJSON string) error {
	return repo.update(ctx, id, map[string]interface{}{"qa_checks_json": checksJSON})
}

func (repo *PostRepositoryDatabase) SetSchedule(ctx context.Context, id string, schedule postPort.Schedule) error {
	return repo.update(ctx, id, map[string]interface{}{
		"scheduled_at":    schedule.ScheduledAt,
		"social_networks": schedule.SocialNetworks,
		"publish_status":  "scheduled",
	})
}

func (repo *PostRepositoryDatabase) SetPublishResult(ctx context.Context, id, publishStatus, platformIDsJSON string) error {
	return repo.update(ctx, id, map[string]interface{}{
		"publish_status":    publishStatus,
		"platform_ids_json": platformIDsJSON,
	})
}

func (repo *PostRepositoryDatabase) update(ctx context.Context, id string, cols map[string]interface{}) error {
	return repo.db.WithContext(ctx).Model(&post.Post{}).Where("id = ?", id).Updates(cols).Error
}
