package database

import (
	"context"
	"errors"

	"flowforge/internal/core/apperrors"
	"flowforge/internal/core/batch"

	"gorm.io/gorm"
)

// BatchRepositoryDatabase implements the batch repository port on gorm.
type BatchRepositoryDatabase struct {
	db *gorm.DB
}

func NewBatchRepositoryDatabase(db *gorm.DB) *BatchRepositoryDatabase {
	return &BatchRepositoryDatabase{db: db}
}

func (repo *BatchRepositoryDatabase) Create(ctx context.Context, b *batch.Batch) (*batch.Batch, error) {
	if err := repo.db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

func (repo *BatchRepositoryDatabase) FindByID(ctx context.Context, id string) (*batch.Batch, error) {
	var b batch.Batch
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("batch not found", map[string]any{"batch_id": id})
		}
		return nil, err
	}
	return &b, nil
}

func (repo *BatchRepositoryDatabase) List(ctx context.Context, archived *bool, limit, offset int) ([]*batch.Batch, int64, error) {
	q := repo.db.WithContext(ctx).Model(&batch.Batch{})
	if archived != nil {
		q = q.Where("archived = ?", *archived)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var batches []*batch.Batch
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&batches).Error; err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

func (repo *BatchRepositoryDatabase) FindByState(ctx context.Context, state batch.State) ([]*batch.Batch, error) {
	var batches []*batch.Batch
	if err := repo.db.WithContext(ctx).
		Where("state = ? AND archived = ?", state, false).
		Order("created_at").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (repo *BatchRepositoryDatabase) SetArchived(ctx context.Context, id string, archived bool) (*batch.Batch, error) {
	if _, err := repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if err := repo.db.WithContext(ctx).Model(&batch.Batch{}).
		Where("id = ?", id).
		Update("archived", archived).Error; err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, id)
}
