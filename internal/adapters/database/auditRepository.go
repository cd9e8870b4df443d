package database

import (
	"context"

	"flowforge/internal/core/audit"

	"gorm.io/gorm"
)

// AuditRepositoryDatabase implements the audit read port on gorm. Entries
// are written by the transition store inside its commit transaction; this
// adapter only reads them back.
type AuditRepositoryDatabase struct {
	db *gorm.DB
}

func NewAuditRepositoryDatabase(db *gorm.DB) *AuditRepositoryDatabase {
	return &AuditRepositoryDatabase{db: db}
}

func (repo *AuditRepositoryDatabase) FindByBatchID(ctx context.Context, batchID string) ([]*audit.Entry, error) {
	var entries []*audit.Entry
	if err := repo.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("created_at").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
