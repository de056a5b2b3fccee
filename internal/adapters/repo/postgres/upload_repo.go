// Package postgres persists the upload audit trail. The rest of the system is
// session-scoped and in memory; this is the only durable state, and the
// server degrades to memory-only when no DSN is configured.
package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/pricelens/internal/domain"
)

type UploadRepo struct{ db *gorm.DB }

func NewUploadRepo(db *gorm.DB) *UploadRepo { return &UploadRepo{db: db} }

// Migrate creates the audit tables. Safe to run on every boot.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.UploadRecord{}, &domain.SkippedRow{})
}

func (r *UploadRepo) Save(ctx context.Context, rec *domain.UploadRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *UploadRepo) AddSkipped(ctx context.Context, rows []domain.SkippedRow) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = time.Now()
		}
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *UploadRepo) ListRecent(ctx context.Context, limit int) ([]domain.UploadRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []domain.UploadRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
