package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UploadRecord tracks one spreadsheet ingestion for audit purposes.
type UploadRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FileName     string    `gorm:"size:255" json:"fileName"`
	RowCount     int       `gorm:"type:int;default:0" json:"rowCount"`
	ProductCount int       `gorm:"type:int;default:0" json:"productCount"`
	SkippedCount int       `gorm:"type:int;default:0" json:"skippedCount"`
	Status       string    `gorm:"size:20;default:'uploaded'" json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SkippedRow records a spreadsheet row that could not be turned into a product.
type SkippedRow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UploadID    uuid.UUID `gorm:"type:uuid;index" json:"uploadId"`
	RowNumber   int       `gorm:"type:int" json:"rowNumber"`
	SKU         string    `gorm:"size:100" json:"sku"`
	ProductName string    `gorm:"size:255" json:"productName"`
	Reason      string    `gorm:"type:text" json:"reason"`
	CreatedAt   time.Time `json:"createdAt"`
}

type UploadRepo interface {
	Save(ctx context.Context, rec *UploadRecord) error
	AddSkipped(ctx context.Context, rows []SkippedRow) error
	ListRecent(ctx context.Context, limit int) ([]UploadRecord, error)
}
