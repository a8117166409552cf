package repository

import (
	"fmt"

	"gorm.io/gorm"

	"cropcare/internal/model"
)

type AnalysisRecordRepository struct {
	db *gorm.DB
}

func NewAnalysisRecordRepository(db *gorm.DB) *AnalysisRecordRepository {
	return &AnalysisRecordRepository{db: db}
}

func (r *AnalysisRecordRepository) Create(record *model.AnalysisRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create analysis record failed: %w", err)
	}
	return nil
}

// ListByEmail returns the newest records first.
func (r *AnalysisRecordRepository) ListByEmail(email string, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var records []model.AnalysisRecord
	if err := r.db.Where("session_email = ?", email).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list analysis records failed: %w", err)
	}
	return records, nil
}
