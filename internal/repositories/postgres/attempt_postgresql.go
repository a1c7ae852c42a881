package postgres

import (
	"context"

	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/cdc-hr/assessment-engine/internal/repositories"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, record *models.AttemptRecord) error {
	return a.db.WithContext(ctx).Create(record).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id string) (*models.AttemptRecord, error) {
	var record models.AttemptRecord
	if err := a.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.AttemptRecord, int64, error) {
	query := a.db.WithContext(ctx).Model(&models.AttemptRecord{})

	if filters.Mode != nil {
		query = query.Where("mode = ?", *filters.Mode)
	}
	if filters.CandidateName != nil {
		query = query.Where("candidate_name ILIKE ?", "%"+*filters.CandidateName+"%")
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var records []*models.AttemptRecord
	if err := query.Order("started_at DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
