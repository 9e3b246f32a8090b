package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "github.com/storage-analysis/pkg/errors"
)

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// SaveRun inserts the run and its categories in one transaction.
func (r *GormRunRepository) SaveRun(ctx context.Context, run *Run) error {
	row, err := FromRunModel(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "save run", err)
	}

	run.ID = row.ID
	run.CreatedAt = row.CreatedAt
	return nil
}

// GetRun retrieves a run by ID.
func (r *GormRunRepository) GetRun(ctx context.Context, id int64) (*Run, error) {
	var row AnalysisRun

	err := r.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("size DESC, name") }).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "run not found: %d", id)
		}
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "get run", err)
	}

	return row.ToModel()
}

// ListRuns returns the newest runs first.
func (r *GormRunRepository) ListRuns(ctx context.Context, network string, limit int) ([]*Run, error) {
	var rows []AnalysisRun

	query := r.db.WithContext(ctx).Order("id DESC")
	if network != "" {
		query = query.Where("network = ?", network)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "list runs", err)
	}

	runs := make([]*Run, 0, len(rows))
	for i := range rows {
		run, err := rows[i].ToModel()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
