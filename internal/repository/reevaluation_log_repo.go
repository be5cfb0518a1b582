package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/papergrade/papergrade-api/internal/models"
)

// ReEvaluationLogRepository persists the append-only re-evaluation audit
// trail. There is deliberately no update or delete operation.
type ReEvaluationLogRepository interface {
	Create(ctx context.Context, entry *models.ReEvaluationLog) error
	ListBySheet(ctx context.Context, sheetID uint) ([]models.ReEvaluationLog, error)
}

type reEvaluationLogRepository struct {
	db *gorm.DB
}

// NewReEvaluationLogRepository instantiates the repository.
func NewReEvaluationLogRepository(db *gorm.DB) ReEvaluationLogRepository {
	return &reEvaluationLogRepository{db: db}
}

func (r *reEvaluationLogRepository) Create(ctx context.Context, entry *models.ReEvaluationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *reEvaluationLogRepository) ListBySheet(ctx context.Context, sheetID uint) ([]models.ReEvaluationLog, error) {
	var entries []models.ReEvaluationLog
	if err := r.db.WithContext(ctx).
		Where("answer_sheet_id = ?", sheetID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
