package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/papergrade/papergrade-api/internal/models"
)

// AnswerSheetFilter allows narrowing answer sheet queries.
type AnswerSheetFilter struct {
	ExamID *uint
	Status *models.SheetStatus
}

// AnswerSheetRepository defines data operations for answer sheets.
type AnswerSheetRepository interface {
	List(ctx context.Context, filter AnswerSheetFilter) ([]models.AnswerSheet, error)
	GetByID(ctx context.Context, id uint) (models.AnswerSheet, error)
	Create(ctx context.Context, sheet *models.AnswerSheet) error
	Update(ctx context.Context, sheet *models.AnswerSheet) error
}

type answerSheetRepository struct {
	db *gorm.DB
}

// NewAnswerSheetRepository instantiates the repository.
func NewAnswerSheetRepository(db *gorm.DB) AnswerSheetRepository {
	return &answerSheetRepository{db: db}
}

func (r *answerSheetRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.AnswerSheet{}).
		Preload("Exam").
		Preload("Exam.AcademicLevel")
}

func (r *answerSheetRepository) List(ctx context.Context, filter AnswerSheetFilter) ([]models.AnswerSheet, error) {
	query := r.baseQuery(ctx)

	if filter.ExamID != nil {
		query = query.Where("exam_id = ?", *filter.ExamID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var sheets []models.AnswerSheet
	if err := query.Order("created_at DESC").Find(&sheets).Error; err != nil {
		return nil, err
	}

	return sheets, nil
}

func (r *answerSheetRepository) GetByID(ctx context.Context, id uint) (models.AnswerSheet, error) {
	var sheet models.AnswerSheet
	if err := r.baseQuery(ctx).First(&sheet, id).Error; err != nil {
		return models.AnswerSheet{}, err
	}

	return sheet, nil
}

func (r *answerSheetRepository) Create(ctx context.Context, sheet *models.AnswerSheet) error {
	return r.db.WithContext(ctx).Create(sheet).Error
}

func (r *answerSheetRepository) Update(ctx context.Context, sheet *models.AnswerSheet) error {
	return r.db.WithContext(ctx).Save(sheet).Error
}
