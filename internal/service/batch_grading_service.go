package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/papergrade/papergrade-api/internal/dto"
	"github.com/papergrade/papergrade-api/internal/models"
	"github.com/papergrade/papergrade-api/internal/repository"
)

// ErrExamNotFound indicates the exam was not located.
var ErrExamNotFound = errors.New("exam not found")

// DefaultInvocationSpacing is the minimum pause between consecutive model
// invocations during a batch run. Upstream inference APIs rate-limit
// aggressively; this is throughput control, not correctness.
const DefaultInvocationSpacing = time.Second

// BatchGradingService grades every pending answer sheet of an exam in one
// sequential pass.
type BatchGradingService interface {
	GradeExam(ctx context.Context, examID uint, requestedBy string) (dto.BatchGradeSummary, error)
}

type batchGradingService struct {
	exams   repository.ExamRepository
	sheets  repository.AnswerSheetRepository
	grader  GradingService
	spacing time.Duration
	logger  zerolog.Logger
}

// NewBatchGradingService constructs the batch runner. A non-positive spacing
// falls back to the default.
func NewBatchGradingService(exams repository.ExamRepository, sheets repository.AnswerSheetRepository, grader GradingService, spacing time.Duration, logger zerolog.Logger) BatchGradingService {
	if spacing <= 0 {
		spacing = DefaultInvocationSpacing
	}

	return &batchGradingService{
		exams:   exams,
		sheets:  sheets,
		grader:  grader,
		spacing: spacing,
		logger:  logger.With().Str("component", "batch_grading_service").Logger(),
	}
}

// GradeExam walks the exam's pending sheets in order, pausing between
// attempts. A failed sheet never aborts the batch; its outcome is reported
// in the summary and processing continues with the next sheet.
func (s *batchGradingService) GradeExam(ctx context.Context, examID uint, requestedBy string) (dto.BatchGradeSummary, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BatchGradeSummary{}, ErrExamNotFound
		}
		return dto.BatchGradeSummary{}, err
	}

	pending := models.SheetStatusPending
	sheets, err := s.sheets.List(ctx, repository.AnswerSheetFilter{ExamID: &examID, Status: &pending})
	if err != nil {
		return dto.BatchGradeSummary{}, err
	}

	summary := dto.BatchGradeSummary{ExamID: examID}

	for i, sheet := range sheets {
		if i > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(s.spacing):
			}
		}

		summary.Attempted++
		result, err := s.grader.Grade(ctx, sheet.ID, dto.GradeRequest{RequestedBy: requestedBy})

		line := dto.BatchSheetResult{SheetID: sheet.ID}
		switch {
		case err != nil:
			line.Status = string(models.SheetStatusError)
			line.Error = err.Error()
			summary.Failed++
			s.logger.Warn().Err(err).Uint("sheet_id", sheet.ID).Msg("batch grading attempt failed")
		case result.Status == string(models.SheetStatusGraded):
			line.Status = result.Status
			summary.Graded++
		default:
			line.Status = result.Status
			line.Error = result.ErrorMessage
			summary.Failed++
		}
		summary.Sheets = append(summary.Sheets, line)
	}

	s.logger.Info().
		Uint("exam_id", examID).
		Int("attempted", summary.Attempted).
		Int("graded", summary.Graded).
		Int("failed", summary.Failed).
		Msg("batch grading completed")

	return summary, nil
}
