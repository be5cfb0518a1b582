package dto

import (
	"time"

	"github.com/papergrade/papergrade-api/internal/models"
)

// GradeRequest triggers a grading attempt over one answer sheet.
type GradeRequest struct {
	ReEvaluate  bool   `json:"re_evaluate"`
	RequestedBy string `json:"requested_by" validate:"omitempty,max=128"`
}

// BatchGradeSummary reports the outcome of grading every pending sheet of
// an exam.
type BatchGradeSummary struct {
	ExamID    uint               `json:"exam_id"`
	Attempted int                `json:"attempted"`
	Graded    int                `json:"graded"`
	Failed    int                `json:"failed"`
	Sheets    []BatchSheetResult `json:"sheets"`
}

// BatchSheetResult is one line of a batch grading summary.
type BatchSheetResult struct {
	SheetID uint   `json:"sheet_id"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// ReEvaluationLogResponse serializes one audit trail entry.
type ReEvaluationLogResponse struct {
	ID                    uint      `json:"id"`
	AnswerSheetID         uint      `json:"answer_sheet_id"`
	PreviousContentScore  *float64  `json:"previous_content_score"`
	PreviousLanguageScore *float64  `json:"previous_language_score"`
	PreviousTotalScore    *float64  `json:"previous_total_score"`
	PreviousGrade         string    `json:"previous_grade"`
	NewContentScore       float64   `json:"new_content_score"`
	NewLanguageScore      float64   `json:"new_language_score"`
	NewTotalScore         float64   `json:"new_total_score"`
	NewGrade              string    `json:"new_grade"`
	RequestedBy           string    `json:"requested_by"`
	CreatedAt             time.Time `json:"created_at"`
}

// NewReEvaluationLogResponse converts a ReEvaluationLog model into a DTO.
func NewReEvaluationLogResponse(model models.ReEvaluationLog) ReEvaluationLogResponse {
	return ReEvaluationLogResponse{
		ID:                    model.ID,
		AnswerSheetID:         model.AnswerSheetID,
		PreviousContentScore:  model.PreviousContentScore,
		PreviousLanguageScore: model.PreviousLanguageScore,
		PreviousTotalScore:    model.PreviousTotalScore,
		PreviousGrade:         model.PreviousGrade,
		NewContentScore:       model.NewContentScore,
		NewLanguageScore:      model.NewLanguageScore,
		NewTotalScore:         model.NewTotalScore,
		NewGrade:              model.NewGrade,
		RequestedBy:           model.RequestedBy,
		CreatedAt:             model.CreatedAt,
	}
}

// ExamStatsResponse aggregates grading outcomes across an exam.
type ExamStatsResponse struct {
	ExamID            uint           `json:"exam_id"`
	TotalSheets       int            `json:"total_sheets"`
	GradedSheets      int            `json:"graded_sheets"`
	PendingSheets     int            `json:"pending_sheets"`
	FailedSheets      int            `json:"failed_sheets"`
	AverageTotalScore float64        `json:"average_total_score"`
	HighestTotalScore float64        `json:"highest_total_score"`
	LowestTotalScore  float64        `json:"lowest_total_score"`
	GradeDistribution map[string]int `json:"grade_distribution"`
	GeneratedAt       time.Time      `json:"generated_at"`
}
