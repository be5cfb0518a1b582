package dto

import (
	"encoding/json"
	"time"

	"github.com/papergrade/papergrade-api/internal/models"
)

// AnswerSheetFilter describes query string filters for listing sheets.
type AnswerSheetFilter struct {
	ExamID *uint   `query:"exam_id"`
	Status *string `query:"status" validate:"omitempty,oneof=pending processing graded error"`
}

// AnswerSheetResponse is returned to API clients when viewing answer sheets.
type AnswerSheetResponse struct {
	ID                   uint            `json:"id"`
	ExamID               uint            `json:"exam_id"`
	FileURL              string          `json:"file_url"`
	Status               string          `json:"status"`
	ContentScore         *float64        `json:"content_score"`
	LanguageScore        *float64        `json:"language_score"`
	TotalScore           *float64        `json:"total_score"`
	Grade                string          `json:"grade"`
	Remarks              string          `json:"remarks"`
	Issues               []string        `json:"issues"`
	ExtractedRollNumber  *string         `json:"extracted_roll_number"`
	RollNumberConfidence float64         `json:"roll_number_confidence"`
	SectionResults       json.RawMessage `json:"section_wise_results"`
	AIResponse           json.RawMessage `json:"ai_response"`
	ErrorMessage         string          `json:"error_message,omitempty"`
	GradedAt             *time.Time      `json:"graded_at"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	Exam                 ExamLite        `json:"exam"`
}

// ExamLite summarizes an exam in answer sheet responses.
type ExamLite struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Subject string `json:"subject"`
}

// NewAnswerSheetResponse converts an AnswerSheet model into a DTO.
func NewAnswerSheetResponse(model models.AnswerSheet) AnswerSheetResponse {
	var issues []string
	if len(model.Issues) > 0 {
		_ = json.Unmarshal(model.Issues, &issues)
	}

	return AnswerSheetResponse{
		ID:                   model.ID,
		ExamID:               model.ExamID,
		FileURL:              model.FileURL,
		Status:               string(model.Status),
		ContentScore:         model.ContentScore,
		LanguageScore:        model.LanguageScore,
		TotalScore:           model.TotalScore,
		Grade:                model.Grade,
		Remarks:              model.Remarks,
		Issues:               issues,
		ExtractedRollNumber:  model.ExtractedRollNumber,
		RollNumberConfidence: model.RollNumberConfidence,
		SectionResults:       json.RawMessage(model.SectionResults),
		AIResponse:           json.RawMessage(model.AIResponse),
		ErrorMessage:         model.ErrorMessage,
		GradedAt:             model.GradedAt,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
		Exam: ExamLite{
			ID:      model.Exam.ID,
			Title:   model.Exam.Title,
			Subject: model.Exam.Subject,
		},
	}
}
