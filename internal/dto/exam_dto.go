package dto

import (
	"encoding/json"
	"time"

	"github.com/papergrade/papergrade-api/internal/models"
)

// ExamCreateRequest describes the payload for creating an exam.
type ExamCreateRequest struct {
	Title               string          `json:"title" validate:"required,min=3,max=255"`
	Subject             string          `json:"subject" validate:"omitempty,max=128"`
	Rubric              json.RawMessage `json:"rubric"`
	MaxMarks            *float64        `json:"max_marks" validate:"omitempty,gt=0"`
	ContentWeightage    *float64        `json:"content_weightage"`
	LanguageWeightage   *float64        `json:"language_weightage"`
	Strictness          *float64        `json:"strictness"`
	GradingInstructions string          `json:"grading_instructions"`
	AcademicLevelID     *uint           `json:"academic_level_id"`
}

// ExamUpdateRequest describes the payload for updating grading settings.
type ExamUpdateRequest struct {
	Title               *string         `json:"title" validate:"omitempty,min=3,max=255"`
	Subject             *string         `json:"subject" validate:"omitempty,max=128"`
	Rubric              json.RawMessage `json:"rubric"`
	MaxMarks            *float64        `json:"max_marks" validate:"omitempty,gt=0"`
	ContentWeightage    *float64        `json:"content_weightage"`
	LanguageWeightage   *float64        `json:"language_weightage"`
	Strictness          *float64        `json:"strictness"`
	GradingInstructions *string         `json:"grading_instructions"`
	AcademicLevelID     *uint           `json:"academic_level_id"`
}

// ExamResponse is returned to API clients when viewing exams.
type ExamResponse struct {
	ID                  uint            `json:"id"`
	Title               string          `json:"title"`
	Subject             string          `json:"subject"`
	QuestionPaperURL    string          `json:"question_paper_url"`
	HasRubric           bool            `json:"has_rubric"`
	MaxMarks            *float64        `json:"max_marks"`
	ContentWeightage    *float64        `json:"content_weightage"`
	LanguageWeightage   *float64        `json:"language_weightage"`
	Strictness          *float64        `json:"strictness"`
	GradingInstructions string          `json:"grading_instructions"`
	AcademicLevel       *AcademicLevelLite `json:"academic_level,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// AcademicLevelLite summarizes an academic level in exam responses.
type AcademicLevelLite struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// NewExamResponse converts an Exam model into a DTO.
func NewExamResponse(model models.Exam) ExamResponse {
	response := ExamResponse{
		ID:                  model.ID,
		Title:               model.Title,
		Subject:             model.Subject,
		QuestionPaperURL:    model.QuestionPaperURL,
		HasRubric:           model.HasRubric(),
		MaxMarks:            model.MaxMarks,
		ContentWeightage:    model.ContentWeightage,
		LanguageWeightage:   model.LanguageWeightage,
		Strictness:          model.Strictness,
		GradingInstructions: model.GradingInstructions,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}

	if model.AcademicLevel != nil {
		response.AcademicLevel = &AcademicLevelLite{
			ID:   model.AcademicLevel.ID,
			Name: model.AcademicLevel.Name,
		}
	}

	return response
}
