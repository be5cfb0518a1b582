package models

import (
	"time"

	"gorm.io/datatypes"
)

// SheetStatus is the closed set of grading lifecycle states for an answer
// sheet. Transitions go pending -> processing -> graded|error; a failed or
// graded sheet may re-enter processing for a re-evaluation.
type SheetStatus string

const (
	SheetStatusPending    SheetStatus = "pending"
	SheetStatusProcessing SheetStatus = "processing"
	SheetStatusGraded     SheetStatus = "graded"
	SheetStatusError      SheetStatus = "error"
)

// CanTransitionTo reports whether moving to the target status is a legal
// lifecycle transition. Keeping this closed makes "stuck in processing"
// structurally unreachable: processing only ever exits to graded or error.
func (s SheetStatus) CanTransitionTo(target SheetStatus) bool {
	switch s {
	case SheetStatusPending:
		return target == SheetStatusProcessing
	case SheetStatusProcessing:
		return target == SheetStatusGraded || target == SheetStatusError
	case SheetStatusGraded, SheetStatusError:
		return target == SheetStatusProcessing
	default:
		return false
	}
}

// AnswerSheet represents one scanned answer sheet and the outcome of its
// latest grading attempt. Scores are nullable until the first successful
// grading; a re-evaluation overwrites them in place.
type AnswerSheet struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	ExamID               uint           `gorm:"not null" json:"exam_id"`
	FileURL              string         `gorm:"size:512;not null" json:"file_url"`
	Status               SheetStatus    `gorm:"size:32;not null" json:"status"`
	ContentScore         *float64       `json:"content_score"`
	LanguageScore        *float64       `json:"language_score"`
	TotalScore           *float64       `json:"total_score"`
	Grade                string         `gorm:"size:8" json:"grade"`
	Remarks              string         `gorm:"type:text" json:"remarks"`
	Issues               datatypes.JSON `json:"issues"`
	ExtractedRollNumber  *string        `gorm:"size:32" json:"extracted_roll_number"`
	RollNumberConfidence float64        `json:"roll_number_confidence"`
	SectionResults       datatypes.JSON `json:"section_wise_results"`
	AIResponse           datatypes.JSON `json:"ai_response"`
	ErrorMessage         string         `gorm:"type:text" json:"error_message"`
	GradedAt             *time.Time     `json:"graded_at"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	Exam                 Exam           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"exam"`
}

// IsGraded reports whether the sheet carries a final grade.
func (s AnswerSheet) IsGraded() bool {
	return s.Status == SheetStatusGraded
}
