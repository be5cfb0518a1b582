package models

import "time"

// ReEvaluationLog is an append-only audit record comparing scores before and
// after a re-grading attempt. Entries are written only when a re-evaluation
// succeeds and are never mutated afterwards.
type ReEvaluationLog struct {
	ID                    uint        `gorm:"primaryKey" json:"id"`
	AnswerSheetID         uint        `gorm:"not null" json:"answer_sheet_id"`
	PreviousContentScore  *float64    `json:"previous_content_score"`
	PreviousLanguageScore *float64    `json:"previous_language_score"`
	PreviousTotalScore    *float64    `json:"previous_total_score"`
	PreviousGrade         string      `gorm:"size:8" json:"previous_grade"`
	NewContentScore       float64     `json:"new_content_score"`
	NewLanguageScore      float64     `json:"new_language_score"`
	NewTotalScore         float64     `json:"new_total_score"`
	NewGrade              string      `gorm:"size:8" json:"new_grade"`
	RequestedBy           string      `gorm:"size:128" json:"requested_by"`
	CreatedAt             time.Time   `json:"created_at"`
	AnswerSheet           AnswerSheet `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
