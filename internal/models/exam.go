package models

import (
	"time"

	"gorm.io/datatypes"
)

// Exam represents a question paper with its grading settings and, when
// available, a pre-extracted rubric. Weightage, max-marks and strictness
// columns are nullable: absent values fall back per the resolution
// precedence at grading time and are never filled in here.
type Exam struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	Title               string         `gorm:"size:255;not null" json:"title"`
	Subject             string         `gorm:"size:128" json:"subject"`
	QuestionPaperURL    string         `gorm:"size:512" json:"question_paper_url"`
	Rubric              datatypes.JSON `json:"rubric"`
	MaxMarks            *float64       `json:"max_marks"`
	ContentWeightage    *float64       `json:"content_weightage"`
	LanguageWeightage   *float64       `json:"language_weightage"`
	Strictness          *float64       `json:"strictness"`
	GradingInstructions string         `gorm:"type:text" json:"grading_instructions"`
	AcademicLevelID     *uint          `json:"academic_level_id"`
	AcademicLevel       *AcademicLevel `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"academic_level,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	Sheets              []AnswerSheet  `json:"-"`
}

// HasRubric reports whether a pre-extracted rubric exists for this exam.
// Without one, grading falls back to attaching the question paper itself.
func (e Exam) HasRubric() bool {
	return len(e.Rubric) > 0 && string(e.Rubric) != "null"
}
