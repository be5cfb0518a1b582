package models

import "time"

// AcademicLevel carries institution-wide grading defaults for one level of
// study. Its overrides take precedence over the exam's own values when
// resolving a grading configuration.
type AcademicLevel struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"size:128;not null" json:"name"`
	MaxMarks          *float64  `json:"max_marks"`
	ContentWeightage  *float64  `json:"content_weightage"`
	LanguageWeightage *float64  `json:"language_weightage"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
