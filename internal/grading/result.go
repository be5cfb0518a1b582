package grading

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexFloat decodes a JSON number that unreliable model output may emit as a
// number, a numeric string, null, or garbage. Anything unusable decodes to 0
// instead of failing the surrounding unmarshal.
type FlexFloat float64

// UnmarshalJSON implements tolerant numeric decoding.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = 0
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var number float64
	if err := json.Unmarshal(trimmed, &number); err == nil {
		*f = FlexFloat(number)
		return nil
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			*f = FlexFloat(parsed)
		}
	}

	return nil
}

// FlexString decodes a JSON value the model may emit as a string, a bare
// number, or null. Null and non-scalar values decode to the empty string.
type FlexString string

// UnmarshalJSON implements tolerant string decoding.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	*s = ""
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		*s = FlexString(text)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err == nil {
		*s = FlexString(number.String())
	}

	return nil
}

// GradedQuestion is one rubric question as scored by the model.
type GradedQuestion struct {
	QuestionNumber FlexString `json:"question_number"`
	MarksObtained  FlexFloat  `json:"marks_obtained"`
	MaxMarks       FlexFloat  `json:"max_marks"`
	Attempted      bool       `json:"attempted"`
	ExcessAttempt  bool       `json:"excess_attempt"`
	Feedback       string     `json:"feedback"`
}

// SectionResult groups graded questions under one rubric section.
type SectionResult struct {
	SectionName string           `json:"section_name"`
	Questions   []GradedQuestion `json:"questions"`
}

// StructuredGradingResult is the structured object recovered from a raw
// model reply. Partial presence of fields is expected; absent numerics are
// zero and absent arrays are empty.
type StructuredGradingResult struct {
	RollNumber           FlexString      `json:"roll_number"`
	RollNumberConfidence FlexFloat       `json:"roll_number_confidence"`
	SectionResults       []SectionResult `json:"section_wise_results"`
	ContentScore         FlexFloat       `json:"content_score"`
	LanguageScore        FlexFloat       `json:"language_score"`
	TotalScore           FlexFloat       `json:"total_score"`
	Grade                string          `json:"grade"`
	Remarks              string          `json:"remarks"`
	Issues               []string        `json:"issues"`
}

// HasSectionBreakdown reports whether the model returned a usable per-section
// breakdown, which the reconciler trusts over the model's own aggregates.
func (r StructuredGradingResult) HasSectionBreakdown() bool {
	for _, section := range r.SectionResults {
		if len(section.Questions) > 0 {
			return true
		}
	}
	return false
}
