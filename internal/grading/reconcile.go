package grading

import (
	"math"
	"strings"
	"unicode"
)

// Roll numbers shorter or longer than this digit range are treated as
// misreads and discarded along with their confidence.
const (
	minRollDigits = 5
	maxRollDigits = 15
)

// Reconciled is the bounded, validated outcome of one grading attempt.
type Reconciled struct {
	ContentScore   float64
	LanguageScore  float64
	TotalScore     float64
	Grade          string
	RollNumber     *string
	RollConfidence float64
}

// Reconcile turns the model's raw claims into final clamped scores and a
// letter grade. When a per-section breakdown is present, the total is
// recomputed from the per-question sums and the content/language split is
// re-derived from the weightages, discarding the model's own aggregates;
// per-question sums are more auditable than a single total the model may
// have miscomputed. Without a breakdown the model's category scores are
// used, each clamped to its budget.
func Reconcile(result StructuredGradingResult, cfg GradingConfig) Reconciled {
	var content, language, total float64

	if result.HasSectionBreakdown() {
		for _, section := range result.SectionResults {
			for _, question := range section.Questions {
				total += float64(question.MarksObtained)
			}
		}
		total = clamp(total, 0, cfg.MaxMarks)
		content = round2(total * cfg.ContentWeightage / 100)
		language = round2(total - content)
	} else {
		content = clamp(float64(result.ContentScore), 0, cfg.ContentBudget())
		language = clamp(float64(result.LanguageScore), 0, cfg.LanguageBudget())
		content = round2(content)
		language = round2(language)
		total = clamp(content+language, 0, cfg.MaxMarks)
	}
	total = round2(total)

	roll, confidence := sanitizeRollNumber(string(result.RollNumber), float64(result.RollNumberConfidence))

	return Reconciled{
		ContentScore:   content,
		LanguageScore:  language,
		TotalScore:     total,
		Grade:          LetterGrade(total, cfg.MaxMarks),
		RollNumber:     roll,
		RollConfidence: confidence,
	}
}

// LetterGrade maps a score against its maximum onto the fixed grade table.
// Tier boundaries are inclusive on their lower bound.
func LetterGrade(total, maxMarks float64) string {
	if maxMarks <= 0 {
		return "F"
	}

	percent := total / maxMarks * 100
	switch {
	case percent >= 90:
		return "A+"
	case percent >= 80:
		return "A"
	case percent >= 70:
		return "B+"
	case percent >= 60:
		return "B"
	case percent >= 50:
		return "C+"
	case percent >= 40:
		return "C"
	case percent >= 33:
		return "D"
	default:
		return "F"
	}
}

// sanitizeRollNumber strips everything but digits and accepts the result
// only when its length is plausible for a roll number. Rejected values null
// the confidence as well, regardless of what the model claimed.
func sanitizeRollNumber(raw string, confidence float64) (*string, float64) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)

	if len(digits) < minRollDigits || len(digits) > maxRollDigits {
		return nil, 0
	}

	return &digits, clamp(confidence, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
