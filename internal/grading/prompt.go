package grading

import (
	"fmt"
	"strings"
)

// rubricCharBudget bounds how much serialized rubric text is interpolated
// into a prompt. Oversized rubrics are cut and marked so the model knows the
// tail is missing.
const rubricCharBudget = 50000

const rubricTruncationMarker = "\n...[rubric truncated]"

// defaultInstructions is used when an exam carries no grading instructions.
const defaultInstructions = "Grade each answer on correctness and completeness against the marking scheme."

// resultShapeDoc documents the JSON object the model must return. Both
// prompt variants embed it verbatim so the repair pipeline can rely on one
// shape.
const resultShapeDoc = `{
  "roll_number": "extracted roll/magic number as a string, or null if not visible",
  "roll_number_confidence": 0-100,
  "section_wise_results": [
    {
      "section_name": "...",
      "questions": [
        {
          "question_number": "...",
          "marks_obtained": 0,
          "max_marks": 0,
          "attempted": true,
          "excess_attempt": false,
          "feedback": "one short sentence"
        }
      ]
    }
  ],
  "content_score": 0,
  "language_score": 0,
  "total_score": 0,
  "grade": "A+|A|B+|B|C+|C|D|F",
  "remarks": "2-3 sentence overall remarks",
  "issues": ["any problems encountered while reading the sheet"]
}`

// BuildRubricPrompt renders the grading prompt for an exam whose rubric has
// already been extracted. The function is deterministic and performs no I/O.
func BuildRubricPrompt(cfg GradingConfig, rubricJSON string) string {
	var b strings.Builder

	b.WriteString("You are an experienced examiner grading a scanned handwritten answer sheet.\n\n")
	writeMarkScheme(&b, cfg)
	writeInstructions(&b, cfg)

	b.WriteString("\n## Rubric\n")
	b.WriteString("Grade strictly against the following rubric. ")
	b.WriteString("Evaluate EVERY question listed in the rubric: if a question was not answered, include it with marks_obtained 0 and attempted false, never omit it.\n")
	b.WriteString("Where a section allows answering any N out of M questions, grade only the first N answered questions; mark any further answered questions with excess_attempt true and marks_obtained 0.\n\n")
	b.WriteString(truncateRubric(rubricJSON))
	b.WriteString("\n")

	writeOutputRules(&b, cfg)
	return b.String()
}

// BuildFallbackPrompt renders the prompt variant used when no extracted
// rubric exists. The question paper itself is attached alongside the answer
// sheet and the model is asked to infer both the questions and the marking
// scheme from it.
func BuildFallbackPrompt(cfg GradingConfig) string {
	var b strings.Builder

	b.WriteString("You are an experienced examiner grading a scanned handwritten answer sheet.\n\n")
	b.WriteString("No marking rubric is available. The first attached document is the question paper; ")
	b.WriteString("read it, infer each question with its marks allocation, and grade the answer sheet against it.\n")
	b.WriteString("Evaluate EVERY question on the paper: if a question was not answered, include it with marks_obtained 0 and attempted false, never omit it.\n")
	b.WriteString("Where a section allows answering any N out of M questions, grade only the first N answered questions; mark any further answered questions with excess_attempt true and marks_obtained 0.\n\n")
	writeMarkScheme(&b, cfg)
	writeInstructions(&b, cfg)

	writeOutputRules(&b, cfg)
	return b.String()
}

func writeMarkScheme(b *strings.Builder, cfg GradingConfig) {
	b.WriteString("## Marking Scheme\n")
	fmt.Fprintf(b, "Maximum marks: %.1f\n", cfg.MaxMarks)
	fmt.Fprintf(b, "Content accuracy budget: %.1f marks (%.0f%% weightage)\n", cfg.ContentBudget(), cfg.ContentWeightage)
	fmt.Fprintf(b, "Language quality budget: %.1f marks (%.0f%% weightage)\n", cfg.LanguageBudget(), cfg.LanguageWeightage)
	fmt.Fprintf(b, "Grading strictness: %s\n", strictnessDescription(cfg.Strictness))
}

func writeInstructions(b *strings.Builder, cfg GradingConfig) {
	instructions := strings.TrimSpace(cfg.Instructions)
	if instructions == "" {
		instructions = defaultInstructions
	}
	b.WriteString("\n## Examiner Instructions\n")
	b.WriteString(instructions)
	b.WriteString("\n")
}

func writeOutputRules(b *strings.Builder, cfg GradingConfig) {
	b.WriteString("\n## Output\n")
	b.WriteString("Respond with STRICTLY VALID JSON matching exactly this shape, with no surrounding prose or markdown:\n")
	b.WriteString(resultShapeDoc)
	b.WriteString("\n")
	fmt.Fprintf(b, "The total_score and the sum of all marks_obtained must NEVER exceed %.1f.\n", cfg.MaxMarks)
	b.WriteString("Extract the roll/magic number written on the sheet if visible; report null with confidence 0 when it is not.\n")
}

// strictnessDescription buckets the 0-100 strictness level into one of three
// fixed examiner postures.
func strictnessDescription(level float64) string {
	switch {
	case level <= 30:
		return "lenient - award marks generously and give benefit of the doubt to partially correct answers"
	case level <= 60:
		return "moderate - award marks fairly, requiring the key points of each answer to be present"
	default:
		return "strict - award marks only for complete, precise and well-supported answers"
	}
}

func truncateRubric(rubricJSON string) string {
	if len(rubricJSON) <= rubricCharBudget {
		return rubricJSON
	}
	return rubricJSON[:rubricCharBudget] + rubricTruncationMarker
}
