package service

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/papergrade/papergrade-api/internal/dto"
	"github.com/papergrade/papergrade-api/internal/grading"
	"github.com/papergrade/papergrade-api/internal/models"
)

const (
	sheetURL = "https://cdn.example.com/sheets/scan-7.png"
	paperURL = "https://cdn.example.com/papers/physics.pdf"
)

func rubricExam() models.Exam {
	return models.Exam{
		ID:       1,
		Title:    "Physics Midterm",
		Subject:  "Physics",
		Rubric:   datatypes.JSON(`{"sections":[{"name":"A","questions":[{"number":"1","marks":50},{"number":"2","marks":50}]}]}`),
		MaxMarks: floatPtr(100),
	}
}

func pendingSheet(exam models.Exam) models.AnswerSheet {
	return models.AnswerSheet{
		ID:      7,
		ExamID:  exam.ID,
		FileURL: sheetURL,
		Status:  models.SheetStatusPending,
		Exam:    exam,
	}
}

func sheetFetcher() *fakeFetcher {
	return &fakeFetcher{docs: map[string]fakeDocument{
		sheetURL: {data: []byte("png-bytes"), mime: "image/png"},
		paperURL: {data: []byte("pdf-bytes"), mime: "application/pdf"},
	}}
}

func newGradingFixture(invoker *fakeInvoker, fetcher *fakeFetcher, sheets ...models.AnswerSheet) (GradingService, *fakeSheetRepo, *fakeLogRepo) {
	sheetRepo := newFakeSheetRepo(sheets...)
	logRepo := &fakeLogRepo{}
	svc := NewGradingService(sheetRepo, logRepo, invoker, fetcher,
		validator.New(validator.WithRequiredStructEnabled()), nil, "", zerolog.Nop())
	return svc, sheetRepo, logRepo
}

func TestGradeSucceedsWithRubricPrompt(t *testing.T) {
	exam := rubricExam()
	invoker := &fakeInvoker{reply: "```json\n" + `{
		"roll_number": "10234",
		"roll_number_confidence": 95,
		"section_wise_results": [
			{"section_name": "A", "questions": [
				{"question_number": "1", "marks_obtained": 40, "max_marks": 50, "attempted": true},
				{"question_number": "2", "marks_obtained": 35, "max_marks": 50, "attempted": true}
			]}
		],
		"grade": "B+",
		"remarks": "Well structured answers."
	}` + "\n```"}

	svc, sheetRepo, _ := newGradingFixture(invoker, sheetFetcher(), pendingSheet(exam))

	resp, err := svc.Grade(context.Background(), 7, dto.GradeRequest{})
	require.NoError(t, err)

	require.Equal(t, string(models.SheetStatusGraded), resp.Status)
	require.NotNil(t, resp.TotalScore)
	require.Equal(t, 75.0, *resp.TotalScore)
	require.Equal(t, 45.0, *resp.ContentScore)
	require.Equal(t, 30.0, *resp.LanguageScore)
	require.Equal(t, "B+", resp.Grade)
	require.NotNil(t, resp.ExtractedRollNumber)
	require.Equal(t, "10234", *resp.ExtractedRollNumber)
	require.Equal(t, 95.0, resp.RollNumberConfidence)
	require.NotNil(t, resp.GradedAt)

	require.Len(t, invoker.calls, 1)
	call := invoker.calls[0]
	require.Contains(t, call.prompt, string(exam.Rubric))
	require.Len(t, call.attachments, 1)
	require.Equal(t, "image/png", call.attachments[0].MIMEType)

	require.Equal(t, []models.SheetStatus{models.SheetStatusProcessing, models.SheetStatusGraded}, sheetRepo.statuses())
}

func TestGradeFallsBackToQuestionPaperWithoutRubric(t *testing.T) {
	exam := models.Exam{ID: 1, Title: "History Final", QuestionPaperURL: paperURL, MaxMarks: floatPtr(100)}
	invoker := &fakeInvoker{reply: `{"content_score": 50, "language_score": 30, "grade": "A"}`}

	svc, _, _ := newGradingFixture(invoker, sheetFetcher(), pendingSheet(exam))

	resp, err := svc.Grade(context.Background(), 7, dto.GradeRequest{})
	require.NoError(t, err)
	require.Equal(t, string(models.SheetStatusGraded), resp.Status)
	require.Equal(t, 80.0, *resp.TotalScore)

	require.Len(t, invoker.calls, 1)
	call := invoker.calls[0]
	require.Contains(t, call.prompt, "No marking rubric is available")
	require.Len(t, call.attachments, 2, "question paper then answer sheet")
	require.Equal(t, "application/pdf", call.attachments[0].MIMEType)
	require.Equal(t, "image/png", call.attachments[1].MIMEType)
}

func TestGradeMalformedReplyStillCompletes(t *testing.T) {
	invoker := &fakeInvoker{reply: "I was unable to produce any structured output."}

	svc, _, _ := newGradingFixture(invoker, sheetFetcher(), pendingSheet(rubricExam()))

	resp, err := svc.Grade(context.Background(), 7, dto.GradeRequest{})
	require.NoError(t, err)

	require.Equal(t, string(models.SheetStatusGraded), resp.Status)
	require.Equal(t, 0.0, *resp.TotalScore)
	require.Equal(t, "F", resp.Grade)
	require.Contains(t, resp.Issues, grading.MalformedResponseIssue)
}

func TestGradeSanitizesModelRemarks(t *testing.T) {
	invoker := &fakeInvoker{reply: `{"content_score": 40, "language_score": 20, "grade": "B", "remarks": "<b>Good</b> effort overall"}`}

	svc, _, _ := newGradingFixture(invoker, sheetFetcher(), pendingSheet(rubricExam()))

	resp, err := svc.Grade(context.Background(), 7, dto.GradeRequest{})
	require.NoError(t, err)
	require.Equal(t, "Good effort overall", resp.Remarks)
}

func TestGradeInvokerFailureLandsInErrorStatus(t *testing.T) {
	invoker := &fakeInvoker{err: errInvalidKey}

	svc, sheetRepo, _ := newGradingFixture(invoker, sheetFetcher(), pendingSheet(rubricExam()))

	resp, err := svc.Grade(context.Background(), 7, dto.GradeRequest{})
	require.NoError(t, err, "engine failures are absorbed into the sheet status")

	require.Equal(t, string(models.SheetStatusError), resp.Status)
	require.Contains(t, resp.ErrorMessage, "grading failed")
	require.Contains(t, resp.ErrorMessage, "invalid api key")
	require.Equal(t, []models.SheetStatus{models.SheetStatusProcessing, models.SheetStatusError}, sheetRepo.statuses())
}

func TestGradeFetchFailureLandsInErrorStatus(t *testing.T) {
	svc, _, _ := newGradingFixture(&fakeInvoker{}, &fakeFetcher{err: errFetchDown}, pendingSheet(rubricExam()))

	resp, err := svc.Grade(context.Background(), 7, dto.GradeRequest{})
	require.NoError(t, err)
	require.Equal(t, string(models.SheetStatusError), resp.Status)
	require.Contains(t, resp.ErrorMessage, "fetch answer sheet")
}

func TestGradeUnknownSheet(t *testing.T) {
	svc, _, _ := newGradingFixture(&fakeInvoker{}, sheetFetcher())

	_, err := svc.Grade(context.Background(), 404, dto.GradeRequest{})
	require.ErrorIs(t, err, ErrAnswerSheetNotFound)
}

func TestGradeRejectsSheetAlreadyProcessing(t *testing.T) {
	sheet := pendingSheet(rubricExam())
	sheet.Status = models.SheetStatusProcessing

	svc, sheetRepo, _ := newGradingFixture(&fakeInvoker{}, sheetFetcher(), sheet)

	_, err := svc.Grade(context.Background(), 7, dto.GradeRequest{})
	require.ErrorIs(t, err, ErrSheetAlreadyProcessing)
	require.Empty(t, sheetRepo.statuses())
}

func TestGradeGradedSheetRequiresReEvaluationFlag(t *testing.T) {
	sheet := pendingSheet(rubricExam())
	sheet.Status = models.SheetStatusGraded
	sheet.Grade = "B"

	svc, sheetRepo, _ := newGradingFixture(&fakeInvoker{}, sheetFetcher(), sheet)

	_, err := svc.Grade(context.Background(), 7, dto.GradeRequest{})
	require.ErrorIs(t, err, ErrReEvaluationRequired)
	require.Empty(t, sheetRepo.statuses())
}

func TestGradeReEvaluationAppendsAuditLog(t *testing.T) {
	sheet := pendingSheet(rubricExam())
	sheet.Status = models.SheetStatusGraded
	sheet.ContentScore = floatPtr(40)
	sheet.LanguageScore = floatPtr(20)
	sheet.TotalScore = floatPtr(60)
	sheet.Grade = "B"

	invoker := &fakeInvoker{reply: `{"content_score": 45, "language_score": 30, "grade": "B+"}`}
	svc, _, logRepo := newGradingFixture(invoker, sheetFetcher(), sheet)

	resp, err := svc.Grade(context.Background(), 7, dto.GradeRequest{ReEvaluate: true, RequestedBy: "examiner-9"})
	require.NoError(t, err)
	require.Equal(t, string(models.SheetStatusGraded), resp.Status)
	require.Equal(t, 75.0, *resp.TotalScore)

	require.Len(t, logRepo.entries, 1)
	entry := logRepo.entries[0]
	require.Equal(t, uint(7), entry.AnswerSheetID)
	require.Equal(t, 60.0, *entry.PreviousTotalScore)
	require.Equal(t, "B", entry.PreviousGrade)
	require.Equal(t, 75.0, entry.NewTotalScore)
	require.Equal(t, "B+", entry.NewGrade)
	require.Equal(t, "examiner-9", entry.RequestedBy)
}

func TestGradeFirstGradingWritesNoAuditLog(t *testing.T) {
	invoker := &fakeInvoker{reply: `{"content_score": 45, "language_score": 30, "grade": "B+"}`}
	svc, _, logRepo := newGradingFixture(invoker, sheetFetcher(), pendingSheet(rubricExam()))

	_, err := svc.Grade(context.Background(), 7, dto.GradeRequest{RequestedBy: "examiner-9"})
	require.NoError(t, err)
	require.Empty(t, logRepo.entries)
}

func TestGradeValidatesRequest(t *testing.T) {
	svc, sheetRepo, _ := newGradingFixture(&fakeInvoker{}, sheetFetcher(), pendingSheet(rubricExam()))

	_, err := svc.Grade(context.Background(), 7, dto.GradeRequest{RequestedBy: strings.Repeat("x", 200)})
	require.Error(t, err)
	require.Empty(t, sheetRepo.statuses())
}

func TestListReEvaluationsUnknownSheet(t *testing.T) {
	svc, _, _ := newGradingFixture(&fakeInvoker{}, sheetFetcher())

	_, err := svc.ListReEvaluations(context.Background(), 404)
	require.ErrorIs(t, err, ErrAnswerSheetNotFound)
}

func TestResolveExamConfigLevelOverrides(t *testing.T) {
	level := &models.AcademicLevel{ID: 3, Name: "Grade 10", MaxMarks: floatPtr(80), ContentWeightage: floatPtr(70), LanguageWeightage: floatPtr(30)}

	// Exam declares no weightages of its own: level values apply.
	exam := models.Exam{ID: 1, AcademicLevel: level}
	cfg := resolveExamConfig(exam)
	require.Equal(t, 80.0, cfg.MaxMarks)
	require.Equal(t, 70.0, cfg.ContentWeightage)

	// Exam weightages win over level weightages.
	exam.ContentWeightage = floatPtr(55)
	cfg = resolveExamConfig(exam)
	require.Equal(t, 55.0, cfg.ContentWeightage)
	require.Equal(t, 45.0, cfg.LanguageWeightage)

	// Level max marks beat the exam's own value.
	exam.MaxMarks = floatPtr(100)
	cfg = resolveExamConfig(exam)
	require.Equal(t, 80.0, cfg.MaxMarks)
}
