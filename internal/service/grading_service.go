package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/papergrade/papergrade-api/internal/dto"
	"github.com/papergrade/papergrade-api/internal/grading"
	"github.com/papergrade/papergrade-api/internal/models"
	"github.com/papergrade/papergrade-api/internal/repository"
	"github.com/papergrade/papergrade-api/pkg/ai"
	"github.com/papergrade/papergrade-api/pkg/docfetch"
)

// ErrAnswerSheetNotFound indicates the answer sheet was not located.
var ErrAnswerSheetNotFound = errors.New("answer sheet not found")

// ErrSheetAlreadyProcessing indicates a grading attempt is already running
// for the sheet.
var ErrSheetAlreadyProcessing = errors.New("answer sheet is already being graded")

// ErrReEvaluationRequired indicates the sheet is already graded and can only
// be re-graded with an explicit re-evaluation request.
var ErrReEvaluationRequired = errors.New("sheet already graded; set re_evaluate to grade again")

// GradingService drives the grading lifecycle of one answer sheet:
// pending -> processing -> graded|error.
type GradingService interface {
	Grade(ctx context.Context, sheetID uint, payload dto.GradeRequest) (dto.AnswerSheetResponse, error)
	ListReEvaluations(ctx context.Context, sheetID uint) ([]dto.ReEvaluationLogResponse, error)
}

type gradingService struct {
	sheets      repository.AnswerSheetRepository
	logs        repository.ReEvaluationLogRepository
	invoker     ai.Invoker
	fetcher     docfetch.Fetcher
	validator   *validator.Validate
	events      *nats.Conn
	eventsTopic string
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradingService constructs the grading orchestrator. The NATS connection
// is optional; when nil, graded events are simply not published.
func NewGradingService(sheets repository.AnswerSheetRepository, logs repository.ReEvaluationLogRepository, invoker ai.Invoker, fetcher docfetch.Fetcher, validate *validator.Validate, events *nats.Conn, eventsTopic string, logger zerolog.Logger) GradingService {
	if eventsTopic == "" {
		eventsTopic = "papergrade.sheet.graded"
	}

	return &gradingService{
		sheets:      sheets,
		logs:        logs,
		invoker:     invoker,
		fetcher:     fetcher,
		validator:   validate,
		events:      events,
		eventsTopic: eventsTopic,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/papergrade/papergrade-api/internal/service/grading"),
		now:         time.Now,
	}
}

// scoreSnapshot captures a sheet's scores before a re-evaluation mutates
// them, so the audit log can compare before and after.
type scoreSnapshot struct {
	content  *float64
	language *float64
	total    *float64
	grade    string
}

// Grade runs one full grading attempt. Entering processing is the first
// durable side effect; every engine or collaborator failure after that is
// caught here exactly once and lands the sheet in error with a readable
// message, never leaving it stuck in processing.
func (s *gradingService) Grade(parent context.Context, sheetID uint, payload dto.GradeRequest) (dto.AnswerSheetResponse, error) {
	ctx, span := s.tracer.Start(parent, "grading.grade", trace.WithAttributes(
		attribute.Int64("grading.sheet_id", int64(sheetID)),
		attribute.Bool("grading.re_evaluate", payload.ReEvaluate),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.AnswerSheetResponse{}, err
	}

	sheet, err := s.sheets.GetByID(ctx, sheetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerSheetResponse{}, ErrAnswerSheetNotFound
		}
		return dto.AnswerSheetResponse{}, err
	}

	if sheet.Status == models.SheetStatusProcessing {
		return dto.AnswerSheetResponse{}, ErrSheetAlreadyProcessing
	}
	if sheet.IsGraded() && !payload.ReEvaluate {
		return dto.AnswerSheetResponse{}, ErrReEvaluationRequired
	}
	if !sheet.Status.CanTransitionTo(models.SheetStatusProcessing) {
		return dto.AnswerSheetResponse{}, fmt.Errorf("cannot grade sheet in status %q", sheet.Status)
	}

	isReEvaluation := payload.ReEvaluate && sheet.IsGraded()
	previous := scoreSnapshot{
		content:  sheet.ContentScore,
		language: sheet.LanguageScore,
		total:    sheet.TotalScore,
		grade:    sheet.Grade,
	}

	sheet.Status = models.SheetStatusProcessing
	sheet.ErrorMessage = ""
	if err := s.sheets.Update(ctx, &sheet); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "processing_write_failed")
		return dto.AnswerSheetResponse{}, err
	}

	if err := s.runAttempt(ctx, &sheet); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempt_failed")
		return s.recordFailure(ctx, sheet, err)
	}

	if err := s.sheets.Update(ctx, &sheet); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "outcome_write_failed")
		return s.recordFailure(ctx, sheet, err)
	}

	if isReEvaluation {
		s.appendReEvaluationLog(ctx, sheet, previous, payload.RequestedBy)
	}
	s.publishGradedEvent(sheet, isReEvaluation)

	span.SetAttributes(
		attribute.Float64("grading.total_score", derefFloat(sheet.TotalScore)),
		attribute.String("grading.grade", sheet.Grade),
	)
	s.logger.Info().
		Uint("sheet_id", sheet.ID).
		Str("grade", sheet.Grade).
		Float64("total_score", derefFloat(sheet.TotalScore)).
		Bool("re_evaluation", isReEvaluation).
		Msg("answer sheet graded")

	return dto.NewAnswerSheetResponse(sheet), nil
}

// runAttempt executes the engine pipeline and fills the sheet's outcome
// fields in place. It does not persist; the caller owns the final write.
func (s *gradingService) runAttempt(ctx context.Context, sheet *models.AnswerSheet) error {
	exam := sheet.Exam
	cfg := resolveExamConfig(exam)

	sheetData, sheetMIME, err := s.fetcher.Fetch(ctx, sheet.FileURL)
	if err != nil {
		return fmt.Errorf("fetch answer sheet: %w", err)
	}

	var prompt string
	attachments := make([]ai.Attachment, 0, 2)

	if exam.HasRubric() {
		prompt = grading.BuildRubricPrompt(cfg, string(exam.Rubric))
	} else {
		if exam.QuestionPaperURL != "" {
			paperData, paperMIME, err := s.fetcher.Fetch(ctx, exam.QuestionPaperURL)
			if err != nil {
				return fmt.Errorf("fetch question paper: %w", err)
			}
			attachments = append(attachments, ai.Attachment{MIMEType: paperMIME, Data: paperData})
		}
		prompt = grading.BuildFallbackPrompt(cfg)
	}
	attachments = append(attachments, ai.Attachment{MIMEType: sheetMIME, Data: sheetData})

	raw, err := s.invoker.Invoke(ctx, prompt, attachments)
	if err != nil {
		return fmt.Errorf("model invocation: %w", err)
	}

	result := grading.Repair(raw)
	outcome := grading.Reconcile(result, cfg)

	now := s.now()
	sheet.Status = models.SheetStatusGraded
	sheet.ContentScore = &outcome.ContentScore
	sheet.LanguageScore = &outcome.LanguageScore
	sheet.TotalScore = &outcome.TotalScore
	sheet.Grade = outcome.Grade
	sheet.Remarks = strings.TrimSpace(s.sanitizer.Sanitize(result.Remarks))
	sheet.ExtractedRollNumber = outcome.RollNumber
	sheet.RollNumberConfidence = outcome.RollConfidence
	sheet.GradedAt = &now
	sheet.Issues = marshalJSON(result.Issues)
	sheet.SectionResults = marshalJSON(result.SectionResults)
	sheet.AIResponse = marshalJSON(result)

	return nil
}

// recordFailure transitions the sheet to error with the underlying reason.
// The failure itself is absorbed: callers receive the errored sheet, not the
// error, so batch runs continue past it.
func (s *gradingService) recordFailure(ctx context.Context, sheet models.AnswerSheet, cause error) (dto.AnswerSheetResponse, error) {
	sheet.Status = models.SheetStatusError
	sheet.ErrorMessage = fmt.Sprintf("grading failed: %v", cause)

	if err := s.sheets.Update(ctx, &sheet); err != nil {
		s.logger.Error().Err(err).Uint("sheet_id", sheet.ID).Msg("failed to persist error status")
		return dto.AnswerSheetResponse{}, err
	}

	s.logger.Warn().Err(cause).Uint("sheet_id", sheet.ID).Msg("grading attempt failed")
	return dto.NewAnswerSheetResponse(sheet), nil
}

func (s *gradingService) appendReEvaluationLog(ctx context.Context, sheet models.AnswerSheet, previous scoreSnapshot, requestedBy string) {
	entry := models.ReEvaluationLog{
		AnswerSheetID:         sheet.ID,
		PreviousContentScore:  previous.content,
		PreviousLanguageScore: previous.language,
		PreviousTotalScore:    previous.total,
		PreviousGrade:         previous.grade,
		NewContentScore:       derefFloat(sheet.ContentScore),
		NewLanguageScore:      derefFloat(sheet.LanguageScore),
		NewTotalScore:         derefFloat(sheet.TotalScore),
		NewGrade:              sheet.Grade,
		RequestedBy:           requestedBy,
	}

	if err := s.logs.Create(ctx, &entry); err != nil {
		s.logger.Warn().Err(err).Uint("sheet_id", sheet.ID).Msg("failed to persist re-evaluation log")
	}
}

// GradedEvent is the payload published after a successful grading attempt.
type GradedEvent struct {
	SheetID      uint      `json:"sheet_id"`
	ExamID       uint      `json:"exam_id"`
	TotalScore   float64   `json:"total_score"`
	Grade        string    `json:"grade"`
	ReEvaluation bool      `json:"re_evaluation"`
	GradedAt     time.Time `json:"graded_at"`
}

func (s *gradingService) publishGradedEvent(sheet models.AnswerSheet, reEvaluation bool) {
	if s.events == nil {
		return
	}

	event := GradedEvent{
		SheetID:      sheet.ID,
		ExamID:       sheet.ExamID,
		TotalScore:   derefFloat(sheet.TotalScore),
		Grade:        sheet.Grade,
		ReEvaluation: reEvaluation,
		GradedAt:     s.now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.events.Publish(s.eventsTopic, payload); err != nil {
		s.logger.Warn().Err(err).Uint("sheet_id", sheet.ID).Msg("failed to publish graded event")
	}
}

func (s *gradingService) ListReEvaluations(ctx context.Context, sheetID uint) ([]dto.ReEvaluationLogResponse, error) {
	if _, err := s.sheets.GetByID(ctx, sheetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnswerSheetNotFound
		}
		return nil, err
	}

	entries, err := s.logs.ListBySheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ReEvaluationLogResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewReEvaluationLogResponse(entry))
	}

	return responses, nil
}

// resolveExamConfig merges academic-level overrides with the exam's own
// grading settings into a complete configuration. Level weightages apply
// only when the exam declares none of its own.
func resolveExamConfig(exam models.Exam) grading.GradingConfig {
	content := exam.ContentWeightage
	language := exam.LanguageWeightage
	var levelMaxMarks *float64

	if exam.AcademicLevel != nil {
		levelMaxMarks = exam.AcademicLevel.MaxMarks
		if content == nil && language == nil {
			content = exam.AcademicLevel.ContentWeightage
			language = exam.AcademicLevel.LanguageWeightage
		}
	}

	return grading.ResolveConfig(content, language, levelMaxMarks, exam.MaxMarks, exam.Strictness, exam.GradingInstructions)
}

func marshalJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
