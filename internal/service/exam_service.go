package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/papergrade/papergrade-api/internal/dto"
	"github.com/papergrade/papergrade-api/internal/models"
	"github.com/papergrade/papergrade-api/internal/repository"
)

// ExamService exposes exam management operations.
type ExamService interface {
	Create(ctx context.Context, payload dto.ExamCreateRequest) (dto.ExamResponse, error)
	Update(ctx context.Context, id uint, payload dto.ExamUpdateRequest) (dto.ExamResponse, error)
	List(ctx context.Context) ([]dto.ExamResponse, error)
	Get(ctx context.Context, id uint) (dto.ExamResponse, error)
	AttachQuestionPaper(ctx context.Context, id uint, file *multipart.FileHeader) (dto.ExamResponse, error)
}

type examService struct {
	exams     repository.ExamRepository
	uploader  FileUploader
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewExamService constructs the exam service.
func NewExamService(exams repository.ExamRepository, uploader FileUploader, validate *validator.Validate, logger zerolog.Logger) ExamService {
	return &examService{
		exams:     exams,
		uploader:  uploader,
		validator: validate,
		logger:    logger.With().Str("component", "exam_service").Logger(),
	}
}

func (s *examService) Create(ctx context.Context, payload dto.ExamCreateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	exam := models.Exam{
		Title:               payload.Title,
		Subject:             payload.Subject,
		Rubric:              datatypes.JSON(payload.Rubric),
		MaxMarks:            payload.MaxMarks,
		ContentWeightage:    payload.ContentWeightage,
		LanguageWeightage:   payload.LanguageWeightage,
		Strictness:          payload.Strictness,
		GradingInstructions: payload.GradingInstructions,
		AcademicLevelID:     payload.AcademicLevelID,
	}

	if err := s.exams.Create(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	created, err := s.exams.GetByID(ctx, exam.ID)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	s.logger.Info().Uint("exam_id", created.ID).Str("title", created.Title).Msg("exam created")

	return dto.NewExamResponse(created), nil
}

func (s *examService) Update(ctx context.Context, id uint, payload dto.ExamUpdateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}

	if payload.Title != nil {
		exam.Title = *payload.Title
	}
	if payload.Subject != nil {
		exam.Subject = *payload.Subject
	}
	if len(payload.Rubric) > 0 {
		exam.Rubric = datatypes.JSON(payload.Rubric)
	}
	if payload.MaxMarks != nil {
		exam.MaxMarks = payload.MaxMarks
	}
	if payload.ContentWeightage != nil {
		exam.ContentWeightage = payload.ContentWeightage
	}
	if payload.LanguageWeightage != nil {
		exam.LanguageWeightage = payload.LanguageWeightage
	}
	if payload.Strictness != nil {
		exam.Strictness = payload.Strictness
	}
	if payload.GradingInstructions != nil {
		exam.GradingInstructions = *payload.GradingInstructions
	}
	if payload.AcademicLevelID != nil {
		exam.AcademicLevelID = payload.AcademicLevelID
	}

	if err := s.exams.Update(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	updated, err := s.exams.GetByID(ctx, exam.ID)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	return dto.NewExamResponse(updated), nil
}

func (s *examService) List(ctx context.Context) ([]dto.ExamResponse, error) {
	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ExamResponse, 0, len(exams))
	for _, exam := range exams {
		responses = append(responses, dto.NewExamResponse(exam))
	}

	return responses, nil
}

func (s *examService) Get(ctx context.Context, id uint) (dto.ExamResponse, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}

	return dto.NewExamResponse(exam), nil
}

// AttachQuestionPaper uploads the question paper scan used by the fallback
// prompt when no extracted rubric exists.
func (s *examService) AttachQuestionPaper(ctx context.Context, id uint, file *multipart.FileHeader) (dto.ExamResponse, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}

	if err := validateScanType(file); err != nil {
		return dto.ExamResponse{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return dto.ExamResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	url, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.ExamResponse{}, fmt.Errorf("failed to store question paper: %w", err)
	}

	exam.QuestionPaperURL = url
	if err := s.exams.Update(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	s.logger.Info().Uint("exam_id", exam.ID).Msg("question paper attached")

	return dto.NewExamResponse(exam), nil
}
