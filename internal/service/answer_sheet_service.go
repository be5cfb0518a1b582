package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/papergrade/papergrade-api/internal/dto"
	"github.com/papergrade/papergrade-api/internal/models"
	"github.com/papergrade/papergrade-api/internal/repository"
)

// FileUploader stores uploaded documents and returns a public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// AnswerSheetService exposes answer sheet upload and retrieval.
type AnswerSheetService interface {
	Upload(ctx context.Context, examID uint, file *multipart.FileHeader) (dto.AnswerSheetResponse, error)
	List(ctx context.Context, filter dto.AnswerSheetFilter) ([]dto.AnswerSheetResponse, error)
	Get(ctx context.Context, id uint) (dto.AnswerSheetResponse, error)
}

type answerSheetService struct {
	sheets    repository.AnswerSheetRepository
	exams     repository.ExamRepository
	uploader  FileUploader
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAnswerSheetService constructs the answer sheet service.
func NewAnswerSheetService(sheets repository.AnswerSheetRepository, exams repository.ExamRepository, uploader FileUploader, validate *validator.Validate, logger zerolog.Logger) AnswerSheetService {
	return &answerSheetService{
		sheets:    sheets,
		exams:     exams,
		uploader:  uploader,
		validator: validate,
		logger:    logger.With().Str("component", "answer_sheet_service").Logger(),
	}
}

// Upload validates and stores a scanned sheet, creating a pending record
// ready for grading.
func (s *answerSheetService) Upload(ctx context.Context, examID uint, file *multipart.FileHeader) (dto.AnswerSheetResponse, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerSheetResponse{}, ErrExamNotFound
		}
		return dto.AnswerSheetResponse{}, err
	}

	if err := validateScanType(file); err != nil {
		return dto.AnswerSheetResponse{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return dto.AnswerSheetResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	url, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.AnswerSheetResponse{}, fmt.Errorf("failed to store answer sheet: %w", err)
	}

	sheet := models.AnswerSheet{
		ExamID:  examID,
		FileURL: url,
		Status:  models.SheetStatusPending,
	}
	if err := s.sheets.Create(ctx, &sheet); err != nil {
		return dto.AnswerSheetResponse{}, err
	}

	created, err := s.sheets.GetByID(ctx, sheet.ID)
	if err != nil {
		return dto.AnswerSheetResponse{}, err
	}

	s.logger.Info().Uint("sheet_id", created.ID).Uint("exam_id", examID).Msg("answer sheet uploaded")

	return dto.NewAnswerSheetResponse(created), nil
}

func (s *answerSheetService) List(ctx context.Context, filter dto.AnswerSheetFilter) ([]dto.AnswerSheetResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.AnswerSheetFilter{ExamID: filter.ExamID}
	if filter.Status != nil {
		status := models.SheetStatus(*filter.Status)
		repoFilter.Status = &status
	}

	sheets, err := s.sheets.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AnswerSheetResponse, 0, len(sheets))
	for _, sheet := range sheets {
		responses = append(responses, dto.NewAnswerSheetResponse(sheet))
	}

	return responses, nil
}

func (s *answerSheetService) Get(ctx context.Context, id uint) (dto.AnswerSheetResponse, error) {
	sheet, err := s.sheets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerSheetResponse{}, ErrAnswerSheetNotFound
		}
		return dto.AnswerSheetResponse{}, err
	}

	return dto.NewAnswerSheetResponse(sheet), nil
}

// validateScanType accepts only document formats the inference backends can
// ingest.
func validateScanType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{"application/pdf", "image/png", "image/jpeg", "image/webp"}
	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}

	return fmt.Errorf("unsupported file type: %s", mime.String())
}
