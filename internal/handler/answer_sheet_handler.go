package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/papergrade/papergrade-api/internal/dto"
	"github.com/papergrade/papergrade-api/internal/service"
	"github.com/papergrade/papergrade-api/internal/utils"
)

// AnswerSheetHandler manages answer sheet endpoints.
type AnswerSheetHandler struct {
	service   service.AnswerSheetService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAnswerSheetHandler builds an answer sheet handler instance.
func NewAnswerSheetHandler(service service.AnswerSheetService, validator *validator.Validate, logger zerolog.Logger) *AnswerSheetHandler {
	return &AnswerSheetHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "answer_sheet_handler").Logger(),
	}
}

// RegisterExamRoutes attaches the upload/list routes nested under exams.
func (h *AnswerSheetHandler) RegisterExamRoutes(router fiber.Router) {
	router.Post("/:id/sheets", h.upload)
	router.Get("/:id/sheets", h.listByExam)
}

// RegisterSheetRoutes attaches the top-level sheet routes.
func (h *AnswerSheetHandler) RegisterSheetRoutes(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *AnswerSheetHandler) upload(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	sheet, err := h.service.Upload(c.Context(), examID, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "answer sheet uploaded", sheet)
}

func (h *AnswerSheetHandler) listByExam(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter := dto.AnswerSheetFilter{ExamID: &examID}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		filter.Status = &status
	}

	sheets, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer sheets retrieved", sheets)
}

func (h *AnswerSheetHandler) list(c *fiber.Ctx) error {
	filter := dto.AnswerSheetFilter{}
	if examID, err := parseQueryUint(c, "exam_id"); err == nil && examID != nil {
		filter.ExamID = examID
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		filter.Status = &status
	}

	sheets, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer sheets retrieved", sheets)
}

func (h *AnswerSheetHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	sheet, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer sheet retrieved", sheet)
}

func (h *AnswerSheetHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam not found")
	case errors.Is(err, service.ErrAnswerSheetNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "answer sheet not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case strings.Contains(err.Error(), "unsupported file type"):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
