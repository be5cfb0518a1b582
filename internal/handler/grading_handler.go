package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/papergrade/papergrade-api/internal/dto"
	"github.com/papergrade/papergrade-api/internal/service"
	"github.com/papergrade/papergrade-api/internal/utils"
)

// GradingHandler manages grading endpoints.
type GradingHandler struct {
	grader    service.GradingService
	batch     service.BatchGradingService
	stats     service.ExamStatsService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGradingHandler builds a grading handler instance.
func NewGradingHandler(grader service.GradingService, batch service.BatchGradingService, stats service.ExamStatsService, validator *validator.Validate, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		grader:    grader,
		batch:     batch,
		stats:     stats,
		validator: validator,
		logger:    logger.With().Str("component", "grading_handler").Logger(),
	}
}

// RegisterSheetRoutes attaches per-sheet grading routes.
func (h *GradingHandler) RegisterSheetRoutes(router fiber.Router) {
	router.Post("/:id/grade", h.grade)
	router.Get("/:id/re-evaluations", h.listReEvaluations)
}

// RegisterExamRoutes attaches exam-level grading routes.
func (h *GradingHandler) RegisterExamRoutes(router fiber.Router) {
	router.Post("/:id/grade-all", h.gradeAll)
	router.Get("/:id/stats", h.examStats)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.GradeRequest{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if payload.RequestedBy == "" {
		payload.RequestedBy = userIDStringFromContext(c)
	}

	sheet, err := h.grader.Grade(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grading completed", sheet)
}

func (h *GradingHandler) gradeAll(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.batch.GradeExam(c.Context(), id, userIDStringFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "batch grading completed", summary)
}

func (h *GradingHandler) listReEvaluations(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	entries, err := h.grader.ListReEvaluations(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "re-evaluations retrieved", entries)
}

func (h *GradingHandler) examStats(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stats, err := h.stats.GetStats(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam stats retrieved", stats)
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAnswerSheetNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "answer sheet not found")
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam not found")
	case errors.Is(err, service.ErrSheetAlreadyProcessing):
		return utils.SendError(c, fiber.StatusConflict, "answer sheet is already being graded")
	case errors.Is(err, service.ErrReEvaluationRequired):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
