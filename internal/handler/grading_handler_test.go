package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/papergrade/papergrade-api/internal/dto"
	"github.com/papergrade/papergrade-api/internal/service"
)

type stubGradingService struct {
	response    dto.AnswerSheetResponse
	logs        []dto.ReEvaluationLogResponse
	err         error
	lastSheetID uint
	lastPayload dto.GradeRequest
}

func (s *stubGradingService) Grade(_ context.Context, sheetID uint, payload dto.GradeRequest) (dto.AnswerSheetResponse, error) {
	s.lastSheetID = sheetID
	s.lastPayload = payload
	return s.response, s.err
}

func (s *stubGradingService) ListReEvaluations(_ context.Context, sheetID uint) ([]dto.ReEvaluationLogResponse, error) {
	s.lastSheetID = sheetID
	return s.logs, s.err
}

type stubBatchService struct {
	summary dto.BatchGradeSummary
	err     error
}

func (s *stubBatchService) GradeExam(context.Context, uint, string) (dto.BatchGradeSummary, error) {
	return s.summary, s.err
}

type stubStatsService struct {
	stats dto.ExamStatsResponse
	err   error
}

func (s *stubStatsService) GetStats(context.Context, uint) (dto.ExamStatsResponse, error) {
	return s.stats, s.err
}

func newGradingApp(grader *stubGradingService, batch *stubBatchService, stats *stubStatsService) *fiber.App {
	app := fiber.New()
	h := NewGradingHandler(grader, batch, stats, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	h.RegisterSheetRoutes(app.Group("/sheets"))
	h.RegisterExamRoutes(app.Group("/exams"))
	return app
}

func TestGradeEndpointPassesPayload(t *testing.T) {
	grader := &stubGradingService{response: dto.AnswerSheetResponse{ID: 7, Status: "graded", Grade: "B+"}}
	app := newGradingApp(grader, &stubBatchService{}, &stubStatsService{})

	body, _ := json.Marshal(dto.GradeRequest{ReEvaluate: true, RequestedBy: "examiner-9"})
	req := httptest.NewRequest(http.MethodPost, "/sheets/7/grade", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, uint(7), grader.lastSheetID)
	require.True(t, grader.lastPayload.ReEvaluate)
	require.Equal(t, "examiner-9", grader.lastPayload.RequestedBy)

	var payload struct {
		Success bool                    `json:"success"`
		Data    dto.AnswerSheetResponse `json:"data"`
	}
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.True(t, payload.Success)
	require.Equal(t, "B+", payload.Data.Grade)
}

func TestGradeEndpointRejectsBadSheetID(t *testing.T) {
	app := newGradingApp(&stubGradingService{}, &stubBatchService{}, &stubStatsService{})

	req := httptest.NewRequest(http.MethodPost, "/sheets/not-a-number/grade", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGradeEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "sheet missing", err: service.ErrAnswerSheetNotFound, want: fiber.StatusNotFound},
		{name: "already processing", err: service.ErrSheetAlreadyProcessing, want: fiber.StatusConflict},
		{name: "re-evaluation required", err: service.ErrReEvaluationRequired, want: fiber.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newGradingApp(&stubGradingService{err: tc.err}, &stubBatchService{}, &stubStatsService{})

			req := httptest.NewRequest(http.MethodPost, "/sheets/7/grade", nil)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestGradeAllEndpointReturnsSummary(t *testing.T) {
	batch := &stubBatchService{summary: dto.BatchGradeSummary{ExamID: 1, Attempted: 3, Graded: 2, Failed: 1}}
	app := newGradingApp(&stubGradingService{}, batch, &stubStatsService{})

	req := httptest.NewRequest(http.MethodPost, "/exams/1/grade-all", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.BatchGradeSummary `json:"data"`
	}
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, 3, payload.Data.Attempted)
	require.Equal(t, 2, payload.Data.Graded)
}

func TestGradeAllEndpointUnknownExam(t *testing.T) {
	app := newGradingApp(&stubGradingService{}, &stubBatchService{err: service.ErrExamNotFound}, &stubStatsService{})

	req := httptest.NewRequest(http.MethodPost, "/exams/404/grade-all", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestReEvaluationsEndpoint(t *testing.T) {
	grader := &stubGradingService{logs: []dto.ReEvaluationLogResponse{{ID: 1, AnswerSheetID: 7, NewGrade: "B+"}}}
	app := newGradingApp(grader, &stubBatchService{}, &stubStatsService{})

	req := httptest.NewRequest(http.MethodGet, "/sheets/7/re-evaluations", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(7), grader.lastSheetID)
}

func TestExamStatsEndpoint(t *testing.T) {
	stats := &stubStatsService{stats: dto.ExamStatsResponse{ExamID: 1, TotalSheets: 5, GradedSheets: 4}}
	app := newGradingApp(&stubGradingService{}, &stubBatchService{}, stats)

	req := httptest.NewRequest(http.MethodGet, "/exams/1/stats", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.ExamStatsResponse `json:"data"`
	}
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, 5, payload.Data.TotalSheets)
}
