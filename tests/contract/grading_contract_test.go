package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/papergrade/papergrade-api/internal/dto"
	"github.com/papergrade/papergrade-api/internal/handler"
)

type stubGradingService struct {
	response dto.AnswerSheetResponse
}

func (s stubGradingService) Grade(context.Context, uint, dto.GradeRequest) (dto.AnswerSheetResponse, error) {
	return s.response, nil
}

func (s stubGradingService) ListReEvaluations(context.Context, uint) ([]dto.ReEvaluationLogResponse, error) {
	return nil, nil
}

type stubBatchService struct{}

func (stubBatchService) GradeExam(context.Context, uint, string) (dto.BatchGradeSummary, error) {
	return dto.BatchGradeSummary{}, nil
}

type stubStatsService struct{}

func (stubStatsService) GetStats(context.Context, uint) (dto.ExamStatsResponse, error) {
	return dto.ExamStatsResponse{}, nil
}

func TestGradedSheetContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "graded_sheet.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	now := time.Now().UTC()
	roll := "10234"
	response := dto.AnswerSheetResponse{
		ID:                   7,
		ExamID:               1,
		FileURL:              "https://cdn.example.com/sheets/scan-7.png",
		Status:               "graded",
		ContentScore:         ptrFloat(45),
		LanguageScore:        ptrFloat(30),
		TotalScore:           ptrFloat(75),
		Grade:                "B+",
		Remarks:              "Well structured answers.",
		Issues:               []string{"page two slightly smudged"},
		ExtractedRollNumber:  &roll,
		RollNumberConfidence: 95,
		SectionResults:       json.RawMessage(`[{"section_name":"A","questions":[{"question_number":"1","marks_obtained":40}]}]`),
		AIResponse:           json.RawMessage(`{"grade":"B+"}`),
		GradedAt:             &now,
		CreatedAt:            now.Add(-time.Hour),
		UpdatedAt:            now,
		Exam:                 dto.ExamLite{ID: 1, Title: "Physics Midterm", Subject: "Physics"},
	}

	app := fiber.New()
	h := handler.NewGradingHandler(stubGradingService{response: response}, stubBatchService{}, stubStatsService{},
		validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	h.RegisterSheetRoutes(app.Group("/sheets"))

	req := httptest.NewRequest(http.MethodPost, "/sheets/7/grade", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func ptrFloat(v float64) *float64 {
	return &v
}
