package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/papergrade/papergrade-api/internal/dto"
	"github.com/papergrade/papergrade-api/internal/models"
	"github.com/papergrade/papergrade-api/internal/repository"
)

// ExamStatsService aggregates grading outcomes across an exam.
type ExamStatsService interface {
	GetStats(ctx context.Context, examID uint) (dto.ExamStatsResponse, error)
}

type examStatsService struct {
	exams    repository.ExamRepository
	sheets   repository.AnswerSheetRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewExamStatsService builds the stats aggregator. The redis client is
// optional; without it every call recomputes from the database.
func NewExamStatsService(exams repository.ExamRepository, sheets repository.AnswerSheetRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ExamStatsService {
	return &examStatsService{
		exams:    exams,
		sheets:   sheets,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "exam_stats_service").Logger(),
		now:      time.Now,
	}
}

func (s *examStatsService) GetStats(ctx context.Context, examID uint) (dto.ExamStatsResponse, error) {
	cacheKey := fmt.Sprintf("stats:exam:%d", examID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ExamStatsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("exam_id", examID).Msg("exam stats cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read stats cache")
		}
	}

	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamStatsResponse{}, ErrExamNotFound
		}
		return dto.ExamStatsResponse{}, err
	}

	sheets, err := s.sheets.List(ctx, repository.AnswerSheetFilter{ExamID: &examID})
	if err != nil {
		return dto.ExamStatsResponse{}, err
	}

	response := dto.ExamStatsResponse{
		ExamID:            examID,
		TotalSheets:       len(sheets),
		GradeDistribution: map[string]int{},
		GeneratedAt:       s.now().UTC(),
	}

	var sum float64
	for _, sheet := range sheets {
		switch {
		case sheet.IsGraded() && sheet.TotalScore != nil:
			total := *sheet.TotalScore
			sum += total
			if response.GradedSheets == 0 || total > response.HighestTotalScore {
				response.HighestTotalScore = total
			}
			if response.GradedSheets == 0 || total < response.LowestTotalScore {
				response.LowestTotalScore = total
			}
			response.GradedSheets++
			if sheet.Grade != "" {
				response.GradeDistribution[sheet.Grade]++
			}
		case sheet.Status == models.SheetStatusError:
			response.FailedSheets++
		default:
			response.PendingSheets++
		}
	}
	if response.GradedSheets > 0 {
		response.AverageTotalScore = sum / float64(response.GradedSheets)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to write stats cache")
			}
		}
	}

	return response, nil
}
