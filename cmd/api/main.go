package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/papergrade/papergrade-api/internal/config"
	"github.com/papergrade/papergrade-api/internal/database"
	"github.com/papergrade/papergrade-api/internal/handler"
	"github.com/papergrade/papergrade-api/internal/middleware"
	"github.com/papergrade/papergrade-api/internal/models"
	"github.com/papergrade/papergrade-api/internal/repository"
	"github.com/papergrade/papergrade-api/internal/router"
	"github.com/papergrade/papergrade-api/internal/service"
	"github.com/papergrade/papergrade-api/pkg/ai"
	cloud "github.com/papergrade/papergrade-api/pkg/cloudinary"
	"github.com/papergrade/papergrade-api/pkg/docfetch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.AcademicLevel{}, &models.Exam{}, &models.AnswerSheet{}, &models.ReEvaluationLog{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	invoker, err := buildInvoker(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create model invoker: %v", err)
	}

	fetcher := docfetch.New(cfg.DocFetchTimeout, logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	examRepo := repository.NewExamRepository(db)
	sheetRepo := repository.NewAnswerSheetRepository(db)
	logRepo := repository.NewReEvaluationLogRepository(db)

	examService := service.NewExamService(examRepo, uploader, validate, logger)
	sheetService := service.NewAnswerSheetService(sheetRepo, examRepo, uploader, validate, logger)
	gradingService := service.NewGradingService(sheetRepo, logRepo, invoker, fetcher, validate, natsConn, "", logger)
	batchService := service.NewBatchGradingService(examRepo, sheetRepo, gradingService, cfg.BatchSpacing, logger)
	statsService := service.NewExamStatsService(examRepo, sheetRepo, redisClient, cfg.StatsCacheTTL, logger)

	examHandler := handler.NewExamHandler(examService, validate, logger)
	sheetHandler := handler.NewAnswerSheetHandler(sheetService, validate, logger)
	gradingHandler := handler.NewGradingHandler(gradingService, batchService, statsService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    32 << 20,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		DB:                 db,
		ExamHandler:        examHandler,
		AnswerSheetHandler: sheetHandler,
		GradingHandler:     gradingHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// buildInvoker selects the inference provider. Gemini is the default and the
// only one with a multi-candidate fallback list.
func buildInvoker(cfg config.Config, logger zerolog.Logger) (ai.Invoker, error) {
	switch cfg.AIProvider {
	case "openai":
		return ai.NewOpenAIInvoker(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
	default:
		return ai.NewGeminiInvoker(ai.GeminiConfig{
			APIKey:     cfg.GeminiAPIKey,
			Candidates: cfg.GeminiCandidates,
			Logger:     logger,
		})
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
