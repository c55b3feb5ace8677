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
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradesync-go-api/internal/config"
	"github.com/noah-isme/gradesync-go-api/internal/database"
	"github.com/noah-isme/gradesync-go-api/internal/handler"
	"github.com/noah-isme/gradesync-go-api/internal/middleware"
	"github.com/noah-isme/gradesync-go-api/internal/models"
	"github.com/noah-isme/gradesync-go-api/internal/realtime"
	"github.com/noah-isme/gradesync-go-api/internal/repository"
	"github.com/noah-isme/gradesync-go-api/internal/router"
	"github.com/noah-isme/gradesync-go-api/internal/service"
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

	if err := db.AutoMigrate(&models.Submission{}, &models.Criterion{}, &models.Grade{}, &models.Violation{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	criterionRepo := repository.NewCriterionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	violationRepo := repository.NewViolationRepository(db)

	policy := service.GradingPolicy{
		PassingScore:    cfg.PassingScore,
		EscalationScore: cfg.EscalationScore,
	}

	manager := realtime.NewManager(realtime.Options{
		Redis:       redisClient,
		Channel:     cfg.RealtimeChannel,
		NATS:        natsConn,
		Subject:     cfg.RealtimeSubject,
		MaxAttempts: cfg.RealtimeMaxAttempts,
		Logger:      logger,
	})

	recalculator := service.NewStoreRecalculator(gradeRepo, violationRepo, policy)
	escalationService := service.NewEscalationService(submissionRepo, policy, validate, logger)
	gradingService := service.NewGradingService(submissionRepo, criterionRepo, gradeRepo, recalculator, escalationService, manager, logger)
	submissionService := service.NewSubmissionService(submissionRepo, violationRepo, recalculator, manager, validate, logger)

	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	gradeHandler := handler.NewGradeHandler(gradingService, logger)
	escalationHandler := handler.NewEscalationHandler(escalationService, logger)
	similarityHandler := handler.NewSimilarityHandler(validate, logger)

	// The reconciled dashboard is only mounted when this instance is pinned
	// to an examiner scope; the API endpoints work either way.
	var dashboardHandler *handler.DashboardHandler
	var reconciler *service.Reconciler
	if cfg.DashboardExamID > 0 && cfg.DashboardExaminerID > 0 {
		scope := service.Scope{ExamID: cfg.DashboardExamID, ExaminerID: cfg.DashboardExaminerID}
		reconciler = service.NewReconciler(scope, manager, submissionRepo, logger)
		if err := reconciler.Start(context.Background()); err != nil {
			log.Fatalf("failed to start reconciler: %v", err)
		}
		search := service.NewSubmissionSearch(reconciler, 0)
		dashboardHandler = handler.NewDashboardHandler(reconciler, search, logger)
	} else {
		manager.Start(context.Background())
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: submissionHandler,
		GradeHandler:      gradeHandler,
		EscalationHandler: escalationHandler,
		SimilarityHandler: similarityHandler,
		DashboardHandler:  dashboardHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, reconciler, manager)
}

func waitForShutdown(app *fiber.App, reconciler *service.Reconciler, manager *realtime.Manager) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	if reconciler != nil {
		reconciler.Stop()
	} else {
		manager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
