package server

import (
	"net/http"

	"sentiment-backend/internal/config"
	"sentiment-backend/internal/evaluator"
	"sentiment-backend/internal/handler"
	"sentiment-backend/internal/middleware"
	"sentiment-backend/internal/notifier"
	"sentiment-backend/internal/pipeline"
	"sentiment-backend/internal/predictor"
	"sentiment-backend/internal/repository"
	"sentiment-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Server struct {
	router    *gin.Engine
	db        *sqlx.DB
	cfg       *config.Config
	predictor *predictor.Client
	notifier  *notifier.Notifier
	logger    *zap.Logger
	log       *logrus.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, predictorClient *predictor.Client, tgNotifier *notifier.Notifier, logger *zap.Logger, log *logrus.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router:    router,
		db:        db,
		cfg:       cfg,
		predictor: predictorClient,
		notifier:  tgNotifier,
		logger:    logger,
		log:       log,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	recordRepo := repository.NewRecordRepository(s.db, s.logger)
	pipelineRepo := repository.NewPipelineRepository(s.db, s.logger)
	analyticsRepo := repository.NewAnalyticsRepository(s.db, s.logger)
	authRepo := repository.NewAuthRepository(s.db, s.log)

	engine := pipeline.NewEngine(recordRepo, pipelineRepo, s.predictor, s.logger)
	eval := evaluator.NewEvaluator(pipelineRepo, s.logger)

	authService := service.NewAuthService(authRepo, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.log)

	batchHandler := handler.NewBatchHandler(recordRepo, pipelineRepo, engine, eval, s.notifier, s.cfg.Storage.UploadDir, s.logger)
	recordHandler := handler.NewRecordHandler(recordRepo, s.logger)
	classifiedHandler := handler.NewClassifiedHandler(pipelineRepo, engine, s.logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsRepo, s.logger)

	// Ping route for health check. Reports the model service state alongside
	// so an unhealthy predictor is visible before anyone uploads a batch.
	s.router.GET("/ping", func(c *gin.Context) {
		predictorStatus := "ok"
		if health, err := s.predictor.HealthCheck(c.Request.Context()); err != nil {
			s.logger.Warn("Model service health check failed", zap.Error(err))
			predictorStatus = "unreachable"
		} else if health.Status != "" {
			predictorStatus = health.Status
		}
		c.JSON(http.StatusOK, gin.H{
			"message":   "pong",
			"predictor": predictorStatus,
		})
	})

	// Authentication routes
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	api := s.router.Group("/api")
	{
		api.POST("/upload_csv", batchHandler.UploadCSV)
		api.POST("/process_batch", batchHandler.ProcessBatch)
		api.POST("/run_model", batchHandler.RunModel)
		api.GET("/export_csv", batchHandler.ExportCSV)
		api.POST("/upload_labels", batchHandler.UploadLabels)
		api.GET("/batch_summary", batchHandler.GetBatchSummary)
		api.GET("/batch_count", batchHandler.GetBatchCount)

		api.GET("/records", recordHandler.ListRecords)
		api.POST("/records", recordHandler.CreateRecord)

		api.GET("/classified", classifiedHandler.ListClassified)

		api.GET("/sentiment_share", analyticsHandler.GetSentimentShare)
		api.GET("/review_series", analyticsHandler.GetReviewSeries)
	}

	// Review mutations require an authenticated reviewer.
	authRequired := s.router.Group("/api")
	authRequired.Use(middleware.AuthMiddleware(s.logger))
	{
		authRequired.PUT("/classified", classifiedHandler.UpdateClassified)
		authRequired.DELETE("/records/:id", recordHandler.DeleteRecord)
		authRequired.POST("/auth/logout", authHandler.Logout)
	}
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
