package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sentiment-backend/internal/repository"

	"github.com/google/uuid"
)

type AnalyticsHandler interface {
	GetSentimentShare(c *gin.Context)
	GetReviewSeries(c *gin.Context)
}

type analyticsHandler struct {
	analyticsRepo repository.AnalyticsRepository
	logger        *zap.Logger
}

func NewAnalyticsHandler(analyticsRepo repository.AnalyticsRepository, logger *zap.Logger) AnalyticsHandler {
	return &analyticsHandler{analyticsRepo: analyticsRepo, logger: logger}
}

// GetSentimentShare handles GET /api/sentiment_share?file_id=
func (h *analyticsHandler) GetSentimentShare(c *gin.Context) {
	batchID, err := uuid.Parse(c.Query("file_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid file_id"})
		return
	}

	share, err := h.analyticsRepo.SentimentShare(batchID)
	if err != nil {
		h.logger.Error("Failed to compute sentiment share", zap.Error(err), zap.String("batch_id", batchID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to compute sentiment share"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "file_id": batchID.String(), "share": share})
}

// GetReviewSeries handles GET /api/review_series?file_id=&granularity=
func (h *analyticsHandler) GetReviewSeries(c *gin.Context) {
	batchID, err := uuid.Parse(c.Query("file_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid file_id"})
		return
	}

	granularity := c.DefaultQuery("granularity", "day")

	series, err := h.analyticsRepo.ReviewSeries(batchID, granularity)
	if err != nil {
		h.logger.Error("Failed to compute review series", zap.Error(err), zap.String("batch_id", batchID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to compute review series"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "file_id": batchID.String(), "series": series})
}
