package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sentiment-backend/internal/pipeline"
	"sentiment-backend/internal/repository"

	"github.com/google/uuid"
)

// ClassifiedHandler serves the human review view over classified comments.
type ClassifiedHandler struct {
	pipelineRepo repository.PipelineRepository
	engine       *pipeline.Engine
	logger       *zap.Logger
}

func NewClassifiedHandler(pipelineRepo repository.PipelineRepository, engine *pipeline.Engine, logger *zap.Logger) *ClassifiedHandler {
	return &ClassifiedHandler{pipelineRepo: pipelineRepo, engine: engine, logger: logger}
}

type updateClassifiedRequest struct {
	FileID      string `json:"file_id" binding:"required"`
	IDComment   int    `json:"id_comment" binding:"required"`
	TypeComment *int   `json:"type_comment" binding:"required"`
}

// ListClassified returns classified comments for a batch, ordered by comment
// id, capped at the requested limit.
// GET /api/classified?file_id=&limit=
func (h *ClassifiedHandler) ListClassified(c *gin.Context) {
	batchID, err := uuid.Parse(c.Query("file_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid file_id"})
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "limit must be positive"})
			return
		}
	}

	items, err := h.pipelineRepo.ListClassified(batchID, limit)
	if err != nil {
		h.logger.Error("Failed to list classified comments", zap.Error(err), zap.String("batch_id", batchID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to list classified comments"})
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "no classified comments found for this batch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "items": items})
}

// UpdateClassified overwrites a predicted label after human review. The
// validation mirror stays label-synchronized; its validated flag is owned by
// the reviewer flow and left alone.
// PUT /api/classified
func (h *ClassifiedHandler) UpdateClassified(c *gin.Context) {
	var req updateClassifiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	batchID, err := uuid.Parse(req.FileID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid file_id"})
		return
	}

	item, err := h.engine.EditLabel(batchID, req.IDComment, *req.TypeComment)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "classified comment not found for this batch/id_comment"})
			return
		}
		h.logger.Error("Failed to update classified comment", zap.Error(err), zap.String("batch_id", batchID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to update classified comment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "item": item})
}
