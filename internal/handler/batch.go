package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sentiment-backend/internal/evaluator"
	"sentiment-backend/internal/ingest"
	"sentiment-backend/internal/pipeline"
	"sentiment-backend/internal/predictor"
	"sentiment-backend/internal/repository"

	"github.com/google/uuid"
)

// BatchNotifier is the subset of the notifier the batch handler uses.
type BatchNotifier interface {
	BatchClassified(batchID uuid.UUID, count int)
	EvaluationReady(batchID uuid.UUID, score float64)
}

// BatchHandler owns the batch lifecycle endpoints: CSV upload, the pipeline
// stage triggers, evaluation, export and the summary reads.
type BatchHandler struct {
	recordRepo   repository.RecordRepository
	pipelineRepo repository.PipelineRepository
	engine       *pipeline.Engine
	evaluator    *evaluator.Evaluator
	notifier     BatchNotifier
	uploadDir    string
	logger       *zap.Logger
}

func NewBatchHandler(
	recordRepo repository.RecordRepository,
	pipelineRepo repository.PipelineRepository,
	engine *pipeline.Engine,
	eval *evaluator.Evaluator,
	notifier BatchNotifier,
	uploadDir string,
	logger *zap.Logger,
) *BatchHandler {
	return &BatchHandler{
		recordRepo:   recordRepo,
		pipelineRepo: pipelineRepo,
		engine:       engine,
		evaluator:    eval,
		notifier:     notifier,
		uploadDir:    uploadDir,
		logger:       logger,
	}
}

type batchActionRequest struct {
	FileID string `json:"file_id" binding:"required"`
}

// UploadCSV ingests a comment CSV as a new batch and immediately runs the
// clean and classify stages so the batch is ready for export.
// POST /api/upload_csv
func (h *BatchHandler) UploadCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "failed to read uploaded file"})
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "failed to read uploaded file"})
		return
	}

	batchID := uuid.New()
	rows, err := ingest.ParseComments(payload, batchID, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	h.persistUpload(batchID, payload)

	if err := h.recordRepo.InsertRawComments(rows); err != nil {
		h.logger.Error("Failed to insert raw comments", zap.Error(err), zap.String("batch_id", batchID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to store uploaded comments"})
		return
	}

	if err := h.engine.Clean(batchID); err != nil {
		h.respondPipelineError(c, err)
		return
	}
	if err := h.engine.Classify(c.Request.Context(), batchID); err != nil {
		h.respondPipelineError(c, err)
		return
	}

	h.notifier.BatchClassified(batchID, len(rows))

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"file_id": batchID.String(),
		"message": "CSV file uploaded successfully.",
	})
}

// ProcessBatch re-runs the clean stage for a batch.
// POST /api/process_batch
func (h *BatchHandler) ProcessBatch(c *gin.Context) {
	batchID, ok := h.bindBatchAction(c)
	if !ok {
		return
	}

	if err := h.engine.Clean(batchID); err != nil {
		h.respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Batch processed."})
}

// RunModel re-runs the classify stage for a batch.
// POST /api/run_model
func (h *BatchHandler) RunModel(c *gin.Context) {
	batchID, ok := h.bindBatchAction(c)
	if !ok {
		return
	}

	if err := h.engine.Classify(c.Request.Context(), batchID); err != nil {
		h.respondPipelineError(c, err)
		return
	}

	count, err := h.recordRepo.CountRawComments(batchID)
	if err != nil {
		h.logger.Warn("Failed to count batch records for notification", zap.Error(err), zap.String("batch_id", batchID.String()))
	} else {
		h.notifier.BatchClassified(batchID, count)
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Model run completed."})
}

// ExportCSV streams the classified rows for a batch as a CSV download.
// GET /api/export_csv?file_id=
func (h *BatchHandler) ExportCSV(c *gin.Context) {
	batchID, ok := h.queryBatchID(c)
	if !ok {
		return
	}

	rows, err := h.pipelineRepo.ListClassified(batchID, 0)
	if err != nil {
		h.logger.Error("Failed to list classified comments", zap.Error(err), zap.String("batch_id", batchID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to export batch"})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "batch not found or not classified yet"})
		return
	}

	data, err := ingest.ExportClassified(rows)
	if err != nil {
		h.logger.Error("Failed to encode export CSV", zap.Error(err), zap.String("batch_id", batchID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to export batch"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", batchID.String()+".csv"))
	c.Data(http.StatusOK, "text/csv", data)
}

// UploadLabels scores the batch against uploaded ground truth labels.
// POST /api/upload_labels?file_id=
func (h *BatchHandler) UploadLabels(c *gin.Context) {
	batchID, ok := h.queryBatchID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "failed to read uploaded file"})
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "failed to read uploaded file"})
		return
	}

	truth, err := evaluator.ParseLabels(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	score, err := h.evaluator.Evaluate(batchID, truth)
	if err != nil {
		if errors.Is(err, evaluator.ErrNoOverlap) || errors.Is(err, evaluator.ErrMalformedLabels) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}
		h.logger.Error("Failed to evaluate labels", zap.Error(err), zap.String("batch_id", batchID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to evaluate labels"})
		return
	}

	h.notifier.EvaluationReady(batchID, score)

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"file_id":   batchID.String(),
		"f1_metric": score,
		"message":   "Labels evaluated.",
	})
}

// GetBatchSummary returns the summary row for a batch.
// GET /api/batch_summary?file_id=
func (h *BatchHandler) GetBatchSummary(c *gin.Context) {
	batchID, ok := h.queryBatchID(c)
	if !ok {
		return
	}

	summary, err := h.pipelineRepo.GetSummary(batchID)
	if err != nil {
		if errors.Is(err, repository.ErrNoSummary) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "batch summary not found"})
			return
		}
		h.logger.Error("Failed to get batch summary", zap.Error(err), zap.String("batch_id", batchID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to get batch summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "summary": summary})
}

// GetBatchCount returns the number of raw comments in a batch.
// GET /api/batch_count?file_id=
func (h *BatchHandler) GetBatchCount(c *gin.Context) {
	batchID, ok := h.queryBatchID(c)
	if !ok {
		return
	}

	total, err := h.recordRepo.CountRawComments(batchID)
	if err != nil {
		h.logger.Error("Failed to count batch records", zap.Error(err), zap.String("batch_id", batchID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to count batch records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "file_id": batchID.String(), "total": total})
}

func (h *BatchHandler) bindBatchAction(c *gin.Context) (uuid.UUID, bool) {
	var req batchActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return uuid.Nil, false
	}
	batchID, err := uuid.Parse(req.FileID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid file_id"})
		return uuid.Nil, false
	}
	return batchID, true
}

func (h *BatchHandler) queryBatchID(c *gin.Context) (uuid.UUID, bool) {
	batchID, err := uuid.Parse(c.Query("file_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid file_id"})
		return uuid.Nil, false
	}
	return batchID, true
}

// persistUpload keeps a copy of the original file on disk for audit and
// reprocessing. Failures are logged, not fatal.
func (h *BatchHandler) persistUpload(batchID uuid.UUID, payload []byte) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.Warn("Failed to create upload dir", zap.Error(err))
		return
	}
	path := filepath.Join(h.uploadDir, batchID.String()+".csv")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		h.logger.Warn("Failed to persist uploaded file", zap.Error(err), zap.String("path", path))
	}
}

func (h *BatchHandler) respondPipelineError(c *gin.Context, err error) {
	var transportErr *predictor.TransportError
	var protocolErr *predictor.ProtocolError

	switch {
	case errors.Is(err, pipeline.ErrEmptyBatch), errors.Is(err, pipeline.ErrNotCleaned):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
	case errors.As(err, &transportErr), errors.As(err, &protocolErr), errors.Is(err, pipeline.ErrPredictionCountMismatch):
		h.logger.Error("Model service failure", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": err.Error()})
	default:
		h.logger.Error("Pipeline stage failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "pipeline stage failed"})
	}
}
