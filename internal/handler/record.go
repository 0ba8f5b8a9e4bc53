package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sentiment-backend/internal/models"
	"sentiment-backend/internal/repository"

	"github.com/google/uuid"
)

// RecordHandler handles raw comment CRUD.
type RecordHandler struct {
	recordRepo repository.RecordRepository
	logger     *zap.Logger
}

func NewRecordHandler(recordRepo repository.RecordRepository, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{recordRepo: recordRepo, logger: logger}
}

type createRecordRequest struct {
	Comment string     `json:"comment" binding:"required"`
	Src     *string    `json:"src"`
	Time    *time.Time `json:"time"`
	IDBatch *string    `json:"id_batch"`
}

// ListRecords returns all raw comments.
// GET /api/records
func (h *RecordHandler) ListRecords(c *gin.Context) {
	records, err := h.recordRepo.ListAllRawComments()
	if err != nil {
		h.logger.Error("Failed to list raw comments", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to list records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "records": records})
}

// CreateRecord inserts a single raw comment. When no batch id is supplied a
// fresh one is minted; the comment id is the next free sequence number for
// the batch, read from the store so concurrent writers stay correct.
// POST /api/records
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	batchID := uuid.New()
	if req.IDBatch != nil {
		parsed, err := uuid.Parse(*req.IDBatch)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid id_batch"})
			return
		}
		batchID = parsed
	}

	commentID, err := h.recordRepo.NextCommentID(batchID)
	if err != nil {
		h.logger.Error("Failed to compute next comment id", zap.Error(err), zap.String("batch_id", batchID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to create record"})
		return
	}

	recordTime := time.Now().UTC()
	if req.Time != nil {
		recordTime = req.Time.UTC()
	}

	record := &models.RawComment{
		CommentID: commentID,
		BatchID:   batchID,
		Comment:   req.Comment,
		Src:       req.Src,
		Time:      recordTime,
	}

	if err := h.recordRepo.InsertRawComments([]*models.RawComment{record}); err != nil {
		h.logger.Error("Failed to insert raw comment", zap.Error(err), zap.String("batch_id", batchID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to create record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "record": record})
}

// DeleteRecord removes a raw comment by comment id. Comment ids repeat
// across batches, so the target batch must be named explicitly.
// DELETE /api/records/:id?file_id=
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	commentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid record id"})
		return
	}

	batchID, err := uuid.Parse(c.Query("file_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid file_id"})
		return
	}

	deleted, err := h.recordRepo.DeleteRawComment(batchID, commentID)
	if err != nil {
		h.logger.Error("Failed to delete raw comment", zap.Error(err), zap.String("batch_id", batchID.String()), zap.Int("id_comment", commentID))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to delete record"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "record not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Record deleted successfully."})
}
