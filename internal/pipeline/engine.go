package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sentiment-backend/internal/models"
	"sentiment-backend/internal/repository"

	"github.com/google/uuid"
)

// LabelPredictor returns one label per input text, in input order.
type LabelPredictor interface {
	Predict(ctx context.Context, texts []string) ([]int, error)
}

// Engine drives a batch through the processing stages. Each operation is
// scoped to one batch id; operations on different batches are independent
// and atomicity within a stage comes from the repository's transactions.
type Engine struct {
	recordRepo   repository.RecordRepository
	pipelineRepo repository.PipelineRepository
	predictor    LabelPredictor
	logger       *zap.Logger
}

// NewEngine creates a new pipeline engine.
func NewEngine(recordRepo repository.RecordRepository, pipelineRepo repository.PipelineRepository, predictor LabelPredictor, logger *zap.Logger) *Engine {
	return &Engine{
		recordRepo:   recordRepo,
		pipelineRepo: pipelineRepo,
		predictor:    predictor,
		logger:       logger,
	}
}

// Clean regenerates the cleaned set for the batch from its raw comments.
// Cleaning is currently a structural copy; a real normalization step would
// slot in here without changing the delete-then-reinsert contract.
func (e *Engine) Clean(batchID uuid.UUID) error {
	rawRows, err := e.recordRepo.ListRawComments(batchID)
	if err != nil {
		return fmt.Errorf("clean stage for batch %s: %w", batchID, err)
	}
	if len(rawRows) == 0 {
		return fmt.Errorf("clean stage for batch %s: %w", batchID, ErrEmptyBatch)
	}

	cleaned := make([]*models.CleanedComment, 0, len(rawRows))
	for _, row := range rawRows {
		cleaned = append(cleaned, &models.CleanedComment{
			CommentID:    row.CommentID,
			BatchID:      batchID,
			CommentClean: row.Comment,
			Src:          row.Src,
			Time:         row.Time,
		})
	}

	if err := e.pipelineRepo.ReplaceCleaned(batchID, cleaned); err != nil {
		return fmt.Errorf("clean stage for batch %s: %w", batchID, err)
	}

	e.logger.Info("Clean stage completed", zap.String("batch_id", batchID.String()), zap.Int("rows", len(cleaned)))
	return nil
}

// Classify sends the cleaned texts to the predictor and swaps in the
// classified and validation sets plus a reset summary. The predictor is
// called before anything is deleted, so a failed remote call leaves the
// previous classified state intact.
func (e *Engine) Classify(ctx context.Context, batchID uuid.UUID) error {
	cleanedRows, err := e.pipelineRepo.ListCleaned(batchID)
	if err != nil {
		return fmt.Errorf("classify stage for batch %s: %w", batchID, err)
	}
	if len(cleanedRows) == 0 {
		return fmt.Errorf("classify stage for batch %s: %w", batchID, ErrNotCleaned)
	}

	texts := make([]string, 0, len(cleanedRows))
	for _, row := range cleanedRows {
		texts = append(texts, row.CommentClean)
	}

	labels, err := e.predictor.Predict(ctx, texts)
	if err != nil {
		return fmt.Errorf("classify stage for batch %s: %w", batchID, err)
	}
	if len(labels) != len(cleanedRows) {
		return fmt.Errorf("classify stage for batch %s: %w: %d labels for %d comments",
			batchID, ErrPredictionCountMismatch, len(labels), len(cleanedRows))
	}

	classified := make([]*models.ClassifiedComment, 0, len(cleanedRows))
	validation := make([]*models.ValidationComment, 0, len(cleanedRows))
	for i, row := range cleanedRows {
		classified = append(classified, &models.ClassifiedComment{
			CommentID:    row.CommentID,
			BatchID:      batchID,
			CommentClean: row.CommentClean,
			Src:          row.Src,
			Time:         row.Time,
			TypeComment:  labels[i],
		})
		validation = append(validation, &models.ValidationComment{
			CommentID:    row.CommentID,
			BatchID:      batchID,
			CommentClean: row.CommentClean,
			Src:          row.Src,
			Time:         row.Time,
			TypeComment:  labels[i],
			Validation:   false,
		})
	}

	if err := e.pipelineRepo.ReplaceClassified(batchID, classified, validation, time.Now().UTC()); err != nil {
		return fmt.Errorf("classify stage for batch %s: %w", batchID, err)
	}

	e.logger.Info("Classify stage completed", zap.String("batch_id", batchID.String()), zap.Int("rows", len(classified)))
	return nil
}

// EditLabel overwrites the predicted label on one classified comment and its
// validation mirror. The reviewer's validation flag is not touched. This is
// the only mutation path that bypasses full-batch regeneration.
func (e *Engine) EditLabel(batchID uuid.UUID, commentID int, label int) (*models.ClassifiedComment, error) {
	updated, err := e.pipelineRepo.UpdateLabel(batchID, commentID, label)
	if err != nil {
		return nil, fmt.Errorf("edit label for batch %s comment %d: %w", batchID, commentID, err)
	}
	if !updated {
		return nil, fmt.Errorf("edit label for batch %s comment %d: %w", batchID, commentID, ErrNotFound)
	}

	row, err := e.pipelineRepo.GetClassified(batchID, commentID)
	if err != nil {
		return nil, fmt.Errorf("edit label for batch %s comment %d: %w", batchID, commentID, err)
	}

	e.logger.Info("Label edited",
		zap.String("batch_id", batchID.String()),
		zap.Int("id_comment", commentID),
		zap.Int("type_comment", label))
	return row, nil
}
