package repository

import (
	"database/sql"
	"errors"
	"time"

	"sentiment-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrNoSummary is returned when a batch has no summary row yet.
var ErrNoSummary = errors.New("batch summary not found")

// PipelineRepository persists the derived record sets produced by the
// pipeline stages. Each Replace* call is one transaction: the old rows for
// the batch are deleted and the new set inserted as a unit, so a failure
// never leaves a partially regenerated batch.
type PipelineRepository interface {
	ReplaceCleaned(batchID uuid.UUID, rows []*models.CleanedComment) error
	ListCleaned(batchID uuid.UUID) ([]*models.CleanedComment, error)
	ReplaceClassified(batchID uuid.UUID, classified []*models.ClassifiedComment, validation []*models.ValidationComment, runAt time.Time) error
	ListClassified(batchID uuid.UUID, limit int) ([]*models.ClassifiedComment, error)
	GetClassified(batchID uuid.UUID, commentID int) (*models.ClassifiedComment, error)
	UpdateLabel(batchID uuid.UUID, commentID int, label int) (bool, error)
	GetSummary(batchID uuid.UUID) (*models.BatchSummary, error)
	SetSummaryScore(batchID uuid.UUID, score float64) error
}

type pipelineRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPipelineRepository(db *sqlx.DB, logger *zap.Logger) PipelineRepository {
	return &pipelineRepository{db: db, logger: logger}
}

func (r *pipelineRepository) ReplaceCleaned(batchID uuid.UUID, rows []*models.CleanedComment) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cleaned_comments WHERE id_batch = $1`, batchID); err != nil {
		return err
	}

	query := `INSERT INTO cleaned_comments (id_comment, id_batch, comment_clean, src, time)
	          VALUES ($1, $2, $3, $4, $5)`
	for _, row := range rows {
		if _, err := tx.Exec(query, row.CommentID, row.BatchID, row.CommentClean, row.Src, row.Time); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *pipelineRepository) ListCleaned(batchID uuid.UUID) ([]*models.CleanedComment, error) {
	var rows []*models.CleanedComment
	query := `SELECT id_comment, id_batch, comment_clean, src, time FROM cleaned_comments WHERE id_batch = $1 ORDER BY id_comment`
	if err := r.db.Select(&rows, query, batchID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplaceClassified swaps in the freshly classified and validation rows and
// resets the batch summary, all in one transaction.
func (r *pipelineRepository) ReplaceClassified(batchID uuid.UUID, classified []*models.ClassifiedComment, validation []*models.ValidationComment, runAt time.Time) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM classified_comments WHERE id_batch = $1`, batchID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM validation_comments WHERE id_batch = $1`, batchID); err != nil {
		return err
	}

	classifiedQuery := `INSERT INTO classified_comments (id_comment, id_batch, comment_clean, src, time, type_comment)
	                    VALUES ($1, $2, $3, $4, $5, $6)`
	for _, row := range classified {
		if _, err := tx.Exec(classifiedQuery, row.CommentID, row.BatchID, row.CommentClean, row.Src, row.Time, row.TypeComment); err != nil {
			return err
		}
	}

	validationQuery := `INSERT INTO validation_comments (id_comment, id_batch, comment_clean, src, time, type_comment, validation)
	                    VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, row := range validation {
		if _, err := tx.Exec(validationQuery, row.CommentID, row.BatchID, row.CommentClean, row.Src, row.Time, row.TypeComment, row.Validation); err != nil {
			return err
		}
	}

	summaryQuery := `INSERT INTO batch_summary (id_batch, time, f1_metric) VALUES ($1, $2, 0)
	                 ON CONFLICT (id_batch) DO UPDATE SET time = EXCLUDED.time, f1_metric = 0`
	if _, err := tx.Exec(summaryQuery, batchID, runAt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *pipelineRepository) ListClassified(batchID uuid.UUID, limit int) ([]*models.ClassifiedComment, error) {
	var rows []*models.ClassifiedComment
	query := `SELECT id_comment, id_batch, comment_clean, src, time, type_comment FROM classified_comments WHERE id_batch = $1 ORDER BY id_comment`
	if limit > 0 {
		query += ` LIMIT $2`
		if err := r.db.Select(&rows, query, batchID, limit); err != nil {
			return nil, err
		}
		return rows, nil
	}
	if err := r.db.Select(&rows, query, batchID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *pipelineRepository) GetClassified(batchID uuid.UUID, commentID int) (*models.ClassifiedComment, error) {
	var row models.ClassifiedComment
	query := `SELECT id_comment, id_batch, comment_clean, src, time, type_comment FROM classified_comments WHERE id_batch = $1 AND id_comment = $2`
	err := r.db.Get(&row, query, batchID, commentID)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateLabel overwrites the predicted label on the classified row and keeps
// the validation row in sync. The validation flag itself is reviewer-owned
// and never touched here. Returns false when no classified row exists.
func (r *pipelineRepository) UpdateLabel(batchID uuid.UUID, commentID int, label int) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE classified_comments SET type_comment = $1 WHERE id_batch = $2 AND id_comment = $3`, label, batchID, commentID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.Exec(`UPDATE validation_comments SET type_comment = $1 WHERE id_batch = $2 AND id_comment = $3`, label, batchID, commentID); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

func (r *pipelineRepository) GetSummary(batchID uuid.UUID) (*models.BatchSummary, error) {
	var summary models.BatchSummary
	query := `SELECT id_batch, time, f1_metric FROM batch_summary WHERE id_batch = $1`
	err := r.db.Get(&summary, query, batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSummary
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// SetSummaryScore overwrites only the f1 metric, creating the row if the
// batch has none yet.
func (r *pipelineRepository) SetSummaryScore(batchID uuid.UUID, score float64) error {
	query := `INSERT INTO batch_summary (id_batch, time, f1_metric) VALUES ($1, NOW(), $2)
	          ON CONFLICT (id_batch) DO UPDATE SET f1_metric = EXCLUDED.f1_metric`
	_, err := r.db.Exec(query, batchID, score)
	return err
}
