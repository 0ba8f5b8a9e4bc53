package repository

import (
	"sentiment-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type RecordRepository interface {
	InsertRawComments(rows []*models.RawComment) error
	ListAllRawComments() ([]*models.RawComment, error)
	ListRawComments(batchID uuid.UUID) ([]*models.RawComment, error)
	CountRawComments(batchID uuid.UUID) (int, error)
	NextCommentID(batchID uuid.UUID) (int, error)
	DeleteRawComment(batchID uuid.UUID, commentID int) (bool, error)
}

type recordRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewRecordRepository(db *sqlx.DB, logger *zap.Logger) RecordRepository {
	return &recordRepository{db: db, logger: logger}
}

// InsertRawComments writes all rows in a single transaction so a rejected
// row does not leave a half-ingested batch behind.
func (r *recordRepository) InsertRawComments(rows []*models.RawComment) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO raw_comments (id_comment, id_batch, comment, src, time)
	          VALUES ($1, $2, $3, $4, $5)`
	for _, row := range rows {
		if _, err := tx.Exec(query, row.CommentID, row.BatchID, row.Comment, row.Src, row.Time); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *recordRepository) ListAllRawComments() ([]*models.RawComment, error) {
	var rows []*models.RawComment
	query := `SELECT id_comment, id_batch, comment, src, time FROM raw_comments ORDER BY id_comment`
	if err := r.db.Select(&rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *recordRepository) ListRawComments(batchID uuid.UUID) ([]*models.RawComment, error) {
	var rows []*models.RawComment
	query := `SELECT id_comment, id_batch, comment, src, time FROM raw_comments WHERE id_batch = $1 ORDER BY id_comment`
	if err := r.db.Select(&rows, query, batchID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *recordRepository) CountRawComments(batchID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM raw_comments WHERE id_batch = $1`
	if err := r.db.Get(&count, query, batchID); err != nil {
		return 0, err
	}
	return count, nil
}

// NextCommentID returns MAX(id_comment)+1 for the batch. Computed store-side
// so concurrent batches cannot hand out the same id.
func (r *recordRepository) NextCommentID(batchID uuid.UUID) (int, error) {
	var maxID int
	query := `SELECT COALESCE(MAX(id_comment), 0) FROM raw_comments WHERE id_batch = $1`
	if err := r.db.Get(&maxID, query, batchID); err != nil {
		return 0, err
	}
	return maxID + 1, nil
}

// DeleteRawComment removes one raw comment. Comment ids are only unique
// within a batch, so the delete must be scoped by both key columns.
func (r *recordRepository) DeleteRawComment(batchID uuid.UUID, commentID int) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM raw_comments WHERE id_batch = $1 AND id_comment = $2`, batchID, commentID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
