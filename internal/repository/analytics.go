package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SentimentShare is the fraction of classified comments per label.
type SentimentShare struct {
	TypeComment int     `db:"type_comment" json:"type_comment"`
	Count       int     `db:"count" json:"count"`
	Share       float64 `json:"share"`
}

// ReviewPoint is one time bucket in the review series.
type ReviewPoint struct {
	Bucket      time.Time `db:"bucket" json:"bucket"`
	TypeComment int       `db:"type_comment" json:"type_comment"`
	Count       int       `db:"count" json:"count"`
}

// AnalyticsRepository serves read-only aggregations over classified rows for
// the dashboard. It never writes.
type AnalyticsRepository interface {
	SentimentShare(batchID uuid.UUID) ([]*SentimentShare, error)
	ReviewSeries(batchID uuid.UUID, granularity string) ([]*ReviewPoint, error)
}

type analyticsRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAnalyticsRepository(db *sqlx.DB, logger *zap.Logger) AnalyticsRepository {
	return &analyticsRepository{db: db, logger: logger}
}

func (r *analyticsRepository) SentimentShare(batchID uuid.UUID) ([]*SentimentShare, error) {
	var shares []*SentimentShare
	query := `SELECT type_comment, COUNT(*) AS count
	          FROM classified_comments
	          WHERE id_batch = $1
	          GROUP BY type_comment
	          ORDER BY type_comment`
	if err := r.db.Select(&shares, query, batchID); err != nil {
		return nil, err
	}

	total := 0
	for _, s := range shares {
		total += s.Count
	}
	if total > 0 {
		for _, s := range shares {
			s.Share = float64(s.Count) / float64(total)
		}
	}
	return shares, nil
}

func (r *analyticsRepository) ReviewSeries(batchID uuid.UUID, granularity string) ([]*ReviewPoint, error) {
	switch granularity {
	case "day", "week", "month":
	default:
		granularity = "day"
	}

	var points []*ReviewPoint
	// granularity is validated above, never caller-controlled SQL.
	query := `SELECT date_trunc('` + granularity + `', time) AS bucket, type_comment, COUNT(*) AS count
	          FROM classified_comments
	          WHERE id_batch = $1
	          GROUP BY bucket, type_comment
	          ORDER BY bucket, type_comment`
	if err := r.db.Select(&points, query, batchID); err != nil {
		return nil, err
	}
	return points, nil
}
