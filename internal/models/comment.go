package models

import (
	"time"

	"github.com/google/uuid"
)

// Sentiment labels produced by the model service.
const (
	LabelNegative = 0
	LabelNeutral  = 1
	LabelPositive = 2
)

// RawComment represents a row in the 'raw_comments' table. Rows are written
// once at ingest and never updated.
type RawComment struct {
	CommentID int       `db:"id_comment" json:"id_comment"`
	BatchID   uuid.UUID `db:"id_batch" json:"id_batch"`
	Comment   string    `db:"comment" json:"comment"`
	Src       *string   `db:"src" json:"src,omitempty"`
	Time      time.Time `db:"time" json:"time"`
}

// CleanedComment represents a row in the 'cleaned_comments' table. The whole
// set for a batch is regenerated every time the Clean stage runs.
type CleanedComment struct {
	CommentID    int       `db:"id_comment" json:"id_comment"`
	BatchID      uuid.UUID `db:"id_batch" json:"id_batch"`
	CommentClean string    `db:"comment_clean" json:"comment_clean"`
	Src          *string   `db:"src" json:"src,omitempty"`
	Time         time.Time `db:"time" json:"time"`
}

// ClassifiedComment represents a row in the 'classified_comments' table.
// TypeComment holds the predicted sentiment label and is the only field a
// reviewer may overwrite.
type ClassifiedComment struct {
	CommentID    int       `db:"id_comment" json:"id_comment"`
	BatchID      uuid.UUID `db:"id_batch" json:"id_batch"`
	CommentClean string    `db:"comment_clean" json:"comment_clean"`
	Src          *string   `db:"src" json:"src,omitempty"`
	Time         time.Time `db:"time" json:"time"`
	TypeComment  int       `db:"type_comment" json:"type_comment"`
}

// ValidationComment mirrors ClassifiedComment in the 'validation_comments'
// table plus the reviewer-owned validation flag.
type ValidationComment struct {
	CommentID    int       `db:"id_comment" json:"id_comment"`
	BatchID      uuid.UUID `db:"id_batch" json:"id_batch"`
	CommentClean string    `db:"comment_clean" json:"comment_clean"`
	Src          *string   `db:"src" json:"src,omitempty"`
	Time         time.Time `db:"time" json:"time"`
	TypeComment  int       `db:"type_comment" json:"type_comment"`
	Validation   bool      `db:"validation" json:"validation"`
}

// BatchSummary represents the single 'batch_summary' row per batch. It exists
// iff Classify has run at least once for the batch.
type BatchSummary struct {
	BatchID  uuid.UUID `db:"id_batch" json:"id_batch"`
	Time     time.Time `db:"time" json:"time"`
	F1Metric float64   `db:"f1_metric" json:"f1_metric"`
}
