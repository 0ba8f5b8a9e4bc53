package pipeline

import "errors"

var (
	// ErrEmptyBatch means the batch has no raw comments to clean.
	ErrEmptyBatch = errors.New("no raw comments for this batch")
	// ErrNotCleaned means Classify was called before Clean produced rows.
	ErrNotCleaned = errors.New("no cleaned comments for this batch, run the clean stage first")
	// ErrNotFound means the referenced classified comment does not exist.
	ErrNotFound = errors.New("classified comment not found")
	// ErrPredictionCountMismatch means the predictor returned a label list
	// whose length does not match the cleaned set. Committing it would
	// misalign labels with comments, so the whole stage is aborted.
	ErrPredictionCountMismatch = errors.New("prediction count does not match comment count")
)
