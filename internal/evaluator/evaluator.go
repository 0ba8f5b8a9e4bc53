package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"sentiment-backend/internal/repository"

	"github.com/google/uuid"
)

var (
	// ErrMalformedLabels means the uploaded file yielded no usable
	// id/label pairs.
	ErrMalformedLabels = errors.New("label file must contain an id column and a label column with integer values")
	// ErrNoOverlap means no uploaded id matches a classified comment.
	ErrNoOverlap = errors.New("no overlapping ids between uploaded labels and classified comments")
)

// Evaluator scores a batch's predicted labels against uploaded ground truth
// and records the result on the batch summary.
type Evaluator struct {
	pipelineRepo repository.PipelineRepository
	logger       *zap.Logger
}

func NewEvaluator(pipelineRepo repository.PipelineRepository, logger *zap.Logger) *Evaluator {
	return &Evaluator{pipelineRepo: pipelineRepo, logger: logger}
}

// Evaluate joins truth against the batch's classified labels by comment id
// intersection, computes macro-F1 and upserts it into the batch summary.
// Ids present on only one side are dropped from scoring; an empty
// intersection is ErrNoOverlap. Classified rows are never mutated.
func (e *Evaluator) Evaluate(batchID uuid.UUID, truth map[int]int) (float64, error) {
	if len(truth) == 0 {
		return 0, fmt.Errorf("evaluate batch %s: %w", batchID, ErrMalformedLabels)
	}

	classified, err := e.pipelineRepo.ListClassified(batchID, 0)
	if err != nil {
		return 0, fmt.Errorf("evaluate batch %s: %w", batchID, err)
	}

	preds := make(map[int]int, len(classified))
	for _, row := range classified {
		preds[row.CommentID] = row.TypeComment
	}

	var yTrue, yPred []int
	for commentID, trueLabel := range truth {
		if predLabel, ok := preds[commentID]; ok {
			yTrue = append(yTrue, trueLabel)
			yPred = append(yPred, predLabel)
		}
	}
	if len(yTrue) == 0 {
		return 0, fmt.Errorf("evaluate batch %s: %w", batchID, ErrNoOverlap)
	}

	score := MacroF1(yTrue, yPred)

	if err := e.pipelineRepo.SetSummaryScore(batchID, score); err != nil {
		return 0, fmt.Errorf("evaluate batch %s: %w", batchID, err)
	}

	e.logger.Info("Batch evaluated",
		zap.String("batch_id", batchID.String()),
		zap.Int("scored", len(yTrue)),
		zap.Float64("f1_macro", score))
	return score, nil
}

// MacroF1 computes the unweighted mean of per-class F1 scores over the union
// of classes appearing in either slice. Precision and recall fall back to 0
// when their denominator is 0.
func MacroF1(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}

	classSet := make(map[int]struct{})
	for _, v := range yTrue {
		classSet[v] = struct{}{}
	}
	for _, v := range yPred {
		classSet[v] = struct{}{}
	}
	classes := make([]int, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	var total float64
	for _, cls := range classes {
		var tp, fp, fn int
		for i := range yTrue {
			switch {
			case yTrue[i] == cls && yPred[i] == cls:
				tp++
			case yTrue[i] != cls && yPred[i] == cls:
				fp++
			case yTrue[i] == cls && yPred[i] != cls:
				fn++
			}
		}

		var precision, recall float64
		if tp+fp > 0 {
			precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			recall = float64(tp) / float64(tp+fn)
		}
		if precision+recall > 0 {
			total += 2 * precision * recall / (precision + recall)
		}
	}

	return total / float64(len(classes))
}
