package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"sentiment-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecordStore implements repository.RecordRepository over a slice.
type fakeRecordStore struct {
	raw []*models.RawComment
}

func (f *fakeRecordStore) InsertRawComments(rows []*models.RawComment) error {
	f.raw = append(f.raw, rows...)
	return nil
}

func (f *fakeRecordStore) ListAllRawComments() ([]*models.RawComment, error) {
	return f.raw, nil
}

func (f *fakeRecordStore) ListRawComments(batchID uuid.UUID) ([]*models.RawComment, error) {
	var rows []*models.RawComment
	for _, r := range f.raw {
		if r.BatchID == batchID {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (f *fakeRecordStore) CountRawComments(batchID uuid.UUID) (int, error) {
	rows, _ := f.ListRawComments(batchID)
	return len(rows), nil
}

func (f *fakeRecordStore) NextCommentID(batchID uuid.UUID) (int, error) {
	maxID := 0
	for _, r := range f.raw {
		if r.BatchID == batchID && r.CommentID > maxID {
			maxID = r.CommentID
		}
	}
	return maxID + 1, nil
}

func (f *fakeRecordStore) DeleteRawComment(batchID uuid.UUID, commentID int) (bool, error) {
	for i, r := range f.raw {
		if r.BatchID == batchID && r.CommentID == commentID {
			f.raw = append(f.raw[:i], f.raw[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// fakePipelineStore implements repository.PipelineRepository, mirroring the
// transactional replace semantics in memory.
type fakePipelineStore struct {
	cleaned          map[uuid.UUID][]*models.CleanedComment
	classified       map[uuid.UUID][]*models.ClassifiedComment
	validation       map[uuid.UUID][]*models.ValidationComment
	summaries        map[uuid.UUID]*models.BatchSummary
	replaceCleanedN  int
	replaceClassifyN int
	failReplace      bool
}

func newFakePipelineStore() *fakePipelineStore {
	return &fakePipelineStore{
		cleaned:    make(map[uuid.UUID][]*models.CleanedComment),
		classified: make(map[uuid.UUID][]*models.ClassifiedComment),
		validation: make(map[uuid.UUID][]*models.ValidationComment),
		summaries:  make(map[uuid.UUID]*models.BatchSummary),
	}
}

func (f *fakePipelineStore) ReplaceCleaned(batchID uuid.UUID, rows []*models.CleanedComment) error {
	if f.failReplace {
		return errors.New("store unavailable")
	}
	f.replaceCleanedN++
	f.cleaned[batchID] = rows
	return nil
}

func (f *fakePipelineStore) ListCleaned(batchID uuid.UUID) ([]*models.CleanedComment, error) {
	return f.cleaned[batchID], nil
}

func (f *fakePipelineStore) ReplaceClassified(batchID uuid.UUID, classified []*models.ClassifiedComment, validation []*models.ValidationComment, runAt time.Time) error {
	if f.failReplace {
		return errors.New("store unavailable")
	}
	f.replaceClassifyN++
	f.classified[batchID] = classified
	f.validation[batchID] = validation
	f.summaries[batchID] = &models.BatchSummary{BatchID: batchID, Time: runAt, F1Metric: 0}
	return nil
}

func (f *fakePipelineStore) ListClassified(batchID uuid.UUID, limit int) ([]*models.ClassifiedComment, error) {
	rows := f.classified[batchID]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakePipelineStore) GetClassified(batchID uuid.UUID, commentID int) (*models.ClassifiedComment, error) {
	for _, r := range f.classified[batchID] {
		if r.CommentID == commentID {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakePipelineStore) UpdateLabel(batchID uuid.UUID, commentID int, label int) (bool, error) {
	updated := false
	for _, r := range f.classified[batchID] {
		if r.CommentID == commentID {
			r.TypeComment = label
			updated = true
		}
	}
	if !updated {
		return false, nil
	}
	for _, r := range f.validation[batchID] {
		if r.CommentID == commentID {
			r.TypeComment = label
		}
	}
	return true, nil
}

func (f *fakePipelineStore) GetSummary(batchID uuid.UUID) (*models.BatchSummary, error) {
	s, ok := f.summaries[batchID]
	if !ok {
		return nil, errors.New("batch summary not found")
	}
	return s, nil
}

func (f *fakePipelineStore) SetSummaryScore(batchID uuid.UUID, score float64) error {
	s, ok := f.summaries[batchID]
	if !ok {
		f.summaries[batchID] = &models.BatchSummary{BatchID: batchID, Time: time.Now(), F1Metric: score}
		return nil
	}
	s.F1Metric = score
	return nil
}

type fakePredictor struct {
	fn func(texts []string) ([]int, error)
}

func (f *fakePredictor) Predict(_ context.Context, texts []string) ([]int, error) {
	return f.fn(texts)
}

func seedBatch(records *fakeRecordStore, batchID uuid.UUID, comments ...string) {
	for i, text := range comments {
		records.raw = append(records.raw, &models.RawComment{
			CommentID: i + 1,
			BatchID:   batchID,
			Comment:   text,
			Time:      time.Now(),
		})
	}
}

func TestCleanEmptyBatch(t *testing.T) {
	records := &fakeRecordStore{}
	store := newFakePipelineStore()
	engine := NewEngine(records, store, &fakePredictor{}, zap.NewNop())

	err := engine.Clean(uuid.New())

	require.ErrorIs(t, err, ErrEmptyBatch)
	assert.Equal(t, 0, store.replaceCleanedN)
}

func TestCleanCopiesRawComments(t *testing.T) {
	batchID := uuid.New()
	records := &fakeRecordStore{}
	seedBatch(records, batchID, "first", "second", "third")
	store := newFakePipelineStore()
	engine := NewEngine(records, store, &fakePredictor{}, zap.NewNop())

	require.NoError(t, engine.Clean(batchID))

	cleaned := store.cleaned[batchID]
	require.Len(t, cleaned, 3)
	for i, row := range cleaned {
		assert.Equal(t, i+1, row.CommentID)
		assert.Equal(t, batchID, row.BatchID)
	}
	assert.Equal(t, "first", cleaned[0].CommentClean)
	assert.Equal(t, "third", cleaned[2].CommentClean)
}

func TestCleanIsIdempotent(t *testing.T) {
	batchID := uuid.New()
	records := &fakeRecordStore{}
	seedBatch(records, batchID, "a", "b")
	store := newFakePipelineStore()
	engine := NewEngine(records, store, &fakePredictor{}, zap.NewNop())

	require.NoError(t, engine.Clean(batchID))
	first := store.cleaned[batchID]

	require.NoError(t, engine.Clean(batchID))
	second := store.cleaned[batchID]

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].CommentID, second[i].CommentID)
		assert.Equal(t, first[i].CommentClean, second[i].CommentClean)
	}
	assert.Equal(t, 2, store.replaceCleanedN)
}

func TestCleanPropagatesStoreErrors(t *testing.T) {
	batchID := uuid.New()
	records := &fakeRecordStore{}
	seedBatch(records, batchID, "a")
	store := newFakePipelineStore()
	store.failReplace = true
	engine := NewEngine(records, store, &fakePredictor{}, zap.NewNop())

	err := engine.Clean(batchID)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyBatch)
}

func TestClassifyRequiresCleanStage(t *testing.T) {
	batchID := uuid.New()
	records := &fakeRecordStore{}
	seedBatch(records, batchID, "raw but not cleaned")
	store := newFakePipelineStore()
	engine := NewEngine(records, store, &fakePredictor{}, zap.NewNop())

	err := engine.Classify(context.Background(), batchID)

	require.ErrorIs(t, err, ErrNotCleaned)
}

func TestClassifyBuildsAllThreeProjections(t *testing.T) {
	batchID := uuid.New()
	records := &fakeRecordStore{}
	seedBatch(records, batchID, "awful", "fine", "great")
	store := newFakePipelineStore()
	predictor := &fakePredictor{fn: func(texts []string) ([]int, error) {
		return []int{0, 1, 2}, nil
	}}
	engine := NewEngine(records, store, predictor, zap.NewNop())

	require.NoError(t, engine.Clean(batchID))
	require.NoError(t, engine.Classify(context.Background(), batchID))

	classified := store.classified[batchID]
	validation := store.validation[batchID]
	require.Len(t, classified, 3)
	require.Len(t, validation, 3)

	for i := range classified {
		assert.Equal(t, classified[i].CommentID, validation[i].CommentID)
		assert.Equal(t, classified[i].TypeComment, validation[i].TypeComment)
		assert.False(t, validation[i].Validation)
	}
	assert.Equal(t, 0, classified[0].TypeComment)
	assert.Equal(t, 2, classified[2].TypeComment)

	summary, err := store.GetSummary(batchID)
	require.NoError(t, err)
	assert.Zero(t, summary.F1Metric)
}

func TestClassifyPredictorFailureLeavesStateUntouched(t *testing.T) {
	batchID := uuid.New()
	records := &fakeRecordStore{}
	seedBatch(records, batchID, "a", "b")
	store := newFakePipelineStore()
	predictor := &fakePredictor{fn: func(texts []string) ([]int, error) {
		return nil, errors.New("model service down")
	}}
	engine := NewEngine(records, store, predictor, zap.NewNop())

	require.NoError(t, engine.Clean(batchID))
	err := engine.Classify(context.Background(), batchID)

	require.Error(t, err)
	assert.Equal(t, 0, store.replaceClassifyN)
	assert.Empty(t, store.classified[batchID])
	assert.Empty(t, store.validation[batchID])
}

func TestClassifyCountMismatchAborts(t *testing.T) {
	batchID := uuid.New()
	records := &fakeRecordStore{}
	seedBatch(records, batchID, "a", "b", "c")
	store := newFakePipelineStore()
	predictor := &fakePredictor{fn: func(texts []string) ([]int, error) {
		return []int{1}, nil
	}}
	engine := NewEngine(records, store, predictor, zap.NewNop())

	require.NoError(t, engine.Clean(batchID))
	err := engine.Classify(context.Background(), batchID)

	require.ErrorIs(t, err, ErrPredictionCountMismatch)
	assert.Equal(t, 0, store.replaceClassifyN)
}

func TestClassifyReplacesPreviousRun(t *testing.T) {
	batchID := uuid.New()
	records := &fakeRecordStore{}
	seedBatch(records, batchID, "a", "b")
	store := newFakePipelineStore()
	label := 0
	predictor := &fakePredictor{fn: func(texts []string) ([]int, error) {
		labels := make([]int, len(texts))
		for i := range labels {
			labels[i] = label
		}
		return labels, nil
	}}
	engine := NewEngine(records, store, predictor, zap.NewNop())

	require.NoError(t, engine.Clean(batchID))
	require.NoError(t, engine.Classify(context.Background(), batchID))
	label = 2
	require.NoError(t, engine.Classify(context.Background(), batchID))

	classified := store.classified[batchID]
	require.Len(t, classified, 2)
	assert.Equal(t, 2, classified[0].TypeComment)
	assert.Equal(t, 2, classified[1].TypeComment)
	assert.Equal(t, 2, store.replaceClassifyN)
}

func TestEditLabelSyncsValidationRow(t *testing.T) {
	batchID := uuid.New()
	records := &fakeRecordStore{}
	seedBatch(records, batchID, "a", "b")
	store := newFakePipelineStore()
	predictor := &fakePredictor{fn: func(texts []string) ([]int, error) {
		return []int{1, 1}, nil
	}}
	engine := NewEngine(records, store, predictor, zap.NewNop())

	require.NoError(t, engine.Clean(batchID))
	require.NoError(t, engine.Classify(context.Background(), batchID))

	// Reviewer marks the second row validated out of band.
	store.validation[batchID][1].Validation = true

	item, err := engine.EditLabel(batchID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, item.TypeComment)

	assert.Equal(t, 0, store.classified[batchID][1].TypeComment)
	assert.Equal(t, 0, store.validation[batchID][1].TypeComment)
	assert.True(t, store.validation[batchID][1].Validation, "validated flag must survive a label edit")

	// Untouched row keeps its label.
	assert.Equal(t, 1, store.classified[batchID][0].TypeComment)
}

func TestEditLabelNotFound(t *testing.T) {
	store := newFakePipelineStore()
	engine := NewEngine(&fakeRecordStore{}, store, &fakePredictor{}, zap.NewNop())

	_, err := engine.EditLabel(uuid.New(), 42, 1)

	require.ErrorIs(t, err, ErrNotFound)
}
