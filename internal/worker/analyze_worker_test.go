package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomanager/api/internal/ai"
	"github.com/photomanager/api/internal/model"
	"github.com/photomanager/api/internal/store"
)

type fakeAnalyzer struct {
	result *model.AnalysisResult
	err    error
}

func (f *fakeAnalyzer) Run(ctx context.Context, imagePath, providerID, lang string) (*model.AnalysisResult, error) {
	return f.result, f.err
}

type fakeTracker struct {
	progress  []progressUpdate
	completed []string
	failed    map[string]string
	released  []int64
	lastCtx   context.Context
}

type progressUpdate struct {
	jobID    string
	progress int
	step     string
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{failed: make(map[string]string)}
}

func (f *fakeTracker) UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error {
	f.lastCtx = ctx
	f.progress = append(f.progress, progressUpdate{jobID, progress, step})
	return nil
}

func (f *fakeTracker) CompleteJob(ctx context.Context, jobID string) error {
	f.completed = append(f.completed, jobID)
	return nil
}

func (f *fakeTracker) FailJob(ctx context.Context, jobID, errMsg string) error {
	f.failed[jobID] = errMsg
	return nil
}

func (f *fakeTracker) ReleaseLock(ctx context.Context, photoID int64) {
	f.released = append(f.released, photoID)
}

type wsEvent struct {
	kind     string
	session  string
	photoID  int64
	stage    string
	progress int
	errMsg   string
}

type fakeNotifier struct {
	events []wsEvent
}

func (f *fakeNotifier) BroadcastProgress(sessionID string, photoID int64, stage string, progress int, message string) {
	f.events = append(f.events, wsEvent{kind: "progress", session: sessionID, photoID: photoID, stage: stage, progress: progress})
}

func (f *fakeNotifier) BroadcastComplete(sessionID string, photoID int64, photo *model.PhotoDetail, message string) {
	f.events = append(f.events, wsEvent{kind: "complete", session: sessionID, photoID: photoID, progress: 100})
}

func (f *fakeNotifier) BroadcastError(sessionID string, photoID int64, errMsg, message string) {
	f.events = append(f.events, wsEvent{kind: "error", session: sessionID, photoID: photoID, errMsg: errMsg})
}

// fakeStore is an in-memory Store for worker tests.
type fakeStore struct {
	photos    map[int64]*model.Photo
	tags      map[string]int64
	photoTags map[int64][]int64
	metadata  map[int64]*model.PhotoMetadata
	nextTagID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		photos:    make(map[int64]*model.Photo),
		tags:      make(map[string]int64),
		photoTags: make(map[int64][]int64),
		metadata:  make(map[int64]*model.PhotoMetadata),
		nextTagID: 1,
	}
}

func (f *fakeStore) CreatePhoto(ctx context.Context, p *model.Photo) error { return nil }

func (f *fakeStore) GetPhotoByID(ctx context.Context, id int64) (*model.Photo, error) {
	p, ok := f.photos[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ListPhotos(ctx context.Context) ([]model.Photo, error) { return nil, nil }

func (f *fakeStore) RenamePhoto(ctx context.Context, id int64, originalName string) error {
	return nil
}

func (f *fakeStore) DeletePhoto(ctx context.Context, id int64) error { return nil }

func (f *fakeStore) ListTags(ctx context.Context) ([]model.Tag, error) { return nil, nil }

func (f *fakeStore) RemovePhotoTag(ctx context.Context, photoID, tagID int64) error { return nil }

func (f *fakeStore) CreateTag(ctx context.Context, name string) error {
	if _, ok := f.tags[name]; !ok {
		f.tags[name] = f.nextTagID
		f.nextTagID++
	}
	return nil
}

func (f *fakeStore) GetTagByName(ctx context.Context, name string) (*model.Tag, error) {
	id, ok := f.tags[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &model.Tag{ID: id, Name: name}, nil
}

func (f *fakeStore) AddPhotoTag(ctx context.Context, photoID, tagID int64) error {
	for _, existing := range f.photoTags[photoID] {
		if existing == tagID {
			return nil
		}
	}
	f.photoTags[photoID] = append(f.photoTags[photoID], tagID)
	return nil
}

func (f *fakeStore) GetPhotoTags(ctx context.Context, photoID int64) ([]model.Tag, error) {
	var out []model.Tag
	for name, id := range f.tags {
		for _, tid := range f.photoTags[photoID] {
			if tid == id {
				out = append(out, model.Tag{ID: id, Name: name})
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ClearPhotoTags(ctx context.Context, photoID int64) error {
	delete(f.photoTags, photoID)
	return nil
}

func (f *fakeStore) SavePhotoMetadata(ctx context.Context, m *model.PhotoMetadata) error {
	f.metadata[m.PhotoID] = m
	return nil
}

func (f *fakeStore) GetPhotoMetadata(ctx context.Context, photoID int64) (*model.PhotoMetadata, error) {
	m, ok := f.metadata[photoID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) DeletePhotoMetadata(ctx context.Context, photoID int64) error {
	delete(f.metadata, photoID)
	return nil
}

func (f *fakeStore) GetSetting(ctx context.Context, key string) (string, error) { return "", nil }
func (f *fakeStore) SetSetting(ctx context.Context, key, value string) error    { return nil }
func (f *fakeStore) Close() error                                               { return nil }

func analyzeTask(t *testing.T, p model.AnalyzeJobPayload) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(p)
	require.NoError(t, err)
	return asynq.NewTask("photo:analyze", payload)
}

func successResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		Tags:        []string{"Chat", "chat", "  ", "cuisine"},
		Description: "Un chat dans une cuisine.",
		Atmosphere:  "Calme",
		Colors:      []model.ColorInfo{{Hex: "#f00000", Name: "rouge", Percentage: 100}},
		Quality: model.QualityAssessment{
			Score:       90,
			Sharpness:   "excellent",
			Lighting:    "bon",
			Composition: "bon",
			Overall:     "excellent",
		},
		Model: "gpt-4o",
	}
}

func TestProcessTaskSuccess(t *testing.T) {
	st := newFakeStore()
	st.photos[42] = &model.Photo{ID: 42, Filename: "a.jpg", Path: "/uploads/a.jpg"}
	tracker := newFakeTracker()
	notifier := &fakeNotifier{}

	w := NewAnalyzeWorker(&fakeAnalyzer{result: successResult()}, tracker, st, notifier)

	task := analyzeTask(t, model.AnalyzeJobPayload{
		JobID:         "job-1",
		PhotoID:       42,
		ImagePath:     "/uploads/a.jpg",
		CorrelationID: "sid-abc",
		Provider:      "openai",
		Language:      "fr",
	})

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "task")
	require.NoError(t, w.ProcessTask(ctx, task))

	// Progress writes run on the task's context, not a detached one.
	require.NotNil(t, tracker.lastCtx)
	assert.Equal(t, "task", tracker.lastCtx.Value(ctxKey{}))

	// Stage sequence with monotonically non-decreasing progress.
	require.Len(t, notifier.events, 4)
	assert.Equal(t, "progress", notifier.events[0].kind)
	assert.Equal(t, model.StageAnalyzing, notifier.events[0].stage)
	assert.Equal(t, 10, notifier.events[0].progress)
	assert.Equal(t, model.StageAIProcessing, notifier.events[1].stage)
	assert.Equal(t, 30, notifier.events[1].progress)
	assert.Equal(t, model.StageSavingTags, notifier.events[2].stage)
	assert.Equal(t, 70, notifier.events[2].progress)
	assert.Equal(t, "complete", notifier.events[3].kind)
	for i := 1; i < len(notifier.events); i++ {
		assert.GreaterOrEqual(t, notifier.events[i].progress, notifier.events[i-1].progress)
	}
	for _, ev := range notifier.events {
		assert.Equal(t, "sid-abc", ev.session)
		assert.Equal(t, int64(42), ev.photoID)
	}

	// Tags are normalized before persistence: duplicates and blanks dropped.
	tags, err := st.GetPhotoTags(context.Background(), 42)
	require.NoError(t, err)
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	assert.ElementsMatch(t, []string{"chat", "cuisine"}, names)

	meta := st.metadata[42]
	require.NotNil(t, meta)
	assert.Equal(t, 90, meta.QualityScore)
	assert.Equal(t, "Un chat dans une cuisine.", meta.Description)
	assert.Equal(t, "gpt-4o", meta.AIModel)
	assert.False(t, meta.AnalyzedAt.IsZero())

	assert.Equal(t, []string{"job-1"}, tracker.completed)
	assert.Empty(t, tracker.failed)
	assert.Equal(t, []int64{42}, tracker.released)
}

func TestProcessTaskAnalysisFailure(t *testing.T) {
	st := newFakeStore()
	st.photos[7] = &model.Photo{ID: 7}
	tracker := newFakeTracker()
	notifier := &fakeNotifier{}

	provErr := &ai.ProviderError{Kind: ai.KindQuota, Provider: "openai", Message: "api error (status 429): rate limited"}
	w := NewAnalyzeWorker(&fakeAnalyzer{err: provErr}, tracker, st, notifier)

	task := analyzeTask(t, model.AnalyzeJobPayload{
		JobID:         "job-2",
		PhotoID:       7,
		CorrelationID: "sid-abc",
		Provider:      "openai",
		Language:      "en",
	})

	err := w.ProcessTask(context.Background(), task)

	// Failure is terminal, never retried by the queue.
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	// Exactly one error event carrying the raw provider message.
	errEvents := 0
	for _, ev := range notifier.events {
		if ev.kind == "error" {
			errEvents++
			assert.Contains(t, ev.errMsg, "rate limited")
		}
	}
	assert.Equal(t, 1, errEvents)

	// No partial writes.
	assert.Empty(t, st.photoTags[7])
	assert.Nil(t, st.metadata[7])

	assert.Equal(t, provErr.Error(), tracker.failed["job-2"])
	assert.Empty(t, tracker.completed)
	assert.Equal(t, []int64{7}, tracker.released)
}

func TestProcessTaskWithoutCorrelationID(t *testing.T) {
	st := newFakeStore()
	st.photos[3] = &model.Photo{ID: 3}
	tracker := newFakeTracker()
	notifier := &fakeNotifier{}

	w := NewAnalyzeWorker(&fakeAnalyzer{result: successResult()}, tracker, st, notifier)

	task := analyzeTask(t, model.AnalyzeJobPayload{
		JobID:    "job-3",
		PhotoID:  3,
		Provider: "ollama",
		Language: "fr",
	})

	require.NoError(t, w.ProcessTask(context.Background(), task))

	// No subscriber address means no events, but the result still persists
	// and the job record still completes.
	assert.Empty(t, notifier.events)
	assert.NotNil(t, st.metadata[3])
	assert.Equal(t, []string{"job-3"}, tracker.completed)
	assert.Equal(t, []progressUpdate{
		{"job-3", 10, model.StageAnalyzing},
		{"job-3", 30, model.StageAIProcessing},
		{"job-3", 70, model.StageSavingTags},
	}, tracker.progress)
}

func TestProcessTaskBadPayload(t *testing.T) {
	w := NewAnalyzeWorker(&fakeAnalyzer{}, newFakeTracker(), newFakeStore(), &fakeNotifier{})

	err := w.ProcessTask(context.Background(), asynq.NewTask("photo:analyze", []byte("{not json")))

	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}
