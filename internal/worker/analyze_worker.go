package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/photomanager/api/internal/ai"
	"github.com/photomanager/api/internal/model"
	"github.com/photomanager/api/internal/store"
)

// Analyzer runs one image through the selected provider.
type Analyzer interface {
	Run(ctx context.Context, imagePath, providerID, lang string) (*model.AnalysisResult, error)
}

// JobTracker records job state transitions and owns the per-photo lock.
type JobTracker interface {
	UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error
	CompleteJob(ctx context.Context, jobID string) error
	FailJob(ctx context.Context, jobID, errMsg string) error
	ReleaseLock(ctx context.Context, photoID int64)
}

// Notifier delivers progress events to the client identified by a session
// id. Implementations must be fire-and-forget; the worker never waits on
// delivery.
type Notifier interface {
	BroadcastProgress(sessionID string, photoID int64, stage string, progress int, message string)
	BroadcastComplete(sessionID string, photoID int64, photo *model.PhotoDetail, message string)
	BroadcastError(sessionID string, photoID int64, errMsg, message string)
}

// AnalyzeWorker processes photo analysis jobs: it walks the fixed stage
// sequence, runs the analysis, persists tags and metadata on success, and
// emits exactly one terminal event per job.
type AnalyzeWorker struct {
	analyzer Analyzer
	jobs     JobTracker
	store    store.Store
	notifier Notifier
}

// NewAnalyzeWorker creates a worker with explicit collaborators; nothing is
// reached through globals so every dependency can be substituted in tests.
func NewAnalyzeWorker(analyzer Analyzer, jobs JobTracker, st store.Store, notifier Notifier) *AnalyzeWorker {
	return &AnalyzeWorker{
		analyzer: analyzer,
		jobs:     jobs,
		store:    st,
		notifier: notifier,
	}
}

// ProcessTask handles one analysis job. Analysis-level failures are wrapped
// with asynq.SkipRetry: the queue's bounded retry exists for crashed or
// stalled workers, never to re-run a failed provider call.
func (w *AnalyzeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p model.AnalyzeJobPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("Starting analysis job %s for photo %d (provider=%s lang=%s)", p.JobID, p.PhotoID, p.Provider, p.Language)
	defer w.jobs.ReleaseLock(ctx, p.PhotoID)

	w.progress(ctx, &p, model.StageAnalyzing, 10, "Analyzing image...")
	w.progress(ctx, &p, model.StageAIProcessing, 30, "AI model at work...")

	result, err := w.analyzer.Run(ctx, p.ImagePath, p.Provider, p.Language)
	if err != nil {
		return w.fail(ctx, &p, err)
	}

	tags := ai.NormalizeTags(result.Tags)
	w.progress(ctx, &p, model.StageSavingTags, 70, fmt.Sprintf("%d tags generated, saving...", len(tags)))

	if err := w.saveResult(ctx, &p, tags, result); err != nil {
		return w.fail(ctx, &p, err)
	}

	detail, err := w.reloadPhoto(ctx, p.PhotoID)
	if err != nil {
		return w.fail(ctx, &p, err)
	}

	if err := w.jobs.CompleteJob(ctx, p.JobID); err != nil {
		log.Printf("Failed to mark job %s completed: %v", p.JobID, err)
	}
	if p.CorrelationID != "" {
		w.notifier.BroadcastComplete(p.CorrelationID, p.PhotoID, detail,
			fmt.Sprintf("Photo analyzed successfully! %d tags generated.", len(detail.Tags)))
	}

	log.Printf("Analysis job %s completed: photo %d, %d tags", p.JobID, p.PhotoID, len(detail.Tags))
	return nil
}

func (w *AnalyzeWorker) progress(ctx context.Context, p *model.AnalyzeJobPayload, stage string, pct int, message string) {
	if err := w.jobs.UpdateJobProgress(ctx, p.JobID, pct, stage); err != nil {
		log.Printf("Failed to update progress for job %s: %v", p.JobID, err)
	}
	if p.CorrelationID != "" {
		w.notifier.BroadcastProgress(p.CorrelationID, p.PhotoID, stage, pct, message)
	}
}

// saveResult persists the tag set and the metadata row. Tag creation and
// association are idempotent; metadata is an upsert keyed by photo id.
func (w *AnalyzeWorker) saveResult(ctx context.Context, p *model.AnalyzeJobPayload, tags []string, result *model.AnalysisResult) error {
	for _, name := range tags {
		if err := w.store.CreateTag(ctx, name); err != nil {
			return fmt.Errorf("creating tag %q: %w", name, err)
		}
		tag, err := w.store.GetTagByName(ctx, name)
		if err != nil {
			return fmt.Errorf("loading tag %q: %w", name, err)
		}
		if err := w.store.AddPhotoTag(ctx, p.PhotoID, tag.ID); err != nil {
			return fmt.Errorf("associating tag %q: %w", name, err)
		}
	}

	meta := &model.PhotoMetadata{
		PhotoID:       p.PhotoID,
		Description:   result.Description,
		Atmosphere:    result.Atmosphere,
		Colors:        result.Colors,
		QualityScore:  result.Quality.Score,
		Sharpness:     result.Quality.Sharpness,
		Lighting:      result.Quality.Lighting,
		Composition:   result.Quality.Composition,
		OverallRating: result.Quality.Overall,
		AIModel:       result.Model,
		AnalyzedAt:    time.Now().UTC(),
	}
	if err := w.store.SavePhotoMetadata(ctx, meta); err != nil {
		return fmt.Errorf("saving metadata: %w", err)
	}
	return nil
}

func (w *AnalyzeWorker) reloadPhoto(ctx context.Context, photoID int64) (*model.PhotoDetail, error) {
	photo, err := w.store.GetPhotoByID(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("reloading photo: %w", err)
	}
	tags, err := w.store.GetPhotoTags(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("reloading tags: %w", err)
	}
	meta, err := w.store.GetPhotoMetadata(ctx, photoID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("reloading metadata: %w", err)
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	return &model.PhotoDetail{Photo: *photo, Tags: tags, Metadata: meta}, nil
}

// fail records the failure, emits the single terminal error event carrying
// the raw message, and returns a non-retryable error to the queue.
func (w *AnalyzeWorker) fail(ctx context.Context, p *model.AnalyzeJobPayload, cause error) error {
	log.Printf("Analysis job %s failed: %v", p.JobID, cause)

	if err := w.jobs.FailJob(ctx, p.JobID, cause.Error()); err != nil {
		log.Printf("Failed to mark job %s failed: %v", p.JobID, err)
	}
	if p.CorrelationID != "" {
		w.notifier.BroadcastError(p.CorrelationID, p.PhotoID, cause.Error(), "Photo analysis failed")
	}

	return fmt.Errorf("analysis job %s: %v: %w", p.JobID, cause, asynq.SkipRetry)
}
