package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/photomanager/api/internal/ai"
	"github.com/photomanager/api/internal/config"
	"github.com/photomanager/api/internal/model"
	"github.com/photomanager/api/internal/store"
)

const (
	// TaskTypeAnalyze is the asynq task type for photo analysis jobs
	TaskTypeAnalyze = "photo:analyze"

	// QueueAnalysis is the asynq queue analysis jobs run on
	QueueAnalysis = "analysis"

	// Settings keys
	SettingAIProvider = "ai_provider"
	SettingAILanguage = "ai_language"

	jobRetention = 24 * time.Hour
)

// ErrAnalysisInFlight is returned when an analysis is requested for a photo
// that already has one running.
var ErrAnalysisInFlight = errors.New("analysis already in progress for this photo")

// PhotoService owns analysis job management: enqueueing, the per-photo
// advisory lock, and the Redis job records backing the status endpoint.
type PhotoService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
	store       store.Store
	cfg         *config.Config
}

func NewPhotoService(redisClient *redis.Client, asynqClient *asynq.Client, st store.Store, cfg *config.Config) *PhotoService {
	return &PhotoService{
		redis:       redisClient,
		asynqClient: asynqClient,
		store:       st,
		cfg:         cfg,
	}
}

// EnqueueAnalysis queues an analysis job for a photo and returns its job id.
// The active provider and language are resolved from settings here, so the
// payload is self-contained and the worker reads no ambient state. At most
// one job per photo may be in flight: a second request while one is running
// is rejected with ErrAnalysisInFlight rather than allowing interleaved
// writes to the photo's tags and metadata.
func (s *PhotoService) EnqueueAnalysis(ctx context.Context, photoID int64, imagePath, correlationID string) (string, error) {
	providerID, err := s.resolveSetting(ctx, SettingAIProvider, s.cfg.Analysis.DefaultProvider)
	if err != nil {
		return "", err
	}
	if !ai.SupportedProvider(providerID) {
		return "", fmt.Errorf("configured AI provider %q is not supported", providerID)
	}
	lang, err := s.resolveSetting(ctx, SettingAILanguage, s.cfg.Analysis.DefaultLanguage)
	if err != nil {
		return "", err
	}

	jobID := uuid.New().String()

	// Per-photo advisory lock. The TTL bounds how long a crashed worker can
	// hold a photo; the worker releases it on any terminal state.
	lockTTL := time.Duration(s.cfg.Analysis.LockTTLMinutes) * time.Minute
	acquired, err := s.redis.SetNX(ctx, photoLockKey(photoID), jobID, lockTTL).Result()
	if err != nil {
		return "", fmt.Errorf("acquiring photo lock: %w", err)
	}
	if !acquired {
		return "", ErrAnalysisInFlight
	}

	now := time.Now()
	job := &model.Job{
		ID:        jobID,
		PhotoID:   photoID,
		Status:    model.JobStatusQueued,
		Progress:  0,
		CreatedAt: now,
	}
	if err := s.saveJob(ctx, job); err != nil {
		s.redis.Del(ctx, photoLockKey(photoID))
		return "", fmt.Errorf("failed to save job: %w", err)
	}

	payload := model.AnalyzeJobPayload{
		JobID:         jobID,
		PhotoID:       photoID,
		ImagePath:     imagePath,
		CorrelationID: correlationID,
		Provider:      providerID,
		Language:      lang,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		s.redis.Del(ctx, photoLockKey(photoID))
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TaskTypeAnalyze, payloadBytes)
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(QueueAnalysis),
		asynq.MaxRetry(s.cfg.Analysis.MaxRetry),
		asynq.Timeout(time.Duration(s.cfg.Analysis.TimeoutSeconds+30)*time.Second),
		asynq.Retention(jobRetention),
	)
	if err != nil {
		s.redis.Del(ctx, photoLockKey(photoID))
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	return jobID, nil
}

// Reanalyze clears a photo's tags and metadata, then queues a fresh
// analysis job for it.
func (s *PhotoService) Reanalyze(ctx context.Context, photoID int64, correlationID string) (string, error) {
	photo, err := s.store.GetPhotoByID(ctx, photoID)
	if err != nil {
		return "", err
	}

	if err := s.store.ClearPhotoTags(ctx, photoID); err != nil {
		return "", fmt.Errorf("clearing tags: %w", err)
	}
	if err := s.store.DeletePhotoMetadata(ctx, photoID); err != nil {
		return "", fmt.Errorf("clearing metadata: %w", err)
	}

	return s.EnqueueAnalysis(ctx, photoID, photo.Path, correlationID)
}

// GetJob returns a job record by id.
func (s *PhotoService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	return s.getJob(ctx, jobID)
}

// UpdateJobProgress updates job progress (called by the worker)
func (s *PhotoService) UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Progress = progress
	job.CurrentStep = step

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return s.saveJob(ctx, job)
}

// CompleteJob marks a job succeeded (called by the worker)
func (s *PhotoService) CompleteJob(ctx context.Context, jobID string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.Progress = 100
	job.CurrentStep = model.StageComplete
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// FailJob marks a job failed with its error message (called by the worker)
func (s *PhotoService) FailJob(ctx context.Context, jobID, errMsg string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	job.CurrentStep = model.StageError
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// ReleaseLock frees a photo's advisory lock (called by the worker on any
// terminal state).
func (s *PhotoService) ReleaseLock(ctx context.Context, photoID int64) {
	s.redis.Del(ctx, photoLockKey(photoID))
}

func (s *PhotoService) resolveSetting(ctx context.Context, key, fallback string) (string, error) {
	value, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return "", fmt.Errorf("reading setting %q: %w", key, err)
	}
	if value == "" {
		return fallback, nil
	}
	return value, nil
}

func (s *PhotoService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, jobRetention).Err()
}

func (s *PhotoService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	if err != nil {
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func jobKey(jobID string) string {
	return "job:analyze:" + jobID
}

func photoLockKey(photoID int64) string {
	return fmt.Sprintf("lock:photo:%d", photoID)
}
