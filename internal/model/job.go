package model

import "time"

// JobStatus is the lifecycle state of an analysis job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Progress stages, emitted in this order on the success path
const (
	StageAnalyzing    = "analyzing"
	StageAIProcessing = "ai-processing"
	StageSavingTags   = "saving-tags"
	StageComplete     = "complete"
	StageError        = "error"
)

// Job is the queue's bookkeeping record for one analysis run.
// It is kept in Redis with a bounded retention; the durable outcome of a
// job lives in the photo's tags and metadata rows.
type Job struct {
	ID          string     `json:"id"`
	PhotoID     int64      `json:"photoId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// AnalyzeJobPayload is the task payload carried through the queue.
// Provider and Language are resolved from settings at enqueue time so the
// worker never reads ambient configuration.
type AnalyzeJobPayload struct {
	JobID         string `json:"jobId"`
	PhotoID       int64  `json:"photoId"`
	ImagePath     string `json:"imagePath"`
	CorrelationID string `json:"correlationId,omitempty"`
	Provider      string `json:"provider"`
	Language      string `json:"language"`
}
