package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

// JobStatus represents the lifecycle state of a BatchJob.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status is a terminal state.
// Terminal jobs may be recreated, never resurrected.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// BatchJob is a unit of work processing TotalItems properties of one JobType
// within one county, in batches of BatchSize. It is the single durable record
// of pipeline progress; all planning components read it, only workers (through
// the assignment tracker) and operators mutate it.
type BatchJob struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	JobType        JobType    `gorm:"column:job_type;not null;index" json:"job_type"`
	CountyID       string     `gorm:"column:county_id;not null;index" json:"county_id"`
	Status         JobStatus  `gorm:"column:status;not null;index" json:"status"`
	TotalItems     int        `gorm:"column:total_items;not null" json:"total_items"`
	ProcessedItems int        `gorm:"column:processed_items;not null;default:0" json:"processed_items"`
	FailedItems    int        `gorm:"column:failed_items;not null;default:0" json:"failed_items"`
	CurrentBatch   int        `gorm:"column:current_batch;not null;default:0" json:"current_batch"`
	TotalBatches   int        `gorm:"column:total_batches;not null" json:"total_batches"`
	BatchSize      int        `gorm:"column:batch_size;not null" json:"batch_size"`
	LastError      string     `gorm:"column:last_error" json:"last_error,omitempty"`
	ErrorCount     int        `gorm:"column:error_count;not null;default:0" json:"error_count"`
	StartedAt      *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	PausedAt       *time.Time `gorm:"column:paused_at" json:"paused_at,omitempty"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName returns the database table name for BatchJob.
func (BatchJob) TableName() string { return "batch_jobs" }

const jobModule = "batch_job"

// NewBatchJob creates a pending BatchJob and derives TotalBatches from
// TotalItems and BatchSize. Non-positive sizes or counts are rejected with
// KindInvalidInput before any state is created.
func NewBatchJob(jobType JobType, countyID string, batchSize, totalItems int) (*BatchJob, error) {
	if !jobType.IsValid() {
		return nil, exception.Newf(jobModule, exception.KindInvalidInput, "unknown job type %q", jobType)
	}
	if countyID == "" {
		return nil, exception.New(jobModule, exception.KindInvalidInput, "county id must not be empty")
	}
	if totalItems <= 0 {
		return nil, exception.Newf(jobModule, exception.KindInvalidInput, "total_items must be positive, got %d", totalItems)
	}
	if batchSize <= 0 {
		return nil, exception.Newf(jobModule, exception.KindInvalidInput, "batch_size must be positive, got %d", batchSize)
	}
	now := time.Now()
	return &BatchJob{
		ID:           uuid.New().String(),
		JobType:      jobType,
		CountyID:     countyID,
		Status:       JobStatusPending,
		TotalItems:   totalItems,
		BatchSize:    batchSize,
		TotalBatches: CeilDiv(totalItems, batchSize),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// isValidJobTransition checks whether the state transition is allowed.
// Any non-terminal state may move to failed (emergency abort); terminal
// states accept no transitions.
func isValidJobTransition(current, next JobStatus) bool {
	switch current {
	case JobStatusPending:
		return next == JobStatusRunning || next == JobStatusFailed
	case JobStatusRunning:
		return next == JobStatusPaused || next == JobStatusCompleted || next == JobStatusFailed
	case JobStatusPaused:
		return next == JobStatusRunning || next == JobStatusFailed
	case JobStatusCompleted, JobStatusFailed:
		return false
	default:
		return false
	}
}

// TransitionTo moves the job to the target status, deriving timestamps:
// first entry to running sets StartedAt exactly once; entering paused sets
// PausedAt; resuming clears it; entering completed sets CompletedAt exactly
// once and requires every item to be accounted for. Disallowed moves fail
// with KindInvalidTransition and leave the job unchanged.
func (j *BatchJob) TransitionTo(target JobStatus) error {
	if !isValidJobTransition(j.Status, target) {
		return exception.Newf(jobModule, exception.KindInvalidTransition,
			"job %s: invalid transition %s -> %s", j.ID, j.Status, target)
	}
	if target == JobStatusCompleted && j.ProcessedItems+j.FailedItems != j.TotalItems {
		return exception.Newf(jobModule, exception.KindInvalidTransition,
			"job %s: cannot complete with %d of %d items accounted for",
			j.ID, j.ProcessedItems+j.FailedItems, j.TotalItems)
	}
	now := time.Now()
	switch target {
	case JobStatusRunning:
		if j.StartedAt == nil {
			j.StartedAt = &now
		}
		j.PausedAt = nil
	case JobStatusPaused:
		j.PausedAt = &now
	case JobStatusCompleted:
		j.CompletedAt = &now
	}
	j.Status = target
	j.UpdatedAt = now
	return nil
}

// ApplyProgress applies a progress delta reported by a worker. The resulting
// counters must respect processed+failed <= total and currentBatch <=
// TotalBatches; a violating update is rejected with KindOutOfRange and the
// job is left unchanged. Progress is only accepted while the job is running.
func (j *BatchJob) ApplyProgress(deltaProcessed, deltaFailed, currentBatch int) error {
	if j.Status != JobStatusRunning {
		return exception.Newf(jobModule, exception.KindInvalidTransition,
			"job %s: progress reported while %s", j.ID, j.Status)
	}
	if deltaProcessed < 0 || deltaFailed < 0 {
		return exception.Newf(jobModule, exception.KindOutOfRange,
			"job %s: negative progress delta (%d processed, %d failed)", j.ID, deltaProcessed, deltaFailed)
	}
	processed := j.ProcessedItems + deltaProcessed
	failed := j.FailedItems + deltaFailed
	if processed+failed > j.TotalItems {
		return exception.Newf(jobModule, exception.KindOutOfRange,
			"job %s: %d processed + %d failed exceeds %d total items", j.ID, processed, failed, j.TotalItems)
	}
	if currentBatch < j.CurrentBatch || currentBatch > j.TotalBatches {
		return exception.Newf(jobModule, exception.KindOutOfRange,
			"job %s: current_batch %d outside [%d, %d]", j.ID, currentBatch, j.CurrentBatch, j.TotalBatches)
	}
	j.ProcessedItems = processed
	j.FailedItems = failed
	j.CurrentBatch = currentBatch
	j.UpdatedAt = time.Now()
	return nil
}

// SetProgress applies an absolute progress snapshot, making retried patches
// idempotent: a snapshot at or below the recorded counters is a stale
// duplicate and is reported with KindStaleProgress so the caller can treat
// it as a no-op. Counter invariants are enforced as in ApplyProgress.
func (j *BatchJob) SetProgress(processed, failed, currentBatch int) error {
	if processed < j.ProcessedItems || (processed == j.ProcessedItems && failed <= j.FailedItems && currentBatch <= j.CurrentBatch) {
		return exception.Newf(jobModule, exception.KindStaleProgress,
			"job %s: snapshot (%d processed, %d failed, batch %d) is not ahead of (%d, %d, batch %d)",
			j.ID, processed, failed, currentBatch, j.ProcessedItems, j.FailedItems, j.CurrentBatch)
	}
	return j.ApplyProgress(processed-j.ProcessedItems, failed-j.FailedItems, maxInt(currentBatch, j.CurrentBatch))
}

// RecordError notes a worker-reported error on the job. The job is never
// silently stuck: ErrorCount above the configured ceiling surfaces as an
// alert through the bottleneck detector.
func (j *BatchJob) RecordError(message string) {
	j.LastError = message
	j.ErrorCount++
	j.UpdatedAt = time.Now()
}

// Remaining returns the number of items not yet accounted for.
func (j *BatchJob) Remaining() int {
	return j.TotalItems - j.ProcessedItems - j.FailedItems
}

// CeilDiv returns ceil(a / b) for positive b.
func CeilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
