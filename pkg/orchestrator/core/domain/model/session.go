package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

// SessionStatus represents the lifecycle state of an OrchestrationSession.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

// AssignmentStatus represents the lifecycle state of an AgentAssignment.
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusFailed     AssignmentStatus = "failed"
)

// IsTerminal reports whether the assignment status is terminal.
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentStatusCompleted || s == AssignmentStatusFailed
}

// StringList persists a slice of strings as a JSON column.
type StringList []string

// Value implements the driver.Valuer interface.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = make(StringList, 0)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for StringList: %T", value)
	}
	if len(b) == 0 {
		*l = make(StringList, 0)
		return nil
	}
	return json.Unmarshal(b, l)
}

// OrchestrationSession is one execution run: a SessionPlan accepted for
// execution, bound to workers through AgentAssignments. It closes when every
// assignment reaches a terminal state or on explicit operator abort.
type OrchestrationSession struct {
	ID            string        `gorm:"type:uuid;primaryKey" json:"id"`
	Status        SessionStatus `gorm:"column:status;not null;index" json:"status"`
	TriggerSource string        `gorm:"column:trigger_source" json:"trigger_source"`
	// AgentsUsed is the set of worker identifiers bound to this session.
	AgentsUsed          StringList `gorm:"type:text;column:agents_used" json:"agents_used"`
	PropertiesProcessed int        `gorm:"column:properties_processed;not null;default:0" json:"properties_processed"`
	PropertiesFailed    int        `gorm:"column:properties_failed;not null;default:0" json:"properties_failed"`
	// EstimatedTokens is a rough token/cost estimate for the session's AI-backed stages.
	EstimatedTokens int64      `gorm:"column:estimated_tokens;not null;default:0" json:"estimated_tokens"`
	Notes           string     `gorm:"column:notes" json:"notes,omitempty"`
	StartedAt       time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	EndedAt         *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName returns the database table name for OrchestrationSession.
func (OrchestrationSession) TableName() string { return "orchestration_sessions" }

// NewOrchestrationSession creates an active session for an accepted plan.
func NewOrchestrationSession(triggerSource string) *OrchestrationSession {
	now := time.Now()
	return &OrchestrationSession{
		ID:            uuid.New().String(),
		Status:        SessionStatusActive,
		TriggerSource: triggerSource,
		AgentsUsed:    StringList{},
		StartedAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

const assignmentModule = "agent_assignment"

// AgentAssignment binds one selected WorkQueueItem to one worker within a
// session. It is a view over job execution, not an independent ledger: every
// progress report propagates into the underlying BatchJob, and the two must
// never diverge. Exactly one assignment exists per (session, county, job_type).
type AgentAssignment struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string `gorm:"column:session_id;not null;index" json:"session_id"`
	// Agent is the opaque external worker identity this assignment is bound to.
	Agent    string  `gorm:"column:agent;not null" json:"agent"`
	JobType  JobType `gorm:"column:job_type;not null" json:"job_type"`
	CountyID string  `gorm:"column:county_id;not null" json:"county_id"`
	// BatchJobID links the assignment to the BatchJob whose counters it drives.
	BatchJobID string `gorm:"column:batch_job_id;not null;index" json:"batch_job_id"`
	// WorkerHandle is the opaque handle returned by the worker invocation boundary.
	WorkerHandle   string           `gorm:"column:worker_handle" json:"worker_handle,omitempty"`
	Priority       int              `gorm:"column:priority;not null" json:"priority"`
	Status         AssignmentStatus `gorm:"column:status;not null;index" json:"status"`
	ItemsTotal     int              `gorm:"column:items_total;not null" json:"items_total"`
	ItemsProcessed int              `gorm:"column:items_processed;not null;default:0" json:"items_processed"`
	ItemsFailed    int              `gorm:"column:items_failed;not null;default:0" json:"items_failed"`
	ErrorMessage   string           `gorm:"column:error_message" json:"error_message,omitempty"`
	AssignedAt     time.Time        `gorm:"column:assigned_at;not null" json:"assigned_at"`
	StartedAt      *time.Time       `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time        `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName returns the database table name for AgentAssignment.
func (AgentAssignment) TableName() string { return "agent_assignments" }

// NewAgentAssignment creates a pending assignment binding one queue item to a worker.
func NewAgentAssignment(sessionID, agent, batchJobID string, item WorkQueueItem) *AgentAssignment {
	now := time.Now()
	return &AgentAssignment{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		Agent:      agent,
		JobType:    item.JobType,
		CountyID:   item.CountyID,
		BatchJobID: batchJobID,
		Priority:   item.Priority,
		Status:     AssignmentStatusPending,
		ItemsTotal: item.ItemsTotal,
		AssignedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Progress returns the assignment's completion percentage, 0-100.
func (a *AgentAssignment) Progress() int {
	if a.ItemsTotal <= 0 {
		return 0
	}
	p := (a.ItemsProcessed + a.ItemsFailed) * 100 / a.ItemsTotal
	if p > 100 {
		p = 100
	}
	return p
}

// Start moves a pending assignment to in_progress and records the worker handle.
func (a *AgentAssignment) Start(workerHandle string) error {
	if a.Status != AssignmentStatusPending {
		return exception.Newf(assignmentModule, exception.KindInvalidTransition,
			"assignment %s: cannot start while %s", a.ID, a.Status)
	}
	now := time.Now()
	a.Status = AssignmentStatusInProgress
	a.WorkerHandle = workerHandle
	a.StartedAt = &now
	a.UpdatedAt = now
	return nil
}

// ApplyReport applies an absolute progress report from the worker. Progress
// is monotonically non-decreasing while in_progress: a report at or below
// the recorded counters is flagged with KindStaleProgress (a benign
// duplicate), and a report that is not in_progress or out of range is a
// hard error.
func (a *AgentAssignment) ApplyReport(processed, failed int) error {
	if a.Status != AssignmentStatusInProgress {
		return exception.Newf(assignmentModule, exception.KindInvalidTransition,
			"assignment %s: progress reported while %s", a.ID, a.Status)
	}
	if processed < 0 || failed < 0 || processed+failed > a.ItemsTotal {
		return exception.Newf(assignmentModule, exception.KindOutOfRange,
			"assignment %s: report (%d processed, %d failed) outside 0..%d", a.ID, processed, failed, a.ItemsTotal)
	}
	if processed < a.ItemsProcessed || (processed == a.ItemsProcessed && failed <= a.ItemsFailed) {
		return exception.Newf(assignmentModule, exception.KindStaleProgress,
			"assignment %s: report (%d, %d) is not ahead of (%d, %d)",
			a.ID, processed, failed, a.ItemsProcessed, a.ItemsFailed)
	}
	a.ItemsProcessed = processed
	a.ItemsFailed = failed
	a.UpdatedAt = time.Now()
	return nil
}

// Complete moves an in_progress assignment to its terminal state.
func (a *AgentAssignment) Complete(succeeded bool, errorMessage string) error {
	if a.Status.IsTerminal() {
		return exception.Newf(assignmentModule, exception.KindInvalidTransition,
			"assignment %s: already terminal (%s)", a.ID, a.Status)
	}
	now := time.Now()
	if succeeded {
		a.Status = AssignmentStatusCompleted
	} else {
		a.Status = AssignmentStatusFailed
		a.ErrorMessage = errorMessage
	}
	a.CompletedAt = &now
	a.UpdatedAt = now
	return nil
}
