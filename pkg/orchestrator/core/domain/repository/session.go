package repository

import (
	"context"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
)

// SessionRepository persists OrchestrationSessions and their AgentAssignments.
// Its assignment-uniqueness check is the serialization point preventing two
// planning cycles from double-committing the same backlog (one active
// assignment per (county, job_type) pair at any time).
type SessionRepository interface {
	// SaveSession persists a newly created session together with its assignments.
	SaveSession(ctx context.Context, session *model.OrchestrationSession, assignments []*model.AgentAssignment) error
	// UpdateSession persists the current state of an existing session.
	UpdateSession(ctx context.Context, session *model.OrchestrationSession) error
	// FindSessionByID returns the session with the given id, or a KindNotFound error.
	FindSessionByID(ctx context.Context, id string) (*model.OrchestrationSession, error)
	// FindActiveSession returns the most recently started active session, or
	// nil when no session is active.
	FindActiveSession(ctx context.Context) (*model.OrchestrationSession, error)
	// ListSessions returns sessions ordered by started_at descending, capped at limit.
	ListSessions(ctx context.Context, limit int) ([]*model.OrchestrationSession, error)

	// UpdateAssignment persists the current state of an assignment.
	UpdateAssignment(ctx context.Context, assignment *model.AgentAssignment) error
	// FindAssignmentByID returns the assignment with the given id, or a KindNotFound error.
	FindAssignmentByID(ctx context.Context, id string) (*model.AgentAssignment, error)
	// ListAssignmentsBySession returns all assignments of a session in priority order.
	ListAssignmentsBySession(ctx context.Context, sessionID string) ([]*model.AgentAssignment, error)
	// CountActiveAssignments counts non-terminal assignments for a (county,
	// job_type) pair across all active sessions.
	CountActiveAssignments(ctx context.Context, countyID string, jobType model.JobType) (int, error)
}
