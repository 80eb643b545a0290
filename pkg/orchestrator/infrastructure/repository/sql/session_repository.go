package sql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

const sessionRepoModule = "sql_session_repository"

// SessionRepository is the gorm-backed implementation of
// repository.SessionRepository.
type SessionRepository struct {
	db *gorm.DB
}

// Verify that SessionRepository implements the repository.SessionRepository interface.
var _ repository.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new gorm-backed SessionRepository.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// SaveSession persists a session together with its assignments in one
// transaction, so a half-created session can never leak assignments. The
// schema carries a unique index over active (county_id, job_type) pairs;
// a plan that collides with in-flight work is rejected here even when two
// planning cycles passed the pre-check concurrently.
func (r *SessionRepository) SaveSession(ctx context.Context, session *model.OrchestrationSession, assignments []*model.AgentAssignment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		for _, assignment := range assignments {
			if err := tx.Create(assignment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return exception.Wrap(sessionRepoModule, exception.KindInvalidTransition,
			"an assignment in this session collides with in-flight work", err)
	}
	if err != nil {
		return exception.Wrap(sessionRepoModule, exception.KindInternal, "failed to insert session", err)
	}
	return nil
}

// sessionMutableColumns and assignmentMutableColumns list the columns their
// update paths may change. The explicit lists force gorm to write cleared
// zero-valued fields instead of dropping them from the UPDATE.
var (
	sessionMutableColumns = []string{
		"status", "agents_used", "properties_processed", "properties_failed",
		"notes", "ended_at", "updated_at",
	}
	assignmentMutableColumns = []string{
		"worker_handle", "status", "items_processed", "items_failed",
		"error_message", "started_at", "completed_at", "updated_at",
	}
)

// UpdateSession persists the current state of an existing session.
func (r *SessionRepository) UpdateSession(ctx context.Context, session *model.OrchestrationSession) error {
	result := r.db.WithContext(ctx).Model(&model.OrchestrationSession{}).Where("id = ?", session.ID).
		Select(sessionMutableColumns).Updates(session)
	if result.Error != nil {
		return exception.Wrap(sessionRepoModule, exception.KindInternal, "failed to update session", result.Error)
	}
	if result.RowsAffected == 0 {
		return exception.Newf(sessionRepoModule, exception.KindNotFound, "session %s not found", session.ID)
	}
	return nil
}

// FindSessionByID returns the session with the given id, or a KindNotFound error.
func (r *SessionRepository) FindSessionByID(ctx context.Context, id string) (*model.OrchestrationSession, error) {
	var session model.OrchestrationSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exception.Newf(sessionRepoModule, exception.KindNotFound, "session %s not found", id)
	}
	if err != nil {
		return nil, exception.Wrap(sessionRepoModule, exception.KindInternal, "failed to load session", err)
	}
	return &session, nil
}

// FindActiveSession returns the most recently started active session, or nil.
func (r *SessionRepository) FindActiveSession(ctx context.Context) (*model.OrchestrationSession, error) {
	var session model.OrchestrationSession
	err := r.db.WithContext(ctx).
		Where("status = ?", model.SessionStatusActive).
		Order("started_at DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, exception.Wrap(sessionRepoModule, exception.KindInternal, "failed to load active session", err)
	}
	return &session, nil
}

// ListSessions returns sessions ordered by started_at descending, capped at limit.
func (r *SessionRepository) ListSessions(ctx context.Context, limit int) ([]*model.OrchestrationSession, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var sessions []*model.OrchestrationSession
	err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&sessions).Error
	if err != nil {
		return nil, exception.Wrap(sessionRepoModule, exception.KindInternal, "failed to list sessions", err)
	}
	return sessions, nil
}

// UpdateAssignment persists the current state of an assignment.
func (r *SessionRepository) UpdateAssignment(ctx context.Context, assignment *model.AgentAssignment) error {
	result := r.db.WithContext(ctx).Model(&model.AgentAssignment{}).Where("id = ?", assignment.ID).
		Select(assignmentMutableColumns).Updates(assignment)
	if result.Error != nil {
		return exception.Wrap(sessionRepoModule, exception.KindInternal, "failed to update assignment", result.Error)
	}
	if result.RowsAffected == 0 {
		return exception.Newf(sessionRepoModule, exception.KindNotFound, "assignment %s not found", assignment.ID)
	}
	return nil
}

// FindAssignmentByID returns the assignment with the given id, or a KindNotFound error.
func (r *SessionRepository) FindAssignmentByID(ctx context.Context, id string) (*model.AgentAssignment, error) {
	var assignment model.AgentAssignment
	err := r.db.WithContext(ctx).First(&assignment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exception.Newf(sessionRepoModule, exception.KindNotFound, "assignment %s not found", id)
	}
	if err != nil {
		return nil, exception.Wrap(sessionRepoModule, exception.KindInternal, "failed to load assignment", err)
	}
	return &assignment, nil
}

// ListAssignmentsBySession returns all assignments of a session in priority order.
func (r *SessionRepository) ListAssignmentsBySession(ctx context.Context, sessionID string) ([]*model.AgentAssignment, error) {
	var assignments []*model.AgentAssignment
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("priority ASC").Order("id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, exception.Wrap(sessionRepoModule, exception.KindInternal, "failed to list assignments", err)
	}
	return assignments, nil
}

// CountActiveAssignments counts non-terminal assignments for a (county,
// job_type) pair. This query backs the one-active-assignment invariant.
func (r *SessionRepository) CountActiveAssignments(ctx context.Context, countyID string, jobType model.JobType) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AgentAssignment{}).
		Where("county_id = ? AND job_type = ? AND status IN ?",
			countyID, jobType, []model.AssignmentStatus{model.AssignmentStatusPending, model.AssignmentStatusInProgress}).
		Count(&count).Error
	if err != nil {
		return 0, exception.Wrap(sessionRepoModule, exception.KindInternal, "failed to count active assignments", err)
	}
	return int(count), nil
}
