package inmemory

import (
	"context"
	"sort"
	"sync"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

const sessionRepoModule = "inmemory_session_repository"

// SessionRepository is an in-memory implementation of repository.SessionRepository.
type SessionRepository struct {
	mu          sync.RWMutex
	sessions    map[string]model.OrchestrationSession
	assignments map[string]model.AgentAssignment
}

// Verify that SessionRepository implements the repository.SessionRepository interface.
var _ repository.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates an empty in-memory SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions:    make(map[string]model.OrchestrationSession),
		assignments: make(map[string]model.AgentAssignment),
	}
}

// SaveSession persists a session together with its assignments. As with the
// SQL store's unique index, a new assignment whose (county, job_type) pair is
// already in flight rejects the whole session; the check and the insert share
// one critical section so concurrent starts cannot both slip past it.
func (r *SessionRepository) SaveSession(_ context.Context, session *model.OrchestrationSession, assignments []*model.AgentAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, assignment := range assignments {
		for _, existing := range r.assignments {
			if existing.Status.IsTerminal() {
				continue
			}
			if existing.CountyID == assignment.CountyID && existing.JobType == assignment.JobType {
				return exception.Newf(sessionRepoModule, exception.KindInvalidTransition,
					"county '%s' already has an active %s assignment", assignment.CountyID, assignment.JobType)
			}
		}
	}
	r.sessions[session.ID] = *session
	for _, assignment := range assignments {
		r.assignments[assignment.ID] = *assignment
	}
	return nil
}

// UpdateSession persists the current state of an existing session.
func (r *SessionRepository) UpdateSession(_ context.Context, session *model.OrchestrationSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return exception.Newf(sessionRepoModule, exception.KindNotFound, "session %s not found", session.ID)
	}
	r.sessions[session.ID] = *session
	return nil
}

// FindSessionByID returns a copy of the session with the given id.
func (r *SessionRepository) FindSessionByID(_ context.Context, id string) (*model.OrchestrationSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, exception.Newf(sessionRepoModule, exception.KindNotFound, "session %s not found", id)
	}
	return &session, nil
}

// FindActiveSession returns the most recently started active session, or nil.
func (r *SessionRepository) FindActiveSession(_ context.Context) (*model.OrchestrationSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *model.OrchestrationSession
	for _, session := range r.sessions {
		if session.Status != model.SessionStatusActive {
			continue
		}
		s := session
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = &s
		}
	}
	return latest, nil
}

// ListSessions returns sessions ordered by started_at descending, capped at limit.
func (r *SessionRepository) ListSessions(_ context.Context, limit int) ([]*model.OrchestrationSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = defaultListLimit
	}
	all := make([]*model.OrchestrationSession, 0, len(r.sessions))
	for _, session := range r.sessions {
		s := session
		all = append(all, &s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.After(all[j].StartedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// UpdateAssignment persists the current state of an assignment.
func (r *SessionRepository) UpdateAssignment(_ context.Context, assignment *model.AgentAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assignments[assignment.ID]; !ok {
		return exception.Newf(sessionRepoModule, exception.KindNotFound, "assignment %s not found", assignment.ID)
	}
	r.assignments[assignment.ID] = *assignment
	return nil
}

// FindAssignmentByID returns a copy of the assignment with the given id.
func (r *SessionRepository) FindAssignmentByID(_ context.Context, id string) (*model.AgentAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	assignment, ok := r.assignments[id]
	if !ok {
		return nil, exception.Newf(sessionRepoModule, exception.KindNotFound, "assignment %s not found", id)
	}
	return &assignment, nil
}

// ListAssignmentsBySession returns all assignments of a session in priority order.
func (r *SessionRepository) ListAssignmentsBySession(_ context.Context, sessionID string) ([]*model.AgentAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]*model.AgentAssignment, 0)
	for _, assignment := range r.assignments {
		if assignment.SessionID == sessionID {
			a := assignment
			matched = append(matched, &a)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority < matched[j].Priority
		}
		return matched[i].ID < matched[j].ID
	})
	return matched, nil
}

// CountActiveAssignments counts non-terminal assignments for a (county,
// job_type) pair.
func (r *SessionRepository) CountActiveAssignments(_ context.Context, countyID string, jobType model.JobType) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, assignment := range r.assignments {
		if assignment.CountyID == countyID && assignment.JobType == jobType && !assignment.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}
