package service

import (
	"context"
	"sync"

	"github.com/originals/task-api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories shared by the service tests.
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID      map[int64]*domain.User
	nextID    int64
	createErr error
	tasks     *stubTaskRepo // cascade target for Delete, optional
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[int64]*domain.User), nextID: 1}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) seed(username string, role domain.Role) *domain.User {
	u := &domain.User{ID: r.nextID, Username: username, Email: username + "@example.com", Role: role}
	r.byID[u.ID] = u
	r.nextID++
	return cloneUser(u)
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	stored := cloneUser(user)
	stored.ID = r.nextID
	r.nextID++
	r.byID[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	return cloneUser(r.byID[id]), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	if r.tasks != nil {
		r.tasks.removeUser(id)
	}
	return true, nil
}

type stubTaskRepo struct {
	byID      map[int64]*domain.Task
	nextID    int64
	updateErr error
	updates   []domain.TaskPatch
	assigns   int
}

func newStubTaskRepo() *stubTaskRepo {
	return &stubTaskRepo{byID: make(map[int64]*domain.Task), nextID: 1}
}

func cloneTask(t *domain.Task) *domain.Task {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Assignees = append([]domain.User{}, t.Assignees...)
	return &clone
}

func (r *stubTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	stored := cloneTask(task)
	stored.ID = r.nextID
	r.nextID++
	r.byID[stored.ID] = stored
	return cloneTask(stored), nil
}

func (r *stubTaskRepo) FindByID(_ context.Context, id int64) (*domain.Task, error) {
	return cloneTask(r.byID[id]), nil
}

func (r *stubTaskRepo) Update(_ context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	t, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	r.updates = append(r.updates, patch)
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	return cloneTask(t), nil
}

func (r *stubTaskRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}

// AddAssignee appends unconditionally so tests can detect a missing guard.
func (r *stubTaskRepo) AddAssignee(_ context.Context, taskID, userID int64) (*domain.Task, error) {
	t, ok := r.byID[taskID]
	if !ok {
		return nil, nil
	}
	r.assigns++
	t.Assignees = append(t.Assignees, domain.User{ID: userID})
	return cloneTask(t), nil
}

func (r *stubTaskRepo) removeUser(userID int64) {
	for id, t := range r.byID {
		if t.ResponsiblePersonID == userID {
			delete(r.byID, id)
			continue
		}
		kept := t.Assignees[:0]
		for _, a := range t.Assignees {
			if a.ID != userID {
				kept = append(kept, a)
			}
		}
		t.Assignees = kept
	}
}

type stubNotifier struct {
	mu      sync.Mutex
	err     error
	changes []domain.StatusChange
}

func (n *stubNotifier) Notify(_ context.Context, change domain.StatusChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
	return n.err
}

var (
	adminCaller   = domain.Principal{Username: "root", Role: domain.RoleAdmin}
	managerCaller = domain.Principal{Username: "boss", Role: domain.RoleManager}
	userCaller    = domain.Principal{Username: "alice", Role: domain.RoleUser}
)
