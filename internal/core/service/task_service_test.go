package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/originals/task-api/internal/core/domain"
	"github.com/originals/task-api/internal/core/ports"
	redisstore "github.com/originals/task-api/internal/infrastructure/db/redis"
	"github.com/originals/task-api/internal/infrastructure/notify"
)

var discardLogger = zerolog.Nop()

type taskFixture struct {
	users    *stubUserRepo
	tasks    *stubTaskRepo
	notifier *stubNotifier
	svc      *TaskService
}

func newTaskFixture(strict bool) *taskFixture {
	f := &taskFixture{
		users:    newStubUserRepo(),
		tasks:    newStubTaskRepo(),
		notifier: &stubNotifier{},
	}
	f.users.tasks = f.tasks
	f.svc = NewTaskService(f.tasks, f.users, f.notifier, strict, discardLogger)
	return f
}

// seedTask stores a task directly with a fixed id.
func (f *taskFixture) seedTask(id int64, ownerID int64, status domain.TaskStatus) *domain.Task {
	t := &domain.Task{
		ID:                  id,
		Title:               "seeded",
		Status:              status,
		Priority:            domain.PriorityMedium,
		ResponsiblePersonID: ownerID,
		UpdatedAt:           time.Now().UTC(),
	}
	f.tasks.byID[id] = t
	if id >= f.tasks.nextID {
		f.tasks.nextID = id + 1
	}
	return cloneTask(t)
}

func strPtr(s string) *string { return &s }

// ---------------------------------------------------------------------------
// CreateTask
// ---------------------------------------------------------------------------

func TestTaskService_Create_Success(t *testing.T) {
	f := newTaskFixture(false)
	owner := f.users.seed("alice", domain.RoleUser)

	task, err := f.svc.CreateTask(context.Background(), userCaller, ports.CreateTaskInput{
		Title:               "Write report",
		Description:         "quarterly",
		Status:              domain.StatusTodo,
		Priority:            domain.PriorityHigh,
		ResponsiblePersonID: owner.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID == 0 {
		t.Error("expected store-assigned id")
	}
	if task.ResponsiblePersonID != owner.ID {
		t.Errorf("expected responsible person %d, got %d", owner.ID, task.ResponsiblePersonID)
	}
	if task.Status != domain.StatusTodo || task.Priority != domain.PriorityHigh {
		t.Errorf("unexpected status/priority: %s/%s", task.Status, task.Priority)
	}
	if len(task.Assignees) != 0 {
		t.Errorf("new task must have no assignees")
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Error("timestamps must be set")
	}
}

func TestTaskService_Create_ResponsiblePersonDecoupledFromCaller(t *testing.T) {
	f := newTaskFixture(false)
	f.users.seed("alice", domain.RoleUser)
	other := f.users.seed("bob", domain.RoleUser)

	task, err := f.svc.CreateTask(context.Background(), userCaller, ports.CreateTaskInput{
		Title:               "For bob",
		ResponsiblePersonID: other.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ResponsiblePersonID != other.ID {
		t.Fatalf("responsible person must come from input, got %d", task.ResponsiblePersonID)
	}
}

func TestTaskService_Create_Defaults(t *testing.T) {
	f := newTaskFixture(false)
	owner := f.users.seed("alice", domain.RoleUser)

	task, err := f.svc.CreateTask(context.Background(), userCaller, ports.CreateTaskInput{
		Title:               "Defaults",
		ResponsiblePersonID: owner.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != domain.StatusTodo || task.Priority != domain.PriorityMedium {
		t.Errorf("expected TODO/MEDIUM defaults, got %s/%s", task.Status, task.Priority)
	}
}

func TestTaskService_Create_Validation(t *testing.T) {
	f := newTaskFixture(false)
	owner := f.users.seed("alice", domain.RoleUser)

	cases := map[string]ports.CreateTaskInput{
		"missing title":       {Title: "  ", ResponsiblePersonID: owner.ID},
		"bad status":          {Title: "t", Status: "In progress", ResponsiblePersonID: owner.ID},
		"bad priority":        {Title: "t", Priority: "URGENT", ResponsiblePersonID: owner.ID},
		"missing responsible": {Title: "t"},
		"unknown responsible": {Title: "t", ResponsiblePersonID: 404},
	}
	for name, in := range cases {
		if _, err := f.svc.CreateTask(context.Background(), userCaller, in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", name, err)
		}
	}
	if len(f.tasks.byID) != 0 {
		t.Errorf("no task must be stored on validation failure")
	}
}

func TestTaskService_Create_AnyRoleAllowed(t *testing.T) {
	f := newTaskFixture(false)
	owner := f.users.seed("alice", domain.RoleUser)

	for _, caller := range []domain.Principal{adminCaller, managerCaller, userCaller} {
		if _, err := f.svc.CreateTask(context.Background(), caller, ports.CreateTaskInput{Title: "t", ResponsiblePersonID: owner.ID}); err != nil {
			t.Errorf("%s: unexpected error %v", caller.Role, err)
		}
	}
	if _, err := f.svc.CreateTask(context.Background(), domain.Principal{Username: "anon"}, ports.CreateTaskInput{Title: "t", ResponsiblePersonID: owner.ID}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("caller without a role must be forbidden, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// GetTask / UpdateTask / DeleteTask
// ---------------------------------------------------------------------------

func TestTaskService_Get(t *testing.T) {
	f := newTaskFixture(false)
	f.seedTask(7, 1, domain.StatusTodo)

	task, err := f.svc.GetTask(context.Background(), userCaller, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID != 7 {
		t.Errorf("expected task 7, got %d", task.ID)
	}
	if _, err := f.svc.GetTask(context.Background(), userCaller, 8); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskService_Update_OnlyManager(t *testing.T) {
	f := newTaskFixture(false)
	f.seedTask(1, 1, domain.StatusTodo)
	patch := domain.TaskPatch{Title: strPtr("renamed")}

	for _, caller := range []domain.Principal{adminCaller, userCaller} {
		if _, err := f.svc.UpdateTask(context.Background(), caller, 1, patch); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("%s: expected ErrForbidden, got %v", caller.Role, err)
		}
	}
	if len(f.tasks.updates) != 0 {
		t.Fatal("denied update must not reach the store")
	}

	task, err := f.svc.UpdateTask(context.Background(), managerCaller, 1, patch)
	if err != nil {
		t.Fatalf("manager update failed: %v", err)
	}
	if task.Title != "renamed" {
		t.Errorf("expected title renamed, got %q", task.Title)
	}
}

func TestTaskService_Update_PartialMerge(t *testing.T) {
	f := newTaskFixture(false)
	f.seedTask(1, 1, domain.StatusTodo)
	f.tasks.byID[1].Description = "keep me"

	prio := domain.PriorityLowest
	task, err := f.svc.UpdateTask(context.Background(), managerCaller, 1, domain.TaskPatch{Priority: &prio})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Priority != domain.PriorityLowest {
		t.Errorf("priority not applied")
	}
	if task.Title != "seeded" || task.Description != "keep me" || task.Status != domain.StatusTodo {
		t.Errorf("unsupplied fields must be untouched: %+v", task)
	}
}

func TestTaskService_Update_EmptyPatchSkipsStore(t *testing.T) {
	f := newTaskFixture(false)
	f.seedTask(3, 1, domain.StatusInProgress)

	task, err := f.svc.UpdateTask(context.Background(), managerCaller, 3, domain.TaskPatch{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID != 3 || task.Status != domain.StatusInProgress {
		t.Fatalf("expected the unchanged task, got %+v", task)
	}
	if len(f.tasks.updates) != 0 {
		t.Fatalf("empty patch must not reach the store, got %d updates", len(f.tasks.updates))
	}
	if _, err := f.svc.UpdateTask(context.Background(), managerCaller, 99, domain.TaskPatch{}); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for missing task, got %v", err)
	}
}

func TestTaskService_Update_NotFoundAndValidation(t *testing.T) {
	f := newTaskFixture(false)
	f.seedTask(1, 1, domain.StatusTodo)

	if _, err := f.svc.UpdateTask(context.Background(), managerCaller, 99, domain.TaskPatch{Title: strPtr("x")}); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := f.svc.UpdateTask(context.Background(), managerCaller, 1, domain.TaskPatch{Title: strPtr(" ")}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for blank title, got %v", err)
	}
	bad := domain.TaskStatus("ARCHIVED")
	if _, err := f.svc.UpdateTask(context.Background(), managerCaller, 1, domain.TaskPatch{Status: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown status, got %v", err)
	}
}

func TestTaskService_Delete(t *testing.T) {
	f := newTaskFixture(false)
	owner := f.users.seed("alice", domain.RoleUser)
	f.seedTask(3, owner.ID, domain.StatusTodo)

	for _, caller := range []domain.Principal{managerCaller, userCaller} {
		if err := f.svc.DeleteTask(context.Background(), caller, 3); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("%s: expected ErrForbidden, got %v", caller.Role, err)
		}
	}

	if err := f.svc.DeleteTask(context.Background(), adminCaller, 3); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
	if _, ok := f.tasks.byID[3]; ok {
		t.Error("task must be removed")
	}
	if _, ok := f.users.byID[owner.ID]; !ok {
		t.Error("deleting a task must not delete its responsible person")
	}

	if err := f.svc.DeleteTask(context.Background(), adminCaller, 3); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound on second delete, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// AssignTask
// ---------------------------------------------------------------------------

func TestTaskService_Assign_Success(t *testing.T) {
	f := newTaskFixture(false)
	worker := f.users.seed("worker", domain.RoleUser)
	f.seedTask(1, worker.ID, domain.StatusTodo)

	task, err := f.svc.AssignTask(context.Background(), managerCaller, 1, worker.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !task.HasAssignee(worker.ID) {
		t.Fatalf("expected worker to be assigned")
	}
}

func TestTaskService_Assign_Twice_SingleMembership(t *testing.T) {
	f := newTaskFixture(false)
	worker := f.users.seed("worker", domain.RoleUser)
	f.seedTask(1, worker.ID, domain.StatusTodo)

	if _, err := f.svc.AssignTask(context.Background(), managerCaller, 1, worker.ID); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}
	task, err := f.svc.AssignTask(context.Background(), managerCaller, 1, worker.ID)
	if err != nil {
		t.Fatalf("second assign must be a no-op, got %v", err)
	}
	if len(task.Assignees) != 1 {
		t.Fatalf("expected a single membership, got %d", len(task.Assignees))
	}
	if f.tasks.assigns != 1 {
		t.Errorf("store must be written once, got %d", f.tasks.assigns)
	}
}

func TestTaskService_Assign_Rules(t *testing.T) {
	f := newTaskFixture(false)
	worker := f.users.seed("worker", domain.RoleUser)
	f.seedTask(1, worker.ID, domain.StatusTodo)

	for _, caller := range []domain.Principal{adminCaller, userCaller} {
		if _, err := f.svc.AssignTask(context.Background(), caller, 1, worker.ID); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("%s: expected ErrForbidden, got %v", caller.Role, err)
		}
	}
	if _, err := f.svc.AssignTask(context.Background(), managerCaller, 2, worker.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := f.svc.AssignTask(context.Background(), managerCaller, 1, 999); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// ChangeTaskStatus
// ---------------------------------------------------------------------------

func TestTaskService_ChangeStatus_NotifiesOnce(t *testing.T) {
	f := newTaskFixture(false)
	f.seedTask(5, 1, domain.StatusTodo)

	task, err := f.svc.ChangeTaskStatus(context.Background(), userCaller, 5, domain.StatusDone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != domain.StatusDone {
		t.Fatalf("expected DONE, got %s", task.Status)
	}
	if len(f.notifier.changes) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(f.notifier.changes))
	}
	got := f.notifier.changes[0]
	if got.TaskID != 5 || got.Status != domain.StatusDone {
		t.Errorf("expected notification (5, DONE), got (%d, %s)", got.TaskID, got.Status)
	}
}

func TestTaskService_ChangeStatus_EachChangeHasOwnID(t *testing.T) {
	f := newTaskFixture(false)
	f.seedTask(1, 1, domain.StatusTodo)

	for _, st := range []domain.TaskStatus{domain.StatusDone, domain.StatusTodo, domain.StatusDone} {
		if _, err := f.svc.ChangeTaskStatus(context.Background(), userCaller, 1, st); err != nil {
			t.Fatalf("change to %s: %v", st, err)
		}
	}
	if len(f.notifier.changes) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(f.notifier.changes))
	}
	seen := map[string]bool{}
	for _, c := range f.notifier.changes {
		if c.ID == "" || seen[c.ID] {
			t.Fatalf("expected a distinct change id, got %q", c.ID)
		}
		seen[c.ID] = true
	}
}

// setNXClaimer mimics Redis SET NX over the production dedup key.
type setNXClaimer struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (c *setNXClaimer) Claim(_ context.Context, taskID int64, changeID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := redisstore.Key(taskID, changeID)
	if c.keys[key] {
		return false, nil
	}
	c.keys[key] = true
	return true, nil
}

type collectingSink struct {
	changes []domain.StatusChange
}

func (s *collectingSink) Send(_ context.Context, change domain.StatusChange) error {
	s.changes = append(s.changes, change)
	return nil
}

// sinkNotifier hands changes to a sink synchronously.
type sinkNotifier struct {
	sink notify.Sink
}

func (n sinkNotifier) Notify(ctx context.Context, change domain.StatusChange) error {
	return n.sink.Send(ctx, change)
}

func TestTaskService_ChangeStatus_DedupDeliversRepeatedStatus(t *testing.T) {
	users := newStubUserRepo()
	tasks := newStubTaskRepo()
	sink := &collectingSink{}
	dedup := notify.NewDeduper(&setNXClaimer{keys: map[string]bool{}}, sink, discardLogger)
	svc := NewTaskService(tasks, users, sinkNotifier{dedup}, false, discardLogger)

	tasks.byID[1] = &domain.Task{ID: 1, Title: "t", Status: domain.StatusTodo, ResponsiblePersonID: 1, UpdatedAt: time.Unix(1777629600, 0)}
	for _, st := range []domain.TaskStatus{domain.StatusDone, domain.StatusTodo, domain.StatusDone} {
		if _, err := svc.ChangeTaskStatus(context.Background(), userCaller, 1, st); err != nil {
			t.Fatalf("change to %s: %v", st, err)
		}
	}

	if len(sink.changes) != 3 {
		t.Fatalf("expected 3 deliveries, got %d: %+v", len(sink.changes), sink.changes)
	}
	want := []domain.TaskStatus{domain.StatusDone, domain.StatusTodo, domain.StatusDone}
	for i, c := range sink.changes {
		if c.Status != want[i] {
			t.Errorf("delivery %d: expected %s, got %s", i, want[i], c.Status)
		}
	}
}

func TestTaskService_ChangeStatus_UpdatesOnlyStatus(t *testing.T) {
	f := newTaskFixture(false)
	f.seedTask(5, 1, domain.StatusTodo)

	if _, err := f.svc.ChangeTaskStatus(context.Background(), userCaller, 5, domain.StatusInProgress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.tasks.updates) != 1 {
		t.Fatalf("expected one store update, got %d", len(f.tasks.updates))
	}
	p := f.tasks.updates[0]
	if p.Status == nil || p.Title != nil || p.Description != nil || p.Priority != nil {
		t.Errorf("status change must patch only status: %+v", p)
	}
}

func TestTaskService_ChangeStatus_NotificationFailureIsNonFatal(t *testing.T) {
	f := newTaskFixture(false)
	f.notifier.err = errors.New("smtp down")
	f.seedTask(5, 1, domain.StatusTodo)

	task, err := f.svc.ChangeTaskStatus(context.Background(), userCaller, 5, domain.StatusDone)
	if err != nil {
		t.Fatalf("notification failure must not fail the status change, got %v", err)
	}
	if task.Status != domain.StatusDone {
		t.Errorf("status must still be applied")
	}
}

func TestTaskService_ChangeStatus_OpenTransitionsByDefault(t *testing.T) {
	f := newTaskFixture(false)
	f.seedTask(5, 1, domain.StatusDone)

	if _, err := f.svc.ChangeTaskStatus(context.Background(), userCaller, 5, domain.StatusTodo); err != nil {
		t.Fatalf("DONE -> TODO must be allowed when transitions are open, got %v", err)
	}
}

func TestTaskService_ChangeStatus_StrictTransitions(t *testing.T) {
	f := newTaskFixture(true)
	f.seedTask(5, 1, domain.StatusTodo)

	if _, err := f.svc.ChangeTaskStatus(context.Background(), userCaller, 5, domain.StatusDone); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for TODO -> DONE, got %v", err)
	}
	if len(f.notifier.changes) != 0 {
		t.Fatalf("rejected transition must not notify")
	}
	if _, err := f.svc.ChangeTaskStatus(context.Background(), userCaller, 5, domain.StatusInProgress); err != nil {
		t.Fatalf("TODO -> IN_PROGRESS failed: %v", err)
	}
	if _, err := f.svc.ChangeTaskStatus(context.Background(), userCaller, 5, domain.StatusDone); err != nil {
		t.Fatalf("IN_PROGRESS -> DONE failed: %v", err)
	}

	back := domain.StatusTodo
	if _, err := f.svc.UpdateTask(context.Background(), managerCaller, 5, domain.TaskPatch{Status: &back}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("strict mode must also guard generic updates, got %v", err)
	}
}

func TestTaskService_ChangeStatus_Errors(t *testing.T) {
	f := newTaskFixture(false)

	if _, err := f.svc.ChangeTaskStatus(context.Background(), userCaller, 42, domain.StatusDone); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := f.svc.ChangeTaskStatus(context.Background(), userCaller, 42, "Done"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.ChangeTaskStatus(context.Background(), userCaller, 42, ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for empty status, got %v", err)
	}
	if len(f.notifier.changes) != 0 {
		t.Errorf("failed changes must not notify")
	}
}

func TestTaskService_ChangeStatus_StoreError(t *testing.T) {
	f := newTaskFixture(false)
	f.seedTask(5, 1, domain.StatusTodo)
	f.tasks.updateErr = errors.New("db unavailable")

	if _, err := f.svc.ChangeTaskStatus(context.Background(), userCaller, 5, domain.StatusDone); err == nil {
		t.Fatal("expected error when store fails")
	}
	if len(f.notifier.changes) != 0 {
		t.Errorf("failed update must not notify")
	}
}

func TestTaskService_NilNotifier(t *testing.T) {
	tasks := newStubTaskRepo()
	tasks.byID[1] = &domain.Task{ID: 1, Status: domain.StatusTodo}
	svc := NewTaskService(tasks, newStubUserRepo(), nil, false, discardLogger)

	if _, err := svc.ChangeTaskStatus(context.Background(), userCaller, 1, domain.StatusDone); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
