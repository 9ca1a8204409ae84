package domain

import (
	"context"
	"time"

	"github.com/taskhive/task-platform/shared/contracts"
)

// Task is the stored task record. Members holds the ids of assigned
// users, loaded from the membership relation.
type Task struct {
	ID          int64
	Title       string
	Description string
	Deadline    *time.Time
	Priority    contracts.TaskPriority
	Status      contracts.TaskStatus
	CreatorID   int64
	Members     []int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskLog is one audit-log entry appended to a task's history.
type TaskLog struct {
	ID        int64
	TaskID    int64
	UserID    int64
	Change    string
	CreatedAt time.Time
}

// Comment is a user comment attached to a task.
type Comment struct {
	ID        int64
	Content   string
	TaskID    int64
	UserID    int64
	CreatedAt time.Time
}

// TaskFilters narrows FindAll results. Zero values mean "no filter".
// When UserID is set the membership relation is the primary query path.
type TaskFilters struct {
	Title    string
	Status   contracts.TaskStatus
	Priority contracts.TaskPriority
	UserID   int64
}

// TaskRepository abstracts task persistence. Update covers the task row
// and the membership diff in one transaction.
type TaskRepository interface {
	// Create inserts the task and its membership rows, filling in ID
	// and timestamps.
	Create(ctx context.Context, task *Task) error

	// Update persists changed fields and replaces the membership set
	// when members is non-nil. Both writes share a transaction.
	// Returns ErrTaskNotFound when the task is absent.
	Update(ctx context.Context, task *Task, members []int64) error

	// FindByID loads a task with its members. Returns ErrTaskNotFound
	// when absent.
	FindByID(ctx context.Context, id int64) (*Task, error)

	// FindAll lists tasks matching the SQL-side filters (title
	// substring, status, priority), newest first.
	FindAll(ctx context.Context, filters TaskFilters) ([]Task, error)

	// FindByMember lists tasks the user is assigned to, newest first.
	FindByMember(ctx context.Context, userID int64) ([]Task, error)

	// Exists reports whether the task id is present.
	Exists(ctx context.Context, id int64) (bool, error)
}

// LogRepository stores task audit-log entries.
type LogRepository interface {
	Append(ctx context.Context, log *TaskLog) error
}

// CommentRepository stores task comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *Comment) error
	FindByTask(ctx context.Context, taskID int64) ([]Comment, error)
}

// TaskCache is a read-through cache for single-task lookups.
type TaskCache interface {
	Get(ctx context.Context, id int64) (*Task, bool)
	Set(ctx context.Context, task *Task)
	Invalidate(ctx context.Context, id int64)
}

// TransitionPolicy decides whether a status change is allowed. The
// default policy permits every transition; stricter policies can be
// swapped in without touching the service.
type TransitionPolicy interface {
	Allowed(from, to contracts.TaskStatus) bool
}

// PermitAll allows every status transition.
type PermitAll struct{}

func (PermitAll) Allowed(_, _ contracts.TaskStatus) bool { return true }

// TaskService is the business surface bound to the message patterns.
type TaskService interface {
	Create(ctx context.Context, payload contracts.CreateTask) (*contracts.TaskResponse, error)
	Update(ctx context.Context, payload contracts.UpdateTask) (*contracts.MessageResponse, error)
	FindOne(ctx context.Context, id int64) (*contracts.Task, error)
	FindAll(ctx context.Context, filters contracts.FindAllFilters) ([]contracts.Task, error)
	AddLog(ctx context.Context, payload contracts.AddLog) (*contracts.TaskLog, error)
	CreateComment(ctx context.Context, payload contracts.CreateComment) (*contracts.CommentResponse, error)
	FindAllComments(ctx context.Context, taskID int64) (*contracts.CommentsResponse, error)
}
