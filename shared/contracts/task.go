package contracts

import "time"

// TaskStatus enumerates the lifecycle states of a task. The natural
// progression is TODO -> IN_PROGRESS -> REVIEW -> DONE, but transitions
// are not enforced by default (see task-service transition policy).
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusReview     TaskStatus = "REVIEW"
	TaskStatusDone       TaskStatus = "DONE"
)

// Valid reports whether s is a known status value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority enumerates task priorities.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// Valid reports whether p is a known priority value.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task is the wire representation of a task.
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	CreatorID   int64        `json:"creatorId"`
	UserIDs     []int64      `json:"userIds"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// CreateTask is the payload for the create-task pattern. Prazo carries the
// deadline; the field name is kept from the upstream API contract.
type CreateTask struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Prazo       *time.Time    `json:"prazo,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	UserIDs     []int64       `json:"userIds"`
	CreatorID   int64         `json:"creatorId"`
}

// UpdateTask is the payload for the update-task pattern. Nil fields keep
// their stored values; a non-nil UserIDs replaces the membership set.
type UpdateTask struct {
	ID          int64         `json:"id"`
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Deadline    *time.Time    `json:"deadline,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	UserIDs     []int64       `json:"userIds,omitempty"`
}

// FindAllFilters is the payload for the find-all-tasks pattern. When UserID
// is set the membership relation is the primary query path and the other
// filters are applied as an intersection afterwards.
type FindAllFilters struct {
	Title    string       `json:"title,omitempty"`
	Status   TaskStatus   `json:"status,omitempty"`
	Priority TaskPriority `json:"priority,omitempty"`
	UserID   int64        `json:"userId,omitempty"`
}

// AddLog is the payload for the add-task-log pattern.
type AddLog struct {
	TaskID int64  `json:"taskId"`
	UserID int64  `json:"userId"`
	Change string `json:"change"`
}

// TaskLog is an audit-log entry, the reply for add-task-log.
type TaskLog struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"taskId"`
	UserID    int64     `json:"userId"`
	Change    string    `json:"change"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateComment is the payload for the create-comment pattern.
type CreateComment struct {
	Content string `json:"content"`
	TaskID  int64  `json:"taskId"`
	UserID  int64  `json:"userId"`
}

// Comment is the wire representation of a task comment.
type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	TaskID    int64     `json:"taskId"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskResponse is the {message, data} reply for create-task.
type TaskResponse struct {
	Message string `json:"message"`
	Data    *Task  `json:"data,omitempty"`
}

// CommentResponse is the {message, data} reply for create-comment.
type CommentResponse struct {
	Message string   `json:"message"`
	Data    *Comment `json:"data,omitempty"`
}

// CommentsResponse is the {message, data} reply for find-all-comments.
type CommentsResponse struct {
	Message string    `json:"message"`
	Data    []Comment `json:"data"`
}
