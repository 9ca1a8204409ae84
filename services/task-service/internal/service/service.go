package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taskhive/task-platform/services/task-service/internal/domain"
	"github.com/taskhive/task-platform/shared/contracts"
	apperrors "github.com/taskhive/task-platform/shared/errors"
	"github.com/taskhive/task-platform/shared/logging"
)

// Emitter sends fire-and-forget messages: the audit-log self-emission
// and user notifications. Delivery is at-most-once with no confirmation.
type Emitter interface {
	Emit(ctx context.Context, pattern string, payload interface{}) error
}

type taskService struct {
	tasks     domain.TaskRepository
	logs      domain.LogRepository
	comments  domain.CommentRepository
	cache     domain.TaskCache
	policy    domain.TransitionPolicy
	taskQueue Emitter
	notifier  Emitter
	logger    *logging.Logger
}

type Options struct {
	Tasks    domain.TaskRepository
	Logs     domain.LogRepository
	Comments domain.CommentRepository
	Cache    domain.TaskCache
	Policy   domain.TransitionPolicy

	// TaskQueue emits back onto this service's own queue (audit logs).
	TaskQueue Emitter
	// Notifier emits onto the notification service's queue.
	Notifier Emitter

	Logger *logging.Logger
}

func NewTaskService(opts Options) domain.TaskService {
	if opts.Policy == nil {
		opts.Policy = domain.PermitAll{}
	}
	return &taskService{
		tasks:     opts.Tasks,
		logs:      opts.Logs,
		comments:  opts.Comments,
		cache:     opts.Cache,
		policy:    opts.Policy,
		taskQueue: opts.TaskQueue,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
	}
}

func (s *taskService) Create(ctx context.Context, payload contracts.CreateTask) (*contracts.TaskResponse, error) {
	if payload.Title == "" {
		return nil, apperrors.Validation("title", "must not be empty")
	}
	if payload.CreatorID <= 0 {
		return nil, apperrors.Validation("creatorId", "must be a positive user id")
	}

	priority := contracts.TaskPriorityMedium
	if payload.Priority != nil {
		if !payload.Priority.Valid() {
			return nil, apperrors.Validation("priority", "must be LOW, MEDIUM or HIGH")
		}
		priority = *payload.Priority
	}

	task := &domain.Task{
		Title:       payload.Title,
		Description: payload.Description,
		Deadline:    payload.Prazo,
		Priority:    priority,
		Status:      contracts.TaskStatusTodo,
		CreatorID:   payload.CreatorID,
		Members:     dedupe(payload.UserIDs),
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.Internal("failed to create task").WithCause(err)
	}

	s.emitLog(ctx, task.ID, payload.CreatorID, "task created")
	s.notifyMembers(ctx, task, "You have been assigned to a task", task.Title)

	wire := toWireTask(task)
	return &contracts.TaskResponse{Message: "task created successfully", Data: &wire}, nil
}

func (s *taskService) Update(ctx context.Context, payload contracts.UpdateTask) (*contracts.MessageResponse, error) {
	if payload.ID <= 0 {
		return nil, apperrors.Validation("id", "must be a positive task id")
	}

	task, err := s.tasks.FindByID(ctx, payload.ID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, apperrors.NotFound("task", payload.ID)
		}
		return nil, apperrors.Internal("failed to update task").WithCause(err)
	}

	var changes []string
	if payload.Title != nil {
		task.Title = *payload.Title
		changes = append(changes, "title")
	}
	if payload.Description != nil {
		task.Description = *payload.Description
		changes = append(changes, "description")
	}
	if payload.Deadline != nil {
		task.Deadline = payload.Deadline
		changes = append(changes, "deadline")
	}
	if payload.Priority != nil {
		if !payload.Priority.Valid() {
			return nil, apperrors.Validation("priority", "must be LOW, MEDIUM or HIGH")
		}
		task.Priority = *payload.Priority
		changes = append(changes, "priority")
	}
	if payload.Status != nil {
		if !payload.Status.Valid() {
			return nil, apperrors.Validation("status", "must be TODO, IN_PROGRESS, REVIEW or DONE")
		}
		if !s.policy.Allowed(task.Status, *payload.Status) {
			return nil, apperrors.Validation("status",
				fmt.Sprintf("transition %s -> %s is not allowed", task.Status, *payload.Status))
		}
		task.Status = *payload.Status
		changes = append(changes, "status")
	}

	var members []int64
	if payload.UserIDs != nil {
		members = dedupe(payload.UserIDs)
		changes = append(changes, "members")
	}

	if err := s.tasks.Update(ctx, task, members); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, apperrors.NotFound("task", payload.ID)
		}
		return nil, apperrors.Internal("failed to update task").WithCause(err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, task.ID)
	}

	if len(changes) > 0 {
		s.emitLog(ctx, task.ID, task.CreatorID, "updated "+strings.Join(changes, ", "))
	}
	if members != nil {
		task.Members = members
	}
	s.notifyMembers(ctx, task, "A task you are assigned to was updated", task.Title)

	return &contracts.MessageResponse{Message: "task updated successfully"}, nil
}

func (s *taskService) FindOne(ctx context.Context, id int64) (*contracts.Task, error) {
	if id <= 0 {
		return nil, apperrors.Validation("id", "must be a positive task id")
	}

	if s.cache != nil {
		if task, ok := s.cache.Get(ctx, id); ok {
			wire := toWireTask(task)
			return &wire, nil
		}
	}

	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, apperrors.NotFound("task", id)
		}
		return nil, apperrors.Internal("failed to load task").WithCause(err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, task)
	}
	wire := toWireTask(task)
	return &wire, nil
}

// FindAll resolves the membership relation first when a userId filter is
// present; the remaining filters are intersected in memory afterwards.
// Without a userId the filters go straight to the task table.
func (s *taskService) FindAll(ctx context.Context, filters contracts.FindAllFilters) ([]contracts.Task, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, apperrors.Validation("status", "must be TODO, IN_PROGRESS, REVIEW or DONE")
	}
	if filters.Priority != "" && !filters.Priority.Valid() {
		return nil, apperrors.Validation("priority", "must be LOW, MEDIUM or HIGH")
	}

	var (
		tasks []domain.Task
		err   error
	)
	if filters.UserID > 0 {
		tasks, err = s.tasks.FindByMember(ctx, filters.UserID)
		if err == nil {
			tasks = intersect(tasks, filters)
		}
	} else {
		tasks, err = s.tasks.FindAll(ctx, domain.TaskFilters{
			Title:    filters.Title,
			Status:   filters.Status,
			Priority: filters.Priority,
		})
	}
	if err != nil {
		return nil, apperrors.Internal("failed to list tasks").WithCause(err)
	}

	wire := make([]contracts.Task, 0, len(tasks))
	for i := range tasks {
		wire = append(wire, toWireTask(&tasks[i]))
	}
	return wire, nil
}

func (s *taskService) AddLog(ctx context.Context, payload contracts.AddLog) (*contracts.TaskLog, error) {
	if payload.TaskID <= 0 {
		return nil, apperrors.Validation("taskId", "must be a positive task id")
	}
	if payload.Change == "" {
		return nil, apperrors.Validation("change", "must not be empty")
	}

	exists, err := s.tasks.Exists(ctx, payload.TaskID)
	if err != nil {
		return nil, apperrors.Internal("failed to append task log").WithCause(err)
	}
	if !exists {
		return nil, apperrors.NotFound("task", payload.TaskID)
	}

	log := &domain.TaskLog{
		TaskID: payload.TaskID,
		UserID: payload.UserID,
		Change: payload.Change,
	}
	if err := s.logs.Append(ctx, log); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, apperrors.NotFound("task", payload.TaskID)
		}
		return nil, apperrors.Internal("failed to append task log").WithCause(err)
	}

	return &contracts.TaskLog{
		ID:        log.ID,
		TaskID:    log.TaskID,
		UserID:    log.UserID,
		Change:    log.Change,
		CreatedAt: log.CreatedAt,
	}, nil
}

func (s *taskService) CreateComment(ctx context.Context, payload contracts.CreateComment) (*contracts.CommentResponse, error) {
	if payload.Content == "" {
		return nil, apperrors.Validation("content", "must not be empty")
	}

	exists, err := s.tasks.Exists(ctx, payload.TaskID)
	if err != nil {
		return nil, apperrors.Internal("failed to create comment").WithCause(err)
	}
	if !exists {
		return nil, apperrors.NotFound("task", payload.TaskID)
	}

	comment := &domain.Comment{
		Content: payload.Content,
		TaskID:  payload.TaskID,
		UserID:  payload.UserID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, apperrors.NotFound("task", payload.TaskID)
		}
		return nil, apperrors.Internal("failed to create comment").WithCause(err)
	}

	s.emitLog(ctx, payload.TaskID, payload.UserID, "comment added")

	return &contracts.CommentResponse{
		Message: "comment created successfully",
		Data: &contracts.Comment{
			ID:        comment.ID,
			Content:   comment.Content,
			TaskID:    comment.TaskID,
			UserID:    comment.UserID,
			CreatedAt: comment.CreatedAt,
		},
	}, nil
}

func (s *taskService) FindAllComments(ctx context.Context, taskID int64) (*contracts.CommentsResponse, error) {
	exists, err := s.tasks.Exists(ctx, taskID)
	if err != nil {
		return nil, apperrors.Internal("failed to list comments").WithCause(err)
	}
	if !exists {
		return nil, apperrors.NotFound("task", taskID)
	}

	comments, err := s.comments.FindByTask(ctx, taskID)
	if err != nil {
		return nil, apperrors.Internal("failed to list comments").WithCause(err)
	}

	wire := make([]contracts.Comment, 0, len(comments))
	for _, c := range comments {
		wire = append(wire, contracts.Comment{
			ID:        c.ID,
			Content:   c.Content,
			TaskID:    c.TaskID,
			UserID:    c.UserID,
			CreatedAt: c.CreatedAt,
		})
	}
	return &contracts.CommentsResponse{Message: "comments fetched successfully", Data: wire}, nil
}

// emitLog appends the audit entry through the service's own queue.
// At-most-once: a failed emission is logged and forgotten.
func (s *taskService) emitLog(ctx context.Context, taskID, userID int64, change string) {
	if s.taskQueue == nil {
		return
	}
	err := s.taskQueue.Emit(ctx, contracts.AddTaskLogPattern, contracts.AddLog{
		TaskID: taskID,
		UserID: userID,
		Change: change,
	})
	if err != nil && s.logger != nil {
		s.logger.WithError(err).WithField("task_id", taskID).Warn("audit log emission failed")
	}
}

func (s *taskService) notifyMembers(ctx context.Context, task *domain.Task, title, message string) {
	if s.notifier == nil {
		return
	}
	for _, userID := range task.Members {
		err := s.notifier.Emit(ctx, contracts.HandleNotificationPattern, contracts.NotificationMessage{
			Title:   title,
			Message: message,
			Type:    contracts.NotificationInfo,
			UserID:  userID,
		})
		if err != nil && s.logger != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("notification emission failed")
		}
	}
}

func toWireTask(task *domain.Task) contracts.Task {
	members := task.Members
	if members == nil {
		members = []int64{}
	}
	return contracts.Task{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Deadline:    task.Deadline,
		Priority:    task.Priority,
		Status:      task.Status,
		CreatorID:   task.CreatorID,
		UserIDs:     members,
		CreatedAt:   task.CreatedAt,
	}
}

func intersect(tasks []domain.Task, filters contracts.FindAllFilters) []domain.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if filters.Status != "" && t.Status != filters.Status {
			continue
		}
		if filters.Priority != "" && t.Priority != filters.Priority {
			continue
		}
		out = append(out, t)
	}
	return out
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
