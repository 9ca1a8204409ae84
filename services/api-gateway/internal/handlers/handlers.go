// Package handlers wires the gateway's REST surface onto the messaging
// clients for the auth and task services.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taskhive/task-platform/services/api-gateway/internal/middleware"
	"github.com/taskhive/task-platform/shared/contracts"
	apperrors "github.com/taskhive/task-platform/shared/errors"
)

// Caller is the request/reply surface of a messaging client.
type Caller interface {
	Call(ctx context.Context, pattern string, payload, out interface{}) error
}

// Gateway translates HTTP requests into broker calls.
type Gateway struct {
	auth Caller
	task Caller
}

func NewGateway(auth, task Caller) *Gateway {
	return &Gateway{auth: auth, task: task}
}

func decode(r *http.Request, out interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return apperrors.Validation("body", "malformed JSON")
	}
	return nil
}

func (g *Gateway) Login(w http.ResponseWriter, r *http.Request) {
	var payload contracts.LoginUser
	if err := decode(r, &payload); err != nil {
		middleware.WriteError(w, err)
		return
	}

	var resp contracts.AuthResponse
	if err := g.auth.Call(r.Context(), contracts.LoginUserPattern, payload, &resp); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

func (g *Gateway) Register(w http.ResponseWriter, r *http.Request) {
	var payload contracts.RegisterUser
	if err := decode(r, &payload); err != nil {
		middleware.WriteError(w, err)
		return
	}

	var resp contracts.AuthResponse
	if err := g.auth.Call(r.Context(), contracts.RegisterUserPattern, payload, &resp); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, resp)
}

func (g *Gateway) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var payload contracts.RefreshToken
	if err := decode(r, &payload); err != nil {
		middleware.WriteError(w, err)
		return
	}

	var resp contracts.AuthResponse
	if err := g.auth.Call(r.Context(), contracts.RefreshTokenPattern, payload, &resp); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

func (g *Gateway) ListUsers(w http.ResponseWriter, r *http.Request) {
	var users []contracts.ListedUser
	if err := g.auth.Call(r.Context(), contracts.FindAllUsersPattern, struct{}{}, &users); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if users == nil {
		users = []contracts.ListedUser{}
	}
	middleware.WriteJSON(w, http.StatusOK, users)
}

// UpdateUser updates the authenticated user's own account.
func (g *Gateway) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		middleware.WriteError(w, apperrors.Unauthorized("missing bearer token"))
		return
	}

	var payload contracts.UpdateUser
	if err := decode(r, &payload); err != nil {
		middleware.WriteError(w, err)
		return
	}
	payload.ID = userID

	var resp contracts.MessageResponse
	if err := g.auth.Call(r.Context(), contracts.UpdateUserPattern, payload, &resp); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

func (g *Gateway) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		middleware.WriteError(w, apperrors.Unauthorized("missing bearer token"))
		return
	}

	var payload contracts.CreateTask
	if err := decode(r, &payload); err != nil {
		middleware.WriteError(w, err)
		return
	}
	payload.CreatorID = userID

	var resp contracts.TaskResponse
	if err := g.task.Call(r.Context(), contracts.CreateTaskPattern, payload, &resp); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, resp)
}

func (g *Gateway) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var payload contracts.UpdateTask
	if err := decode(r, &payload); err != nil {
		middleware.WriteError(w, err)
		return
	}

	var resp contracts.MessageResponse
	if err := g.task.Call(r.Context(), contracts.UpdateTaskPattern, payload, &resp); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// ListTasks reads the filters from query parameters.
func (g *Gateway) ListTasks(w http.ResponseWriter, r *http.Request) {
	filters := contracts.FindAllFilters{
		Title:    r.URL.Query().Get("title"),
		Status:   contracts.TaskStatus(r.URL.Query().Get("status")),
		Priority: contracts.TaskPriority(r.URL.Query().Get("priority")),
	}
	if raw := r.URL.Query().Get("userId"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			middleware.WriteError(w, apperrors.Validation("userId", "must be an integer"))
			return
		}
		filters.UserID = userID
	}

	var tasks []contracts.Task
	if err := g.task.Call(r.Context(), contracts.FindAllTasksPattern, filters, &tasks); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if tasks == nil {
		tasks = []contracts.Task{}
	}
	middleware.WriteJSON(w, http.StatusOK, tasks)
}

func (g *Gateway) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var task contracts.Task
	if err := g.task.Call(r.Context(), contracts.FindOneTaskPattern, id, &task); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, task)
}

func (g *Gateway) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		middleware.WriteError(w, apperrors.Unauthorized("missing bearer token"))
		return
	}

	var payload contracts.CreateComment
	if err := decode(r, &payload); err != nil {
		middleware.WriteError(w, err)
		return
	}
	payload.UserID = userID

	var resp contracts.CommentResponse
	if err := g.task.Call(r.Context(), contracts.CreateCommentPattern, payload, &resp); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, resp)
}

func (g *Gateway) ListComments(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var resp contracts.CommentsResponse
	if err := g.task.Call(r.Context(), contracts.FindAllCommentsPattern, taskID, &resp); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

func pathID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation(param, "must be a positive integer")
	}
	return id, nil
}
