package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/go-task-api/internal/models"
	"github.com/taskdeck/go-task-api/internal/tasks"
)

/*
handles routes:
- GET /tasks?status=&priority=&category=&sort= - list the caller's tasks
- POST /tasks - create a new task
*/
func (h *Handler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTasks(w, r)
	case http.MethodPost:
		h.createTask(w, r)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query, err := tasks.BuildListQuery(r.URL.Query())
	if err != nil {
		sendServiceError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.TaskRepo.List(ctx, userID, query)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.Task{}
	}
	sendJSON(w, http.StatusOK, list)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	var input tasks.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	task, err := tasks.NewTask(userID, &input, time.Now().UTC())
	if err != nil {
		sendServiceError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.TaskRepo.Create(ctx, task); err != nil {
		sendServiceError(w, err)
		return
	}
	h.WSHub.BroadcastTaskEvent(userID, "task_created", task)
	w.Header().Set("Location", "/task/"+task.ID.String())
	sendJSON(w, http.StatusCreated, task)
}

/*
handles routes:
- GET /task/{id}
- PUT /task/{id} - partial update through the lifecycle rules
- DELETE /task/{id}
- PUT /task/{id}/complete
- PUT /task/{id}/pending
*/
func (h *Handler) HandleTaskByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/task/")
	taskIDStr, action, _ := strings.Cut(rest, "/")
	if taskIDStr == "" {
		sendError(w, "task_id is required", http.StatusBadRequest)
		return
	}
	taskID, err := uuid.Parse(taskIDStr)
	if err != nil {
		sendError(w, "task_id must be a valid uuid", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.getTask(w, ctx, userID, taskID)
		case http.MethodPut:
			h.updateTask(w, r, ctx, userID, taskID)
		case http.MethodDelete:
			h.deleteTask(w, ctx, userID, taskID)
		default:
			sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "complete":
		h.setTaskStatus(w, r, ctx, userID, taskID, models.StatusCompleted)
	case "pending":
		h.setTaskStatus(w, r, ctx, userID, taskID, models.StatusPending)
	default:
		sendError(w, "Not found", http.StatusNotFound)
	}
}

func (h *Handler) getTask(w http.ResponseWriter, ctx context.Context, userID, taskID uuid.UUID) {
	task, err := h.TaskRepo.GetByID(ctx, userID, taskID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, task)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request, ctx context.Context, userID, taskID uuid.UUID) {
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	var patch tasks.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	task, err := h.TaskRepo.Update(ctx, userID, taskID, &patch)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	h.WSHub.BroadcastTaskEvent(userID, "task_updated", task)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setTaskStatus(w http.ResponseWriter, r *http.Request, ctx context.Context, userID, taskID uuid.UUID, status models.Status) {
	if r.Method != http.MethodPut {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	task, err := h.TaskRepo.SetStatus(ctx, userID, taskID, status)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	h.WSHub.BroadcastTaskEvent(userID, "task_updated", task)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteTask(w http.ResponseWriter, ctx context.Context, userID, taskID uuid.UUID) {
	task, err := h.TaskRepo.GetByID(ctx, userID, taskID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if err := h.TaskRepo.Delete(ctx, userID, taskID); err != nil {
		sendServiceError(w, err)
		return
	}
	h.WSHub.BroadcastTaskEvent(userID, "task_deleted", task)
	w.WriteHeader(http.StatusNoContent)
}
