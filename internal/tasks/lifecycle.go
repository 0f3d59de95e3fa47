package tasks

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/go-task-api/internal/models"
)

// CreateRequest carries the user-suppliable fields of a new task. Status
// and completion date are not among them: every task starts PENDING with
// no completion date, owned by the authenticated caller.
type CreateRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Deadline    *time.Time      `json:"deadline"`
	Priority    models.Priority `json:"priority"`
	Category    models.Category `json:"category"`
}

// Patch is a partial task update; nil fields are left untouched.
type Patch struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Deadline    *time.Time       `json:"deadline"`
	Priority    *models.Priority `json:"priority"`
	Category    *models.Category `json:"category"`
	Status      *models.Status   `json:"status"`
}

// editsFields reports whether the patch touches anything besides status.
func (p *Patch) editsFields() bool {
	return p.Title != nil || p.Description != nil || p.Deadline != nil ||
		p.Priority != nil || p.Category != nil
}

func (p *Patch) validate(now time.Time) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &models.FieldError{Field: "title", Reason: "must not be empty"}
	}
	if p.Deadline != nil && !ValidDeadline(*p.Deadline, now) {
		return &models.FieldError{Field: "deadline", Reason: "must be in the future"}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return &models.FieldError{Field: "priority", Reason: "invalid priority value"}
	}
	if p.Category != nil && !p.Category.Valid() {
		return &models.FieldError{Field: "category", Reason: "invalid category value"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return &models.FieldError{Field: "status", Reason: "invalid status value"}
	}
	return nil
}

// NewTask builds a task from a create request.
func NewTask(ownerID uuid.UUID, req *CreateRequest, now time.Time) (*models.Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, &models.FieldError{Field: "title", Reason: "must not be empty"}
	}
	if req.Deadline != nil && !ValidDeadline(*req.Deadline, now) {
		return nil, &models.FieldError{Field: "deadline", Reason: "must be in the future"}
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityLow
	}
	if !priority.Valid() {
		return nil, &models.FieldError{Field: "priority", Reason: "invalid priority value"}
	}

	category := req.Category
	if category == "" {
		category = models.CategoryUncategorized
	}
	if !category.Valid() {
		return nil, &models.FieldError{Field: "category", Reason: "invalid category value"}
	}

	return &models.Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Deadline:    req.Deadline,
		Priority:    priority,
		Status:      models.StatusPending,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ApplyPatch validates the whole patch against the current task state and
// returns the merged task with completion date recomputed. The patch is
// either applied in full or not at all; the input task is not modified.
func ApplyPatch(task models.Task, p *Patch, now time.Time) (models.Task, error) {
	if task.Status == models.StatusCompleted && p.editsFields() {
		return models.Task{}, &models.ConflictError{Reason: "cannot edit completed task"}
	}
	if err := p.validate(now); err != nil {
		return models.Task{}, err
	}

	if p.Status != nil {
		if *p.Status == task.Status {
			return models.Task{}, &models.ConflictError{
				Reason: "task is already " + string(task.Status),
			}
		}
		switch *p.Status {
		case models.StatusCompleted:
			completed := now
			task.Status = models.StatusCompleted
			task.CompletionDate = &completed
		case models.StatusPending:
			task.Status = models.StatusPending
			task.CompletionDate = nil
		}
	}

	if p.Title != nil {
		task.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Deadline != nil {
		task.Deadline = p.Deadline
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.Category != nil {
		task.Category = *p.Category
	}
	task.UpdatedAt = now

	return task, nil
}
