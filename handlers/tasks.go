package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"taskmaster/models"
	"taskmaster/sessions"
	"taskmaster/store"
	"taskmaster/views"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TaskHandler serves the dashboard and task CRUD pages. Each handler is
// a thin composition: resolve identity, validate input, one store call,
// render or redirect.
type TaskHandler struct {
	tasks    *store.TaskStore
	sessions *sessions.Manager
	views    *views.Renderer
}

// NewTaskHandler creates a task handler.
func NewTaskHandler(tasks *store.TaskStore, s *sessions.Manager, v *views.Renderer) *TaskHandler {
	return &TaskHandler{tasks: tasks, sessions: s, views: v}
}

// Home handles GET /.
func (h *TaskHandler) Home(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(h.sessions, w, r); !ok {
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Dashboard handles GET /dashboard - the current user's task list.
func (h *TaskHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireUser(h.sessions, w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListByOwner(identity.UserID)
	if err != nil {
		logRequest(r, "error", "Failed to list tasks", zap.Error(err), zap.Int("user_id", identity.UserID))
		renderError(h.views, w, identity, http.StatusInternalServerError, "Something went wrong")
		return
	}

	now := time.Now()
	rows := make([]views.TaskRow, 0, len(tasks))
	completed := 0
	for _, t := range tasks {
		row := taskRow(t, now)
		if row.Completed {
			completed++
		}
		rows = append(rows, row)
	}

	logRequest(r, "info", "Dashboard rendered", zap.Int("user_id", identity.UserID), zap.Int("count", len(tasks)))

	h.views.Render(w, http.StatusOK, "dashboard.html", views.DashboardData{
		Page:      page("Dashboard", identity, popFlash(w, r)),
		Tasks:     rows,
		Total:     len(tasks),
		Completed: completed,
		Pending:   len(tasks) - completed,
	})
}

// New handles GET/POST /task/new.
func (h *TaskHandler) New(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireUser(h.sessions, w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet {
		h.views.Render(w, http.StatusOK, "task_form.html", views.TaskFormData{
			Page:    page("New Task", identity, popFlash(w, r)),
			Heading: "Create New Task",
			Action:  "/task/new",
			Submit:  "Create Task",
			Form:    views.TaskForm{Priority: models.PriorityMedium},
		})
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	dueDate, err := store.ParseDueDate(r.PostFormValue("due_date"))
	if err == nil {
		_, err = h.tasks.Create(identity.UserID, r.PostFormValue("title"), r.PostFormValue("description"), dueDate, r.PostFormValue("priority"))
	}
	if errors.Is(err, store.ErrInvalidInput) {
		setFlash(w, "danger", err.Error())
		http.Redirect(w, r, "/task/new", http.StatusFound)
		return
	}
	if err != nil {
		logRequest(r, "error", "Failed to create task", zap.Error(err), zap.Int("user_id", identity.UserID))
		renderError(h.views, w, identity, http.StatusInternalServerError, "Something went wrong")
		return
	}

	logRequest(r, "info", "Task created", zap.Int("user_id", identity.UserID))
	setFlash(w, "success", "Task created successfully!")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Edit handles GET/POST /task/{id}/edit.
func (h *TaskHandler) Edit(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireUser(h.sessions, w, r)
	if !ok {
		return
	}

	taskID, ok := h.taskID(w, r, identity)
	if !ok {
		return
	}

	if r.Method == http.MethodGet {
		task, err := h.tasks.Get(taskID, identity.UserID)
		if err != nil {
			h.taskError(w, r, identity, err)
			return
		}

		form := views.TaskForm{
			Title:       task.Title,
			Description: task.Description,
			Priority:    task.Priority,
		}
		if task.DueDate != nil {
			form.DueDate = task.DueDate.Format("2006-01-02")
		}

		h.views.Render(w, http.StatusOK, "task_form.html", views.TaskFormData{
			Page:    page("Edit Task", identity, popFlash(w, r)),
			Heading: "Edit Task",
			Action:  fmt.Sprintf("/task/%d/edit", taskID),
			Submit:  "Update Task",
			Form:    form,
		})
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	title := r.PostFormValue("title")
	description := r.PostFormValue("description")
	priority := r.PostFormValue("priority")

	dueDate, err := store.ParseDueDate(r.PostFormValue("due_date"))
	if err == nil {
		_, err = h.tasks.Update(taskID, identity.UserID, store.TaskUpdate{
			Title:       &title,
			Description: &description,
			DueDate:     dueDate,
			SetDueDate:  true,
			Priority:    &priority,
		})
	}
	if errors.Is(err, store.ErrInvalidInput) {
		setFlash(w, "danger", err.Error())
		http.Redirect(w, r, fmt.Sprintf("/task/%d/edit", taskID), http.StatusFound)
		return
	}
	if err != nil {
		h.taskError(w, r, identity, err)
		return
	}

	logRequest(r, "info", "Task updated", zap.Int("task_id", taskID), zap.Int("user_id", identity.UserID))
	setFlash(w, "success", "Task updated successfully!")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Complete handles POST /task/{id}/complete. Completing an already
// completed task is a no-op, not an error.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireUser(h.sessions, w, r)
	if !ok {
		return
	}

	taskID, ok := h.taskID(w, r, identity)
	if !ok {
		return
	}

	if _, err := h.tasks.SetStatus(taskID, identity.UserID, models.StatusCompleted); err != nil {
		h.taskError(w, r, identity, err)
		return
	}

	logRequest(r, "info", "Task completed", zap.Int("task_id", taskID), zap.Int("user_id", identity.UserID))
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Delete handles POST /task/{id}/delete.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireUser(h.sessions, w, r)
	if !ok {
		return
	}

	taskID, ok := h.taskID(w, r, identity)
	if !ok {
		return
	}

	if err := h.tasks.Delete(taskID, identity.UserID); err != nil {
		h.taskError(w, r, identity, err)
		return
	}

	logRequest(r, "info", "Task deleted", zap.Int("task_id", taskID), zap.Int("user_id", identity.UserID))
	setFlash(w, "success", "Task deleted successfully!")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// taskID extracts the {id} path variable.
func (h *TaskHandler) taskID(w http.ResponseWriter, r *http.Request, identity *sessions.Identity) (int, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		logRequest(r, "error", "Invalid task ID", zap.String("id", idStr))
		renderError(h.views, w, identity, http.StatusBadRequest, "Invalid task ID")
		return 0, false
	}
	return id, true
}

// taskError maps store errors to response pages. Forbidden rejects with
// 403 rather than redirecting: the caller is authenticated, just not
// the owner.
func (h *TaskHandler) taskError(w http.ResponseWriter, r *http.Request, identity *sessions.Identity, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		renderError(h.views, w, identity, http.StatusNotFound, "Task not found")
	case errors.Is(err, store.ErrForbidden):
		logRequest(r, "error", "Ownership violation", zap.Int("user_id", identity.UserID))
		renderError(h.views, w, identity, http.StatusForbidden, "You do not have access to this task")
	default:
		logRequest(r, "error", "Task operation failed", zap.Error(err))
		renderError(h.views, w, identity, http.StatusInternalServerError, "Something went wrong")
	}
}

// taskRow converts a task to its display form.
func taskRow(t models.Task, now time.Time) views.TaskRow {
	row := views.TaskRow{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		Completed:   t.Status == models.StatusCompleted,
	}
	if t.DueDate != nil {
		row.DueDate = t.DueDate.Format("2006-01-02")
		row.Overdue = !row.Completed && t.DueDate.Before(now)
	}
	return row
}
