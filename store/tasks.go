package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"taskmaster/models"

	"github.com/jmoiron/sqlx"
)

// dueDateLayout is the only accepted due-date form: a calendar date
// with no time of day.
const dueDateLayout = "2006-01-02"

// ParseDueDate parses a form due-date value. Empty means no due date;
// anything else must be a YYYY-MM-DD calendar date.
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dueDateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: due date must be YYYY-MM-DD", ErrInvalidInput)
	}
	return &t, nil
}

// TaskUpdate carries the mutable task fields for Update. Nil pointers
// leave the column untouched; DueDate applies only when SetDueDate is
// true, with nil clearing the date.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	SetDueDate  bool
	Priority    *string
}

// TaskStore persists tasks scoped to an owning user. Every mutation
// includes the owner id in its SQL predicate, so the ownership check
// and the write are one atomic statement.
type TaskStore struct {
	db *sqlx.DB
}

// NewTaskStore creates a task store.
func NewTaskStore(db *sqlx.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Create inserts a new task for ownerID. The title must be non-blank;
// an empty priority defaults to Medium; status always starts Pending.
func (s *TaskStore) Create(ownerID int, title, description string, dueDate *time.Time, priority string) (*models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, fmt.Errorf("%w: priority must be Low, Medium or High", ErrInvalidInput)
	}

	now := time.Now()
	result, err := s.db.Exec("INSERT INTO tasks (title, description, due_date, priority, status, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		title, description, dueDate, priority, models.StatusPending, ownerID, now)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Task{
		ID:          int(id),
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		Priority:    priority,
		Status:      models.StatusPending,
		UserID:      ownerID,
		CreatedAt:   now,
	}, nil
}

// ListByOwner returns all tasks owned by ownerID ordered by due date
// ascending. Tasks without a due date sort last, then by id.
func (s *TaskStore) ListByOwner(ownerID int) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.Select(&tasks,
		"SELECT id, title, description, due_date, priority, status, user_id, created_at FROM tasks WHERE user_id = ? ORDER BY due_date IS NULL, due_date ASC, id ASC",
		ownerID)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Get fetches a single task. ErrNotFound when the id does not exist,
// ErrForbidden when it belongs to another user.
func (s *TaskStore) Get(taskID, ownerID int) (*models.Task, error) {
	var task models.Task
	err := s.db.QueryRowx("SELECT id, title, description, due_date, priority, status, user_id, created_at FROM tasks WHERE id = ?", taskID).
		StructScan(&task)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if task.UserID != ownerID {
		return nil, ErrForbidden
	}
	return &task, nil
}

// Update applies the provided fields to a task owned by ownerID. The
// owner id is part of the UPDATE predicate, so a non-owner can never
// mutate the row even under concurrent requests.
func (s *TaskStore) Update(taskID, ownerID int, fields TaskUpdate) (*models.Task, error) {
	setParts := []string{}
	args := []interface{}{}

	if fields.Title != nil {
		title := strings.TrimSpace(*fields.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		setParts = append(setParts, "title = ?")
		args = append(args, title)
	}
	if fields.Description != nil {
		setParts = append(setParts, "description = ?")
		args = append(args, *fields.Description)
	}
	if fields.SetDueDate {
		setParts = append(setParts, "due_date = ?")
		args = append(args, fields.DueDate)
	}
	if fields.Priority != nil {
		if !models.ValidPriority(*fields.Priority) {
			return nil, fmt.Errorf("%w: priority must be Low, Medium or High", ErrInvalidInput)
		}
		setParts = append(setParts, "priority = ?")
		args = append(args, *fields.Priority)
	}

	if len(setParts) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}

	args = append(args, taskID, ownerID)
	query := "UPDATE tasks SET " + strings.Join(setParts, ", ") + " WHERE id = ? AND user_id = ?"
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, s.classifyMiss(taskID)
	}

	return s.Get(taskID, ownerID)
}

// SetStatus sets a task's status for its owner. Setting an already-set
// status is not an error, so completing twice is idempotent.
func (s *TaskStore) SetStatus(taskID, ownerID int, status string) (*models.Task, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("%w: status must be Pending or Completed", ErrInvalidInput)
	}

	result, err := s.db.Exec("UPDATE tasks SET status = ? WHERE id = ? AND user_id = ?", status, taskID, ownerID)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, s.classifyMiss(taskID)
	}

	return s.Get(taskID, ownerID)
}

// Delete removes a task owned by ownerID.
func (s *TaskStore) Delete(taskID, ownerID int) error {
	result, err := s.db.Exec("DELETE FROM tasks WHERE id = ? AND user_id = ?", taskID, ownerID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return s.classifyMiss(taskID)
	}
	return nil
}

// classifyMiss distinguishes a missing row from someone else's row
// after a zero-row conditional write.
func (s *TaskStore) classifyMiss(taskID int) error {
	var ownerID int
	err := s.db.QueryRow("SELECT user_id FROM tasks WHERE id = ?", taskID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrForbidden
}
