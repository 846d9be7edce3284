package models

import "time"

// Priority values. Canonical capitalized strings, validated case-sensitively.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Status values. The exposed transition is Pending -> Completed only.
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
)

// Task represents a to-do item owned by exactly one user.
// UserID and CreatedAt are immutable after creation.
type Task struct {
	ID          int        `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	Priority    string     `json:"priority" db:"priority"`
	Status      string     `json:"status" db:"status"`
	UserID      int        `json:"user_id" db:"user_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// ValidPriority reports whether p is one of the canonical priority values.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the canonical status values.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusCompleted:
		return true
	}
	return false
}
