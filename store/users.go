package store

import (
	"database/sql"
	"strings"
	"time"

	"taskmaster/models"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the credential store. It owns all SQL touching the users
// table and all password hashing.
type UserStore struct {
	db   *sqlx.DB
	cost int
}

// NewUserStore creates a user store hashing passwords at the given
// bcrypt cost.
func NewUserStore(db *sqlx.DB, bcryptCost int) *UserStore {
	return &UserStore{db: db, cost: bcryptCost}
}

// NormalizeEmail lowercases and trims an email address. Emails are
// normalized on every write and lookup, so uniqueness is effectively
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user with a bcrypt-hashed password. Returns
// ErrEmailTaken when the email is already on file.
func (s *UserStore) Register(name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	var existing int
	err := s.db.QueryRow("SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&existing)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result, err := s.db.Exec("INSERT INTO users (name, email, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		name, email, string(hashed), now, now)
	if err != nil {
		// The unique index is the backstop for concurrent registrations.
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:        int(id),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Authenticate verifies an email/password pair. An unknown email and a
// wrong password both fail with ErrInvalidCredentials.
func (s *UserStore) Authenticate(email, password string) (*models.User, error) {
	email = NormalizeEmail(email)

	var user models.User
	err := s.db.QueryRow("SELECT id, name, email, password, created_at, updated_at FROM users WHERE email = ?", email).
		Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetByID fetches a user by primary key.
func (s *UserStore) GetByID(id int) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow("SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
