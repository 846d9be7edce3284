package store

import "errors"

var (
	// ErrInvalidInput signals a malformed or missing required field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmailTaken signals a registration conflict on the email column.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for both an unknown email and a
	// wrong password so a caller cannot tell which case occurred.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNotFound signals that the referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden signals that the row exists but belongs to another user.
	ErrForbidden = errors.New("forbidden")
)
