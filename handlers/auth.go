package handlers

import (
	"errors"
	"net/http"

	"taskmaster/sessions"
	"taskmaster/store"
	"taskmaster/views"

	"go.uber.org/zap"
)

// AuthHandler serves the registration, login, logout and profile pages.
type AuthHandler struct {
	users    *store.UserStore
	sessions *sessions.Manager
	views    *views.Renderer
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(users *store.UserStore, s *sessions.Manager, v *views.Renderer) *AuthHandler {
	return &AuthHandler{users: users, sessions: s, views: v}
}

// Login handles GET/POST /login. A successful POST establishes a
// session and redirects to the dashboard.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Current(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	if r.Method == http.MethodGet {
		h.views.Render(w, http.StatusOK, "login.html", page("Login", nil, popFlash(w, r)))
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	user, err := h.users.Authenticate(email, password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		logRequest(r, "info", "Login failed", zap.String("email", store.NormalizeEmail(email)))
		setFlash(w, "danger", "Invalid email or password")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err != nil {
		logRequest(r, "error", "Login query failed", zap.Error(err))
		renderError(h.views, w, nil, http.StatusInternalServerError, "Something went wrong")
		return
	}

	h.sessions.Establish(w, user)
	logRequest(r, "info", "Login successful", zap.Int("user_id", user.ID))
	setFlash(w, "success", "Logged in successfully!")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Register handles GET/POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Current(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	if r.Method == http.MethodGet {
		h.views.Render(w, http.StatusOK, "register.html", page("Register", nil, popFlash(w, r)))
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("name")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("confirm_password")

	if password != confirm {
		setFlash(w, "danger", "Passwords do not match")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}

	user, err := h.users.Register(name, email, password)
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		setFlash(w, "danger", "Email already registered")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	case errors.Is(err, store.ErrInvalidInput):
		setFlash(w, "danger", "Name, email and password are required")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	case err != nil:
		logRequest(r, "error", "Registration failed", zap.Error(err))
		renderError(h.views, w, nil, http.StatusInternalServerError, "Something went wrong")
		return
	}

	logRequest(r, "info", "User registered", zap.Int("user_id", user.ID))
	setFlash(w, "success", "Registration successful! Please login.")
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Logout handles GET /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireUser(h.sessions, w, r)
	if !ok {
		return
	}

	h.sessions.Revoke(w, r)
	logRequest(r, "info", "Logout", zap.Int("user_id", identity.UserID))
	setFlash(w, "info", "You have been logged out")
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Profile handles GET /profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireUser(h.sessions, w, r)
	if !ok {
		return
	}

	user, err := h.users.GetByID(identity.UserID)
	if err != nil {
		logRequest(r, "error", "Profile lookup failed", zap.Error(err), zap.Int("user_id", identity.UserID))
		renderError(h.views, w, identity, http.StatusInternalServerError, "Something went wrong")
		return
	}

	h.views.Render(w, http.StatusOK, "profile.html", views.ProfileData{
		Page:   page("Profile", identity, popFlash(w, r)),
		Name:   user.Name,
		Email:  user.Email,
		Joined: user.CreatedAt.Format("2006-01-02"),
	})
}
