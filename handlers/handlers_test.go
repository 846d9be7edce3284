package handlers_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"taskmaster/handlers"
	"taskmaster/models"
	"taskmaster/server"
	"taskmaster/sessions"
	"taskmaster/store"
	"taskmaster/views"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/umakantv/go-utils/cache"
	"github.com/umakantv/go-utils/logger"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	logger.Init(logger.LoggerConfig{
		CallerKey:  "file",
		TimeKey:    "timestamp",
		CallerSkip: 1,
	})
	os.Exit(m.Run())
}

const schema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date DATE,
	priority TEXT NOT NULL DEFAULT 'Medium',
	status TEXT NOT NULL DEFAULT 'Pending',
	user_id INTEGER NOT NULL REFERENCES users(id),
	created_at DATETIME NOT NULL
);`

type env struct {
	router *mux.Router
	users  *store.UserStore
	tasks  *store.TaskStore
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	c, err := cache.New(cache.Config{Type: "memory"})
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	renderer, err := views.New()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}

	sessionManager := sessions.NewManager(c, time.Hour)
	users := store.NewUserStore(db, bcrypt.MinCost)
	tasks := store.NewTaskStore(db)

	router := server.NewRouter(
		handlers.NewAuthHandler(users, sessionManager, renderer),
		handlers.NewTaskHandler(tasks, sessionManager, renderer),
	)
	return &env{router: router, users: users, tasks: tasks}
}

func (e *env) do(t *testing.T, method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	return nil
}

func (e *env) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()

	w := e.do(t, http.MethodPost, "/login", url.Values{
		"email":    {email},
		"password": {password},
	})
	if w.Code != http.StatusFound {
		t.Fatalf("login: expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("login redirected to %q", loc)
	}
	cookie := responseCookie(w, sessions.CookieName)
	if cookie == nil {
		t.Fatal("login did not set a session cookie")
	}
	return cookie
}

func TestRegisterLoginCreateCompleteFlow(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/register", url.Values{
		"name":             {"Ann"},
		"email":            {"ann@x.com"},
		"password":         {"pw1"},
		"confirm_password": {"pw1"},
	})
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("register: got %d -> %q", w.Code, w.Header().Get("Location"))
	}

	cookie := e.login(t, "ann@x.com", "pw1")

	w = e.do(t, http.MethodPost, "/task/new", url.Values{
		"title":    {"Buy milk"},
		"priority": {"Low"},
	}, cookie)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("create task: got %d -> %q", w.Code, w.Header().Get("Location"))
	}

	w = e.do(t, http.MethodGet, "/dashboard", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard: got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Buy milk") || !strings.Contains(body, "Pending") {
		t.Fatalf("dashboard missing new task: %s", body)
	}

	list, err := e.tasks.ListByOwner(1)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v, %d tasks", err, len(list))
	}

	w = e.do(t, http.MethodPost, fmt.Sprintf("/task/%d/complete", list[0].ID), nil, cookie)
	if w.Code != http.StatusFound {
		t.Fatalf("complete: got %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/dashboard", nil, cookie)
	if !strings.Contains(w.Body.String(), "Completed") {
		t.Fatal("dashboard does not show completed status")
	}
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	e := newEnv(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/"},
		{http.MethodGet, "/dashboard"},
		{http.MethodGet, "/profile"},
		{http.MethodGet, "/task/new"},
		{http.MethodGet, "/task/1/edit"},
		{http.MethodPost, "/task/1/complete"},
		{http.MethodPost, "/task/1/delete"},
	}
	for _, p := range paths {
		w := e.do(t, p.method, p.path, nil)
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
			t.Errorf("%s %s: got %d -> %q, expected redirect to /login", p.method, p.path, w.Code, w.Header().Get("Location"))
		}
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	e := newEnv(t)
	if _, err := e.users.Register("Ann", "ann@x.com", "pw1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	wrongPassword := e.do(t, http.MethodPost, "/login", url.Values{
		"email":    {"ann@x.com"},
		"password": {"wrong"},
	})
	unknownEmail := e.do(t, http.MethodPost, "/login", url.Values{
		"email":    {"nobody@x.com"},
		"password": {"pw1"},
	})

	for name, w := range map[string]*httptest.ResponseRecorder{"wrong password": wrongPassword, "unknown email": unknownEmail} {
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
			t.Fatalf("%s: got %d -> %q", name, w.Code, w.Header().Get("Location"))
		}
		if responseCookie(w, sessions.CookieName) != nil {
			t.Fatalf("%s: session cookie set on failed login", name)
		}
	}

	// Identical flash for both cases, so responses do not reveal
	// whether the email exists.
	f1 := responseCookie(wrongPassword, "flash")
	f2 := responseCookie(unknownEmail, "flash")
	if f1 == nil || f2 == nil || f1.Value != f2.Value {
		t.Fatalf("flash cookies differ: %v vs %v", f1, f2)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	e := newEnv(t)
	if _, err := e.users.Register("Ann", "ann@x.com", "pw1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	w := e.do(t, http.MethodPost, "/register", url.Values{
		"name":             {"Imposter"},
		"email":            {"ann@x.com"},
		"password":         {"pw2"},
		"confirm_password": {"pw2"},
	})
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/register" {
		t.Fatalf("got %d -> %q, expected redirect back to /register", w.Code, w.Header().Get("Location"))
	}
}

func TestCrossUserAccessForbidden(t *testing.T) {
	e := newEnv(t)

	ann, err := e.users.Register("Ann", "ann@x.com", "pw1")
	if err != nil {
		t.Fatalf("register ann: %v", err)
	}
	if _, err := e.users.Register("Bob", "bob@x.com", "pw2"); err != nil {
		t.Fatalf("register bob: %v", err)
	}

	task, err := e.tasks.Create(ann.ID, "Ann's task", "", nil, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bobCookie := e.login(t, "bob@x.com", "pw2")

	attempts := []struct{ method, path string }{
		{http.MethodGet, fmt.Sprintf("/task/%d/edit", task.ID)},
		{http.MethodPost, fmt.Sprintf("/task/%d/complete", task.ID)},
		{http.MethodPost, fmt.Sprintf("/task/%d/delete", task.ID)},
	}
	for _, a := range attempts {
		w := e.do(t, a.method, a.path, nil, bobCookie)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s: got %d, expected 403", a.method, a.path, w.Code)
		}
	}

	// Ann's task must be untouched.
	list, err := e.tasks.ListByOwner(ann.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Status != models.StatusPending {
		t.Fatalf("task changed by non-owner: %+v", list)
	}
}

func TestMissingTaskNotFound(t *testing.T) {
	e := newEnv(t)
	if _, err := e.users.Register("Ann", "ann@x.com", "pw1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	cookie := e.login(t, "ann@x.com", "pw1")

	w := e.do(t, http.MethodPost, "/task/999/delete", nil, cookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("got %d, expected 404", w.Code)
	}
}

func TestEditTask(t *testing.T) {
	e := newEnv(t)
	ann, err := e.users.Register("Ann", "ann@x.com", "pw1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	task, err := e.tasks.Create(ann.ID, "Old title", "desc", nil, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cookie := e.login(t, "ann@x.com", "pw1")

	w := e.do(t, http.MethodGet, fmt.Sprintf("/task/%d/edit", task.ID), nil, cookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Old title") {
		t.Fatalf("edit form: got %d", w.Code)
	}

	w = e.do(t, http.MethodPost, fmt.Sprintf("/task/%d/edit", task.ID), url.Values{
		"title":       {"New title"},
		"description": {"desc"},
		"due_date":    {"2026-10-01"},
		"priority":    {"High"},
	}, cookie)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("edit post: got %d -> %q", w.Code, w.Header().Get("Location"))
	}

	got, err := e.tasks.Get(task.ID, ann.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "New title" || got.Priority != models.PriorityHigh || got.DueDate == nil {
		t.Fatalf("edit not applied: %+v", got)
	}
}

func TestEditRejectsMalformedDueDate(t *testing.T) {
	e := newEnv(t)
	ann, err := e.users.Register("Ann", "ann@x.com", "pw1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	task, err := e.tasks.Create(ann.ID, "T", "", nil, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cookie := e.login(t, "ann@x.com", "pw1")

	w := e.do(t, http.MethodPost, fmt.Sprintf("/task/%d/edit", task.ID), url.Values{
		"title":    {"T"},
		"due_date": {"next tuesday"},
		"priority": {"Medium"},
	}, cookie)
	if w.Code != http.StatusFound || w.Header().Get("Location") != fmt.Sprintf("/task/%d/edit", task.ID) {
		t.Fatalf("got %d -> %q, expected redirect back to edit form", w.Code, w.Header().Get("Location"))
	}

	got, err := e.tasks.Get(task.ID, ann.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DueDate != nil {
		t.Fatalf("malformed due date persisted: %v", got.DueDate)
	}
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	if _, err := e.users.Register("Ann", "ann@x.com", "pw1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	cookie := e.login(t, "ann@x.com", "pw1")

	w := e.do(t, http.MethodGet, "/logout", nil, cookie)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("logout: got %d -> %q", w.Code, w.Header().Get("Location"))
	}

	w = e.do(t, http.MethodGet, "/dashboard", nil, cookie)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("revoked session still works: got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: got %d", w.Code)
	}
}
