package views

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Flash is a transient user-facing status message. Category is a
// bootstrap alert class suffix (success, danger, info).
type Flash struct {
	Category string
	Message  string
}

// Page carries the fields every template needs. UserName is empty for
// anonymous visitors, which hides the authenticated navbar links.
type Page struct {
	Title    string
	UserName string
	Flash    *Flash
}

// TaskRow is a display-ready task. All values are pre-formatted strings
// so the templates stay logic-free.
type TaskRow struct {
	ID          int
	Title       string
	Description string
	DueDate     string
	Priority    string
	Status      string
	Completed   bool
	Overdue     bool
}

// DashboardData feeds the dashboard page.
type DashboardData struct {
	Page
	Tasks     []TaskRow
	Total     int
	Completed int
	Pending   int
}

// TaskForm holds the raw form values for the new/edit task pages.
type TaskForm struct {
	Title       string
	Description string
	DueDate     string
	Priority    string
}

// TaskFormData feeds the shared new/edit task form page.
type TaskFormData struct {
	Page
	Heading string
	Action  string
	Submit  string
	Form    TaskForm
}

// ProfileData feeds the profile page.
type ProfileData struct {
	Page
	Name   string
	Email  string
	Joined string
}

// ErrorData feeds the error page.
type ErrorData struct {
	Page
	Status  int
	Message string
}

// Renderer holds the parsed template set. Handlers exchange the plain
// view-model structs above and never touch markup.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses the embedded templates. Each page is parsed together with
// the shared layout.
func New() (*Renderer, error) {
	names := []string{
		"login.html",
		"register.html",
		"dashboard.html",
		"task_form.html",
		"profile.html",
		"error.html",
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		t, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes the page with the given status code.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data interface{}) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown template %s", page)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return t.ExecuteTemplate(w, "layout", data)
}
