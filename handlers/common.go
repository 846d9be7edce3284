package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskmaster/sessions"
	"taskmaster/views"

	"github.com/gorilla/mux"
	logger "github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

// logRequest logs the request with the specified format.
// Shared across AuthHandler and TaskHandler; route details come from
// the mux route and the request itself.
func logRequest(r *http.Request, level string, message string, fields ...zap.Field) {
	routeName := ""
	if route := mux.CurrentRoute(r); route != nil {
		routeName = route.GetName()
	}

	// Build full message consistent with existing (timestamp - route - method - path)
	logMsg := time.Now().Format("2006-01-02 15:04:05") + " - " + routeName + " - " + r.Method + " - " + r.URL.Path
	if message != "" {
		logMsg += " - " + message
	}

	allFields := append([]zap.Field{
		zap.String("route", routeName),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}, fields...)

	switch level {
	case "info":
		logger.Info(logMsg, allFields...)
	case "error":
		logger.Error(logMsg, allFields...)
	case "debug":
		logger.Debug(logMsg, allFields...)
	}
}

// flashCookie carries a one-request status message to the next page.
const flashCookie = "flash"

// setFlash queues a transient message for the next rendered page.
func setFlash(w http.ResponseWriter, category, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(category) + "|" + url.QueryEscape(message),
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60,
	})
}

// popFlash reads and clears the pending flash message, if any.
func popFlash(w http.ResponseWriter, r *http.Request) *views.Flash {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	parts := strings.SplitN(cookie.Value, "|", 2)
	if len(parts) != 2 {
		return nil
	}
	category, err1 := url.QueryUnescape(parts[0])
	message, err2 := url.QueryUnescape(parts[1])
	if err1 != nil || err2 != nil {
		return nil
	}
	return &views.Flash{Category: category, Message: message}
}

// requireUser resolves the request's identity and redirects anonymous
// visitors to the login page. Callers must return when ok is false.
func requireUser(m *sessions.Manager, w http.ResponseWriter, r *http.Request) (*sessions.Identity, bool) {
	identity, ok := m.Current(r)
	if !ok {
		logRequest(r, "info", "Unauthenticated request, redirecting to login")
		setFlash(w, "info", "Please log in to continue")
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil, false
	}
	return identity, true
}

// page assembles the common view-model fields.
func page(title string, identity *sessions.Identity, flash *views.Flash) views.Page {
	p := views.Page{Title: title, Flash: flash}
	if identity != nil {
		p.UserName = identity.Name
	}
	return p
}

// renderError writes the error page with the given status code.
// Forbidden and not-found failures land here; they reject rather than
// redirect, unlike unauthenticated requests.
func renderError(v *views.Renderer, w http.ResponseWriter, identity *sessions.Identity, status int, message string) {
	v.Render(w, status, "error.html", views.ErrorData{
		Page:    page("Error", identity, nil),
		Status:  status,
		Message: message,
	})
}
