package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cachepackage "taskmaster/cache"
	"taskmaster/config"
	"taskmaster/database"
	"taskmaster/handlers"
	"taskmaster/sessions"
	"taskmaster/store"
	"taskmaster/views"

	"github.com/gorilla/mux"
	"github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

// NewRouter builds the full route table. Kept separate from StartServer
// so tests can exercise the same routing the server runs.
func NewRouter(authHandler *handlers.AuthHandler, taskHandler *handlers.TaskHandler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "taskmaster"}`))
	}).Methods("GET").Name("HealthCheck")

	router.HandleFunc("/", taskHandler.Home).Methods("GET").Name("Home")
	router.HandleFunc("/login", authHandler.Login).Methods("GET", "POST").Name("Login")
	router.HandleFunc("/register", authHandler.Register).Methods("GET", "POST").Name("Register")
	router.HandleFunc("/logout", authHandler.Logout).Methods("GET").Name("Logout")
	router.HandleFunc("/profile", authHandler.Profile).Methods("GET").Name("Profile")

	router.HandleFunc("/dashboard", taskHandler.Dashboard).Methods("GET").Name("Dashboard")
	router.HandleFunc("/task/new", taskHandler.New).Methods("GET", "POST").Name("NewTask")
	router.HandleFunc("/task/{id:[0-9]+}/edit", taskHandler.Edit).Methods("GET", "POST").Name("EditTask")
	router.HandleFunc("/task/{id:[0-9]+}/complete", taskHandler.Complete).Methods("POST").Name("CompleteTask")
	router.HandleFunc("/task/{id:[0-9]+}/delete", taskHandler.Delete).Methods("POST").Name("DeleteTask")

	return router
}

func StartServer() {
	// Initialize logger
	logger.Init(logger.LoggerConfig{
		CallerKey:  "file",
		TimeKey:    "timestamp",
		CallerSkip: 1,
	})

	logger.Info("Starting TaskMaster...")

	cfg := config.Load()

	// Initialize database
	dbConn := database.InitializeDatabase(cfg)
	defer dbConn.Close()

	// Initialize session cache
	cache := cachepackage.InitializeCache(cfg)
	defer cache.Close()

	renderer, err := views.New()
	if err != nil {
		logger.Error("Failed to parse templates", zap.Error(err))
		os.Exit(1)
	}

	sessionManager := sessions.NewManager(cache, cfg.SessionTTL)
	userStore := store.NewUserStore(dbConn, cfg.BcryptCost)
	taskStore := store.NewTaskStore(dbConn)

	authHandler := handlers.NewAuthHandler(userStore, sessionManager, renderer)
	taskHandler := handlers.NewTaskHandler(taskStore, sessionManager, renderer)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(authHandler, taskHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("TaskMaster listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	<-rootCtx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
