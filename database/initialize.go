package database

import (
	"os"

	"taskmaster/config"

	"github.com/jmoiron/sqlx"
	"github.com/umakantv/go-utils/db"
	"github.com/umakantv/go-utils/db/migrations"
	"github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

// InitializeDatabase opens the configured database and applies pending
// SQL migrations before returning the connection.
func InitializeDatabase(cfg config.Config) *sqlx.DB {
	dbConn := db.GetDBConnection(db.DatabaseConfig{
		DRIVER: cfg.DBDriver,
		DB:     cfg.DBPath,
	})

	err := migrations.Migrate(dbConn, cfg.MigrationsDir)
	if err != nil {
		logger.Error("Error while running migration", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Database initialized successfully")
	return dbConn
}
