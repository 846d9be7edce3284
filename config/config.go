package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all runtime settings. Values come from the environment,
// optionally seeded from a .env file in the working directory.
type Config struct {
	Addr          string
	DBDriver      string
	DBPath        string
	MigrationsDir string

	CacheType     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionTTL time.Duration
	BcryptCost int
}

// Load reads configuration from the environment. A missing .env file is
// not an error; explicit environment variables always win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:          getenv("ADDR", ":8080"),
		DBDriver:      getenv("DB_DRIVER", "sqlite3"),
		DBPath:        getenv("DB_PATH", "./taskmaster.db"),
		MigrationsDir: getenv("MIGRATIONS_DIR", "./database/migrations"),
		CacheType:     getenv("CACHE_TYPE", "memory"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),
		SessionTTL:    time.Duration(getenvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		BcryptCost:    getenvInt("BCRYPT_COST", 12),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
