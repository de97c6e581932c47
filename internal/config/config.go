package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The database variables are optional: when DB_HOST
// is unset the server runs on the in-memory store, which is meant for local
// development and demos only.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username (optional, enables MySQL)
	DBPass    string // database password (optional)
	DBHost    string // database host address (optional, enables MySQL)
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to sign staff JWTs

	AccessTTLMin int // staff access token time-to-live in minutes

	DefaultDwell   time.Duration // dwell requirement for beacons with no zone
	StaleAfter     time.Duration // silence window before a NEAR beacon goes FAR
	SweepInterval  time.Duration // how often the staleness sweeper runs
	LockTimeout    time.Duration // bound on per-session lock acquisition
	RegistryReload time.Duration // how often zone/beacon config is re-read
}

// Load reads configuration values from environment variables and returns a
// Config.  A local .env file is applied first when present.  Required
// variables are enforced by must(); tunables fall back to defaults.
func Load() Config {
	_ = godotenv.Load() // no .env in production is fine

	return Config{
		Env:       getenv("APP_ENV", "dev"),
		Port:      must("APP_PORT"),
		DBUser:    os.Getenv("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    os.Getenv("DB_HOST"),
		DBPort:    getenv("DB_PORT", "3306"),
		DBName:    os.Getenv("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		AccessTTLMin: atoiDefault("ACCESS_TOKEN_TTL_MIN", 480),

		DefaultDwell:   parseDur(getenv("PROXIMITY_DEFAULT_DWELL", "3s")),
		StaleAfter:     parseDur(getenv("PROXIMITY_STALE_AFTER", "10s")),
		SweepInterval:  parseDur(getenv("PROXIMITY_SWEEP_INTERVAL", "2s")),
		LockTimeout:    parseDur(getenv("SESSION_LOCK_TIMEOUT", "3s")),
		RegistryReload: parseDur(getenv("REGISTRY_RELOAD_INTERVAL", "60s")),
	}
}

// UseMySQL reports whether enough database configuration is present to open
// a MySQL connection.
func (c Config) UseMySQL() bool {
	return c.DBHost != "" && c.DBUser != "" && c.DBName != ""
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDefault(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
