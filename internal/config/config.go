package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Values are validated once at startup;
// invalid values are fatal, never per-request errors.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on

	DBDriver string // "mysql" or "sqlite3"
	DBUser   string // database username (mysql)
	DBPass   string // database password (mysql, optional)
	DBHost   string // database host (mysql)
	DBPort   string // database port (mysql)
	DBName   string // database name (mysql)
	DBPath   string // database file path (sqlite3)

	HoldTTL       time.Duration // how long a seat hold stays alive
	SweepInterval time.Duration // period of the background expired-hold sweep

	SeatRows        string // row letters of the room layout, e.g. "ABCDEFGHIJ"
	SeatCols        int    // seats per row
	SeatMaxPerOrder int    // maximum seats per order

	TicketPrice string // per-seat price as a decimal string, e.g. "5000.00"
	CombosFile  string // optional YAML file overriding the combo catalog
}

// Load reads configuration from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Defaults mirror a
// ten-row, twelve-column room with a six-seat order limit and a ten
// minute hold TTL.
func Load() Config {
	cfg := Config{
		Env:      envStr("APP_ENV", "dev"),
		Port:     envStr("APP_PORT", "8080"),
		DBDriver: envStr("DB_DRIVER", "mysql"),
		DBPath:   envStr("DB_PATH", "boleteria.db"),

		HoldTTL:       time.Duration(envInt("HOLD_TTL_SECONDS", 600)) * time.Second,
		SweepInterval: envDur("SWEEP_INTERVAL", time.Minute),

		SeatRows:        envStr("SEAT_ROWS", "ABCDEFGHIJ"),
		SeatCols:        envInt("SEAT_COLS", 12),
		SeatMaxPerOrder: envInt("SEAT_MAX_PER_ORDER", 6),

		TicketPrice: envStr("TICKET_PRICE", "5000"),
		CombosFile:  os.Getenv("COMBOS_FILE"),
	}
	switch cfg.DBDriver {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case "sqlite3":
		// single-node deployments; DB_PATH default applies
	default:
		log.Fatalf("unsupported DB_DRIVER: %q (want mysql or sqlite3)", cfg.DBDriver)
	}
	if cfg.HoldTTL <= 0 {
		log.Fatalf("HOLD_TTL_SECONDS must be positive")
	}
	if cfg.SweepInterval <= 0 {
		log.Fatalf("SWEEP_INTERVAL must be positive")
	}
	return cfg
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

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
