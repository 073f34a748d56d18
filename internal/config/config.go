package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types

	"github.com/joho/godotenv" // godotenv loads a local .env file into the process environment
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database settings are optional: when DB_HOST is
// empty the run history is disabled and the agent still drives bookings.
type Config struct {
	Env                 string // application environment (e.g. "dev", "prod")
	Port                string // HTTP port the control API listens on
	JWTSecret           string // secret used to sign shell access tokens
	AccessTTLMin        int    // access token time-to-live in minutes
	ShellPassphraseHash string // bcrypt hash of the passphrase the extension shell pairs with
	DBUser              string // database username
	DBPass              string // database password (optional)
	DBHost              string // database host address; empty disables run history
	DBPort              string // database port number
	DBName              string // database name
	StoreBackend        string // "redis" or "badger" for saved configurations
	BadgerDir           string // directory for the badger store
	RabbitURL           string // AMQP URL for status events; empty disables publishing
	LogDir              string // directory the status consumer appends booking.log to
	Browser             BrowserConfig
	Flow                FlowTimings
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when present.
// Required variables are enforced by must() and missing values cause the
// program to exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	return Config{
		Env:                 must("APP_ENV"),                      // environment (dev/test/prod)
		Port:                must("APP_PORT"),                     // port to bind the HTTP server
		JWTSecret:           must("JWT_SECRET"),                   // secret used for signing JWTs
		AccessTTLMin:        mustInt("ACCESS_TOKEN_TTL_MIN"),      // TTL for access tokens in minutes
		ShellPassphraseHash: must("SHELL_PASSPHRASE_HASH"),        // bcrypt hash checked on pairing
		DBUser:              envStr("DB_USER", "root"),            // database user
		DBPass:              os.Getenv("DB_PASS"),                 // database password (empty allowed)
		DBHost:              os.Getenv("DB_HOST"),                 // database host
		DBPort:              envStr("DB_PORT", "3306"),            // database port
		DBName:              envStr("DB_NAME", "irctc_booking"),   // database name
		StoreBackend:        envStr("STORE_BACKEND", "redis"),     // saved configuration backend
		BadgerDir:           envStr("BADGER_DIR", "data/configs"), // badger directory
		RabbitURL:           rabbitURL(),                          // broker for status events
		LogDir:              envStr("LOG_DIR", "logs"),            // consumer output directory
		Browser:             LoadBrowserConfig(),
		Flow:                LoadFlowTimings(),
	}
}

// HistoryEnabled reports whether a MySQL host was configured.
func (c Config) HistoryEnabled() bool { return c.DBHost != "" }

// rabbitURL mirrors the lookup order used by the queue publisher and consumer.
func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
