package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StoreKind selects the document store backend.
type StoreKind string

const (
	StoreSQLite StoreKind = "sqlite"
	StoreMongo  StoreKind = "mongo"
	StoreMemory StoreKind = "memory"
)

const minCSRFKeyLength = 32

// BootstrapStaff describes the staff account provisioned at startup.
type BootstrapStaff struct {
	Email    string
	Password string
	FullName string
}

// Enabled reports whether a bootstrap account was configured.
func (b BootstrapStaff) Enabled() bool {
	return b.Email != "" && b.Password != ""
}

// Config captures environment driven configuration values for the club site.
type Config struct {
	HTTPPort       int
	Store          StoreKind
	SQLiteDSN      string
	MongoURI       string
	MongoDatabase  string
	SessionTTL     time.Duration
	CSRFKey        []byte
	SecureCookies  bool
	StaticDir      string
	FeaturedAtomic bool
	LogLevel       slog.Level
	Bootstrap      BootstrapStaff
}

// Load reads the optional dotenv files, or ".env" when none are named, and
// parses configuration values from the process environment. Variables that
// are already set take precedence over file entries.
//
// Missing and invalid entries are reported together.
func Load(files ...string) (Config, error) {
	if err := loadDotenv(files); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPPort:       8080,
		Store:          StoreSQLite,
		SQLiteDSN:      "file:clubsite.db",
		MongoDatabase:  "clubsite",
		SessionTTL:     24 * time.Hour,
		StaticDir:      "public",
		FeaturedAtomic: true,
		LogLevel:       slog.LevelInfo,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if portValue := env("CLUBSITE_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CLUBSITE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if storeValue := env("CLUBSITE_STORE"); storeValue != "" {
		switch kind := StoreKind(strings.ToLower(storeValue)); kind {
		case StoreSQLite, StoreMongo, StoreMemory:
			cfg.Store = kind
		default:
			invalid = append(invalid, "CLUBSITE_STORE")
		}
	}

	if dsn := env("CLUBSITE_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.MongoURI = env("CLUBSITE_MONGO_URI")
	if cfg.Store == StoreMongo && cfg.MongoURI == "" {
		missing = append(missing, "CLUBSITE_MONGO_URI")
	}
	if database := env("CLUBSITE_MONGO_DATABASE"); database != "" {
		cfg.MongoDatabase = database
	}

	if ttlValue := env("CLUBSITE_SESSION_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "CLUBSITE_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if key := env("CLUBSITE_CSRF_KEY"); key == "" {
		missing = append(missing, "CLUBSITE_CSRF_KEY")
	} else if len(key) < minCSRFKeyLength {
		invalid = append(invalid, "CLUBSITE_CSRF_KEY")
	} else {
		cfg.CSRFKey = []byte(key)
	}

	if secureValue := env("CLUBSITE_SECURE_COOKIES"); secureValue != "" {
		secure, err := strconv.ParseBool(secureValue)
		if err != nil {
			invalid = append(invalid, "CLUBSITE_SECURE_COOKIES")
		} else {
			cfg.SecureCookies = secure
		}
	}

	if dir := env("CLUBSITE_STATIC_DIR"); dir != "" {
		cfg.StaticDir = dir
	}

	if atomicValue := env("CLUBSITE_FEATURED_ATOMIC"); atomicValue != "" {
		atomic, err := strconv.ParseBool(atomicValue)
		if err != nil {
			invalid = append(invalid, "CLUBSITE_FEATURED_ATOMIC")
		} else {
			cfg.FeaturedAtomic = atomic
		}
	}

	if levelValue := env("CLUBSITE_LOG_LEVEL"); levelValue != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, "CLUBSITE_LOG_LEVEL")
		}
	}

	cfg.Bootstrap = BootstrapStaff{
		Email:    env("CLUBSITE_BOOTSTRAP_STAFF_EMAIL"),
		Password: env("CLUBSITE_BOOTSTRAP_STAFF_PASSWORD"),
		FullName: env("CLUBSITE_BOOTSTRAP_STAFF_NAME"),
	}
	if (cfg.Bootstrap.Email == "") != (cfg.Bootstrap.Password == "") {
		if cfg.Bootstrap.Email == "" {
			missing = append(missing, "CLUBSITE_BOOTSTRAP_STAFF_EMAIL")
		} else {
			missing = append(missing, "CLUBSITE_BOOTSTRAP_STAFF_PASSWORD")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func loadDotenv(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
