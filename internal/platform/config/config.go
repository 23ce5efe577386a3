package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "principalcheck/pkg/platform/strings"
)

// Directory backends understood by DirectoryConfig.Backend.
const (
	BackendStatic   = "static"
	BackendPostgres = "postgres"
	BackendGraph    = "graph"
)

// DefaultMaxLabelWidth is the widest principal label rendered in a fragment.
const DefaultMaxLabelWidth = 50

// Config is the full process configuration.
type Config struct {
	Server     Server
	Auth       AuthConfig
	Log        LogConfig
	Directory  DirectoryConfig
	Redis      RedisConfig
	Postgres   PostgresConfig
	Graph      GraphConfig
	Validation ValidationConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// AuthConfig holds credentials for the HTTP surface.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	AdminToken    string
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string // "text" or "json"
	Level  string
}

// DirectoryConfig selects which directory answers lookups.
type DirectoryConfig struct {
	Backend string
	File    string // static backend only

	// Circuit breaker for the network backends
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// RedisConfig configures the known-user cache. An empty URL keeps the cache in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

// PostgresConfig configures the postgres directory backend.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// GraphConfig configures the Graph-style REST directory backend.
type GraphConfig struct {
	BaseURL      string
	TokenURL     string
	TenantID     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

// ValidationConfig tunes fragment rendering.
type ValidationConfig struct {
	MaxLabelWidth int
	IconDir       string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	graph := GraphConfig{
		BaseURL:      envOr("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
		TokenURL:     os.Getenv("GRAPH_TOKEN_URL"),
		TenantID:     os.Getenv("GRAPH_TENANT_ID"),
		ClientID:     os.Getenv("GRAPH_CLIENT_ID"),
		ClientSecret: os.Getenv("GRAPH_CLIENT_SECRET"),
		Scopes:       platformstrings.SplitList(envOr("GRAPH_SCOPES", "https://graph.microsoft.com/.default"), ","),
		Timeout:      envDuration("GRAPH_TIMEOUT", 10*time.Second),
	}
	if graph.TokenURL == "" && graph.TenantID != "" {
		graph.TokenURL = "https://login.microsoftonline.com/" + graph.TenantID + "/oauth2/v2.0/token"
	}

	return Config{
		Server: Server{
			Addr:              envOr("PRINCIPALCHECK_ADDR", ":8080"),
			ReadHeaderTimeout: envDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ShutdownTimeout:   envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSigningKey: jwtSigningKey,
			JWTIssuer:     envOr("JWT_ISSUER", "principalcheck"),
			AdminToken:    os.Getenv("ADMIN_API_TOKEN"),
		},
		Log: LogConfig{
			Format: strings.ToLower(envOr("LOG_FORMAT", "text")),
			Level:  strings.ToLower(envOr("LOG_LEVEL", "info")),
		},
		Directory: DirectoryConfig{
			Backend: strings.ToLower(envOr("DIRECTORY_BACKEND", BackendStatic)),
			File:    os.Getenv("DIRECTORY_FILE"),

			BreakerThreshold: envInt("DIRECTORY_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  envDuration("DIRECTORY_BREAKER_COOLDOWN", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			KeyPrefix:    envOr("REDIS_KEY_PREFIX", "principalcheck:known_user:"),
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Graph: graph,
		Validation: ValidationConfig{
			MaxLabelWidth: envInt("MAX_LABEL_WIDTH", DefaultMaxLabelWidth),
			IconDir:       os.Getenv("ICON_DIR"),
		},
	}
}

// Validate reports settings that would leave the selected backend unusable.
func (c Config) Validate() error {
	var errs []error
	switch c.Directory.Backend {
	case BackendStatic:
		if c.Directory.File == "" {
			errs = append(errs, errors.New("DIRECTORY_FILE is required for the static backend"))
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendGraph:
		if c.Graph.ClientID == "" || c.Graph.ClientSecret == "" || c.Graph.TokenURL == "" {
			errs = append(errs, errors.New("GRAPH_CLIENT_ID, GRAPH_CLIENT_SECRET and a token URL are required for the graph backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DIRECTORY_BACKEND %q", c.Directory.Backend))
	}
	if c.Validation.MaxLabelWidth < 4 {
		errs = append(errs, fmt.Errorf("MAX_LABEL_WIDTH must be at least 4, got %d", c.Validation.MaxLabelWidth))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
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

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
