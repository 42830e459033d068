package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseType represents the type of database to use
type DatabaseType string

const (
	DatabaseTypeSQLite   DatabaseType = "sqlite"
	DatabaseTypePostgres DatabaseType = "postgres"
)

// DefaultSQLitePath is the file used when SQLite is configured without DB_PATH
const DefaultSQLitePath = "./data/users.db"

// Config holds database connection configuration
type Config struct {
	Type DatabaseType

	// SQLite
	DatabasePath string

	// PostgreSQL
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings (both database types)
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// NewDatabaseConfig creates a database configuration from environment variables.
//  1. DB_TYPE=postgres → PostgreSQL (DB_HOST, DB_PASSWORD, etc.)
//  2. otherwise → file-based SQLite at DB_PATH (default ./data/users.db)
//
// DB_PATH=:memory: gives an in-memory database; its connection is never
// recycled since closing it drops every table.
func NewDatabaseConfig() *Config {
	dbTypeStr := strings.ToLower(config.GetEnvOrDefault("DB_TYPE", ""))

	var dbType DatabaseType
	switch dbTypeStr {
	case "postgres", "postgresql":
		dbType = DatabaseTypePostgres
	case "sqlite", "":
		dbType = DatabaseTypeSQLite
	default:
		slog.Warn("Unknown DB_TYPE, defaulting to sqlite", "db_type", dbTypeStr)
		dbType = DatabaseTypeSQLite
	}

	if os.Getenv("DB_HOST") != "" && dbType != DatabaseTypePostgres {
		slog.Warn("DB_HOST is set but DB_TYPE is not 'postgres'; DB_HOST will be ignored",
			"db_type", dbTypeStr,
			"db_host", os.Getenv("DB_HOST"))
	}

	cfg := &Config{Type: dbType}

	if dbType == DatabaseTypeSQLite {
		// A single connection serializes writes and avoids "database is locked"
		cfg.MaxOpenConns = config.GetEnvIntOrDefault("DB_MAX_OPEN_CONNS", 1)
		cfg.MaxIdleConns = config.GetEnvIntOrDefault("DB_MAX_IDLE_CONNS", 1)

		cfg.DatabasePath = config.GetEnvOrDefault("DB_PATH", DefaultSQLitePath)

		slog.Info("Database configuration (SQLite)",
			"database_path", cfg.DatabasePath,
			"max_open_conns", cfg.MaxOpenConns,
			"max_idle_conns", cfg.MaxIdleConns,
		)
	} else {
		cfg.Host = config.GetEnvOrDefault("DB_HOST", "localhost")
		cfg.Port = config.GetEnvOrDefault("DB_PORT", "5432")
		cfg.Username = config.GetEnvOrDefault("DB_USERNAME", "postgres")
		cfg.Password = config.GetEnvOrDefault("DB_PASSWORD", "")
		cfg.Database = config.GetEnvOrDefault("DB_NAME", "lysa_identity")
		cfg.SSLMode = config.GetEnvOrDefault("DB_SSLMODE", "disable")
		cfg.MaxOpenConns = config.GetEnvIntOrDefault("DB_MAX_OPEN_CONNS", 25)
		cfg.MaxIdleConns = config.GetEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5)

		slog.Info("Database configuration (PostgreSQL)",
			"host", cfg.Host,
			"port", cfg.Port,
			"database", cfg.Database,
			"username", cfg.Username,
			"sslmode", cfg.SSLMode,
			"max_open_conns", cfg.MaxOpenConns,
			"max_idle_conns", cfg.MaxIdleConns,
		)
	}

	cfg.ConnMaxLifetime = config.GetEnvDurationOrDefault("DB_CONN_MAX_LIFETIME", time.Hour)
	cfg.ConnMaxIdleTime = config.GetEnvDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 15*time.Minute)
	cfg.ConnectTimeout = config.GetEnvDurationOrDefault("DB_CONNECT_TIMEOUT", 5*time.Second)

	if cfg.IsInMemory() {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
		cfg.ConnMaxIdleTime = 0
		slog.Warn("Using in-memory SQLite, users are lost on restart")
	}

	return cfg
}

// IsInMemory reports whether the SQLite database lives only in the connection
func (c *Config) IsInMemory() bool {
	if c.Type != DatabaseTypeSQLite {
		return false
	}
	return c.DatabasePath == ":memory:" || strings.Contains(c.DatabasePath, "mode=memory") ||
		strings.HasPrefix(c.DatabasePath, "file::memory:")
}

// PostgresDSN builds a URL-style DSN; net/url escapes special characters in credentials
func (c *Config) PostgresDSN() string {
	dsnURL := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:   c.Database,
	}
	q := dsnURL.Query()
	q.Set("sslmode", c.SSLMode)
	dsnURL.RawQuery = q.Encode()
	return dsnURL.String()
}

// Dialector returns the gorm dialector for the configured database
func (c *Config) Dialector() (gorm.Dialector, error) {
	switch c.Type {
	case DatabaseTypeSQLite:
		if !c.IsInMemory() {
			dir := filepath.Dir(c.DatabasePath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
		return sqlite.Open(c.DatabasePath), nil
	case DatabaseTypePostgres:
		return postgres.Open(c.PostgresDSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.Type)
	}
}

// ConnectGormDB establishes a GORM connection to the database (SQLite or PostgreSQL)
func ConnectGormDB(cfg *Config) (*gorm.DB, error) {
	dialector, err := cfg.Dialector()
	if err != nil {
		return nil, err
	}

	slog.Info("Attempting GORM database connection", "type", cfg.Type)

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM %s database connection: %w", cfg.Type, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := Ping(context.Background(), gormDB, cfg.ConnectTimeout); err != nil {
		return nil, err
	}

	slog.Info("GORM database connection established successfully", "type", cfg.Type)
	return gormDB, nil
}

// Ping checks the connection with the given timeout
func Ping(ctx context.Context, db *gorm.DB, timeout time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
