package database

import (
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearDatabaseEnv blanks every variable NewDatabaseConfig reads; t.Setenv restores them afterwards
func clearDatabaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_TYPE", "DB_PATH", "DB_HOST", "DB_PORT", "DB_USERNAME", "DB_PASSWORD",
		"DB_NAME", "DB_SSLMODE", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
		"DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME", "DB_CONNECT_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestNewDatabaseConfig(t *testing.T) {
	t.Run("No configuration uses the default SQLite file", func(t *testing.T) {
		clearDatabaseEnv(t)

		cfg := NewDatabaseConfig()

		assert.Equal(t, DatabaseTypeSQLite, cfg.Type)
		assert.Equal(t, DefaultSQLitePath, cfg.DatabasePath)
		assert.False(t, cfg.IsInMemory())
		assert.Equal(t, 1, cfg.MaxOpenConns)
		assert.Equal(t, 1, cfg.MaxIdleConns)
		assert.Equal(t, time.Hour, cfg.ConnMaxLifetime)
		assert.Equal(t, 15*time.Minute, cfg.ConnMaxIdleTime)
	})

	t.Run("In-memory SQLite never recycles its connection", func(t *testing.T) {
		clearDatabaseEnv(t)
		t.Setenv("DB_PATH", ":memory:")
		t.Setenv("DB_MAX_OPEN_CONNS", "4")
		t.Setenv("DB_CONN_MAX_LIFETIME", "50ms")
		t.Setenv("DB_CONN_MAX_IDLE_TIME", "50ms")

		cfg := NewDatabaseConfig()
		require.True(t, cfg.IsInMemory())
		assert.Equal(t, 1, cfg.MaxOpenConns)
		assert.Equal(t, time.Duration(0), cfg.ConnMaxLifetime)
		assert.Equal(t, time.Duration(0), cfg.ConnMaxIdleTime)

		db, err := ConnectGormDB(cfg)
		require.NoError(t, err)
		defer Close(db)

		require.NoError(t, db.Exec("CREATE TABLE users (user_id TEXT)").Error)
		require.NoError(t, db.Exec("INSERT INTO users (user_id) VALUES ('alice')").Error)

		// Well past the configured idle and lifetime limits
		time.Sleep(300 * time.Millisecond)

		var count int64
		require.NoError(t, db.Raw("SELECT COUNT(*) FROM users").Scan(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Default file persists across connections", func(t *testing.T) {
		clearDatabaseEnv(t)
		path := filepath.Join(t.TempDir(), "data", "users.db")
		t.Setenv("DB_PATH", path)

		cfg := NewDatabaseConfig()
		db, err := ConnectGormDB(cfg)
		require.NoError(t, err)
		require.NoError(t, db.Exec("CREATE TABLE users (user_id TEXT)").Error)
		require.NoError(t, db.Exec("INSERT INTO users (user_id) VALUES ('alice')").Error)
		require.NoError(t, Close(db))

		db, err = ConnectGormDB(NewDatabaseConfig())
		require.NoError(t, err)
		defer Close(db)

		var count int64
		require.NoError(t, db.Raw("SELECT COUNT(*) FROM users").Scan(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("SQLite with custom path creates the file", func(t *testing.T) {
		clearDatabaseEnv(t)
		customPath := filepath.Join(t.TempDir(), "nested", "users.db")
		t.Setenv("DB_TYPE", "sqlite")
		t.Setenv("DB_PATH", customPath)
		t.Setenv("DB_MAX_OPEN_CONNS", "4")

		cfg := NewDatabaseConfig()
		assert.Equal(t, customPath, cfg.DatabasePath)
		assert.Equal(t, 4, cfg.MaxOpenConns)

		db, err := ConnectGormDB(cfg)
		require.NoError(t, err)
		defer Close(db)

		assert.FileExists(t, customPath)
	})

	t.Run("DB_TYPE=sqlite without path uses default file", func(t *testing.T) {
		clearDatabaseEnv(t)
		t.Setenv("DB_TYPE", "sqlite")

		cfg := NewDatabaseConfig()
		assert.Equal(t, DefaultSQLitePath, cfg.DatabasePath)
	})

	t.Run("Unknown DB_TYPE falls back to SQLite", func(t *testing.T) {
		clearDatabaseEnv(t)
		t.Setenv("DB_TYPE", "oracle")

		cfg := NewDatabaseConfig()
		assert.Equal(t, DatabaseTypeSQLite, cfg.Type)
		assert.Equal(t, DefaultSQLitePath, cfg.DatabasePath)
	})

	t.Run("PostgreSQL configuration", func(t *testing.T) {
		clearDatabaseEnv(t)
		t.Setenv("DB_TYPE", "postgresql")
		t.Setenv("DB_HOST", "db.internal")
		t.Setenv("DB_PASSWORD", "p@ss:word/1")
		t.Setenv("DB_NAME", "identity")

		cfg := NewDatabaseConfig()
		assert.Equal(t, DatabaseTypePostgres, cfg.Type)
		assert.Equal(t, "db.internal", cfg.Host)
		assert.Equal(t, "5432", cfg.Port)
		assert.Equal(t, 25, cfg.MaxOpenConns)

		parsed, err := url.Parse(cfg.PostgresDSN())
		require.NoError(t, err)
		password, _ := parsed.User.Password()
		assert.Equal(t, "p@ss:word/1", password)
		assert.Equal(t, "db.internal:5432", parsed.Host)
		assert.Equal(t, "/identity", parsed.Path)
		assert.Equal(t, "disable", parsed.Query().Get("sslmode"))
	})
}

func TestDialector_UnsupportedType(t *testing.T) {
	cfg := &Config{Type: "mysql"}
	_, err := cfg.Dialector()
	assert.Error(t, err)
}
