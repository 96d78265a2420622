package database

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"restaurant-finder/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/umakantv/go-utils/db"
	"github.com/umakantv/go-utils/db/migrations"
	"github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedded embed.FS

// InitializeDatabase opens the configured database and runs the migrations
// for its dialect. SQLite goes through go-utils migrations; postgres uses
// MigrateFS, whose bookkeeping queries are rebound for $n placeholders.
func InitializeDatabase(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	var dbConn *sqlx.DB

	switch cfg.Driver {
	case "sqlite3":
		dbConn = db.GetDBConnection(db.DatabaseConfig{
			DRIVER: "sqlite3",
			DB:     cfg.DSN,
		})
	case "postgres":
		conn, err := sqlx.Connect("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		conn.SetMaxOpenConns(10)
		dbConn = conn
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	dir := cfg.MigrationsPath()
	var err error
	if cfg.Driver == "postgres" {
		err = MigrateFS(dbConn, os.DirFS(dir))
	} else {
		err = migrations.Migrate(dbConn, dir)
	}
	if err != nil {
		logger.Error("Error while running migration", zap.Error(err))
		dbConn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database initialized successfully", zap.String("driver", cfg.Driver), zap.String("migrations", dir))
	return dbConn, nil
}

// OpenMemory returns an in-memory SQLite database with the bundled schema
// applied. Used by tests and by `serve --ephemeral`.
func OpenMemory() (*sqlx.DB, error) {
	conn, err := sqlx.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// a second connection would see a different :memory: database
	conn.SetMaxOpenConns(1)

	if err := ApplySchema(conn, "sqlite"); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// ApplySchema executes the bundled migration files for dialect in filename order.
func ApplySchema(conn *sqlx.DB, dialect string) error {
	dir := path.Join("migrations", dialect)
	entries, err := fs.ReadDir(embedded, dir)
	if err != nil {
		return fmt.Errorf("unknown schema dialect %q: %w", dialect, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		stmt, err := fs.ReadFile(embedded, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := conn.Exec(string(stmt)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
	}
	return nil
}

const migrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
)`

// MigrateFS applies the *.sql files at the root of fsys in filename order,
// each in its own transaction, skipping versions already recorded in
// schema_migrations. The version is the file name without its extension.
func MigrateFS(conn *sqlx.DB, fsys fs.FS) error {
	if _, err := conn.Exec(migrationsTable); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	var applied []string
	if err := conn.Select(&applied, "SELECT version FROM schema_migrations"); err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, name := range files {
		version := strings.TrimSuffix(name, path.Ext(name))
		if done[version] {
			continue
		}
		stmt, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}

		tx, err := conn.Beginx()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(stmt)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
		if _, err := tx.Exec(tx.Rebind("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)"), version, time.Now().UTC()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		logger.Info("Applied migration", zap.String("version", version))
	}
	return nil
}
