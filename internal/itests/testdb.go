// Package itests runs the API against a throwaway PostgreSQL database.
// The tests are skipped unless TEST_POSTGRES_DSN points at a local server.
package itests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"OutdoorAPI/internal"
	"OutdoorAPI/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const testDBName = "outdoorapi_test"

// deriveTestDSN points baseDSN at the test database and at the postgres
// maintenance database used to create and drop it.
func deriveTestDSN(baseDSN string) (testDSN, adminDSN string, err error) {
	u, err := url.Parse(baseDSN)
	if err != nil {
		return "", "", fmt.Errorf("parse DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", "", errors.New("only URL DSN supported: postgres://...")
	}
	if host := u.Hostname(); host != "localhost" && host != "127.0.0.1" {
		return "", "", fmt.Errorf("refuse non-local host for tests: %s", host)
	}

	u.Path = "/" + testDBName
	testDSN = u.String()
	u.Path = "/postgres"
	adminDSN = u.String()
	return testDSN, adminDSN, nil
}

func createTestDatabase(adminDSN string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	// leftovers of an aborted run are dropped
	if _, err := db.ExecContext(ctx, `DROP DATABASE IF EXISTS `+pqIdent(testDBName)); err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `CREATE DATABASE `+pqIdent(testDBName))
	return err
}

func dropTestDatabase(adminDSN string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	_, _ = db.ExecContext(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`, testDBName)

	_, err = db.ExecContext(ctx, `DROP DATABASE IF EXISTS `+pqIdent(testDBName))
	return err
}

func pqIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func applyMigrations(testDSN string) error {
	root, err := internal.FindRepoRoot()
	if err != nil {
		return fmt.Errorf("repo root not found: %w", err)
	}
	// file:// needs an absolute path with forward slashes
	src := "file://" + filepath.ToSlash(filepath.Join(root, "migrations"))

	m, err := migrate.New(src, testDSN)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// setupTestDB creates and migrates the test database. teardown drops it.
func setupTestDB(baseDSN string) (testDSN string, teardown func() error, err error) {
	if os.Getenv("APP_ENV") == "production" {
		return "", nil, errors.New("APP_ENV=production, aborting tests")
	}
	testDSN, adminDSN, err := deriveTestDSN(baseDSN)
	if err != nil {
		return "", nil, err
	}
	if err := createTestDatabase(adminDSN); err != nil {
		return "", nil, fmt.Errorf("create DB %q on %s: %w", testDBName, redactDSN(baseDSN), err)
	}
	if err := applyMigrations(testDSN); err != nil {
		_ = dropTestDatabase(adminDSN)
		return "", nil, err
	}
	logger.Info("test_db_ready", map[string]any{"database": testDBName})

	teardown = func() error {
		return dropTestDatabase(adminDSN)
	}
	return testDSN, teardown, nil
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	username := u.User.Username()
	if username == "" {
		return dsn
	}
	u.User = url.UserPassword(username, "******")
	return u.String()
}
