package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/util"
)

//go:embed schema.sql
var ddl string

const defaultDatabasePath = "./train_db.db"

// SQLiteStore is the relational store for routes, departures and cached station lookups
type SQLiteStore struct {
	db *sql.DB
}

// DatabasePath returns the configured SQLite file path
func DatabasePath() string {
	return util.GetEnvironmentVariable("DBLIVE_DATABASE_PATH", defaultDatabasePath)
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// :memory: databases only exist on the connection that created them
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error configuring SQLite: %w", err)
	}

	if err := performDatabaseMigration(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	log.Debug().Str("path", path).Msg("Opened SQLite database")

	return &SQLiteStore{db: db}, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(ddl, "-- migrate") {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}

		if _, err := db.ExecContext(ctx, trimmedStmt); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmedStmt, err)
		}
	}

	return nil
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
