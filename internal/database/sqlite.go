// Package database provides SQLite persistence for user accounts and
// sessions behind the authority's store interfaces.
package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"git.sr.ht/~jakintosh/attest/pkg/authority"
	"git.sr.ht/~jakintosh/attest/pkg/certificate"
)

type SQLiteStore struct {
	db           *sql.DB
	passwordMode PasswordMode

	// DefaultRoles are granted to every user created through sign-up.
	DefaultRoles certificate.RoleSet
}

func NewSQLiteStore(dbPath string, passwordMode PasswordMode) *SQLiteStore {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("failed to connect to database: %v\n", err)
	}

	// one pooled connection: PRAGMAs are per-connection, and a second
	// connection to ":memory:" would be a separate empty database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		log.Fatalf("failed to init database schema: couldn't enable foreign keys: %v\n", err)
	}

	if err := initSchema(db); err != nil {
		log.Fatalf("failed to init database: %v\n", err)
	}

	return &SQLiteStore{
		db:           db,
		passwordMode: passwordMode,
		DefaultRoles: certificate.NewRoleSet("user"),
	}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UserStore() authority.UserStore {
	return s
}

func (s *SQLiteStore) SessionStore() authority.SessionStore {
	return s
}

func initSchema(db *sql.DB) error {
	if err := initTable(db, "users", `
		CREATE TABLE IF NOT EXISTS users (
			id          TEXT PRIMARY KEY,
			identifier  TEXT UNIQUE NOT NULL,
			secret      BLOB NOT NULL,
			roles       TEXT NOT NULL DEFAULT ''
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "sessions", `
		CREATE TABLE IF NOT EXISTS sessions (
			id          INTEGER PRIMARY KEY,
			user_id     TEXT NOT NULL,
			client_id   TEXT NOT NULL,
			mechanism   TEXT NOT NULL,
			public_key  BLOB NOT NULL,
			certificate BLOB UNIQUE NOT NULL,
			expires_at  INTEGER NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users (id)
		);`,
	); err != nil {
		return err
	}

	return nil
}

func initTable(
	db *sql.DB,
	name string,
	sql string,
) error {
	if _, err := db.Exec(sql); err != nil {
		return fmt.Errorf("failed to init '%s' table schema: %v", name, err)
	}
	return nil
}
