package state

import (
	"database/sql"
	"errors"

	"github.com/llehouerou/tunes/internal/db"
)

const currentSchemaVersion = 1

// sqliteBackend keeps the document bytes in a single-row table. Replacing
// the row inside a transaction gives the same all-or-nothing guarantee as
// the file backend's rename.
type sqliteBackend struct {
	db   *sql.DB
	path string
}

func openSQLite(path string) (*sqliteBackend, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &sqliteBackend{db: conn, path: path}, nil
}

func initSchema(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS user_document (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			body TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (unixepoch())
		);
	`)
	if err != nil {
		return err
	}

	_, err = conn.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	return err
}

func (b *sqliteBackend) location() string { return b.path }

func (b *sqliteBackend) read() ([]byte, error) {
	var body string
	err := b.db.QueryRow(`SELECT body FROM user_document WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (b *sqliteBackend) write(data []byte) error {
	return db.WithTx(b.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO user_document (id, body, updated_at)
			VALUES (1, ?, unixepoch())
			ON CONFLICT(id) DO UPDATE SET
				body = excluded.body,
				updated_at = excluded.updated_at
		`, string(data))
		return err
	})
}

func (b *sqliteBackend) close() error {
	return b.db.Close()
}
