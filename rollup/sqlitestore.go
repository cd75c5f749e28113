package rollup

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the seen-set in a SQLite database, for installations
// where the JSON file outgrows itself or where the store lives on shared
// storage. Implements the same Store contract as FileStore.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) a SQLite seen-set store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("seen-set path is required")
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open seen-set database %s (%w)", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to open seen-set database %s (%w)", path, err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS seen (
		    source      TEXT NOT NULL,
		    fingerprint TEXT NOT NULL,
		    PRIMARY KEY (source, fingerprint)
		)`,
		`CREATE TABLE IF NOT EXISTS revisions (
		    source   TEXT NOT NULL PRIMARY KEY,
		    revision TEXT NOT NULL
		)`,
	}

	for _, ddl := range schema {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("unable to initialise seen-set database %s (%w)", path, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *SQLiteStore) Load() (*SeenSet, error) {
	set := NewSeenSet()

	rows, err := s.db.Query(`SELECT source, fingerprint FROM seen`)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var source, fingerprint string
		if err := rows.Scan(&source, &fingerprint); err != nil {
			return nil, err
		}

		set.Add(source, Fingerprint(fingerprint))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	revisions, err := s.db.Query(`SELECT source, revision FROM revisions`)
	if err != nil {
		return nil, err
	}

	defer revisions.Close()

	for revisions.Next() {
		var source, revision string
		if err := revisions.Scan(&source, &revision); err != nil {
			return nil, err
		}

		set.SetRevision(source, revision)
	}

	return set, revisions.Err()
}

func (s *SQLiteStore) Save(set *SeenSet) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	defer tx.Rollback()

	insert, err := tx.Prepare(`INSERT INTO seen (source, fingerprint) VALUES (?, ?)
	                           ON CONFLICT (source, fingerprint) DO NOTHING`)
	if err != nil {
		return err
	}

	for _, source := range set.Sources() {
		for _, fp := range set.Fingerprints(source) {
			if _, err := insert.Exec(source, string(fp)); err != nil {
				return err
			}
		}
	}

	update, err := tx.Prepare(`INSERT INTO revisions (source, revision) VALUES (?, ?)
	                           ON CONFLICT (source) DO UPDATE SET revision = excluded.revision`)
	if err != nil {
		return err
	}

	for source, revision := range set.Revisions() {
		if _, err := update.Exec(source, revision); err != nil {
			return err
		}
	}

	return tx.Commit()
}
