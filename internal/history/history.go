// Package history keeps a sqlite ledger of what happened to every album the
// pipelines looked at.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbutil "github.com/llehouerou/crate/internal/db"
)

// Pipeline names.
const (
	PipelineImport  = "import"
	PipelineCleanup = "cleanup"
)

// Entry is one album disposition.
type Entry struct {
	ID          int64
	RunID       string
	Pipeline    string
	Artist      string
	Album       string
	Outcome     string
	Reason      string
	Destination string
	Files       int
	Bytes       int64
	RecordedAt  time.Time
}

// Store is the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := dbutil.Open(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends entries in a single transaction. Entries without a
// timestamp get the current time.
func (s *Store) Record(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now()
	return dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO album_history
				(run_id, pipeline, artist, album, outcome, reason, destination, files, bytes, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range entries {
			at := e.RecordedAt
			if at.IsZero() {
				at = now
			}
			_, err := stmt.ExecContext(ctx,
				e.RunID, e.Pipeline, e.Artist, e.Album, e.Outcome,
				dbutil.NullString(e.Reason), dbutil.NullString(e.Destination),
				e.Files, e.Bytes, at.UnixMilli(),
			)
			if err != nil {
				return fmt.Errorf("insert %s/%s: %w", e.Artist, e.Album, err)
			}
		}
		return nil
	})
}

// List returns the most recent entries, newest first. A limit of zero or
// less returns every entry.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, pipeline, artist, album, outcome, reason, destination, files, bytes, recorded_at
		FROM album_history
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var reason, destination sql.NullString
		var recordedAt int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Pipeline, &e.Artist, &e.Album, &e.Outcome,
			&reason, &destination, &e.Files, &e.Bytes, &recordedAt); err != nil {
			return nil, err
		}
		e.Reason = dbutil.NullStringValue(reason)
		e.Destination = dbutil.NullStringValue(destination)
		e.RecordedAt = time.UnixMilli(recordedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
