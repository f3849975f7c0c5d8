package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/wordcards/internal/domain"
)

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Source represents a deck source, either a local path or a Git URL.
type Source struct {
	ID          int64        `json:"id"`
	Path        string       `json:"path"`
	Type        string       `json:"type"`
	LastScanned sql.NullTime `json:"-"`
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("source %s: %w", path, domain.ErrConflict)
	}
	if err != nil {
		return 0, storageErr("failed to insert source %s", err, path)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("failed to get last insert ID for source %s", err, path)
	}
	return id, nil
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (Source, error) {
	var s Source
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, fmt.Errorf("source %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return Source{}, storageErr("failed to find source by path %s", err, path)
	}
	return s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, storageErr("failed to get all sources", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, storageErr("failed to scan source row", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("failed to get all sources", err)
	}
	return sources, nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, at, sourceID)
	if err != nil {
		return storageErr("failed to update last scanned for source ID %d", err, sourceID)
	}
	return nil
}

// DeleteSource removes a source. Cards imported from it are kept, with their
// study history, and detached from the source.
func (db *DB) DeleteSource(ctx context.Context, sourceID int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("failed to begin transaction for source ID %d", err, sourceID)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE cards SET source_id = NULL WHERE source_id = ?`, sourceID); err != nil {
		return storageErr("failed to detach cards from source ID %d", err, sourceID)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, sourceID)
	if err != nil {
		return storageErr("failed to delete source ID %d", err, sourceID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("failed to delete source ID %d", err, sourceID)
	}
	if n == 0 {
		return fmt.Errorf("source %d: %w", sourceID, domain.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("failed to commit delete of source ID %d", err, sourceID)
	}
	return nil
}
