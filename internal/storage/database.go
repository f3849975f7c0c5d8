package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conorfennell/wordcards/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection, ensures the schema is up to date
// and seeds the default categories.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	for _, c := range domain.DefaultCategories() {
		if _, err := db.Exec(`INSERT OR IGNORE INTO categories (id, name, description) VALUES (?, ?, ?)`,
			c.ID, c.Name, c.Description); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed category %s: %w", c.ID, err)
		}
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks database connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

const cardColumns = `id, word, pronunciation, meaning, example, category_id, difficulty, tags, source_id,
	study_count, correct_count, mastery_level, last_studied, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (domain.Card, error) {
	var (
		c           domain.Card
		tags        string
		sourceID    sql.NullInt64
		lastStudied sql.NullTime
		difficulty  string
		mastery     string
	)
	err := row.Scan(
		&c.ID,
		&c.Word,
		&c.Pronunciation,
		&c.Meaning,
		&c.Example,
		&c.CategoryID,
		&difficulty,
		&tags,
		&sourceID,
		&c.StudyCount,
		&c.CorrectCount,
		&mastery,
		&lastStudied,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Card{}, err
	}

	c.Difficulty = domain.Difficulty(difficulty)
	c.MasteryLevel = domain.MasteryLevel(mastery)
	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return domain.Card{}, fmt.Errorf("failed to decode tags for card %s: %w", c.ID, err)
	}
	if sourceID.Valid {
		v := sourceID.Int64
		c.SourceID = &v
	}
	if lastStudied.Valid {
		v := lastStudied.Time
		c.LastStudied = &v
	}
	return c, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func storageErr(format string, err error, args ...any) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, fmt.Sprintf(format, args...), err)
}

// InsertCard inserts a new card. It fails with domain.ErrConflict when a card
// with the same id or word already exists.
func (db *DB) InsertCard(ctx context.Context, card domain.Card) error {
	tags, err := encodeTags(card.Tags)
	if err != nil {
		return storageErr("failed to encode tags for card %s", err, card.ID)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID,
		card.Word,
		card.Pronunciation,
		card.Meaning,
		card.Example,
		card.CategoryID,
		string(card.Difficulty),
		tags,
		nullInt64(card.SourceID),
		card.StudyCount,
		card.CorrectCount,
		string(card.MasteryLevel),
		nullTime(card.LastStudied),
		card.CreatedAt,
		card.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("card %q: %w", card.Word, domain.ErrConflict)
	}
	if err != nil {
		return storageErr("failed to insert card %s", err, card.ID)
	}
	return nil
}

// GetByID retrieves a card by its id.
func (db *DB) GetByID(ctx context.Context, id string) (domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Card{}, fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Card{}, storageErr("failed to get card %s", err, id)
	}
	return card, nil
}

// ListAllCards returns every card in insertion order.
func (db *DB) ListAllCards(ctx context.Context) ([]domain.Card, error) {
	return db.queryCards(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY rowid`)
}

// GetCardsBySourceID retrieves all cards imported from a specific source.
func (db *DB) GetCardsBySourceID(ctx context.Context, sourceID int64) ([]domain.Card, error) {
	return db.queryCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE source_id = ? ORDER BY rowid`, sourceID)
}

func (db *DB) queryCards(ctx context.Context, query string, args ...any) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("failed to list cards", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, storageErr("failed to scan card row", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("failed to list cards", err)
	}
	return cards, nil
}

// Save stores the study statistics of an existing card. Content fields are
// written only by SaveContent. It fails with domain.ErrNotFound when the card
// does not exist.
func (db *DB) Save(ctx context.Context, card domain.Card) error {
	return db.updateStats(ctx, db.conn, card)
}

// SaveAttempt stores the card's statistics and its review log entry in one
// transaction.
func (db *DB) SaveAttempt(ctx context.Context, card domain.Card, log domain.ReviewLog) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("failed to begin transaction for card %s", err, card.ID)
	}
	defer tx.Rollback()

	if err := db.updateStats(ctx, tx, card); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO review_log (id, card_id, reviewed_at, correct)
		VALUES (?, ?, ?, ?)
	`, log.ID, log.CardID, log.Timestamp, log.Correct); err != nil {
		return storageErr("failed to insert review log for card %s", err, card.ID)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("failed to commit attempt for card %s", err, card.ID)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) updateStats(ctx context.Context, ex execer, card domain.Card) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE cards
		SET study_count = ?, correct_count = ?, mastery_level = ?, last_studied = ?, updated_at = ?
		WHERE id = ?
	`,
		card.StudyCount,
		card.CorrectCount,
		string(card.MasteryLevel),
		nullTime(card.LastStudied),
		card.UpdatedAt,
		card.ID,
	)
	if err != nil {
		return storageErr("failed to update card %s", err, card.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("failed to update card %s", err, card.ID)
	}
	if n == 0 {
		return fmt.Errorf("card %s: %w", card.ID, domain.ErrNotFound)
	}
	return nil
}

// SaveContent overwrites the content fields of an existing card. Study
// statistics are left as stored.
func (db *DB) SaveContent(ctx context.Context, card domain.Card) error {
	tags, err := encodeTags(card.Tags)
	if err != nil {
		return storageErr("failed to encode tags for card %s", err, card.ID)
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards
		SET word = ?, pronunciation = ?, meaning = ?, example = ?, category_id = ?, difficulty = ?,
			tags = ?, source_id = ?, updated_at = ?
		WHERE id = ?
	`,
		card.Word,
		card.Pronunciation,
		card.Meaning,
		card.Example,
		card.CategoryID,
		string(card.Difficulty),
		tags,
		nullInt64(card.SourceID),
		card.UpdatedAt,
		card.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("card %q: %w", card.Word, domain.ErrConflict)
	}
	if err != nil {
		return storageErr("failed to update card %s", err, card.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("failed to update card %s", err, card.ID)
	}
	if n == 0 {
		return fmt.Errorf("card %s: %w", card.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteCard removes a card and its review history.
func (db *DB) DeleteCard(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return storageErr("failed to delete card %s", err, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("failed to delete card %s", err, id)
	}
	if n == 0 {
		return fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ReviewLogs returns the review history of a card, oldest first.
func (db *DB) ReviewLogs(ctx context.Context, cardID string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, card_id, reviewed_at, correct
		FROM review_log WHERE card_id = ?
		ORDER BY reviewed_at, rowid
	`, cardID)
	if err != nil {
		return nil, storageErr("failed to get review log for card %s", err, cardID)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var l domain.ReviewLog
		if err := rows.Scan(&l.ID, &l.CardID, &l.Timestamp, &l.Correct); err != nil {
			return nil, storageErr("failed to scan review log row for card %s", err, cardID)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("failed to get review log for card %s", err, cardID)
	}
	return logs, nil
}

// ListCategories returns all categories ordered by id.
func (db *DB) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY id`)
	if err != nil {
		return nil, storageErr("failed to list categories", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, storageErr("failed to scan category row", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("failed to list categories", err)
	}
	return categories, nil
}

// InsertCategory adds a category. It fails with domain.ErrConflict when the id is taken.
func (db *DB) InsertCategory(ctx context.Context, c domain.Category) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO categories (id, name, description) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.Description)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", c.ID, domain.ErrConflict)
	}
	if err != nil {
		return storageErr("failed to insert category %s", err, c.ID)
	}
	return nil
}
