package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/models"
)

// CurrentSchemaVersion of the journal database.
const CurrentSchemaVersion = 1

// SQLiteStore keeps the journal in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteStore opens or creates the journal database at dbPath.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "sqlite_journal"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return store, nil
}

// initialize creates tables and indexes.
func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS transfers (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        time TIMESTAMP NOT NULL,
        op TEXT NOT NULL,
        category TEXT NOT NULL DEFAULT '',
        name TEXT NOT NULL DEFAULT '',
        target TEXT NOT NULL DEFAULT '',
        bytes INTEGER NOT NULL DEFAULT 0,
        error TEXT NOT NULL DEFAULT ''
    );

    CREATE INDEX IF NOT EXISTS idx_transfers_op ON transfers(op);

    CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER PRIMARY KEY
    );

    INSERT OR IGNORE INTO schema_info (version) VALUES (?);
    `

	if _, err := s.db.Exec(schema, CurrentSchemaVersion); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Append inserts rec and sets its ID.
func (s *SQLiteStore) Append(rec *models.TransferRecord) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}

	result, err := s.db.Exec(`
        INSERT INTO transfers (time, op, category, name, target, bytes, error)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Time.UTC(), string(rec.Op), string(rec.Category), rec.Name, rec.Target, rec.Bytes, rec.Error)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("read record id: %w", err)
	}
	rec.ID = id

	s.logger.WithFields(map[string]interface{}{
		"id": id,
		"op": string(rec.Op),
	}).Debug("Appended journal record")

	return nil
}

// Recent returns the newest records first.
func (s *SQLiteStore) Recent(limit int) ([]models.TransferRecord, error) {
	query := `
        SELECT id, time, op, category, name, target, bytes, error
        FROM transfers
        ORDER BY id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []models.TransferRecord
	for rows.Next() {
		var (
			rec      models.TransferRecord
			op       string
			category string
		)
		if err := rows.Scan(&rec.ID, &rec.Time, &op, &category, &rec.Name, &rec.Target, &rec.Bytes, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Op = models.Operation(op)
		rec.Category = models.Category(category)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
