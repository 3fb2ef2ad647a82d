// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"street-food-scanner/internal/models"
)

// Fixed-width so ORDER BY created_at sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// database/sql pools connections; one writer avoids SQLITE_BUSY on concurrent scans.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS scans (
        id TEXT PRIMARY KEY,
        language TEXT NOT NULL,
        mime_type TEXT NOT NULL,
        source TEXT NOT NULL,
        outcome TEXT NOT NULL,
        record TEXT,
        message TEXT NOT NULL DEFAULT '',
        created_at DATETIME NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);
    CREATE INDEX IF NOT EXISTS idx_scans_outcome ON scans(outcome);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) SaveScan(ctx context.Context, scan *models.Scan) error {
	var record sql.NullString
	if scan.Record != nil {
		data, err := json.Marshal(scan.Record)
		if err != nil {
			return fmt.Errorf("failed to marshal food record: %w", err)
		}
		record = sql.NullString{String: string(data), Valid: true}
	}

	query := `
        INSERT INTO scans (id, language, mime_type, source, outcome, record, message, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query,
		scan.ID, scan.Language, scan.MimeType, scan.Source, scan.Outcome,
		record, scan.Message, scan.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	return nil
}

// GetScans returns the most recent scans first. An empty outcome matches all.
func (s *SQLiteStorage) GetScans(ctx context.Context, outcome string, limit int) ([]*models.Scan, error) {
	query := `
        SELECT id, language, mime_type, source, outcome, record, message, created_at
        FROM scans
        WHERE 1=1
    `
	args := []interface{}{}

	if outcome != "" {
		query += " AND outcome = ?"
		args = append(args, outcome)
	}

	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	scans := []*models.Scan{}
	for rows.Next() {
		scan := &models.Scan{}
		var record sql.NullString
		var createdAtStr string

		err := rows.Scan(
			&scan.ID, &scan.Language, &scan.MimeType, &scan.Source,
			&scan.Outcome, &record, &scan.Message, &createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if scan.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		if record.Valid {
			scan.Record = &models.FoodRecord{}
			if err := json.Unmarshal([]byte(record.String), scan.Record); err != nil {
				return nil, fmt.Errorf("failed to decode record for scan %s: %w", scan.ID, err)
			}
		}

		scans = append(scans, scan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scans: %w", err)
	}
	return scans, nil
}
