package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDatabase implements interfaces.HistoryStore
type SQLiteDatabase struct {
	db *sql.DB
}

var _ interfaces.HistoryStore = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase creates a new SQLite database connection
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := initializeDatabase(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteDatabase{db: db}, nil
}

func initializeDatabase(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS poll_cycles (
			id TEXT PRIMARY KEY,
			instance TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			success INTEGER NOT NULL,
			error TEXT,
			range_start INTEGER,
			range_end INTEGER,
			counts TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create poll_cycles table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_poll_cycles_instance ON poll_cycles (instance, started_at DESC);`)
	if err != nil {
		return fmt.Errorf("failed to create poll_cycles index: %w", err)
	}

	return nil
}

// RecordCycle stores one cycle outcome. Recording the same id twice
// replaces the earlier row.
func (d *SQLiteDatabase) RecordCycle(ctx context.Context, rec interfaces.CycleRecord) error {
	var countsJSON sql.NullString
	if len(rec.Counts) > 0 {
		data, err := json.Marshal(rec.Counts)
		if err != nil {
			return fmt.Errorf("failed to marshal counts: %w", err)
		}
		countsJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO poll_cycles
		(id, instance, started_at, finished_at, success, error, range_start, range_end, counts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Instance, rec.StartedAt.UnixNano(), rec.FinishedAt.UnixNano(), rec.Success,
		nullString(rec.Error), nullTime(rec.RangeStart), nullTime(rec.RangeEnd), countsJSON)
	if err != nil {
		return fmt.Errorf("failed to record cycle: %w", err)
	}
	return nil
}

// RecentCycles returns up to limit records for instance, newest first
func (d *SQLiteDatabase) RecentCycles(ctx context.Context, instance string, limit int) ([]interfaces.CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, instance, started_at, finished_at, success, error, range_start, range_end, counts
		FROM poll_cycles
		WHERE instance = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, instance, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	records := []interfaces.CycleRecord{}
	for rows.Next() {
		var (
			rec                  interfaces.CycleRecord
			started, finished    int64
			errText, counts      sql.NullString
			rangeStart, rangeEnd sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.Instance, &started, &finished, &rec.Success,
			&errText, &rangeStart, &rangeEnd, &counts); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}

		rec.StartedAt = time.Unix(0, started)
		rec.FinishedAt = time.Unix(0, finished)
		rec.Error = errText.String
		if rangeStart.Valid {
			rec.RangeStart = time.Unix(0, rangeStart.Int64)
		}
		if rangeEnd.Valid {
			rec.RangeEnd = time.Unix(0, rangeEnd.Int64)
		}
		if counts.Valid {
			if err := json.Unmarshal([]byte(counts.String), &rec.Counts); err != nil {
				return nil, fmt.Errorf("failed to unmarshal counts for cycle %s: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycles: %w", err)
	}
	return records, nil
}

// LastSuccess returns the finish time of the last successful cycle, or the
// zero time when there is none.
func (d *SQLiteDatabase) LastSuccess(ctx context.Context, instance string) (time.Time, error) {
	var finished int64
	err := d.db.QueryRowContext(ctx, `
		SELECT finished_at FROM poll_cycles
		WHERE instance = ? AND success = 1
		ORDER BY finished_at DESC
		LIMIT 1
	`, instance).Scan(&finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get last success: %w", err)
	}
	return time.Unix(0, finished), nil
}

// Close closes the database connection
func (d *SQLiteDatabase) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
