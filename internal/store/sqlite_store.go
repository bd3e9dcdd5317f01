package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/cwbudde/ksweep/internal/metric"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS result_sets (
	name TEXT PRIMARY KEY,
	revision TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	name TEXT NOT NULL,
	k INTEGER NOT NULL,
	mse REAL,
	psnr REAL,
	ssim REAL,
	PRIMARY KEY (name, k)
);
CREATE INDEX IF NOT EXISTS idx_results_name ON results(name);`

// SQLiteStore keeps result sets from many sweeps in a single database.
// Every save stamps the set with a fresh revision id. NaN values are stored
// as NULL.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

// SaveResults replaces the result set stored under name in one transaction
func (s *SQLiteStore) SaveResults(name string, rs *ResultSet) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if rs == nil {
		return fmt.Errorf("result set cannot be nil")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	revision := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = tx.Exec(`INSERT INTO result_sets (name, revision, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET revision = excluded.revision, updated_at = excluded.updated_at`,
		name, revision, now)
	if err != nil {
		return fmt.Errorf("failed to record result set: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM results WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to clear previous results: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO results (name, k, mse, psnr, ssim) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, k := range rs.Keys() {
		r, _ := rs.Get(k)
		if _, err := stmt.Exec(name, k, nullable(r.MSE), nullable(r.PSNR), nullable(r.SSIM)); err != nil {
			return fmt.Errorf("failed to insert key %d: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}

	slog.Debug("Result set saved", "name", name, "db", s.path, "revision", revision, "keys", rs.Len())
	return nil
}

// LoadResults reads every key stored under name
func (s *SQLiteStore) LoadResults(name string) (*ResultSet, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM result_sets WHERE name = ?", name).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to query result set %s: %w", name, err)
	}
	if count == 0 {
		return nil, &NotFoundError{Name: name}
	}

	rows, err := s.db.Query("SELECT k, mse, psnr, ssim FROM results WHERE name = ? ORDER BY k", name)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for %s: %w", name, err)
	}
	defer rows.Close()

	rs := NewResultSet()
	for rows.Next() {
		var k int
		var mse, psnr, ssim sql.NullFloat64
		if err := rows.Scan(&k, &mse, &psnr, &ssim); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}

		r := metric.Result{MSE: fromNullable(mse), PSNR: fromNullable(psnr), SSIM: fromNullable(ssim)}
		if err := rs.Add(k, r); err != nil {
			return nil, &CorruptError{Name: name, Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results for %s: %w", name, err)
	}

	return rs, nil
}

// ListResults summarizes every stored result set
func (s *SQLiteStore) ListResults() ([]ResultInfo, error) {
	rows, err := s.db.Query(`SELECT s.name, s.updated_at, COUNT(r.k), MIN(r.k), MAX(r.k)
		FROM result_sets s LEFT JOIN results r ON r.name = s.name
		GROUP BY s.name ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list result sets: %w", err)
	}
	defer rows.Close()

	infos := []ResultInfo{}
	for rows.Next() {
		var info ResultInfo
		var updated string
		var minK, maxK sql.NullInt64
		if err := rows.Scan(&info.Name, &updated, &info.Keys, &minK, &maxK); err != nil {
			return nil, fmt.Errorf("failed to scan result set row: %w", err)
		}

		info.MinK = int(minK.Int64)
		info.MaxK = int(maxK.Int64)
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			info.Updated = t
		} else {
			slog.Warn("Invalid timestamp in result set", "name", info.Name, "value", updated)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list result sets: %w", err)
	}

	return infos, nil
}

// DeleteResults removes a result set and all of its keys
func (s *SQLiteStore) DeleteResults(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM result_sets WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete result set: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &NotFoundError{Name: name}
	}

	if _, err := tx.Exec("DELETE FROM results WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete results: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	slog.Debug("Result set deleted", "name", name, "db", s.path)
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
