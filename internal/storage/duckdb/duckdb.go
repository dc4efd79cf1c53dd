package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goodtune/watchdog/internal/config"
	"github.com/goodtune/watchdog/internal/storage"
	_ "github.com/marcboeker/go-duckdb"
)

// schema mirrors the tracker's usage database
var schema = []string{
	`CREATE TABLE IF NOT EXISTS applications (
		application_id BIGINT PRIMARY KEY,
		executable_name VARCHAR UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS application_windows (
		window_id BIGINT PRIMARY KEY,
		application_id BIGINT,
		window_name VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS usage_logs (
		log_id BIGINT PRIMARY KEY,
		user_id BIGINT,
		window_id BIGINT,
		date DATE,
		time_spent BIGINT
	)`,
}

const listUsageLogsQuery = `
	SELECT ul.log_id, aw.window_name, a.executable_name, ul.time_spent, strftime(ul.date, '%Y-%m-%d')
	FROM usage_logs ul
	INNER JOIN application_windows aw ON ul.window_id = aw.window_id
	INNER JOIN applications a ON aw.application_id = a.application_id
	WHERE ul.date = CAST(? AS DATE)
	ORDER BY ul.log_id
`

// Store implements the storage.Store interface on a DuckDB file
type Store struct {
	db            *sql.DB
	usageLogStore *usageLogStore
}

// Open opens the database at cfg.Path, creating the schema if needed. An
// empty path opens an in-memory database.
func Open(cfg config.DuckDBConfig) (*Store, error) {
	if cfg.Path != "" {
		if err := storage.EnsureParentDir(cfg.Path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	// DuckDB works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Store{
		db:            db,
		usageLogStore: &usageLogStore{db: db},
	}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// UsageLogs returns the UsageLogStore implementation
func (s *Store) UsageLogs() storage.UsageLogStore {
	return s.usageLogStore
}

type usageLogStore struct {
	db *sql.DB
}

// ListUsageLogs returns the logs recorded on date in log id order
func (s *usageLogStore) ListUsageLogs(ctx context.Context, date string) ([]storage.UsageLogRecord, error) {
	rows, err := s.db.QueryContext(ctx, listUsageLogsQuery, date)
	if err != nil {
		return nil, storage.Classify(ctxErr(ctx, err))
	}
	defer rows.Close()

	records := []storage.UsageLogRecord{}
	for rows.Next() {
		var (
			logID      sql.NullInt64
			windowName sql.NullString
			executable sql.NullString
			timeSpent  sql.NullInt64
			day        sql.NullString
		)
		if err := rows.Scan(&logID, &windowName, &executable, &timeSpent, &day); err != nil {
			return nil, storage.Classify(fmt.Errorf("failed to scan usage log: %w", err))
		}

		records = append(records, storage.UsageLogRecord{
			LogID:          nullInt64(logID),
			WindowName:     nullString(windowName),
			ExecutableName: nullString(executable),
			TimeSpent:      nullInt64(timeSpent),
			Date:           nullString(day),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Classify(ctxErr(ctx, err))
	}

	return records, nil
}

// ctxErr prefers the context's error so deadlines classify as timeouts
// even when the driver reports an interrupt.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return storage.Int64(v.Int64)
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return storage.String(v.String)
}
