package remote

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB is the embedded-SQLite implementation of Store.
//
// The database is opened with WAL enabled so concurrent readers are not
// blocked by sync writes.
type DB struct {
	conn *sql.DB
	path string
}

var _ Store = (*DB)(nil)

// Open creates a database connection at the specified path.
//
// If the database doesn't exist it is created; call InitSchema before
// first use. The caller MUST call Close() when done.
//
// Example:
//
//	db, err := remote.Open(".wsync/remote.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func Open(path string) (*DB, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn: conn,
		path: path,
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the database connection after checkpointing the WAL.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the database schema if it doesn't exist.
// This is idempotent - safe to call multiple times.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		template_type TEXT NOT NULL DEFAULT 'strength',
		in_rotation INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS template_exercises (
		id TEXT PRIMARY KEY,
		template_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		exercise_id TEXT NOT NULL,
		type TEXT NOT NULL,
		target_sets INTEGER,
		target_reps INTEGER,
		cardio_category TEXT,
		target_distance REAL,
		target_duration_seconds INTEGER,
		rest_seconds INTEGER,
		FOREIGN KEY (template_id) REFERENCES templates(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		template_id TEXT,
		name TEXT NOT NULL,
		custom_title TEXT,
		mood TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE TABLE IF NOT EXISTS session_exercises (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		exercise_id TEXT NOT NULL,
		type TEXT NOT NULL,
		target_sets INTEGER,
		target_reps INTEGER,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	-- Sets carry a denormalized session_id so a session's full child tree
	-- can be deleted and counted by parent id without joins.
	CREATE TABLE IF NOT EXISTS session_sets (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		session_exercise_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		type TEXT NOT NULL,
		reps INTEGER,
		weight REAL,
		weight_unit TEXT,
		distance REAL,
		distance_unit TEXT,
		duration_seconds INTEGER,
		completed_at TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS exercises (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		body_part TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS weight_entries (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		weight REAL NOT NULL,
		unit TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);

	-- Indexes for owner scoping and child lookups
	CREATE INDEX IF NOT EXISTS idx_templates_owner ON templates(owner_id);
	CREATE INDEX IF NOT EXISTS idx_template_exercises_parent ON template_exercises(template_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_completed ON sessions(owner_id, completed_at);
	CREATE INDEX IF NOT EXISTS idx_session_exercises_parent ON session_exercises(session_id);
	CREATE INDEX IF NOT EXISTS idx_session_sets_parent ON session_sets(session_id);
	CREATE INDEX IF NOT EXISTS idx_session_sets_exercise ON session_sets(session_exercise_id);
	CREATE INDEX IF NOT EXISTS idx_exercises_owner ON exercises(owner_id);
	CREATE INDEX IF NOT EXISTS idx_weight_entries_owner ON weight_entries(owner_id);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Exists implements Store.Exists.
func (db *DB) Exists(ctx context.Context, table, id, ownerID string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ? AND owner_id = ?", table)

	var one int
	err := db.conn.QueryRowContext(ctx, query, id, ownerID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to probe %s row %s: %w", table, id, err)
	}
	return true, nil
}

// InsertRow implements Store.InsertRow.
func (db *DB) InsertRow(ctx context.Context, table string, row Row) error {
	cols, args := splitRow(row)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(len(cols)))

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// BatchInsertRows implements Store.BatchInsertRows.
func (db *DB) BatchInsertRows(ctx context.Context, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertRowsTx(ctx, tx, table, rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertRow implements Store.UpsertRow.
//
// Conflict resolution follows the insert-or-update pattern: every non-id
// column is overwritten with the incoming value.
func (db *DB) UpsertRow(ctx context.Context, table string, row Row) error {
	cols, args := splitRow(row)

	var updates []string
	for _, col := range cols {
		if col == "id" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		table, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(updates, ", "))

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", table, err)
	}
	return nil
}

// UpdateRow implements Store.UpdateRow.
func (db *DB) UpdateRow(ctx context.Context, table, id, ownerID string, patch Row) error {
	cols, args := splitRow(patch)

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = col + " = ?"
	}
	args = append(args, id, ownerID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND owner_id = ?",
		table, strings.Join(sets, ", "))

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s row %s: %w", table, id, err)
	}
	return nil
}

// DeleteRows implements Store.DeleteRows.
func (db *DB) DeleteRows(ctx context.Context, table, parentCol, parentID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, parentCol)
	if _, err := db.conn.ExecContext(ctx, query, parentID); err != nil {
		return fmt.Errorf("failed to delete %s rows for %s: %w", table, parentID, err)
	}
	return nil
}

// CountRows implements Store.CountRows.
func (db *DB) CountRows(ctx context.Context, table, parentCol, parentID string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", table, parentCol)

	var count int
	if err := db.conn.QueryRowContext(ctx, query, parentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s rows for %s: %w", table, parentID, err)
	}
	return count, nil
}

// ReplaceChildren implements Store.ReplaceChildren.
//
// The deletes and reinserts across all child tables run in one transaction,
// so a failed reinsert rolls the deletes back instead of leaving the parent
// with no children.
func (db *DB) ReplaceChildren(ctx context.Context, parentID string, children []ChildSet) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, cs := range children {
		query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", cs.Table, cs.ParentCol)
		if _, err := tx.ExecContext(ctx, query, parentID); err != nil {
			return fmt.Errorf("failed to clear %s rows for %s: %w", cs.Table, parentID, err)
		}
	}

	for _, cs := range children {
		if err := insertRowsTx(ctx, tx, cs.Table, cs.Rows); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertRowsTx inserts rows within an open transaction using a single
// prepared statement. All rows must share the column set of the first row.
func insertRowsTx(ctx context.Context, tx *sql.Tx, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	cols, _ := splitRow(rows[0])
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(len(cols)))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, len(cols))
		for i, col := range cols {
			args[i] = row[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// splitRow returns the row's columns in sorted order with matching values,
// so generated SQL is deterministic.
func splitRow(row Row) ([]string, []any) {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = row[col]
	}
	return cols, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
