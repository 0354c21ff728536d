// Package remote provides the remote relational store the sync engine
// writes to.
//
// The store exposes row-level operations scoped by an owner identity. The
// sync engine treats it as an opaque relational service: it probes for
// existence, inserts and patches rows, and replaces child collections. The
// embedded SQLite implementation in this package stands in for the shared
// remote database; callers that talk to a hosted store implement the same
// interface.
package remote

import "context"

// Table names used by the sync engine. These are package constants, never
// user input, so implementations may interpolate them into SQL directly.
const (
	TableTemplates         = "templates"
	TableTemplateExercises = "template_exercises"
	TableSessions          = "sessions"
	TableSessionExercises  = "session_exercises"
	TableSessionSets       = "session_sets"
	TableExercises         = "exercises"
	TableWeightEntries     = "weight_entries"
)

// Parent-reference columns for child tables.
const (
	ColTemplateID = "template_id"
	ColSessionID  = "session_id"
)

// Row is a single table row keyed by column name. A nil value maps to SQL
// NULL, which is how variant-specific columns (reps/weight vs.
// distance/duration) are left empty for the other variant.
type Row map[string]any

// ChildSet names one child table of a parent resource together with the
// rows that should fully replace the parent's current child rows.
type ChildSet struct {
	Table     string
	ParentCol string
	Rows      []Row
}

// Store is the remote relational service consumed by the sync engine.
//
// All operations are context-aware; the sync engine's suspension points are
// exactly these calls. Implementations must scope Exists and UpdateRow by
// the owner identity so one user can never touch another user's rows.
type Store interface {
	// Exists reports whether a row with the given id and owner exists.
	Exists(ctx context.Context, table, id, ownerID string) (bool, error)

	// InsertRow inserts a single row.
	InsertRow(ctx context.Context, table string, row Row) error

	// BatchInsertRows inserts all rows in one transaction. All rows must
	// share the same column set.
	BatchInsertRows(ctx context.Context, table string, rows []Row) error

	// UpsertRow inserts the row, or updates all non-id columns when a row
	// with the same id already exists.
	UpsertRow(ctx context.Context, table string, row Row) error

	// UpdateRow patches the named columns of the row matching id and owner.
	// A row that doesn't exist is not an error; zero rows are affected.
	UpdateRow(ctx context.Context, table, id, ownerID string, patch Row) error

	// DeleteRows deletes all rows whose parent column matches parentID.
	DeleteRows(ctx context.Context, table, parentCol, parentID string) error

	// CountRows counts the rows whose parent column matches parentID.
	CountRows(ctx context.Context, table, parentCol, parentID string) (int, error)

	// ReplaceChildren deletes and reinserts the child rows of one parent
	// across all given child tables in a single transaction, so a reader
	// never observes the parent with its children half-replaced.
	ReplaceChildren(ctx context.Context, parentID string, children []ChildSet) error
}
