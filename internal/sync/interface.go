package sync

import (
	"context"

	"github.com/DustinBergman/workout-app-sub001/internal/remote"
)

// RemoteStore is the slice of the remote relational service the sync engine
// consumes. remote.DB satisfies it; tests substitute counting mocks.
type RemoteStore interface {
	Exists(ctx context.Context, table, id, ownerID string) (bool, error)
	InsertRow(ctx context.Context, table string, row remote.Row) error
	BatchInsertRows(ctx context.Context, table string, rows []remote.Row) error
	UpsertRow(ctx context.Context, table string, row remote.Row) error
	UpdateRow(ctx context.Context, table, id, ownerID string, patch remote.Row) error
	CountRows(ctx context.Context, table, parentCol, parentID string) (int, error)
	ReplaceChildren(ctx context.Context, parentID string, children []remote.ChildSet) error
}

// Auth resolves the current user. CurrentUserID returns "" when nobody is
// logged in, in which case every sync entry point is a silent no-op.
type Auth interface {
	CurrentUserID() string
}

// AuthFunc adapts a plain function to the Auth interface.
type AuthFunc func() string

// CurrentUserID implements Auth.
func (f AuthFunc) CurrentUserID() string {
	return f()
}
