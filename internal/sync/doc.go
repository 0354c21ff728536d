// Package sync propagates local workout data to the remote relational
// store.
//
// # Overview
//
// User actions mutate the local document optimistically and immediately;
// the corresponding sync function is then invoked by the caller. Each sync
// decides whether the local mutation becomes a remote insert or update,
// guarantees at most one outstanding remote write per resource, and refuses
// writes that would destroy remote child data because of transient or
// corrupted local state.
//
// # Architecture
//
//	Local document (user edits)
//	     ├── templates     → AddTemplate / UpdateTemplate
//	     └── sessions      → AddSession / UpdateSession
//	                              ↓
//	                        LockRegistry   (one in-flight sync per id)
//	                              ↓
//	                        safety guard   (data-loss / corruption rules)
//	                              ↓
//	                        remote store   (probe, insert, patch, replace)
//
// # Locking
//
// Acquisition is non-blocking: a sync arriving while another sync for the
// same id is in flight is abandoned outright, not queued. The lock is
// released on every exit path. This is a last-writer-in-progress-wins
// policy; the local document itself is not guarded by these locks, so the
// user can keep editing while a sync for a stale snapshot is in flight.
//
// # Failure behavior
//
// Syncing while logged out is a silent no-op. Guard-blocked writes are
// logged and dropped without surfacing an error; the engine never deletes a
// resource as a side effect of a failed check. Only remote store errors
// propagate to the caller, which owns retry and messaging. Local edits
// always succeed instantly from the user's perspective, at the cost of
// temporary local/remote divergence.
//
// # Usage
//
//	db, err := remote.Open(".wsync/remote.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.InitSchema(); err != nil {
//	    return err
//	}
//
//	syncer := sync.New(db, sync.AuthFunc(func() string { return userID }),
//	    sync.NewLockRegistry(), sync.NewLedger(".wsync/failed.jsonl"), nil)
//
//	// After the user saves a template:
//	go syncer.AddTemplate(context.Background(), tmpl)
package sync
