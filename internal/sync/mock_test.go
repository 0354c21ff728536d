package sync

import (
	"context"
	"sync"
	"time"

	"github.com/DustinBergman/workout-app-sub001/internal/remote"
)

// mockStore is an in-memory RemoteStore that counts every call, so tests
// can assert exactly which remote mutations a sync attempt performed.
type mockStore struct {
	mu sync.Mutex

	existing     map[string]bool // table/id -> present
	childCounts  map[string]int  // table/parentID -> row count
	lastPatch    remote.Row
	lastInserted map[string][]remote.Row // table -> rows

	existsCalls  int
	insertCalls  int
	batchCalls   int
	upsertCalls  int
	updateCalls  int
	countCalls   int
	replaceCalls int

	// countDelay stalls CountRows, keeping the caller's lock in flight so
	// concurrency tests can race a second attempt against it.
	countDelay time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{
		existing:     make(map[string]bool),
		childCounts:  make(map[string]int),
		lastInserted: make(map[string][]remote.Row),
	}
}

func (m *mockStore) Exists(ctx context.Context, table, id, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsCalls++
	return m.existing[table+"/"+id], nil
}

func (m *mockStore) InsertRow(ctx context.Context, table string, row remote.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	m.lastInserted[table] = append(m.lastInserted[table], row)
	return nil
}

func (m *mockStore) BatchInsertRows(ctx context.Context, table string, rows []remote.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	m.lastInserted[table] = append(m.lastInserted[table], rows...)
	return nil
}

func (m *mockStore) UpsertRow(ctx context.Context, table string, row remote.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	m.lastInserted[table] = append(m.lastInserted[table], row)
	return nil
}

func (m *mockStore) UpdateRow(ctx context.Context, table, id, ownerID string, patch remote.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	m.lastPatch = patch
	return nil
}

func (m *mockStore) CountRows(ctx context.Context, table, parentCol, parentID string) (int, error) {
	m.mu.Lock()
	delay := m.countDelay
	m.countCalls++
	count := m.childCounts[table+"/"+parentID]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return count, nil
}

func (m *mockStore) ReplaceChildren(ctx context.Context, parentID string, children []remote.ChildSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	for _, cs := range children {
		m.childCounts[cs.Table+"/"+parentID] = len(cs.Rows)
	}
	return nil
}

// totalCalls returns the number of remote operations of any kind.
func (m *mockStore) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existsCalls + m.insertCalls + m.batchCalls + m.upsertCalls +
		m.updateCalls + m.countCalls + m.replaceCalls
}
