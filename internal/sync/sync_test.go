package sync

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DustinBergman/workout-app-sub001/internal/document"
	"github.com/DustinBergman/workout-app-sub001/internal/remote"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newTestSyncer wires a syncer with a mock store, a logged-in user, and a
// ledger in a temp directory.
func newTestSyncer(t *testing.T, store RemoteStore) (*Syncer, *Ledger) {
	t.Helper()

	ledger := NewLedger(filepath.Join(t.TempDir(), "failed-sync.jsonl"))
	auth := AuthFunc(func() string { return "user-1" })
	return New(store, auth, NewLockRegistry(), ledger, testLogger()), ledger
}

func testTemplate(id string, exerciseIDs ...string) *document.Template {
	t := &document.Template{
		ID:           id,
		Name:         "Push Day",
		TemplateType: document.TypeStrength,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	for _, ex := range exerciseIDs {
		t.Exercises = append(t.Exercises, document.TemplateExercise{
			ExerciseID: ex,
			Type:       document.TypeStrength,
			TargetSets: 3,
			TargetReps: 8,
		})
	}
	return t
}

func testSession(id string, exerciseIDs ...string) *document.Session {
	done := time.Now()
	s := &document.Session{
		ID:          id,
		Name:        "Morning Workout",
		StartedAt:   done.Add(-time.Hour),
		CompletedAt: &done,
	}
	for i, ex := range exerciseIDs {
		s.Exercises = append(s.Exercises, document.SessionExercise{
			ID:         "se-" + ex,
			ExerciseID: ex,
			Type:       document.TypeStrength,
			Sets: []document.CompletedSet{
				{Type: document.TypeStrength, Reps: 8, Weight: 60 + float64(i), WeightUnit: "kg", CompletedAt: done},
			},
		})
	}
	return s
}

func TestAddTemplate_InsertsParentAndChildren(t *testing.T) {
	store := newMockStore()
	syncer, _ := newTestSyncer(t, store)

	if err := syncer.AddTemplate(context.Background(), testTemplate("t1", "bench", "squat")); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	if store.insertCalls != 1 {
		t.Errorf("expected 1 parent insert, got %d", store.insertCalls)
	}
	if store.batchCalls != 1 {
		t.Errorf("expected 1 child batch insert, got %d", store.batchCalls)
	}
	rows := store.lastInserted[remote.TableTemplates]
	if len(rows) != 1 {
		t.Fatalf("expected 1 template row, got %d", len(rows))
	}
	if rows[0]["owner_id"] != "user-1" {
		t.Errorf("expected owner_id user-1, got %v", rows[0]["owner_id"])
	}
	if got := len(store.lastInserted[remote.TableTemplateExercises]); got != 2 {
		t.Errorf("expected 2 exercise rows, got %d", got)
	}
}

func TestAddTemplate_ExistingDelegatesToUpdate(t *testing.T) {
	store := newMockStore()
	store.existing[remote.TableTemplates+"/t1"] = true
	store.childCounts[remote.TableTemplateExercises+"/t1"] = 2
	syncer, _ := newTestSyncer(t, store)

	if err := syncer.AddTemplate(context.Background(), testTemplate("t1", "bench", "squat")); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	// Never a second insert; the add converges to the update path.
	if store.insertCalls != 0 {
		t.Errorf("expected 0 inserts for existing template, got %d", store.insertCalls)
	}
	if store.updateCalls != 1 {
		t.Errorf("expected 1 metadata update, got %d", store.updateCalls)
	}
	if store.replaceCalls != 1 {
		t.Errorf("expected 1 child replace, got %d", store.replaceCalls)
	}
}

func TestSync_LoggedOutIsSilentNoOp(t *testing.T) {
	store := newMockStore()
	ledger := NewLedger(filepath.Join(t.TempDir(), "failed-sync.jsonl"))
	auth := AuthFunc(func() string { return "" })
	syncer := New(store, auth, NewLockRegistry(), ledger, testLogger())

	ctx := context.Background()
	if err := syncer.AddTemplate(ctx, testTemplate("t1", "bench")); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}
	if err := syncer.UpdateSession(ctx, testSession("s1", "row")); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	if err := syncer.SyncWeightEntry(ctx, &document.WeightEntry{ID: "w1", Weight: 80, Unit: "kg", RecordedAt: time.Now()}); err != nil {
		t.Fatalf("SyncWeightEntry failed: %v", err)
	}

	if store.totalCalls() != 0 {
		t.Errorf("expected zero remote calls while logged out, got %d", store.totalCalls())
	}
}

func TestAddSession_EmptyRefusedBeforeLock(t *testing.T) {
	store := newMockStore()
	syncer, ledger := newTestSyncer(t, store)

	sess := testSession("s1")
	sess.Exercises = nil

	if err := syncer.AddSession(context.Background(), sess); err != nil {
		t.Fatalf("AddSession failed: %v", err)
	}

	if store.totalCalls() != 0 {
		t.Errorf("expected zero remote calls, got %d", store.totalCalls())
	}

	entries, err := ledger.Entries()
	if err != nil {
		t.Fatalf("failed to read ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	if entries[0].Type != EntryTypeEmptySessionBlocked {
		t.Errorf("expected %s entry, got %s", EntryTypeEmptySessionBlocked, entries[0].Type)
	}
	if entries[0].ResourceID != "s1" {
		t.Errorf("expected resource id s1, got %s", entries[0].ResourceID)
	}
}

func TestUpdateTemplate_DuplicateCorruptionBlocksEverything(t *testing.T) {
	store := newMockStore()
	store.childCounts[remote.TableTemplateExercises+"/t1"] = 2
	syncer, ledger := newTestSyncer(t, store)

	// One exercise id repeated four times is a corruption signature.
	tmpl := testTemplate("t1", "bench", "bench", "bench", "bench")

	if err := syncer.UpdateTemplate(context.Background(), tmpl); err != nil {
		t.Fatalf("UpdateTemplate failed: %v", err)
	}

	if store.updateCalls != 0 {
		t.Errorf("expected metadata update blocked, got %d updates", store.updateCalls)
	}
	if store.replaceCalls != 0 {
		t.Errorf("expected child replace blocked, got %d replaces", store.replaceCalls)
	}

	// Update blocks are not ledgered, only logged.
	entries, err := ledger.Entries()
	if err != nil {
		t.Fatalf("failed to read ledger: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty ledger, got %d entries", len(entries))
	}
}

func TestUpdateSession_EmptyLocalCommitsMetadataOnly(t *testing.T) {
	store := newMockStore()
	store.childCounts[remote.TableSessionExercises+"/s1"] = 3
	syncer, _ := newTestSyncer(t, store)

	sess := testSession("s1")
	sess.Exercises = nil

	if err := syncer.UpdateSession(context.Background(), sess); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	if store.updateCalls != 1 {
		t.Errorf("expected metadata update to commit, got %d updates", store.updateCalls)
	}
	if store.replaceCalls != 0 {
		t.Errorf("expected zero child mutations, got %d replaces", store.replaceCalls)
	}
}

func TestUpdateSession_SuspiciousShrinkBlocksEverything(t *testing.T) {
	store := newMockStore()
	store.childCounts[remote.TableSessionExercises+"/s1"] = 5
	syncer, _ := newTestSyncer(t, store)

	// 2 < 5 * 0.5: the session shrank below half the remote count.
	if err := syncer.UpdateSession(context.Background(), testSession("s1", "bench", "squat")); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	if store.updateCalls != 0 {
		t.Errorf("expected update blocked including metadata, got %d updates", store.updateCalls)
	}
	if store.replaceCalls != 0 {
		t.Errorf("expected no child replace, got %d", store.replaceCalls)
	}
}

func TestUpdateTemplate_ShrinkRuleDoesNotApply(t *testing.T) {
	store := newMockStore()
	store.childCounts[remote.TableTemplateExercises+"/t1"] = 5
	syncer, _ := newTestSyncer(t, store)

	// Removing more than half the exercises is a legitimate template edit.
	if err := syncer.UpdateTemplate(context.Background(), testTemplate("t1", "bench", "squat")); err != nil {
		t.Fatalf("UpdateTemplate failed: %v", err)
	}

	if store.updateCalls != 1 {
		t.Errorf("expected metadata update, got %d", store.updateCalls)
	}
	if store.replaceCalls != 1 {
		t.Errorf("expected child replace, got %d", store.replaceCalls)
	}
}

func TestAddTemplate_OversizedBlocked(t *testing.T) {
	store := newMockStore()
	syncer, _ := newTestSyncer(t, store)

	tmpl := testTemplate("t1")
	for i := 0; i <= MaxChildCollectionSize; i++ {
		tmpl.Exercises = append(tmpl.Exercises, document.TemplateExercise{
			ExerciseID: fmt.Sprintf("ex-%d", i),
			Type:       document.TypeStrength,
		})
	}

	if err := syncer.AddTemplate(context.Background(), tmpl); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	if store.insertCalls != 0 || store.batchCalls != 0 {
		t.Errorf("expected oversized insert blocked, got %d inserts and %d batches",
			store.insertCalls, store.batchCalls)
	}
}

func TestUpdateSession_ConcurrentAttemptsOneWins(t *testing.T) {
	store := newMockStore()
	store.childCounts[remote.TableSessionExercises+"/s1"] = 2
	store.countDelay = 50 * time.Millisecond
	syncer, _ := newTestSyncer(t, store)

	sess := testSession("s1", "bench", "squat")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := syncer.UpdateSession(context.Background(), sess); err != nil {
			t.Errorf("first update failed: %v", err)
		}
	}()

	// Second attempt arrives while the first is still in flight.
	time.Sleep(5 * time.Millisecond)
	go func() {
		defer wg.Done()
		if err := syncer.UpdateSession(context.Background(), sess); err != nil {
			t.Errorf("second update failed: %v", err)
		}
	}()

	wg.Wait()

	if store.updateCalls != 1 {
		t.Errorf("expected exactly one remote update, got %d", store.updateCalls)
	}
	if store.replaceCalls != 1 {
		t.Errorf("expected exactly one child replace, got %d", store.replaceCalls)
	}
}

func TestSyncDocument_SweepSkipsActiveSession(t *testing.T) {
	store := newMockStore()
	syncer, _ := newTestSyncer(t, store)

	active := testSession("s-active", "bench")
	active.CompletedAt = nil

	doc := &document.Document{
		Templates: []document.Template{*testTemplate("t1", "bench")},
		Sessions:  []document.Session{*testSession("s1", "bench"), *active},
		CustomExercises: []document.Exercise{
			{ID: "ex1", Name: "Hack Squat", Type: document.TypeStrength, CreatedAt: time.Now()},
		},
		WeightEntries: []document.WeightEntry{
			{ID: "w1", Weight: 80, Unit: "kg", RecordedAt: time.Now()},
		},
	}

	res, err := syncer.SyncDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("SyncDocument failed: %v", err)
	}

	if res.Templates != 1 {
		t.Errorf("expected 1 template synced, got %d", res.Templates)
	}
	if res.Sessions != 1 {
		t.Errorf("expected 1 completed session synced, got %d", res.Sessions)
	}
	if res.Exercises != 1 || res.WeightEntries != 1 {
		t.Errorf("expected 1 exercise and 1 weight entry, got %d and %d", res.Exercises, res.WeightEntries)
	}
	if store.upsertCalls != 2 {
		t.Errorf("expected 2 upserts, got %d", store.upsertCalls)
	}
	// t1 and s1 inserted; the in-progress session never reached the store.
	if store.insertCalls != 2 {
		t.Errorf("expected 2 parent inserts, got %d", store.insertCalls)
	}
}

// TestTemplateRoundTrip exercises the full add-probe-update cycle against
// the real embedded store: a second add for the same id must be recognized
// as existing and converge to an update instead of inserting a duplicate.
func TestTemplateRoundTrip(t *testing.T) {
	db, err := remote.Open(filepath.Join(t.TempDir(), "remote.db"))
	if err != nil {
		t.Fatalf("failed to open remote store: %v", err)
	}
	defer db.Close()
	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	syncer, _ := newTestSyncer(t, db)
	ctx := context.Background()

	tmpl := testTemplate("3b36e6a7-46a7-4c3e-9743-a3b1a4e9f9af", "bench", "squat")
	if err := syncer.AddTemplate(ctx, tmpl); err != nil {
		t.Fatalf("first AddTemplate failed: %v", err)
	}

	tmpl.Name = "Push Day v2"
	tmpl.Exercises = tmpl.Exercises[:1]
	if err := syncer.AddTemplate(ctx, tmpl); err != nil {
		t.Fatalf("second AddTemplate failed: %v", err)
	}

	var count int
	if err := db.RawDB().QueryRow("SELECT COUNT(*) FROM templates").Scan(&count); err != nil {
		t.Fatalf("failed to count templates: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 template row (no duplicate insert), got %d", count)
	}

	var name string
	if err := db.RawDB().QueryRow("SELECT name FROM templates WHERE id = ?", tmpl.ID).Scan(&name); err != nil {
		t.Fatalf("failed to read template name: %v", err)
	}
	if name != "Push Day v2" {
		t.Errorf("expected updated name, got %q", name)
	}

	exCount, err := db.CountRows(ctx, remote.TableTemplateExercises, remote.ColTemplateID, tmpl.ID)
	if err != nil {
		t.Fatalf("failed to count exercises: %v", err)
	}
	if exCount != 1 {
		t.Errorf("expected 1 exercise row after replace, got %d", exCount)
	}
}
