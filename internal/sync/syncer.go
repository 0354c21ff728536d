package sync

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/DustinBergman/workout-app-sub001/internal/document"
	"github.com/DustinBergman/workout-app-sub001/internal/remote"
)

// Syncer propagates templates, sessions, custom exercises and weight
// entries to the remote store.
//
// All collaborators are injected; the lock registry in particular must be
// the single process-wide instance so the at-most-one-in-flight guarantee
// holds across every caller. A sync begun is not cancelable by UI
// navigation: callers dispatch sync methods on their own goroutines and
// must not await them for responsiveness.
type Syncer struct {
	remote RemoteStore
	auth   Auth
	locks  *LockRegistry
	ledger *Ledger
	logger *log.Logger
}

// New creates a Syncer.
//
// If logger is nil, a default logger writing to stderr is used.
func New(store RemoteStore, auth Auth, locks *LockRegistry, ledger *Ledger, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Syncer{
		remote: store,
		auth:   auth,
		locks:  locks,
		ledger: ledger,
		logger: logger,
	}
}

// AddTemplate inserts the template remotely. If the template already exists
// (for example because a prior add created the row but failed on the child
// insert), the call converges to the update path instead of inserting a
// duplicate.
func (s *Syncer) AddTemplate(ctx context.Context, t *document.Template) error {
	owner := s.auth.CurrentUserID()
	if owner == "" {
		return nil
	}

	delegate, err := s.insertTemplate(ctx, owner, t)
	if err != nil {
		return err
	}
	if delegate {
		// The add lock is released by now; the update path takes its own.
		return s.UpdateTemplate(ctx, t)
	}
	return nil
}

// insertTemplate performs the insert under the template's lock. It returns
// delegate=true when the template already exists remotely and the caller
// should fall through to the update path.
func (s *Syncer) insertTemplate(ctx context.Context, owner string, t *document.Template) (delegate bool, err error) {
	if !s.locks.TryAcquire(KindTemplate, t.ID) {
		s.logger.Printf("template %s: sync already in flight, abandoning add", t.ID)
		return false, nil
	}
	defer s.locks.Release(KindTemplate, t.ID)

	exists, err := s.remote.Exists(ctx, remote.TableTemplates, t.ID, owner)
	if err != nil {
		return false, fmt.Errorf("failed to probe template %s: %w", t.ID, err)
	}
	if exists {
		return true, nil
	}

	if a := AssessInsert(len(t.Exercises), t.ExerciseIDs()); !a.Allow {
		s.logger.Printf("template %s: add blocked (%s)", t.ID, a.Reason)
		return false, nil
	}

	if err := s.remote.InsertRow(ctx, remote.TableTemplates, templateRow(owner, t)); err != nil {
		return false, fmt.Errorf("failed to insert template %s: %w", t.ID, err)
	}
	if rows := templateExerciseRows(t); len(rows) > 0 {
		if err := s.remote.BatchInsertRows(ctx, remote.TableTemplateExercises, rows); err != nil {
			return false, fmt.Errorf("failed to insert exercises for template %s: %w", t.ID, err)
		}
	}

	s.logger.Printf("template %s: inserted with %d exercises", t.ID, len(t.Exercises))
	return false, nil
}

// UpdateTemplate patches the template's scalar fields and replaces its
// remote exercise rows with the local list.
//
// Guard-blocked updates are dropped without error. When the local exercise
// list is empty the metadata patch still commits but the remote exercise
// rows are left untouched.
func (s *Syncer) UpdateTemplate(ctx context.Context, t *document.Template) error {
	owner := s.auth.CurrentUserID()
	if owner == "" {
		return nil
	}

	if !s.locks.TryAcquire(KindTemplate, t.ID) {
		s.logger.Printf("template %s: sync already in flight, abandoning update", t.ID)
		return nil
	}
	defer s.locks.Release(KindTemplate, t.ID)

	remoteCount, err := s.remote.CountRows(ctx, remote.TableTemplateExercises, remote.ColTemplateID, t.ID)
	if err != nil {
		return fmt.Errorf("failed to count remote exercises for template %s: %w", t.ID, err)
	}

	a := AssessUpdate(KindTemplate, len(t.Exercises), remoteCount, t.ExerciseIDs())
	if !a.Allow {
		s.logger.Printf("template %s: update blocked (%s), local=%d remote=%d",
			t.ID, a.Reason, len(t.Exercises), remoteCount)
		return nil
	}

	if err := s.remote.UpdateRow(ctx, remote.TableTemplates, t.ID, owner, templateMetadataPatch(t)); err != nil {
		return fmt.Errorf("failed to update template %s: %w", t.ID, err)
	}

	if !a.ChildSync {
		if a.Reason != "" {
			s.logger.Printf("template %s: metadata updated, exercises left untouched (%s)", t.ID, a.Reason)
		}
		return nil
	}

	children := []remote.ChildSet{{
		Table:     remote.TableTemplateExercises,
		ParentCol: remote.ColTemplateID,
		Rows:      templateExerciseRows(t),
	}}
	if err := s.remote.ReplaceChildren(ctx, t.ID, children); err != nil {
		return fmt.Errorf("failed to replace exercises for template %s: %w", t.ID, err)
	}

	s.logger.Printf("template %s: updated, %d exercises replaced", t.ID, len(t.Exercises))
	return nil
}

// AddSession inserts the session remotely with its exercises and completed
// sets. Like AddTemplate, it converges to the update path when the row
// already exists.
//
// A session with zero exercises is refused before any lock is taken and
// recorded in the failed-sync ledger: an empty completed session is itself
// a corruption signature rather than a legitimate state.
func (s *Syncer) AddSession(ctx context.Context, sess *document.Session) error {
	owner := s.auth.CurrentUserID()
	if owner == "" {
		return nil
	}

	if len(sess.Exercises) == 0 {
		s.logger.Printf("session %s: add refused, zero exercises", sess.ID)
		if err := s.ledger.Append(Entry{
			Type:         EntryTypeEmptySessionBlocked,
			ResourceID:   sess.ID,
			ResourceName: sess.Name,
		}); err != nil {
			s.logger.Printf("session %s: failed to ledger refusal: %v", sess.ID, err)
		}
		return nil
	}

	delegate, err := s.insertSession(ctx, owner, sess)
	if err != nil {
		return err
	}
	if delegate {
		return s.UpdateSession(ctx, sess)
	}
	return nil
}

func (s *Syncer) insertSession(ctx context.Context, owner string, sess *document.Session) (delegate bool, err error) {
	if !s.locks.TryAcquire(KindSession, sess.ID) {
		s.logger.Printf("session %s: sync already in flight, abandoning add", sess.ID)
		return false, nil
	}
	defer s.locks.Release(KindSession, sess.ID)

	exists, err := s.remote.Exists(ctx, remote.TableSessions, sess.ID, owner)
	if err != nil {
		return false, fmt.Errorf("failed to probe session %s: %w", sess.ID, err)
	}
	if exists {
		return true, nil
	}

	if a := AssessInsert(len(sess.Exercises), sess.ExerciseIDs()); !a.Allow {
		s.logger.Printf("session %s: add blocked (%s)", sess.ID, a.Reason)
		return false, nil
	}

	if err := s.remote.InsertRow(ctx, remote.TableSessions, sessionRow(owner, sess)); err != nil {
		return false, fmt.Errorf("failed to insert session %s: %w", sess.ID, err)
	}
	for _, cs := range sessionChildSets(sess) {
		if err := s.remote.BatchInsertRows(ctx, cs.Table, cs.Rows); err != nil {
			return false, fmt.Errorf("failed to insert %s for session %s: %w", cs.Table, sess.ID, err)
		}
	}

	s.logger.Printf("session %s: inserted with %d exercises", sess.ID, len(sess.Exercises))
	return false, nil
}

// UpdateSession patches the session's scalar fields and replaces its
// remote exercise and set rows with the local state.
//
// Sessions additionally carry the shrink rule: a local exercise list that
// fell below half of the remote count blocks the update entirely.
func (s *Syncer) UpdateSession(ctx context.Context, sess *document.Session) error {
	owner := s.auth.CurrentUserID()
	if owner == "" {
		return nil
	}

	if !s.locks.TryAcquire(KindSession, sess.ID) {
		s.logger.Printf("session %s: sync already in flight, abandoning update", sess.ID)
		return nil
	}
	defer s.locks.Release(KindSession, sess.ID)

	remoteCount, err := s.remote.CountRows(ctx, remote.TableSessionExercises, remote.ColSessionID, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to count remote exercises for session %s: %w", sess.ID, err)
	}

	a := AssessUpdate(KindSession, len(sess.Exercises), remoteCount, sess.ExerciseIDs())
	if !a.Allow {
		s.logger.Printf("session %s: update blocked (%s), local=%d remote=%d",
			sess.ID, a.Reason, len(sess.Exercises), remoteCount)
		return nil
	}

	if err := s.remote.UpdateRow(ctx, remote.TableSessions, sess.ID, owner, sessionMetadataPatch(sess)); err != nil {
		return fmt.Errorf("failed to update session %s: %w", sess.ID, err)
	}

	if !a.ChildSync {
		if a.Reason != "" {
			s.logger.Printf("session %s: metadata updated, exercises left untouched (%s)", sess.ID, a.Reason)
		}
		return nil
	}

	if err := s.remote.ReplaceChildren(ctx, sess.ID, sessionChildSets(sess)); err != nil {
		return fmt.Errorf("failed to replace exercises for session %s: %w", sess.ID, err)
	}

	s.logger.Printf("session %s: updated, %d exercises replaced", sess.ID, len(sess.Exercises))
	return nil
}

// SyncCustomExercise upserts a single custom exercise. Flat single-row
// resources need no lock and no guard.
func (s *Syncer) SyncCustomExercise(ctx context.Context, e *document.Exercise) error {
	owner := s.auth.CurrentUserID()
	if owner == "" {
		return nil
	}
	if err := s.remote.UpsertRow(ctx, remote.TableExercises, exerciseRow(owner, e)); err != nil {
		return fmt.Errorf("failed to upsert exercise %s: %w", e.ID, err)
	}
	return nil
}

// SyncWeightEntry upserts a single body-weight entry.
func (s *Syncer) SyncWeightEntry(ctx context.Context, w *document.WeightEntry) error {
	owner := s.auth.CurrentUserID()
	if owner == "" {
		return nil
	}
	if err := s.remote.UpsertRow(ctx, remote.TableWeightEntries, weightEntryRow(owner, w)); err != nil {
		return fmt.Errorf("failed to upsert weight entry %s: %w", w.ID, err)
	}
	return nil
}

// SweepResult reports what a full-document sweep accomplished.
type SweepResult struct {
	Templates       int
	TemplatesFailed int
	Sessions        int
	SessionsFailed  int
	Exercises       int
	WeightEntries   int
}

// SyncDocument pushes every template, completed session, custom exercise
// and weight entry of the document through the sync paths.
//
// The sweep is resilient: individual resource failures are logged and the
// sweep continues. The in-progress session is skipped; it syncs when the
// user completes it.
func (s *Syncer) SyncDocument(ctx context.Context, doc *document.Document) (SweepResult, error) {
	var res SweepResult

	for i := range doc.Templates {
		if err := s.AddTemplate(ctx, &doc.Templates[i]); err != nil {
			s.logger.Printf("WARNING: failed to sync template %s: %v", doc.Templates[i].ID, err)
			res.TemplatesFailed++
			continue
		}
		res.Templates++
	}

	for i := range doc.Sessions {
		if !doc.Sessions[i].IsCompleted() {
			continue
		}
		if err := s.AddSession(ctx, &doc.Sessions[i]); err != nil {
			s.logger.Printf("WARNING: failed to sync session %s: %v", doc.Sessions[i].ID, err)
			res.SessionsFailed++
			continue
		}
		res.Sessions++
	}

	for i := range doc.CustomExercises {
		if err := s.SyncCustomExercise(ctx, &doc.CustomExercises[i]); err != nil {
			s.logger.Printf("WARNING: failed to sync exercise %s: %v", doc.CustomExercises[i].ID, err)
			continue
		}
		res.Exercises++
	}

	for i := range doc.WeightEntries {
		if err := s.SyncWeightEntry(ctx, &doc.WeightEntries[i]); err != nil {
			s.logger.Printf("WARNING: failed to sync weight entry %s: %v", doc.WeightEntries[i].ID, err)
			continue
		}
		res.WeightEntries++
	}

	s.logger.Printf("sweep complete: templates=%d (failed=%d), sessions=%d (failed=%d), exercises=%d, weights=%d",
		res.Templates, res.TemplatesFailed, res.Sessions, res.SessionsFailed, res.Exercises, res.WeightEntries)

	return res, nil
}
