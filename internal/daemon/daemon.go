// Package daemon watches the persisted workout document and pushes changes
// to the remote store.
//
// The daemon:
//  1. Performs an initial load, migration and full sweep on startup
//  2. Watches the document file for writes
//  3. Debounces rapid saves into a single reload-and-sweep
//  4. Handles graceful shutdown
//
// There is no timer-driven sync sweep: the watcher fires only when a user
// action saved the document, so every sweep is still triggered by a user
// action's completion.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/DustinBergman/workout-app-sub001/internal/dashboard"
	"github.com/DustinBergman/workout-app-sub001/internal/document"
	"github.com/DustinBergman/workout-app-sub001/internal/migrate"
	wsync "github.com/DustinBergman/workout-app-sub001/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long to wait after a document write before
	// reloading and sweeping. This batches rapid saves together.
	DebounceInterval time.Duration

	// LogFile, when set, sends daemon logs to a size-rotated file instead
	// of stderr.
	LogFile string

	// Logger for daemon activity. Overrides LogFile when set.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 250 * time.Millisecond,
	}
}

// Daemon orchestrates document watching and remote synchronization.
type Daemon struct {
	store     *document.Store
	syncer    *wsync.Syncer
	dashboard *dashboard.Server // optional
	config    *Config
	logger    *log.Logger

	watcher      *fsnotify.Watcher
	pendingMu    sync.Mutex
	pendingAt    time.Time
	lastSelfSave time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Daemon watching the given document store.
//
// dash may be nil; when set, sweep completions are broadcast to connected
// dashboard clients.
func New(store *document.Store, syncer *wsync.Syncer, dash *dashboard.Server, config *Config) (*Daemon, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if syncer == nil {
		return nil, fmt.Errorf("syncer cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.DebounceInterval == 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}

	logger := config.Logger
	if logger == nil {
		if config.LogFile != "" {
			logger = log.New(&lumberjack.Logger{
				Filename:   config.LogFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
			}, "[daemon] ", log.LstdFlags)
		} else {
			logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		store:     store,
		syncer:    syncer,
		dashboard: dash,
		config:    config,
		logger:    logger,
		watcher:   watcher,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon performs an initial sweep, then watches the document file and
// sweeps again after each debounced write. This blocks until ctx is
// cancelled or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.logger.Println("Starting daemon")

	if err := d.reloadAndSweep(ctx); err != nil {
		return fmt.Errorf("initial sweep failed: %w", err)
	}

	// Watch the containing directory: atomic saves replace the document
	// file by rename, which would silently detach a watch on the file
	// itself.
	dir := filepath.Dir(d.store.Path())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}
	if err := d.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch document directory: %w", err)
	}

	d.logger.Printf("Watching: %s", d.store.Path())

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processPending()

	select {
	case <-ctx.Done():
		d.logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.logger.Println("Daemon stopped")
	return nil
}

// watchFileEvents monitors filesystem events and queues a pending sweep.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			// Only care about the document file itself
			if event.Name != d.store.Path() {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			// The daemon's own saves (persisting migrations and repairs)
			// fire the watcher too; skip those so they don't queue a
			// redundant sweep.
			if d.recentSelfSave() {
				continue
			}

			d.logger.Printf("Document event: %s", event.Op)
			d.queueSweep()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueSweep records that the document changed; the debounce loop picks
// it up once writes have settled.
func (d *Daemon) queueSweep() {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()

	d.pendingAt = time.Now()
}

// selfSaveWindow is how long after one of the daemon's own document saves
// watcher events for the document are ignored.
const selfSaveWindow = 200 * time.Millisecond

// saveDocument persists the document and records the save time so the
// resulting watcher event can be recognized as self-inflicted.
func (d *Daemon) saveDocument(doc *document.Document) error {
	if err := d.store.Save(doc); err != nil {
		return err
	}
	d.pendingMu.Lock()
	d.lastSelfSave = time.Now()
	d.pendingMu.Unlock()
	return nil
}

func (d *Daemon) recentSelfSave() bool {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()

	return !d.lastSelfSave.IsZero() && time.Since(d.lastSelfSave) < selfSaveWindow
}

// processPending runs debounced sweeps.
func (d *Daemon) processPending() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.pendingMu.Lock()
			queuedAt := d.pendingAt
			ready := !queuedAt.IsZero() && time.Since(queuedAt) >= d.config.DebounceInterval
			if ready {
				d.pendingAt = time.Time{}
			}
			d.pendingMu.Unlock()

			if !ready {
				continue
			}

			if err := d.reloadAndSweep(d.ctx); err != nil {
				d.logger.Printf("Error during sweep: %v", err)
			}
		}
	}
}

// reloadAndSweep loads the document, migrates it if its schema version is
// behind, runs the opportunistic shape repairs, and sweeps it to the
// remote store.
func (d *Daemon) reloadAndSweep(ctx context.Context) error {
	doc, err := d.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		d.logger.Printf("No document yet at %s (skipping)", d.store.Path())
		return nil
	}

	migrated := false
	if doc.Version < migrate.CurrentVersion {
		migrate.Migrate(doc, d.logger)
		migrated = true
	}
	repaired := migrate.Normalize(doc)

	// Persist migrations and repairs so regenerated identifiers stay
	// stable: sweeping an unsaved repair would mint new UUIDs on every
	// sweep and duplicate remote rows.
	if migrated || repaired {
		if err := d.saveDocument(doc); err != nil {
			return fmt.Errorf("failed to save repaired document: %w", err)
		}
	}

	if d.dashboard != nil {
		d.dashboard.BroadcastDocumentLoaded(doc.Version, len(doc.Templates), len(doc.Sessions))
	}

	start := time.Now()
	res, err := d.syncer.SyncDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	if d.dashboard != nil {
		d.dashboard.BroadcastSweep(res, time.Since(start))
	}

	return nil
}
