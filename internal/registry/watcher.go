package registry

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"nexus/pkg/logging"
)

// ChangeOperation classifies what happened to a definition file.
type ChangeOperation string

const (
	OperationCreate ChangeOperation = "create"
	OperationUpdate ChangeOperation = "update"
	OperationDelete ChangeOperation = "delete"
)

// ChangeEvent describes one settled change to a server definition file.
// ID is unique per emitted event so consumers can correlate log lines and
// drop duplicates across watcher restarts.
type ChangeEvent struct {
	ID        string
	Name      string
	Operation ChangeOperation
	FilePath  string
	Timestamp time.Time
}

// Watcher watches the server definitions directory and emits debounced
// change events. Editors tend to produce bursts of writes for a single
// save; the debounce window collapses each burst into one event per file.
type Watcher struct {
	mu sync.Mutex

	// dir is the definitions directory being watched
	dir string

	// watcher is the fsnotify watcher instance
	watcher *fsnotify.Watcher

	// debounceInterval is how long to wait for additional changes
	debounceInterval time.Duration

	// pendingEvents tracks pending debounced events per file name
	pendingEvents map[string]*debounceEntry

	// stopCh signals shutdown
	stopCh chan struct{}

	// running indicates if the watcher is active
	running bool
}

// debounceEntry tracks a pending event for debouncing.
type debounceEntry struct {
	event ChangeEvent
	timer *time.Timer
}

// NewWatcher creates a watcher for the given definitions directory.
func NewWatcher(dir string, debounceInterval time.Duration) *Watcher {
	if debounceInterval == 0 {
		debounceInterval = 500 * time.Millisecond
	}

	return &Watcher{
		dir:              dir,
		debounceInterval: debounceInterval,
		pendingEvents:    make(map[string]*debounceEntry),
		stopCh:           make(chan struct{}),
	}
}

// Start begins watching. The directory is created if it does not exist.
// Events are delivered on changes until ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context, changes chan<- ChangeEvent) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		w.mu.Unlock()
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		w.mu.Unlock()
		return err
	}

	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	go w.processEvents(ctx, changes)

	logging.Info("Watcher", "Watching %s for server definition changes", w.dir)
	return nil
}

// processEvents handles filesystem events until shutdown.
func (w *Watcher) processEvents(ctx context.Context, changes chan<- ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			w.cleanupPendingEvents()
			return

		case <-w.stopCh:
			w.cleanupPendingEvents()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event, changes)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher", err, "Filesystem watcher error")
		}
	}
}

// handleFsEvent classifies a single filesystem event and debounces it.
func (w *Watcher) handleFsEvent(event fsnotify.Event, changes chan<- ChangeEvent) {
	if !isYAMLFile(event.Name) {
		return
	}

	var operation ChangeOperation
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		operation = OperationCreate
	case event.Op&fsnotify.Write == fsnotify.Write:
		operation = OperationUpdate
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		operation = OperationDelete
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		// Rename is treated as delete (the new name will trigger a create)
		operation = OperationDelete
	default:
		return
	}

	w.debounceEvent(ChangeEvent{
		ID:        uuid.New().String(),
		Name:      definitionName(event.Name),
		Operation: operation,
		FilePath:  event.Name,
		Timestamp: time.Now(),
	}, changes)
}

// debounceEvent collapses rapid successive changes to the same file into a
// single emitted event.
func (w *Watcher) debounceEvent(event ChangeEvent, changes chan<- ChangeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := event.Name

	if entry, ok := w.pendingEvents[key]; ok {
		entry.timer.Stop()
		event.Operation = mergeOperations(entry.event.Operation, event.Operation)
	}

	timer := time.AfterFunc(w.debounceInterval, func() {
		w.mu.Lock()
		entry, ok := w.pendingEvents[key]
		if ok {
			delete(w.pendingEvents, key)
		}
		w.mu.Unlock()

		if ok {
			select {
			case changes <- entry.event:
				logging.Debug("Watcher", "Emitted change event %s: %s %s",
					entry.event.ID, entry.event.Operation, entry.event.Name)
			default:
				logging.Warn("Watcher", "Change event channel full, dropping event for %s",
					entry.event.Name)
			}
		}
	})

	w.pendingEvents[key] = &debounceEntry{event: event, timer: timer}
}

// mergeOperations merges two operations into a single logical operation.
func mergeOperations(old, new ChangeOperation) ChangeOperation {
	// Create followed by anything but delete stays a create
	if old == OperationCreate {
		if new == OperationDelete {
			return OperationDelete
		}
		return OperationCreate
	}

	// Update followed by delete is a delete
	if old == OperationUpdate && new == OperationDelete {
		return OperationDelete
	}

	return new
}

// cleanupPendingEvents cancels all pending debounce timers.
func (w *Watcher) cleanupPendingEvents() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, entry := range w.pendingEvents {
		entry.timer.Stop()
	}
	w.pendingEvents = make(map[string]*debounceEntry)
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			logging.Error("Watcher", err, "Error closing filesystem watcher")
		}
		w.watcher = nil
	}

	logging.Info("Watcher", "Stopped definitions watcher")
	return nil
}
