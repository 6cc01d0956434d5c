package registry

import (
	"sort"
	"sync"
	"time"
)

// Registry is the in-memory catalog of registered tool servers.
//
// It maintains a thread-safe mapping of server names to their records,
// including cached operations, semantic profiles, and status. The broker
// facade serves concurrent MCP clients and the definitions watcher mutates
// the catalog at runtime, so all access goes through the RWMutex.
//
// Records are treated as copy-on-write: mutation methods clone the stored
// record, modify the clone, and swap it in. Pointers returned by Get and
// Snapshot therefore stay valid and immutable for as long as the caller
// holds them.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]*ServerRecord

	// Channel for notifying subscribers about catalog changes.
	updateChan chan struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		servers:    make(map[string]*ServerRecord),
		updateChan: make(chan struct{}, 1),
	}
}

// Put stores a record under its name, replacing any existing record. The
// record is cloned on the way in so the caller keeps ownership of its copy.
func (r *Registry) Put(record *ServerRecord) {
	r.mu.Lock()
	r.servers[record.Name] = record.Clone()
	r.mu.Unlock()

	r.notifyUpdate()
}

// Get returns the record for the named server, or nil if it is not
// registered. The returned record must be treated as read-only.
func (r *Registry) Get(name string) *ServerRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.servers[name]
}

// Remove deletes the named server. It reports whether the server existed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	_, existed := r.servers[name]
	delete(r.servers, name)
	r.mu.Unlock()

	if existed {
		r.notifyUpdate()
	}
	return existed
}

// Names returns the registered server names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.servers))
	for name := range r.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns all records ordered by server name. The slice is fresh
// but the records are the stored (immutable) instances.
func (r *Registry) Snapshot() []*ServerRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.servers))
	for name := range r.servers {
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]*ServerRecord, 0, len(names))
	for _, name := range names {
		records = append(records, r.servers[name])
	}
	return records
}

// Len returns the number of registered servers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.servers)
}

// SetStatus updates the status of the named server. Unknown names are
// ignored.
func (r *Registry) SetStatus(name, status string) {
	r.mu.Lock()
	record, ok := r.servers[name]
	if ok && record.Status != status {
		updated := record.Clone()
		updated.Status = status
		updated.UpdatedAt = time.Now().UTC()
		r.servers[name] = updated
	}
	r.mu.Unlock()

	if ok {
		r.notifyUpdate()
	}
}

// UpdateOperations replaces the cached operations of the named server.
// Unknown names are ignored.
func (r *Registry) UpdateOperations(name string, operations []Operation) {
	r.mu.Lock()
	record, ok := r.servers[name]
	if ok {
		updated := record.Clone()
		updated.Operations = operations
		updated.UpdatedAt = time.Now().UTC()
		r.servers[name] = updated
	}
	r.mu.Unlock()

	if ok {
		r.notifyUpdate()
	}
}

// UpdateChannel returns the channel on which catalog changes are announced.
// The channel has a buffer of one; subscribers that poll the registry after
// each receive observe every change.
func (r *Registry) UpdateChannel() <-chan struct{} {
	return r.updateChan
}

// notifyUpdate signals subscribers without blocking. If a notification is
// already pending the new one is dropped; the pending receive will see the
// latest state anyway.
func (r *Registry) notifyUpdate() {
	select {
	case r.updateChan <- struct{}{}:
	default:
	}
}
