package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"nexus/pkg/logging"
)

// Registration sentinel errors.
var (
	ErrAlreadyRegistered = errors.New("server already registered")
	ErrNotRegistered     = errors.New("server not registered")
)

// OperationLister connects to a tool server and lists the operations it
// exposes. internal/mcpclient provides the production implementation.
type OperationLister interface {
	ListOperations(ctx context.Context, record *ServerRecord) ([]Operation, error)
}

// Profiler produces the semantic profile for a server from its operations.
type Profiler interface {
	Profile(ctx context.Context, serverName string, operations []Operation) (*SemanticProfile, error)
}

// Store persists server records. A nil store is valid and means in-memory
// only.
type Store interface {
	SaveServer(ctx context.Context, record *ServerRecord) error
	DeleteServer(ctx context.Context, name string) error
}

// Manager drives the registration lifecycle: connect to a server, read its
// operations, have the oracle profile it, persist the result, and publish it
// through the registry.
type Manager struct {
	registry *Registry
	lister   OperationLister
	profiler Profiler
	store    Store
}

// NewManager creates a registration manager around the given registry.
func NewManager(reg *Registry, lister OperationLister, profiler Profiler, store Store) *Manager {
	return &Manager{
		registry: reg,
		lister:   lister,
		profiler: profiler,
		store:    store,
	}
}

// Registry returns the catalog the manager publishes into.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Register connects to the server described by def, lists its operations,
// profiles it, and publishes the record.
//
// Re-registering an existing name requires force; a forced re-register keeps
// the original registration timestamp. A server whose operations cannot be
// listed is still recorded, with status offline, so it stays visible and can
// be retried later. A profiling failure downgrades the record to registered
// instead of failing the call; the capability graph simply has less context
// to work with until the server is re-registered.
func (m *Manager) Register(ctx context.Context, def Definition, force bool) (*ServerRecord, error) {
	existing := m.registry.Get(def.Name)
	if existing != nil && !force {
		return nil, fmt.Errorf("server %q: %w", def.Name, ErrAlreadyRegistered)
	}

	now := time.Now().UTC()
	record := &ServerRecord{
		Name:         def.Name,
		Command:      def.Command,
		Args:         append([]string(nil), def.Args...),
		Transport:    def.Transport,
		URL:          def.URL,
		Status:       StatusRegistered,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	if len(def.Env) > 0 {
		record.Env = make(map[string]string, len(def.Env))
		for k, v := range def.Env {
			record.Env[k] = v
		}
	}
	if record.Transport == "" {
		record.Transport = TransportStdio
	}
	if existing != nil {
		record.RegisteredAt = existing.RegisteredAt
	}

	logging.Info("Registry", "Connecting to server %s", def.Name)
	operations, err := m.lister.ListOperations(ctx, record)
	if err != nil {
		record.Status = StatusOffline
		m.persist(ctx, record)
		m.registry.Put(record)
		return nil, fmt.Errorf("listing operations of %s: %w", def.Name, err)
	}
	record.Operations = operations
	logging.Info("Registry", "Server %s exposes %d operations", def.Name, len(operations))

	profile, err := m.profiler.Profile(ctx, def.Name, operations)
	if err != nil {
		logging.Warn("Registry", "Profiling %s failed, registering without a profile: %v", def.Name, err)
	} else {
		record.Profile = profile
		record.Status = StatusProfiled
	}

	m.persist(ctx, record)
	m.registry.Put(record)

	for _, peer := range m.chainCandidates(record) {
		logging.Info("Registry", "Server %s can potentially chain with %s", record.Name, peer)
	}
	return record, nil
}

// Unregister removes the named server from the catalog and from storage.
// Persisted edges touching the server are removed by the store's cascade.
func (m *Manager) Unregister(ctx context.Context, name string) error {
	if !m.registry.Remove(name) {
		return fmt.Errorf("server %q: %w", name, ErrNotRegistered)
	}
	if m.store != nil {
		if err := m.store.DeleteServer(ctx, name); err != nil {
			return fmt.Errorf("deleting server %s: %w", name, err)
		}
	}
	logging.Info("Registry", "Unregistered server %s", name)
	return nil
}

// RefreshAll re-lists the operations of every registered server. Servers
// that cannot be reached are marked offline and logged; reachable servers
// that were offline recover their previous status. Refreshes run
// concurrently since no pipeline is executing at startup.
func (m *Manager) RefreshAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, record := range m.registry.Snapshot() {
		record := record
		g.Go(func() error {
			operations, err := m.lister.ListOperations(ctx, record)
			if err != nil {
				logging.Warn("Registry", "Server %s is unreachable, marking offline: %v", record.Name, err)
				m.registry.SetStatus(record.Name, StatusOffline)
				return nil
			}

			m.registry.UpdateOperations(record.Name, operations)
			if record.Status == StatusOffline {
				status := StatusRegistered
				if record.Profile != nil {
					status = StatusProfiled
				}
				m.registry.SetStatus(record.Name, status)
			}
			m.persist(ctx, m.registry.Get(record.Name))
			return nil
		})
	}
	return g.Wait()
}

// persist saves the record, logging instead of failing: a storage hiccup
// should not lose an in-memory registration.
func (m *Manager) persist(ctx context.Context, record *ServerRecord) {
	if m.store == nil || record == nil {
		return
	}
	if err := m.store.SaveServer(ctx, record); err != nil {
		logging.Warn("Registry", "Persisting server %s failed: %v", record.Name, err)
	}
}

// chainCandidates returns the names of already-registered servers whose
// profiles suggest they could chain with the given one, either through
// shared capability tags or because the new profile's compatible_with
// entries mention them.
func (m *Manager) chainCandidates(record *ServerRecord) []string {
	if record.Profile == nil {
		return nil
	}

	newTags := make(map[string]bool, len(record.Profile.CapabilityTags))
	for _, tag := range record.Profile.CapabilityTags {
		newTags[tag] = true
	}

	var candidates []string
	for _, peer := range m.registry.Snapshot() {
		if peer.Name == record.Name || peer.Profile == nil {
			continue
		}

		tagOverlap := false
		for _, tag := range peer.Profile.CapabilityTags {
			if newTags[tag] {
				tagOverlap = true
				break
			}
		}

		mentioned := false
		for _, c := range record.Profile.CompatibleWith {
			lc := strings.ToLower(c)
			if strings.Contains(lc, strings.ToLower(peer.Name)) {
				mentioned = true
				break
			}
			for _, tag := range peer.Profile.CapabilityTags {
				if strings.Contains(lc, strings.ToLower(tag)) {
					mentioned = true
					break
				}
			}
			if mentioned {
				break
			}
		}

		if tagOverlap || mentioned {
			candidates = append(candidates, peer.Name)
		}
	}
	return candidates
}
