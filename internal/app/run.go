package app

import (
	"context"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"nexus/internal/config"
	"nexus/internal/registry"
	"nexus/pkg/logging"
)

// changeEventBuffer sizes the watcher's event channel. Definition edits are
// human-paced; the buffer only has to absorb a burst from a directory copy.
const changeEventBuffer = 16

// runBroker brings the broker online and keeps it there: refresh the servers
// warmed from storage, sync definition files, start the facade, watch the
// definitions directory, block until a signal, shut down cleanly.
func runBroker(ctx context.Context, cfg *Config, c *Components) error {
	if err := c.Manager.RefreshAll(ctx); err != nil {
		return err
	}

	registered, err := syncDefinitions(ctx, cfg, c)
	if err != nil {
		return err
	}

	if err := c.Broker.Start(ctx); err != nil {
		return err
	}
	logging.Info("App", "Broker ready on %s", c.Broker.GetEndpoint())

	if registered > 0 {
		c.Broker.ScheduleRebuild(true)
	}

	changes := make(chan registry.ChangeEvent, changeEventBuffer)
	watcher := registry.NewWatcher(config.ServersPath(cfg.ConfigPath), 0)
	if err := watcher.Start(ctx, changes); err != nil {
		logging.Warn("App", "Definitions watcher disabled: %v", err)
	} else {
		defer watcher.Stop()
		go applyDefinitionChanges(ctx, c, changes)
	}

	// Wait for interrupt signal to gracefully shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logging.Info("App", "Received %s, shutting down", sig)
	case <-ctx.Done():
		logging.Info("App", "Context canceled, shutting down")
	}

	// The run context is gone by now; shutdown gets its own.
	return c.Broker.Stop(context.Background())
}

// syncDefinitions reconciles the definition files in <config>/servers with
// the registry: unseen definitions are registered, changed ones
// re-registered. Servers with no definition file (registered through the
// facade) are left alone. One failing server does not stop the sync; its
// record is kept offline for a later retry. Returns how many servers were
// (re)registered.
func syncDefinitions(ctx context.Context, cfg *Config, c *Components) (int, error) {
	dir := config.ServersPath(cfg.ConfigPath)
	defs, err := registry.LoadDefinitions(dir)
	if err != nil {
		return 0, err
	}

	registered := 0
	for _, def := range defs {
		existing := c.Registry.Get(def.Name)
		if existing != nil && !definitionChanged(existing, def) {
			continue
		}
		if _, err := c.Manager.Register(ctx, def, existing != nil); err != nil {
			logging.Warn("App", "Registering %s from %s failed: %v", def.Name, dir, err)
			continue
		}
		registered++
	}
	return registered, nil
}

// definitionChanged reports whether the definition no longer matches how the
// server was registered, in which case a forced re-register picks up the new
// reachability.
func definitionChanged(record *registry.ServerRecord, def registry.Definition) bool {
	if record.Command != def.Command || record.URL != def.URL {
		return true
	}
	if normalizeTransport(record.Transport) != normalizeTransport(def.Transport) {
		return true
	}
	if !slices.Equal(record.Args, def.Args) {
		return true
	}
	return !maps.Equal(record.Env, def.Env)
}

func normalizeTransport(transport string) string {
	if transport == "" {
		return registry.TransportStdio
	}
	return transport
}

// applyDefinitionChanges consumes watcher events until the context ends.
// Every applied change schedules an incremental graph rebuild so new or
// removed operations show up in discovery without a restart.
func applyDefinitionChanges(ctx context.Context, c *Components, changes <-chan registry.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-changes:
			if applyDefinitionChange(ctx, c, event) {
				c.Broker.ScheduleRebuild(true)
			}
		}
	}
}

// applyDefinitionChange applies one settled file event and reports whether
// the registry changed. A definition that fails to load or register is
// logged and skipped; the watcher will hand us the file again on its next
// save.
func applyDefinitionChange(ctx context.Context, c *Components, event registry.ChangeEvent) bool {
	switch event.Operation {
	case registry.OperationDelete:
		if err := c.Manager.Unregister(ctx, event.Name); err != nil {
			logging.Warn("App", "Unregistering %s failed: %v", event.Name, err)
			return false
		}
		logging.Info("App", "Unregistered %s, its definition file was removed", event.Name)
		return true

	default:
		def, err := registry.LoadDefinition(event.FilePath)
		if err != nil {
			logging.Warn("App", "Skipping changed definition %s: %v", event.FilePath, err)
			return false
		}
		if _, err := c.Manager.Register(ctx, *def, true); err != nil {
			logging.Warn("App", "Registering %s failed: %v", def.Name, err)
			return false
		}
		logging.Info("App", "Applied %s of definition %s", event.Operation, def.Name)
		return true
	}
}
