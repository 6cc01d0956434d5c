package app

import (
	"context"
	"fmt"
	"time"

	"nexus/internal/broker"
	"nexus/internal/config"
	"nexus/internal/graph"
	"nexus/internal/index"
	"nexus/internal/mcpclient"
	"nexus/internal/oracle"
	"nexus/internal/pipeline"
	"nexus/internal/profile"
	"nexus/internal/registry"
	"nexus/internal/store"
	"nexus/internal/translate"
	"nexus/pkg/logging"
)

// Components holds all initialized subsystems used by the application. This
// struct is the explicit dependency container: every component is wired once
// here, and both the broker facade and the CLI commands operate on the same
// instances.
type Components struct {
	// Store is the SQLite persistence layer backing the registry, the
	// capability graph, translation specs, and pipeline history.
	Store *store.Store

	// Oracle is the rate-limited language model client used for profiling,
	// edge validation, discovery, and translation.
	Oracle *oracle.Client

	// Registry is the in-memory server catalog, warmed from storage.
	Registry *registry.Registry

	// Manager drives the registration lifecycle around the registry.
	Manager *registry.Manager

	// Caller reaches downstream tool servers with one session per exchange.
	Caller *mcpclient.OperationCaller

	// Index holds the directional operation embeddings for candidate search.
	Index *index.EmbeddingIndex

	// Graph is the validated capability graph, loaded from storage.
	Graph *graph.Graph

	// Translator generates and caches field mappings between pipeline steps.
	Translator *translate.Engine

	// Executor runs discovered pipelines step by step.
	Executor *pipeline.Executor

	// Broker is the MCP facade exposing the nexus meta-tools.
	Broker *broker.Server
}

// InitializeComponents creates and wires all subsystems in dependency order:
// store, oracle client, registry (warmed from persisted servers), operation
// caller, registration manager, embedding index, capability graph (loaded
// from storage), translation engine, pipeline executor, and finally the
// broker facade on top of them.
//
// Initialization is fail-fast: any component that cannot be constructed
// aborts the bootstrap, closing whatever was already opened. A provider
// without an API key fails here, before any command output, because every
// semantic operation depends on the oracle.
func InitializeComponents(ctx context.Context, cfg *Config) (*Components, error) {
	nexusCfg := *cfg.NexusConfig

	st, err := store.Open(config.DatabasePath(cfg.ConfigPath, nexusCfg))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	oracleClient, err := oracle.NewFromConfig(ctx, nexusCfg.Oracle)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating oracle client: %w", err)
	}

	reg := registry.New()
	records, err := st.LoadServers(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("loading persisted servers: %w", err)
	}
	for _, record := range records {
		reg.Put(record)
	}
	if len(records) > 0 {
		logging.Info("Bootstrap", "Warmed registry with %d persisted servers", len(records))
	}

	caller := mcpclient.NewOperationCaller(time.Duration(nexusCfg.Execution.CallTimeoutSeconds) * time.Second)
	manager := registry.NewManager(reg, caller, profile.New(oracleClient), st)

	idx := index.New(oracleClient)
	capabilityGraph := graph.New(st, idx, oracleClient, graph.Options{
		SimilarityThreshold: nexusCfg.Graph.SimilarityThreshold,
		TopKPerNode:         nexusCfg.Graph.TopKPerNode,
		MaxHops:             nexusCfg.Graph.MaxHops,
	})
	if err := capabilityGraph.Load(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("loading capability graph: %w", err)
	}

	translator := translate.New(oracleClient, st)
	executor := pipeline.NewExecutor(reg, caller, translator, st, pipeline.ExecutionOptions{
		FailurePolicy: pipeline.FailurePolicy(nexusCfg.Execution.FailurePolicy),
	})

	brokerServer := broker.NewServer(broker.Config{
		Host:           nexusCfg.Broker.Host,
		Port:           nexusCfg.Broker.Port,
		Transport:      nexusCfg.Broker.Transport,
		Metrics:        nexusCfg.Broker.Metrics,
		MetricsPort:    nexusCfg.Broker.MetricsPort,
		DefaultChannel: nexusCfg.Execution.DefaultChannel,
	}, broker.Components{
		Manager:  manager,
		Graph:    capabilityGraph,
		Reasoner: oracleClient,
		Executor: executor,
		Store:    st,
	})

	return &Components{
		Store:      st,
		Oracle:     oracleClient,
		Registry:   reg,
		Manager:    manager,
		Caller:     caller,
		Index:      idx,
		Graph:      capabilityGraph,
		Translator: translator,
		Executor:   executor,
		Broker:     brokerServer,
	}, nil
}

// Close releases everything the container holds open. Only the store owns a
// resource that outlives the process without an explicit close.
func (c *Components) Close() error {
	return c.Store.Close()
}
