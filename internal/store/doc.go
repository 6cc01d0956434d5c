// Package store is the SQLite persistence layer.
//
// One database file holds the whole broker state: server records with their
// operations and semantic profiles, validated capability edges, cached
// translation specs, and pipeline run history. The Store satisfies the
// narrow persistence interfaces declared by the packages it serves
// (registry.Store, graph.EdgeStore, translate.SpecStore,
// pipeline.HistoryRecorder), so none of them depend on this package.
//
// Every write is an upsert keyed by the domain identity (server name, edge
// compound key, run ID), which makes re-registration, graph rebuilds, and
// re-validation idempotent. Deleting a server cascades to its operations,
// profile, edges, and the specs behind those edges.
package store
