package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nexus/internal/graph"
)

// SaveEdge upserts by the compound operation key. Re-validation refreshes
// the classification, confidence, and hint while keeping the original row,
// and with it any translation spec hanging off the edge.
func (s *Store) SaveEdge(ctx context.Context, edge *graph.Edge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO edges
		(source_server, source_operation, target_server, target_operation,
		 compatibility_type, confidence, translation_hint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_server, source_operation, target_server, target_operation) DO UPDATE SET
			compatibility_type = excluded.compatibility_type,
			confidence = excluded.confidence,
			translation_hint = excluded.translation_hint`,
		edge.SourceServer, edge.SourceOperation, edge.TargetServer, edge.TargetOperation,
		edge.Type, edge.Confidence, edge.TranslationHint, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert edge %s: %w", edge.Key(), err)
	}
	return nil
}

// LoadAllEdges returns every stored edge in insertion order.
func (s *Store) LoadAllEdges(ctx context.Context) ([]*graph.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_server, source_operation, target_server, target_operation,
		       compatibility_type, confidence, translation_hint
		FROM edges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	var edges []*graph.Edge
	for rows.Next() {
		var (
			edge graph.Edge
			hint sql.NullString
		)
		if err := rows.Scan(&edge.SourceServer, &edge.SourceOperation, &edge.TargetServer, &edge.TargetOperation,
			&edge.Type, &edge.Confidence, &hint); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edge.TranslationHint = hint.String
		edges = append(edges, &edge)
	}
	return edges, rows.Err()
}

// EdgeExists reports whether an edge with the given compound key is stored.
func (s *Store) EdgeExists(ctx context.Context, sourceServer, sourceOperation, targetServer, targetOperation string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM edges
		WHERE source_server = ? AND source_operation = ?
		  AND target_server = ? AND target_operation = ?`,
		sourceServer, sourceOperation, targetServer, targetOperation,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe edge: %w", err)
	}
	return true, nil
}

// ClearEdges removes every edge, and through the cascade every translation
// spec.
func (s *Store) ClearEdges(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return fmt.Errorf("clear edges: %w", err)
	}
	return nil
}

// SaveTranslationSpec stores the generated spec for an edge, replacing any
// previous one. The edge must already be persisted; specs key off the edge
// row so removing the edge removes the spec.
func (s *Store) SaveTranslationSpec(ctx context.Context, edge *graph.Edge, spec string) error {
	id, err := s.edgeID(ctx, edge)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO translation_specs (edge_id, spec, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(edge_id) DO UPDATE SET
			spec = excluded.spec,
			created_at = excluded.created_at`,
		id, spec, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert translation spec for %s: %w", edge.Key(), err)
	}
	return nil
}

// LoadTranslationSpec returns the stored spec for an edge, or ErrNotFound.
func (s *Store) LoadTranslationSpec(ctx context.Context, edge *graph.Edge) (string, error) {
	var spec string
	err := s.db.QueryRowContext(ctx, `
		SELECT ts.spec FROM translation_specs ts
		JOIN edges e ON e.id = ts.edge_id
		WHERE e.source_server = ? AND e.source_operation = ?
		  AND e.target_server = ? AND e.target_operation = ?`,
		edge.SourceServer, edge.SourceOperation, edge.TargetServer, edge.TargetOperation,
	).Scan(&spec)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("translation spec for %s: %w", edge.Key(), ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load translation spec for %s: %w", edge.Key(), err)
	}
	return spec, nil
}

func (s *Store) edgeID(ctx context.Context, edge *graph.Edge) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM edges
		WHERE source_server = ? AND source_operation = ?
		  AND target_server = ? AND target_operation = ?`,
		edge.SourceServer, edge.SourceOperation, edge.TargetServer, edge.TargetOperation,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("edge %s: %w", edge.Key(), ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve edge %s: %w", edge.Key(), err)
	}
	return id, nil
}
