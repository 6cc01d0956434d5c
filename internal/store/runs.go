package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nexus/internal/graph"
	"nexus/internal/pipeline"
)

const defaultHistoryLimit = 50

// RecordRun stores a finished run, replacing any previous row with the same
// ID. Steps, context, and results are stored as JSON documents.
func (s *Store) RecordRun(ctx context.Context, run *pipeline.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs
		(id, request, pipeline_steps, context, status, started_at, completed_at, total_duration, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			total_duration = excluded.total_duration,
			result = excluded.result`,
		run.ID,
		run.Request,
		jsonText(run.Steps),
		jsonText(run.Context),
		run.Status,
		formatTime(run.StartedAt),
		formatTime(run.CompletedAt),
		run.Duration.Seconds(),
		jsonText(run.Results),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// PipelineHistory returns the most recent runs, newest first. A limit of
// zero or less falls back to 50.
func (s *Store) PipelineHistory(ctx context.Context, limit int) ([]*pipeline.Run, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request, pipeline_steps, context, status, started_at, completed_at, total_duration, result
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*pipeline.Run
	for rows.Next() {
		var (
			run                                        pipeline.Run
			steps, runContext, started, ended, results sql.NullString
			duration                                   sql.NullFloat64
		)
		if err := rows.Scan(&run.ID, &run.Request, &steps, &runContext, &run.Status, &started, &ended, &duration, &results); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		decodeJSON(steps.String, &run.Steps)
		decodeJSON(runContext.String, &run.Context)
		decodeJSON(results.String, &run.Results)
		run.StartedAt = scanTime(started.String)
		run.CompletedAt = scanTime(ended.String)
		run.Duration = time.Duration(duration.Float64 * float64(time.Second))
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Stats reports what the database holds, for the status surfaces.
type Stats struct {
	Servers           int `json:"servers"`
	Operations        int `json:"operations"`
	Edges             int `json:"edges"`
	DirectEdges       int `json:"direct_edges"`
	TranslatableEdges int `json:"translatable_edges"`
	PipelineRuns      int `json:"pipeline_runs"`
}

// Stats counts the stored servers, operations, edges by classification, and
// pipeline runs.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		query string
		args  []interface{}
		dest  *int
	}{
		{`SELECT COUNT(*) FROM servers`, nil, &st.Servers},
		{`SELECT COUNT(*) FROM operations`, nil, &st.Operations},
		{`SELECT COUNT(*) FROM edges`, nil, &st.Edges},
		{`SELECT COUNT(*) FROM edges WHERE compatibility_type = ?`, []interface{}{graph.CompatDirect}, &st.DirectEdges},
		{`SELECT COUNT(*) FROM edges WHERE compatibility_type = ?`, []interface{}{graph.CompatTranslatable}, &st.TranslatableEdges},
		{`SELECT COUNT(*) FROM pipeline_runs`, nil, &st.PipelineRuns},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("count: %w", err)
		}
	}
	return st, nil
}
