package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/graph"
	"nexus/internal/pipeline"
)

func finishedRun(id string, startedAt time.Time) *pipeline.Run {
	steps := []pipeline.Step{
		{Server: "web-fetcher", Operation: "fetch_url"},
		{Server: "summarizer", Operation: "summarize_text", Edge: translatableEdge()},
	}
	return &pipeline.Run{
		ID:      id,
		Request: "Summarize https://example.com",
		Steps:   steps,
		Context: map[string]interface{}{"channel": "#team-updates"},
		Status:  pipeline.StatusCompleted,
		Results: []pipeline.Result{
			{
				Step:     steps[0],
				Input:    map[string]interface{}{"url": "https://example.com"},
				Output:   map[string]interface{}{"content": "page text"},
				Duration: 120 * time.Millisecond,
				Success:  true,
			},
			{
				Step:     steps[1],
				Input:    map[string]interface{}{"text": "page text"},
				Output:   map[string]interface{}{"summary": "short"},
				Duration: 380 * time.Millisecond,
				Success:  true,
			},
		},
		StartedAt:   startedAt,
		CompletedAt: startedAt.Add(500 * time.Millisecond),
		Duration:    500 * time.Millisecond,
	}
}

func TestRecordRunAndHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.RecordRun(ctx, finishedRun("run-1", now.Add(-2*time.Minute))))
	require.NoError(t, s.RecordRun(ctx, finishedRun("run-2", now.Add(-time.Minute))))
	require.NoError(t, s.RecordRun(ctx, finishedRun("run-3", now)))

	runs, err := s.PipelineHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Newest first.
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)
	assert.Equal(t, "run-1", runs[2].ID)

	got := runs[0]
	assert.Equal(t, "Summarize https://example.com", got.Request)
	assert.Equal(t, pipeline.StatusCompleted, got.Status)
	assert.Equal(t, map[string]interface{}{"channel": "#team-updates"}, got.Context)

	require.Len(t, got.Steps, 2)
	assert.Equal(t, "web-fetcher", got.Steps[0].Server)
	assert.Nil(t, got.Steps[0].Edge)
	require.NotNil(t, got.Steps[1].Edge)
	assert.Equal(t, graph.CompatTranslatable, got.Steps[1].Edge.Type)

	require.Len(t, got.Results, 2)
	assert.Equal(t, "page text", got.Results[0].Output["content"])
	assert.True(t, got.Results[1].Success)
	assert.Equal(t, 380*time.Millisecond, got.Results[1].Duration)

	assert.Equal(t, 500*time.Millisecond, got.Duration)
	assert.WithinDuration(t, now, got.StartedAt, time.Second)
	assert.WithinDuration(t, now.Add(500*time.Millisecond), got.CompletedAt, time.Second)
}

func TestPipelineHistoryLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, s.RecordRun(ctx, finishedRun(id, now.Add(time.Duration(i)*time.Second))))
	}

	runs, err := s.PipelineHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)
}

func TestRecordRunReplacesByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	interrupted := finishedRun("run-1", time.Now().UTC())
	interrupted.Status = pipeline.StatusFailed
	interrupted.Results = nil
	require.NoError(t, s.RecordRun(ctx, interrupted))

	require.NoError(t, s.RecordRun(ctx, finishedRun("run-1", interrupted.StartedAt)))

	runs, err := s.PipelineHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, pipeline.StatusCompleted, runs[0].Status)
	require.Len(t, runs[0].Results, 2)
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveServer(ctx, profiledServer("web-fetcher")))
	require.NoError(t, s.SaveServer(ctx, minimalServer("summarizer")))

	direct := translatableEdge()
	direct.SourceOperation = "fetch_raw"
	direct.Type = graph.CompatDirect
	require.NoError(t, s.SaveEdge(ctx, translatableEdge()))
	require.NoError(t, s.SaveEdge(ctx, direct))

	require.NoError(t, s.RecordRun(ctx, finishedRun("run-1", time.Now().UTC())))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{
		Servers:           2,
		Operations:        2,
		Edges:             2,
		DirectEdges:       1,
		TranslatableEdges: 1,
		PipelineRuns:      1,
	}, stats)
}
