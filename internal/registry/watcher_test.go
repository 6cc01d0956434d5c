package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_MergeOperations(t *testing.T) {
	tests := []struct {
		old      ChangeOperation
		new      ChangeOperation
		expected ChangeOperation
	}{
		{OperationCreate, OperationUpdate, OperationCreate},
		{OperationCreate, OperationDelete, OperationDelete},
		{OperationUpdate, OperationDelete, OperationDelete},
		{OperationUpdate, OperationUpdate, OperationUpdate},
		{OperationDelete, OperationCreate, OperationCreate},
	}

	for _, tt := range tests {
		if got := mergeOperations(tt.old, tt.new); got != tt.expected {
			t.Errorf("mergeOperations(%s, %s) = %s, expected %s", tt.old, tt.new, got, tt.expected)
		}
	}
}

func TestWatcher_StartStop(t *testing.T) {
	watcher := NewWatcher(filepath.Join(t.TempDir(), "servers"), 100*time.Millisecond)

	changes := make(chan ChangeEvent, 10)
	if err := watcher.Start(context.Background(), changes); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}

	// Starting twice is a no-op.
	if err := watcher.Start(context.Background(), changes); err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	if err := watcher.Stop(); err != nil {
		t.Fatalf("failed to stop watcher: %v", err)
	}
	if err := watcher.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
}

func TestWatcher_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "servers")

	watcher := NewWatcher(dir, 50*time.Millisecond)
	if err := watcher.Start(context.Background(), make(chan ChangeEvent, 1)); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected watcher to create %s: %v", dir, err)
	}
}

func TestWatcher_DetectFileChange(t *testing.T) {
	dir := t.TempDir()

	watcher := NewWatcher(dir, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := make(chan ChangeEvent, 10)
	if err := watcher.Start(ctx, changes); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	testFile := filepath.Join(dir, "web-fetcher.yaml")
	if err := os.WriteFile(testFile, []byte("command: node"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	select {
	case event := <-changes:
		if event.Name != "web-fetcher" {
			t.Errorf("expected name web-fetcher, got %s", event.Name)
		}
		if event.Operation != OperationCreate {
			t.Errorf("expected operation create, got %s", event.Operation)
		}
		if event.ID == "" {
			t.Error("expected a non-empty event ID")
		}
	case <-ctx.Done():
		t.Error("timeout waiting for change event")
	}
}

func TestWatcher_IgnoresNonYAMLFiles(t *testing.T) {
	dir := t.TempDir()

	watcher := NewWatcher(dir, 50*time.Millisecond)

	changes := make(chan ChangeEvent, 10)
	if err := watcher.Start(context.Background(), changes); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	testFile := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(testFile, []byte("not a definition"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	select {
	case event := <-changes:
		t.Errorf("unexpected event for non-YAML file: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_Debouncing(t *testing.T) {
	dir := t.TempDir()

	// Use a longer debounce for this test
	watcher := NewWatcher(dir, 200*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := make(chan ChangeEvent, 10)
	if err := watcher.Start(ctx, changes); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	testFile := filepath.Join(dir, "debounce-test.yaml")
	if err := os.WriteFile(testFile, []byte("command: v1"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	// Rapidly update the file multiple times
	for i := 0; i < 5; i++ {
		time.Sleep(10 * time.Millisecond)
		if err := os.WriteFile(testFile, []byte("command: v"+string(rune('2'+i))), 0644); err != nil {
			t.Fatalf("failed to update test file: %v", err)
		}
	}

	eventCount := 0
	timeout := time.After(500 * time.Millisecond)
loop:
	for {
		select {
		case <-changes:
			eventCount++
		case <-timeout:
			break loop
		}
	}

	// Should have received only 1 debounced event (or possibly 2 if timing is tight)
	if eventCount > 2 {
		t.Errorf("expected 1-2 debounced events, got %d", eventCount)
	}
	if eventCount == 0 {
		t.Error("expected at least one debounced event")
	}
}
