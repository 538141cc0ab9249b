package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"legacywebanalyzer/internal/model"
)

func TestNew_CreatesStandardLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, sub := range []string{"pages", "progress", "reports"} {
		info, err := os.Stat(filepath.Join(s.Root(), sub))
		if err != nil {
			t.Fatalf("expected %s to exist: %v", sub, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %s to be a directory", sub)
		}
	}
}

func TestWriteAndReadCheckpoint_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cp := model.Checkpoint{
		WorkflowID:     "wf-1",
		CreatedAt:      time.Now().UTC(),
		CompletedPages: []string{"page-a"},
		PendingPages:   []string{"page-b"},
		ResumeToken:    "tok-1",
	}
	if err := s.WriteCheckpoint(cp); err != nil {
		t.Fatalf("unexpected error writing checkpoint: %v", err)
	}

	got, err := s.ReadCheckpoint()
	if err != nil {
		t.Fatalf("unexpected error reading checkpoint: %v", err)
	}
	if got == nil {
		t.Fatal("expected a checkpoint, got nil")
	}
	if got.WorkflowID != "wf-1" || got.ResumeToken != "tok-1" {
		t.Fatalf("unexpected checkpoint contents: %+v", got)
	}
}

func TestReadCheckpoint_MissingReturnsNilNotError(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.ReadCheckpoint()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil checkpoint when absent, got %+v", got)
	}
}

func TestAppendEvent_AppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AppendEvent(map[string]any{"kind": "page_started", "page_id": "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AppendEvent(map[string]any{"kind": "page_completed", "page_id": "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(s.Root(), "progress", "events.log"))
	if err != nil {
		t.Fatalf("expected events.log to exist: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d: %q", len(lines), data)
	}
}

func TestWriteMasterReport_IsReadable(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.WriteMasterReport("# Report\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.ReadMasterReport()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "# Report\n" {
		t.Fatalf("unexpected report contents: %q", got)
	}
}
