// Package artifact implements C10: the on-disk layout rooted at
// <project>/docs/web_discovery/ and the atomic-write discipline every
// writer in this module follows. The write-temp-then-rename pattern is
// adapted directly from ncecere-raito's writeConfigYAMLAtomic
// (handlers_admin_system_settings.go) — generalized from a single YAML
// config file to every artifact kind this store persists (JSON, Markdown,
// append-only event logs), and paired with an in-process mutex for the
// one artifact (the master report) that multiple workflow stages may
// rewrite concurrently.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"legacywebanalyzer/internal/metrics"
	"legacywebanalyzer/internal/model"
)

// Store is rooted at <project>/docs/web_discovery/.
type Store struct {
	root string

	masterReportMu sync.Mutex
}

// New roots a Store at projectDir/docs/web_discovery, creating the
// standard subdirectories if absent.
func New(projectDir string) (*Store, error) {
	root := filepath.Join(projectDir, "docs", "web_discovery")
	for _, sub := range []string{"pages", "progress", "reports"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, &model.IOError{Path: filepath.Join(root, sub), Reason: err.Error()}
		}
	}
	return &Store{root: root}, nil
}

// Root returns the store's project-docs root.
func (s *Store) Root() string { return s.root }

// writeAtomic writes data to path via a sibling temp file + rename, the
// way writeConfigYAMLAtomic does for the teacher's single config file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &model.IOError{Path: path, Reason: err.Error()}
	}

	f, err := os.CreateTemp(dir, ".artifact-*.tmp")
	if err != nil {
		return &model.IOError{Path: path, Reason: err.Error()}
	}
	tmpPath := f.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return &model.IOError{Path: path, Reason: err.Error()}
	}
	if err := f.Close(); err != nil {
		return &model.IOError{Path: path, Reason: err.Error()}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &model.IOError{Path: path, Reason: err.Error()}
	}
	return nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &model.IOError{Path: path, Reason: err.Error()}
	}
	return writeAtomic(path, data)
}

// WriteProjectMetadata persists analysis-metadata.json.
func (s *Store) WriteProjectMetadata(m model.ProjectMetadata) error {
	return writeJSONAtomic(filepath.Join(s.root, "analysis-metadata.json"), m)
}

// ReadProjectMetadata loads analysis-metadata.json, if present.
func (s *Store) ReadProjectMetadata() (model.ProjectMetadata, error) {
	var m model.ProjectMetadata
	data, err := os.ReadFile(filepath.Join(s.root, "analysis-metadata.json"))
	if err != nil {
		return m, &model.IOError{Path: "analysis-metadata.json", Reason: err.Error()}
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, &model.IOError{Path: "analysis-metadata.json", Reason: err.Error()}
	}
	return m, nil
}

// WritePageResult persists a page's raw structured JSON result.
func (s *Store) WritePageResult(pageID string, result model.PageResult) error {
	path := filepath.Join(s.root, "pages", fmt.Sprintf("page-%s.json", pageID))
	return writeJSONAtomic(path, result)
}

// ReadPageResult loads a page's persisted JSON result, used by
// resume-from-checkpoint to recover each pending page's URL (the
// checkpoint itself carries only page IDs).
func (s *Store) ReadPageResult(pageID string) (model.PageResult, error) {
	var r model.PageResult
	path := filepath.Join(s.root, "pages", fmt.Sprintf("page-%s.json", pageID))
	data, err := os.ReadFile(path)
	if err != nil {
		return r, &model.IOError{Path: path, Reason: err.Error()}
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, &model.IOError{Path: path, Reason: err.Error()}
	}
	return r, nil
}

// WritePageMarkdown persists a page's rendered Markdown artifact.
func (s *Store) WritePageMarkdown(pageID string, markdown string) error {
	path := filepath.Join(s.root, "pages", fmt.Sprintf("page-%s.md", pageID))
	return writeAtomic(path, []byte(markdown))
}

// WriteCheckpoint atomically overwrites progress/checkpoint.json.
func (s *Store) WriteCheckpoint(cp model.Checkpoint) error {
	path := filepath.Join(s.root, "progress", "checkpoint.json")
	if err := writeJSONAtomic(path, cp); err != nil {
		metrics.RecordCheckpointFailure()
		return &model.CheckpointError{WorkflowID: cp.WorkflowID, Reason: err.Error()}
	}
	return nil
}

// ReadCheckpoint loads progress/checkpoint.json, if present.
func (s *Store) ReadCheckpoint() (*model.Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(s.root, "progress", "checkpoint.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.CheckpointError{Reason: err.Error()}
	}
	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, &model.CheckpointError{Reason: err.Error()}
	}
	return &cp, nil
}

// AppendEvent appends one JSON line to progress/events.log. The file is
// opened in append mode; concurrent writers may interleave lines but
// never corrupt a line since each Write call carries one full JSON
// document plus newline.
func (s *Store) AppendEvent(event map[string]any) error {
	if _, ok := event["ts"]; !ok {
		event["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	line, err := json.Marshal(event)
	if err != nil {
		return &model.IOError{Path: "progress/events.log", Reason: err.Error()}
	}

	path := filepath.Join(s.root, "progress", "events.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &model.IOError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return &model.IOError{Path: path, Reason: err.Error()}
	}
	return nil
}

// WriteReport persists a named report under reports/.
func (s *Store) WriteReport(name string, markdown string) error {
	path := filepath.Join(s.root, "reports", name+".md")
	return writeAtomic(path, []byte(markdown))
}

// WriteMasterReport atomically rewrites analysis-report.md, serializing
// concurrent writers through an in-process mutex. The mutex is held
// only around the temp-file write and rename; the caller builds the
// content beforehand, and ReadMasterReport does not take the mutex.
func (s *Store) WriteMasterReport(markdown string) error {
	s.masterReportMu.Lock()
	defer s.masterReportMu.Unlock()
	return writeAtomic(filepath.Join(s.root, "analysis-report.md"), []byte(markdown))
}

// ReadMasterReport reads the current master report, if present.
func (s *Store) ReadMasterReport() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, "analysis-report.md"))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", &model.IOError{Path: "analysis-report.md", Reason: err.Error()}
	}
	return string(data), nil
}

// PagePath returns the on-disk path for a page's JSON or Markdown
// artifact, used by C14's resource addressing.
func (s *Store) PagePath(pageID string, ext string) string {
	return filepath.Join(s.root, "pages", fmt.Sprintf("page-%s.%s", pageID, ext))
}
