// Package resource implements C14: read-only addressing over the
// artifact store's on-disk layout. It mirrors the teacher's store
// package's separation of read paths (Get*/List* queries) from write
// paths (everything else lives in internal/artifact) — list/get here
// never mutate, matching spec.md §4.14 ("writes go only through C10").
package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"legacywebanalyzer/internal/artifact"
	"legacywebanalyzer/internal/model"
)

const scheme = "web_discovery"

// Entry is one artifact discoverable under a project's store root.
type Entry struct {
	URI          string
	RelativePath string
	MIMEType     string
	SizeBytes    int64
}

// Exposer resolves web_discovery://<project_id>/<relative_path> URIs
// against an artifact.Store.
type Exposer struct {
	projectID string
	store     *artifact.Store
}

// New builds an Exposer over one project's store.
func New(projectID string, store *artifact.Store) *Exposer {
	return &Exposer{projectID: projectID, store: store}
}

// List enumerates every artifact under the store root, sorted by
// relative path for deterministic output.
func (e *Exposer) List() ([]Entry, error) {
	var entries []Entry
	root := e.store.Root()

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		entries = append(entries, Entry{
			URI:          e.uriFor(rel),
			RelativePath: rel,
			MIMEType:     mimeFor(rel),
			SizeBytes:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, &model.IOError{Path: root, Reason: err.Error()}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelativePath < entries[j].RelativePath })
	return entries, nil
}

// Get resolves a web_discovery:// URI to its bytes and inferred MIME
// type. The URI's project ID must match this Exposer's project.
func (e *Exposer) Get(uri string) ([]byte, string, error) {
	relPath, err := e.parseURI(uri)
	if err != nil {
		return nil, "", err
	}

	fullPath := filepath.Join(e.store.Root(), filepath.FromSlash(relPath))
	if !strings.HasPrefix(fullPath, filepath.Clean(e.store.Root())+string(filepath.Separator)) {
		return nil, "", fmt.Errorf("resource: path %q escapes the project root", relPath)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, "", &model.IOError{Path: relPath, Reason: err.Error()}
	}
	return data, mimeFor(relPath), nil
}

func (e *Exposer) uriFor(relPath string) string {
	return fmt.Sprintf("%s://%s/%s", scheme, e.projectID, relPath)
}

func (e *Exposer) parseURI(uri string) (string, error) {
	prefix := scheme + "://"
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("resource: uri %q missing %q scheme", uri, scheme)
	}
	rest := strings.TrimPrefix(uri, prefix)

	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return "", fmt.Errorf("resource: uri %q missing a relative path", uri)
	}
	projectID, relPath := rest[:idx], rest[idx+1:]
	if projectID != e.projectID {
		return "", fmt.Errorf("resource: uri %q project id %q does not match %q", uri, projectID, e.projectID)
	}
	if relPath == "" {
		return "", fmt.Errorf("resource: uri %q missing a relative path", uri)
	}
	return relPath, nil
}

// mimeFor infers a MIME type from a file extension, per spec.md §4.14
// (".json" -> "application/json", ".md" -> "text/markdown").
func mimeFor(relPath string) string {
	switch strings.ToLower(filepath.Ext(relPath)) {
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown"
	case ".log":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
