package sync

import (
	gosync "sync"

	"github.com/skyfleet/datavault/manifest"
)

// manifestSession serializes concurrent per-entry updates against one
// manifest file. Workers mutate only their own entry, but the whole document
// is what lands on disk, so every update-then-save runs under the lock to
// keep a stale in-flight write from clobbering another entry's result.
type manifestSession struct {
	mu       gosync.Mutex
	manifest *manifest.Manifest
	path     string
}

func newManifestSession(m *manifest.Manifest, path string) *manifestSession {
	return &manifestSession{manifest: m, path: path}
}

// updateEntry applies fn to one entry and persists the manifest before
// returning, so a crash after an upload leaves that entry correctly marked.
func (s *manifestSession) updateEntry(entry *manifest.FileEntry, fn func(*manifest.FileEntry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(entry)
	return s.manifest.Save(s.path)
}

// finish recomputes the aggregate summary once, after all workers are done,
// and persists the result.
func (s *manifestSession) finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest.RecomputeSummary()
	return s.manifest.Save(s.path)
}
