package sync

import (
	"os"
	"path/filepath"
	"strings"
	gosync "sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/skyfleet/datavault/checksums"
	"github.com/skyfleet/datavault/common/rcontext"
	"github.com/skyfleet/datavault/manifest"
	"github.com/skyfleet/datavault/metrics"
)

// UploadDataset pushes every manifest entry to the object store. Digests are
// refreshed in place before the first network call, keys already present
// remotely with matching content are skipped, and each successful upload is
// persisted to the manifest before the worker takes its next entry.
func (m *Manager) UploadDataset(ctx rcontext.RequestContext, dataset string) (*BatchResult, error) {
	ctx = ctx.LogWithFields(logrus.Fields{"dataset": dataset, "action": "upload"})

	manifestPath := manifest.PathFor(m.ManifestsDir, dataset)
	mf, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	root := filepath.Join(m.DatasetsDir, dataset)
	session := newManifestSession(mf, manifestPath)
	result := &BatchResult{Dataset: dataset}
	var resultMu gosync.Mutex

	// Bring the manifest up to truth before touching the network. Pending
	// digests get filled, stale digests get replaced, sizes get refreshed.
	candidates := make([]*manifest.FileEntry, 0, len(mf.Files))
	for _, entry := range mf.Files {
		localPath := filepath.Join(root, filepath.FromSlash(entry.LocalPath))

		fi, err := os.Stat(localPath)
		if err != nil {
			result.Failed = append(result.Failed, FailedFile{
				RemoteKey: entry.RemoteKey,
				LocalPath: entry.LocalPath,
				Err:       err,
			})
			continue
		}

		sums, err := checksums.Compute(localPath)
		if err != nil {
			result.Failed = append(result.Failed, FailedFile{
				RemoteKey: entry.RemoteKey,
				LocalPath: entry.LocalPath,
				Err:       err,
			})
			continue
		}

		if entry.Sha256.Known() && entry.Sha256 != manifest.Digest(sums.Sha256) {
			ctx.Log.Warnf("Manifest digest for %s is stale, refreshing", entry.LocalPath)
		}
		entry.Md5 = manifest.Digest(sums.Md5)
		entry.Sha256 = manifest.Digest(sums.Sha256)
		entry.SizeBytes = fi.Size()
		candidates = append(candidates, entry)
	}

	if err = session.finish(); err != nil {
		return nil, err
	}

	var wg gosync.WaitGroup
	for _, entry := range candidates {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		entry := entry
		wg.Add(1)
		scheduleErr := m.Queue.Schedule(func() {
			defer wg.Done()
			m.uploadOne(ctx, session, root, entry, result, &resultMu)
		})
		if scheduleErr != nil {
			wg.Done()
			resultMu.Lock()
			result.Failed = append(result.Failed, FailedFile{
				RemoteKey: entry.RemoteKey,
				LocalPath: entry.LocalPath,
				Err:       scheduleErr,
			})
			resultMu.Unlock()
		}
	}
	wg.Wait()

	if err = session.finish(); err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Manager) uploadOne(ctx rcontext.RequestContext, session *manifestSession, root string, entry *manifest.FileEntry, result *BatchResult, resultMu *gosync.Mutex) {
	localPath := filepath.Join(root, filepath.FromSlash(entry.LocalPath))

	if m.remoteMatches(ctx, entry) {
		ctx.Log.Debugf("%s already present remotely, skipping", entry.RemoteKey)
		resultMu.Lock()
		result.Skipped++
		resultMu.Unlock()
		return
	}

	attempts, err := m.Retry.Do(ctx.Context, func() error {
		f, err := os.Open(localPath)
		if err != nil {
			return err
		}
		defer f.Close()
		return m.Store.Put(ctx, entry.RemoteKey, f, entry.SizeBytes)
	})
	if err != nil {
		metrics.TransferFailures.With(prometheus.Labels{"dataset": result.Dataset, "kind": "upload"}).Inc()
		resultMu.Lock()
		result.Failed = append(result.Failed, FailedFile{
			RemoteKey: entry.RemoteKey,
			LocalPath: entry.LocalPath,
			Attempts:  attempts,
			Err:       err,
		})
		resultMu.Unlock()
		return
	}

	// Persist before this worker moves on, so a crash mid-batch leaves the
	// uploaded entries durably marked.
	if err = session.updateEntry(entry, func(e *manifest.FileEntry) {}); err != nil {
		ctx.Log.Warn("Failed to persist manifest after upload: ", err)
	}

	metrics.FilesUploaded.With(prometheus.Labels{"dataset": result.Dataset}).Inc()
	metrics.BytesTransferred.With(prometheus.Labels{"direction": "up"}).Add(float64(entry.SizeBytes))
	resultMu.Lock()
	result.Succeeded++
	result.BytesTransferred += entry.SizeBytes
	resultMu.Unlock()
}

// remoteMatches reports whether the remote object already holds this entry's
// content. ETags are md5 hex for single-part uploads; multipart etags carry
// a dash and fall back to a size-only comparison.
func (m *Manager) remoteMatches(ctx rcontext.RequestContext, entry *manifest.FileEntry) bool {
	info, err := m.Store.Stat(ctx, entry.RemoteKey)
	if err != nil {
		return false
	}
	if info.SizeBytes != entry.SizeBytes {
		return false
	}
	etag := strings.Trim(info.ETag, "\"")
	if etag == "" || strings.Contains(etag, "-") {
		return true
	}
	return entry.Md5.Known() && etag == entry.Md5.String()
}
