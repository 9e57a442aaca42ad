package sync

import (
	"context"
	"io"
	"os"
	"path/filepath"
	gosync "sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/skyfleet/datavault/checksums"
	"github.com/skyfleet/datavault/common"
	"github.com/skyfleet/datavault/common/rcontext"
	"github.com/skyfleet/datavault/manifest"
	"github.com/skyfleet/datavault/metrics"
)

// DownloadDataset fetches every manifest entry under the datasets root.
// Pre-existing files whose digest already matches are skipped, which makes
// an interrupted batch resumable. Verification is on unless the caller opts
// out for throughput.
func (m *Manager) DownloadDataset(ctx rcontext.RequestContext, dataset string, verify bool) (*BatchResult, error) {
	ctx = ctx.LogWithFields(logrus.Fields{"dataset": dataset, "action": "download"})

	mf, err := manifest.Load(manifest.PathFor(m.ManifestsDir, dataset))
	if err != nil {
		return nil, err
	}

	root := filepath.Join(m.DatasetsDir, dataset)
	result := &BatchResult{Dataset: dataset}
	var resultMu gosync.Mutex

	var wg gosync.WaitGroup
	for _, entry := range mf.Files {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		entry := entry
		target := filepath.Join(root, filepath.FromSlash(entry.LocalPath))

		if skip, reason := shouldSkipExisting(target, entry, verify); skip {
			ctx.Log.Debugf("%s %s, skipping", entry.LocalPath, reason)
			result.Skipped++
			continue
		}

		wg.Add(1)
		scheduleErr := m.Queue.Schedule(func() {
			defer wg.Done()
			m.downloadOne(ctx, entry, target, verify, result, &resultMu)
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

	return result, nil
}

// shouldSkipExisting decides whether an already-present local file satisfies
// the manifest entry. A partial or corrupted earlier download fails the
// digest check and gets re-fetched.
func shouldSkipExisting(target string, entry *manifest.FileEntry, verify bool) (bool, string) {
	fi, err := os.Stat(target)
	if err != nil {
		return false, ""
	}

	if !verify || !entry.Sha256.Known() {
		return true, "already exists"
	}
	if fi.Size() != entry.SizeBytes {
		return false, ""
	}
	sums, err := checksums.Compute(target, checksums.Sha256)
	if err != nil {
		return false, ""
	}
	if manifest.Digest(sums.Sha256) == entry.Sha256 {
		return true, "already exists and is valid"
	}
	return false, ""
}

func (m *Manager) downloadOne(ctx rcontext.RequestContext, entry *manifest.FileEntry, target string, verify bool, result *BatchResult, resultMu *gosync.Mutex) {
	fail := func(attempts int, expected string, actual string, err error) {
		metrics.TransferFailures.With(prometheus.Labels{"dataset": result.Dataset, "kind": "download"}).Inc()
		resultMu.Lock()
		result.Failed = append(result.Failed, FailedFile{
			RemoteKey: entry.RemoteKey,
			LocalPath: entry.LocalPath,
			Attempts:  attempts,
			Expected:  expected,
			Actual:    actual,
			Err:       err,
		})
		resultMu.Unlock()
	}

	attempts, err := m.Retry.Do(ctx.Context, func() error {
		return m.fetchToFile(ctx, entry.RemoteKey, target)
	})
	if err != nil {
		fail(attempts, "", "", err)
		return
	}

	if verify && entry.Sha256.Known() {
		sums, err := checksums.Compute(target, checksums.Sha256)
		if err != nil {
			fail(attempts, "", "", err)
			return
		}
		if manifest.Digest(sums.Sha256) != entry.Sha256 {
			fail(attempts, entry.Sha256.String(), sums.Sha256, common.ErrIntegrity)
			return
		}
	}

	metrics.FilesDownloaded.With(prometheus.Labels{"dataset": result.Dataset}).Inc()
	metrics.BytesTransferred.With(prometheus.Labels{"direction": "down"}).Add(float64(entry.SizeBytes))
	resultMu.Lock()
	result.Succeeded++
	result.BytesTransferred += entry.SizeBytes
	resultMu.Unlock()
}

// fetchToFile streams an object into place through a temp file, so a
// mid-transfer failure never leaves a plausible-looking partial at the
// target path. CallTimeout bounds the whole fetch including the stream
// copy; a stalled connection surfaces as DeadlineExceeded, which the retry
// policy treats as transient.
func (m *Manager) fetchToFile(ctx rcontext.RequestContext, key string, target string) error {
	if m.CallTimeout > 0 {
		callCtx, cancel := context.WithTimeout(ctx.Context, m.CallTimeout)
		defer cancel()
		ctx.Context = callCtx
	}

	rc, err := m.Store.Get(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err = os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err = io.Copy(tmp, rc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, target)
}
