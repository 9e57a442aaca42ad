package participant

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skyfleet/datavault/checksums"
	"github.com/skyfleet/datavault/common"
	"github.com/skyfleet/datavault/manifest"
	"github.com/skyfleet/datavault/publish"
	"github.com/skyfleet/datavault/util"
)

// Fetcher retrieves the bytes behind one presigned URL. Tests substitute a
// fake; production uses the HTTP fetcher below. No storage credentials are
// involved on this side.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

type Options struct {
	OutputRoot string
	Verify     bool
	StartFrom  int
	Timeout    time.Duration
	Fetcher    Fetcher
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Fetcher == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		o.Fetcher = HttpFetcher(timeout)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type Failure struct {
	LocalPath string
	RemoteKey string
	Expected  string
	Actual    string
	Err       error
}

func (f Failure) String() string {
	if f.Expected != "" {
		return fmt.Sprintf("%s: %v (expected %s got %s)", f.LocalPath, f.Err, f.Expected, f.Actual)
	}
	return fmt.Sprintf("%s: %v", f.LocalPath, f.Err)
}

type Status int

const (
	StatusDownloaded Status = iota
	StatusSkipped
	StatusExpired
	StatusFailed
)

// Outcome is the result of one entry. Expired entries carry a Failure too,
// so automation never mistakes them for success.
type Outcome struct {
	Status  Status
	Failure *Failure
}

// Result aggregates per-file outcomes. A batch never aborts on one file.
type Result struct {
	Downloaded int
	Skipped    int
	Expired    int
	Failed     []Failure
}

func (r *Result) Record(o Outcome) {
	switch o.Status {
	case StatusDownloaded:
		r.Downloaded++
	case StatusSkipped:
		r.Skipped++
	case StatusExpired:
		r.Expired++
	}
	if o.Failure != nil {
		r.Failed = append(r.Failed, *o.Failure)
	}
}

func (r *Result) FullySucceeded() bool {
	return len(r.Failed) == 0
}

func HttpFetcher(timeout time.Duration) Fetcher {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context, url string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d fetching presigned url", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
}

// TargetPath maps a presigned entry to its place under the output root.
// Bundle entries carry a dataset tag that becomes a directory prefix unless
// the local path already starts with it.
func TargetPath(pm *publish.PresignedManifest, entry *publish.PresignedEntry, outputRoot string) string {
	rel := entry.LocalPath
	if rel == "" {
		rel = entry.RemoteKey
	}

	dataset := entry.Dataset
	if dataset == "" {
		dataset = pm.Name()
	}
	if dataset != "" && !strings.HasPrefix(rel, dataset+"/") {
		rel = dataset + "/" + rel
	}
	return filepath.Join(outputRoot, filepath.FromSlash(rel))
}

// DownloadManifest consumes a published manifest (or bundle) sequentially.
// Callers wanting parallelism fan DownloadEntry out themselves and Record
// the outcomes.
func DownloadManifest(ctx context.Context, pm *publish.PresignedManifest, opts Options) *Result {
	opts = opts.withDefaults()
	result := &Result{}
	for i, entry := range pm.Files {
		if ctx.Err() != nil {
			break
		}
		if i < opts.StartFrom {
			result.Record(Outcome{Status: StatusSkipped})
			continue
		}
		result.Record(DownloadEntry(ctx, pm, entry, opts))
	}
	return result
}

// DownloadEntry runs the full per-file flow: expiry pre-flight, skip check
// against existing content, fetch, write, verify.
func DownloadEntry(ctx context.Context, pm *publish.PresignedManifest, entry *publish.PresignedEntry, opts Options) Outcome {
	opts = opts.withDefaults()
	log := logrus.WithField("path", entry.LocalPath)
	target := TargetPath(pm, entry, opts.OutputRoot)

	if existingIsValid(target, entry, opts.Verify) {
		log.Debug("Already exists and is valid, skipping")
		return Outcome{Status: StatusSkipped}
	}

	// Expired entries fail pre-flight with a distinct result instead of
	// surfacing an opaque transport error from the store.
	expiresAt := entry.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = pm.ExpiresAt
	}
	if !expiresAt.IsZero() && opts.Now().After(expiresAt) {
		log.Warn("Presigned url expired, skipping fetch")
		return Outcome{Status: StatusExpired, Failure: &Failure{
			LocalPath: entry.LocalPath,
			RemoteKey: entry.RemoteKey,
			Err:       common.ErrExpired,
		}}
	}

	content, err := opts.Fetcher(ctx, entry.PresignedUrl)
	if err != nil {
		return failed(entry, "", "", err)
	}

	if err = util.WriteFileAtomic(target, content, 0644); err != nil {
		return failed(entry, "", "", err)
	}

	// Verification runs against what actually landed on disk. A mismatch is
	// reported for this file only; the corrupt file stays put and will fail
	// the same check on a resume rather than pass silently.
	if opts.Verify && entry.Sha256.Known() {
		sums, err := checksums.Compute(target, checksums.Sha256)
		if err != nil {
			return failed(entry, "", "", err)
		}
		if manifest.Digest(sums.Sha256) != entry.Sha256 {
			return failed(entry, entry.Sha256.String(), sums.Sha256, common.ErrIntegrity)
		}
		if entry.SizeBytes > 0 && int64(len(content)) != entry.SizeBytes {
			return failed(entry,
				fmt.Sprintf("%d bytes", entry.SizeBytes),
				fmt.Sprintf("%d bytes", len(content)),
				common.ErrIntegrity)
		}
	}

	return Outcome{Status: StatusDownloaded}
}

func failed(entry *publish.PresignedEntry, expected string, actual string, err error) Outcome {
	return Outcome{Status: StatusFailed, Failure: &Failure{
		LocalPath: entry.LocalPath,
		RemoteKey: entry.RemoteKey,
		Expected:  expected,
		Actual:    actual,
		Err:       err,
	}}
}

func existingIsValid(target string, entry *publish.PresignedEntry, verify bool) bool {
	fi, err := os.Stat(target)
	if err != nil {
		return false
	}
	if !verify {
		return true
	}
	if !entry.Sha256.Known() {
		// Nothing to verify against; presence is the best we can do.
		return true
	}
	if entry.SizeBytes > 0 && fi.Size() != entry.SizeBytes {
		return false
	}
	sums, err := checksums.Compute(target, checksums.Sha256)
	if err != nil {
		return false
	}
	return manifest.Digest(sums.Sha256) == entry.Sha256
}
