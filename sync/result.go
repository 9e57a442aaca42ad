package sync

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/skyfleet/datavault/common/rcontext"
)

// FailedFile carries enough detail to act on a failure without re-running
// the batch at higher verbosity.
type FailedFile struct {
	RemoteKey string
	LocalPath string
	Attempts  int
	Expected  string
	Actual    string
	Err       error
}

func (f FailedFile) String() string {
	if f.Expected != "" {
		return fmt.Sprintf("%s: %v (expected %s got %s, %d attempts)", f.RemoteKey, f.Err, f.Expected, f.Actual, f.Attempts)
	}
	return fmt.Sprintf("%s: %v (%d attempts)", f.RemoteKey, f.Err, f.Attempts)
}

// BatchResult is the structured outcome of one upload/download batch.
// "Fatal, could not start" conditions are returned as plain errors instead,
// before any BatchResult exists.
type BatchResult struct {
	Dataset          string
	Succeeded        int
	Skipped          int
	BytesTransferred int64
	Cancelled        bool
	Failed           []FailedFile
}

func (r *BatchResult) FullySucceeded() bool {
	return len(r.Failed) == 0 && !r.Cancelled
}

func (r *BatchResult) Merge(other *BatchResult) {
	r.Succeeded += other.Succeeded
	r.Skipped += other.Skipped
	r.BytesTransferred += other.BytesTransferred
	r.Cancelled = r.Cancelled || other.Cancelled
	r.Failed = append(r.Failed, other.Failed...)
}

// LogSummary prints the human-readable batch outcome: counts first, then one
// line per named failure.
func (r *BatchResult) LogSummary(ctx rcontext.RequestContext, verb string) {
	ctx.Log.Infof("%s %s: %d succeeded, %d failed, %d skipped (%s)",
		verb, r.Dataset, r.Succeeded, len(r.Failed), r.Skipped,
		humanize.Bytes(uint64(r.BytesTransferred)))
	if r.Cancelled {
		ctx.Log.Warn("Batch was cancelled before all entries were dispatched")
	}
	for _, f := range r.Failed {
		ctx.Log.Error("  failed: ", f.String())
	}
}
