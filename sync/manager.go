package sync

import (
	"time"

	"github.com/skyfleet/datavault/common/rcontext"
	"github.com/skyfleet/datavault/datastores"
	"github.com/skyfleet/datavault/manifest"
	"github.com/skyfleet/datavault/pool"
)

// Manager reconciles manifests against an object store. One manager serves
// any number of datasets in an invocation; transfers for all of them share
// the same queue.
type Manager struct {
	Store        datastores.ObjectStore
	DatasetsDir  string
	ManifestsDir string
	Retry        RetryPolicy
	Queue        *pool.Queue

	// CallTimeout bounds one download fetch end to end, open through last
	// byte. Zero disables the bound. Uploads are bounded inside the store.
	CallTimeout time.Duration
}

func NewManager(ctx rcontext.RequestContext, store datastores.ObjectStore, queue *pool.Queue) *Manager {
	return &Manager{
		Store:        store,
		DatasetsDir:  ctx.Config.General.DatasetsDir,
		ManifestsDir: ctx.Config.General.ManifestsDir,
		Retry:        DefaultRetryPolicy(ctx.Config),
		Queue:        queue,
		CallTimeout:  time.Duration(ctx.Config.Transfers.CallTimeoutSeconds) * time.Second,
	}
}

// ListLocalDatasets enumerates datasets that have a canonical manifest.
func (m *Manager) ListLocalDatasets() ([]string, error) {
	return manifest.ListDatasets(m.ManifestsDir)
}

// ListRemote enumerates object keys under a prefix. Read-only; connectivity
// errors are fatal to this call alone.
func (m *Manager) ListRemote(ctx rcontext.RequestContext, prefix string) ([]datastores.ObjectInfo, error) {
	return m.Store.List(ctx, prefix)
}

// UploadAll fans out across every known dataset on the shared queue.
func (m *Manager) UploadAll(ctx rcontext.RequestContext) ([]*BatchResult, error) {
	names, err := m.ListLocalDatasets()
	if err != nil {
		return nil, err
	}
	results := make([]*BatchResult, 0, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		res, err := m.UploadDataset(ctx, name)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// DownloadAll mirrors UploadAll for the download direction.
func (m *Manager) DownloadAll(ctx rcontext.RequestContext, verify bool) ([]*BatchResult, error) {
	names, err := m.ListLocalDatasets()
	if err != nil {
		return nil, err
	}
	results := make([]*BatchResult, 0, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		res, err := m.DownloadDataset(ctx, name, verify)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
