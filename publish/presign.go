package publish

import (
	"encoding/json"
	"os"
	"path"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/skyfleet/datavault/common"
	"github.com/skyfleet/datavault/common/rcontext"
	"github.com/skyfleet/datavault/datastores"
	"github.com/skyfleet/datavault/manifest"
	"github.com/skyfleet/datavault/util"
)

// PresignedEntry is a FileEntry plus a time-bound download URL. Derived and
// write-once; the canonical manifest (without URLs) stays the source of
// truth.
type PresignedEntry struct {
	LocalPath    string          `json:"local_path"`
	RemoteKey    string          `json:"remote_key"`
	SizeBytes    int64           `json:"size_bytes"`
	Md5          manifest.Digest `json:"md5"`
	Sha256       manifest.Digest `json:"sha256"`
	PresignedUrl string          `json:"presigned_url"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Dataset      string          `json:"dataset,omitempty"`
}

type PresignedManifest struct {
	Dataset     string            `json:"dataset,omitempty"`
	Bundle      string            `json:"bundle,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
	ExpiresIn   int64             `json:"expires_in_seconds"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Summary     *manifest.Summary `json:"summary,omitempty"`
	Files       []*PresignedEntry `json:"files"`
}

func (pm *PresignedManifest) Name() string {
	if pm.Bundle != "" {
		return pm.Bundle
	}
	return pm.Dataset
}

func PublicPathFor(manifestsDir string, name string) string {
	return path.Join(manifestsDir, "presigned", name+".public.json")
}

func LoadPublic(filePath string) (*PresignedManifest, error) {
	b, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ErrManifestNotFound
		}
		return nil, err
	}
	pm := &PresignedManifest{}
	if err = json.Unmarshal(b, pm); err != nil {
		return nil, errors.Wrapf(err, "failed to parse public manifest %s", filePath)
	}
	return pm, nil
}

func (pm *PresignedManifest) Save(filePath string) error {
	b, err := json.MarshalIndent(pm, "", "  ")
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(filePath, append(b, '\n'), 0644)
}

// Publisher mints distributable, credential-free manifests from canonical
// ones. Digests are copied verbatim; the publisher never re-verifies remote
// content.
type Publisher struct {
	Store        datastores.ObjectStore
	ManifestsDir string
}

func NewPublisher(ctx rcontext.RequestContext, store datastores.ObjectStore) *Publisher {
	return &Publisher{
		Store:        store,
		ManifestsDir: ctx.Config.General.ManifestsDir,
	}
}

// PublishDataset presigns every entry of one dataset's canonical manifest.
// The caller supplies now so that an --all run shares a single publish
// instant across datasets.
func (p *Publisher) PublishDataset(ctx rcontext.RequestContext, dataset string, ttl time.Duration, now time.Time) (*PresignedManifest, error) {
	if ttl <= 0 {
		return nil, errors.New("presign ttl must be positive")
	}
	ctx = ctx.LogWithFields(logrus.Fields{"dataset": dataset, "action": "presign"})

	mf, err := manifest.Load(manifest.PathFor(p.ManifestsDir, dataset))
	if err != nil {
		return nil, err
	}

	expiresAt := now.Add(ttl)
	pm := &PresignedManifest{
		Dataset:     dataset,
		GeneratedAt: now,
		ExpiresIn:   int64(ttl / time.Second),
		ExpiresAt:   expiresAt,
		Summary:     &mf.Summary,
		Files:       make([]*PresignedEntry, 0, len(mf.Files)),
	}

	for _, f := range mf.Files {
		url, err := p.Store.Presign(ctx, f.RemoteKey, ttl)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to presign %s", f.RemoteKey)
		}
		pm.Files = append(pm.Files, &PresignedEntry{
			LocalPath:    f.LocalPath,
			RemoteKey:    f.RemoteKey,
			SizeBytes:    f.SizeBytes,
			Md5:          f.Md5,
			Sha256:       f.Sha256,
			PresignedUrl: url,
			ExpiresAt:    expiresAt,
			Dataset:      dataset,
		})
	}

	ctx.Log.Infof("Presigned %d urls for %s, valid until %s", len(pm.Files), dataset, expiresAt.Format(time.RFC3339))
	return pm, nil
}

// Write persists a public manifest under manifests/presigned/.
func (p *Publisher) Write(pm *PresignedManifest) (string, error) {
	out := PublicPathFor(p.ManifestsDir, pm.Name())
	return out, pm.Save(out)
}
