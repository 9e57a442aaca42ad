package publish

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/skyfleet/datavault/common/rcontext"
	"github.com/skyfleet/datavault/datastores"
	"github.com/skyfleet/datavault/manifest"
)

type presignOnlyStore struct {
	presigned []string
}

func (s *presignOnlyStore) Put(ctx rcontext.RequestContext, key string, r io.Reader, size int64) error {
	panic("not used")
}

func (s *presignOnlyStore) Get(ctx rcontext.RequestContext, key string) (io.ReadCloser, error) {
	panic("not used")
}

func (s *presignOnlyStore) Stat(ctx rcontext.RequestContext, key string) (datastores.ObjectInfo, error) {
	panic("not used")
}

func (s *presignOnlyStore) Presign(ctx rcontext.RequestContext, key string, ttl time.Duration) (string, error) {
	s.presigned = append(s.presigned, key)
	return "https://store.example.com/" + key + "?signature=fake", nil
}

func (s *presignOnlyStore) List(ctx rcontext.RequestContext, prefix string) ([]datastores.ObjectInfo, error) {
	panic("not used")
}

func (s *presignOnlyStore) Remove(ctx rcontext.RequestContext, key string) error {
	panic("not used")
}

func testContext() rcontext.RequestContext {
	return rcontext.RequestContext{
		Context: context.Background(),
		Log:     logrus.WithField("test", true),
	}
}

func seedManifest(t *testing.T, manifestsDir string, dataset string) *manifest.Manifest {
	t.Helper()
	mf := &manifest.Manifest{
		Dataset:     dataset,
		GeneratedAt: time.Now().UTC(),
		Files: []*manifest.FileEntry{
			{
				LocalPath: "images/x.png",
				RemoteKey: dataset + "/images/x.png",
				SizeBytes: 400,
				Md5:       manifest.Digest("0123456789abcdef0123456789abcdef"),
				Sha256:    manifest.Digest("b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"),
			},
			{
				LocalPath: "labels/x.txt",
				RemoteKey: dataset + "/labels/x.txt",
				SizeBytes: 45,
				Md5:       manifest.Pending,
				Sha256:    manifest.Pending,
			},
		},
	}
	mf.RecomputeSummary()
	require.NoError(t, mf.Save(manifest.PathFor(manifestsDir, dataset)))
	return mf
}

func TestPublishDataset(t *testing.T) {
	store := &presignOnlyStore{}
	manifestsDir := t.TempDir()
	p := &Publisher{Store: store, ManifestsDir: manifestsDir}
	src := seedManifest(t, manifestsDir, "birds")

	now := time.Now().UTC()
	ttl := 1 * time.Hour
	pm, err := p.PublishDataset(testContext(), "birds", ttl, now)
	require.NoError(t, err)

	assert.Equal(t, "birds", pm.Dataset)
	assert.Equal(t, int64(3600), pm.ExpiresIn)
	assert.Equal(t, now.Add(ttl), pm.ExpiresAt)
	require.Len(t, pm.Files, 2)

	// Digests copied verbatim, including the pending sentinel
	assert.Equal(t, src.Files[0].Sha256, pm.Files[0].Sha256)
	assert.Equal(t, src.Files[0].Md5, pm.Files[0].Md5)
	assert.Equal(t, manifest.Pending, pm.Files[1].Sha256)

	for i, f := range pm.Files {
		assert.Equal(t, src.Files[i].RemoteKey, f.RemoteKey)
		assert.Contains(t, f.PresignedUrl, f.RemoteKey)
		assert.Equal(t, now.Add(ttl), f.ExpiresAt)
		assert.Equal(t, "birds", f.Dataset)
	}
	assert.Equal(t, []string{"birds/images/x.png", "birds/labels/x.txt"}, store.presigned)
}

func TestPublishDatasetRejectsNonPositiveTtl(t *testing.T) {
	p := &Publisher{Store: &presignOnlyStore{}, ManifestsDir: t.TempDir()}
	_, err := p.PublishDataset(testContext(), "birds", 0, time.Now())
	assert.Error(t, err)
}

func TestPublishDatasetMissingManifest(t *testing.T) {
	p := &Publisher{Store: &presignOnlyStore{}, ManifestsDir: t.TempDir()}
	_, err := p.PublishDataset(testContext(), "ghost", time.Hour, time.Now())
	assert.Error(t, err)
}

func TestWriteAndLoadPublicManifest(t *testing.T) {
	store := &presignOnlyStore{}
	manifestsDir := t.TempDir()
	p := &Publisher{Store: store, ManifestsDir: manifestsDir}
	seedManifest(t, manifestsDir, "birds")

	pm, err := p.PublishDataset(testContext(), "birds", time.Hour, time.Now().UTC())
	require.NoError(t, err)

	out, err := p.Write(pm)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(manifestsDir, "presigned", "birds.public.json"), filepath.FromSlash(out))

	loaded, err := LoadPublic(out)
	require.NoError(t, err)
	assert.Equal(t, pm.Dataset, loaded.Dataset)
	require.Len(t, loaded.Files, 2)
	assert.Equal(t, pm.Files[0].PresignedUrl, loaded.Files[0].PresignedUrl)
}

func TestBuildBundle(t *testing.T) {
	now := time.Now().UTC()
	a := &PresignedManifest{
		Dataset:   "alpha",
		ExpiresAt: now.Add(2 * time.Hour),
		Files: []*PresignedEntry{
			{LocalPath: "a.bin", RemoteKey: "alpha/a.bin", Dataset: "alpha"},
		},
	}
	b := &PresignedManifest{
		Dataset:   "beta",
		ExpiresAt: now.Add(1 * time.Hour),
		Files: []*PresignedEntry{
			{LocalPath: "b.bin", RemoteKey: "beta/b.bin", Dataset: "beta"},
			{LocalPath: "c.bin", RemoteKey: "beta/c.bin", Dataset: "beta"},
		},
	}

	bundle := BuildBundle("everything", []*PresignedManifest{a, b}, now, 2*time.Hour)
	assert.Equal(t, "everything", bundle.Bundle)
	assert.Equal(t, "everything", bundle.Name())
	require.Len(t, bundle.Files, 3)

	// Earliest member expiry wins
	assert.Equal(t, now.Add(1*time.Hour), bundle.ExpiresAt)

	// Entries keep their dataset tags
	assert.Equal(t, "alpha", bundle.Files[0].Dataset)
	assert.Equal(t, "beta", bundle.Files[1].Dataset)
}

func TestBuildBundleEmpty(t *testing.T) {
	now := time.Now().UTC()
	bundle := BuildBundle("empty", nil, now, time.Hour)
	assert.Equal(t, now.Add(time.Hour), bundle.ExpiresAt)
	assert.Empty(t, bundle.Files)
}
