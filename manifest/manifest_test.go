package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestKnown(t *testing.T) {
	assert.False(t, Digest("").Known())
	assert.False(t, Pending.Known())
	assert.True(t, Digest("b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9").Known())
}

func TestRemoteKeyDeterministic(t *testing.T) {
	assert.Equal(t, "birds-v2/images/train/0001.png", RemoteKey("birds-v2", "images/train/0001.png"))
	assert.Equal(t, RemoteKey("ds", "a/b.txt"), RemoteKey("ds", "a/b.txt"))
}

func TestRecomputeSummary(t *testing.T) {
	m := &Manifest{
		Dataset: "ds",
		Files: []*FileEntry{
			{LocalPath: "a.bin", SizeBytes: 100},
			{LocalPath: "b.bin", SizeBytes: 250},
		},
	}
	m.RecomputeSummary()
	assert.Equal(t, 2, m.Summary.FileCount)
	assert.Equal(t, int64(350), m.Summary.TotalBytes)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{
		Dataset: "toyset",
		Files: []*FileEntry{
			{
				LocalPath: "file.bin",
				RemoteKey: "toyset/file.bin",
				SizeBytes: 11,
				Md5:       Pending,
				Sha256:    Digest("b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"),
			},
		},
	}
	m.RecomputeSummary()

	p := PathFor(dir, "toyset")
	require.NoError(t, m.Save(p))

	loaded, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "toyset", loaded.Dataset)
	require.Len(t, loaded.Files, 1)
	assert.Equal(t, Pending, loaded.Files[0].Md5)
	assert.Equal(t, m.Files[0].Sha256, loaded.Files[0].Sha256)
	assert.Equal(t, m.Summary, loaded.Summary)
}

func TestLoadMissingManifest(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestListDatasetsFiltersDerivedManifests(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"alpha.json", "beta.json",
		"alpha.media.json", "alpha.public.json",
		"index.json", "media-index.json",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644))
	}

	datasets, err := ListDatasets(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, datasets)
}

func TestListDatasetsMissingDir(t *testing.T) {
	datasets, err := ListDatasets(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, datasets)
}
