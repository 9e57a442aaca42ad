package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/skyfleet/datavault/common/rcontext"
)

func testContext() rcontext.RequestContext {
	return rcontext.RequestContext{
		Context: context.Background(),
		Log:     logrus.WithField("test", true),
	}
}

func writeTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, content, 0644))
	}
}

func newTestBuilder(t *testing.T) *Builder {
	datasetsDir := t.TempDir()
	return NewBuilder(datasetsDir, filepath.Join(datasetsDir, "manifests"))
}

func TestBuildDatasetInventory(t *testing.T) {
	b := newTestBuilder(t)
	writeTree(t, filepath.Join(b.DatasetsDir, "birds"), map[string][]byte{
		"images/train/0001.png": []byte("png-bytes-here"),
		"labels/train/0001.txt": []byte("0 0.5 0.5 1.0 1.0\n"),
		"classes.txt":           []byte("drone\n"),
	})

	result, err := b.BuildDataset(testContext(), "birds", nil)
	require.NoError(t, err)
	full := result.Full

	require.Len(t, full.Files, 3)
	assert.Equal(t, "classes.txt", full.Files[0].LocalPath)
	assert.Equal(t, "images/train/0001.png", full.Files[1].LocalPath)
	assert.Equal(t, "labels/train/0001.txt", full.Files[2].LocalPath)
	assert.Equal(t, "birds/images/train/0001.png", full.Files[1].RemoteKey)

	// No hashing requested: digests stay pending
	for _, f := range full.Files {
		assert.Equal(t, Pending, f.Md5)
		assert.Equal(t, Pending, f.Sha256)
	}

	assert.Equal(t, 3, full.Summary.FileCount)
	var total int64
	for _, f := range full.Files {
		total += f.SizeBytes
	}
	assert.Equal(t, total, full.Summary.TotalBytes)
}

func TestBuildDatasetWithHashing(t *testing.T) {
	b := newTestBuilder(t)
	writeTree(t, filepath.Join(b.DatasetsDir, "ds"), map[string][]byte{
		"file.bin": []byte("hello world"),
	})

	result, err := b.BuildDataset(testContext(), "ds", []string{"sha256"})
	require.NoError(t, err)
	require.Len(t, result.Full.Files, 1)
	assert.Equal(t, Digest("b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"), result.Full.Files[0].Sha256)
	assert.Equal(t, Pending, result.Full.Files[0].Md5)
	assert.True(t, result.Full.Hashed)
}

func TestBuildDatasetIdempotent(t *testing.T) {
	b := newTestBuilder(t)
	writeTree(t, filepath.Join(b.DatasetsDir, "ds"), map[string][]byte{
		"b.bin":        []byte("bbb"),
		"a.bin":        []byte("aaa"),
		"nested/c.bin": []byte("ccc"),
	})

	first, err := b.BuildDataset(testContext(), "ds", []string{"md5", "sha256"})
	require.NoError(t, err)
	second, err := b.BuildDataset(testContext(), "ds", []string{"md5", "sha256"})
	require.NoError(t, err)

	require.Equal(t, len(first.Full.Files), len(second.Full.Files))
	for i := range first.Full.Files {
		assert.Equal(t, *first.Full.Files[i], *second.Full.Files[i])
	}
	assert.Equal(t, first.Full.Summary, second.Full.Summary)
}

func TestBuildDatasetExcludesNoiseDirs(t *testing.T) {
	b := newTestBuilder(t)
	writeTree(t, filepath.Join(b.DatasetsDir, "ds"), map[string][]byte{
		"keep.txt":             []byte("keep"),
		".git/config":          []byte("noise"),
		"__pycache__/x.pyc":    []byte("noise"),
		"node_modules/m/x.js":  []byte("noise"),
	})

	result, err := b.BuildDataset(testContext(), "ds", nil)
	require.NoError(t, err)
	require.Len(t, result.Full.Files, 1)
	assert.Equal(t, "keep.txt", result.Full.Files[0].LocalPath)
}

func TestBuildDatasetMissing(t *testing.T) {
	b := newTestBuilder(t)
	_, err := b.BuildDataset(testContext(), "nope", nil)
	assert.Error(t, err)
}

func TestCuratedMediaPairing(t *testing.T) {
	b := newTestBuilder(t)
	writeTree(t, filepath.Join(b.DatasetsDir, "ds"), map[string][]byte{
		"images/train/paired.png":   []byte("img1"),
		"labels/train/paired.txt":   []byte("0 0.1 0.1 0.2 0.2\n"),
		"images/train/orphan.png":   []byte("img2"),
		"labels/val/lonely.txt":     []byte("1 0.3 0.3 0.4 0.4\n"),
		"classes.txt":               []byte("drone\n"),
	})

	result, err := b.BuildDataset(testContext(), "ds", nil)
	require.NoError(t, err)

	// Full inventory keeps everything
	assert.Len(t, result.Full.Files, 5)

	// Curated view keeps only the matched image/label pair
	media := result.Media
	require.Len(t, media.Files, 2)
	paths := []string{media.Files[0].LocalPath, media.Files[1].LocalPath}
	assert.Contains(t, paths, "images/train/paired.png")
	assert.Contains(t, paths, "labels/train/paired.txt")

	assert.Equal(t, 1, result.Pairs)
	assert.Equal(t, 1, result.Splits["train"])
	assert.Equal(t, media.Summary.FileCount, len(media.Files))
}

func TestKindClassification(t *testing.T) {
	p := DefaultCurationPolicy()
	assert.Equal(t, "image", p.KindOf("images/train/a.png"))
	assert.Equal(t, "video", p.KindOf("clips/run.mp4"))
	assert.Equal(t, "annotation", p.KindOf("labels/train/a.txt"))
	assert.Equal(t, "annotation", p.KindOf("annotations/instances_train.json"))
	assert.Equal(t, "annotation", p.KindOf("voc/a.xml"))
	// txt outside labels/ and json outside annotations/ are plain files
	assert.Equal(t, "", p.KindOf("notes.txt"))
	assert.Equal(t, "", p.KindOf("meta/config.json"))
	assert.Equal(t, "", p.KindOf("README.md"))
}

func TestKindCountsCoverFullInventory(t *testing.T) {
	b := newTestBuilder(t)
	writeTree(t, filepath.Join(b.DatasetsDir, "ds"), map[string][]byte{
		"images/train/a.png":             []byte("img-a"),
		"labels/train/a.txt":             []byte("lbl-a"),
		"clips/flight.mp4":               []byte("vid"),
		"annotations/instances_val.json": []byte("{}"),
		"README.md":                      []byte("docs"),
	})
	result, err := b.BuildDataset(testContext(), "ds", nil)
	require.NoError(t, err)

	// Curated view stays pairs-only, but kind counts see the video and the
	// standalone coco annotation too.
	assert.Equal(t, 2, result.Media.Summary.FileCount)
	assert.Equal(t, map[string]int{"image": 1, "annotation": 2, "video": 1}, result.Kinds)
}

func TestInferSplit(t *testing.T) {
	assert.Equal(t, "train", InferSplit("images/train/a.png"))
	assert.Equal(t, "val", InferSplit("images/valid/a.png"))
	assert.Equal(t, "test", InferSplit("test/images/a.png"))
	assert.Equal(t, "", InferSplit("images/a.png"))
}

func TestWriteManifestsAndIndexes(t *testing.T) {
	b := newTestBuilder(t)
	writeTree(t, filepath.Join(b.DatasetsDir, "ds"), map[string][]byte{
		"images/x.png": []byte("img"),
		"labels/x.txt": []byte("lbl"),
	})

	result, err := b.BuildDataset(testContext(), "ds", nil)
	require.NoError(t, err)
	require.NoError(t, b.Write(result))
	require.NoError(t, b.WriteIndexes([]*BuildResult{result}))

	_, err = Load(PathFor(b.ManifestsDir, "ds"))
	assert.NoError(t, err)
	_, err = Load(MediaPathFor(b.ManifestsDir, "ds"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(b.ManifestsDir, "index.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(b.ManifestsDir, "media-index.json"))
	assert.NoError(t, err)
}

func TestDiscoverDatasetsSkipsManifestsDir(t *testing.T) {
	b := newTestBuilder(t)
	writeTree(t, filepath.Join(b.DatasetsDir, "alpha"), map[string][]byte{"a.txt": []byte("a")})
	writeTree(t, filepath.Join(b.DatasetsDir, "beta"), map[string][]byte{"b.txt": []byte("b")})
	require.NoError(t, os.MkdirAll(b.ManifestsDir, 0755))

	names, err := b.DiscoverDatasets()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)
}
