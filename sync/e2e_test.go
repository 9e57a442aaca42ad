package sync

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/skyfleet/datavault/participant"
	"github.com/skyfleet/datavault/publish"
)

// Full maintainer-to-participant flow: build, hash, upload, presign with a
// one hour TTL, then download with no credentials and byte-compare.
func TestEndToEndPublishAndDownload(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(t, store, 2)

	pngBytes := []byte(strings.Repeat("p", 400))
	txtBytes := []byte(strings.Repeat("t", 45))
	seedDataset(t, m, "sample-starter", map[string][]byte{
		"sample.png": pngBytes,
		"sample.txt": txtBytes,
	})

	uploadResult, err := m.UploadDataset(testContext(), "sample-starter")
	require.NoError(t, err)
	assert.Equal(t, 2, uploadResult.Succeeded)
	assert.Empty(t, uploadResult.Failed)

	publisher := &publish.Publisher{Store: store, ManifestsDir: m.ManifestsDir}
	now := time.Now().UTC()
	pm, err := publisher.PublishDataset(testContext(), "sample-starter", time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, int64(445), pm.Summary.TotalBytes)
	assert.Equal(t, now.Add(time.Hour), pm.ExpiresAt)

	// Participant side: resolve presigned urls straight out of the fake
	// store, the way a browser would hit the real endpoint.
	fetcher := func(ctx context.Context, url string) ([]byte, error) {
		key := strings.TrimPrefix(url, "https://store.example.com/")
		key = strings.TrimSuffix(key, "?signature=fake")
		rc, err := store.Get(testContext(), key)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	out := t.TempDir()
	result := participant.DownloadManifest(context.Background(), pm, participant.Options{
		OutputRoot: out,
		Verify:     true,
		Fetcher:    fetcher,
	})
	assert.Equal(t, 2, result.Downloaded)
	assert.Empty(t, result.Failed)
	assert.True(t, result.FullySucceeded())

	gotPng, err := os.ReadFile(filepath.Join(out, "sample-starter", "sample.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, gotPng)
	gotTxt, err := os.ReadFile(filepath.Join(out, "sample-starter", "sample.txt"))
	require.NoError(t, err)
	assert.Equal(t, txtBytes, gotTxt)
}
