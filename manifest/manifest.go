package manifest

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/skyfleet/datavault/common"
	"github.com/skyfleet/datavault/util"
)

// Digest is a hex checksum, or the Pending sentinel when the value has not
// been computed yet. Pending is a normal state for a freshly built manifest,
// not an error.
type Digest string

const Pending Digest = "pending"

// Known reports whether the digest holds a real computed value.
func (d Digest) Known() bool {
	return d != "" && d != Pending
}

func (d Digest) String() string {
	return string(d)
}

type FileEntry struct {
	LocalPath string `json:"local_path"`
	RemoteKey string `json:"remote_key"`
	SizeBytes int64  `json:"size_bytes"`
	Md5       Digest `json:"md5"`
	Sha256    Digest `json:"sha256"`
}

type Summary struct {
	FileCount  int   `json:"file_count"`
	TotalBytes int64 `json:"total_bytes"`
}

type Manifest struct {
	Dataset     string       `json:"dataset"`
	GeneratedAt time.Time    `json:"generated_at"`
	Hashed      bool         `json:"hashed"`
	Summary     Summary      `json:"summary"`
	Files       []*FileEntry `json:"files"`
}

// RemoteKey derives the deterministic object store key for a file. The same
// (dataset, local path) pair always maps to the same key, which is what makes
// re-uploads of unchanged files no-ops.
func RemoteKey(dataset string, localPath string) string {
	return dataset + "/" + localPath
}

// RecomputeSummary folds Files into Summary. Callers that mutate entries
// concurrently run this once at the end of a batch, never per worker.
func (m *Manifest) RecomputeSummary() {
	s := Summary{}
	for _, f := range m.Files {
		s.FileCount++
		s.TotalBytes += f.SizeBytes
	}
	m.Summary = s
}

// Entry finds a file entry by remote key.
func (m *Manifest) Entry(remoteKey string) *FileEntry {
	for _, f := range m.Files {
		if f.RemoteKey == remoteKey {
			return f
		}
	}
	return nil
}

func PathFor(manifestsDir string, dataset string) string {
	return path.Join(manifestsDir, dataset+".json")
}

func MediaPathFor(manifestsDir string, dataset string) string {
	return path.Join(manifestsDir, dataset+".media.json")
}

func Load(filePath string) (*Manifest, error) {
	b, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ErrManifestNotFound
		}
		return nil, err
	}
	m := &Manifest{}
	if err = json.Unmarshal(b, m); err != nil {
		return nil, errors.Wrapf(err, "failed to parse manifest %s", filePath)
	}
	return m, nil
}

func (m *Manifest) Save(filePath string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(filePath, append(b, '\n'), 0644)
}

// ListDatasets returns the dataset names that have a canonical manifest on
// disk, sorted. Media and presigned manifests are not counted.
func ListDatasets(manifestsDir string) ([]string, error) {
	entries, err := os.ReadDir(manifestsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	datasets := make([]string, 0)
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		stem := strings.TrimSuffix(name, ".json")
		if strings.HasSuffix(stem, ".media") || strings.HasSuffix(stem, ".public") {
			continue
		}
		if stem == "index" || stem == "media-index" {
			continue
		}
		datasets = append(datasets, stem)
	}
	return datasets, nil
}
