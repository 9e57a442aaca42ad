package manifest

import (
	"encoding/json"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/skyfleet/datavault/checksums"
	"github.com/skyfleet/datavault/common"
	"github.com/skyfleet/datavault/common/rcontext"
	"github.com/skyfleet/datavault/util"
)

// Builder turns dataset directories into manifests. Traversal is lexical, so
// repeated builds over an unchanged tree emit identical files arrays, the
// only moving part being GeneratedAt.
type Builder struct {
	DatasetsDir  string
	ManifestsDir string
	Policy       CurationPolicy
}

func NewBuilder(datasetsDir string, manifestsDir string) *Builder {
	return &Builder{
		DatasetsDir:  datasetsDir,
		ManifestsDir: manifestsDir,
		Policy:       DefaultCurationPolicy(),
	}
}

type BuildResult struct {
	Full   *Manifest
	Media  *Manifest
	Pairs  int
	Splits map[string]int
	Kinds  map[string]int
}

// BuildDataset walks one dataset directory and produces the full inventory
// manifest plus the curated media-pairs manifest. When algorithms is empty,
// digests are left Pending.
func (b *Builder) BuildDataset(ctx rcontext.RequestContext, dataset string, algorithms []string) (*BuildResult, error) {
	root := filepath.Join(b.DatasetsDir, dataset)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, common.ErrDatasetNotFound
	}

	now := time.Now().UTC()
	full := &Manifest{
		Dataset:     dataset,
		GeneratedAt: now,
		Hashed:      len(algorithms) > 0,
		Files:       make([]*FileEntry, 0),
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if b.Policy.ExcludesDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		fi, err := d.Info()
		if err != nil {
			// The file vanished mid-walk. Treat it as noise, like the
			// curation excludes.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		entry := &FileEntry{
			LocalPath: rel,
			RemoteKey: RemoteKey(dataset, rel),
			SizeBytes: fi.Size(),
			Md5:       Pending,
			Sha256:    Pending,
		}

		if len(algorithms) > 0 {
			sums, err := checksums.Compute(p, algorithms...)
			if err != nil {
				return err
			}
			if sums.Md5 != "" {
				entry.Md5 = Digest(sums.Md5)
			}
			if sums.Sha256 != "" {
				entry.Sha256 = Digest(sums.Sha256)
			}
		}

		full.Files = append(full.Files, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(full.Files, func(i int, j int) bool {
		return full.Files[i].LocalPath < full.Files[j].LocalPath
	})
	full.RecomputeSummary()

	media, pairs, splits := b.Policy.CurateMedia(full)

	// Kind composition is reported over the whole inventory. The curated
	// view is pairs-only, so counting there would never see videos or
	// standalone coco/voc annotation files.
	kinds := make(map[string]int)
	for _, f := range full.Files {
		if k := b.Policy.KindOf(f.LocalPath); k != "" {
			kinds[k]++
		}
	}
	ctx.Log.Debugf("Built manifest for %s: %d files, %d curated pairs", dataset, full.Summary.FileCount, pairs)

	return &BuildResult{Full: full, Media: media, Pairs: pairs, Splits: splits, Kinds: kinds}, nil
}

// Write persists both manifests of a build result under the manifests dir.
func (b *Builder) Write(result *BuildResult) error {
	if err := result.Full.Save(PathFor(b.ManifestsDir, result.Full.Dataset)); err != nil {
		return err
	}
	return result.Media.Save(MediaPathFor(b.ManifestsDir, result.Full.Dataset))
}

// DiscoverDatasets lists the dataset directories under DatasetsDir, sorted.
// The manifests directory itself and curation-excluded names are skipped.
func (b *Builder) DiscoverDatasets() ([]string, error) {
	entries, err := os.ReadDir(b.DatasetsDir)
	if err != nil {
		return nil, err
	}

	manifestsBase := filepath.Base(b.ManifestsDir)
	names := make([]string, 0)
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		if ent.Name() == manifestsBase || b.Policy.ExcludesDir(ent.Name()) {
			continue
		}
		names = append(names, ent.Name())
	}
	return names, nil
}

type indexEntry struct {
	Dataset    string `json:"dataset"`
	Manifest   string `json:"manifest"`
	FileCount  int    `json:"file_count"`
	TotalBytes int64  `json:"total_bytes"`
	Hashed     bool   `json:"hashed"`
}

type mediaIndexEntry struct {
	Dataset   string         `json:"dataset"`
	Manifest  string         `json:"manifest"`
	FileCount int            `json:"file_count"`
	PairCount int            `json:"pair_count"`
	Splits    map[string]int `json:"splits"`
	Kinds     map[string]int `json:"kinds"`
}

// WriteIndexes emits the cross-dataset index.json and media-index.json
// summaries next to the per-dataset manifests.
func (b *Builder) WriteIndexes(results []*BuildResult) error {
	index := struct {
		Datasets []indexEntry `json:"datasets"`
	}{Datasets: make([]indexEntry, 0, len(results))}
	mediaIndex := struct {
		Datasets []mediaIndexEntry `json:"datasets"`
	}{Datasets: make([]mediaIndexEntry, 0, len(results))}

	for _, r := range results {
		index.Datasets = append(index.Datasets, indexEntry{
			Dataset:    r.Full.Dataset,
			Manifest:   PathFor(b.ManifestsDir, r.Full.Dataset),
			FileCount:  r.Full.Summary.FileCount,
			TotalBytes: r.Full.Summary.TotalBytes,
			Hashed:     r.Full.Hashed,
		})
		mediaIndex.Datasets = append(mediaIndex.Datasets, mediaIndexEntry{
			Dataset:   r.Full.Dataset,
			Manifest:  MediaPathFor(b.ManifestsDir, r.Full.Dataset),
			FileCount: r.Media.Summary.FileCount,
			PairCount: r.Pairs,
			Splits:    r.Splits,
			Kinds:     r.Kinds,
		})
	}

	if err := writeJson(path.Join(b.ManifestsDir, "index.json"), index); err != nil {
		return err
	}
	return writeJson(path.Join(b.ManifestsDir, "media-index.json"), mediaIndex)
}

func writeJson(filePath string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(filePath, append(b, '\n'), 0644)
}
