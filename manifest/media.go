package manifest

import (
	"path"
	"strings"
)

// CurationPolicy decides which files count as dataset content versus noise,
// and which media/annotation pairs form the curated index.
type CurationPolicy struct {
	ExcludeDirNames map[string]bool
	ImagesDirName   string
	LabelsDirName   string
	ImageExts       map[string]bool
	VideoExts       map[string]bool
	LabelExt        string
}

func DefaultCurationPolicy() CurationPolicy {
	return CurationPolicy{
		ExcludeDirNames: map[string]bool{
			".git":        true,
			".idea":       true,
			"node_modules": true,
			"__pycache__":  true,
		},
		ImagesDirName: "images",
		LabelsDirName: "labels",
		ImageExts: map[string]bool{
			"jpg": true, "jpeg": true, "png": true, "bmp": true,
			"tif": true, "tiff": true, "webp": true,
		},
		VideoExts: map[string]bool{
			"mp4": true, "avi": true, "mov": true, "mkv": true, "m4v": true,
		},
		LabelExt: "txt",
	}
}

func (p CurationPolicy) ExcludesDir(name string) bool {
	return p.ExcludeDirNames[name]
}

func ext(localPath string) string {
	e := path.Ext(localPath)
	if e == "" {
		return ""
	}
	return strings.ToLower(e[1:])
}

// pairKey maps a YOLO-layout path to the key shared by an image and its
// label: the path tail after the images/ or labels/ component, extension
// stripped. Files outside either subtree have no key.
func (p CurationPolicy) pairKey(localPath string) (string, bool) {
	parts := strings.Split(localPath, "/")
	idx := -1
	for i, part := range parts {
		if part == p.ImagesDirName || part == p.LabelsDirName {
			idx = i
			break
		}
	}
	if idx < 0 || idx == len(parts)-1 {
		return "", false
	}
	tail := strings.Join(parts[idx+1:], "/")
	e := path.Ext(tail)
	return strings.TrimSuffix(tail, e), true
}

// KindOf classifies a file as image, video, annotation, or "" for anything
// else. Annotations are recognized in YOLO (txt under labels/), coco (json
// under annotations/ or instances_*-named), and voc (xml near annotations,
// pascal, or voc path hints) layouts.
func (p CurationPolicy) KindOf(localPath string) string {
	e := ext(localPath)
	lp := strings.ToLower(localPath)
	switch {
	case p.ImageExts[e]:
		return "image"
	case p.VideoExts[e]:
		return "video"
	case e == p.LabelExt && underDir(lp, p.LabelsDirName):
		return "annotation"
	case e == "json" && (underDir(lp, "annotations") || strings.HasPrefix(path.Base(lp), "instances_")):
		return "annotation"
	case e == "xml" && (underDir(lp, "annotations") || strings.Contains(lp, "pascal") || strings.Contains(lp, "voc")):
		return "annotation"
	}
	return ""
}

func underDir(localPath string, dir string) bool {
	return strings.HasPrefix(localPath, dir+"/") || strings.Contains(localPath, "/"+dir+"/")
}

// InferSplit recognizes train/val/test path components.
func InferSplit(localPath string) string {
	for _, part := range strings.Split(strings.ToLower(localPath), "/") {
		switch part {
		case "train":
			return "train"
		case "val", "valid", "validation":
			return "val"
		case "test":
			return "test"
		}
	}
	return ""
}

// CurateMedia derives the media-pairs manifest from a full inventory. Only
// image/label entries whose stem matches a counterpart in the opposite
// subtree are kept; everything else stays in the full inventory alone. The
// returned manifest shares the FileEntry schema with the full one.
func (p CurationPolicy) CurateMedia(full *Manifest) (*Manifest, int, map[string]int) {
	imageByKey := make(map[string]*FileEntry)
	labelByKey := make(map[string]*FileEntry)

	for _, f := range full.Files {
		key, ok := p.pairKey(f.LocalPath)
		if !ok {
			continue
		}
		e := ext(f.LocalPath)
		if p.ImageExts[e] {
			imageByKey[key] = f
		} else if e == p.LabelExt {
			labelByKey[key] = f
		}
	}

	media := &Manifest{
		Dataset:     full.Dataset,
		GeneratedAt: full.GeneratedAt,
		Hashed:      full.Hashed,
		Files:       make([]*FileEntry, 0),
	}
	pairs := 0
	splits := make(map[string]int)

	for _, f := range full.Files {
		key, ok := p.pairKey(f.LocalPath)
		if !ok {
			continue
		}
		e := ext(f.LocalPath)
		if p.ImageExts[e] {
			if _, paired := labelByKey[key]; !paired {
				continue
			}
			pairs++
			if s := InferSplit(f.LocalPath); s != "" {
				splits[s]++
			}
		} else if e == p.LabelExt {
			if _, paired := imageByKey[key]; !paired {
				continue
			}
		} else {
			continue
		}
		media.Files = append(media.Files, f)
	}

	media.RecomputeSummary()
	return media, pairs, splits
}
