package participant

import (
	"os"

	"github.com/skyfleet/datavault/publish"
)

// FindResumePoint returns the index of the first manifest entry with no file
// under the output root, or len(files) when everything is present. Useful
// with Options.StartFrom after an interrupted bulk download.
func FindResumePoint(pm *publish.PresignedManifest, outputRoot string) int {
	for i, entry := range pm.Files {
		target := TargetPath(pm, entry, outputRoot)
		if _, err := os.Stat(target); err != nil {
			return i
		}
	}
	return len(pm.Files)
}
