package publish

import (
	"time"
)

// BuildBundle aggregates several datasets' presigned manifests into one
// shareable manifest. Entries keep their per-dataset tags; the bundle's
// expiry is the earliest member expiry, so a consumer checking the top-level
// timestamp is never optimistic.
func BuildBundle(name string, payloads []*PresignedManifest, generatedAt time.Time, ttl time.Duration) *PresignedManifest {
	bundle := &PresignedManifest{
		Bundle:      name,
		GeneratedAt: generatedAt,
		ExpiresIn:   int64(ttl / time.Second),
		Files:       make([]*PresignedEntry, 0),
	}

	var earliest time.Time
	for _, pm := range payloads {
		if earliest.IsZero() || pm.ExpiresAt.Before(earliest) {
			earliest = pm.ExpiresAt
		}
		bundle.Files = append(bundle.Files, pm.Files...)
	}

	if earliest.IsZero() {
		earliest = generatedAt.Add(ttl)
	}
	bundle.ExpiresAt = earliest
	return bundle
}
