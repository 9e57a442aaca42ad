package datastores

import (
	"io"
	"time"

	"github.com/skyfleet/datavault/common/rcontext"
)

type ObjectInfo struct {
	Key       string
	SizeBytes int64
	ETag      string
}

// ObjectStore is the capability set the sync and publish layers depend on.
// The production implementation talks to any S3-compatible endpoint; tests
// substitute an in-memory fake.
type ObjectStore interface {
	Put(ctx rcontext.RequestContext, key string, r io.Reader, size int64) error
	Get(ctx rcontext.RequestContext, key string) (io.ReadCloser, error)
	Stat(ctx rcontext.RequestContext, key string) (ObjectInfo, error)
	Presign(ctx rcontext.RequestContext, key string, ttl time.Duration) (string, error)
	List(ctx rcontext.RequestContext, prefix string) ([]ObjectInfo, error)
	Remove(ctx rcontext.RequestContext, key string) error
}
