package datastores

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/skyfleet/datavault/common"
	"github.com/skyfleet/datavault/common/rcontext"
	"github.com/skyfleet/datavault/metrics"
)

var s3singleton *s3store
var s3lock = &sync.Mutex{}

type s3store struct {
	client       *minio.Client
	bucket       string
	storageClass string
	presignCache *gocache.Cache
}

func ResetS3Client() {
	s3lock.Lock()
	defer s3lock.Unlock()
	s3singleton = nil
}

// GetStore returns the process-wide S3 client, building it on first use.
// Fails fast when credentials are missing, so credential-free participant
// flows never get this far.
func GetStore(ctx rcontext.RequestContext) (ObjectStore, error) {
	s3lock.Lock()
	defer s3lock.Unlock()
	if s3singleton != nil {
		return s3singleton, nil
	}

	cfg := ctx.Config
	if !cfg.HasCredentials() {
		return nil, common.ErrNoCredentials
	}

	client, err := minio.New(cfg.Store.Endpoint, &minio.Options{
		Region: cfg.Store.Region,
		Secure: cfg.Store.Ssl,
		Creds:  credentials.NewStaticV4(cfg.Store.AccessKeyId, cfg.Store.SecretAccessKey, ""),
	})
	if err != nil {
		return nil, err
	}

	cacheExpiry := time.Duration(cfg.Presign.CacheExpirySeconds) * time.Second
	s3singleton = &s3store{
		client:       client,
		bucket:       cfg.Store.Bucket,
		storageClass: cfg.Store.StorageClass,
		presignCache: gocache.New(cacheExpiry, 2*cacheExpiry),
	}
	return s3singleton, nil
}

func callTimeout(ctx rcontext.RequestContext) (context.Context, context.CancelFunc) {
	seconds := ctx.Config.Transfers.CallTimeoutSeconds
	if seconds <= 0 {
		return ctx.Context, func() {}
	}
	return context.WithTimeout(ctx.Context, time.Duration(seconds)*time.Second)
}

func (s *s3store) Put(ctx rcontext.RequestContext, key string, r io.Reader, size int64) error {
	callCtx, cancel := callTimeout(ctx)
	defer cancel()

	metrics.S3Operations.With(prometheus.Labels{"operation": "PutObject"}).Inc()
	_, err := s.client.PutObject(callCtx, s.bucket, key, r, size, minio.PutObjectOptions{StorageClass: s.storageClass})
	return mapError(err)
}

func (s *s3store) Get(ctx rcontext.RequestContext, key string) (io.ReadCloser, error) {
	metrics.S3Operations.With(prometheus.Labels{"operation": "GetObject"}).Inc()
	obj, err := s.client.GetObject(ctx.Context, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err)
	}
	// GetObject is lazy: surface not-found now rather than on first read.
	if _, err = obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapError(err)
	}
	return obj, nil
}

func (s *s3store) Stat(ctx rcontext.RequestContext, key string) (ObjectInfo, error) {
	callCtx, cancel := callTimeout(ctx)
	defer cancel()

	metrics.S3Operations.With(prometheus.Labels{"operation": "StatObject"}).Inc()
	info, err := s.client.StatObject(callCtx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, mapError(err)
	}
	return ObjectInfo{Key: info.Key, SizeBytes: info.Size, ETag: info.ETag}, nil
}

func (s *s3store) Presign(ctx rcontext.RequestContext, key string, ttl time.Duration) (string, error) {
	if cached, ok := s.presignCache.Get(key); ok {
		metrics.PresignCacheHits.With(prometheus.Labels{"result": "hit"}).Inc()
		return cached.(string), nil
	}
	metrics.PresignCacheHits.With(prometheus.Labels{"result": "miss"}).Inc()

	callCtx, cancel := callTimeout(ctx)
	defer cancel()

	metrics.S3Operations.With(prometheus.Labels{"operation": "PresignedGetObject"}).Inc()
	u, err := s.client.PresignedGetObject(callCtx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", mapError(err)
	}
	urlStr := u.String()

	// Cache for less than the URL's own lifetime only.
	cacheTtl := time.Duration(ctx.Config.Presign.CacheExpirySeconds) * time.Second
	if cacheTtl > ttl/2 {
		cacheTtl = ttl / 2
	}
	if cacheTtl > 0 {
		s.presignCache.Set(key, urlStr, cacheTtl)
	}
	return urlStr, nil
}

func (s *s3store) List(ctx rcontext.RequestContext, prefix string) ([]ObjectInfo, error) {
	metrics.S3Operations.With(prometheus.Labels{"operation": "ListObjects"}).Inc()
	ch := s.client.ListObjects(ctx.Context, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	results := make([]ObjectInfo, 0)
	for obj := range ch {
		if obj.Err != nil {
			return nil, mapError(obj.Err)
		}
		results = append(results, ObjectInfo{Key: obj.Key, SizeBytes: obj.Size, ETag: obj.ETag})
	}
	return results, nil
}

func (s *s3store) Remove(ctx rcontext.RequestContext, key string) error {
	callCtx, cancel := callTimeout(ctx)
	defer cancel()

	metrics.S3Operations.With(prometheus.Labels{"operation": "RemoveObject"}).Inc()
	return mapError(s.client.RemoveObject(callCtx, s.bucket, key, minio.RemoveObjectOptions{}))
}
