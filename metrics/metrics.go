package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var S3Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "datavault_s3_operations_total",
}, []string{"operation"})
var FilesUploaded = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "datavault_files_uploaded_total",
}, []string{"dataset"})
var FilesDownloaded = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "datavault_files_downloaded_total",
}, []string{"dataset"})
var TransferFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "datavault_transfer_failures_total",
}, []string{"dataset", "kind"})
var BytesTransferred = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "datavault_bytes_transferred_total",
}, []string{"direction"})
var PresignCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "datavault_presign_cache_hits_total",
}, []string{"result"})

func init() {
	prometheus.MustRegister(S3Operations)
	prometheus.MustRegister(FilesUploaded)
	prometheus.MustRegister(FilesDownloaded)
	prometheus.MustRegister(TransferFailures)
	prometheus.MustRegister(BytesTransferred)
	prometheus.MustRegister(PresignCacheHits)
}
