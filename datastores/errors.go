package datastores

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/skyfleet/datavault/common"
)

// mapError folds minio error responses onto the repo's sentinel errors where
// a sentinel applies, leaving everything else untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var merr minio.ErrorResponse
	if errors.As(err, &merr) {
		if merr.Code == "NoSuchKey" || merr.StatusCode == http.StatusNotFound {
			return common.ErrObjectNotFound
		}
		if merr.Code == "AccessDenied" || merr.StatusCode == http.StatusForbidden {
			return common.ErrAccessDenied
		}
	}
	return err
}

// IsTransient classifies an error as retryable: timeouts, connection
// failures, and 5xx-class server responses. Not-found and access-denied are
// permanent and never retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, common.ErrObjectNotFound) || errors.Is(err, common.ErrAccessDenied) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	var merr minio.ErrorResponse
	if errors.As(err, &merr) {
		return merr.StatusCode >= 500 || merr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
