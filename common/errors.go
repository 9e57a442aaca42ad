package common

import (
	"errors"
)

var ErrObjectNotFound = errors.New("object not found")
var ErrAccessDenied = errors.New("access denied")
var ErrNoCredentials = errors.New("object store credentials not configured")
var ErrExpired = errors.New("presigned url expired")
var ErrIntegrity = errors.New("checksum mismatch")
var ErrManifestNotFound = errors.New("manifest not found")
var ErrDatasetNotFound = errors.New("dataset directory not found")
