package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for artifact provisioning operations.
// Use errors.Is() to check for specific error conditions.
var (
	// ErrArtifactNotFound indicates the artifact is not declared in the catalog.
	ErrArtifactNotFound = errors.New("models: artifact not found in catalog")

	// ErrNotInstalled indicates the artifact is not installed locally.
	ErrNotInstalled = errors.New("models: artifact not installed")

	// ErrAlreadyInstalled indicates the artifact is already present and valid.
	// Returned by Ensure when the file exists and WithForce() is not specified.
	ErrAlreadyInstalled = errors.New("models: artifact already installed")

	// ErrMissingDependency indicates a required external tool is not on PATH.
	ErrMissingDependency = errors.New("models: missing required tool")

	// ErrDownloadFailed indicates a network error or non-success HTTP status.
	ErrDownloadFailed = errors.New("models: download failed")

	// ErrDecompressionFailed indicates the compressed payload could not be
	// decoded.
	ErrDecompressionFailed = errors.New("models: decompression failed")

	// ErrChecksumMismatch indicates the file on disk does not hash to the
	// catalog digest. A *ChecksumMismatchError carrying both digests wraps
	// this sentinel.
	ErrChecksumMismatch = errors.New("models: checksum verification failed")

	// ErrStorageError indicates a filesystem operation failed.
	ErrStorageError = errors.New("models: storage error")

	// ErrInvalidRef indicates an invalid artifact reference format.
	ErrInvalidRef = errors.New("models: invalid artifact reference")

	// ErrCatalogError indicates the catalog file is invalid or unparseable.
	ErrCatalogError = errors.New("models: invalid catalog")
)

// ChecksumMismatchError reports a failed digest comparison. It carries both
// the expected and the actual hex digest so callers can surface them to the
// user. Matches ErrChecksumMismatch under errors.Is().
type ChecksumMismatchError struct {
	// Path is the file that failed verification.
	Path string

	// Algo is the digest algorithm, e.g. "md5" or "sha256".
	Algo string

	// Expected is the hex digest declared in the catalog.
	Expected string

	// Actual is the hex digest computed from the file.
	Actual string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("models: checksum mismatch for %s: expected %s:%s, got %s:%s",
		e.Path, e.Algo, e.Expected, e.Algo, e.Actual)
}

// Unwrap makes errors.Is(err, ErrChecksumMismatch) succeed.
func (e *ChecksumMismatchError) Unwrap() error {
	return ErrChecksumMismatch
}
