package models

import (
	"fmt"
	"strings"
	"time"
)

// Config configures the models module.
type Config struct {
	// AppName determines the storage directory name.
	// Example: "facegate" → ~/.local/share/facegate/models/ on Linux
	AppName string

	// DataDir overrides the default data directory.
	// If empty, uses platform-appropriate default.
	// Can also be set via environment variable: <APPNAME>_MODELS_DIR
	DataDir string
}

// ArtifactRef identifies an artifact in the catalog.
type ArtifactRef struct {
	// Group is the artifact group, e.g., "dlib".
	Group string

	// Name is the artifact name within the group,
	// e.g., "shape-predictor-68-face-landmarks".
	Name string
}

// String returns the canonical string form: "group/name".
func (r ArtifactRef) String() string {
	return r.Group + "/" + r.Name
}

// ParseArtifactRef parses "group/name" into an ArtifactRef.
// Returns ErrInvalidRef if the format is invalid.
func ParseArtifactRef(s string) (ArtifactRef, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ArtifactRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}

	return ArtifactRef{Group: parts[0], Name: parts[1]}, nil
}

// Compression identifies the transfer encoding of a remote artifact.
type Compression string

// Supported transfer compressions.
const (
	// CompressionNone downloads the artifact as-is.
	CompressionNone Compression = "none"

	// CompressionBzip2 decompresses a .bz2 payload after download.
	CompressionBzip2 Compression = "bz2"

	// CompressionGzip decompresses a .gz payload after download.
	CompressionGzip Compression = "gzip"
)

// Artifact is a catalog entry describing a provisionable model file.
type Artifact struct {
	// Ref identifies the artifact.
	Ref ArtifactRef `json:"ref"`

	// FileName is the target file name within the group directory,
	// e.g., "shape_predictor_68_face_landmarks.dat".
	FileName string `json:"file"`

	// URL is the source location of the (possibly compressed) payload.
	URL string `json:"url"`

	// Compression is the transfer encoding of the payload.
	Compression Compression `json:"compression"`

	// Checksum is the expected digest of the decompressed file.
	Checksum Checksum `json:"checksum"`

	// RequiredTools lists external executables this artifact needs on PATH
	// before provisioning may start. Empty for all built-in entries: hashing
	// and decompression are performed in-process.
	RequiredTools []string `json:"tools,omitempty"`

	// SizeHint is the expected compressed payload size in bytes, used for
	// progress reporting when the server omits Content-Length. Zero if
	// unknown.
	SizeHint int64 `json:"size_hint,omitempty"`
}

// InstalledArtifact contains information about a locally installed artifact.
type InstalledArtifact struct {
	// Ref identifies the artifact.
	Ref ArtifactRef `json:"ref"`

	// Digest is the verified hex digest, prefixed with the algorithm,
	// e.g. "md5:73fde5e05226548677a050913eed4e04".
	Digest string `json:"digest"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// InstalledAt is when the artifact was installed.
	InstalledAt time.Time `json:"installed_at"`

	// Path is the absolute path to the artifact file.
	Path string `json:"path"`
}

// FetchProgress reports progress during an Ensure operation.
type FetchProgress struct {
	// Ref identifies the artifact being provisioned.
	Ref ArtifactRef

	// Phase indicates the current phase: "connect", "download",
	// "decompress", or "verify".
	Phase string

	// BytesTotal is the compressed payload size, or 0 if unknown.
	BytesTotal int64

	// BytesReceived is the number of payload bytes fetched so far.
	BytesReceived int64
}
