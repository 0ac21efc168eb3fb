package models

import (
	"context"
	"errors"
)

// Manager provides programmatic access to artifact provisioning.
// All methods are safe for concurrent use.
// For CLI integration, use NewCommand instead.
type Manager interface {
	// ListCatalog returns every artifact the manager knows how to
	// provision: built-in entries overlaid with the user catalog.json.
	ListCatalog(ctx context.Context) ([]Artifact, error)

	// ListInstalled returns all locally installed artifacts.
	ListInstalled(ctx context.Context) ([]InstalledArtifact, error)

	// GetInstalled returns info about a specific installed artifact.
	// Returns ErrNotInstalled if the artifact is not installed locally.
	GetInstalled(ctx context.Context, ref ArtifactRef) (InstalledArtifact, error)

	// Resolve looks up an artifact in the catalog.
	// Returns ErrArtifactNotFound if the ref is not declared.
	Resolve(ctx context.Context, ref ArtifactRef) (Artifact, error)

	// VerifyTools checks that each named executable resolves on PATH.
	// With no names it checks the requirements of every catalog entry.
	// Returns ErrMissingDependency naming the first unresolvable tool.
	VerifyTools(ctx context.Context, names ...string) error

	// Ensure makes sure the referenced artifact exists locally, decompressed
	// and digest-verified. If the file is already present and valid, returns
	// ErrAlreadyInstalled without touching the network, unless WithForce()
	// is specified.
	Ensure(ctx context.Context, ref ArtifactRef, opts ...EnsureOption) error

	// EnsureAll provisions every catalog artifact, skipping ones already
	// installed. Distinct artifacts may proceed in parallel
	// (WithConcurrency); each transfer is a single sequential stream.
	EnsureAll(ctx context.Context, opts ...EnsureOption) error

	// Verify recomputes the digest of an installed artifact against the
	// catalog checksum. Returns ErrNotInstalled if the file is absent and a
	// *ChecksumMismatchError (matching ErrChecksumMismatch) on mismatch.
	Verify(ctx context.Context, ref ArtifactRef) error

	// Remove deletes a locally installed artifact.
	// Returns ErrNotInstalled if the artifact is not installed.
	Remove(ctx context.Context, ref ArtifactRef) error

	// Path returns the absolute path to an installed artifact's file.
	// Returns ErrNotInstalled if the artifact is not installed.
	Path(ctx context.Context, ref ArtifactRef) (string, error)
}

// Ensure manager implements Manager interface.
var _ Manager = (*manager)(nil)

// NewManager creates a new Manager with the given configuration.
// Returns an error if the configuration is invalid (empty AppName).
func NewManager(cfg Config, opts ...ManagerOption) (Manager, error) {
	if cfg.AppName == "" {
		return nil, errors.New("models: AppName is required")
	}

	mcfg := newManagerConfig()
	for _, opt := range opts {
		opt(mcfg)
	}

	storage, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	return &manager{
		cfg:        cfg,
		httpClient: mcfg.httpClient,
		logger:     mcfg.logger,
		storage:    storage,
		fetcher:    newFetcher(mcfg.httpClient, mcfg.logger),
	}, nil
}
