package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// manager is the concrete implementation of the Manager interface.
type manager struct {
	// cfg holds the module configuration.
	cfg Config

	// httpClient is used for all HTTP requests.
	httpClient HTTPClient

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// storage handles local filesystem operations.
	storage storageInterface

	// fetcher handles artifact payload downloads.
	fetcher *fetcher
}

// ListCatalog returns every artifact the manager knows how to provision,
// built-in entries overlaid with the user catalog.
func (m *manager) ListCatalog(ctx context.Context) ([]Artifact, error) {
	c, err := loadCatalog(m.storage)
	if err != nil {
		return nil, err
	}
	return c.all(), nil
}

// ListInstalled returns all locally installed artifacts.
func (m *manager) ListInstalled(ctx context.Context) ([]InstalledArtifact, error) {
	reg, err := m.storage.loadLedger()
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}

	var installed []InstalledArtifact
	for group, names := range reg {
		for name, entry := range names {
			ref := ArtifactRef{Group: group, Name: name}
			installed = append(installed, InstalledArtifact{
				Ref:         ref,
				Digest:      entry.Digest,
				Size:        entry.Size,
				InstalledAt: entry.InstalledAt,
				Path:        m.storage.artifactPath(Artifact{Ref: ref, FileName: entry.File}),
			})
		}
	}

	return installed, nil
}

// GetInstalled returns info about a specific installed artifact.
func (m *manager) GetInstalled(ctx context.Context, ref ArtifactRef) (InstalledArtifact, error) {
	reg, err := m.storage.loadLedger()
	if err != nil {
		return InstalledArtifact{}, fmt.Errorf("loading ledger: %w", err)
	}

	names, ok := reg[ref.Group]
	if !ok {
		return InstalledArtifact{}, fmt.Errorf("%s: %w", ref, ErrNotInstalled)
	}

	entry, ok := names[ref.Name]
	if !ok {
		return InstalledArtifact{}, fmt.Errorf("%s: %w", ref, ErrNotInstalled)
	}

	return InstalledArtifact{
		Ref:         ref,
		Digest:      entry.Digest,
		Size:        entry.Size,
		InstalledAt: entry.InstalledAt,
		Path:        m.storage.artifactPath(Artifact{Ref: ref, FileName: entry.File}),
	}, nil
}

// Resolve looks up an artifact in the catalog.
func (m *manager) Resolve(ctx context.Context, ref ArtifactRef) (Artifact, error) {
	c, err := loadCatalog(m.storage)
	if err != nil {
		return Artifact{}, err
	}
	return c.lookup(ref)
}

// VerifyTools checks that each named executable resolves on PATH. With no
// names it checks the tool requirements of every catalog entry. The built-in
// catalog declares none: hashing and decompression run in-process, so the
// default pipeline has no external dependencies.
func (m *manager) VerifyTools(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		artifacts, err := m.ListCatalog(ctx)
		if err != nil {
			return err
		}
		for _, a := range artifacts {
			names = append(names, a.RequiredTools...)
		}
	}
	return lookupTools(names)
}

// Ensure makes sure the referenced artifact exists locally, decompressed and
// digest-verified. When the file is already present it is verified without
// any network access and ErrAlreadyInstalled is returned (unless WithForce).
func (m *manager) Ensure(ctx context.Context, ref ArtifactRef, opts ...EnsureOption) error {
	cfg := newEnsureConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	a, err := m.Resolve(ctx, ref)
	if err != nil {
		return err
	}

	return m.ensureArtifact(ctx, a, cfg)
}

// EnsureAll provisions every artifact in the catalog with a bounded worker
// pool. Already-installed artifacts are skipped. Each individual transfer is
// a single sequential stream.
func (m *manager) EnsureAll(ctx context.Context, opts ...EnsureOption) error {
	cfg := newEnsureConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	artifacts, err := m.ListCatalog(ctx)
	if err != nil {
		return err
	}

	return runEnsurePool(ctx, artifacts, cfg.concurrency, func(ctx context.Context, a Artifact) error {
		err := m.ensureArtifact(ctx, a, cfg)
		if errors.Is(err, ErrAlreadyInstalled) {
			return nil
		}
		return err
	})
}

// ensureArtifact runs the provisioning pipeline for one artifact:
// tool check, conditional download, decompression, digest verification,
// ledger update. The pipeline halts on the first error; nothing is retried.
func (m *manager) ensureArtifact(ctx context.Context, a Artifact, cfg *ensureConfig) error {
	// Tool availability gates everything, including network access.
	if err := lookupTools(a.RequiredTools); err != nil {
		return err
	}

	path := m.storage.artifactPath(a)
	if err := m.storage.ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	// Cross-process lock so two processes never provision the same artifact
	// at once.
	lock, err := newFileLock(path+".lock", DefaultLockTimeout)
	if err != nil {
		return fmt.Errorf("%w: failed to create artifact lock: %v", ErrStorageError, err)
	}
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("%w: another process is provisioning this artifact: %v", ErrStorageError, err)
	}
	defer lock.Unlock()

	if !cfg.force {
		if _, err := os.Stat(path); err == nil {
			// Present: verify in place, no network. A mismatch is reported,
			// not repaired; deleting a corrupt file is the user's call.
			if cfg.progressFn != nil {
				cfg.progressFn(FetchProgress{Ref: a.Ref, Phase: "verify"})
			}
			if err := verifyFile(path, a.Checksum); err != nil {
				return err
			}
			if err := m.recordInstall(a, path); err != nil {
				return err
			}
			return fmt.Errorf("%s: %w", a.Ref, ErrAlreadyInstalled)
		}
	}

	if cfg.progressFn != nil {
		cfg.progressFn(FetchProgress{Ref: a.Ref, Phase: "connect", BytesTotal: a.SizeHint})
	}

	// Download the compressed payload next to the target file.
	compressed := path + ".partial"
	_, err = m.fetcher.fetch(ctx, a, compressed, func(received, total int64) {
		if cfg.progressFn != nil {
			cfg.progressFn(FetchProgress{
				Ref:           a.Ref,
				Phase:         "download",
				BytesTotal:    total,
				BytesReceived: received,
			})
		}
	})
	if err != nil {
		os.Remove(compressed)
		return err
	}

	if cfg.progressFn != nil {
		cfg.progressFn(FetchProgress{Ref: a.Ref, Phase: "decompress"})
	}

	if _, err := decompressFile(compressed, path, a.Compression); err != nil {
		os.Remove(compressed)
		return err
	}

	// The compressed intermediate is no longer needed.
	if err := os.Remove(compressed); err != nil && !os.IsNotExist(err) {
		if m.logger != nil {
			m.logger.Warn("failed to remove compressed intermediate", "path", compressed, "error", err)
		}
	}

	if cfg.progressFn != nil {
		cfg.progressFn(FetchProgress{Ref: a.Ref, Phase: "verify"})
	}

	if err := verifyFile(path, a.Checksum); err != nil {
		return err
	}

	if m.logger != nil {
		m.logger.Info("artifact installed", "ref", a.Ref.String(), "path", path)
	}

	return m.recordInstall(a, path)
}

// recordInstall writes (or refreshes) the ledger entry for a verified
// artifact.
func (m *manager) recordInstall(a Artifact, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", ErrStorageError, path, err)
	}

	reg, err := m.storage.loadLedger()
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}

	if reg[a.Ref.Group] == nil {
		reg[a.Ref.Group] = make(map[string]ledgerEntry)
	}
	reg[a.Ref.Group][a.Ref.Name] = ledgerEntry{
		Digest:      a.Checksum.String(),
		File:        a.FileName,
		Size:        info.Size(),
		InstalledAt: time.Now(),
	}

	if err := m.storage.saveLedger(reg); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}

	return nil
}

// Verify recomputes the digest of an installed artifact and compares it to
// the catalog checksum. Returns ErrNotInstalled if the file is absent and a
// *ChecksumMismatchError on digest mismatch.
func (m *manager) Verify(ctx context.Context, ref ArtifactRef) error {
	a, err := m.Resolve(ctx, ref)
	if err != nil {
		return err
	}

	path := m.storage.artifactPath(a)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", ref, ErrNotInstalled)
		}
		return fmt.Errorf("%w: stat %s: %v", ErrStorageError, path, err)
	}

	return verifyFile(path, a.Checksum)
}

// Remove deletes a locally installed artifact and its ledger entry.
func (m *manager) Remove(ctx context.Context, ref ArtifactRef) error {
	reg, err := m.storage.loadLedger()
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}

	names, ok := reg[ref.Group]
	if !ok {
		return fmt.Errorf("%s: %w", ref, ErrNotInstalled)
	}

	entry, ok := names[ref.Name]
	if !ok {
		return fmt.Errorf("%s: %w", ref, ErrNotInstalled)
	}

	if err := m.storage.removeArtifact(Artifact{Ref: ref, FileName: entry.File}); err != nil {
		return fmt.Errorf("removing artifact: %w", err)
	}

	delete(names, ref.Name)
	if len(names) == 0 {
		delete(reg, ref.Group)
	}

	if err := m.storage.saveLedger(reg); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}

	return nil
}

// Path returns the absolute path to an installed artifact's file.
func (m *manager) Path(ctx context.Context, ref ArtifactRef) (string, error) {
	installed, err := m.GetInstalled(ctx, ref)
	if err != nil {
		return "", err
	}

	return installed.Path, nil
}
