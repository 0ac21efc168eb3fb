package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// fetcher performs the single-stream transfer of a compressed artifact
// payload into a temporary file. There is deliberately no retry logic: the
// provisioning pipeline halts on the first error and leaves recovery to a
// re-run.
type fetcher struct {
	// httpClient is used for all HTTP requests.
	httpClient HTTPClient

	// logger receives diagnostic messages. May be nil.
	logger Logger
}

// newFetcher creates a new fetcher.
func newFetcher(client HTTPClient, logger Logger) *fetcher {
	return &fetcher{
		httpClient: client,
		logger:     logger,
	}
}

// fetch downloads the artifact payload to destPath. The payload is written
// as-is (still compressed); decompression is a separate pipeline stage.
// onProgress, if non-nil, is called as bytes arrive. Returns the number of
// payload bytes received.
func (f *fetcher) fetch(ctx context.Context, a Artifact, destPath string, onProgress func(received, total int64)) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: creating request: %v", ErrDownloadFailed, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDownloadFailed, a.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: %s: status %d", ErrDownloadFailed, a.URL, resp.StatusCode)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = a.SizeHint
	}

	var reader io.Reader = resp.Body
	var received int64
	if onProgress != nil {
		reader = &progressReader{
			reader: resp.Body,
			onProgress: func(delta int64) {
				received += delta
				onProgress(received, total)
			},
		}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("%w: create %s: %v", ErrStorageError, destPath, err)
	}

	written, err := io.Copy(out, reader)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		return written, fmt.Errorf("%w: %s: %v", ErrDownloadFailed, a.URL, err)
	}

	if f.logger != nil {
		f.logger.Debug("payload downloaded", "ref", a.Ref.String(), "bytes", written)
	}

	return written, nil
}

// progressReader wraps an io.Reader and reports progress as bytes are read.
// The callback receives the delta (bytes just read), not cumulative.
type progressReader struct {
	reader     io.Reader
	onProgress func(delta int64)
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 && pr.onProgress != nil {
		pr.onProgress(int64(n))
	}
	return
}

// ensureJob is a unit of work for the EnsureAll worker pool.
type ensureJob struct {
	// artifact is the catalog entry to provision.
	artifact Artifact
}

// ensureResult is the outcome of provisioning a single artifact.
type ensureResult struct {
	// ref identifies which artifact this result is for.
	ref ArtifactRef

	// err is nil on success (ErrAlreadyInstalled counts as success).
	err error
}

// runEnsurePool provisions the given artifacts with a bounded worker pool.
// Each artifact is still fetched as one sequential stream; only distinct
// artifacts proceed in parallel. The first fatal error cancels outstanding
// work and is returned.
func runEnsurePool(ctx context.Context, artifacts []Artifact, concurrency int, ensureFn func(context.Context, Artifact) error) error {
	if len(artifacts) == 0 {
		return nil
	}
	if concurrency > len(artifacts) {
		concurrency = len(artifacts)
	}

	jobs := make(chan ensureJob, len(artifacts))
	results := make(chan ensureResult, len(artifacts))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i := 0; i < concurrency; i++ {
		go func() {
			for {
				select {
				case job, ok := <-jobs:
					if !ok {
						return
					}
					err := ensureFn(ctx, job.artifact)
					select {
					case results <- ensureResult{ref: job.artifact.Ref, err: err}:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for _, a := range artifacts {
		jobs <- ensureJob{artifact: a}
	}
	close(jobs)

	var firstErr error
	for completed := 0; completed < len(artifacts); completed++ {
		select {
		case result := <-results:
			if result.err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", result.ref, result.err)
				cancel()
			}
		case <-ctx.Done():
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			return firstErr
		}
	}

	return firstErr
}
