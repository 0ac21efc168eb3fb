package main

import (
	"errors"
	"fmt"
	"testing"

	models "github.com/facegate/models"
)

func TestExitCodeFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"artifact not found", models.ErrArtifactNotFound, ExitNotFound},
		{"not installed", models.ErrNotInstalled, ExitNotInstalled},
		{"missing dependency", models.ErrMissingDependency, ExitMissingDependency},
		{"download failed", models.ErrDownloadFailed, ExitDownloadFailed},
		{"decompression failed", models.ErrDecompressionFailed, ExitDecompressionFailed},
		{"checksum mismatch", models.ErrChecksumMismatch, ExitChecksumMismatch},
		{"storage error", models.ErrStorageError, ExitStorageError},
		{"invalid ref", models.ErrInvalidRef, ExitInvalidArgs},
		{"invalid catalog", models.ErrCatalogError, ExitInvalidArgs},
		{"unknown error", errors.New("something else"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFromError(tt.err); got != tt.want {
				t.Errorf("exitCodeFromError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}

	t.Run("wrapped errors map through", func(t *testing.T) {
		err := fmt.Errorf("ensuring dlib/shape-predictor-68-face-landmarks: %w", models.ErrDownloadFailed)
		if got := exitCodeFromError(err); got != ExitDownloadFailed {
			t.Errorf("exitCodeFromError() = %d, want %d", got, ExitDownloadFailed)
		}
	})

	t.Run("mismatch detail type maps to checksum code", func(t *testing.T) {
		err := &models.ChecksumMismatchError{
			Path:     "/data/model.dat",
			Algo:     "md5",
			Expected: "73fde5e05226548677a050913eed4e04",
			Actual:   "d41d8cd98f00b204e9800998ecf8427e",
		}
		if got := exitCodeFromError(err); got != ExitChecksumMismatch {
			t.Errorf("exitCodeFromError() = %d, want %d", got, ExitChecksumMismatch)
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("valid level", func(t *testing.T) {
		if newLogger("debug") == nil {
			t.Error("newLogger(debug) = nil")
		}
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger := newLogger("not-a-level")
		if logger == nil {
			t.Fatal("newLogger() = nil")
		}
		// Must not panic on use.
		logger.Info("startup", "component", "test")
		logger.Warn("odd arity", "dangling")
	})
}
