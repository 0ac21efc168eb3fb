package models

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// installFakeTool creates an executable with the given name in a temp dir
// and prepends that dir to PATH for the duration of the test.
func installFakeTool(t *testing.T, name string) {
	t.Helper()

	dir := t.TempDir()
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestLookupTools(t *testing.T) {
	t.Run("no tools required", func(t *testing.T) {
		if err := lookupTools(nil); err != nil {
			t.Errorf("lookupTools(nil) error = %v, want nil", err)
		}
	})

	t.Run("available tool", func(t *testing.T) {
		installFakeTool(t, "fake-bunzip2")

		if err := lookupTools([]string{"fake-bunzip2"}); err != nil {
			t.Errorf("lookupTools() error = %v, want nil", err)
		}
	})

	t.Run("missing tool", func(t *testing.T) {
		err := lookupTools([]string{"definitely-not-a-real-tool-1b2c3d"})
		if !errors.Is(err, ErrMissingDependency) {
			t.Fatalf("lookupTools() error = %v, want ErrMissingDependency", err)
		}
		if !strings.Contains(err.Error(), "definitely-not-a-real-tool-1b2c3d") {
			t.Errorf("error %q does not name the missing tool", err)
		}
	})

	t.Run("first missing tool aborts", func(t *testing.T) {
		installFakeTool(t, "fake-wget")

		err := lookupTools([]string{"missing-first-tool", "fake-wget"})
		if !errors.Is(err, ErrMissingDependency) {
			t.Fatalf("lookupTools() error = %v, want ErrMissingDependency", err)
		}
		if !strings.Contains(err.Error(), "missing-first-tool") {
			t.Errorf("error %q does not name the first missing tool", err)
		}
	})
}
