package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

// runCLI executes the command tree against a test env with captured output.
func runCLI(t *testing.T, env *testEnv, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewCommand(
		Config{AppName: "modelstest", DataDir: env.dataDir},
		WithHTTPClient(env.server.Client()),
	)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestEnsureCommand(t *testing.T) {
	t.Run("installs an artifact", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		stdout, _, err := runCLI(t, env, "", "ensure", "dlib/shape-predictor-68-face-landmarks")
		if err != nil {
			t.Fatalf("ensure error = %v", err)
		}
		if !strings.Contains(stdout, "Successfully installed dlib/shape-predictor-68-face-landmarks") {
			t.Errorf("stdout = %q, missing success message", stdout)
		}
	})

	t.Run("already installed exits zero", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		if _, _, err := runCLI(t, env, "", "ensure", "dlib/shape-predictor-68-face-landmarks", "--quiet"); err != nil {
			t.Fatalf("first ensure error = %v", err)
		}

		stdout, _, err := runCLI(t, env, "", "ensure", "dlib/shape-predictor-68-face-landmarks")
		if err != nil {
			t.Fatalf("second ensure error = %v, want nil", err)
		}
		if !strings.Contains(stdout, "already installed") {
			t.Errorf("stdout = %q, missing already-installed message", stdout)
		}
	})

	t.Run("requires a ref or --all", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		if _, _, err := runCLI(t, env, "", "ensure"); err == nil {
			t.Error("ensure with no args error = nil, want error")
		}
		if _, _, err := runCLI(t, env, "", "ensure", "dlib/shape-predictor-68-face-landmarks", "--all"); err == nil {
			t.Error("ensure with ref and --all error = nil, want error")
		}
	})

	t.Run("all installs the catalog", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		stdout, _, err := runCLI(t, env, "", "ensure", "--all")
		if err != nil {
			t.Fatalf("ensure --all error = %v", err)
		}
		if !strings.Contains(stdout, "All artifacts are installed and verified") {
			t.Errorf("stdout = %q, missing completion message", stdout)
		}
	})

	t.Run("invalid ref", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		if _, _, err := runCLI(t, env, "", "ensure", "no-slash-here"); !errors.Is(err, ErrInvalidRef) {
			t.Errorf("ensure error = %v, want ErrInvalidRef", err)
		}
	})

	t.Run("unknown artifact", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		if _, _, err := runCLI(t, env, "", "ensure", "nope/nothing"); !errors.Is(err, ErrArtifactNotFound) {
			t.Errorf("ensure error = %v, want ErrArtifactNotFound", err)
		}
	})
}

func TestVerifyCommand(t *testing.T) {
	t.Run("valid artifact", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)
		if _, _, err := runCLI(t, env, "", "ensure", "dlib/shape-predictor-68-face-landmarks", "--quiet"); err != nil {
			t.Fatalf("ensure error = %v", err)
		}

		stdout, _, err := runCLI(t, env, "", "verify", "dlib/shape-predictor-68-face-landmarks")
		if err != nil {
			t.Fatalf("verify error = %v", err)
		}
		if !strings.Contains(stdout, "OK") {
			t.Errorf("stdout = %q, missing OK", stdout)
		}
	})

	t.Run("corrupt artifact prints recovery instruction", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)
		if _, _, err := runCLI(t, env, "", "ensure", "dlib/shape-predictor-68-face-landmarks", "--quiet"); err != nil {
			t.Fatalf("ensure error = %v", err)
		}

		path, _, err := runCLI(t, env, "", "path", "dlib/shape-predictor-68-face-landmarks")
		if err != nil {
			t.Fatalf("path error = %v", err)
		}
		if err := os.WriteFile(strings.TrimSpace(path), []byte("corrupt"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		_, stderr, err := runCLI(t, env, "", "verify", "dlib/shape-predictor-68-face-landmarks")
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("verify error = %v, want ErrChecksumMismatch", err)
		}
		if !strings.Contains(stderr, "expected:") || !strings.Contains(stderr, "actual:") {
			t.Errorf("stderr = %q, missing digest report", stderr)
		}
		if !strings.Contains(stderr, "Delete it and re-run ensure") {
			t.Errorf("stderr = %q, missing recovery instruction", stderr)
		}
	})

	t.Run("not installed", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		_, _, err := runCLI(t, env, "", "verify", "dlib/shape-predictor-68-face-landmarks")
		if !errors.Is(err, ErrNotInstalled) {
			t.Errorf("verify error = %v, want ErrNotInstalled", err)
		}
	})

	t.Run("all with nothing installed", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		stdout, _, err := runCLI(t, env, "", "verify", "--all")
		if err != nil {
			t.Fatalf("verify --all error = %v", err)
		}
		if !strings.Contains(stdout, "No artifacts installed") {
			t.Errorf("stdout = %q", stdout)
		}
	})
}

func TestListCommand(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		stdout, _, err := runCLI(t, env, "", "list")
		if err != nil {
			t.Fatalf("list error = %v", err)
		}
		if !strings.Contains(stdout, "No artifacts installed") {
			t.Errorf("stdout = %q", stdout)
		}
	})

	t.Run("catalog", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		stdout, _, err := runCLI(t, env, "", "list", "--catalog")
		if err != nil {
			t.Fatalf("list --catalog error = %v", err)
		}
		if !strings.Contains(stdout, "dlib/shape-predictor-68-face-landmarks") {
			t.Errorf("stdout = %q, missing dlib entry", stdout)
		}
		if !strings.Contains(stdout, "shape_predictor_68_face_landmarks.dat") {
			t.Errorf("stdout = %q, missing file name", stdout)
		}
	})

	t.Run("installed as json", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)
		if _, _, err := runCLI(t, env, "", "ensure", "dlib/shape-predictor-68-face-landmarks", "--quiet"); err != nil {
			t.Fatalf("ensure error = %v", err)
		}

		stdout, _, err := runCLI(t, env, "", "list", "--json")
		if err != nil {
			t.Fatalf("list --json error = %v", err)
		}

		var installed []InstalledArtifact
		if err := json.Unmarshal([]byte(stdout), &installed); err != nil {
			t.Fatalf("output is not valid JSON: %v\n%s", err, stdout)
		}
		if len(installed) != 1 {
			t.Errorf("len(installed) = %d, want 1", len(installed))
		}
	})
}

func TestInfoCommand(t *testing.T) {
	t.Run("not installed", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		stdout, _, err := runCLI(t, env, "", "info", "dlib/shape-predictor-68-face-landmarks")
		if err != nil {
			t.Fatalf("info error = %v", err)
		}
		if !strings.Contains(stdout, "Installed:    no") {
			t.Errorf("stdout = %q, missing not-installed marker", stdout)
		}
		if !strings.Contains(stdout, "Compression:  bz2") {
			t.Errorf("stdout = %q, missing compression", stdout)
		}
	})

	t.Run("installed", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)
		if _, _, err := runCLI(t, env, "", "ensure", "dlib/shape-predictor-68-face-landmarks", "--quiet"); err != nil {
			t.Fatalf("ensure error = %v", err)
		}

		stdout, _, err := runCLI(t, env, "", "info", "dlib/shape-predictor-68-face-landmarks")
		if err != nil {
			t.Fatalf("info error = %v", err)
		}
		if !strings.Contains(stdout, "Path:") {
			t.Errorf("stdout = %q, missing install path", stdout)
		}
	})
}

func TestPathCommand(t *testing.T) {
	t.Run("installed", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)
		if _, _, err := runCLI(t, env, "", "ensure", "dlib/shape-predictor-68-face-landmarks", "--quiet"); err != nil {
			t.Fatalf("ensure error = %v", err)
		}

		stdout, _, err := runCLI(t, env, "", "path", "dlib/shape-predictor-68-face-landmarks")
		if err != nil {
			t.Fatalf("path error = %v", err)
		}

		path := strings.TrimSpace(stdout)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("printed path %q does not exist: %v", path, err)
		}
	})

	t.Run("not installed", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		if _, _, err := runCLI(t, env, "", "path", "dlib/shape-predictor-68-face-landmarks"); !errors.Is(err, ErrNotInstalled) {
			t.Errorf("path error = %v, want ErrNotInstalled", err)
		}
	})
}

func TestRemoveCommand(t *testing.T) {
	t.Run("with --yes", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)
		if _, _, err := runCLI(t, env, "", "ensure", "dlib/shape-predictor-68-face-landmarks", "--quiet"); err != nil {
			t.Fatalf("ensure error = %v", err)
		}

		stdout, _, err := runCLI(t, env, "", "remove", "dlib/shape-predictor-68-face-landmarks", "--yes")
		if err != nil {
			t.Fatalf("remove error = %v", err)
		}
		if !strings.Contains(stdout, "Removed dlib/shape-predictor-68-face-landmarks") {
			t.Errorf("stdout = %q", stdout)
		}
	})

	t.Run("confirmation accepted", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)
		if _, _, err := runCLI(t, env, "", "ensure", "dlib/shape-predictor-68-face-landmarks", "--quiet"); err != nil {
			t.Fatalf("ensure error = %v", err)
		}

		stdout, _, err := runCLI(t, env, "y\n", "remove", "dlib/shape-predictor-68-face-landmarks")
		if err != nil {
			t.Fatalf("remove error = %v", err)
		}
		if !strings.Contains(stdout, "Removed") {
			t.Errorf("stdout = %q", stdout)
		}
	})

	t.Run("confirmation declined", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)
		if _, _, err := runCLI(t, env, "", "ensure", "dlib/shape-predictor-68-face-landmarks", "--quiet"); err != nil {
			t.Fatalf("ensure error = %v", err)
		}

		stdout, _, err := runCLI(t, env, "n\n", "remove", "dlib/shape-predictor-68-face-landmarks")
		if err != nil {
			t.Fatalf("remove error = %v", err)
		}
		if !strings.Contains(stdout, "Aborted.") {
			t.Errorf("stdout = %q", stdout)
		}

		// Declining leaves the artifact installed.
		if _, _, err := runCLI(t, env, "", "path", "dlib/shape-predictor-68-face-landmarks"); err != nil {
			t.Errorf("path after declined remove error = %v", err)
		}
	})

	t.Run("not installed", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		_, _, err := runCLI(t, env, "", "remove", "dlib/shape-predictor-68-face-landmarks", "--yes")
		if !errors.Is(err, ErrNotInstalled) {
			t.Errorf("remove error = %v, want ErrNotInstalled", err)
		}
	})
}

func TestToolsCommand(t *testing.T) {
	t.Run("default catalog", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		stdout, _, err := runCLI(t, env, "", "tools")
		if err != nil {
			t.Fatalf("tools error = %v", err)
		}
		if !strings.Contains(stdout, "All required tools are available") {
			t.Errorf("stdout = %q", stdout)
		}
	})

	t.Run("missing tool", func(t *testing.T) {
		env := newTestEnv(t, bzip2Payload)

		_, _, err := runCLI(t, env, "", "tools", "no-such-tool-3a4b5c")
		if !errors.Is(err, ErrMissingDependency) {
			t.Errorf("tools error = %v, want ErrMissingDependency", err)
		}
	})
}

func TestConfirmPrompt(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false},
		{"", false},
		{"anything else\n", false},
	}

	for _, tt := range tests {
		if got := confirmPrompt(strings.NewReader(tt.input)); got != tt.want {
			t.Errorf("confirmPrompt(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestShortDigest(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"md5:73fde5e0", "md5:73fde5e0"},
		{"md5:73fde5e05226548677a050913eed4e04", "md5:73fde5e052265486..."},
		{"", ""},
	}

	for _, tt := range tests {
		if got := shortDigest(tt.input); got != tt.want {
			t.Errorf("shortDigest(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{64040097, "61.07 MB"},
		{1073741824, "1.00 GB"},
	}

	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "0s"},
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m 30s"},
		{2 * time.Minute, "2m"},
		{65 * time.Minute, "1h 5m"},
		{2 * time.Hour, "2h"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
