package models

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Checksum is an algorithm-tagged hex digest, e.g.
// "md5:73fde5e05226548677a050913eed4e04".
type Checksum struct {
	// Algo is "md5" or "sha256".
	Algo string

	// Hex is the lowercase hex-encoded digest.
	Hex string
}

// String returns the canonical "algo:hex" form.
func (c Checksum) String() string {
	return c.Algo + ":" + c.Hex
}

// IsZero reports whether the checksum is unset.
func (c Checksum) IsZero() bool {
	return c.Algo == "" && c.Hex == ""
}

// ParseChecksum parses "algo:hex" into a Checksum. Bare digests are accepted
// for convenience and classified by length (32 hex chars → md5, 64 → sha256).
func ParseChecksum(s string) (Checksum, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Checksum{}, fmt.Errorf("%w: empty checksum", ErrCatalogError)
	}

	algo, digest := "", s
	if idx := strings.Index(s, ":"); idx != -1 {
		algo, digest = s[:idx], s[idx+1:]
	}

	if _, err := hex.DecodeString(digest); err != nil {
		return Checksum{}, fmt.Errorf("%w: checksum %q is not hex", ErrCatalogError, s)
	}

	if algo == "" {
		switch len(digest) {
		case md5.Size * 2:
			algo = "md5"
		case sha256.Size * 2:
			algo = "sha256"
		default:
			return Checksum{}, fmt.Errorf("%w: cannot infer algorithm for %d-char digest", ErrCatalogError, len(digest))
		}
	}

	if _, err := newDigest(algo); err != nil {
		return Checksum{}, err
	}

	return Checksum{Algo: algo, Hex: digest}, nil
}

// MarshalJSON encodes the checksum in its canonical "algo:hex" form.
func (c Checksum) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes either "algo:hex" or a bare hex digest.
func (c *Checksum) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseChecksum(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// newDigest returns a fresh hash.Hash for the named algorithm.
func newDigest(algo string) (hash.Hash, error) {
	switch algo {
	case "md5":
		return md5.New(), nil
	case "sha256":
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported digest algorithm %q", ErrCatalogError, algo)
	}
}

// digestFile computes the hex digest of the file at path using the named
// algorithm. The file is streamed, never loaded into memory at once.
func digestFile(path, algo string) (string, error) {
	h, err := newDigest(algo)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrStorageError, path, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrStorageError, path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// verifyFile compares the digest of the file at path against expected.
// Returns nil on match, a *ChecksumMismatchError on mismatch.
func verifyFile(path string, expected Checksum) error {
	actual, err := digestFile(path, expected.Algo)
	if err != nil {
		return err
	}

	if actual != expected.Hex {
		return &ChecksumMismatchError{
			Path:     path,
			Algo:     expected.Algo,
			Expected: expected.Hex,
			Actual:   actual,
		}
	}

	return nil
}
