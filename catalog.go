package models

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// DlibShapePredictor68 references the dlib 68-point face-landmark shape
// predictor that the face alignment step depends on.
var DlibShapePredictor68 = ArtifactRef{
	Group: "dlib",
	Name:  "shape-predictor-68-face-landmarks",
}

// builtinCatalog returns the artifacts this module knows how to provision
// out of the box. The dlib digest is the published MD5 of the decompressed
// shape predictor.
func builtinCatalog() []Artifact {
	return []Artifact{
		{
			Ref:         DlibShapePredictor68,
			FileName:    "shape_predictor_68_face_landmarks.dat",
			URL:         "http://dlib.net/files/shape_predictor_68_face_landmarks.dat.bz2",
			Compression: CompressionBzip2,
			Checksum:    Checksum{Algo: "md5", Hex: "73fde5e05226548677a050913eed4e04"},
			SizeHint:    64040097,
		},
	}
}

// catalog maps group → name → Artifact.
type catalog map[string]map[string]Artifact

// put inserts or replaces an entry.
func (c catalog) put(a Artifact) {
	if c[a.Ref.Group] == nil {
		c[a.Ref.Group] = make(map[string]Artifact)
	}
	c[a.Ref.Group][a.Ref.Name] = a
}

// lookup resolves a ref. Returns ErrArtifactNotFound if absent.
func (c catalog) lookup(ref ArtifactRef) (Artifact, error) {
	group, ok := c[ref.Group]
	if !ok {
		return Artifact{}, fmt.Errorf("%s: %w", ref, ErrArtifactNotFound)
	}

	a, ok := group[ref.Name]
	if !ok {
		return Artifact{}, fmt.Errorf("%s: %w", ref, ErrArtifactNotFound)
	}

	return a, nil
}

// all returns every entry sorted by ref for stable listings.
func (c catalog) all() []Artifact {
	var artifacts []Artifact
	for _, group := range c {
		for _, a := range group {
			artifacts = append(artifacts, a)
		}
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Ref.String() < artifacts[j].Ref.String()
	})

	return artifacts
}

// catalogFile is the on-disk form of a user catalog overlay.
type catalogFile struct {
	// Artifacts is the list of additional or overriding entries.
	Artifacts []catalogFileEntry `json:"artifacts"`
}

// catalogFileEntry is a single artifact declaration in catalog.json.
// The ref is a "group/name" string rather than a structured object.
type catalogFileEntry struct {
	Ref         string   `json:"ref"`
	FileName    string   `json:"file"`
	URL         string   `json:"url"`
	Compression string   `json:"compression,omitempty"`
	Checksum    Checksum `json:"checksum"`
	Tools       []string `json:"tools,omitempty"`
	SizeHint    int64    `json:"size_hint,omitempty"`
}

// loadCatalog builds the effective catalog: built-in entries overlaid with
// the user catalog.json from the data directory, if present. User entries
// with the same ref replace built-in ones.
func loadCatalog(s storageInterface) (catalog, error) {
	c := make(catalog)
	for _, a := range builtinCatalog() {
		c.put(a)
	}

	data, err := os.ReadFile(s.catalogPath())
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageError, err)
	}

	var cf catalogFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogError, err)
	}

	for _, entry := range cf.Artifacts {
		a, err := entry.toArtifact()
		if err != nil {
			return nil, err
		}
		c.put(a)
	}

	return c, nil
}

// toArtifact validates a catalog file entry and converts it to an Artifact.
func (e catalogFileEntry) toArtifact() (Artifact, error) {
	ref, err := ParseArtifactRef(e.Ref)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: entry %q: invalid ref", ErrCatalogError, e.Ref)
	}

	if e.FileName == "" {
		return Artifact{}, fmt.Errorf("%w: entry %q: missing file name", ErrCatalogError, e.Ref)
	}
	if e.URL == "" {
		return Artifact{}, fmt.Errorf("%w: entry %q: missing url", ErrCatalogError, e.Ref)
	}
	if e.Checksum.IsZero() {
		return Artifact{}, fmt.Errorf("%w: entry %q: missing checksum", ErrCatalogError, e.Ref)
	}

	compression := Compression(e.Compression)
	switch compression {
	case "":
		compression = CompressionNone
	case CompressionNone, CompressionBzip2, CompressionGzip:
	default:
		return Artifact{}, fmt.Errorf("%w: entry %q: unsupported compression %q", ErrCatalogError, e.Ref, e.Compression)
	}

	return Artifact{
		Ref:           ref,
		FileName:      e.FileName,
		URL:           e.URL,
		Compression:   compression,
		Checksum:      e.Checksum,
		RequiredTools: e.Tools,
		SizeHint:      e.SizeHint,
	}, nil
}
