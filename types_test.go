package models

import (
	"errors"
	"testing"
)

func TestParseArtifactRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ArtifactRef
		wantErr bool
	}{
		{
			name:  "valid ref",
			input: "dlib/shape-predictor-68-face-landmarks",
			want:  ArtifactRef{Group: "dlib", Name: "shape-predictor-68-face-landmarks"},
		},
		{
			name:  "short names",
			input: "a/b",
			want:  ArtifactRef{Group: "a", Name: "b"},
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "missing slash",
			input:   "dlib",
			wantErr: true,
		},
		{
			name:    "too many segments",
			input:   "a/b/c",
			wantErr: true,
		},
		{
			name:    "empty group",
			input:   "/name",
			wantErr: true,
		},
		{
			name:    "empty name",
			input:   "group/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArtifactRef(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRef) {
					t.Errorf("ParseArtifactRef(%q) error = %v, want ErrInvalidRef", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseArtifactRef(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseArtifactRef(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestArtifactRefString(t *testing.T) {
	ref := ArtifactRef{Group: "dlib", Name: "shape-predictor-68-face-landmarks"}
	want := "dlib/shape-predictor-68-face-landmarks"
	if got := ref.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseArtifactRefRoundTrip(t *testing.T) {
	original := ArtifactRef{Group: "openface", Name: "nn4-small2"}

	parsed, err := ParseArtifactRef(original.String())
	if err != nil {
		t.Fatalf("ParseArtifactRef() error = %v", err)
	}
	if parsed != original {
		t.Errorf("round trip = %+v, want %+v", parsed, original)
	}
}
