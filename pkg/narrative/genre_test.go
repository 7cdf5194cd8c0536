package narrative

import (
	"testing"
)

func TestNormalizeGenre(t *testing.T) {
	tests := []struct {
		genre    string
		expected Profile
	}{
		{"sci-fi", ProfileStrictPhysics},
		{"Science Fiction", ProfileStrictPhysics},
		{"FANTASY", ProfileRuleBoundMagic},
		{"  horror  ", ProfileContinuityHorror},
		{"mystery", ProfileStrictRealism},
		{"noir", ProfileStrictRealism},
		{"dystopian", ProfileSpeculative},
		{"cyberpunk", ProfileSpeculative},
		{"", ProfileGeneral},
		{"cooking show", ProfileGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.genre, func(t *testing.T) {
			if got := NormalizeGenre(tt.genre); got != tt.expected {
				t.Errorf("NormalizeGenre(%q) = %v; want %v", tt.genre, got, tt.expected)
			}
		})
	}
}

func TestProfileConstraintsNonEmpty(t *testing.T) {
	profiles := []Profile{
		ProfileGeneral,
		ProfileStrictPhysics,
		ProfileSpeculative,
		ProfileRuleBoundMagic,
		ProfileContinuityHorror,
		ProfileStrictRealism,
	}
	for _, p := range profiles {
		if p.Constraints() == "" {
			t.Errorf("profile %v has empty constraints", p)
		}
		if p.String() == "" {
			t.Errorf("profile %v has empty name", p)
		}
	}
}

func TestGenreLabel(t *testing.T) {
	if got := GenreLabel("science fiction"); got != "Science Fiction" {
		t.Errorf("GenreLabel = %q; want %q", got, "Science Fiction")
	}
}
