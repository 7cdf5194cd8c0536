package narrative

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Profile is a genre-adaptive enforcement policy. Free-form genre labels are
// normalized to this closed set; the profile decides which consistency
// constraints are embedded in the system prompt.
type Profile int

const (
	ProfileGeneral Profile = iota
	ProfileStrictPhysics
	ProfileSpeculative
	ProfileRuleBoundMagic
	ProfileContinuityHorror
	ProfileStrictRealism
)

func (p Profile) String() string {
	switch p {
	case ProfileStrictPhysics:
		return "strict-physics"
	case ProfileSpeculative:
		return "speculative"
	case ProfileRuleBoundMagic:
		return "rule-bound-magic"
	case ProfileContinuityHorror:
		return "continuity-focused-horror"
	case ProfileStrictRealism:
		return "strict-realism"
	default:
		return "general"
	}
}

// Constraints returns the profile-specific consistency directives embedded in
// the system prompt.
func (p Profile) Constraints() string {
	switch p {
	case ProfileStrictPhysics:
		return "Technology and physics must stay internally consistent. Established scientific rules of this universe are hard constraints; do not introduce capabilities that contradict them."
	case ProfileSpeculative:
		return "The speculative premise is fixed once established. Extrapolate from it consistently; do not quietly swap the premise or its consequences."
	case ProfileRuleBoundMagic:
		return "The magic system has fixed rules and costs. Spells, artifacts and abilities must obey every previously established limitation."
	case ProfileContinuityHorror:
		return "Dread depends on continuity. Track who knows what, who has seen what, and what has already happened; never resurrect or relocate threats without cause."
	case ProfileStrictRealism:
		return "Events must stay plausible in the real world. No supernatural elements, coincidence abuse, or abilities beyond ordinary human limits."
	default:
		return "Keep characters, settings and established facts consistent across the whole story."
	}
}

var genreProfiles = map[string]Profile{
	"sci-fi":            ProfileStrictPhysics,
	"scifi":             ProfileStrictPhysics,
	"science fiction":   ProfileStrictPhysics,
	"hard sci-fi":       ProfileStrictPhysics,
	"space opera":       ProfileStrictPhysics,
	"speculative":       ProfileSpeculative,
	"dystopian":         ProfileSpeculative,
	"cyberpunk":         ProfileSpeculative,
	"alternate history": ProfileSpeculative,
	"fantasy":           ProfileRuleBoundMagic,
	"high fantasy":      ProfileRuleBoundMagic,
	"dark fantasy":      ProfileRuleBoundMagic,
	"urban fantasy":     ProfileRuleBoundMagic,
	"fairy tale":        ProfileRuleBoundMagic,
	"horror":            ProfileContinuityHorror,
	"gothic":            ProfileContinuityHorror,
	"thriller":          ProfileContinuityHorror,
	"mystery":           ProfileStrictRealism,
	"crime":             ProfileStrictRealism,
	"noir":              ProfileStrictRealism,
	"drama":             ProfileStrictRealism,
	"historical":        ProfileStrictRealism,
	"romance":           ProfileStrictRealism,
}

// NormalizeGenre maps a free-form genre label to its enforcement profile.
// Unknown or empty labels fall back to the general profile.
func NormalizeGenre(genre string) Profile {
	key := strings.ToLower(strings.TrimSpace(genre))
	if p, ok := genreProfiles[key]; ok {
		return p
	}
	return ProfileGeneral
}

var genreTitle = cases.Title(language.English)

// GenreLabel formats the user-supplied genre for display inside prompts.
func GenreLabel(genre string) string {
	return genreTitle.String(strings.TrimSpace(genre))
}
