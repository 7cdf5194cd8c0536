package story

// ViolationCategory identifies one kind of narrative-consistency breach
// reported by the model. The set is closed; model output naming any other
// category is ignored.
type ViolationCategory int

const (
	CharacterInconsistency ViolationCategory = iota
	TimelineContradiction
	WorldRuleViolation
	IgnoredFact
)

// Categories lists all known violation categories in wire order.
var Categories = []ViolationCategory{
	CharacterInconsistency,
	TimelineContradiction,
	WorldRuleViolation,
	IgnoredFact,
}

// Wire returns the category name as it appears in the metadata block.
func (c ViolationCategory) Wire() string {
	switch c {
	case CharacterInconsistency:
		return "CHARACTER_INCONSISTENCY"
	case TimelineContradiction:
		return "TIMELINE_CONTRADICTION"
	case WorldRuleViolation:
		return "WORLD_RULE_VIOLATION"
	case IgnoredFact:
		return "IGNORED_FACT"
	default:
		return "UNKNOWN"
	}
}

// ViolationReport maps each category to a non-negative count for one
// generation call. The zero value is a valid all-clear report.
type ViolationReport struct {
	CharacterInconsistency int `json:"character_inconsistency"`
	TimelineContradiction  int `json:"timeline_contradiction"`
	WorldRuleViolation     int `json:"world_rule_violation"`
	IgnoredFact            int `json:"ignored_fact"`
}

// Count returns the report's count for a category.
func (r ViolationReport) Count(c ViolationCategory) int {
	switch c {
	case CharacterInconsistency:
		return r.CharacterInconsistency
	case TimelineContradiction:
		return r.TimelineContradiction
	case WorldRuleViolation:
		return r.WorldRuleViolation
	case IgnoredFact:
		return r.IgnoredFact
	default:
		return 0
	}
}

// SetCount sets the report's count for a category. Negative values are
// clamped to zero.
func (r *ViolationReport) SetCount(c ViolationCategory, n int) {
	if n < 0 {
		n = 0
	}
	switch c {
	case CharacterInconsistency:
		r.CharacterInconsistency = n
	case TimelineContradiction:
		r.TimelineContradiction = n
	case WorldRuleViolation:
		r.WorldRuleViolation = n
	case IgnoredFact:
		r.IgnoredFact = n
	}
}

// NSI penalty weights per violation. The formula is fixed: the model reports
// raw counts and the backend alone derives the score.
const (
	MaxNSI = 100

	characterWeight = 10
	timelineWeight  = 10
	worldRuleWeight = 15
	ignoredWeight   = 5
)

// NSI computes the Narrative Stability Index for a report, floored at 0.
func NSI(r ViolationReport) int {
	score := MaxNSI -
		characterWeight*r.CharacterInconsistency -
		timelineWeight*r.TimelineContradiction -
		worldRuleWeight*r.WorldRuleViolation -
		ignoredWeight*r.IgnoredFact
	if score < 0 {
		score = 0
	}
	return score
}
