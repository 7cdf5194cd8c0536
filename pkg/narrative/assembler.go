package narrative

import (
	"fmt"
	"strings"

	"github.com/fableloom/fableloom/pkg/chat"
	"github.com/fableloom/fableloom/pkg/story"
)

// Mode selects which kind of generation the assembled context drives.
type Mode int

const (
	// ModeOpening starts a brand-new story.
	ModeOpening Mode = iota
	// ModeContinuation extends an existing story.
	ModeContinuation
	// ModeRefinement rewrites a single existing segment in place.
	ModeRefinement
)

// Assembler composes the exact ordered message list for one generation call
// using a fluent interface. Message order is fixed: system prompt, summary,
// retrieved hints, history window, user instruction.
type Assembler struct {
	mode           Mode
	instruction    string
	originalText   string
	genre          string
	summary        string
	hints          []string
	history        []chat.Message
	previousNSI    int
	worldRules     string
	stabilizeBelow int
	historyLimit   int
}

// NewAssembler creates an assembler with default settings.
func NewAssembler() *Assembler {
	return &Assembler{
		mode:           ModeContinuation,
		previousNSI:    story.MaxNSI,
		stabilizeBelow: DefaultStabilizeBelow,
		historyLimit:   2 * DefaultHistoryWindow, // turns are prompt+response pairs
	}
}

// WithMode sets the generation mode.
func (a *Assembler) WithMode(m Mode) *Assembler {
	a.mode = m
	return a
}

// WithInstruction sets the user's prompt or refinement instruction.
func (a *Assembler) WithInstruction(instruction string) *Assembler {
	a.instruction = instruction
	return a
}

// WithOriginalText sets the segment being rewritten (refinement only).
func (a *Assembler) WithOriginalText(text string) *Assembler {
	a.originalText = text
	return a
}

// WithGenre sets the free-form genre label; it is normalized to an
// enforcement profile at build time.
func (a *Assembler) WithGenre(genre string) *Assembler {
	a.genre = genre
	return a
}

// WithSummary sets the rolling summary (may be empty).
func (a *Assembler) WithSummary(summary string) *Assembler {
	a.summary = summary
	return a
}

// WithHints sets the retrieved hint list.
func (a *Assembler) WithHints(hints []string) *Assembler {
	a.hints = hints
	return a
}

// WithHistory sets the recent-turn window used verbatim as conversation
// context.
func (a *Assembler) WithHistory(history []chat.Message) *Assembler {
	a.history = history
	return a
}

// WithPreviousNSI sets the stability score of the previous turn.
func (a *Assembler) WithPreviousNSI(score int) *Assembler {
	a.previousNSI = score
	return a
}

// WithWorldRules sets the established rule set. Callers fall back to the
// summary when no dedicated rule set exists yet.
func (a *Assembler) WithWorldRules(rules string) *Assembler {
	a.worldRules = rules
	return a
}

// WithStabilizeBelow overrides the stabilization threshold.
func (a *Assembler) WithStabilizeBelow(threshold int) *Assembler {
	a.stabilizeBelow = threshold
	return a
}

// WithHistoryLimit overrides the history window size.
func (a *Assembler) WithHistoryLimit(limit int) *Assembler {
	a.historyLimit = limit
	return a
}

// Build constructs the final ordered message list for LLM consumption.
func (a *Assembler) Build() ([]chat.Message, error) {
	if a.instruction == "" {
		return nil, fmt.Errorf("instruction is required")
	}
	if a.mode == ModeRefinement && a.originalText == "" {
		return nil, fmt.Errorf("original text is required for refinement")
	}

	messages := make([]chat.Message, 0, len(a.history)+4)
	messages = append(messages, chat.System(a.systemPrompt()))

	if a.summary != "" {
		messages = append(messages, chat.System(fmt.Sprintf(summaryContextPrompt, a.summary)))
	}

	if len(a.hints) > 0 {
		messages = append(messages, chat.System(a.hintsPrompt()))
	}

	messages = append(messages, a.windowedHistory()...)
	messages = append(messages, chat.User(a.userPrompt()))

	return messages, nil
}

// systemPrompt builds the lead system message: storyteller role, genre
// profile constraints, world rules, stabilization directive and the
// metadata emission contract.
func (a *Assembler) systemPrompt() string {
	var sb strings.Builder

	genreSuffix := ""
	if a.genre != "" {
		genreSuffix = fmt.Sprintf(" in the %s genre", GenreLabel(a.genre))
	}

	switch a.mode {
	case ModeOpening:
		sb.WriteString(fmt.Sprintf(openingSystemPrompt, genreSuffix))
	case ModeRefinement:
		sb.WriteString(refineSystemPrompt)
	default:
		sb.WriteString(fmt.Sprintf(continuationSystemPrompt, genreSuffix))
	}

	profile := NormalizeGenre(a.genre)
	sb.WriteString("\n\nConsistency policy (" + profile.String() + "): " + profile.Constraints())

	rules := a.worldRules
	if rules == "" {
		// No dedicated rule set yet; the summary stands in as canon.
		rules = a.summary
	}
	if rules != "" {
		sb.WriteString("\n\n" + fmt.Sprintf(worldRulesPrompt, rules))
	}

	if a.previousNSI < a.stabilizeBelow {
		sb.WriteString("\n\n" + fmt.Sprintf(stabilizePrompt, a.previousNSI))
	}

	sb.WriteString("\n\n" + metadataPrompt)
	return sb.String()
}

func (a *Assembler) hintsPrompt() string {
	var sb strings.Builder
	for i, h := range a.hints {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, h))
	}
	return fmt.Sprintf(hintsContextPrompt, sb.String())
}

func (a *Assembler) windowedHistory() []chat.Message {
	if len(a.history) <= a.historyLimit {
		return a.history
	}
	return a.history[len(a.history)-a.historyLimit:]
}

func (a *Assembler) userPrompt() string {
	switch a.mode {
	case ModeOpening:
		return fmt.Sprintf(openingUserPrompt, a.instruction)
	case ModeRefinement:
		return fmt.Sprintf(refineUserPrompt, a.originalText, a.instruction)
	default:
		return fmt.Sprintf(continuationUserPrompt, a.instruction)
	}
}
