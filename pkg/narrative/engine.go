package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/fableloom/fableloom/pkg/chat"
	"github.com/fableloom/fableloom/pkg/story"
)

// Default tunables. Expressed as named values rather than inline literals so
// boundary behavior (4th vs 5th message, score 79 vs 80) is testable.
const (
	// DefaultSummaryInterval triggers summarization after every Nth message.
	DefaultSummaryInterval = 5
	// DefaultSummaryBatch is how many recent turns feed a summary rewrite.
	DefaultSummaryBatch = 10
	// DefaultHistoryWindow is the number of recent turns used verbatim as
	// conversation context.
	DefaultHistoryWindow = 10
	// DefaultStabilizeBelow is the NSI threshold under which the next turn
	// is steered toward stabilization.
	DefaultStabilizeBelow = 80

	openingTemperature      = 0.8
	openingMaxTokens        = 1200
	continuationTemperature = 0.85
	continuationMaxTokens   = 1400
	refineTemperature       = 0.7
	refineMaxTokens         = 1200
	summaryTemperature      = 0.3
	summaryMaxTokens        = 500
)

// Generator is the narrow contract the engine needs from a generation
// service: an ordered list of role-tagged messages plus knobs in, one text
// completion out.
type Generator interface {
	Chat(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error)
}

// Params are the engine's global thresholds.
type Params struct {
	SummaryInterval int
	SummaryBatch    int
	HistoryWindow   int
	StabilizeBelow  int
}

// DefaultParams returns the standard thresholds.
func DefaultParams() Params {
	return Params{
		SummaryInterval: DefaultSummaryInterval,
		SummaryBatch:    DefaultSummaryBatch,
		HistoryWindow:   DefaultHistoryWindow,
		StabilizeBelow:  DefaultStabilizeBelow,
	}
}

// Request carries the per-turn context the caller assembled from storage.
type Request struct {
	Prompt      string
	Genre       string
	History     []chat.Message // recent turns, flattened to user/assistant pairs
	Summary     string
	Hints       []string // full ordered hint history; the engine retrieves from it
	PreviousNSI int
	WorldRules  string
}

// Result is what one generation or refinement turn produces. Everything in
// it is derived deterministically from the raw model output; the engine
// never fabricates text or scores on failure.
type Result struct {
	Text         string
	Hint         string
	Report       story.ViolationReport
	Score        int
	UpdatedRules string
}

// Engine is the narrative memory and consistency engine. It assembles
// generation context, issues the calls, parses the structured output, merges
// world rules and derives stability scores. A single story's mutable state
// is serialized through a per-story lock; different stories proceed fully in
// parallel.
type Engine struct {
	llm    Generator
	params Params
	logger *slog.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewEngine creates an engine backed by the given generation service.
func NewEngine(llm Generator, params Params, logger *slog.Logger) *Engine {
	return &Engine{
		llm:    llm,
		params: params,
		logger: logger,
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

// Params returns the engine's thresholds.
func (e *Engine) Params() Params {
	return e.params
}

// storyLock returns the mutex serializing a single story's read-modify-write
// turns.
func (e *Engine) storyLock(id uuid.UUID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// Generate produces the next story segment. With no prior history it opens
// the story; otherwise it continues it. The returned result carries the
// visible text, a fresh hint, the parsed violation report with its derived
// score, and the merged world rules.
func (e *Engine) Generate(ctx context.Context, storyID uuid.UUID, req Request) (*Result, error) {
	lock := e.storyLock(storyID)
	lock.Lock()
	defer lock.Unlock()

	mode := ModeContinuation
	if len(req.History) == 0 {
		mode = ModeOpening
	}

	messages, err := NewAssembler().
		WithMode(mode).
		WithInstruction(req.Prompt).
		WithGenre(req.Genre).
		WithSummary(req.Summary).
		WithHints(RetrieveHints(req.Hints, req.Summary)).
		WithHistory(req.History).
		WithPreviousNSI(req.PreviousNSI).
		WithWorldRules(req.WorldRules).
		WithStabilizeBelow(e.params.StabilizeBelow).
		WithHistoryLimit(2 * e.params.HistoryWindow).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble context: %w", err)
	}

	opts := chat.Options{Temperature: continuationTemperature, MaxTokens: continuationMaxTokens}
	if mode == ModeOpening {
		opts = chat.Options{Temperature: openingTemperature, MaxTokens: openingMaxTokens}
	}

	return e.completeTurn(ctx, messages, opts, req.WorldRules)
}

// Refine rewrites a single existing segment per the instruction, without
// touching any other segment. Context fields in req should describe only the
// story state before the refined segment.
func (e *Engine) Refine(ctx context.Context, storyID uuid.UUID, original, instruction string, req Request) (*Result, error) {
	lock := e.storyLock(storyID)
	lock.Lock()
	defer lock.Unlock()

	messages, err := NewAssembler().
		WithMode(ModeRefinement).
		WithInstruction(instruction).
		WithOriginalText(original).
		WithGenre(req.Genre).
		WithSummary(req.Summary).
		WithHints(RetrieveHints(req.Hints, req.Summary)).
		WithHistory(req.History).
		WithPreviousNSI(req.PreviousNSI).
		WithWorldRules(req.WorldRules).
		WithStabilizeBelow(e.params.StabilizeBelow).
		WithHistoryLimit(2 * e.params.HistoryWindow).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble context: %w", err)
	}

	opts := chat.Options{Temperature: refineTemperature, MaxTokens: refineMaxTokens}
	return e.completeTurn(ctx, messages, opts, req.WorldRules)
}

// completeTurn issues the generation call and derives the full result from
// the raw output. Transport failure surfaces as an error with no partial
// result; a missing or malformed metadata block degrades to the optimistic
// default instead.
func (e *Engine) completeTurn(ctx context.Context, messages []chat.Message, opts chat.Options, currentRules string) (*Result, error) {
	raw, err := e.llm.Chat(ctx, messages, opts)
	if err != nil {
		return nil, fmt.Errorf("generation call failed: %w", err)
	}

	visible, meta := ParseMetadata(raw)
	result := &Result{
		Text:         strings.TrimSpace(visible),
		Report:       meta.Report,
		Score:        story.NSI(meta.Report),
		UpdatedRules: MergeRules(currentRules, meta.UpdatedRules),
	}

	result.Hint = story.ClampHint(e.ExtractHint(ctx, result.Text))
	return result, nil
}

// Summarize compresses the recent turns and the current summary into a new
// summary that supersedes the old one. Callers invoke it only on the
// periodic trigger (see ShouldSummarize).
func (e *Engine) Summarize(ctx context.Context, storyID uuid.UUID, turns []chat.Message, currentSummary string) (string, error) {
	lock := e.storyLock(storyID)
	lock.Lock()
	defer lock.Unlock()

	if currentSummary == "" {
		currentSummary = "(none yet)"
	}

	var recent strings.Builder
	for _, m := range turns {
		recent.WriteString(m.Role + ": " + m.Content + "\n")
	}

	messages := []chat.Message{
		chat.System(summarizeSystemPrompt),
		chat.User(fmt.Sprintf(summarizeUserPrompt, currentSummary, recent.String())),
	}

	out, err := e.llm.Chat(ctx, messages, chat.Options{
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarization call failed: %w", err)
	}

	return strings.TrimSpace(out), nil
}

// ShouldSummarize reports whether the running message count hits the
// periodic summarization trigger.
func (e *Engine) ShouldSummarize(messageCount int) bool {
	return messageCount > 0 && messageCount%e.params.SummaryInterval == 0
}
