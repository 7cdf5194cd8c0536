package narrative

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fableloom/fableloom/pkg/chat"
)

// stubGenerator answers generation calls from a script and records every
// message list it was given.
type stubGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     [][]chat.Message
}

func (s *stubGenerator) Chat(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, messages)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "stub response", nil
	}
	out := s.responses[0]
	s.responses = s.responses[1:]
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func newTestEngine(gen Generator) *Engine {
	return NewEngine(gen, DefaultParams(), testLogger())
}

const scriptedTurn = `The archive door groaned open.

<WRLD>
UPDATED_RULES: The archive is forbidden after dusk.
VIOLATION_COUNTS:
  CHARACTER_INCONSISTENCY: 0
  TIMELINE_CONTRADICTION: 0
  WORLD_RULE_VIOLATION: 2
  IGNORED_FACT: 1
</WRLD>`

func TestEngine_Generate(t *testing.T) {
	gen := &stubGenerator{responses: []string{scriptedTurn, "archivist breaks the dusk rule"}}
	e := newTestEngine(gen)

	res, err := e.Generate(context.Background(), uuid.New(), Request{
		Prompt:      "the archivist sneaks in at night",
		Genre:       "fantasy",
		PreviousNSI: 100,
		WorldRules:  "Old rules.",
	})
	require.NoError(t, err)

	assert.Equal(t, "The archive door groaned open.", res.Text)
	assert.NotContains(t, res.Text, MetaBlockStart)
	assert.Equal(t, 2, res.Report.WorldRuleViolation)
	assert.Equal(t, 1, res.Report.IgnoredFact)
	assert.Equal(t, 65, res.Score) // 100 - 30 - 5
	assert.Equal(t, "The archive is forbidden after dusk.", res.UpdatedRules)
	assert.Equal(t, "archivist breaks the dusk rule", res.Hint)

	// One generation call plus one hint extraction call.
	require.Len(t, gen.calls, 2)
}

func TestEngine_Generate_OpeningVsContinuation(t *testing.T) {
	gen := &stubGenerator{}
	e := newTestEngine(gen)
	ctx := context.Background()

	_, err := e.Generate(ctx, uuid.New(), Request{Prompt: "begin"})
	require.NoError(t, err)
	opening := gen.calls[0][0].Content
	assert.NotContains(t, opening, "ALREADY happened")

	gen.calls = nil
	history := []chat.Message{chat.User("p"), chat.Assistant("r")}
	_, err = e.Generate(ctx, uuid.New(), Request{Prompt: "go on", History: history})
	require.NoError(t, err)
	continuation := gen.calls[0][0].Content
	assert.Contains(t, continuation, "ALREADY happened")
}

func TestEngine_Generate_TransportFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("upstream timeout")}
	e := newTestEngine(gen)

	res, err := e.Generate(context.Background(), uuid.New(), Request{Prompt: "anything"})
	assert.Error(t, err)
	assert.Nil(t, res, "no fabricated result on transport failure")
}

func TestEngine_Generate_EmptyDeltaKeepsRules(t *testing.T) {
	// Response with no metadata block at all: optimistic default report,
	// previous rules retained.
	gen := &stubGenerator{responses: []string{"Plain segment.", "plain segment hint"}}
	e := newTestEngine(gen)

	res, err := e.Generate(context.Background(), uuid.New(), Request{
		Prompt:     "continue",
		WorldRules: "Canon stands.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Plain segment.", res.Text)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, "Canon stands.", res.UpdatedRules, "parse miss never erases canon")
}

func TestEngine_Generate_HintFailureIsNotFatal(t *testing.T) {
	// First call (generation) succeeds, second call (hint extraction) fails.
	first := true
	gen := generatorFunc(func(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error) {
		if first {
			first = false
			return "Segment text.", nil
		}
		return "", errors.New("hint model down")
	})

	e := newTestEngine(gen)
	res, err := e.Generate(context.Background(), uuid.New(), Request{Prompt: "continue"})
	require.NoError(t, err)
	assert.Empty(t, res.Hint, "hint extraction fails open to empty")
	assert.Equal(t, "Segment text.", res.Text)
}

type generatorFunc func(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error)

func (f generatorFunc) Chat(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error) {
	return f(ctx, messages, opts)
}

func TestEngine_Refine(t *testing.T) {
	gen := &stubGenerator{responses: []string{scriptedTurn, "refined archive hint"}}
	e := newTestEngine(gen)

	res, err := e.Refine(context.Background(), uuid.New(),
		"The old door opened.", "make it more ominous", Request{
			Genre:       "horror",
			PreviousNSI: 72,
		})
	require.NoError(t, err)
	assert.Equal(t, "The archive door groaned open.", res.Text)
	assert.Equal(t, "refined archive hint", res.Hint)

	// Refinement context carries the original text and the stabilization
	// directive for the low previous score.
	system := gen.calls[0][0].Content
	assert.Contains(t, system, "STABILITY WARNING")
	last := gen.calls[0][len(gen.calls[0])-1].Content
	assert.Contains(t, last, "The old door opened.")
	assert.Contains(t, last, "make it more ominous")
}

func TestEngine_Summarize(t *testing.T) {
	gen := &stubGenerator{responses: []string{"  A tight new summary of events.  "}}
	e := newTestEngine(gen)

	turns := []chat.Message{
		chat.User("storm the gate"),
		chat.Assistant("The gate fell at dawn."),
	}
	got, err := e.Summarize(context.Background(), uuid.New(), turns, "Old summary.")
	require.NoError(t, err)
	assert.Equal(t, "A tight new summary of events.", got)

	require.Len(t, gen.calls, 1)
	assert.Contains(t, gen.calls[0][1].Content, "Old summary.")
	assert.Contains(t, gen.calls[0][1].Content, "The gate fell at dawn.")
	assert.Contains(t, gen.calls[0][0].Content, "under 300 words")
}

func TestEngine_Summarize_Failure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("boom")}
	e := newTestEngine(gen)

	_, err := e.Summarize(context.Background(), uuid.New(), nil, "")
	assert.Error(t, err)
}

func TestEngine_ShouldSummarize(t *testing.T) {
	e := newTestEngine(&stubGenerator{})

	assert.False(t, e.ShouldSummarize(0))
	assert.False(t, e.ShouldSummarize(4))
	assert.True(t, e.ShouldSummarize(5))
	assert.False(t, e.ShouldSummarize(6))
	assert.True(t, e.ShouldSummarize(10))
	assert.True(t, e.ShouldSummarize(15))
}

func TestEngine_PerStorySerialization(t *testing.T) {
	var mu sync.Mutex
	inFlight := make(map[uuid.UUID]int)

	storyID := uuid.New()
	gen := generatorFunc(func(ctx context.Context, messages []chat.Message, opts chat.Options) (string, error) {
		mu.Lock()
		inFlight[storyID]++
		n := inFlight[storyID]
		mu.Unlock()
		if n > 1 {
			return "", errors.New("concurrent turn on one story")
		}
		defer func() {
			mu.Lock()
			inFlight[storyID]--
			mu.Unlock()
		}()
		return "ok", nil
	})

	e := newTestEngine(gen)
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Generate(context.Background(), storyID, Request{Prompt: "turn"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestEngine_HintExtraction_TruncatesLongOutput(t *testing.T) {
	long := strings.Repeat("word ", 25)
	gen := &stubGenerator{responses: []string{long}}
	e := newTestEngine(gen)

	hint := e.ExtractHint(context.Background(), "some story text")
	assert.Len(t, strings.Fields(hint), 10)
}

func TestEngine_HintExtraction_UsesTailOfLongSegments(t *testing.T) {
	gen := &stubGenerator{responses: []string{"tail hint"}}
	e := newTestEngine(gen)

	segment := strings.Repeat("x", 5000) + " ENDING MARKER"
	_ = e.ExtractHint(context.Background(), segment)

	require.Len(t, gen.calls, 1)
	user := gen.calls[0][1].Content
	assert.Contains(t, user, "ENDING MARKER")
	assert.Less(t, len(user), 2500, "only the segment tail is sent")
}

func TestEngine_HintExtraction_TailKeepsRuneBoundaries(t *testing.T) {
	gen := &stubGenerator{responses: []string{"tail hint"}}
	e := newTestEngine(gen)

	// One leading ASCII byte shifts every 3-byte rune off the 2000-byte
	// cut point, so a naive byte slice would start mid-rune.
	segment := "x" + strings.Repeat("語", 2000)
	_ = e.ExtractHint(context.Background(), segment)

	require.Len(t, gen.calls, 1)
	user := gen.calls[0][1].Content
	assert.True(t, utf8.ValidString(user))
}
