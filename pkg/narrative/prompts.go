package narrative

// openingSystemPrompt opens a brand-new story.
const openingSystemPrompt = `You are a creative storyteller%s.
Write engaging, original story content.
CRITICAL RULES:
1. Establish characters, setting and tone clearly
2. Advance the plot with concrete events
3. Keep characters and settings consistent
4. Write vivid, engaging prose`

// continuationSystemPrompt continues an ongoing story.
const continuationSystemPrompt = `You are a creative storyteller writing an ongoing narrative%s.

CRITICAL RULES:
1. The provided context shows what ALREADY happened - NEVER repeat these events
2. Start your continuation AFTER where the context ends
3. Create NEW plot developments, scenes, and dialogue
4. Keep characters and world consistent but advance the story
5. Write engaging, vivid prose`

// refineSystemPrompt rewrites a single existing segment.
const refineSystemPrompt = `You are a story editor. Refine the given text based on instructions.
Keep the same general story beats but improve based on the user's request.
Maintain consistency with any provided context.`

// worldRulesPrompt carries the established canon as an immutable constraint.
const worldRulesPrompt = `ESTABLISHED WORLD RULES (immutable constraints - every one must hold in your output):
%s`

// stabilizePrompt is injected when the previous stability score fell below
// the configured threshold. It damps narrative drift by steering the model
// away from new branches for a turn.
const stabilizePrompt = `STABILITY WARNING: the previous segment scored %d/100 for narrative consistency.
Prioritize stabilization in this segment: avoid new plot branches, avoid introducing new characters or locations, and actively reinforce the established world rules and existing plot threads.`

// metadataPrompt instructs the model to emit the machine-readable block.
// The delimiters and field names must be reproduced exactly for the backend
// parser to pick them up.
const metadataPrompt = `After the story text, you MUST append a metadata block in EXACTLY this format (keep the delimiters and field names byte-for-byte, integers only for counts):

<WRLD>
UPDATED_RULES: <the complete updated set of world rules as free text, carrying forward every previously established rule plus any new ones from this segment>
VIOLATION_COUNTS:
  CHARACTER_INCONSISTENCY: <int>
  TIMELINE_CONTRADICTION: <int>
  WORLD_RULE_VIOLATION: <int>
  IGNORED_FACT: <int>
</WRLD>

Audit your own segment against the established context and report honest counts. The block is machine-parsed and never shown to the reader.`

// summaryContextPrompt presents the rolling summary as compressed canon.
const summaryContextPrompt = `Story so far (compressed summary of established canon):
%s`

// hintsContextPrompt presents retrieved hints as long-range memory.
const hintsContextPrompt = `=== STORY CONTEXT (what happened before - DO NOT repeat) ===
%s=== END CONTEXT ===`

// openingUserPrompt wraps the user's prompt for a first segment.
const openingUserPrompt = `Write the opening of the story based on this prompt: %s`

// continuationUserPrompt wraps the user's prompt for a continuation.
const continuationUserPrompt = `USER REQUEST: %s

Write the NEXT part of the story. This must be NEW content that continues from where the story left off.
Do NOT summarize or repeat previous events. Jump right into new action/scenes.`

// refineUserPrompt wraps a refinement instruction around the original text.
const refineUserPrompt = `Original text:
%s

Refinement instructions: %s

Write the refined version:`

// summarizeSystemPrompt drives the rolling summarizer. The length, shape and
// no-new-facts constraints are enforced through this instruction rather than
// by post-validation.
const summarizeSystemPrompt = `You maintain a rolling summary of a collaborative story.
Rewrite the summary so it covers both the existing summary and the recent events.
HARD CONSTRAINTS:
1. Do not invent any fact that is not present in the provided material
2. The final text must be under 300 words
3. Output a single cohesive paragraph, nothing else`

// summarizeUserPrompt supplies the current summary and the recent turns.
const summarizeUserPrompt = `Current summary:
%s

Recent events:
%s

Write the new summary:`
