// Package simplifier rewrites extracted article HTML at a target CEFR
// proficiency level via a generative model, preserving embedded image
// markup verbatim.
package simplifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonesrussell/reader/internal/domain"
	"github.com/jonesrussell/reader/internal/errors"
	"github.com/jonesrussell/reader/internal/logger"
)

// levelRegisters fixes the rewriting register per level: sentence-length
// ceiling and vocabulary guidance, increasing in sophistication.
var levelRegisters = map[domain.Level]string{
	domain.LevelA2: "Use very short sentences of at most 8 words. Use only the most common everyday vocabulary. " +
		"Avoid idioms, phrasal verbs and subordinate clauses entirely.",
	domain.LevelB1: "Use short sentences of at most 12 words. Prefer common vocabulary and explain any " +
		"necessary technical term in plain words. Avoid idioms and complex clause structures.",
	domain.LevelB2: "Use sentences of at most 18 words. A broad everyday vocabulary is fine; keep specialist " +
		"terminology to a minimum and prefer concrete phrasing over abstraction.",
	domain.LevelC1: "Use sentences of at most 25 words. Natural, sophisticated vocabulary is fine, but favour " +
		"clarity over ornament and keep the argumentative structure easy to follow.",
}

// Simplifier produces leveled rewrites of extracted article content.
type Simplifier struct {
	client    CompletionClient
	maxTokens int64
	log       logger.Logger
}

// New creates a Simplifier on top of a completion client. maxTokens bounds
// the model output; truncation beyond it is a known cost/latency trade-off.
func New(client CompletionClient, maxTokens int, log logger.Logger) *Simplifier {
	return &Simplifier{
		client:    client,
		maxTokens: int64(maxTokens),
		log:       log,
	}
}

// Simplify rewrites modelHTML at the target level in one blocking call and
// returns the rewritten HTML plus token-usage accounting. An invalid level
// is rejected before any model call; a completion with no content at all is
// a distinct upstream error, never cached as success.
func (s *Simplifier) Simplify(ctx context.Context, modelHTML string, level domain.Level) (string, int64, error) {
	if !level.Valid() {
		return "", 0, errors.Newf(errors.KindValidation, "unsupported level %q", level)
	}

	text, tokens, err := s.client.Complete(ctx, systemPrompt(level), userPrompt(modelHTML), s.maxTokens)
	if err != nil {
		return "", 0, errors.Wrap(errors.KindUpstream, "model completion failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", 0, errors.New(errors.KindUpstream, "model returned an empty completion")
	}

	s.log.Debug("Simplification complete",
		logger.String("level", string(level)),
		logger.Int64("tokens", tokens),
	)

	return text, tokens, nil
}

// SimplifyStream is the streaming variant: each incremental text delta is
// forwarded to fn in model order, and the accumulated full text is returned
// once the stream ends so the caller can cache it. A non-nil error from fn
// stops delivery but not accumulation.
func (s *Simplifier) SimplifyStream(
	ctx context.Context,
	modelHTML string,
	level domain.Level,
	fn func(delta string) error,
) (string, int64, error) {
	if !level.Valid() {
		return "", 0, errors.Newf(errors.KindValidation, "unsupported level %q", level)
	}

	text, tokens, err := s.client.CompleteStream(ctx, systemPrompt(level), userPrompt(modelHTML), s.maxTokens, fn)
	if err != nil {
		return "", 0, errors.Wrap(errors.KindUpstream, "model stream failed", err)
	}

	s.log.Debug("Streaming simplification complete",
		logger.String("level", string(level)),
		logger.Int64("tokens", tokens),
	)

	return text, tokens, nil
}

// systemPrompt builds the level-specific rewriting instruction.
func systemPrompt(level domain.Level) string {
	return fmt.Sprintf(
		"You rewrite news articles in simple English for language learners at CEFR level %s. %s "+
			"Keep the original meaning, facts, names and numbers. Respond with HTML using only <p>, <h2>, "+
			"<ul>, <li>, <a>, and <img> tags. Preserve every <img> tag from the input exactly as given, "+
			"byte for byte, in its original position relative to the surrounding text. Do not add "+
			"commentary before or after the article.",
		level, levelRegisters[level],
	)
}

// userPrompt wraps the article HTML for the model.
func userPrompt(modelHTML string) string {
	return "Rewrite the following article:\n\n" + modelHTML
}
