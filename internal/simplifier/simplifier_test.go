package simplifier_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/reader/internal/domain"
	"github.com/jonesrussell/reader/internal/errors"
	"github.com/jonesrussell/reader/internal/logger"
	"github.com/jonesrussell/reader/internal/simplifier"
)

// stubClient fakes the completion client, recording prompts and replaying a
// canned completion.
type stubClient struct {
	completion string
	tokens     int64
	err        error

	calls      int
	lastSystem string
	lastUser   string
	streamed   []string
}

func (s *stubClient) Complete(_ context.Context, system, user string, _ int64) (string, int64, error) {
	s.calls++
	s.lastSystem = system
	s.lastUser = user
	if s.err != nil {
		return "", 0, s.err
	}
	return s.completion, s.tokens, nil
}

func (s *stubClient) CompleteStream(
	_ context.Context,
	system, user string,
	_ int64,
	fn func(delta string) error,
) (string, int64, error) {
	s.calls++
	s.lastSystem = system
	s.lastUser = user
	if s.err != nil {
		return "", 0, s.err
	}
	for _, chunk := range s.streamed {
		if err := fn(chunk); err != nil {
			break
		}
	}
	return s.completion, s.tokens, nil
}

func TestSimplifyReturnsModelOutput(t *testing.T) {
	client := &stubClient{completion: "<p>Short text.</p>", tokens: 150}
	s := simplifier.New(client, 3000, logger.NewNop())

	html, tokens, err := s.Simplify(context.Background(), "<p>Long original text.</p>", domain.LevelB1)

	require.NoError(t, err)
	assert.Equal(t, "<p>Short text.</p>", html)
	assert.Equal(t, int64(150), tokens)
	assert.Equal(t, 1, client.calls)
}

func TestSimplifyRejectsInvalidLevelWithoutModelCall(t *testing.T) {
	client := &stubClient{completion: "<p>never used</p>"}
	s := simplifier.New(client, 3000, logger.NewNop())

	_, _, err := s.Simplify(context.Background(), "<p>text</p>", domain.Level("Z9"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindValidation))
	assert.Zero(t, client.calls, "invalid level must not reach the model")
}

func TestSimplifyEmptyCompletionIsUpstreamError(t *testing.T) {
	client := &stubClient{completion: "   \n  "}
	s := simplifier.New(client, 3000, logger.NewNop())

	_, _, err := s.Simplify(context.Background(), "<p>text</p>", domain.LevelA2)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindUpstream))
	assert.Contains(t, err.Error(), "empty completion")
}

func TestSimplifyPromptCarriesLevelRegister(t *testing.T) {
	client := &stubClient{completion: "<p>ok</p>"}
	s := simplifier.New(client, 3000, logger.NewNop())

	_, _, err := s.Simplify(context.Background(), "<p>the article</p>", domain.LevelA2)
	require.NoError(t, err)

	assert.Contains(t, client.lastSystem, "CEFR level A2")
	assert.Contains(t, client.lastSystem, "at most 8 words")
	assert.Contains(t, client.lastSystem, "Preserve every <img> tag")
	assert.Contains(t, client.lastUser, "<p>the article</p>")
}

func TestSimplifyStreamForwardsDeltasInOrder(t *testing.T) {
	client := &stubClient{
		completion: "<p>Hello world.</p>",
		tokens:     42,
		streamed:   []string{"<p>Hello", " world", ".</p>"},
	}
	s := simplifier.New(client, 3000, logger.NewNop())

	var got []string
	html, tokens, err := s.SimplifyStream(context.Background(), "<p>x</p>", domain.LevelB2, func(delta string) error {
		got = append(got, delta)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"<p>Hello", " world", ".</p>"}, got)
	assert.Equal(t, "<p>Hello world.</p>", html)
	assert.Equal(t, int64(42), tokens)
	assert.Equal(t, "<p>Hello world.</p>", strings.Join(got, ""))
}

func TestSimplifyStreamRejectsInvalidLevel(t *testing.T) {
	client := &stubClient{}
	s := simplifier.New(client, 3000, logger.NewNop())

	_, _, err := s.SimplifyStream(context.Background(), "<p>x</p>", domain.Level("beginner"), func(string) error {
		t.Fatal("no deltas expected")
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindValidation))
	assert.Zero(t, client.calls)
}
