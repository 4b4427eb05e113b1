package service

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/chat"
)

// fakeGenerator counts calls so tests can assert nothing went upstream.
type fakeGenerator struct {
	configured  bool
	reply       string
	fragments   []string
	err         error
	calls       int
	lastTurns   []chat.Turn
	hadDeadline bool
}

func (g *fakeGenerator) Configured() bool { return g.configured }

func (g *fakeGenerator) Generate(ctx context.Context, turns []chat.Turn) (string, error) {
	g.calls++
	g.lastTurns = turns
	_, g.hadDeadline = ctx.Deadline()
	return g.reply, g.err
}

func (g *fakeGenerator) Stream(ctx context.Context, turns []chat.Turn) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		g.calls++
		g.lastTurns = turns
		_, g.hadDeadline = ctx.Deadline()
		for _, f := range g.fragments {
			if !yield(f, nil) {
				return
			}
		}
		if g.err != nil {
			yield("", g.err)
		}
	}
}

func TestChatReply_NotConfigured_NoUpstreamCall(t *testing.T) {
	gen := &fakeGenerator{configured: false}
	svc := NewChatService(gen, 0, discardLogger())

	_, err := svc.Reply(context.Background(), ChatRequest{Message: "hello"})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.ErrorIs(t, err, apperror.ErrNotConfigured)
	assert.Equal(t, "AI chat is not configured", appErr.Message)
	assert.Zero(t, gen.calls)

	_, err = svc.Stream(context.Background(), ChatRequest{Message: "hello"})
	assert.ErrorIs(t, err, apperror.ErrNotConfigured)
	assert.Zero(t, gen.calls)
}

// Configuration is checked before the message, so an empty message on an
// unconfigured server still reports "not configured".
func TestChatReply_NilGenerator(t *testing.T) {
	svc := NewChatService(nil, 0, discardLogger())
	_, err := svc.Reply(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, apperror.ErrNotConfigured)
}

func TestChatReply_EmptyMessage(t *testing.T) {
	gen := &fakeGenerator{configured: true}
	svc := NewChatService(gen, 0, discardLogger())

	_, err := svc.Reply(context.Background(), ChatRequest{Message: "   "})
	assert.Equal(t, "Message is required", validationMessage(t, err))
	assert.Zero(t, gen.calls)
}

func TestChatReply_Success(t *testing.T) {
	gen := &fakeGenerator{configured: true, reply: "Hi! How can I help?"}
	svc := NewChatService(gen, 5*time.Second, discardLogger())

	out, err := svc.Reply(context.Background(), ChatRequest{Message: " What is Go? Explain. "})
	require.NoError(t, err)

	assert.Equal(t, "Hi! How can I help?", out.Reply)
	assert.Equal(t, "What is Go?", out.Title)
	assert.Equal(t, 1, gen.calls)
	assert.True(t, gen.hadDeadline, "upstream call must run under a timeout")
	assert.Equal(t, []chat.Turn{{Role: chat.RoleUser, Text: "What is Go? Explain."}}, gen.lastTurns)
}

func TestChatReply_HistoryIsForwardedAndNoTitle(t *testing.T) {
	gen := &fakeGenerator{configured: true, reply: "sure"}
	svc := NewChatService(gen, 0, discardLogger())
	history := []chat.Turn{
		{Role: chat.RoleUser, Text: "hi"},
		{Role: chat.RoleAssistant, Text: "hello"},
	}

	out, err := svc.Reply(context.Background(), ChatRequest{Message: "more", History: history})
	require.NoError(t, err)

	assert.Empty(t, out.Title)
	require.Len(t, gen.lastTurns, 3)
	assert.Equal(t, chat.Turn{Role: chat.RoleUser, Text: "more"}, gen.lastTurns[2])
}

func TestChatReply_UpstreamFailureIsGeneric(t *testing.T) {
	gen := &fakeGenerator{configured: true, err: errors.New("status 503: backend exploded")}
	svc := NewChatService(gen, 0, discardLogger())

	_, err := svc.Reply(context.Background(), ChatRequest{Message: "hello"})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.ErrorIs(t, err, apperror.ErrUpstream)
	assert.Equal(t, "Failed to get a response from the assistant", appErr.Message)
	assert.Equal(t, 1, gen.calls, "no retry")
}

func TestChatStream(t *testing.T) {
	gen := &fakeGenerator{configured: true, fragments: []string{"a", "b", "c"}}
	svc := NewChatService(gen, 0, discardLogger())

	seq, err := svc.Stream(context.Background(), ChatRequest{Message: "go"})
	require.NoError(t, err)
	assert.Zero(t, gen.calls, "nothing is sent before the sequence is consumed")

	var got []string
	for frag, err := range seq {
		require.NoError(t, err)
		got = append(got, frag)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.True(t, gen.hadDeadline)

	// A consumed stream cannot be restarted.
	var errs []error
	for _, err := range seq {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], errStreamConsumed)
	assert.Equal(t, 1, gen.calls)
}

func TestChatStream_UpstreamErrorMidway(t *testing.T) {
	gen := &fakeGenerator{configured: true, fragments: []string{"partial"}, err: errors.New("reset")}
	svc := NewChatService(gen, 0, discardLogger())

	seq, err := svc.Stream(context.Background(), ChatRequest{Message: "go"})
	require.NoError(t, err)

	var frags []string
	var last error
	for frag, err := range seq {
		if err != nil {
			last = err
			break
		}
		frags = append(frags, frag)
	}
	assert.Equal(t, []string{"partial"}, frags)
	assert.ErrorIs(t, last, apperror.ErrUpstream)
}
