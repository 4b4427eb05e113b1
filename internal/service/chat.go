package service

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/chat"
)

const (
	chatNotConfiguredMessage = "AI chat is not configured"
	chatUpstreamMessage      = "Failed to get a response from the assistant"

	// DefaultChatTimeout bounds one upstream exchange, streamed or not.
	DefaultChatTimeout = 30 * time.Second
)

// ChatService forwards a conversation to a chat.Generator.
type ChatService struct {
	gen     chat.Generator
	timeout time.Duration
	logger  *slog.Logger
}

func NewChatService(gen chat.Generator, timeout time.Duration, logger *slog.Logger) *ChatService {
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}
	return &ChatService{
		gen:     gen,
		timeout: timeout,
		logger:  logger,
	}
}

// ChatRequest is a prior transcript plus the user's new message.
type ChatRequest struct {
	Message string
	History []chat.Turn
}

// ChatReply is the complete assistant response.
type ChatReply struct {
	Reply string `json:"reply"`
	// Title is suggested only when History was empty.
	Title string `json:"title,omitempty"`
}

// prepare runs the checks shared by Reply and Stream: configuration first,
// so a missing credential never leads to a network call, then the message.
func (s *ChatService) prepare(req ChatRequest) ([]chat.Turn, error) {
	if s.gen == nil || !s.gen.Configured() {
		return nil, apperror.NotConfigured(chatNotConfiguredMessage)
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, apperror.ValidationFailed("message", "Message is required")
	}

	turns := make([]chat.Turn, 0, len(req.History)+1)
	turns = append(turns, req.History...)
	turns = append(turns, chat.Turn{Role: chat.RoleUser, Text: msg})
	return turns, nil
}

// Reply waits for the whole response. No retry is attempted.
func (s *ChatService) Reply(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	turns, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.gen.Generate(ctx, turns)
	if err != nil {
		return nil, s.upstreamError(err)
	}

	out := &ChatReply{Reply: text}
	if len(req.History) == 0 {
		out.Title = chat.SuggestTitle(append(turns, chat.Turn{Role: chat.RoleAssistant, Text: text}))
	}
	return out, nil
}

var errStreamConsumed = errors.New("chat stream already consumed")

// Stream validates the request up front and returns a lazy sequence of
// reply fragments. Nothing is sent upstream until the caller ranges over
// it. The sequence can be ranged once; to continue a conversation call
// Stream again with the extended transcript. Cancelling ctx, or breaking
// out of the loop, aborts the upstream request.
func (s *ChatService) Stream(ctx context.Context, req ChatRequest) (iter.Seq2[string, error], error) {
	turns, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", errStreamConsumed)
			return
		}

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		for fragment, err := range s.gen.Stream(ctx, turns) {
			if err != nil {
				yield("", s.upstreamError(err))
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}, nil
}

// upstreamError logs the cause and hides it behind a generic message.
func (s *ChatService) upstreamError(err error) error {
	s.logger.Error("chat upstream failed", slog.String("error", err.Error()))
	return apperror.Upstream(chatUpstreamMessage, err)
}
