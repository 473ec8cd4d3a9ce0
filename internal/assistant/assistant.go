// Package assistant shapes questions about the current map view for a
// text-generation backend and keeps the per-session conversation.
package assistant

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultTemperature float32 = 0.7
	DefaultTimeout             = 30 * time.Second

	// ApologyText replaces the answer when the backend fails for any reason.
	ApologyText = "I'm having trouble connecting to the satellite network (AI Error). Please check your API key."
	// EmptyReplyText replaces an empty answer.
	EmptyReplyText = "I couldn't generate a response at this time."
)

type Assistant struct {
	gen         Generator
	temperature float32
	timeout     time.Duration
}

type AssistantOption func(*Assistant)

func WithTemperature(t float32) AssistantOption {
	return func(a *Assistant) { a.temperature = t }
}

func WithTimeout(d time.Duration) AssistantOption {
	return func(a *Assistant) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func New(gen Generator, opts ...AssistantOption) *Assistant {
	a := &Assistant{
		gen:         gen,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ask never fails: backend errors come back as ApologyText.
func (a *Assistant) Ask(ctx context.Context, userText string, c Context) string {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	reply, err := a.gen.Generate(ctx, userText, SystemInstruction(c), a.temperature)
	if err != nil {
		slog.Error("assistant request failed", "error", err, "duration", time.Since(start))
		return ApologyText
	}

	slog.Debug("assistant replied", "duration", time.Since(start), "chars", len(reply))
	if strings.TrimSpace(reply) == "" {
		return EmptyReplyText
	}
	return reply
}
