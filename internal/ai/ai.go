// Package ai defines the text generation capability consumed by the interview pipeline.
package ai

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("model returned empty response")

// Request is one generate_text call: a system context plus a user context.
type Request struct {
	System  string
	User    string
	Profile Profile
}

// Generator produces the full text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Streamer produces text as a sequence of chunks. Ranging over the returned
// sequence again restarts the generation from the beginning.
type Streamer interface {
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// ChunkSink receives chunks while a streamed generation is consumed.
type ChunkSink func(chunk string)

// Complete returns the assembled text for req. Streaming generators are consumed
// to completion, forwarding every chunk to sink when it is set.
func Complete(ctx context.Context, gen Generator, req Request, sink ChunkSink) (string, error) {
	if gen == nil {
		return "", errors.New("text generator is not configured")
	}

	streamer, ok := gen.(Streamer)
	if !ok {
		return gen.Generate(ctx, req)
	}

	var builder strings.Builder
	for chunk, err := range streamer.Stream(ctx, req) {
		if err != nil {
			return "", err
		}
		if sink != nil {
			sink(chunk)
		}
		builder.WriteString(chunk)
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
