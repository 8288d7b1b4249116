package ai

import (
	"context"
	"errors"
	"iter"
	"math"
	"testing"
)

type stubGenerator struct {
	response string
	err      error
	calls    int
}

func (s *stubGenerator) Generate(_ context.Context, _ Request) (string, error) {
	s.calls++
	return s.response, s.err
}

type stubStreamer struct {
	stubGenerator
	chunks []string
	err    error
	runs   int
}

func (s *stubStreamer) Stream(_ context.Context, _ Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.runs++
		for _, chunk := range s.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if s.err != nil {
			yield("", s.err)
		}
	}
}

func TestCompleteUsesGenerateForPlainGenerators(t *testing.T) {
	gen := &stubGenerator{response: "plain"}

	out, err := Complete(context.Background(), gen, Request{User: "hi"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "plain" || gen.calls != 1 {
		t.Fatalf("unexpected output %q after %d calls", out, gen.calls)
	}
}

func TestCompleteConsumesStreamAndForwardsChunks(t *testing.T) {
	gen := &stubStreamer{chunks: []string{"Hello", ", ", "world"}}

	var forwarded []string
	out, err := Complete(context.Background(), gen, Request{User: "hi"}, func(chunk string) {
		forwarded = append(forwarded, chunk)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello, world" {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(forwarded) != 3 {
		t.Fatalf("expected 3 forwarded chunks, got %d", len(forwarded))
	}
	if gen.calls != 0 {
		t.Fatalf("generate must not be called for streamers")
	}

	again, err := Complete(context.Background(), gen, Request{User: "hi"}, nil)
	if err != nil || again != out {
		t.Fatalf("expected restartable stream, got %q, %v", again, err)
	}
	if gen.runs != 2 {
		t.Fatalf("expected stream to restart, runs=%d", gen.runs)
	}
}

func TestCompletePropagatesStreamErrors(t *testing.T) {
	streamErr := errors.New("connection reset")
	gen := &stubStreamer{chunks: []string{"partial"}, err: streamErr}

	if _, err := Complete(context.Background(), gen, Request{}, nil); !errors.Is(err, streamErr) {
		t.Fatalf("expected stream error, got %v", err)
	}
}

func TestCompleteRejectsEmptyStream(t *testing.T) {
	gen := &stubStreamer{chunks: []string{"  "}}

	if _, err := Complete(context.Background(), gen, Request{}, nil); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if _, err := Complete(context.Background(), nil, Request{}, nil); err == nil {
		t.Fatalf("expected error for nil generator")
	}
}

func TestProfilesWithDefaults(t *testing.T) {
	t.Parallel()

	p := Profiles{Creative: &Profile{Temperature: 1.2}}.WithDefaults()

	if p.Creative.Temperature != 1.2 {
		t.Fatalf("expected override to be kept, got %v", p.Creative.Temperature)
	}
	if p.Creative.MaxOutputTokens != Creative.MaxOutputTokens {
		t.Fatalf("expected max tokens to fall back to default, got %d", p.Creative.MaxOutputTokens)
	}
	if *p.Precise != Precise || *p.Conversational != Conversational {
		t.Fatalf("expected untouched profiles to be defaults: %+v", p)
	}
	if got := p.Lookup("PRECISE"); got != Precise {
		t.Fatalf("lookup precise returned %+v", got)
	}
	if got := p.Lookup("unknown"); got != Conversational {
		t.Fatalf("unknown profile should fall back to conversational, got %+v", got)
	}
}

func TestDecodeObjectHandlesCodeBlock(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"score\": \"8\", \"comment\": \"Looks good\", \"ok\": true}\n```"
	data, err := DecodeObject(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if CoerceFloat(data["score"]) != 8 {
		t.Fatalf("expected score 8, got %v", data["score"])
	}
	if CoerceString(data["comment"]) != "Looks good" {
		t.Fatalf("unexpected comment: %v", data["comment"])
	}
	if data["ok"] != true {
		t.Fatalf("expected ok to be true")
	}
}

func TestDecodeObjectToleratesSurroundingProse(t *testing.T) {
	t.Parallel()

	data, err := DecodeObject("Here is the result: {\"a\": 1} hope it helps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if CoerceFloat(data["a"]) != 1 {
		t.Fatalf("unexpected payload: %+v", data)
	}

	if _, err := DecodeObject("no json here"); err == nil {
		t.Fatalf("expected error for malformed output")
	}
	if _, err := DecodeObject("null"); err == nil {
		t.Fatalf("expected error for null output")
	}
}

func TestCoerceFloatInvalid(t *testing.T) {
	t.Parallel()

	for _, v := range []any{nil, "", "abc", []int{1}} {
		if !math.IsNaN(CoerceFloat(v)) {
			t.Fatalf("expected NaN for %#v", v)
		}
	}
}
