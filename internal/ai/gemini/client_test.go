package gemini

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interviewer/internal/ai"
)

type fakeChatCreator struct {
	mu    sync.Mutex
	calls []chatCallRecord
	queue map[string][]fakeChatResponse
}

type chatCallRecord struct {
	model  string
	config *genai.GenerateContentConfig
	chat   *fakeChat
}

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	mu       sync.Mutex
	response fakeChatResponse
	messages []string
}

func (f *fakeChat) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range parts {
		f.messages = append(f.messages, part.Text)
	}
	return f.response.resp, f.response.err
}

func newFakeChatCreator() *fakeChatCreator {
	return &fakeChatCreator{queue: make(map[string][]fakeChatResponse)}
}

func (f *fakeChatCreator) enqueue(model string, resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[model] = append(f.queue[model], fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChatCreator) Create(_ context.Context, model string, config *genai.GenerateContentConfig, _ []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := f.queue[model]
	if len(responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := responses[0]
	f.queue[model] = responses[1:]
	chat := &fakeChat{response: res}
	f.calls = append(f.calls, chatCallRecord{model: model, config: config, chat: chat})
	return chat, nil
}

type fakeStreamer struct {
	chunks []string
	err    error
	calls  int
}

func (f *fakeStreamer) GenerateContentStream(_ context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.calls++
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, chunk := range f.chunks {
			if !yield(textResponse(chunk), nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func stubSleep(t *testing.T) {
	t.Helper()
	originalSleep := sleep
	sleep = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { sleep = originalSleep })
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	stubSleep(t)

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", textResponse("retry ok"), nil)

	g := &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: 2,
		logger:     zap.NewNop(),
	}

	output, err := g.Generate(context.Background(), ai.Request{System: "system", User: "message", Profile: ai.Precise})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}

	for _, call := range chats.calls {
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if call.config.Temperature == nil || *call.config.Temperature != float32(ai.Precise.Temperature) {
			t.Fatalf("expected precise temperature, got %v", call.config.Temperature)
		}
		if call.config.MaxOutputTokens != int32(ai.Precise.MaxOutputTokens) {
			t.Fatalf("expected precise token limit, got %d", call.config.MaxOutputTokens)
		}
		if len(call.chat.messages) != 1 || call.chat.messages[0] != "message" {
			t.Fatalf("unexpected chat message: %+v", call.chat.messages)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	stubSleep(t)

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", nil, tempErr)

	g := &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: 2,
		logger:     zap.NewNop(),
	}

	_, err := g.Generate(context.Background(), ai.Request{System: "sys", User: "msg"})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	chats := newFakeChatCreator()
	quotaErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}
	chats.enqueue("gemini-pro", nil, quotaErr)

	g := &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: 3,
		logger:     zap.NewNop(),
	}

	_, err := g.Generate(context.Background(), ai.Request{System: "sys", User: "msg"})
	if err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := &Generator{chats: chats, model: "gemini-pro", maxRetries: 3}

	if _, err := g.Generate(context.Background(), ai.Request{User: "msg"}); err == nil {
		t.Fatal("expected error for bad request")
	}
	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	g := &Generator{chats: newFakeChatCreator(), model: "gemini-pro"}

	if _, err := g.Generate(context.Background(), ai.Request{User: "   "}); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestQuotaDelayReadsRetryInfoDetails(t *testing.T) {
	delay, ok := quotaDelay(genai.APIError{
		Details: []map[string]any{{"retryDelay": "7s"}},
	})
	if !ok || delay != 7*time.Second {
		t.Fatalf("expected 7s from details, got %v (found=%v)", delay, ok)
	}

	delay, ok = quotaDelay(genai.APIError{Message: "Please retry in 2.5s."})
	if !ok || delay != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s from message, got %v (found=%v)", delay, ok)
	}

	if _, ok := quotaDelay(genai.APIError{Message: "nothing here"}); ok {
		t.Fatal("did not expect a delay")
	}
}

func TestStreamYieldsChunksAndRestarts(t *testing.T) {
	streams := &fakeStreamer{chunks: []string{"Hello", "", " world"}}
	g := &Generator{streams: streams, model: "gemini-pro"}

	for range 2 {
		text, err := ai.Complete(context.Background(), g, ai.Request{User: "hi"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text != "Hello world" {
			t.Fatalf("unexpected text: %q", text)
		}
	}

	if streams.calls != 2 {
		t.Fatalf("expected each consumption to restart the stream, got %d calls", streams.calls)
	}
}

func TestStreamPropagatesErrors(t *testing.T) {
	streams := &fakeStreamer{chunks: []string{"partial"}, err: errors.New("connection reset")}
	g := &Generator{streams: streams, model: "gemini-pro"}

	if _, err := ai.Complete(context.Background(), g, ai.Request{User: "hi"}, nil); err == nil {
		t.Fatal("expected stream error")
	}
}

func TestNewGeneratorDefaultsModel(t *testing.T) {
	if _, err := NewGenerator(context.Background(), Options{}, zap.NewNop()); err == nil {
		t.Fatal("expected an error without api key")
	}

	g, err := NewGenerator(context.Background(), Options{APIKey: "key", Model: "  "}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", g.Model())
	}

	var missing *Generator
	if missing.Model() != "" {
		t.Fatal("nil generator should report no model")
	}
}
