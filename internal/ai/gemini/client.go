package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/utils"
)

const (
	defaultModel        = "gemini-2.5-pro"
	defaultMaxLogLength = 200
	baseBackoff         = time.Second
	// Quota errors asking to wait longer than this are not retried.
	maxQuotaDelay = 30 * time.Second
)

var sleep = utils.WaitFor

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*(?:s\b|sec|second)`)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type contentStreamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Options configures a Generator.
type Options struct {
	APIKey       string
	Model        string
	MaxRetries   int
	Timeout      time.Duration
	MaxLogLength int
}

// Generator implements ai.Generator and ai.Streamer on top of the Gemini API.
// Retries and per-call timeouts live here, callers only see success or failure.
type Generator struct {
	chats      chatCreator
	streams    contentStreamer
	model      string
	maxRetries int
	timeout    time.Duration
	maxLogLen  int
	logger     *zap.Logger
}

var (
	_ ai.Generator = (*Generator)(nil)
	_ ai.Streamer  = (*Generator)(nil)
)

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, opts Options, log *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Generator{
		chats:      genaiChats{chats: client.Chats},
		streams:    client.Models,
		model:      model,
		maxRetries: opts.MaxRetries,
		timeout:    opts.Timeout,
		maxLogLen:  maxLogLen,
		logger:     logger.WithCommonFields(log, "gemini", model),
	}, nil
}

// Generate sends the request as a single chat turn with the system context as
// system instruction and returns the textual answer.
func (g *Generator) Generate(ctx context.Context, req ai.Request) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message := strings.TrimSpace(req.User)
	if message == "" {
		return "", errors.New("prompt must not be empty")
	}

	attempts := g.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	g.log().Debug("gemini generate content request",
		zap.String("profile", req.Profile.Name),
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", utils.TruncateForLog(message, g.maxLogLen)),
	)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		output, err := g.send(ctx, req, message)
		if err == nil {
			g.log().Debug("gemini generate content response",
				zap.Int("attempt", attempt),
				zap.Int("response_length", utf8.RuneCountInString(output)),
				zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
			)
			return output, nil
		}
		lastErr = err

		delay, retryable := retryDelay(err, attempt)
		if !retryable || attempt == attempts {
			break
		}

		g.log().Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("waiting for retry: %w", err)
		}
	}

	return "", fmt.Errorf("generate content: %w", lastErr)
}

// Stream yields the generated text chunk by chunk. Every range over the
// returned sequence issues a new request.
func (g *Generator) Stream(ctx context.Context, req ai.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if g == nil || g.streams == nil {
			yield("", errors.New("gemini generator is not initialized"))
			return
		}

		message := strings.TrimSpace(req.User)
		if message == "" {
			yield("", errors.New("prompt must not be empty"))
			return
		}

		callCtx, cancel := g.withTimeout(ctx)
		defer cancel()

		for resp, err := range g.streams.GenerateContentStream(callCtx, g.model, genai.Text(message), buildConfig(req)) {
			if err != nil {
				yield("", fmt.Errorf("stream content: %w", err))
				return
			}
			chunk := responseText(resp, "")
			if chunk == "" {
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (g *Generator) send(ctx context.Context, req ai.Request, message string) (string, error) {
	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	chat, err := g.chats.Create(callCtx, g.model, buildConfig(req), nil)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := chat.SendMessage(callCtx, genai.Part{Text: message})
	if err != nil {
		return "", err
	}

	output := strings.TrimSpace(responseText(resp, "\n"))
	if output == "" {
		return "", ai.ErrEmptyResponse
	}
	return output, nil
}

func (g *Generator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return context.WithCancel(ctx)
}

func (g *Generator) log() *zap.Logger {
	if g.logger == nil {
		return zap.NewNop()
	}
	return g.logger
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func buildConfig(req ai.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if system := strings.TrimSpace(req.System); system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.Profile.Temperature > 0 {
		temperature := float32(req.Profile.Temperature)
		cfg.Temperature = &temperature
	}
	if req.Profile.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Profile.MaxOutputTokens)
	}
	return cfg
}

func responseText(resp *genai.GenerateContentResponse, sep string) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString(sep)
			}
			builder.WriteString(part.Text)
		}
	}
	return builder.String()
}

// retryDelay decides whether err is worth another attempt and how long to wait.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	if errors.Is(err, context.Canceled) {
		return 0, false
	}

	backoff := baseBackoff * time.Duration(1<<(attempt-1))
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ai.ErrEmptyResponse) {
		return backoff, true
	}

	apiErr, ok := asAPIError(err)
	if !ok {
		return 0, false
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		if delay, found := quotaDelay(apiErr); found {
			if delay > maxQuotaDelay {
				return 0, false
			}
			return delay, true
		}
		return backoff, true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return backoff, true
	default:
		return 0, false
	}
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func quotaDelay(apiErr genai.APIError) (time.Duration, bool) {
	for _, detail := range apiErr.Details {
		raw, ok := detail["retryDelay"].(string)
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(strings.TrimSpace(raw)); err == nil {
			return d, true
		}
	}

	match := retryAfterPattern.FindStringSubmatch(apiErr.Message)
	if len(match) < 2 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
