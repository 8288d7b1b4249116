// Package evaluate decides whether an answer needs a follow-up question.
package evaluate

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/utils"
)

//go:embed followup.md
var followUpPrompt string

// NoFollowUpSentinel is the model reply meaning the answer is complete.
const NoFollowUpSentinel = "NO_FOLLOW_UP"

// ErrNoFollowUp is returned when the model judges the answer complete.
var ErrNoFollowUp = errors.New("no follow-up needed")

const maxLogLength = 200

// DetailMarkers are phrases that indicate a concrete, elaborated answer.
var DetailMarkers = []string{
	"specifically",
	"for example",
	"for instance",
	"implemented",
	"responsible for",
	"in particular",
	"as a result",
	"we measured",
}

// Config tunes the rules. KeywordCoverage is the share of expected keywords an
// answer must mention: zero disables the keyword rule and a negative value
// selects the default.
type Config struct {
	MinAnswerLength int      `mapstructure:"min-answer-length"`
	KeywordCoverage float64  `mapstructure:"keyword-coverage"`
	DetailMarkers   []string `mapstructure:"detail-markers"`
}

func DefaultConfig() Config {
	return Config{
		MinAnswerLength: 50,
		KeywordCoverage: 0.3,
		DetailMarkers:   DetailMarkers,
	}
}

// DefaultRules builds the length, keyword coverage and specificity rules from cfg.
func DefaultRules(cfg Config) []Rule {
	def := DefaultConfig()
	if cfg.MinAnswerLength <= 0 {
		cfg.MinAnswerLength = def.MinAnswerLength
	}
	if cfg.KeywordCoverage < 0 {
		cfg.KeywordCoverage = def.KeywordCoverage
	}
	if len(cfg.DetailMarkers) == 0 {
		cfg.DetailMarkers = def.DetailMarkers
	}
	return []Rule{
		NewLengthRule(cfg.MinAnswerLength),
		NewKeywordRule(cfg.KeywordCoverage),
		NewSpecificityRule(cfg.DetailMarkers),
	}
}

// Decision is the outcome of evaluating one answer.
type Decision struct {
	FollowUp bool
	Question string
	Verdicts []Verdict
}

// Fired returns the verdicts of rules that requested a follow-up.
func (d Decision) Fired() []Verdict {
	out := make([]Verdict, 0, len(d.Verdicts))
	for _, v := range d.Verdicts {
		if v.Fired {
			out = append(out, v)
		}
	}
	return out
}

// Evaluator combines the deterministic rules with a generated follow-up question.
type Evaluator struct {
	rules     []Rule
	generator ai.Generator
	profile   ai.Profile
	logger    *zap.Logger
}

func New(rules []Rule, generator ai.Generator, profile ai.Profile, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{rules: rules, generator: generator, profile: profile, logger: logger}
}

// Check runs every rule and reports whether any of them fired.
func (e *Evaluator) Check(q interview.Question, answer string) (bool, []Verdict) {
	verdicts := make([]Verdict, 0, len(e.rules))
	fired := false
	for _, rule := range e.rules {
		v := rule.Check(q, answer)
		fired = fired || v.Fired
		verdicts = append(verdicts, v)
	}
	return fired, verdicts
}

// Evaluate decides whether answer needs a follow-up and produces its text.
// When the generator fails a canned follow-up is used and the error is returned
// alongside a decision that is still valid.
func (e *Evaluator) Evaluate(ctx context.Context, q interview.Question, answer string) (Decision, error) {
	fired, verdicts := e.Check(q, answer)
	decision := Decision{Verdicts: verdicts}
	if !fired {
		return decision, nil
	}

	text, err := e.FollowUpQuestion(ctx, q, answer, decision.Fired())
	switch {
	case errors.Is(err, ErrNoFollowUp):
		e.logger.Debug("follow-up declined by model", zap.String("question_id", q.ID))
		return decision, nil
	case err != nil:
		decision.FollowUp = true
		decision.Question = Canned(decision.Fired())
		return decision, err
	}

	decision.FollowUp = true
	decision.Question = text
	return decision, nil
}

// FollowUpQuestion asks the generator for a follow-up. ErrNoFollowUp means the
// model considers the answer complete.
func (e *Evaluator) FollowUpQuestion(ctx context.Context, q interview.Question, answer string, fired []Verdict) (string, error) {
	if e.generator == nil {
		return Canned(fired), nil
	}

	reasons := make([]string, 0, len(fired))
	for _, v := range fired {
		reasons = append(reasons, "- "+v.Reason)
	}

	user := fmt.Sprintf("Question: %s\nExpected topics: %s\nAnswer: %s\nWhy it looks incomplete:\n%s",
		q.Text, strings.Join(q.Keywords, ", "), answer, strings.Join(reasons, "\n"))

	e.logger.Debug("requesting follow-up",
		zap.String("question_id", q.ID),
		zap.String("answer_preview", utils.TruncateForLog(answer, maxLogLength)),
	)

	text, err := e.generator.Generate(ctx, ai.Request{System: followUpPrompt, User: user, Profile: e.profile})
	if err != nil {
		return "", fmt.Errorf("generate follow-up: %w", err)
	}

	text = strings.TrimSpace(text)
	if strings.Contains(text, NoFollowUpSentinel) {
		return "", ErrNoFollowUp
	}
	if text == "" {
		return "", ai.ErrEmptyResponse
	}
	return text, nil
}

// Canned returns a follow-up without a model. Missing keywords are asked about
// first, then a concrete example.
func Canned(fired []Verdict) string {
	for _, v := range fired {
		switch {
		case len(v.Missing) > 0:
			return fmt.Sprintf("Could you also touch on %s?", strings.Join(v.Missing, ", "))
		case v.Rule == "specificity":
			return "Can you give a concrete example from your own experience?"
		}
	}
	return "Could you expand on that with a bit more detail?"
}
