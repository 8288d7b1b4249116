package evaluate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/interview"
)

type stubGenerator struct {
	response string
	err      error
	calls    int
	last     ai.Request
}

func (s *stubGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	s.calls++
	s.last = req
	return s.response, s.err
}

var reactQuestion = interview.Question{
	ID:       "fe-1",
	Text:     "How do you manage state in a React application?",
	Type:     interview.QuestionTechnical,
	Keywords: []string{"React", "state management", "hooks"},
}

func longAnswer() string {
	answer := "Specifically, in React I rely on hooks for local state and a dedicated state management library for shared data. "
	for len(answer) < 300 {
		answer += "We kept components small and moved side effects into custom hooks. "
	}
	return answer[:300]
}

func TestShortVagueAnswerTriggersFollowUp(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: "Which hooks did you use and why?"}
	e := New(DefaultRules(DefaultConfig()), gen, ai.Conversational, nil)

	decision, err := e.Evaluate(context.Background(), reactQuestion, "I used React.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !decision.FollowUp || decision.Question != "Which hooks did you use and why?" {
		t.Fatalf("expected generated follow-up, got %+v", decision)
	}

	fired := map[string]bool{}
	for _, v := range decision.Fired() {
		fired[v.Rule] = true
	}
	if !fired["length"] || !fired["specificity"] {
		t.Fatalf("expected length and specificity rules to fire, got %+v", decision.Verdicts)
	}
	if gen.last.Profile.Name != ai.Conversational.Name || !strings.Contains(gen.last.System, NoFollowUpSentinel) {
		t.Fatalf("unexpected follow-up request: %+v", gen.last)
	}
}

func TestDetailedAnswerNeedsNoFollowUp(t *testing.T) {
	t.Parallel()

	answer := longAnswer()
	if len(answer) != 300 {
		t.Fatalf("fixture must be 300 characters, got %d", len(answer))
	}

	gen := &stubGenerator{response: "unused"}
	e := New(DefaultRules(DefaultConfig()), gen, ai.Conversational, nil)

	decision, err := e.Evaluate(context.Background(), reactQuestion, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.FollowUp {
		t.Fatalf("did not expect follow-up, fired: %+v", decision.Fired())
	}
	if gen.calls != 0 {
		t.Fatalf("generator must not be called when no rule fires")
	}
}

func TestSentinelOverridesRules(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: " NO_FOLLOW_UP \n"}
	e := New(DefaultRules(DefaultConfig()), gen, ai.Conversational, nil)

	decision, err := e.Evaluate(context.Background(), reactQuestion, "Hooks.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.FollowUp || decision.Question != "" {
		t.Fatalf("expected sentinel to cancel the follow-up, got %+v", decision)
	}

	if _, err := e.FollowUpQuestion(context.Background(), reactQuestion, "Hooks.", nil); !errors.Is(err, ErrNoFollowUp) {
		t.Fatalf("expected ErrNoFollowUp, got %v", err)
	}
}

func TestGeneratorFailureFallsBackToCannedQuestion(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{err: errors.New("deadline exceeded")}
	e := New(DefaultRules(DefaultConfig()), gen, ai.Conversational, nil)

	decision, err := e.Evaluate(context.Background(), reactQuestion, "Not much to say.")
	if err == nil {
		t.Fatal("expected generator error to be reported")
	}
	if !decision.FollowUp {
		t.Fatalf("expected follow-up to still be asked")
	}
	if decision.Question != "Could you also touch on React, state management, hooks?" {
		t.Fatalf("unexpected canned question: %q", decision.Question)
	}
}

func TestWithoutGeneratorUsesCannedQuestion(t *testing.T) {
	t.Parallel()

	e := New(DefaultRules(Config{}), nil, ai.Conversational, nil)

	decision, err := e.Evaluate(context.Background(), interview.Question{ID: "b1"}, "I like it.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.FollowUp || decision.Question != "Can you give a concrete example from your own experience?" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestCoverage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		keywords []string
		answer   string
		want     float64
		missing  int
	}{
		{name: "no keywords", keywords: nil, answer: "anything", want: 1},
		{name: "case insensitive", keywords: []string{"Goroutine", "channel"}, answer: "goroutines talk over a CHANNEL", want: 1},
		{name: "partial", keywords: []string{"react", "state management", "hooks"}, answer: "I used React.", want: 1.0 / 3, missing: 2},
		{name: "none", keywords: []string{"pprof"}, answer: "I guess", want: 0, missing: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, missing := Coverage(tt.keywords, tt.answer)
			if got != tt.want || len(missing) != tt.missing {
				t.Fatalf("Coverage() = %v (%v), want %v with %d missing", got, missing, tt.want, tt.missing)
			}
		})
	}
}

func TestKeywordRuleSkipsQuestionsWithoutKeywords(t *testing.T) {
	t.Parallel()

	v := NewKeywordRule(0.3).Check(interview.Question{}, "")
	if v.Fired {
		t.Fatalf("keyword rule must not fire without expected keywords")
	}
}

func TestKeywordCoverageThreshold(t *testing.T) {
	t.Parallel()

	q := interview.Question{Keywords: []string{"pprof", "trace"}}

	tests := []struct {
		name     string
		coverage float64
		fired    bool
	}{
		{name: "zero disables the rule", coverage: 0, fired: false},
		{name: "negative selects the default", coverage: -1, fired: true},
		{name: "explicit threshold", coverage: 0.5, fired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			cfg.KeywordCoverage = tt.coverage
			var keyword Rule
			for _, r := range DefaultRules(cfg) {
				if r.Name() == "keyword_coverage" {
					keyword = r
				}
			}
			if keyword == nil {
				t.Fatal("keyword rule missing")
			}
			if v := keyword.Check(q, "I would look at the logs first."); v.Fired != tt.fired {
				t.Fatalf("expected fired=%v, got %+v", tt.fired, v)
			}
		})
	}
}
