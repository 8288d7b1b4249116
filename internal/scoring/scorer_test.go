package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/signals"
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

func sampleInput() Input {
	return Input{
		Position: "Backend engineer",
		History: []interview.Turn{
			{QuestionID: "q1", Question: "Tell me about caching", Answer: "I implemented a write-through cache."},
		},
		Visual: signals.FallbackBundle(signals.SourceVisual),
		Audio:  signals.FallbackBundle(signals.SourceAudio),
		Text:   signals.TextBundle(nil),
	}
}

func assertComplete(t *testing.T, a interview.Assessment) {
	t.Helper()
	if len(a.Scores) != len(interview.Dimensions) {
		t.Fatalf("expected %d dimensions, got %d", len(interview.Dimensions), len(a.Scores))
	}
	for i, d := range interview.Dimensions {
		s := a.Scores[i]
		if s.Dimension != d {
			t.Fatalf("dimension %d: expected %s, got %s", i, d, s.Dimension)
		}
		if s.Score < interview.MinScore || s.Score > interview.MaxScore {
			t.Fatalf("dimension %s out of range: %v", d, s.Score)
		}
	}
}

func TestScoreDecodesModelOutput(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: "```json\n" + `{
		"professional_knowledge": {"score": 8, "comment": "solid"},
		"skill_match": {"score": "6.5", "comment": "ok"},
		"communication_ability": {"score": 12, "comment": "great"},
		"logical_thinking": {"score": -1, "comment": "weak"},
		"stress_resilience": 7
	}` + "\n```"}

	a, err := New(gen, ai.Precise, nil).Score(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertComplete(t, a)

	want := []float64{8, 6.5, 10, 0, 7}
	for i, s := range a.Scores {
		if s.Score != want[i] {
			t.Fatalf("%s: expected %v, got %v", s.Dimension, want[i], s.Score)
		}
	}
	if gen.last.Profile.Name != ai.Precise.Name {
		t.Fatalf("expected precise profile, got %s", gen.last.Profile.Name)
	}
	if !strings.Contains(gen.last.User, `"fallback": true`) || !strings.Contains(gen.last.User, "write-through cache") {
		t.Fatalf("expected transcript and bundles in payload, got %s", gen.last.User)
	}
}

func TestScoreFallsBackToNeutral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{name: "model error", gen: &stubGenerator{err: errors.New("timeout")}},
		{name: "malformed json", gen: &stubGenerator{response: "I think the candidate did fine"}},
		{name: "no usable dimension", gen: &stubGenerator{response: `{"overall": 7}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := New(tt.gen, ai.Precise, nil).Score(context.Background(), sampleInput())
			if err == nil {
				t.Fatal("expected degradation to be reported")
			}
			assertComplete(t, a)
			for _, s := range a.Scores {
				if s.Score != interview.NeutralScore || !strings.Contains(s.Comment, "low confidence") {
					t.Fatalf("expected neutral low-confidence score, got %+v", s)
				}
			}
		})
	}
}

func TestScoreWithoutAnswersSkipsModel(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: "{}"}
	in := sampleInput()
	in.History = nil

	a, err := New(gen, ai.Precise, nil).Score(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertComplete(t, a)
	if gen.calls != 0 {
		t.Fatalf("model must not be called without answers")
	}
	if a.Scores[0].Comment != InsufficientDataComment {
		t.Fatalf("unexpected comment: %q", a.Scores[0].Comment)
	}
}

func TestParseFillsMissingDimensions(t *testing.T) {
	t.Parallel()

	a, missing, err := Parse(`{"scores": {"skill_match": {"score": 9, "comment": "strong"}, "logical_thinking": {"comment": "no score"}}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertComplete(t, a)

	if len(missing) != 4 {
		t.Fatalf("expected 4 missing dimensions, got %v", missing)
	}
	if s, _ := a.Score(interview.SkillMatch); s.Score != 9 || s.Comment != "strong" {
		t.Fatalf("unexpected skill match: %+v", s)
	}
	if s, _ := a.Score(interview.LogicalThinking); s.Score != interview.NeutralScore || s.Comment != NotAssessedComment {
		t.Fatalf("expected neutral score for dimension without score, got %+v", s)
	}
}

func TestParseKeepsStructuredComments(t *testing.T) {
	t.Parallel()

	a, _, err := Parse(`{"scores": {"skill_match": {"score": "7", "comment": ["go", "sql"]}, "logical_thinking": 6}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, _ := a.Score(interview.SkillMatch); s.Score != 7 || s.Comment != `["go","sql"]` {
		t.Fatalf("unexpected skill match: %+v", s)
	}
	if s, _ := a.Score(interview.LogicalThinking); s.Score != 6 || s.Comment != "" {
		t.Fatalf("unexpected logical thinking: %+v", s)
	}
}
