package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/interviewer/internal/evaluate"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/orchestrator"
	"github.com/spigell/interviewer/internal/questions"
	"github.com/spigell/interviewer/internal/store"
)

const sampleConfig = `
candidate:
  name: Ann
  position: Frontend engineer
  field: frontend
interview:
  question-count: 5
  difficulty: senior
  min-answer-length: 80
  termination-phrases: ["bye"]
ai:
  gemini:
    model: gemini-2.5-flash
    timeout: 30s
  profiles:
    creative:
      temperature: 0.5
store:
  driver: memory
  ttl: 2h
learning:
  max-resources: 3
`

func TestDecodeConfig(t *testing.T) {
	t.Parallel()

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(sampleConfig)); err != nil {
		t.Fatalf("read config: %v", err)
	}

	cfg, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}

	if cfg.Candidate.Position != "Frontend engineer" {
		t.Fatalf("unexpected candidate: %+v", cfg.Candidate)
	}
	if cfg.Interview.Questions.Count != 5 || cfg.Interview.Questions.Difficulty != "senior" || !cfg.Interview.Questions.Fallback {
		t.Fatalf("unexpected question config: %+v", cfg.Interview.Questions)
	}
	if cfg.Interview.Evaluate.MinAnswerLength != 80 || cfg.Interview.Evaluate.KeywordCoverage != evaluate.DefaultConfig().KeywordCoverage {
		t.Fatalf("unexpected evaluate config: %+v", cfg.Interview.Evaluate)
	}
	if len(cfg.Interview.Evaluate.DetailMarkers) == 0 {
		t.Fatalf("expected default detail markers")
	}
	if cfg.AI.Gemini.Timeout != 30*time.Second || cfg.AI.Gemini.MaxRetries != 3 {
		t.Fatalf("unexpected gemini config: %+v", cfg.AI.Gemini)
	}
	if p := cfg.AI.Profiles.WithDefaults(); p.Creative.Temperature != 0.5 || p.Creative.MaxOutputTokens == 0 {
		t.Fatalf("unexpected creative profile: %+v", p.Creative)
	}
	if cfg.Store.Driver != "memory" || cfg.Store.TTL != 2*time.Hour {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Learning.MaxResources != 3 {
		t.Fatalf("unexpected learning config: %+v", cfg.Learning)
	}
	if cfg.Media == nil || cfg.Report == nil || cfg.Bank == nil {
		t.Fatalf("absent sections must be initialised")
	}
}

func TestDecodeConfigDefaults(t *testing.T) {
	t.Parallel()

	v := viper.New()
	setDefaults(v)

	cfg, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Interview.Questions.Count != questions.DefaultCount {
		t.Fatalf("expected default question count, got %d", cfg.Interview.Questions.Count)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.TTL != store.DefaultTTL {
		t.Fatalf("unexpected store defaults: %+v", cfg.Store)
	}

	st, err := openStore(&StoreConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	if _, ok := st.(*store.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", st)
	}
}

func TestLineAnswers(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	answers := newAnswerSource(strings.NewReader("first answer\n\n  second answer  \n"), &out, false)

	q := interview.Question{ID: "q1", Text: "Tell me about yourself"}
	got, err := answers.Ask(context.Background(), orchestrator.Prompt{Question: q, Text: q.Text, Index: 0, Total: 2})
	if err != nil || got != "first answer" {
		t.Fatalf("unexpected first answer %q: %v", got, err)
	}

	got, err = answers.Ask(context.Background(), orchestrator.Prompt{Question: q, Text: "Can you give an example?", FollowUp: true})
	if err != nil || got != "second answer" {
		t.Fatalf("unexpected second answer %q: %v", got, err)
	}

	if _, err := answers.Ask(context.Background(), orchestrator.Prompt{Question: q, Text: q.Text, Index: 1, Total: 2, Last: true}); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}

	printed := out.String()
	for _, want := range []string{"Question 1/2", "Tell me about yourself", "Follow-up: Can you give an example?", "Question 2/2, last one"} {
		if !strings.Contains(printed, want) {
			t.Fatalf("expected %q in output:\n%s", want, printed)
		}
	}
}

func TestNewRecorderRequiresLiveSources(t *testing.T) {
	t.Parallel()

	if rec := newRecorder(&MediaConfig{Video: "features.json"}, nil); rec != nil {
		t.Fatalf("feature files must not start a recorder")
	}
	if rec := newRecorder(&MediaConfig{LiveAudio: "mic.jsonl"}, nil); rec == nil {
		t.Fatalf("expected a recorder for a live source")
	}
}
