// Package questions selects the ordered question list for an interview.
package questions

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/bank"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/resume"
	"github.com/spigell/interviewer/internal/utils"
)

//go:embed rephrase.md
var rephrasePrompt string

const DefaultCount = 8

// Builtin is served when the bank cannot be reached.
var Builtin = []interview.Question{
	{
		ID:         "builtin-intro",
		Text:       "Please introduce yourself and walk me through your recent experience.",
		Type:       interview.QuestionBasic,
		Difficulty: interview.DifficultyJunior,
		Keywords:   []string{"experience", "project", "role"},
	},
	{
		ID:         "builtin-motivation",
		Text:       "Why are you interested in this position?",
		Type:       interview.QuestionBasic,
		Difficulty: interview.DifficultyJunior,
		Keywords:   []string{"team", "growth", "product"},
	},
	{
		ID:         "builtin-challenge",
		Text:       "Tell me about a difficult challenge you faced at work and how you overcame it.",
		Type:       interview.QuestionBehavioral,
		Difficulty: interview.DifficultyMiddle,
		Keywords:   []string{"problem", "solution", "result"},
	},
}

type Config struct {
	Count int `mapstructure:"question-count"`
	// Difficulty overrides the tier derived from résumé experience.
	Difficulty string `mapstructure:"difficulty"`
	Rephrase   bool   `mapstructure:"rephrase"`
	Fallback   bool   `mapstructure:"fallback"`
}

// Source asks the bank for questions and optionally rephrases them.
type Source struct {
	searcher  bank.QuestionSearcher
	generator ai.Generator
	profile   ai.Profile
	cfg       Config
	logger    *zap.Logger
}

func NewSource(searcher bank.QuestionSearcher, generator ai.Generator, profile ai.Profile, cfg Config, logger *zap.Logger) *Source {
	if cfg.Count <= 0 {
		cfg.Count = DefaultCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		searcher:  searcher,
		generator: generator,
		profile:   profile,
		cfg:       cfg,
		logger:    logger,
	}
}

// DifficultyFor maps years of experience onto a tier.
func DifficultyFor(years float64) interview.Difficulty {
	switch {
	case years >= 6:
		return interview.DifficultySenior
	case years >= 3:
		return interview.DifficultyMiddle
	default:
		return interview.DifficultyJunior
	}
}

func (s *Source) difficulty(candidate interview.Candidate) interview.Difficulty {
	if strings.TrimSpace(s.cfg.Difficulty) != "" {
		return interview.ParseDifficulty(s.cfg.Difficulty)
	}
	profile, err := resume.FromMap(candidate.Resume)
	if err != nil || profile.ExperienceYears <= 0 {
		return interview.DifficultyMiddle
	}
	return DifficultyFor(profile.ExperienceYears)
}

// Questions returns the ordered list for candidate. The list is always usable;
// a non-nil error describes degradations that happened while building it.
func (s *Source) Questions(ctx context.Context, candidate interview.Candidate) ([]interview.Question, error) {
	if s.searcher == nil {
		if s.cfg.Fallback {
			return cloneBuiltin(), errors.New("question bank is not configured, using built-in questions")
		}
		return []interview.Question{}, errors.New("question bank is not configured")
	}

	query := bank.Query{
		Field:      candidate.Field,
		Position:   candidate.Position,
		Difficulty: s.difficulty(candidate),
		Count:      s.cfg.Count,
	}

	s.logger.Debug("searching questions",
		zap.String("field", query.Field),
		zap.String("position", query.Position),
		zap.String("difficulty", string(query.Difficulty)),
		zap.Int("count", query.Count),
	)

	found, err := s.searcher.SearchQuestions(ctx, query)
	if err != nil {
		if s.cfg.Fallback {
			return cloneBuiltin(), fmt.Errorf("question search failed, using built-in questions: %w", err)
		}
		return []interview.Question{}, fmt.Errorf("question search failed: %w", err)
	}

	var issues []error
	if len(found) < s.cfg.Count {
		basic, err := s.searcher.SearchQuestions(ctx, bank.Query{Type: interview.QuestionBasic, Count: s.cfg.Count})
		if err != nil {
			issues = append(issues, fmt.Errorf("basic question search failed: %w", err))
		}
		found = append(found, basic...)
	}

	found = utils.Dedupe(found, func(q interview.Question) string { return q.ID })
	if len(found) > s.cfg.Count {
		found = found[:s.cfg.Count]
	}

	if len(found) == 0 {
		if s.cfg.Fallback {
			return cloneBuiltin(), errors.Join(append(issues, errors.New("question bank returned nothing, using built-in questions"))...)
		}
		return []interview.Question{}, errors.Join(issues...)
	}

	if s.cfg.Rephrase {
		if err := s.rephrase(ctx, candidate, found); err != nil {
			issues = append(issues, err)
		}
	}

	return found, errors.Join(issues...)
}

// rephrase rewrites question texts in place. The first failure stops rephrasing
// and the remaining questions keep their original wording.
func (s *Source) rephrase(ctx context.Context, candidate interview.Candidate, qs []interview.Question) error {
	if s.generator == nil {
		return nil
	}

	system := fmt.Sprintf("%s\nCandidate position: %s\nField: %s", rephrasePrompt, candidate.Position, candidate.Field)
	for i := range qs {
		text, err := s.generator.Generate(ctx, ai.Request{System: system, User: qs[i].Text, Profile: s.profile})
		if err != nil {
			return fmt.Errorf("rephrase question %s: %w", qs[i].ID, err)
		}
		if text = strings.Trim(strings.TrimSpace(text), `"`); text != "" {
			qs[i].Text = text
		}
	}
	return nil
}

func cloneBuiltin() []interview.Question {
	out := make([]interview.Question, len(Builtin))
	copy(out, Builtin)
	return out
}
