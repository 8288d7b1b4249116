// Package report derives the interview report from an assessment.
package report

import (
	"cmp"
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/interview"
)

//go:embed prompt.md
var systemPrompt string

const (
	StrengthThreshold = 8.0
	WeaknessThreshold = 4.0

	NoStrengths  = "No dimension stood out as a clear strength yet. Performance was balanced across the board."
	NoWeaknesses = "No critical weaknesses were identified."

	NarrativePlaceholder = "A detailed narrative report is not available for this interview. Please refer to the scores and recommendations above."
)

// Suggestions holds canned recommendations per dimension, most useful first.
var Suggestions = map[interview.Dimension][]string{
	interview.ProfessionalKnowledge: {
		"Review the core concepts of your field and practice explaining them without notes.",
		"Work through one advanced topic end to end, for example by building a small project around it.",
	},
	interview.SkillMatch: {
		"Compare the job description with your experience and prepare an example for each required skill.",
		"Close the most visible gap with a focused course or side project you can talk about.",
	},
	interview.CommunicationAbility: {
		"Structure answers with the situation, task, action, result pattern.",
		"Record yourself answering common questions and cut filler words and digressions.",
	},
	interview.LogicalThinking: {
		"Practice breaking problems into steps out loud before proposing a solution.",
		"Discuss trade-offs explicitly when comparing alternative approaches.",
	},
	interview.StressResilience: {
		"Run mock interviews under time pressure to get used to the setting.",
		"When stuck, restate the question and think aloud instead of going silent.",
	},
}

// SuggestionsPerDimension is how many canned suggestions each weak dimension contributes.
const SuggestionsPerDimension = 2

// Input is what the builder needs from the session.
type Input struct {
	Candidate  interview.Candidate
	Assessment interview.Assessment
	EndedEarly bool
}

// Summarize computes the deterministic part of the report.
func Summarize(a interview.Assessment) interview.Report {
	r := interview.Report{
		Scores:          slices.Clone(a.Scores),
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{},
	}

	total := 0.0
	for _, s := range a.Scores {
		total += s.Score
		switch {
		case s.Score >= StrengthThreshold:
			r.Strengths = append(r.Strengths, describe(s))
		case s.Score <= WeaknessThreshold:
			r.Weaknesses = append(r.Weaknesses, describe(s))
		}
	}
	if len(a.Scores) > 0 {
		r.OverallScore = total / float64(len(a.Scores))
	}

	if len(r.Strengths) == 0 {
		r.Strengths = append(r.Strengths, NoStrengths)
	}
	if len(r.Weaknesses) == 0 {
		r.Weaknesses = append(r.Weaknesses, NoWeaknesses)
	}

	for _, d := range Lowest(a, 2) {
		suggestions := Suggestions[d]
		if len(suggestions) > SuggestionsPerDimension {
			suggestions = suggestions[:SuggestionsPerDimension]
		}
		for _, s := range suggestions {
			r.Recommendations = append(r.Recommendations, fmt.Sprintf("%s: %s", d.Title(), s))
		}
	}

	return r
}

// Lowest returns the n lowest scoring dimensions. Ties keep dimension order.
func Lowest(a interview.Assessment, n int) []interview.Dimension {
	scores := slices.Clone(a.Scores)
	slices.SortStableFunc(scores, func(x, y interview.DimensionScore) int {
		return cmp.Compare(x.Score, y.Score)
	})

	if n > len(scores) {
		n = len(scores)
	}
	out := make([]interview.Dimension, 0, n)
	for _, s := range scores[:n] {
		out = append(out, s.Dimension)
	}
	return out
}

func describe(s interview.DimensionScore) string {
	if s.Comment == "" {
		return fmt.Sprintf("%s (%.1f/10)", s.Dimension.Title(), s.Score)
	}
	return fmt.Sprintf("%s (%.1f/10): %s", s.Dimension.Title(), s.Score, s.Comment)
}

type Builder struct {
	generator ai.Generator
	profile   ai.Profile
	sink      ai.ChunkSink
	logger    *zap.Logger
}

// NewBuilder creates a report builder. sink, when set, receives narrative chunks as they stream.
func NewBuilder(generator ai.Generator, profile ai.Profile, sink ai.ChunkSink, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{generator: generator, profile: profile, sink: sink, logger: logger}
}

// Build returns the report. A narrative failure leaves the placeholder text in
// place and is returned as the error.
func (b *Builder) Build(ctx context.Context, in Input) (interview.Report, error) {
	r := Summarize(in.Assessment)
	r.EndedEarly = in.EndedEarly
	r.Narrative = NarrativePlaceholder

	narrative, err := ai.Complete(ctx, b.generator, ai.Request{
		System:  systemPrompt,
		User:    narrativeInput(in, r),
		Profile: b.profile,
	}, b.sink)
	if err != nil {
		return r, fmt.Errorf("narrative report: %w", err)
	}

	r.Narrative = narrative
	return r, nil
}

func narrativeInput(in Input, r interview.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Candidate: %s\nPosition: %s\nField: %s\n", in.Candidate.Name, in.Candidate.Position, in.Candidate.Field)
	if in.EndedEarly {
		sb.WriteString("The candidate ended the interview early.\n")
	}
	fmt.Fprintf(&sb, "Overall score: %.1f/10\n\nDimensions:\n", r.OverallScore)
	for _, s := range r.Scores {
		fmt.Fprintf(&sb, "- %s: %.1f (%s)\n", s.Dimension.Title(), s.Score, s.Comment)
	}
	writeList(&sb, "Strengths", r.Strengths)
	writeList(&sb, "Weaknesses", r.Weaknesses)
	writeList(&sb, "Recommendations", r.Recommendations)
	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	fmt.Fprintf(sb, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}
