// Package learning builds a study plan for the weakest assessment dimensions.
package learning

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/bank"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/report"
	"github.com/spigell/interviewer/internal/utils"
)

//go:embed prompt.md
var systemPrompt string

const (
	WeakThreshold = 6.0

	DefaultPerArea      = 3
	DefaultMaxResources = 5

	AdvisoryPlan = "Dedicate one week to each weak area listed in the report: study the suggested resources, " +
		"practise answering related questions out loud, and finish with a mock interview to measure progress."
)

type Config struct {
	PerArea      int `mapstructure:"per-area"`
	MaxResources int `mapstructure:"max-resources"`
}

// Result is the output of the learning path stage.
type Result struct {
	WeakAreas []interview.Dimension
	Resources []interview.LearningResource
	Plan      string
	Failures  []error
}

type Planner struct {
	searcher  bank.ResourceSearcher
	generator ai.Generator
	profile   ai.Profile
	sink      ai.ChunkSink
	cfg       Config
	logger    *zap.Logger
}

func NewPlanner(searcher bank.ResourceSearcher, generator ai.Generator, profile ai.Profile, sink ai.ChunkSink, cfg Config, logger *zap.Logger) *Planner {
	if cfg.PerArea <= 0 {
		cfg.PerArea = DefaultPerArea
	}
	if cfg.MaxResources <= 0 {
		cfg.MaxResources = DefaultMaxResources
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		searcher:  searcher,
		generator: generator,
		profile:   profile,
		sink:      sink,
		cfg:       cfg,
		logger:    logger,
	}
}

// WeakAreas returns dimensions scoring below WeakThreshold, or the two lowest
// ones when nothing is below it. The result is never empty for a complete assessment.
func WeakAreas(scores []interview.DimensionScore) []interview.Dimension {
	var weak []interview.Dimension
	for _, s := range scores {
		if s.Score < WeakThreshold {
			weak = append(weak, s.Dimension)
		}
	}
	if len(weak) > 0 {
		return weak
	}
	return report.Lowest(interview.Assessment{Scores: scores}, 2)
}

// Plan selects resources and writes the study plan. Failures are collected in
// the result and never prevent a plan from being returned.
func (p *Planner) Plan(ctx context.Context, candidate interview.Candidate, scores []interview.DimensionScore) Result {
	res := Result{
		WeakAreas: WeakAreas(scores),
		Resources: []interview.LearningResource{},
	}

	var found []interview.LearningResource
	for _, area := range res.WeakAreas {
		if p.searcher == nil {
			break
		}
		items, err := p.searcher.SearchResources(ctx, area, p.cfg.PerArea)
		if err != nil {
			res.Failures = append(res.Failures, fmt.Errorf("resource search for %s failed: %w", area, err))
			continue
		}
		found = append(found, items...)
	}

	found = utils.Dedupe(found, func(r interview.LearningResource) string {
		return utils.Normalize(r.Title)
	})
	if len(found) > p.cfg.MaxResources {
		found = found[:p.cfg.MaxResources]
	}
	res.Resources = append(res.Resources, found...)

	p.logger.Debug("learning resources selected",
		zap.Int("weak_areas", len(res.WeakAreas)),
		zap.Int("resources", len(res.Resources)),
	)

	plan, err := ai.Complete(ctx, p.generator, ai.Request{
		System:  systemPrompt,
		User:    planInput(candidate, scores, res),
		Profile: p.profile,
	}, p.sink)
	if err != nil {
		res.Failures = append(res.Failures, fmt.Errorf("study plan: %w", err))
		res.Plan = AdvisoryPlan
		return res
	}

	res.Plan = plan
	return res
}

func planInput(candidate interview.Candidate, scores []interview.DimensionScore, res Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Position: %s\nField: %s\n\nWeak areas:\n", candidate.Position, candidate.Field)
	for _, area := range res.WeakAreas {
		for _, s := range scores {
			if s.Dimension == area {
				fmt.Fprintf(&sb, "- %s: %.1f/10 (%s)\n", area.Title(), s.Score, s.Comment)
			}
		}
	}

	sb.WriteString("\nResources:\n")
	if len(res.Resources) == 0 {
		sb.WriteString("- none available, suggest general practice\n")
	}
	for _, r := range res.Resources {
		fmt.Fprintf(&sb, "- %s [%s] %s (%s)\n", r.Title, r.Kind, r.URL, r.Dimension.Title())
	}
	return sb.String()
}
