// Package scoring merges the signal bundles and the transcript into a five-dimension assessment.
package scoring

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/utils"
)

//go:embed prompt.md
var systemPrompt string

const (
	InsufficientDataComment = "insufficient data: no answers were recorded"
	LowConfidenceComment    = "low confidence: this dimension could not be assessed"
	NotAssessedComment      = "low confidence: the assessment did not cover this dimension"

	maxLogLength = 200
)

// Input is everything the scorer looks at.
type Input struct {
	Position string
	History  []interview.Turn
	Visual   interview.SignalBundle
	Audio    interview.SignalBundle
	Text     interview.SignalBundle
}

type dimensionPayload struct {
	Score float64 `mapstructure:"score"`
	// Models sometimes answer with a list of remarks instead of a sentence.
	Comment any `mapstructure:"comment"`
}

type Scorer struct {
	generator ai.Generator
	profile   ai.Profile
	logger    *zap.Logger
}

func New(generator ai.Generator, profile ai.Profile, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{generator: generator, profile: profile, logger: logger}
}

// Score always returns a complete assessment. The error reports why some or all
// dimensions fell back to the neutral score.
func (s *Scorer) Score(ctx context.Context, in Input) (interview.Assessment, error) {
	if len(in.History) == 0 {
		return interview.NeutralAssessment(InsufficientDataComment), nil
	}
	if s.generator == nil {
		return interview.NeutralAssessment(LowConfidenceComment), errors.New("assessment model is not configured")
	}

	payload, err := buildPayload(in)
	if err != nil {
		return interview.NeutralAssessment(LowConfidenceComment), err
	}

	s.logger.Debug("requesting assessment",
		zap.Int("turns", len(in.History)),
		zap.Int("prompt_length", utf8.RuneCountInString(payload)),
	)

	raw, err := s.generator.Generate(ctx, ai.Request{System: systemPrompt, User: payload, Profile: s.profile})
	if err != nil {
		return interview.NeutralAssessment(LowConfidenceComment), fmt.Errorf("assessment model call failed: %w", err)
	}

	s.logger.Debug("assessment response", zap.String("response_preview", utils.TruncateForLog(raw, maxLogLength)))

	assessment, missing, err := Parse(raw)
	if err != nil {
		return interview.NeutralAssessment(LowConfidenceComment), fmt.Errorf("malformed assessment: %w", err)
	}
	if len(missing) > 0 {
		s.logger.Warn("assessment is missing dimensions", zap.Strings("dimensions", missing))
	}
	return assessment, nil
}

func buildPayload(in Input) (string, error) {
	transcript := make([]map[string]any, 0, len(in.History))
	for _, turn := range in.History {
		transcript = append(transcript, map[string]any{
			"question":  turn.Question,
			"answer":    turn.Answer,
			"follow_up": turn.FollowUp,
		})
	}

	doc := map[string]any{
		"position":   in.Position,
		"transcript": transcript,
		"visual":     in.Visual,
		"audio":      in.Audio,
		"text":       in.Text,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal assessment input: %w", err)
	}
	return string(data), nil
}

// Parse decodes a model response into an assessment. Dimensions absent from the
// response get the neutral score and are returned in missing. Scores are
// clamped into range.
func Parse(raw string) (interview.Assessment, []string, error) {
	data, err := ai.DecodeObject(raw)
	if err != nil {
		return interview.Assessment{}, nil, err
	}
	if nested, ok := data["scores"].(map[string]any); ok {
		data = nested
	}

	var (
		scores  = make([]interview.DimensionScore, 0, len(interview.Dimensions))
		missing []string
		decoded int
	)
	for _, d := range interview.Dimensions {
		entry, ok := data[string(d)]
		if !ok {
			missing = append(missing, string(d))
			scores = append(scores, interview.DimensionScore{Dimension: d, Score: interview.NeutralScore, Comment: NotAssessedComment})
			continue
		}

		score, err := decodeDimension(entry)
		if err != nil {
			missing = append(missing, string(d))
			scores = append(scores, interview.DimensionScore{Dimension: d, Score: interview.NeutralScore, Comment: NotAssessedComment})
			continue
		}
		score.Dimension = d
		scores = append(scores, score)
		decoded++
	}

	if decoded == 0 {
		return interview.Assessment{}, missing, errors.New("no dimension could be decoded")
	}
	return interview.Assessment{Scores: scores}, missing, nil
}

func decodeDimension(entry any) (interview.DimensionScore, error) {
	var payload dimensionPayload

	switch v := entry.(type) {
	case map[string]any:
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &payload,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return interview.DimensionScore{}, err
		}
		if err := decoder.Decode(v); err != nil {
			return interview.DimensionScore{}, err
		}
		if _, ok := v["score"]; !ok {
			return interview.DimensionScore{}, errors.New("score is missing")
		}
	default:
		payload.Score = ai.CoerceFloat(v)
	}

	if math.IsNaN(payload.Score) || math.IsInf(payload.Score, 0) {
		return interview.DimensionScore{}, errors.New("score is not a number")
	}

	return interview.DimensionScore{
		Score:   interview.ClampScore(payload.Score),
		Comment: ai.CoerceString(payload.Comment),
	}, nil
}
