// Package signals gathers the visual, audio and text feature bundles of a session.
package signals

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
)

const (
	SourceVisual = "visual"
	SourceAudio  = "audio"
	SourceText   = "text"
)

// ErrNoMedia is returned by analyzers when there is nothing to analyze.
// It selects the fallback bundle without being reported as a failure.
var ErrNoMedia = errors.New("no media recorded")

type VisualAnalyzer interface {
	AnalyzeVideo(ctx context.Context, handle string) (map[string]any, error)
}

type AudioAnalyzer interface {
	AnalyzeAudio(ctx context.Context, handle string) (map[string]any, error)
}

// Fallback feature maps used when a source is unavailable.
var (
	VisualDefaults = map[string]any{
		"confidence":       0.5,
		"eye_contact":      0.5,
		"dominant_emotion": "neutral",
	}
	AudioDefaults = map[string]any{
		"speech_rate":     130.0,
		"pitch_variation": 0.5,
		"fluency":         0.5,
	}
)

// FallbackBundle returns the default bundle of source.
func FallbackBundle(source string) interview.SignalBundle {
	var features map[string]any
	switch source {
	case SourceVisual:
		features = maps.Clone(VisualDefaults)
	case SourceAudio:
		features = maps.Clone(AudioDefaults)
	default:
		features = map[string]any{}
	}
	return interview.SignalBundle{Source: source, Features: features, Fallback: true}
}

// Result carries the three bundles and the failures met while collecting them.
type Result struct {
	Visual   interview.SignalBundle
	Audio    interview.SignalBundle
	Text     interview.SignalBundle
	Failures []error
}

// Collector runs the analyzers. A nil analyzer always yields the fallback bundle.
type Collector struct {
	visual VisualAnalyzer
	audio  AudioAnalyzer
	logger *zap.Logger
}

func NewCollector(visual VisualAnalyzer, audio AudioAnalyzer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{visual: visual, audio: audio, logger: logger}
}

// Collect analyzes media and history. Visual and audio analysis run concurrently
// and fail independently. The text bundle never fails.
func (c *Collector) Collect(ctx context.Context, media *interview.MediaRefs, history []interview.Turn) Result {
	refs := interview.MediaRefs{}
	if media != nil {
		refs = *media
	}

	res := Result{Text: TextBundle(history)}

	var (
		wg                sync.WaitGroup
		visualErr, audErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Visual, visualErr = c.collect(SourceVisual, func() (map[string]any, error) {
			if c.visual == nil {
				return nil, ErrNoMedia
			}
			return c.visual.AnalyzeVideo(ctx, refs.Video)
		})
	}()
	go func() {
		defer wg.Done()
		res.Audio, audErr = c.collect(SourceAudio, func() (map[string]any, error) {
			if c.audio == nil {
				return nil, ErrNoMedia
			}
			return c.audio.AnalyzeAudio(ctx, refs.Audio)
		})
	}()
	wg.Wait()

	for _, err := range []error{visualErr, audErr} {
		if err != nil {
			res.Failures = append(res.Failures, err)
		}
	}
	return res
}

func (c *Collector) collect(source string, analyze func() (map[string]any, error)) (interview.SignalBundle, error) {
	features, err := analyze()
	switch {
	case errors.Is(err, ErrNoMedia):
		c.logger.Debug("no media, using default signals", zap.String("source", source))
		return FallbackBundle(source), nil
	case err != nil:
		return FallbackBundle(source), fmt.Errorf("%s analysis failed: %w", source, err)
	case len(features) == 0:
		return FallbackBundle(source), fmt.Errorf("%s analysis returned no features", source)
	}
	return interview.SignalBundle{Source: source, Features: features}, nil
}
