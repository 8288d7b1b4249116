// Package capture records live video and audio features while the interview runs.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/signals"
)

const (
	DefaultVideoInterval = 500 * time.Millisecond
	DefaultAudioInterval = 250 * time.Millisecond

	VideoHandle = "live:video"
	AudioHandle = "live:audio"
)

type Config struct {
	Video         Opener
	Audio         Opener
	VideoInterval time.Duration
	AudioInterval time.Duration
}

type loop struct {
	name     string
	open     Opener
	interval time.Duration

	mu       sync.Mutex
	samples  []Sample
	err      error
	closeErr error
}

func (l *loop) add(s Sample) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.samples = append(l.samples, s)
}

func (l *loop) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func (l *loop) snapshot() ([]Sample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Sample(nil), l.samples...), l.err
}

// Recorder runs one producer loop per configured device. The loops share
// nothing: a failing camera does not stop audio sampling and vice versa.
type Recorder struct {
	video  *loop
	audio  *loop
	logger *zap.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var (
	_ signals.VisualAnalyzer = (*Recorder)(nil)
	_ signals.AudioAnalyzer  = (*Recorder)(nil)
)

func NewRecorder(cfg Config, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Recorder{logger: logger}
	if cfg.Video != nil {
		r.video = &loop{name: signals.SourceVisual, open: cfg.Video, interval: orDefault(cfg.VideoInterval, DefaultVideoInterval)}
	}
	if cfg.Audio != nil {
		r.audio = &loop{name: signals.SourceAudio, open: cfg.Audio, interval: orDefault(cfg.AudioInterval, DefaultAudioInterval)}
	}
	return r
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Start launches the producer loops and returns the handles of the recordings.
func (r *Recorder) Start(ctx context.Context) (interview.MediaRefs, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return interview.MediaRefs{}, errors.New("recorder already started")
	}
	r.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	var refs interview.MediaRefs
	if r.video != nil {
		refs.Video = VideoHandle
		r.wg.Add(1)
		go r.run(loopCtx, r.video)
	}
	if r.audio != nil {
		refs.Audio = AudioHandle
		r.wg.Add(1)
		go r.run(loopCtx, r.audio)
	}

	r.logger.Info("recording started", zap.String("video", refs.Video), zap.String("audio", refs.Audio))
	return refs, nil
}

// Stop ends both loops and waits until their devices are released. It is safe
// to call more than once.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()

	var errs []error
	for _, l := range []*loop{r.video, r.audio} {
		if l != nil && l.closeErr != nil {
			errs = append(errs, fmt.Errorf("close %s device: %w", l.name, l.closeErr))
		}
	}

	r.logger.Info("recording stopped")
	return errors.Join(errs...)
}

func (r *Recorder) run(ctx context.Context, l *loop) {
	defer r.wg.Done()

	dev, err := l.open(ctx)
	if err != nil {
		r.logger.Warn("capture device unavailable", zap.String("source", l.name), zap.Error(err))
		l.fail(err)
		return
	}
	defer func() {
		l.closeErr = dev.Close()
	}()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, err := dev.Sample(ctx)
			switch {
			case errors.Is(err, io.EOF):
				r.logger.Debug("capture stream ended", zap.String("source", l.name))
				return
			case errors.Is(err, context.Canceled):
				return
			case err != nil:
				r.logger.Warn("capture loop failed", zap.String("source", l.name), zap.Error(err))
				l.fail(err)
				return
			}
			l.add(s)
		}
	}
}

func (r *Recorder) AnalyzeVideo(_ context.Context, _ string) (map[string]any, error) {
	return features(r.video)
}

func (r *Recorder) AnalyzeAudio(_ context.Context, _ string) (map[string]any, error) {
	return features(r.audio)
}

func features(l *loop) (map[string]any, error) {
	if l == nil {
		return nil, signals.ErrNoMedia
	}

	samples, err := l.snapshot()
	if len(samples) == 0 {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("no %s samples recorded", l.name)
	}
	return Aggregate(samples), nil
}

// Aggregate averages numeric features and keeps the most frequent value of the others.
func Aggregate(samples []Sample) map[string]any {
	sums := map[string]float64{}
	counts := map[string]int{}
	votes := map[string]map[string]int{}

	for _, s := range samples {
		for key, value := range s {
			switch v := value.(type) {
			case float64:
				sums[key] += v
				counts[key]++
			case int:
				sums[key] += float64(v)
				counts[key]++
			case string:
				if votes[key] == nil {
					votes[key] = map[string]int{}
				}
				votes[key][v]++
			}
		}
	}

	out := make(map[string]any, len(sums)+len(votes))
	for key, sum := range sums {
		out[key] = sum / float64(counts[key])
	}
	for key, tally := range votes {
		best, bestCount := "", 0
		for value, n := range tally {
			if n > bestCount || (n == bestCount && value < best) {
				best, bestCount = value, n
			}
		}
		out[key] = best
	}
	out["samples"] = len(samples)
	return out
}
