// Package orchestrator drives an interview session through its stages.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/evaluate"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/learning"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/report"
	"github.com/spigell/interviewer/internal/resume"
	"github.com/spigell/interviewer/internal/scoring"
	"github.com/spigell/interviewer/internal/signals"
	"github.com/spigell/interviewer/internal/store"
	"github.com/spigell/interviewer/internal/utils"
)

const persistTimeout = 10 * time.Second

// ErrInsufficientData is returned by Run when the session completed without
// questions or without answers.
var ErrInsufficientData = errors.New("insufficient data to assess the candidate")

// DefaultTerminationPhrases end the interview when typed as the whole answer.
var DefaultTerminationPhrases = []string{
	"exit",
	"quit",
	"stop",
	"stop interview",
	"end interview",
	"end the interview",
}

type QuestionSource interface {
	Questions(ctx context.Context, candidate interview.Candidate) ([]interview.Question, error)
}

type ResumeParser interface {
	Parse(ctx context.Context, path string) (resume.Profile, error)
}

type AnswerEvaluator interface {
	Evaluate(ctx context.Context, q interview.Question, answer string) (evaluate.Decision, error)
}

type SignalCollector interface {
	Collect(ctx context.Context, media *interview.MediaRefs, history []interview.Turn) signals.Result
}

type AssessmentScorer interface {
	Score(ctx context.Context, in scoring.Input) (interview.Assessment, error)
}

type ReportBuilder interface {
	Build(ctx context.Context, in report.Input) (interview.Report, error)
}

type LearningPlanner interface {
	Plan(ctx context.Context, candidate interview.Candidate, scores []interview.DimensionScore) learning.Result
}

// Recorder captures media for the duration of the interview stage.
type Recorder interface {
	Start(ctx context.Context) (interview.MediaRefs, error)
	Stop() error
}

// Prompt is what the candidate is asked. Last and FollowUp are independent:
// the last scripted question may still get a follow-up.
type Prompt struct {
	Question interview.Question
	Text     string
	Index    int
	Total    int
	Last     bool
	FollowUp bool
}

// AnswerSource delivers the candidate's answers.
type AnswerSource interface {
	Ask(ctx context.Context, p Prompt) (string, error)
}

// Deps aggregates the collaborators used by the stages. Nil members degrade
// the corresponding stage instead of failing it.
type Deps struct {
	Questions QuestionSource
	Resumes   ResumeParser
	Answers   AnswerSource
	Evaluator AnswerEvaluator
	Signals   SignalCollector
	Scorer    AssessmentScorer
	Reports   ReportBuilder
	Planner   LearningPlanner
}

// Request starts one interview.
type Request struct {
	Candidate  interview.Candidate
	ResumePath string
	// Media points at existing recordings when no recorder is configured.
	Media *interview.MediaRefs
}

// Observer receives the session after every turn and every stage transition.
type Observer func(interview.Session)

type Option func(*Orchestrator)

func WithStore(st store.Store) Option {
	return func(o *Orchestrator) { o.store = st }
}

func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, fn) }
}

// WithRecorder sets a factory producing one recorder per run.
func WithRecorder(factory func() Recorder) Option {
	return func(o *Orchestrator) { o.recorders = factory }
}

func WithTerminationPhrases(phrases []string) Option {
	return func(o *Orchestrator) {
		if len(phrases) > 0 {
			o.termination = normalizePhrases(phrases)
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// Orchestrator holds no session state between runs, so distinct sessions may
// run concurrently on one instance as long as the collaborators allow it.
type Orchestrator struct {
	deps        Deps
	store       store.Store
	observers   []Observer
	recorders   func() Recorder
	termination map[string]struct{}
	logger      *zap.Logger
}

func New(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:        deps,
		termination: normalizePhrases(DefaultTerminationPhrases),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.deps.Signals == nil {
		o.deps.Signals = signals.NewCollector(nil, nil, o.logger)
	}
	if o.deps.Scorer == nil {
		o.deps.Scorer = scoring.New(nil, ai.Precise, o.logger)
	}
	if o.deps.Reports == nil {
		o.deps.Reports = report.NewBuilder(nil, ai.Creative, nil, o.logger)
	}
	if o.deps.Planner == nil {
		o.deps.Planner = learning.NewPlanner(nil, nil, ai.Creative, nil, learning.Config{}, o.logger)
	}
	return o
}

func normalizePhrases(phrases []string) map[string]struct{} {
	out := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		if p = utils.Normalize(p); p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

// IsTermination reports whether answer is one of the termination phrases.
func (o *Orchestrator) IsTermination(answer string) bool {
	_, ok := o.termination[utils.Normalize(strings.TrimRight(strings.TrimSpace(answer), ".!"))]
	return ok
}

type stageFunc func(ctx context.Context, s interview.Session) interview.Session

// Run executes the whole pipeline for req. The returned session is always in
// the completed stage. The error is ErrInsufficientData when no questions or
// answers were available, or a store error when the session could not be created.
func (o *Orchestrator) Run(ctx context.Context, req Request) (interview.Session, error) {
	s := interview.NewSession(req.Candidate)
	log := logger.WithSession(o.logger, s.ID, "")

	if o.store != nil {
		if err := o.store.Create(ctx, s); err != nil {
			s.Record(interview.IssueTerminal, "session could not be stored: %v", err)
			s.Stage = interview.StageCompleted
			return s, fmt.Errorf("create session: %w", err)
		}
	}

	log.Info("interview started",
		zap.String("candidate", req.Candidate.Name),
		zap.String("position", req.Candidate.Position),
	)
	o.observe(s)

	stages := map[interview.Stage]stageFunc{
		interview.StageSetup: func(ctx context.Context, s interview.Session) interview.Session {
			return o.setup(ctx, s, req)
		},
		interview.StageInterview: func(ctx context.Context, s interview.Session) interview.Session {
			return o.interview(ctx, s, req)
		},
		interview.StageAnalysis:     o.analysis,
		interview.StageReport:       o.report,
		interview.StageLearningPath: o.learningPath,
	}

	for s.Stage != interview.StageCompleted {
		from := s.Stage
		run, ok := stages[from]
		if !ok {
			// Unknown stages cannot be produced by the stage functions.
			panic(fmt.Sprintf("no stage function for %q", from))
		}

		s = run(ctx, s)

		// A stage may already have moved the session forward, as the interview
		// does on candidate termination.
		if s.Stage == from {
			next, _ := from.Next()
			s.Stage = next
		}
		s.UpdatedAt = time.Now().UTC()

		log.Info("stage transition",
			zap.String("from", string(from)),
			zap.String("to", string(s.Stage)),
			zap.Int("errors", len(s.Errors)),
		)

		s = o.persist(ctx, s, from, log)
		o.observe(s)
	}

	if s.HasTerminal() {
		return s, ErrInsufficientData
	}
	return s, nil
}

// persist saves the session after the from stage finished. It outlives a
// cancelled run so that an interrupted interview still lands in the store.
func (o *Orchestrator) persist(ctx context.Context, s interview.Session, from interview.Stage, log *zap.Logger) interview.Session {
	if o.store == nil {
		return s
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := o.store.Update(ctx, s); err != nil {
		log.Warn("session could not be persisted", zap.String("stage", string(from)), zap.Error(err))
		s.RecordAt(from, interview.IssueSoft, "session could not be persisted: %v", err)
	}
	return s
}

func (o *Orchestrator) observe(s interview.Session) {
	for _, fn := range o.observers {
		fn(s)
	}
}
