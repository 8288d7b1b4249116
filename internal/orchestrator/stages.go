package orchestrator

import (
	"context"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/evaluate"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/report"
	"github.com/spigell/interviewer/internal/scoring"
)

// issueLog buffers the issues of one stage. Terminal issues are committed
// ahead of the others so they lead the stage's entries.
type issueLog struct {
	log     *zap.Logger
	pending []pendingIssue
}

type pendingIssue struct {
	kind    interview.IssueKind
	message string
}

func (l *issueLog) add(kind interview.IssueKind, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch kind {
	case interview.IssueNotice:
		l.log.Info(msg)
	default:
		l.log.Warn(msg, zap.String("kind", string(kind)))
	}
	l.pending = append(l.pending, pendingIssue{kind: kind, message: msg})
}

func (l *issueLog) commit(s *interview.Session) {
	for _, terminal := range []bool{true, false} {
		for _, p := range l.pending {
			if (p.kind == interview.IssueTerminal) == terminal {
				s.Record(p.kind, "%s", p.message)
			}
		}
	}
	l.pending = nil
}

func (o *Orchestrator) issues(s interview.Session) *issueLog {
	return &issueLog{log: logger.WithSession(o.logger, s.ID, string(s.Stage))}
}

func (o *Orchestrator) setup(ctx context.Context, s interview.Session, req Request) interview.Session {
	issues := o.issues(s)

	if req.ResumePath != "" && o.deps.Resumes != nil {
		profile, err := o.deps.Resumes.Parse(ctx, req.ResumePath)
		if err != nil {
			issues.add(interview.IssueSoft, "resume parsing failed: %v", err)
		}
		s.Candidate = mergeResume(s.Candidate, profile.Map())
		if s.Candidate.Name == "" {
			s.Candidate.Name = profile.Name
		}
	}

	if o.deps.Questions != nil {
		qs, err := o.deps.Questions.Questions(ctx, s.Candidate)
		if err != nil {
			issues.add(interview.IssueSoft, "question selection degraded: %v", err)
		}
		s.Questions = append(s.Questions[:0:0], qs...)
	}
	s.CurrentQuestionIndex = 0

	if len(s.Questions) == 0 {
		issues.add(interview.IssueTerminal, "no usable questions")
	}
	issues.commit(&s)
	return s
}

// mergeResume keeps values the caller supplied and adds the parsed ones.
func mergeResume(c interview.Candidate, parsed map[string]any) interview.Candidate {
	if len(parsed) == 0 {
		return c
	}
	merged := maps.Clone(parsed)
	maps.Copy(merged, c.Resume)
	c.Resume = merged
	return c
}

func (o *Orchestrator) interview(ctx context.Context, s interview.Session, req Request) interview.Session {
	issues := o.issues(s)

	var rec Recorder
	if o.recorders != nil {
		rec = o.recorders()
	}
	if rec != nil {
		refs, err := rec.Start(ctx)
		if err != nil {
			issues.add(interview.IssueSoft, "media capture unavailable: %v", err)
			rec = nil
		} else {
			s.Media = &refs
		}
	} else if req.Media != nil && !req.Media.IsEmpty() {
		refs := *req.Media
		s.Media = &refs
	}

	terminated := o.converse(ctx, &s, issues)

	if rec != nil {
		if err := rec.Stop(); err != nil {
			issues.add(interview.IssueSoft, "media capture stopped with error: %v", err)
		}
	}

	if terminated {
		issues.add(interview.IssueNotice, interview.TerminationNotice)
	}
	if len(s.History) == 0 {
		issues.add(interview.IssueTerminal, "no answers were recorded")
	}
	issues.commit(&s)

	if terminated {
		s.Stage = interview.StageAnalysis
	}
	return s
}

// converse asks every remaining question and reports whether the candidate
// ended the interview.
func (o *Orchestrator) converse(ctx context.Context, s *interview.Session, issues *issueLog) bool {
	if o.deps.Answers == nil {
		if len(s.Questions) > 0 {
			issues.add(interview.IssueSoft, "no answer source configured")
		}
		return false
	}

	total := len(s.Questions)
	for s.CurrentQuestionIndex < total {
		if err := ctx.Err(); err != nil {
			issues.add(interview.IssueSoft, "interview interrupted: %v", err)
			return false
		}

		q, ok := s.CurrentQuestion()
		if !ok {
			break
		}
		idx := s.CurrentQuestionIndex
		prompt := Prompt{Question: q, Text: q.Text, Index: idx, Total: total, Last: idx == total-1}

		answer, err := o.deps.Answers.Ask(ctx, prompt)
		if err != nil {
			issues.add(interview.IssueSoft, "answer input failed: %v", err)
			return false
		}
		if o.IsTermination(answer) {
			return true
		}

		s.History = append(s.History, interview.NewTurn(q, q.Text, answer))
		o.observe(*s)

		decision := o.evaluate(ctx, q, answer, issues)
		if decision.FollowUp && decision.Question != "" {
			prompt.Text = decision.Question
			prompt.FollowUp = true

			followUp, err := o.deps.Answers.Ask(ctx, prompt)
			if err != nil {
				s.CurrentQuestionIndex++
				issues.add(interview.IssueSoft, "answer input failed: %v", err)
				return false
			}
			if o.IsTermination(followUp) {
				s.CurrentQuestionIndex++
				return true
			}
			s.History = append(s.History, interview.NewFollowUpTurn(q, decision.Question, followUp))
		}

		s.CurrentQuestionIndex++
		o.observe(*s)
	}
	return false
}

func (o *Orchestrator) evaluate(ctx context.Context, q interview.Question, answer string, issues *issueLog) evaluate.Decision {
	if o.deps.Evaluator == nil {
		return evaluate.Decision{}
	}
	decision, err := o.deps.Evaluator.Evaluate(ctx, q, answer)
	if err != nil {
		issues.add(interview.IssueSoft, "follow-up generation for %s failed: %v", q.ID, err)
	}
	return decision
}

func (o *Orchestrator) analysis(ctx context.Context, s interview.Session) interview.Session {
	issues := o.issues(s)

	collected := o.deps.Signals.Collect(ctx, s.Media, s.History)
	for _, err := range collected.Failures {
		issues.add(interview.IssueSoft, "%v", err)
	}

	assessment, err := o.deps.Scorer.Score(ctx, scoring.Input{
		Position: s.Candidate.Position,
		History:  s.History,
		Visual:   collected.Visual,
		Audio:    collected.Audio,
		Text:     collected.Text,
	})
	if err != nil {
		issues.add(interview.IssueSoft, "assessment degraded: %v", err)
	}

	s.Analysis = &interview.MultimodalAnalysis{
		Visual:     collected.Visual,
		Audio:      collected.Audio,
		Text:       collected.Text,
		Assessment: assessment,
	}
	issues.commit(&s)
	return s
}

func (o *Orchestrator) report(ctx context.Context, s interview.Session) interview.Session {
	issues := o.issues(s)

	assessment := interview.NeutralAssessment(scoring.NotAssessedComment)
	if s.Analysis != nil {
		assessment = s.Analysis.Assessment
	}

	r, err := o.deps.Reports.Build(ctx, report.Input{
		Candidate:  s.Candidate,
		Assessment: assessment,
		EndedEarly: s.EndedEarly(),
	})
	if err != nil {
		issues.add(interview.IssueSoft, "report narrative unavailable: %v", err)
	}
	s.Report = &r
	issues.commit(&s)
	return s
}

func (o *Orchestrator) learningPath(ctx context.Context, s interview.Session) interview.Session {
	issues := o.issues(s)

	var scores []interview.DimensionScore
	if s.Report != nil {
		scores = s.Report.Scores
	}

	res := o.deps.Planner.Plan(ctx, s.Candidate, scores)
	for _, err := range res.Failures {
		issues.add(interview.IssueSoft, "%v", err)
	}

	s.LearningResources = res.Resources
	plan := res.Plan
	s.LearningPlan = &plan
	issues.commit(&s)
	return s
}
