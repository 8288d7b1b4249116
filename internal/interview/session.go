// Package interview holds the session aggregate threaded through the interview pipeline.
package interview

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage is one phase of the interview pipeline.
type Stage string

const (
	StageSetup        Stage = "setup"
	StageInterview    Stage = "interview"
	StageAnalysis     Stage = "analysis"
	StageReport       Stage = "report"
	StageLearningPath Stage = "learning_path"
	StageCompleted    Stage = "completed"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageSetup,
	StageInterview,
	StageAnalysis,
	StageReport,
	StageLearningPath,
	StageCompleted,
}

// Index returns the position of the stage in the pipeline or -1 for unknown values.
func (s Stage) Index() int {
	for i, stage := range Stages {
		if stage == s {
			return i
		}
	}
	return -1
}

// Next returns the stage following s. Completed has no successor.
func (s Stage) Next() (Stage, bool) {
	idx := s.Index()
	if idx < 0 || idx >= len(Stages)-1 {
		return s, false
	}
	return Stages[idx+1], true
}

// Candidate is the profile of the person being interviewed.
type Candidate struct {
	Name     string         `json:"name"`
	Position string         `json:"position"`
	Field    string         `json:"field"`
	Resume   map[string]any `json:"resume,omitempty"`
}

// MediaRefs points to recorded audio and video. Empty values mean nothing was recorded.
type MediaRefs struct {
	Video string `json:"video,omitempty"`
	Audio string `json:"audio,omitempty"`
}

// IsEmpty reports whether no media handle is set.
func (m MediaRefs) IsEmpty() bool {
	return m.Video == "" && m.Audio == ""
}

// IssueKind separates recoverable failures from terminal ones and from informational markers.
type IssueKind string

const (
	IssueSoft     IssueKind = "soft"
	IssueTerminal IssueKind = "terminal"
	IssueNotice   IssueKind = "notice"
)

// Issue is one entry of the session error log.
type Issue struct {
	Stage   Stage     `json:"stage"`
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s/%s] %s", i.Stage, i.Kind, i.Message)
}

// Session is the root aggregate of one interview attempt.
type Session struct {
	ID                   string              `json:"session_id"`
	Stage                Stage               `json:"stage"`
	Candidate            Candidate           `json:"candidate"`
	Questions            []Question          `json:"questions"`
	CurrentQuestionIndex int                 `json:"current_question_index"`
	History              []Turn              `json:"conversation_history"`
	Media                *MediaRefs          `json:"media_refs,omitempty"`
	Analysis             *MultimodalAnalysis `json:"multimodal_analysis,omitempty"`
	Report               *Report             `json:"report,omitempty"`
	LearningResources    []LearningResource  `json:"learning_resources,omitempty"`
	LearningPlan         *string             `json:"learning_plan,omitempty"`
	Errors               []Issue             `json:"errors"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// NewSession creates a session in the setup stage with a fresh identifier.
func NewSession(candidate Candidate) Session {
	now := time.Now().UTC()
	return Session{
		ID:        uuid.NewString(),
		Stage:     StageSetup,
		Candidate: candidate,
		Questions: []Question{},
		History:   []Turn{},
		Errors:    []Issue{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Record appends an issue attributed to the current stage.
func (s *Session) Record(kind IssueKind, format string, args ...any) Issue {
	return s.RecordAt(s.Stage, kind, format, args...)
}

// RecordAt appends an issue attributed to stage rather than the current one.
func (s *Session) RecordAt(stage Stage, kind IssueKind, format string, args ...any) Issue {
	issue := Issue{
		Stage:   stage,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		At:      time.Now().UTC(),
	}
	s.Errors = append(s.Errors, issue)
	return issue
}

// Failures returns soft and terminal issues, skipping notices.
func (s Session) Failures() []Issue {
	out := make([]Issue, 0, len(s.Errors))
	for _, issue := range s.Errors {
		if issue.Kind != IssueNotice {
			out = append(out, issue)
		}
	}
	return out
}

// HasTerminal reports whether a terminal issue was recorded.
func (s Session) HasTerminal() bool {
	for _, issue := range s.Errors {
		if issue.Kind == IssueTerminal {
			return true
		}
	}
	return false
}

// EndedEarly reports whether the candidate terminated the interview before the last question.
func (s Session) EndedEarly() bool {
	for _, issue := range s.Errors {
		if issue.Kind == IssueNotice && issue.Message == TerminationNotice {
			return true
		}
	}
	return false
}

// CurrentQuestion returns the question under the cursor.
func (s Session) CurrentQuestion() (Question, bool) {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentQuestionIndex], true
}

// Answers returns the answer texts in the order they were given.
func (s Session) Answers() []string {
	out := make([]string, 0, len(s.History))
	for _, turn := range s.History {
		out = append(out, turn.Answer)
	}
	return out
}

// TerminationNotice is the marker recorded when the candidate ends the interview.
const TerminationNotice = "interview ended by the candidate"
