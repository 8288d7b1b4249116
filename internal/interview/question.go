package interview

import (
	"strings"
	"time"
)

type QuestionType string

const (
	QuestionTechnical   QuestionType = "technical"
	QuestionBehavioral  QuestionType = "behavioral"
	QuestionSituational QuestionType = "situational"
	QuestionBasic       QuestionType = "basic"
)

type Difficulty string

const (
	DifficultyJunior Difficulty = "junior"
	DifficultyMiddle Difficulty = "middle"
	DifficultySenior Difficulty = "senior"
)

// ParseDifficulty maps free-form input onto a tier, defaulting to middle.
func ParseDifficulty(v string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "junior", "easy", "entry":
		return DifficultyJunior
	case "senior", "hard", "lead":
		return DifficultySenior
	default:
		return DifficultyMiddle
	}
}

// Question is an immutable interview question.
type Question struct {
	ID         string       `json:"id" yaml:"id" mapstructure:"id"`
	Text       string       `json:"text" yaml:"text" mapstructure:"text"`
	Type       QuestionType `json:"type" yaml:"type" mapstructure:"type"`
	Difficulty Difficulty   `json:"difficulty" yaml:"difficulty" mapstructure:"difficulty"`
	Field      string       `json:"field" yaml:"field" mapstructure:"field"`
	Keywords   []string     `json:"keywords,omitempty" yaml:"keywords" mapstructure:"keywords"`
}

// FollowUpSuffix marks the turn id of a follow-up exchange.
const FollowUpSuffix = "#followup"

// Turn is one recorded question/answer exchange.
type Turn struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	FollowUp   bool      `json:"follow_up,omitempty"`
	At         time.Time `json:"timestamp"`
}

// NewTurn records the answer to a scripted question.
func NewTurn(q Question, asked, answer string) Turn {
	return Turn{
		ID:         q.ID,
		QuestionID: q.ID,
		Question:   asked,
		Answer:     answer,
		At:         time.Now().UTC(),
	}
}

// NewFollowUpTurn records the answer to a follow-up chained to q.
func NewFollowUpTurn(q Question, asked, answer string) Turn {
	t := NewTurn(q, asked, answer)
	t.ID = q.ID + FollowUpSuffix
	t.FollowUp = true
	return t
}
