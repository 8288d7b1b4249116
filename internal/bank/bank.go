// Package bank provides question and learning resource catalogs.
package bank

import (
	"context"
	"strings"

	"github.com/spigell/interviewer/internal/interview"
)

// Query narrows a question search. Empty fields match anything.
type Query struct {
	Field      string
	Position   string
	Difficulty interview.Difficulty
	Type       interview.QuestionType
	Count      int
}

// QuestionSearcher returns questions ordered by relevance.
type QuestionSearcher interface {
	SearchQuestions(ctx context.Context, q Query) ([]interview.Question, error)
}

// ResourceSearcher returns study materials for a competency dimension.
type ResourceSearcher interface {
	SearchResources(ctx context.Context, dimension interview.Dimension, count int) ([]interview.LearningResource, error)
}

func sameFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
