package signals

import (
	"strings"
	"unicode/utf8"

	"github.com/spigell/interviewer/internal/interview"
)

// TechnicalTerms is the vocabulary counted in answers.
var TechnicalTerms = []string{
	"algorithm", "api", "architecture", "cache", "concurrency", "container",
	"database", "deployment", "docker", "framework", "index", "interface",
	"kubernetes", "latency", "microservice", "monitoring", "optimization",
	"pipeline", "protocol", "query", "queue", "refactor", "scalability",
	"schema", "test", "thread", "throughput", "transaction",
}

// StarMarkers evidence the situation, task, action and result parts of a structured answer.
var StarMarkers = map[string][]string{
	"situation": {"situation", "at the time", "the context", "background", "when i was"},
	"task":      {"task", "my goal", "the goal", "my role", "responsible for", "needed to"},
	"action":    {"i implemented", "i built", "i decided", "i designed", "we implemented", "i introduced", "i led"},
	"result":    {"result", "outcome", "improved", "reduced", "increased", "we achieved"},
}

var starOrder = []string{"situation", "task", "action", "result"}

// TextBundle computes the deterministic text features of history.
func TextBundle(history []interview.Turn) interview.SignalBundle {
	answers := make([]string, 0, len(history))
	totalLen := 0
	for _, turn := range history {
		answers = append(answers, strings.ToLower(turn.Answer))
		totalLen += utf8.RuneCountInString(strings.TrimSpace(turn.Answer))
	}

	avg := 0.0
	if len(answers) > 0 {
		avg = float64(totalLen) / float64(len(answers))
	}

	return interview.SignalBundle{
		Source: SourceText,
		Features: map[string]any{
			"answer_count":         len(answers),
			"avg_answer_length":    avg,
			"technical_term_count": countTerms(answers),
			"star_completeness":    starCompleteness(answers),
		},
	}
}

func countTerms(answers []string) int {
	count := 0
	for _, answer := range answers {
		for _, term := range TechnicalTerms {
			count += strings.Count(answer, term)
		}
	}
	return count
}

func starCompleteness(answers []string) float64 {
	joined := strings.Join(answers, "\n")
	found := 0
	for _, part := range starOrder {
		for _, marker := range StarMarkers[part] {
			if strings.Contains(joined, marker) {
				found++
				break
			}
		}
	}
	return float64(found) / float64(len(starOrder))
}
