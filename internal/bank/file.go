package bank

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/interviewer/internal/interview"
)

type questionEntry struct {
	interview.Question `yaml:",inline"`
	Positions          []string `yaml:"positions"`
}

type questionFile struct {
	Questions []questionEntry `yaml:"questions"`
}

type resourceFile struct {
	Resources []interview.LearningResource `yaml:"resources"`
}

// FileBank serves questions and resources from YAML catalogs loaded once.
type FileBank struct {
	questions []questionEntry
	resources []interview.LearningResource
	logger    *zap.Logger
}

var (
	_ QuestionSearcher = (*FileBank)(nil)
	_ ResourceSearcher = (*FileBank)(nil)
)

// LoadFiles reads the question and resource catalogs. Either path may be empty.
func LoadFiles(questionsPath, resourcesPath string, logger *zap.Logger) (*FileBank, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &FileBank{logger: logger}

	if strings.TrimSpace(questionsPath) != "" {
		var qf questionFile
		if err := readYAML(questionsPath, &qf); err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
		for i, q := range qf.Questions {
			if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.Text) == "" {
				return nil, fmt.Errorf("question #%d in %s: id and text are required", i+1, questionsPath)
			}
			if q.Type == "" {
				qf.Questions[i].Type = interview.QuestionTechnical
			}
			qf.Questions[i].Difficulty = interview.ParseDifficulty(string(q.Difficulty))
		}
		b.questions = qf.Questions
	}

	if strings.TrimSpace(resourcesPath) != "" {
		var rf resourceFile
		if err := readYAML(resourcesPath, &rf); err != nil {
			return nil, fmt.Errorf("load resources: %w", err)
		}
		b.resources = rf.Resources
	}

	logger.Debug("question bank loaded",
		zap.Int("questions", len(b.questions)),
		zap.Int("resources", len(b.resources)),
	)

	return b, nil
}

func readYAML(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// SearchQuestions filters by type and field, then ranks exact difficulty and
// position matches first. Catalog order breaks ties.
func (b *FileBank) SearchQuestions(ctx context.Context, q Query) ([]interview.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type ranked struct {
		question interview.Question
		rank     int
	}

	matches := make([]ranked, 0, len(b.questions))
	for _, entry := range b.questions {
		if q.Type != "" && entry.Type != q.Type {
			continue
		}
		if q.Field != "" && entry.Field != "" && !sameFold(entry.Field, q.Field) {
			continue
		}

		rank := 0
		if q.Difficulty != "" && entry.Difficulty == q.Difficulty {
			rank += 2
		}
		if q.Position != "" && slices.ContainsFunc(entry.Positions, func(p string) bool { return sameFold(p, q.Position) }) {
			rank++
		}
		matches = append(matches, ranked{question: entry.Question, rank: rank})
	}

	slices.SortStableFunc(matches, func(a, b ranked) int { return b.rank - a.rank })

	limit := len(matches)
	if q.Count > 0 && q.Count < limit {
		limit = q.Count
	}

	out := make([]interview.Question, 0, limit)
	for _, m := range matches[:limit] {
		out = append(out, m.question)
	}
	return out, nil
}

// SearchResources returns up to count resources tagged with dimension.
func (b *FileBank) SearchResources(ctx context.Context, dimension interview.Dimension, count int) ([]interview.LearningResource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]interview.LearningResource, 0, count)
	for _, r := range b.resources {
		if r.Dimension != dimension {
			continue
		}
		out = append(out, r)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out, nil
}
