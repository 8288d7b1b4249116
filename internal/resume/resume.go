// Package resume turns résumé files into a structured candidate profile.
package resume

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/utils"
)

//go:embed prompt.md
var extractPrompt string

const maxLogLength = 200

// Profile is the structured view of a résumé.
type Profile struct {
	Name            string         `mapstructure:"name"`
	Skills          []string       `mapstructure:"skills"`
	ExperienceYears float64        `mapstructure:"experience_years"`
	Education       []string       `mapstructure:"education"`
	Projects        []string       `mapstructure:"projects"`
	Summary         string         `mapstructure:"summary"`
	Raw             map[string]any `mapstructure:",remain"`
	// Text holds the original document when it could not be structured.
	Text string `mapstructure:"-"`
}

// IsEmpty reports whether nothing useful was extracted.
func (p Profile) IsEmpty() bool {
	return p.Name == "" && len(p.Skills) == 0 && p.ExperienceYears == 0 && p.Summary == "" && p.Text == ""
}

// Map flattens the profile into the loosely structured summary kept on the candidate.
func (p Profile) Map() map[string]any {
	out := make(map[string]any, len(p.Raw)+7)
	for k, v := range p.Raw {
		out[k] = v
	}
	setIf(out, "name", p.Name, p.Name != "")
	setIf(out, "skills", p.Skills, len(p.Skills) > 0)
	setIf(out, "experience_years", p.ExperienceYears, p.ExperienceYears > 0)
	setIf(out, "education", p.Education, len(p.Education) > 0)
	setIf(out, "projects", p.Projects, len(p.Projects) > 0)
	setIf(out, "summary", p.Summary, p.Summary != "")
	setIf(out, "text", p.Text, p.Text != "")
	return out
}

func setIf(m map[string]any, key string, value any, ok bool) {
	if ok {
		m[key] = value
	}
}

// FromMap decodes a loosely typed résumé summary into a Profile.
func FromMap(data map[string]any) (Profile, error) {
	var p Profile
	if len(data) == 0 {
		return p, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Profile{}, err
	}
	if err := decoder.Decode(data); err != nil {
		return Profile{}, fmt.Errorf("decode resume: %w", err)
	}
	if text, ok := p.Raw["text"].(string); ok {
		p.Text = text
		delete(p.Raw, "text")
	}
	return p, nil
}

// Parser reads résumé files. Structured files are decoded directly, anything
// else is sent to the generator for extraction.
type Parser struct {
	generator ai.Generator
	profile   ai.Profile
	logger    *zap.Logger
}

func NewParser(generator ai.Generator, profile ai.Profile, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{generator: generator, profile: profile, logger: logger}
}

// Parse returns the profile found in path. On failure the returned profile is
// still usable: it is empty or carries the raw document text.
func (p *Parser) Parse(ctx context.Context, path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read resume: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Profile{Text: string(data)}, fmt.Errorf("parse resume yaml: %w", err)
		}
		return decodeOrText(raw, data)
	case ".json":
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return Profile{Text: string(data)}, fmt.Errorf("parse resume json: %w", err)
		}
		return decodeOrText(raw, data)
	default:
		return p.extract(ctx, string(data))
	}
}

func decodeOrText(raw map[string]any, data []byte) (Profile, error) {
	profile, err := FromMap(raw)
	if err != nil {
		return Profile{Text: string(data)}, err
	}
	return profile, nil
}

func (p *Parser) extract(ctx context.Context, text string) (Profile, error) {
	text = strings.TrimSpace(text)
	fallback := Profile{Text: text}
	if text == "" {
		return Profile{}, errors.New("resume is empty")
	}
	if p.generator == nil {
		return fallback, errors.New("resume extraction is not configured")
	}

	p.logger.Debug("extracting resume",
		zap.Int("resume_length", utf8.RuneCountInString(text)),
		zap.String("resume_preview", utils.TruncateForLog(text, maxLogLength)),
	)

	raw, err := p.generator.Generate(ctx, ai.Request{System: extractPrompt, User: text, Profile: p.profile})
	if err != nil {
		return fallback, fmt.Errorf("extract resume: %w", err)
	}

	data, err := ai.DecodeObject(raw)
	if err != nil {
		return fallback, err
	}

	profile, err := FromMap(data)
	if err != nil {
		return fallback, err
	}
	return profile, nil
}
