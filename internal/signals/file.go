package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileAnalyzer reads feature maps that an external media pipeline wrote next to
// the recording. The handle is the path of a JSON or YAML file.
type FileAnalyzer struct{}

var (
	_ VisualAnalyzer = FileAnalyzer{}
	_ AudioAnalyzer  = FileAnalyzer{}
)

func (FileAnalyzer) AnalyzeVideo(ctx context.Context, handle string) (map[string]any, error) {
	return readFeatures(ctx, handle)
}

func (FileAnalyzer) AnalyzeAudio(ctx context.Context, handle string) (map[string]any, error) {
	return readFeatures(ctx, handle)
}

func readFeatures(ctx context.Context, path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoMedia
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}

	var features map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &features)
	default:
		err = json.Unmarshal(data, &features)
	}
	if err != nil {
		return nil, fmt.Errorf("parse features %s: %w", path, err)
	}
	return features, nil
}
