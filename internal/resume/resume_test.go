package resume

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spigell/interviewer/internal/ai"
)

type stubGenerator struct {
	response string
	err      error
	requests []ai.Request
}

func (s *stubGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	s.requests = append(s.requests, req)
	return s.response, s.err
}

func writeResume(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write resume: %v", err)
	}
	return path
}

func TestParseYAMLResume(t *testing.T) {
	t.Parallel()

	path := writeResume(t, "cv.yaml", `
name: Ann Lee
skills: [go, kubernetes]
experience_years: "7"
github: annlee
`)

	gen := &stubGenerator{}
	profile, err := NewParser(gen, ai.Precise, nil).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if profile.Name != "Ann Lee" || len(profile.Skills) != 2 || profile.ExperienceYears != 7 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.Raw["github"] != "annlee" {
		t.Fatalf("expected unknown keys to be kept, got %+v", profile.Raw)
	}
	if len(gen.requests) != 0 {
		t.Fatalf("structured resumes must not call the generator")
	}

	m := profile.Map()
	if m["github"] != "annlee" || m["experience_years"] != 7.0 {
		t.Fatalf("unexpected map view: %+v", m)
	}
}

func TestParseTextResumeUsesGenerator(t *testing.T) {
	t.Parallel()

	path := writeResume(t, "cv.txt", "Ann Lee. Go developer since 2019.")
	gen := &stubGenerator{response: "```json\n{\"name\":\"Ann Lee\",\"skills\":[\"go\"],\"experience_years\":5}\n```"}

	profile, err := NewParser(gen, ai.Precise, nil).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Name != "Ann Lee" || profile.ExperienceYears != 5 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if len(gen.requests) != 1 || gen.requests[0].Profile.Name != ai.Precise.Name {
		t.Fatalf("expected one precise extraction request, got %+v", gen.requests)
	}
}

func TestParseDegradesToRawText(t *testing.T) {
	t.Parallel()

	path := writeResume(t, "cv.txt", "Some free form text")

	cases := map[string]*stubGenerator{
		"generator error":  {err: errors.New("timeout")},
		"malformed output": {response: "not json"},
	}

	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			profile, err := NewParser(gen, ai.Precise, nil).Parse(context.Background(), path)
			if err == nil {
				t.Fatal("expected error")
			}
			if profile.Text != "Some free form text" || profile.Name != "" {
				t.Fatalf("expected raw text fallback, got %+v", profile)
			}
		})
	}
}

func TestFromMapRestoresText(t *testing.T) {
	t.Parallel()

	p, err := FromMap(map[string]any{"text": "raw cv", "summary": "Backend dev"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Text != "raw cv" || p.Summary != "Backend dev" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if _, ok := p.Raw["text"]; ok {
		t.Fatalf("text must not stay in raw fields")
	}

	if empty, _ := FromMap(nil); !empty.IsEmpty() {
		t.Fatalf("expected empty profile")
	}
}
