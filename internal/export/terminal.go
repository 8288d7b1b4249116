// Package export renders finished sessions for people: styled terminal output and PDF files.
package export

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/spigell/interviewer/internal/interview"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	scoreStyles = []struct {
		min   float64
		style lipgloss.Style
	}{
		{min: 8, style: lipgloss.NewStyle().Foreground(lipgloss.Color("10"))},
		{min: 5, style: lipgloss.NewStyle().Foreground(lipgloss.Color("11"))},
		{min: 0, style: lipgloss.NewStyle().Foreground(lipgloss.Color("9"))},
	}
)

const barWidth = 20

func scoreStyle(score float64) lipgloss.Style {
	for _, s := range scoreStyles {
		if score >= s.min {
			return s.style
		}
	}
	return scoreStyles[len(scoreStyles)-1].style
}

// Bar draws score as a fixed width gauge.
func Bar(score float64) string {
	filled := int(interview.ClampScore(score) / interview.MaxScore * barWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// RenderTerminal formats the report, learning resources and plan of s.
func RenderTerminal(s interview.Session) string {
	var b strings.Builder

	header := fmt.Sprintf("Interview report: %s", orDash(s.Candidate.Name))
	if s.Candidate.Position != "" {
		header += " / " + s.Candidate.Position
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("session %s, %d answers", s.ID, len(s.History))))
	b.WriteString("\n")

	if s.Report == nil {
		b.WriteString(warnStyle.Render("No report was produced."))
		b.WriteString("\n")
		return b.String()
	}
	r := s.Report

	if r.EndedEarly {
		b.WriteString(warnStyle.Render("The interview was ended early by the candidate."))
		b.WriteString("\n")
	}

	var scores strings.Builder
	fmt.Fprintf(&scores, "Overall  %s\n", scoreStyle(r.OverallScore).Render(fmt.Sprintf("%.1f / 10", r.OverallScore)))
	for _, ds := range r.Scores {
		fmt.Fprintf(&scores, "%-22s %s %s\n",
			ds.Dimension.Title(),
			scoreStyle(ds.Score).Render(Bar(ds.Score)),
			fmt.Sprintf("%4.1f", ds.Score),
		)
	}
	b.WriteString(boxStyle.Render(strings.TrimRight(scores.String(), "\n")))
	b.WriteString("\n")

	writeList(&b, "Strengths", r.Strengths)
	writeList(&b, "Weaknesses", r.Weaknesses)
	writeList(&b, "Recommendations", r.Recommendations)

	b.WriteString(sectionStyle.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(r.Narrative)
	b.WriteString("\n")

	if len(s.LearningResources) > 0 {
		items := make([]string, 0, len(s.LearningResources))
		for _, res := range s.LearningResources {
			items = append(items, resourceLine(res))
		}
		writeList(&b, "Learning resources", items)
	}
	if s.LearningPlan != nil && *s.LearningPlan != "" {
		b.WriteString(sectionStyle.Render("Study plan"))
		b.WriteString("\n")
		b.WriteString(*s.LearningPlan)
		b.WriteString("\n")
	}

	if failures := s.Failures(); len(failures) > 0 {
		items := make([]string, 0, len(failures))
		for _, f := range failures {
			items = append(items, f.String())
		}
		b.WriteString(sectionStyle.Render("Degraded steps"))
		b.WriteString("\n")
		for _, item := range items {
			b.WriteString(dimStyle.Render("  " + item))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	b.WriteString(sectionStyle.Render(title))
	b.WriteString("\n")
	for _, item := range items {
		b.WriteString("  - ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}

func resourceLine(r interview.LearningResource) string {
	line := r.Title
	if r.Kind != "" {
		line += " (" + r.Kind + ")"
	}
	if r.URL != "" {
		line += " " + r.URL
	}
	return line
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
