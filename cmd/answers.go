package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/spigell/interviewer/internal/orchestrator"
)

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	followUpStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("14"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// newAnswerSource uses an interactive prompt on a terminal and plain lines
// otherwise, so answers can be piped in.
func newAnswerSource(in io.Reader, out io.Writer, interactive bool) orchestrator.AnswerSource {
	if interactive {
		return &promptAnswers{out: out}
	}
	return newLineAnswers(in, out)
}

func printPrompt(out io.Writer, p orchestrator.Prompt) {
	if p.FollowUp {
		fmt.Fprintf(out, "\n%s\n", followUpStyle.Render("Follow-up: "+p.Text))
		return
	}
	header := fmt.Sprintf("Question %d/%d", p.Index+1, p.Total)
	if p.Last {
		header += ", last one"
	}
	fmt.Fprintf(out, "\n%s\n%s\n", hintStyle.Render(header), questionStyle.Render(p.Text))
}

type promptAnswers struct {
	out io.Writer
}

func (a *promptAnswers) Ask(ctx context.Context, p orchestrator.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	printPrompt(a.out, p)

	input := promptui.Prompt{Label: "Answer"}
	answer, err := input.Run()
	if err != nil {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return answer, nil
}

type lineAnswers struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newLineAnswers(in io.Reader, out io.Writer) *lineAnswers {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &lineAnswers{scanner: scanner, out: out}
}

// Ask reads one line. Blank lines are skipped.
func (a *lineAnswers) Ask(ctx context.Context, p orchestrator.Prompt) (string, error) {
	printPrompt(a.out, p)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !a.scanner.Scan() {
			if err := a.scanner.Err(); err != nil {
				return "", fmt.Errorf("read answer: %w", err)
			}
			return "", fmt.Errorf("read answer: %w", io.EOF)
		}
		if line := strings.TrimSpace(a.scanner.Text()); line != "" {
			return line, nil
		}
	}
}

func confirm(label string) (bool, error) {
	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptYes, PromptNo},
	}
	_, choice, err := prompt.Run()
	if err != nil {
		return false, err
	}
	return choice == PromptYes, nil
}
