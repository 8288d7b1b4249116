package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/spigell/interviewer/internal/interview"
)

// WritePDF writes the report of s to outPath, creating missing directories.
func WritePDF(s interview.Session, outPath string) error {
	if s.Report == nil {
		return fmt.Errorf("session %s has no report", s.ID)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure pdf directory: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Interview report "+s.Candidate.Name), false)
	pdf.SetAuthor("interviewer", false)
	pdf.AddPage()

	r := s.Report

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr("Interview report"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Candidate: %s", orDash(s.Candidate.Name))))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Position: %s", orDash(s.Candidate.Position))))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", s.CreatedAt.Local().Format("02/01/2006 15:04")))
	pdf.Ln(6)
	if r.EndedEarly {
		pdf.Cell(0, 6, "The interview was ended early by the candidate.")
		pdf.Ln(6)
	}
	pdf.Ln(6)

	writeScores(pdf, tr, r)
	pdf.Ln(6)

	writeSection(pdf, tr, "Strengths", r.Strengths, true)
	writeSection(pdf, tr, "Weaknesses", r.Weaknesses, true)
	writeSection(pdf, tr, "Recommendations", r.Recommendations, true)
	writeSection(pdf, tr, "Summary", strings.Split(r.Narrative, "\n"), false)

	if len(s.LearningResources) > 0 {
		items := make([]string, 0, len(s.LearningResources))
		for _, res := range s.LearningResources {
			items = append(items, resourceLine(res))
		}
		writeSection(pdf, tr, "Learning resources", items, true)
	}
	if s.LearningPlan != nil {
		writeSection(pdf, tr, "Study plan", strings.Split(*s.LearningPlan, "\n"), false)
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func writeScores(pdf *gofpdf.Fpdf, tr func(string) string, r *interview.Report) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Scores")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(70, 7, "Dimension", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 7, "Score", "1", 0, "C", false, 0, "")
	pdf.CellFormat(0, 7, "Comment", "1", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, ds := range r.Scores {
		pdf.CellFormat(70, 7, tr(ds.Dimension.Title()), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%.1f", ds.Score), "1", 0, "C", false, 0, "")
		pdf.CellFormat(0, 7, tr(truncate(ds.Comment, 60)), "1", 1, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(70, 7, "Overall", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 7, fmt.Sprintf("%.1f", r.OverallScore), "1", 1, "C", false, 0, "")
}

func writeSection(pdf *gofpdf.Fpdf, tr func(string) string, title string, lines []string, bullet bool) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, tr(title))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)

	written := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if bullet {
			line = "- " + line
		}
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
		written++
	}
	if written == 0 {
		pdf.MultiCell(0, 6, "(none)", "", "L", false)
	}
	pdf.Ln(4)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
