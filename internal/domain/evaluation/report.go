package evaluation

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"perfeval/internal/domain/scoring"
)

type reportLine struct {
	label string
	value string
}

// writeReport renders one evaluation as a single-page A4 PDF.
func writeReport(w io.Writer, ev Evaluation, generatedAt time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Performance evaluation", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Performance evaluation")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	header := []reportLine{
		{"Employee", tr(ev.EmployeeName)},
		{"Period", fmt.Sprintf("%s %d", time.Month(ev.Month), ev.Year)},
		{"Type", string(ev.Type)},
	}
	if ev.Profile != "" {
		header = append(header, reportLine{"Profile", ev.Profile})
	}
	writeLines(pdf, header)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 9, fmt.Sprintf("Score: %d / 100  (%s)", ev.Score, ev.Rating))
	pdf.Ln(12)

	if ev.Type == TypeAutomated {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Breakdown")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		writeLines(pdf, breakdown(ev.Details))
		pdf.Ln(4)
	}

	if ev.Comments != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Comments")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(ev.Comments), "", "L", false)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, "Generated "+generatedAt.UTC().Format(time.RFC3339))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func breakdown(d scoring.Details) []reportLine {
	return []reportLine{
		{"Task completion", fmt.Sprintf("%.1f%%  (%d of %d tasks)", d.TaskCompletionRate, d.CompletedTasks, d.TotalTasks)},
		{"On-time delivery", fmt.Sprintf("%.1f%%  (%d of %d with deadline)", d.OnTimeDeliveryRate, d.OnTimeTasks, d.CompletedWithDeadline)},
		{"Communication", fmt.Sprintf("%.1f%%  (%d tasks with updates)", d.CommunicationScore, d.TasksWithUpdates)},
		{"Admin rating", fmt.Sprintf("%.1f%%", d.AdminRatingScore)},
		{"Update quality", fmt.Sprintf("%.1f%%", d.QualityCommunication)},
		{"Efficiency", fmt.Sprintf("%.1f%%", d.EfficiencyScore)},
	}
}

func writeLines(pdf *gofpdf.Fpdf, lines []reportLine) {
	for _, l := range lines {
		pdf.CellFormat(45, 7, l.label+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, l.value, "", 1, "L", false, 0, "")
	}
}
