package evaluation

import (
	"bytes"
	"testing"
	"time"

	"perfeval/internal/domain/scoring"
)

func TestWriteReportProducesPDF(t *testing.T) {
	ev := Evaluation{
		ID:           "ev-1",
		EmployeeName: "Zoë Ångström",
		Month:        4,
		Year:         2025,
		Type:         TypeAutomated,
		Profile:      scoring.ProfileStandard,
		Score:        82,
		Rating:       scoring.RatingGood,
		Details:      scoring.Details{TaskCompletionRate: 80, TotalTasks: 5, CompletedTasks: 4},
		Comments:     "Consistent delivery.",
	}
	var buf bytes.Buffer
	if err := writeReport(&buf, ev, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("write report: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected PDF header, got %q", buf.Bytes()[:8])
	}
}
