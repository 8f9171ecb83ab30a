package evaluation

import (
	"time"

	"perfeval/internal/domain/scoring"
)

type Type string

const (
	TypeAutomated Type = "automated"
	TypeManual    Type = "manual"
)

const (
	MinYear = 2000
	MaxYear = 2100
)

type Evaluation struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"-"`
	EmployeeID   string          `json:"employeeId"`
	EmployeeName string          `json:"employeeName,omitempty"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	Type         Type            `json:"type"`
	Profile      string          `json:"profile,omitempty"`
	Score        int             `json:"score"`
	Rating       scoring.Rating  `json:"rating"`
	Details      scoring.Details `json:"details"`
	Comments     string          `json:"comments,omitempty"`
	EvaluatedBy  string          `json:"evaluatedBy,omitempty"`
	BatchID      string          `json:"batchId,omitempty"`
	ReportPath   string          `json:"-"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type Filter struct {
	EmployeeID string
	Month      int
	Year       int
	Type       Type
}

type ManualInput struct {
	EmployeeID string
	Month      int
	Year       int
	Score      int
	Comments   string
}

type BatchError struct {
	EmployeeID string `json:"employeeId"`
	Message    string `json:"message"`
}

// BatchResult summarises one automated generation run.
type BatchResult struct {
	BatchID   string       `json:"batchId"`
	Month     int          `json:"month"`
	Year      int          `json:"year"`
	Profile   string       `json:"profile"`
	Generated int          `json:"generated"`
	Failed    int          `json:"failed"`
	Errors    []BatchError `json:"errors,omitempty"`
}

type Dashboard struct {
	EmployeeID string `json:"employeeId"`
	Days       int    `json:"days"`
	scoring.Comparison
}

func validPeriod(month, year int) bool {
	return month >= 1 && month <= 12 && year >= MinYear && year <= MaxYear
}

func ValidType(t Type) bool {
	return t == TypeAutomated || t == TypeManual
}
