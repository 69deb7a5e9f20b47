package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
)

// Severity grades a VAPT finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity, most severe first.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// ParseSeverity validates a severity string.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(s); sev {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return sev, nil
	}
	return "", errInvalid("severity", s)
}

// ReportStatus is the authoring state of a VAPT report.
type ReportStatus string

const (
	ReportDraft      ReportStatus = "draft"
	ReportInProgress ReportStatus = "in-progress"
	ReportCompleted  ReportStatus = "completed"
)

// ParseReportStatus validates a status string.
func ParseReportStatus(s string) (ReportStatus, error) {
	switch st := ReportStatus(s); st {
	case ReportDraft, ReportInProgress, ReportCompleted:
		return st, nil
	}
	return "", errInvalid("report status", s)
}

// Finding is one vulnerability in a report.
type Finding struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Evidence    string   `json:"evidence"`
	Remediation string   `json:"remediation"`
	CVSS        float64  `json:"cvss"`
}

// Validate checks the finding's title, severity and CVSS range.
func (f *Finding) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return errRequired("finding title")
	}
	if _, err := ParseSeverity(string(f.Severity)); err != nil {
		return err
	}
	if math.IsNaN(f.CVSS) || f.CVSS < 0 || f.CVSS > 10 {
		return apperrors.Validation(fmt.Sprintf("cvss must be between 0.0 and 10.0, got %v", f.CVSS))
	}
	return nil
}

// VAPTReport is a vulnerability assessment report. Findings are kept in
// insertion order, which is also the report order.
type VAPTReport struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	ClientName string       `json:"clientName"`
	Summary    string       `json:"summary"`
	Findings   []Finding    `json:"findings"`
	Status     ReportStatus `json:"status"`
	CompanyID  string       `json:"companyId"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// NewReportInput carries the caller-supplied fields for a new report.
type NewReportInput struct {
	Title      string
	ClientName string
	Summary    string
	CompanyID  string
}

// NewVAPTReport builds a draft report with no findings.
func NewVAPTReport(id string, in NewReportInput, now time.Time) (*VAPTReport, error) {
	if err := required("report title", in.Title); err != nil {
		return nil, err
	}
	return &VAPTReport{
		ID:         id,
		Title:      strings.TrimSpace(in.Title),
		ClientName: in.ClientName,
		Summary:    in.Summary,
		Findings:   []Finding{},
		Status:     ReportDraft,
		CompanyID:  in.CompanyID,
		CreatedAt:  now,
	}, nil
}

// AddFinding appends f after validating it.
func (r *VAPTReport) AddFinding(f Finding) error {
	if err := f.Validate(); err != nil {
		return err
	}
	r.Findings = append(r.Findings, f)
	return nil
}

// ReplaceFinding swaps the finding with f.ID in place.
func (r *VAPTReport) ReplaceFinding(f Finding) error {
	if err := f.Validate(); err != nil {
		return err
	}
	for i := range r.Findings {
		if r.Findings[i].ID == f.ID {
			r.Findings[i] = f
			return nil
		}
	}
	return apperrors.NotFound("finding", f.ID)
}

// RemoveFinding deletes a finding and keeps the order of the rest.
func (r *VAPTReport) RemoveFinding(id string) error {
	for i := range r.Findings {
		if r.Findings[i].ID == id {
			r.Findings = append(r.Findings[:i:i], r.Findings[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("finding", id)
}

// SeverityCounts tallies findings per severity. Every severity is present.
func (r *VAPTReport) SeverityCounts() map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	for _, s := range Severities {
		counts[s] = 0
	}
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}
