package domain

import (
	"math"
	"strings"
	"time"
)

// ControlStatus is the assessed state of a compliance control.
type ControlStatus string

const (
	ControlCompliant     ControlStatus = "compliant"
	ControlPartial       ControlStatus = "partial"
	ControlNonCompliant  ControlStatus = "non-compliant"
	ControlNotApplicable ControlStatus = "not-applicable"
)

// ParseControlStatus validates a status string.
func ParseControlStatus(s string) (ControlStatus, error) {
	switch st := ControlStatus(s); st {
	case ControlCompliant, ControlPartial, ControlNonCompliant, ControlNotApplicable:
		return st, nil
	}
	return "", errInvalid("control status", s)
}

// ComplianceControl tracks one framework control for a company. ControlID is
// unique within its framework only.
type ComplianceControl struct {
	ID          string        `json:"id"`
	Framework   string        `json:"framework"`
	ControlID   string        `json:"controlId"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Status      ControlStatus `json:"status"`
	Evidence    string        `json:"evidence"`
	Notes       string        `json:"notes"`
	CompanyID   string        `json:"companyId"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// TemplateControl is one entry of a framework catalog.
type TemplateControl struct {
	ControlID   string `json:"controlId" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Category    string `json:"category" yaml:"category"`
}

// ControlTemplate is a named framework catalog with ordered controls.
type ControlTemplate struct {
	Framework string            `json:"framework" yaml:"framework"`
	Version   string            `json:"version" yaml:"version"`
	Controls  []TemplateControl `json:"controls" yaml:"controls"`
}

// NewControlsFromTemplate expands a template into fresh controls in catalog
// order. Every control starts non-compliant with empty evidence and notes.
func NewControlsFromTemplate(tpl *ControlTemplate, companyID string, newID func() string, now time.Time) ([]*ComplianceControl, error) {
	if tpl == nil || strings.TrimSpace(tpl.Framework) == "" {
		return nil, errRequired("framework")
	}
	controls := make([]*ComplianceControl, 0, len(tpl.Controls))
	seen := make(map[string]struct{}, len(tpl.Controls))
	for _, tc := range tpl.Controls {
		if tc.ControlID == "" {
			return nil, errRequired("control id")
		}
		if _, dup := seen[tc.ControlID]; dup {
			return nil, errInvalid("duplicate control id", tc.ControlID)
		}
		seen[tc.ControlID] = struct{}{}
		controls = append(controls, &ComplianceControl{
			ID:          newID(),
			Framework:   tpl.Framework,
			ControlID:   tc.ControlID,
			Title:       tc.Title,
			Description: tc.Description,
			Category:    tc.Category,
			Status:      ControlNonCompliant,
			Evidence:    "",
			Notes:       "",
			CompanyID:   companyID,
			UpdatedAt:   now,
		})
	}
	return controls, nil
}

// ControlUpdate is a partial update; nil fields are left unchanged.
type ControlUpdate struct {
	Status   *string
	Evidence *string
	Notes    *string
}

// ApplyControlUpdate returns the updated copy of c. UpdatedAt is always
// refreshed, even when no field changes.
func ApplyControlUpdate(c *ComplianceControl, u ControlUpdate, now time.Time) (*ComplianceControl, error) {
	next := *c
	if u.Status != nil {
		st, err := ParseControlStatus(*u.Status)
		if err != nil {
			return nil, err
		}
		next.Status = st
	}
	if u.Evidence != nil {
		next.Evidence = *u.Evidence
	}
	if u.Notes != nil {
		next.Notes = *u.Notes
	}
	next.UpdatedAt = now
	return &next, nil
}

// ControlRevision records one mutation of a control. Evidence and notes
// changes are stored as text patches.
type ControlRevision struct {
	ID            string        `json:"id"`
	ControlRef    string        `json:"controlRef"`
	ChangedBy     string        `json:"changedBy"`
	ChangedAt     time.Time     `json:"changedAt"`
	StatusFrom    ControlStatus `json:"statusFrom"`
	StatusTo      ControlStatus `json:"statusTo"`
	EvidencePatch string        `json:"evidencePatch,omitempty"`
	NotesPatch    string        `json:"notesPatch,omitempty"`
}

// ComplianceSummary aggregates control status counts for one framework.
type ComplianceSummary struct {
	Framework     string `json:"framework"`
	Total         int    `json:"total"`
	Compliant     int    `json:"compliant"`
	Partial       int    `json:"partial"`
	NonCompliant  int    `json:"nonCompliant"`
	NotApplicable int    `json:"notApplicable"`
	// Percentage counts partial controls as half and ignores not-applicable
	// ones. It is 0 when nothing is applicable.
	Percentage int `json:"percentage"`
}

// Summarize counts the controls of one framework.
func Summarize(framework string, controls []*ComplianceControl) ComplianceSummary {
	s := ComplianceSummary{Framework: framework}
	for _, c := range controls {
		if c.Framework != framework {
			continue
		}
		s.Total++
		switch c.Status {
		case ControlCompliant:
			s.Compliant++
		case ControlPartial:
			s.Partial++
		case ControlNonCompliant:
			s.NonCompliant++
		case ControlNotApplicable:
			s.NotApplicable++
		}
	}
	applicable := s.Total - s.NotApplicable
	if applicable > 0 {
		ratio := (float64(s.Compliant) + 0.5*float64(s.Partial)) / float64(applicable)
		s.Percentage = int(math.Round(ratio * 100))
	}
	return s
}
