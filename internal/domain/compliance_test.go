package domain

import (
	"fmt"
	"testing"
	"time"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}
}

func TestNewControlsFromTemplate(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	tpl := &ControlTemplate{
		Framework: "ISO 27001:2022",
		Version:   "2022",
		Controls: []TemplateControl{
			{ControlID: "A.5.1", Title: "Policies for information security", Category: "Organizational"},
			{ControlID: "A.8.24", Title: "Use of cryptography", Category: "Technological"},
		},
	}

	controls, err := NewControlsFromTemplate(tpl, DefaultCompanyID, sequentialIDs(), now)
	if err != nil {
		t.Fatalf("NewControlsFromTemplate() error = %v", err)
	}
	if len(controls) != 2 {
		t.Fatalf("len = %d, want 2", len(controls))
	}
	for i, c := range controls {
		if c.Status != ControlNonCompliant {
			t.Errorf("[%d] Status = %q, want non-compliant", i, c.Status)
		}
		if c.Evidence != "" || c.Notes != "" {
			t.Errorf("[%d] evidence/notes not empty", i)
		}
		if c.Framework != tpl.Framework || c.CompanyID != DefaultCompanyID {
			t.Errorf("[%d] framework/company = %q/%q", i, c.Framework, c.CompanyID)
		}
		if !c.UpdatedAt.Equal(now) {
			t.Errorf("[%d] UpdatedAt = %v", i, c.UpdatedAt)
		}
	}
	if controls[0].ControlID != "A.5.1" || controls[1].ControlID != "A.8.24" {
		t.Error("catalog order not preserved")
	}
	if controls[0].ID == controls[1].ID {
		t.Error("ids not unique")
	}
}

func TestNewControlsFromTemplateRejectsDuplicates(t *testing.T) {
	tpl := &ControlTemplate{Framework: "X", Controls: []TemplateControl{{ControlID: "1"}, {ControlID: "1"}}}
	if _, err := NewControlsFromTemplate(tpl, "", sequentialIDs(), time.Now()); err == nil {
		t.Error("duplicate control ids accepted")
	}
	if _, err := NewControlsFromTemplate(&ControlTemplate{}, "", sequentialIDs(), time.Now()); err == nil {
		t.Error("template without framework accepted")
	}
}

func TestApplyControlUpdate(t *testing.T) {
	before := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	after := before.Add(24 * time.Hour)
	c := &ComplianceControl{ID: "c1", Status: ControlNonCompliant, UpdatedAt: before}

	status := "partial"
	evidence := "Policy v2 approved by board"
	next, err := ApplyControlUpdate(c, ControlUpdate{Status: &status, Evidence: &evidence}, after)
	if err != nil {
		t.Fatalf("ApplyControlUpdate() error = %v", err)
	}
	if next.Status != ControlPartial || next.Evidence != evidence {
		t.Errorf("next = %+v", next)
	}
	if !next.UpdatedAt.Equal(after) {
		t.Errorf("UpdatedAt = %v, want %v", next.UpdatedAt, after)
	}
	if c.Status != ControlNonCompliant {
		t.Error("original control mutated")
	}

	noop, err := ApplyControlUpdate(c, ControlUpdate{}, after)
	if err != nil || !noop.UpdatedAt.Equal(after) {
		t.Errorf("empty update did not refresh UpdatedAt: %v %v", noop.UpdatedAt, err)
	}

	bad := "done"
	if _, err := ApplyControlUpdate(c, ControlUpdate{Status: &bad}, after); err == nil {
		t.Error("invalid status accepted")
	}
}

func TestSummarize(t *testing.T) {
	mk := func(fw string, st ControlStatus) *ComplianceControl {
		return &ComplianceControl{Framework: fw, Status: st}
	}

	tests := []struct {
		name     string
		controls []*ComplianceControl
		want     ComplianceSummary
	}{
		{
			name:     "empty",
			controls: nil,
			want:     ComplianceSummary{Framework: "F"},
		},
		{
			name: "mixed",
			controls: []*ComplianceControl{
				mk("F", ControlCompliant), mk("F", ControlCompliant), mk("F", ControlPartial),
				mk("F", ControlNonCompliant), mk("F", ControlNotApplicable), mk("G", ControlCompliant),
			},
			// (2 + 0.5) / 4 = 62.5 -> 63
			want: ComplianceSummary{Framework: "F", Total: 5, Compliant: 2, Partial: 1, NonCompliant: 1, NotApplicable: 1, Percentage: 63},
		},
		{
			name:     "all not applicable",
			controls: []*ComplianceControl{mk("F", ControlNotApplicable), mk("F", ControlNotApplicable)},
			want:     ComplianceSummary{Framework: "F", Total: 2, NotApplicable: 2},
		},
		{
			name:     "fully compliant",
			controls: []*ComplianceControl{mk("F", ControlCompliant), mk("F", ControlNotApplicable)},
			want:     ComplianceSummary{Framework: "F", Total: 2, Compliant: 1, NotApplicable: 1, Percentage: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize("F", tt.controls); got != tt.want {
				t.Errorf("Summarize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
