package domain

import (
	"math"
	"testing"
	"time"
)

func TestNewVAPTReport(t *testing.T) {
	r, err := NewVAPTReport("r1", NewReportInput{Title: "Q3 external test", ClientName: "Acme"}, time.Now())
	if err != nil {
		t.Fatalf("NewVAPTReport() error = %v", err)
	}
	if r.Status != ReportDraft {
		t.Errorf("Status = %q, want draft", r.Status)
	}
	if r.Findings == nil || len(r.Findings) != 0 {
		t.Errorf("Findings = %#v, want empty non-nil", r.Findings)
	}

	if _, err := NewVAPTReport("r2", NewReportInput{}, time.Now()); err == nil {
		t.Error("report without title accepted")
	}
}

func TestFindingValidate(t *testing.T) {
	tests := []struct {
		name    string
		f       Finding
		wantErr bool
	}{
		{name: "valid", f: Finding{Title: "SQLi", Severity: SeverityCritical, CVSS: 9.8}},
		{name: "zero cvss", f: Finding{Title: "Banner", Severity: SeverityInfo, CVSS: 0}},
		{name: "max cvss", f: Finding{Title: "RCE", Severity: SeverityCritical, CVSS: 10}},
		{name: "missing title", f: Finding{Severity: SeverityLow}, wantErr: true},
		{name: "bad severity", f: Finding{Title: "x", Severity: "urgent"}, wantErr: true},
		{name: "negative cvss", f: Finding{Title: "x", Severity: SeverityLow, CVSS: -0.1}, wantErr: true},
		{name: "cvss above ten", f: Finding{Title: "x", Severity: SeverityLow, CVSS: 10.1}, wantErr: true},
		{name: "nan cvss", f: Finding{Title: "x", Severity: SeverityLow, CVSS: math.NaN()}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.f.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFindingsKeepInsertionOrder(t *testing.T) {
	r, _ := NewVAPTReport("r1", NewReportInput{Title: "t"}, time.Now())
	in := []Finding{
		{ID: "f1", Title: "Info leak", Severity: SeverityInfo},
		{ID: "f2", Title: "RCE", Severity: SeverityCritical, CVSS: 9.9},
		{ID: "f3", Title: "XSS", Severity: SeverityMedium, CVSS: 5.4},
		{ID: "f4", Title: "Weak TLS", Severity: SeverityLow, CVSS: 3.1},
	}
	for _, f := range in {
		if err := r.AddFinding(f); err != nil {
			t.Fatalf("AddFinding(%s) error = %v", f.ID, err)
		}
	}
	assertOrder(t, r, "f1", "f2", "f3", "f4")

	updated := in[2]
	updated.Severity = SeverityHigh
	if err := r.ReplaceFinding(updated); err != nil {
		t.Fatalf("ReplaceFinding() error = %v", err)
	}
	assertOrder(t, r, "f1", "f2", "f3", "f4")
	if r.Findings[2].Severity != SeverityHigh {
		t.Error("finding not replaced in place")
	}

	if err := r.RemoveFinding("f2"); err != nil {
		t.Fatalf("RemoveFinding() error = %v", err)
	}
	assertOrder(t, r, "f1", "f3", "f4")

	if err := r.RemoveFinding("missing"); err == nil {
		t.Error("removing unknown finding succeeded")
	}
}

func assertOrder(t *testing.T, r *VAPTReport, ids ...string) {
	t.Helper()
	if len(r.Findings) != len(ids) {
		t.Fatalf("len(Findings) = %d, want %d", len(r.Findings), len(ids))
	}
	for i, id := range ids {
		if r.Findings[i].ID != id {
			t.Errorf("Findings[%d] = %s, want %s", i, r.Findings[i].ID, id)
		}
	}
}

func TestSeverityCounts(t *testing.T) {
	r := &VAPTReport{Findings: []Finding{
		{Severity: SeverityHigh}, {Severity: SeverityHigh}, {Severity: SeverityInfo},
	}}
	counts := r.SeverityCounts()
	if counts[SeverityHigh] != 2 || counts[SeverityInfo] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if _, ok := counts[SeverityCritical]; !ok {
		t.Error("missing zero entry for critical")
	}
}
