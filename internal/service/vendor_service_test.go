package service

import (
	"context"
	"strings"
	"testing"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/internal/repository/memory"
)

type vendorFixture struct {
	store    *memory.Store
	blobs    *fakeBlobs
	gen      *fakeGenerator
	secrets  *fakeSecrets
	vendors  *VendorService
	template *TemplateService
}

func setupVendors(t *testing.T) *vendorFixture {
	t.Helper()
	store := memory.New()
	blobs := newFakeBlobs()
	gen := &fakeGenerator{text: "Drafted."}
	secrets := newFakeSecrets()

	evidence := NewEvidenceService(store.Evidence(), blobs, logger.Nop())
	evidence.now = fixedClock()
	evidence.newID = sequentialIDs("ev")
	assist := NewAssistService(store.Settings(), secrets, gen, logger.Nop())

	vendors := NewVendorService(store.Vendors(), store.Templates(), evidence, assist, logger.Nop())
	vendors.now = steppingClock()
	vendors.newID = sequentialIDs("vendor")

	templates := NewTemplateService(store.Templates(), logger.Nop())
	templates.now = fixedClock()

	return &vendorFixture{store: store, blobs: blobs, gen: gen, secrets: secrets, vendors: vendors, template: templates}
}

func TestCreateVendor(t *testing.T) {
	tests := []struct {
		name      string
		sess      *domain.Session
		req       *CreateVendorRequest
		wantScore int
		wantCode  apperrors.Code
	}{
		{
			name:      "no responses scores 100",
			sess:      writerSession(),
			req:       &CreateVendorRequest{Name: "Acme"},
			wantScore: 100,
		},
		{
			name: "deductions applied",
			sess: writerSession(),
			req: &CreateVendorRequest{Name: "Acme", Responses: map[string]string{
				"iso_certified":    "No",
				"encryption":       "No",
				"bc_plan":          "No",
				"backup_frequency": "No regular backups",
			}},
			wantScore: 40,
		},
		{
			name:     "name required",
			sess:     writerSession(),
			req:      &CreateVendorRequest{Name: "  "},
			wantCode: apperrors.ErrCodeValidation,
		},
		{
			name:     "viewer is read only",
			sess:     viewerSession(),
			req:      &CreateVendorRequest{Name: "Acme"},
			wantCode: apperrors.ErrCodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupVendors(t)
			v, err := f.vendors.CreateVendor(context.Background(), tt.sess, tt.req)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("CreateVendor() error = %v", err)
			}
			if v.RiskScore != tt.wantScore {
				t.Errorf("RiskScore = %d, want %d", v.RiskScore, tt.wantScore)
			}
			if v.Status != domain.VendorPending {
				t.Errorf("Status = %q, want pending", v.Status)
			}
			if !v.CreatedAt.Equal(v.SubmittedAt) {
				t.Errorf("CreatedAt %v != SubmittedAt %v", v.CreatedAt, v.SubmittedAt)
			}
			if v.CompanyID != domain.DefaultCompanyID {
				t.Errorf("CompanyID = %q", v.CompanyID)
			}
		})
	}
}

func TestUpdateResponsesRescores(t *testing.T) {
	ctx := context.Background()
	f := setupVendors(t)
	sess := writerSession()

	v, _ := f.vendors.CreateVendor(ctx, sess, &CreateVendorRequest{Name: "Acme"})
	updated, err := f.vendors.UpdateResponses(ctx, sess, v.ID, map[string]string{"security_policy": "No", "gdpr_compliance": "No"})
	if err != nil {
		t.Fatalf("UpdateResponses() error = %v", err)
	}
	if updated.RiskScore != 80 {
		t.Errorf("RiskScore = %d, want 80", updated.RiskScore)
	}
	if !updated.SubmittedAt.After(v.SubmittedAt) {
		t.Error("SubmittedAt not refreshed")
	}

	stored, _ := f.store.Vendors().Get(ctx, v.ID)
	if stored.RiskScore != 80 || len(stored.Responses) != 2 {
		t.Errorf("stored = score %d, %d responses", stored.RiskScore, len(stored.Responses))
	}
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := setupVendors(t)
	sess := writerSession()
	v, _ := f.vendors.CreateVendor(ctx, sess, &CreateVendorRequest{Name: "Acme"})

	for _, st := range []string{"approved", "pending", "rejected", "in-review"} {
		got, err := f.vendors.UpdateStatus(ctx, sess, v.ID, st)
		if err != nil {
			t.Fatalf("UpdateStatus(%s) error = %v", st, err)
		}
		if string(got.Status) != st {
			t.Errorf("Status = %q, want %q", got.Status, st)
		}
	}
	_, err := f.vendors.UpdateStatus(ctx, sess, v.ID, "archived")
	assertCode(t, err, apperrors.ErrCodeValidation)
}

func TestDeleteVendorCascades(t *testing.T) {
	ctx := context.Background()
	f := setupVendors(t)
	sess := writerSession()

	v, _ := f.vendors.CreateVendor(ctx, sess, &CreateVendorRequest{Name: "Acme", Responses: map[string]string{"bc_plan": "No"}})
	other, _ := f.vendors.CreateVendor(ctx, sess, &CreateVendorRequest{Name: "Globex"})
	if _, err := f.vendors.SaveAuditResponses(ctx, sess, v.ID, []AuditAnswer{
		{ControlID: "A.5.1", Response: "yes", FileName: "soc2.pdf", File: strings.NewReader("%PDF")},
	}); err != nil {
		t.Fatalf("SaveAuditResponses() error = %v", err)
	}
	if _, err := f.vendors.SaveAuditResponses(ctx, sess, other.ID, []AuditAnswer{
		{ControlID: "A.5.1", Response: "yes", FileName: "iso.pdf", File: strings.NewReader("%PDF")},
	}); err != nil {
		t.Fatalf("SaveAuditResponses() error = %v", err)
	}

	assertCode(t, f.vendors.DeleteVendor(ctx, viewerSession(), v.ID), apperrors.ErrCodeForbidden)

	if err := f.vendors.DeleteVendor(ctx, sess, v.ID); err != nil {
		t.Fatalf("DeleteVendor() error = %v", err)
	}
	_, err := f.vendors.GetVendor(ctx, sess, v.ID)
	assertCode(t, err, apperrors.ErrCodeNotFound)

	if got, _ := f.store.Vendors().GetAuditResponses(ctx, v.ID); len(got) != 0 {
		t.Errorf("audit responses survived delete: %+v", got)
	}

	files, _ := f.store.Evidence().List(ctx, EvidenceCategoryVendorAudit, "")
	if len(files) != 1 || files[0].EntityID != other.ID+"/A.5.1" {
		t.Fatalf("evidence after delete = %+v, want only the other vendor's file", files)
	}
	if len(f.blobs.files) != 1 {
		t.Errorf("blobs after delete = %d, want 1", len(f.blobs.files))
	}
	if _, ok := f.blobs.files[files[0].StoragePath]; !ok {
		t.Errorf("other vendor's blob %s was removed", files[0].StoragePath)
	}

	assertCode(t, f.vendors.DeleteVendor(ctx, sess, v.ID), apperrors.ErrCodeNotFound)
}

func TestSaveAuditResponsesTemplateAndAttachments(t *testing.T) {
	ctx := context.Background()
	f := setupVendors(t)
	sess := writerSession()

	if _, err := f.template.CreateTemplate(ctx, sess, "Cloud", []string{"C1", "C2"}); err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}
	v, _ := f.vendors.CreateVendor(ctx, sess, &CreateVendorRequest{Name: "Acme"})
	if _, err := f.vendors.AssignTemplate(ctx, sess, v.ID, "Cloud"); err != nil {
		t.Fatalf("AssignTemplate() error = %v", err)
	}

	_, err := f.vendors.SaveAuditResponses(ctx, sess, v.ID, []AuditAnswer{{ControlID: "C9", Response: "yes"}})
	assertCode(t, err, apperrors.ErrCodeValidation)

	res, err := f.vendors.SaveAuditResponses(ctx, sess, v.ID, []AuditAnswer{
		{ControlID: "C1", Response: "yes", FileName: "soc2.pdf", File: strings.NewReader("%PDF")},
		{ControlID: "C2", Response: "no", Remark: "planned"},
	})
	if err != nil {
		t.Fatalf("SaveAuditResponses() error = %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	if len(res.Responses) != 2 || res.Responses[0].FileName != "soc2.pdf" {
		t.Errorf("Responses = %+v", res.Responses)
	}
	files, _ := f.store.Evidence().List(ctx, EvidenceCategoryVendorAudit, "")
	if len(files) != 1 {
		t.Errorf("evidence files = %d, want 1", len(files))
	}
}

func TestSaveAuditResponsesDegradesOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	f := setupVendors(t)
	f.blobs.err = errBoom
	sess := writerSession()
	v, _ := f.vendors.CreateVendor(ctx, sess, &CreateVendorRequest{Name: "Acme"})

	res, err := f.vendors.SaveAuditResponses(ctx, sess, v.ID, []AuditAnswer{
		{ControlID: "C1", Response: "yes", FileName: "soc2.pdf", File: strings.NewReader("%PDF")},
	})
	if err != nil {
		t.Fatalf("SaveAuditResponses() error = %v, want degraded success", err)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one", res.Warnings)
	}
	if len(res.Responses) != 1 || res.Responses[0].Response != "yes" || res.Responses[0].FileName != "" {
		t.Errorf("Responses = %+v", res.Responses)
	}
}

type failingAuditStore struct {
	VendorStore
}

func (failingAuditStore) SaveAuditResponses(context.Context, string, []domain.AuditResponse) error {
	return apperrors.Internal("failed to save audit response", errBoom)
}

func TestSaveAuditResponsesFailureDiscardsAttachments(t *testing.T) {
	ctx := context.Background()
	f := setupVendors(t)
	sess := writerSession()
	v, _ := f.vendors.CreateVendor(ctx, sess, &CreateVendorRequest{Name: "Acme"})
	f.vendors.vendorRepo = failingAuditStore{VendorStore: f.store.Vendors()}

	_, err := f.vendors.SaveAuditResponses(ctx, sess, v.ID, []AuditAnswer{
		{ControlID: "C1", Response: "yes", FileName: "soc2.pdf", File: strings.NewReader("%PDF")},
		{ControlID: "C2", Response: "yes", FileName: "pentest.pdf", File: strings.NewReader("%PDF")},
	})
	assertCode(t, err, apperrors.ErrCodeInternal)

	files, _ := f.store.Evidence().List(ctx, EvidenceCategoryVendorAudit, "")
	if len(files) != 0 {
		t.Errorf("evidence rows left after failed save: %+v", files)
	}
	if len(f.blobs.files) != 0 || len(f.blobs.removed) != 2 {
		t.Errorf("blobs = %v, removed = %v; want none left, two removed", f.blobs.files, f.blobs.removed)
	}
}

func TestVendorDraftSummary(t *testing.T) {
	ctx := context.Background()
	f := setupVendors(t)
	sess := writerSession()
	v, _ := f.vendors.CreateVendor(ctx, sess, &CreateVendorRequest{Name: "Acme", Responses: map[string]string{"encryption": "No"}})

	_, err := f.vendors.DraftSummary(ctx, sess, v.ID)
	assertCode(t, err, apperrors.ErrCodeForbidden)

	exec := sessionWith(domain.RoleAuditor, domain.Permissions{domain.ModuleVendors: {Read: true, Execute: true}})

	text, err := f.vendors.DraftSummary(ctx, exec, v.ID)
	if err != nil || text != PlaceholderNoProvider {
		t.Fatalf("DraftSummary() = %q, %v; want no-provider placeholder", text, err)
	}

	_ = f.store.Settings().Save(ctx, &domain.Settings{AIProvider: domain.AIProviderOpenAI})
	f.secrets.keys[domain.AIProviderOpenAI] = "sk-test"

	text, err = f.vendors.DraftSummary(ctx, exec, v.ID)
	if err != nil || text != "Drafted." {
		t.Fatalf("DraftSummary() = %q, %v", text, err)
	}
	if len(f.gen.prompts) != 1 || !strings.Contains(f.gen.prompts[0], "encryption") || !strings.Contains(f.gen.prompts[0], "Acme") {
		t.Errorf("prompt = %q", f.gen.prompts)
	}
}
