package memory

import (
	"context"
	"testing"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// orphanedAudits counts audit responses whose vendor no longer exists.
func orphanedAudits(s *Store) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for vendorID, byControl := range s.audits {
		if _, ok := s.vendors[vendorID]; !ok {
			n += len(byControl)
		}
	}
	return n
}

func TestVendorDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	vendors := s.Vendors()

	v, err := domain.NewVendor("v1", domain.NewVendorInput{Name: "Acme", Responses: map[string]string{"hasSOC2": "No"}}, testNow)
	if err != nil {
		t.Fatalf("NewVendor() error = %v", err)
	}
	if err := vendors.Create(ctx, v); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := vendors.SaveAuditResponses(ctx, "v1", []domain.AuditResponse{{ControlID: "A.5.1", Response: "yes"}}); err != nil {
		t.Fatalf("SaveAuditResponses() error = %v", err)
	}

	if err := vendors.Delete(ctx, "v1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := vendors.Get(ctx, "v1"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("Get() after delete error = %v, want not found", err)
	}
	got, _ := vendors.GetAuditResponses(ctx, "v1")
	if len(got) != 0 {
		t.Errorf("audit responses survived delete: %v", got)
	}
	if n := orphanedAudits(s); n != 0 {
		t.Errorf("orphaned audit responses = %d, want 0", n)
	}
}

func TestVendorDeleteMissingLeavesOthers(t *testing.T) {
	ctx := context.Background()
	vendors := New().Vendors()

	v, _ := domain.NewVendor("v1", domain.NewVendorInput{Name: "Acme"}, testNow)
	_ = vendors.Create(ctx, v)

	if err := vendors.Delete(ctx, "nope"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("Delete() error = %v, want not found", err)
	}
	if _, err := vendors.Get(ctx, "v1"); err != nil {
		t.Errorf("unrelated vendor was affected: %v", err)
	}
}

func TestVendorReturnsCopies(t *testing.T) {
	ctx := context.Background()
	vendors := New().Vendors()

	v, _ := domain.NewVendor("v1", domain.NewVendorInput{Name: "Acme", Responses: map[string]string{"hasSOC2": "Yes"}}, testNow)
	_ = vendors.Create(ctx, v)
	v.Responses["hasSOC2"] = "No"

	got, _ := vendors.Get(ctx, "v1")
	got.Responses["hasISO27001"] = "No"

	again, _ := vendors.Get(ctx, "v1")
	if len(again.Responses) != 1 || again.Responses["hasSOC2"] != "Yes" {
		t.Errorf("stored responses were mutated: %v", again.Responses)
	}
}

func TestSaveAuditResponsesKeepsFileName(t *testing.T) {
	ctx := context.Background()
	vendors := New().Vendors()

	v, _ := domain.NewVendor("v1", domain.NewVendorInput{Name: "Acme"}, testNow)
	_ = vendors.Create(ctx, v)

	_ = vendors.SaveAuditResponses(ctx, "v1", []domain.AuditResponse{{ControlID: "C1", Response: "yes", FileName: "policy.pdf"}})
	_ = vendors.SaveAuditResponses(ctx, "v1", []domain.AuditResponse{{ControlID: "C1", Response: "no", Remark: "lapsed"}})

	got, _ := vendors.GetAuditResponses(ctx, "v1")
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].FileName != "policy.pdf" || got[0].Response != "no" || got[0].Remark != "lapsed" {
		t.Errorf("response = %+v", got[0])
	}

	if err := vendors.SaveAuditResponses(ctx, "ghost", nil); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("SaveAuditResponses(ghost) error = %v, want not found", err)
	}
}

func TestInsertControlsIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := New().Compliance()

	first := []*domain.ComplianceControl{
		{ID: "c1", Framework: "ISO", ControlID: "A.1", CompanyID: "co"},
		{ID: "c2", Framework: "ISO", ControlID: "A.2", CompanyID: "co"},
	}
	if err := repo.InsertControls(ctx, first); err != nil {
		t.Fatalf("InsertControls() error = %v", err)
	}

	second := []*domain.ComplianceControl{
		{ID: "c3", Framework: "ISO", ControlID: "A.3", CompanyID: "co"},
		{ID: "c4", Framework: "ISO", ControlID: "A.1", CompanyID: "co"},
	}
	if err := repo.InsertControls(ctx, second); !apperrors.HasCode(err, apperrors.ErrCodeConflict) {
		t.Fatalf("InsertControls() error = %v, want conflict", err)
	}

	got, _ := repo.ListControls(ctx, "co", "ISO")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (partial batch must not persist)", len(got))
	}
	if got[0].ControlID != "A.1" || got[1].ControlID != "A.2" {
		t.Errorf("order = %s,%s", got[0].ControlID, got[1].ControlID)
	}

	n, _ := repo.DeleteFramework(ctx, "co", "ISO")
	if n != 2 {
		t.Errorf("DeleteFramework() = %d, want 2", n)
	}
}

func TestUserDeleteDropsSessions(t *testing.T) {
	ctx := context.Background()
	store := New()
	users, sessions := store.Users(), store.Sessions()

	u, _ := domain.NewUser("u1", domain.NewUserInput{Username: "ana", Email: "ana@example.com"}, testNow)
	_ = users.Create(ctx, u)
	_ = sessions.Create(ctx, &domain.SessionRecord{ID: "s1", UserID: "u1", IsActive: true, ExpiresAt: testNow.Add(time.Hour), RefreshTokenExpiresAt: testNow.Add(time.Hour)}, "tok")

	ok, _ := sessions.ValidateRefreshToken(ctx, "s1", "tok", testNow)
	if !ok {
		t.Fatal("ValidateRefreshToken() = false before delete")
	}
	if ok, _ := sessions.ValidateRefreshToken(ctx, "s1", "other", testNow); ok {
		t.Error("ValidateRefreshToken() accepted the wrong token")
	}

	if err := users.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := sessions.GetByID(ctx, "s1"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("session survived user delete: %v", err)
	}
}

func TestUserLoginLookup(t *testing.T) {
	ctx := context.Background()
	users := New().Users()

	u, _ := domain.NewUser("u1", domain.NewUserInput{Username: "ana", Email: "Ana@Example.com"}, testNow)
	_ = users.Create(ctx, u)

	tests := []struct {
		name    string
		login   string
		wantErr bool
	}{
		{name: "username", login: "ana", wantErr: false},
		{name: "email any case", login: "ana@example.com", wantErr: false},
		{name: "username is case sensitive", login: "ANA", wantErr: true},
		{name: "unknown", login: "bob", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.GetByLogin(ctx, tt.login)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetByLogin() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	dup, _ := domain.NewUser("u2", domain.NewUserInput{Username: "other", Email: "ana@example.com"}, testNow)
	if err := users.Create(ctx, dup); !apperrors.HasCode(err, apperrors.ErrCodeConflict) {
		t.Errorf("Create(duplicate email) error = %v, want conflict", err)
	}
}

func TestPrivacyUpdateKeepsType(t *testing.T) {
	ctx := context.Background()
	repo := New().Privacy()

	rec, _ := domain.NewPrivacyRecord("p1", domain.DSARData{RequestID: "R-1"}, "co", testNow)
	_ = repo.Create(ctx, rec)

	wrong, _ := domain.NewPrivacyRecord("p1", domain.ROPAData{Activity: "x"}, "co", testNow)
	if err := repo.Update(ctx, wrong); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("Update(type change) error = %v, want not found", err)
	}

	got, _ := repo.List(ctx, "co", domain.PrivacyDSAR)
	if len(got) != 1 {
		t.Fatalf("List() len = %d", len(got))
	}
	if _, ok := got[0].Data.(domain.DSARData); !ok {
		t.Errorf("data = %T, want DSARData", got[0].Data)
	}
}
