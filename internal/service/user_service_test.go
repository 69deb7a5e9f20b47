package service

import (
	"context"
	"testing"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/internal/repository/memory"
	"github.com/pesio-ai/be-plt-grc/pkg/password"
)

func TestCreateUser(t *testing.T) {
	tests := []struct {
		name     string
		sess     *domain.Session
		req      *CreateUserRequest
		wantCode apperrors.Code
	}{
		{
			name: "admin creates user",
			sess: adminSession(),
			req:  &CreateUserRequest{Username: "ana", Email: "ana@example.com", Password: "correct horse"},
		},
		{
			name:     "missing username",
			sess:     adminSession(),
			req:      &CreateUserRequest{Email: "ana@example.com", Password: "correct horse"},
			wantCode: apperrors.ErrCodeValidation,
		},
		{
			name:     "missing email",
			sess:     adminSession(),
			req:      &CreateUserRequest{Username: "ana", Password: "correct horse"},
			wantCode: apperrors.ErrCodeValidation,
		},
		{
			name:     "short password",
			sess:     adminSession(),
			req:      &CreateUserRequest{Username: "ana", Email: "ana@example.com", Password: "short"},
			wantCode: apperrors.ErrCodeValidation,
		},
		{
			name:     "viewer may not create users",
			sess:     viewerSession(),
			req:      &CreateUserRequest{Username: "ana", Email: "ana@example.com", Password: "correct horse"},
			wantCode: apperrors.ErrCodeForbidden,
		},
		{
			name:     "anonymous",
			sess:     nil,
			req:      &CreateUserRequest{Username: "ana", Email: "ana@example.com", Password: "correct horse"},
			wantCode: apperrors.ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			svc := newTestUserService(store)

			resp, err := svc.CreateUser(context.Background(), tt.sess, tt.req)
			n, _ := store.Users().Count(context.Background())

			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				if n != 0 {
					t.Errorf("user count = %d after rejected create, want 0", n)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateUser() error = %v", err)
			}
			if n != 1 {
				t.Errorf("user count = %d, want 1", n)
			}
			if resp.User.Role != domain.RoleViewer {
				t.Errorf("Role = %q, want viewer", resp.User.Role)
			}
			if resp.TemporaryPassword != "" {
				t.Error("TemporaryPassword set although a password was supplied")
			}
		})
	}
}

func TestCreateUserWithoutPassword(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestUserService(store)

	resp, err := svc.CreateUser(ctx, adminSession(), &CreateUserRequest{Username: "ben", Email: "ben@example.com"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if len(resp.TemporaryPassword) < password.MinTemporaryLength {
		t.Fatalf("TemporaryPassword = %q, too short", resp.TemporaryPassword)
	}
	if !resp.User.MustChangePassword {
		t.Error("MustChangePassword = false, want true")
	}

	stored, err := store.Users().GetByID(ctx, resp.User.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.PasswordHash == resp.TemporaryPassword {
		t.Fatal("password stored in plain text")
	}
	ok, err := password.Verify(resp.TemporaryPassword, stored.PasswordHash)
	if err != nil || !ok {
		t.Errorf("temporary password does not verify: ok=%v err=%v", ok, err)
	}
	if !domain.HasPermission(stored, domain.ModuleVendors, domain.ActionRead) {
		t.Error("default permissions should grant vendors:read")
	}
	if domain.HasPermission(stored, domain.ModuleUsers, domain.ActionRead) {
		t.Error("default permissions should not grant users:read")
	}
}

func TestDeleteSeedAdminAlwaysFails(t *testing.T) {
	sessions := map[string]*domain.Session{
		"seed admin":   adminSession(),
		"other admin":  sessionWith(domain.RoleAdmin, nil),
		"viewer":       viewerSession(),
		"anonymous":    nil,
		"users writer": sessionWith(domain.RoleAuditor, domain.Permissions{domain.ModuleUsers: {Read: true, Write: true}}),
	}

	for name, sess := range sessions {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			svc := newTestUserService(store)
			if _, _, err := svc.EnsureSeedAdmin(ctx, "bootstrap-pass"); err != nil {
				t.Fatalf("EnsureSeedAdmin() error = %v", err)
			}

			err := svc.DeleteUser(ctx, sess, domain.SeedAdminID)
			assertCode(t, err, apperrors.ErrCodeIntegrity)
			if msg := apperrors.Message(err); msg == "" || msg == "internal error" {
				t.Errorf("message %q is not user visible", msg)
			}
			if _, err := store.Users().GetByID(ctx, domain.SeedAdminID); err != nil {
				t.Errorf("seed admin missing after refused delete: %v", err)
			}
		})
	}
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestUserService(store)

	resp, err := svc.CreateUser(ctx, adminSession(), &CreateUserRequest{Username: "cara", Email: "cara@example.com", Password: "long enough"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	id := resp.User.ID
	_ = store.Sessions().Create(ctx, &domain.SessionRecord{ID: "s1", UserID: id, IsActive: true}, "refresh")

	assertCode(t, svc.DeleteUser(ctx, viewerSession(), id), apperrors.ErrCodeForbidden)

	if err := svc.DeleteUser(ctx, adminSession(), id); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, err := store.Users().GetByID(ctx, id); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("user still present: %v", err)
	}
	if _, err := store.Sessions().GetByID(ctx, "s1"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("session still present: %v", err)
	}
	assertCode(t, svc.DeleteUser(ctx, adminSession(), id), apperrors.ErrCodeNotFound)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestUserService(store)
	_, _, _ = svc.EnsureSeedAdmin(ctx, "bootstrap-pass")

	resp, _ := svc.CreateUser(ctx, adminSession(), &CreateUserRequest{Username: "dan", Email: "dan@example.com", Password: "long enough"})

	auditor := domain.RoleAuditor
	email := "daniel@example.com"
	perms := domain.Permissions{domain.ModuleVAPT: {Read: true, Write: true}}
	got, err := svc.UpdateUser(ctx, adminSession(), &UpdateUserRequest{ID: resp.User.ID, Email: &email, Role: &auditor, Permissions: perms})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if got.Role != auditor || got.Email != email {
		t.Errorf("got role %q email %q", got.Role, got.Email)
	}
	if domain.HasPermission(got, domain.ModuleVendors, domain.ActionRead) {
		t.Error("permissions were not replaced")
	}

	viewer := domain.RoleViewer
	_, err = svc.UpdateUser(ctx, adminSession(), &UpdateUserRequest{ID: domain.SeedAdminID, Role: &viewer})
	assertCode(t, err, apperrors.ErrCodeIntegrity)

	bad := domain.Permissions{"billing": {Read: true}}
	_, err = svc.UpdateUser(ctx, adminSession(), &UpdateUserRequest{ID: resp.User.ID, Permissions: bad})
	assertCode(t, err, apperrors.ErrCodeValidation)
}

func TestGetUserSelfOrReader(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestUserService(store)
	resp, _ := svc.CreateUser(ctx, adminSession(), &CreateUserRequest{Username: "eve", Email: "eve@example.com"})

	self := &domain.Session{User: resp.User}
	if _, err := svc.GetUser(ctx, self, resp.User.ID); err != nil {
		t.Errorf("GetUser(self) error = %v", err)
	}
	_, err := svc.GetUser(ctx, viewerSession(), resp.User.ID)
	assertCode(t, err, apperrors.ErrCodeForbidden)
}

func TestUserReadsRequireSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	users := newTestUserService(store)
	roles := NewRoleService(store.Users(), store.Permissions(), logger.Nop())
	_ = store.Users().Create(ctx, &domain.User{ID: "anonymous", Username: "anonymous", Email: "anon@example.com", Role: domain.RoleViewer})

	tests := []struct {
		name string
		sess *domain.Session
	}{
		{name: "nil session", sess: nil},
		{name: "session without user", sess: &domain.Session{ID: "s1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.GetUser(ctx, tt.sess, "anonymous")
			assertCode(t, err, apperrors.ErrCodeUnauthorized)
			_, err = roles.GetUserPermissions(ctx, tt.sess, "anonymous")
			assertCode(t, err, apperrors.ErrCodeUnauthorized)
		})
	}
}

func TestEnsureSeedAdmin(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestUserService(store)

	created, generated, err := svc.EnsureSeedAdmin(ctx, "")
	if err != nil {
		t.Fatalf("EnsureSeedAdmin() error = %v", err)
	}
	if !created || generated == "" {
		t.Fatalf("created=%v generated=%q", created, generated)
	}
	admin, _ := store.Users().GetByID(ctx, domain.SeedAdminID)
	if admin.Role != domain.RoleAdmin || !admin.MustChangePassword {
		t.Errorf("seed admin = %+v", admin)
	}
	if ok, _ := password.Verify(generated, admin.PasswordHash); !ok {
		t.Error("generated password does not verify")
	}

	created, generated, err = svc.EnsureSeedAdmin(ctx, "")
	if err != nil || created || generated != "" {
		t.Errorf("second EnsureSeedAdmin() = %v, %q, %v; want no-op", created, generated, err)
	}
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestUserService(store)
	resp, _ := svc.CreateUser(ctx, adminSession(), &CreateUserRequest{Username: "fay", Email: "fay@example.com", Password: "long enough"})
	_ = store.Sessions().Create(ctx, &domain.SessionRecord{ID: "s1", UserID: resp.User.ID, IsActive: true}, "r")

	plain, err := svc.ResetPassword(ctx, adminSession(), resp.User.ID)
	if err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	u, _ := store.Users().GetByID(ctx, resp.User.ID)
	if ok, _ := password.Verify(plain, u.PasswordHash); !ok || !u.MustChangePassword {
		t.Errorf("reset password not applied: ok=%v mustChange=%v", ok, u.MustChangePassword)
	}
	sess, _ := store.Sessions().GetByID(ctx, "s1")
	if sess.IsActive {
		t.Error("session still active after reset")
	}
}
