package domain

import (
	"testing"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
)

func TestHasPermission(t *testing.T) {
	noPerms := Permissions{}
	allFalse := Permissions{
		ModuleUsers:      {},
		ModuleVendors:    {},
		ModuleCompliance: {},
		ModuleVAPT:       {},
		ModulePrivacy:    {},
	}
	viewer := &User{ID: "u1", Role: RoleViewer, Permissions: DefaultPermissions()}
	analyst := &User{ID: "u2", Role: RoleAnalyst, Permissions: Permissions{
		ModuleVAPT: {Read: true, Write: true},
	}}

	tests := []struct {
		name   string
		user   *User
		module Module
		action Action
		want   bool
	}{
		{name: "nil user denied", user: nil, module: ModuleVendors, action: ActionRead, want: false},
		{name: "admin bypasses all-false map", user: &User{Role: RoleAdmin, Permissions: allFalse}, module: ModuleVendors, action: ActionWrite, want: true},
		{name: "admin bypasses empty map", user: &User{Role: RoleAdmin, Permissions: noPerms}, module: ModuleUsers, action: ActionExecute, want: true},
		{name: "admin with nil map", user: &User{Role: RoleAdmin}, module: ModulePrivacy, action: ActionWrite, want: true},
		{name: "viewer default cannot write users", user: viewer, module: ModuleUsers, action: ActionWrite, want: false},
		{name: "viewer default cannot read users", user: viewer, module: ModuleUsers, action: ActionRead, want: false},
		{name: "viewer default reads vendors", user: viewer, module: ModuleVendors, action: ActionRead, want: true},
		{name: "viewer default cannot write vendors", user: viewer, module: ModuleVendors, action: ActionWrite, want: false},
		{name: "explicit grant", user: analyst, module: ModuleVAPT, action: ActionWrite, want: true},
		{name: "flag not set", user: analyst, module: ModuleVAPT, action: ActionExecute, want: false},
		{name: "module absent from map", user: analyst, module: ModuleCompliance, action: ActionRead, want: false},
		{name: "unknown module denied for admin", user: &User{Role: RoleAdmin}, module: "billing", action: ActionRead, want: false},
		{name: "unknown action denied for admin", user: &User{Role: RoleAdmin}, module: ModuleVendors, action: "delete", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPermission(tt.user, tt.module, tt.action); got != tt.want {
				t.Errorf("HasPermission() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasPermissionNilUserAllCombinations(t *testing.T) {
	for _, m := range append(Modules, "unknown") {
		for _, a := range append(Actions, "unknown") {
			if HasPermission(nil, m, a) {
				t.Errorf("HasPermission(nil, %s, %s) = true", m, a)
			}
		}
	}
}

func TestCheckPermissionCodes(t *testing.T) {
	viewer := &User{Role: RoleViewer, Permissions: DefaultPermissions()}

	tests := []struct {
		name   string
		user   *User
		module Module
		action Action
		want   apperrors.Code
	}{
		{name: "allowed", user: viewer, module: ModuleVendors, action: ActionRead, want: ""},
		{name: "nil user", user: nil, module: ModuleVendors, action: ActionRead, want: apperrors.ErrCodeUnauthorized},
		{name: "denied", user: viewer, module: ModuleVendors, action: ActionWrite, want: apperrors.ErrCodeForbidden},
		{name: "unknown module", user: viewer, module: "billing", action: ActionRead, want: apperrors.ErrCodeValidation},
		{name: "unknown action", user: viewer, module: ModuleVendors, action: "approve", want: apperrors.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPermission(tt.user, tt.module, tt.action)
			if got := apperrors.CodeOf(err); got != tt.want {
				t.Errorf("CheckPermission() code = %q, want %q (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestEffectivePermissions(t *testing.T) {
	admin := &User{Role: RoleAdmin, Permissions: Permissions{}}
	got := EffectivePermissions(admin)
	for _, m := range Modules {
		if p := got[m]; !p.Read || !p.Write || !p.Execute {
			t.Errorf("admin effective %s = %+v, want all true", m, p)
		}
	}

	viewer := &User{Role: RoleViewer, Permissions: DefaultPermissions()}
	got = EffectivePermissions(viewer)
	if got[ModuleUsers] != (Permission{}) {
		t.Errorf("viewer users = %+v, want none", got[ModuleUsers])
	}
	if got[ModuleVendors] != (Permission{Read: true}) {
		t.Errorf("viewer vendors = %+v, want read only", got[ModuleVendors])
	}
}

func TestNewUserDefaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u, err := NewUser("u1", NewUserInput{Username: " alice ", Email: "alice@example.com"}, now)
	if err != nil {
		t.Fatalf("NewUser() error = %v", err)
	}
	if u.Role != RoleViewer {
		t.Errorf("Role = %q, want viewer", u.Role)
	}
	if u.Username != "alice" {
		t.Errorf("Username = %q", u.Username)
	}
	for _, m := range []Module{ModuleVendors, ModuleCompliance, ModuleVAPT, ModulePrivacy} {
		if u.Permissions[m] != (Permission{Read: true}) {
			t.Errorf("default %s = %+v, want read only", m, u.Permissions[m])
		}
	}
	if u.Permissions[ModuleUsers] != (Permission{}) {
		t.Errorf("default users = %+v, want none", u.Permissions[ModuleUsers])
	}
	if !u.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v", u.CreatedAt)
	}
}

func TestNewUserValidation(t *testing.T) {
	tests := []struct {
		name string
		in   NewUserInput
	}{
		{name: "missing username", in: NewUserInput{Email: "a@b.c"}},
		{name: "blank username", in: NewUserInput{Username: "  ", Email: "a@b.c"}},
		{name: "missing email", in: NewUserInput{Username: "bob"}},
		{name: "malformed email", in: NewUserInput{Username: "bob", Email: "bob"}},
		{name: "unknown role", in: NewUserInput{Username: "bob", Email: "a@b.c", Role: "root"}},
		{name: "unknown permission module", in: NewUserInput{Username: "bob", Email: "a@b.c", Permissions: Permissions{"billing": {Read: true}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser("u1", tt.in, time.Now())
			if !apperrors.HasCode(err, apperrors.ErrCodeValidation) {
				t.Errorf("NewUser() error = %v, want validation", err)
			}
		})
	}
}

func TestNewUserCopiesPermissions(t *testing.T) {
	perms := Permissions{ModuleVendors: {Read: true}}
	u, err := NewUser("u1", NewUserInput{Username: "bob", Email: "bob@x.io", Permissions: perms}, time.Now())
	if err != nil {
		t.Fatalf("NewUser() error = %v", err)
	}
	perms[ModuleVendors] = Permission{Write: true}
	if u.Permissions[ModuleVendors] != (Permission{Read: true}) {
		t.Error("user permissions alias the caller's map")
	}
}

func TestSeedAdmin(t *testing.T) {
	admin := NewSeedAdmin(time.Now())
	if !admin.IsSeedAdmin() || admin.ID != "admin-001" {
		t.Errorf("seed admin id = %q", admin.ID)
	}
	if admin.Role != RoleAdmin {
		t.Errorf("seed admin role = %q", admin.Role)
	}
	var nilUser *User
	if nilUser.IsSeedAdmin() {
		t.Error("nil user reported as seed admin")
	}
}
