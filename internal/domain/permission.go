package domain

import (
	"fmt"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
)

// Module names a permission-guarded area of the application.
type Module string

const (
	ModuleUsers      Module = "users"
	ModuleVendors    Module = "vendors"
	ModuleCompliance Module = "compliance"
	ModuleVAPT       Module = "vapt"
	ModulePrivacy    Module = "privacy"
)

// Modules lists every recognized module in display order.
var Modules = []Module{ModuleUsers, ModuleVendors, ModuleCompliance, ModuleVAPT, ModulePrivacy}

// Valid reports whether m is a recognized module.
func (m Module) Valid() bool {
	switch m {
	case ModuleUsers, ModuleVendors, ModuleCompliance, ModuleVAPT, ModulePrivacy:
		return true
	}
	return false
}

// Action is a capability within a module.
type Action string

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionExecute Action = "execute"
)

// Actions lists every recognized action.
var Actions = []Action{ActionRead, ActionWrite, ActionExecute}

// Valid reports whether a is a recognized action.
func (a Action) Valid() bool {
	switch a {
	case ActionRead, ActionWrite, ActionExecute:
		return true
	}
	return false
}

// Permission holds the three capability flags for one module.
type Permission struct {
	Read    bool `json:"read"`
	Write   bool `json:"write"`
	Execute bool `json:"execute"`
}

// Allows reports whether the flag for action is set.
func (p Permission) Allows(action Action) bool {
	switch action {
	case ActionRead:
		return p.Read
	case ActionWrite:
		return p.Write
	case ActionExecute:
		return p.Execute
	}
	return false
}

// Permissions maps modules to capability flags. Missing modules grant nothing.
type Permissions map[Module]Permission

// DefaultPermissions is the grant given to new users created without an
// explicit permission map: read on every business module, nothing on users.
func DefaultPermissions() Permissions {
	return Permissions{
		ModuleUsers:      {},
		ModuleVendors:    {Read: true},
		ModuleCompliance: {Read: true},
		ModuleVAPT:       {Read: true},
		ModulePrivacy:    {Read: true},
	}
}

// FullPermissions grants every action on every module.
func FullPermissions() Permissions {
	p := make(Permissions, len(Modules))
	for _, m := range Modules {
		p[m] = Permission{Read: true, Write: true, Execute: true}
	}
	return p
}

// Validate rejects maps that mention unrecognized modules.
func (p Permissions) Validate() error {
	for m := range p {
		if !m.Valid() {
			return apperrors.Validation(fmt.Sprintf("unknown permission module %q", m))
		}
	}
	return nil
}

// Clone returns an independent copy.
func (p Permissions) Clone() Permissions {
	if p == nil {
		return nil
	}
	out := make(Permissions, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

var (
	// ErrUnknownModule is returned for lookups outside the module set.
	ErrUnknownModule = apperrors.Validation("unknown permission module")
	// ErrUnknownAction is returned for lookups outside the action set.
	ErrUnknownAction = apperrors.Validation("unknown permission action")
)

// HasPermission is the capability lookup. A nil user, an unknown module or an
// unknown action never grant. Admins are granted everything else regardless
// of their stored map; everyone else gets exactly the stored flag.
func HasPermission(user *User, module Module, action Action) bool {
	return CheckPermission(user, module, action) == nil
}

// CheckPermission is HasPermission with the reason for a refusal.
func CheckPermission(user *User, module Module, action Action) error {
	if !module.Valid() {
		return apperrors.Wrap(ErrUnknownModule, apperrors.ErrCodeValidation, fmt.Sprintf("unknown permission module %q", module))
	}
	if !action.Valid() {
		return apperrors.Wrap(ErrUnknownAction, apperrors.ErrCodeValidation, fmt.Sprintf("unknown permission action %q", action))
	}
	if user == nil {
		return apperrors.Unauthorized("authentication required")
	}
	if user.Role == RoleAdmin {
		return nil
	}
	if user.Permissions[module].Allows(action) {
		return nil
	}
	return apperrors.Forbidden(fmt.Sprintf("%s permission on %s is required", action, module))
}

// EffectivePermissions expands the admin bypass into a full grid so clients
// can render capabilities without reimplementing the rule.
func EffectivePermissions(user *User) Permissions {
	out := make(Permissions, len(Modules))
	for _, m := range Modules {
		var p Permission
		for _, a := range Actions {
			if HasPermission(user, m, a) {
				switch a {
				case ActionRead:
					p.Read = true
				case ActionWrite:
					p.Write = true
				case ActionExecute:
					p.Execute = true
				}
			}
		}
		out[m] = p
	}
	return out
}
