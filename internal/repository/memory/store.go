// Package memory implements the repository contracts over process memory.
// It backs local runs without a database and the service tests.
package memory

import (
	"sort"
	"sync"

	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

// Store holds every record behind one lock.
type Store struct {
	mu sync.RWMutex

	users       map[string]*domain.User
	sessions    map[string]*domain.SessionRecord
	companies   map[string]*domain.Company
	settings    *domain.Settings
	vendors     map[string]*domain.Vendor
	templates   map[string]*domain.AuditTemplate
	audits      map[string]map[string]domain.AuditResponse // vendor id -> control id
	controls    map[string]*domain.ComplianceControl
	controlSeq  map[string]int // control id -> catalog position
	revisions   map[string][]*domain.ControlRevision
	reports     map[string]*domain.VAPTReport
	privacy     map[string]*domain.PrivacyRecord
	evidence    map[string]*domain.EvidenceFile
	insertOrder int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:      map[string]*domain.User{},
		sessions:   map[string]*domain.SessionRecord{},
		companies:  map[string]*domain.Company{},
		vendors:    map[string]*domain.Vendor{},
		templates:  map[string]*domain.AuditTemplate{},
		audits:     map[string]map[string]domain.AuditResponse{},
		controls:   map[string]*domain.ComplianceControl{},
		controlSeq: map[string]int{},
		revisions:  map[string][]*domain.ControlRevision{},
		reports:    map[string]*domain.VAPTReport{},
		privacy:    map[string]*domain.PrivacyRecord{},
		evidence:   map[string]*domain.EvidenceFile{},
	}
}

func (s *Store) Users() *UserRepository             { return &UserRepository{s: s} }
func (s *Store) Permissions() *PermissionRepository { return &PermissionRepository{s: s} }
func (s *Store) Sessions() *SessionRepository       { return &SessionRepository{s: s} }
func (s *Store) Companies() *CompanyRepository      { return &CompanyRepository{s: s} }
func (s *Store) Settings() *SettingsRepository      { return &SettingsRepository{s: s} }
func (s *Store) Vendors() *VendorRepository         { return &VendorRepository{s: s} }
func (s *Store) Templates() *TemplateRepository     { return &TemplateRepository{s: s} }
func (s *Store) Compliance() *ComplianceRepository  { return &ComplianceRepository{s: s} }
func (s *Store) VAPT() *VAPTRepository              { return &VAPTRepository{s: s} }
func (s *Store) Privacy() *PrivacyRepository        { return &PrivacyRepository{s: s} }
func (s *Store) Evidence() *EvidenceRepository      { return &EvidenceRepository{s: s} }

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Permissions = u.Permissions.Clone()
	if c.Permissions == nil {
		c.Permissions = domain.Permissions{}
	}
	return &c
}

func cloneVendor(v *domain.Vendor) *domain.Vendor {
	c := *v
	c.Responses = cloneMap(v.Responses)
	c.ActiveControlIDs = cloneStrings(v.ActiveControlIDs)
	return &c
}

func cloneReport(r *domain.VAPTReport) *domain.VAPTReport {
	c := *r
	c.Findings = append([]domain.Finding{}, r.Findings...)
	return &c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
