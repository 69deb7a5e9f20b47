package domain

import (
	"fmt"
	"strings"
	"time"
)

// VendorStatus is the review state of a vendor. Any valid status may follow
// any other.
type VendorStatus string

const (
	VendorPending  VendorStatus = "pending"
	VendorInReview VendorStatus = "in-review"
	VendorApproved VendorStatus = "approved"
	VendorRejected VendorStatus = "rejected"
)

// ParseVendorStatus validates a status string.
func ParseVendorStatus(s string) (VendorStatus, error) {
	switch st := VendorStatus(s); st {
	case VendorPending, VendorInReview, VendorApproved, VendorRejected:
		return st, nil
	}
	return "", errInvalid("vendor status", s)
}

// Vendor is a third party under risk review.
type Vendor struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Status        VendorStatus      `json:"status"`
	RiskScore     int               `json:"riskScore"`
	Responses     map[string]string `json:"responses"`
	Questionnaire string            `json:"questionnaire"`
	// AuditTemplate is the assigned audit template name, empty when none.
	AuditTemplate    string    `json:"auditTemplate,omitempty"`
	ActiveControlIDs []string  `json:"activeControlIds,omitempty"`
	CompanyID        string    `json:"companyId"`
	CreatedAt        time.Time `json:"createdAt"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// NewVendorInput carries the caller-supplied fields for a new vendor.
type NewVendorInput struct {
	Name          string
	Questionnaire string
	Responses     map[string]string
	CompanyID     string
}

// NewVendor builds a pending vendor scored from its responses.
func NewVendor(id string, in NewVendorInput, now time.Time) (*Vendor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errRequired("vendor name")
	}
	responses := copyResponses(in.Responses)
	return &Vendor{
		ID:            id,
		Name:          name,
		Status:        VendorPending,
		RiskScore:     ComputeRiskScore(responses),
		Responses:     responses,
		Questionnaire: in.Questionnaire,
		CompanyID:     in.CompanyID,
		CreatedAt:     now,
		SubmittedAt:   now,
	}, nil
}

// ReplaceResponses swaps the questionnaire answers and rescores.
func (v *Vendor) ReplaceResponses(responses map[string]string, now time.Time) {
	v.Responses = copyResponses(responses)
	v.RiskScore = ComputeRiskScore(v.Responses)
	v.SubmittedAt = now
}

// Band is the vendor's current risk band.
func (v *Vendor) Band() RiskBand {
	return BandFor(v.RiskScore)
}

func copyResponses(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// AuditTemplate is a named, ordered set of control ids assigned to vendors
// for evidence-backed audits.
type AuditTemplate struct {
	Name       string    `json:"name"`
	ControlIDs []string  `json:"controlIds"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewAuditTemplate validates a template. Control ids must be non-empty and
// unique; their order is kept.
func NewAuditTemplate(name string, controlIDs []string, now time.Time) (*AuditTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errRequired("template name")
	}
	if len(controlIDs) == 0 {
		return nil, errRequired("template control ids")
	}
	seen := make(map[string]struct{}, len(controlIDs))
	ids := make([]string, 0, len(controlIDs))
	for _, id := range controlIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, errRequired("control id")
		}
		if _, dup := seen[id]; dup {
			return nil, errInvalid("duplicate control id", id)
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return &AuditTemplate{Name: name, ControlIDs: ids, CreatedAt: now}, nil
}

// AuditResponse is a vendor's answer to one control of its audit template.
// (VendorID, ControlID) is unique.
type AuditResponse struct {
	VendorID  string    `json:"vendorId"`
	ControlID string    `json:"controlId"`
	Response  string    `json:"response"`
	Remark    string    `json:"remark"`
	FileName  string    `json:"fileName,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidateAuditResponses checks that every response targets a distinct
// control active on the vendor. A vendor without active controls accepts any
// control id.
func ValidateAuditResponses(v *Vendor, responses []AuditResponse) error {
	active := make(map[string]struct{}, len(v.ActiveControlIDs))
	for _, id := range v.ActiveControlIDs {
		active[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(responses))
	for _, r := range responses {
		if strings.TrimSpace(r.ControlID) == "" {
			return errRequired("control id")
		}
		if _, dup := seen[r.ControlID]; dup {
			return errInvalid("duplicate control id", r.ControlID)
		}
		seen[r.ControlID] = struct{}{}
		if len(active) > 0 {
			if _, ok := active[r.ControlID]; !ok {
				return errInvalid("control id", fmt.Sprintf("%s (not in template %s)", r.ControlID, v.AuditTemplate))
			}
		}
	}
	return nil
}
