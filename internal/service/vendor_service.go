package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

// EvidenceCategoryVendorAudit tags files attached to vendor audit responses.
const EvidenceCategoryVendorAudit = "vendor-audit"

type VendorService struct {
	vendorRepo   VendorStore
	templateRepo AuditTemplateStore
	evidence     *EvidenceService
	assist       *AssistService
	log          *logger.Logger

	now   func() time.Time
	newID func() string
}

func NewVendorService(
	vendorRepo VendorStore,
	templateRepo AuditTemplateStore,
	evidence *EvidenceService,
	assist *AssistService,
	log *logger.Logger,
) *VendorService {
	return &VendorService{
		vendorRepo:   vendorRepo,
		templateRepo: templateRepo,
		evidence:     evidence,
		assist:       assist,
		log:          log,
		now:          utcNow,
		newID:        newUUID,
	}
}

type CreateVendorRequest struct {
	Name          string
	Questionnaire string
	Responses     map[string]string
}

// CreateVendor creates a pending vendor scored from its responses
func (s *VendorService) CreateVendor(ctx context.Context, sess *domain.Session, req *CreateVendorRequest) (*domain.Vendor, error) {
	if err := authorize(s.log, sess, domain.ModuleVendors, domain.ActionWrite); err != nil {
		return nil, err
	}

	v, err := domain.NewVendor(s.newID(), domain.NewVendorInput{
		Name:          req.Name,
		Questionnaire: req.Questionnaire,
		Responses:     req.Responses,
		CompanyID:     companyOf(sess),
	}, s.now())
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("vendor_id", v.ID).
		Str("name", v.Name).
		Int("risk_score", v.RiskScore).
		Msg("Creating vendor")

	if err := s.vendorRepo.Create(ctx, v); err != nil {
		s.log.Error().Err(err).Msg("Failed to create vendor")
		return nil, err
	}

	s.log.Info().Str("vendor_id", v.ID).Msg("Vendor created successfully")
	return v, nil
}

// GetVendor retrieves a vendor by ID
func (s *VendorService) GetVendor(ctx context.Context, sess *domain.Session, id string) (*domain.Vendor, error) {
	if err := authorize(s.log, sess, domain.ModuleVendors, domain.ActionRead); err != nil {
		return nil, err
	}
	return s.vendorRepo.Get(ctx, id)
}

// ListVendors lists the session company's vendors, newest first
func (s *VendorService) ListVendors(ctx context.Context, sess *domain.Session) ([]*domain.Vendor, error) {
	if err := authorize(s.log, sess, domain.ModuleVendors, domain.ActionRead); err != nil {
		return nil, err
	}
	return s.vendorRepo.List(ctx, companyOf(sess))
}

// UpdateStatus moves a vendor to any valid status
func (s *VendorService) UpdateStatus(ctx context.Context, sess *domain.Session, id, status string) (*domain.Vendor, error) {
	if err := authorize(s.log, sess, domain.ModuleVendors, domain.ActionWrite); err != nil {
		return nil, err
	}
	st, err := domain.ParseVendorStatus(status)
	if err != nil {
		return nil, err
	}

	v, err := s.vendorRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := v.Status
	v.Status = st
	if err := s.vendorRepo.Update(ctx, v); err != nil {
		s.log.Error().Err(err).Msg("Failed to update vendor status")
		return nil, err
	}

	s.log.Info().
		Str("vendor_id", id).
		Str("from", string(from)).
		Str("to", string(st)).
		Msg("Vendor status updated")
	return v, nil
}

// UpdateResponses replaces the questionnaire answers and rescores
func (s *VendorService) UpdateResponses(ctx context.Context, sess *domain.Session, id string, responses map[string]string) (*domain.Vendor, error) {
	if err := authorize(s.log, sess, domain.ModuleVendors, domain.ActionWrite); err != nil {
		return nil, err
	}

	v, err := s.vendorRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := v.RiskScore
	v.ReplaceResponses(responses, s.now())

	if err := s.vendorRepo.Update(ctx, v); err != nil {
		s.log.Error().Err(err).Msg("Failed to update vendor responses")
		return nil, err
	}

	s.log.Info().
		Str("vendor_id", id).
		Int("score_before", before).
		Int("score_after", v.RiskScore).
		Msg("Vendor rescored")
	return v, nil
}

// AssignTemplate activates an audit template's controls on a vendor. An empty
// name clears the assignment.
func (s *VendorService) AssignTemplate(ctx context.Context, sess *domain.Session, id, templateName string) (*domain.Vendor, error) {
	if err := authorize(s.log, sess, domain.ModuleVendors, domain.ActionWrite); err != nil {
		return nil, err
	}

	v, err := s.vendorRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	templateName = strings.TrimSpace(templateName)
	if templateName == "" {
		v.AuditTemplate = ""
		v.ActiveControlIDs = nil
	} else {
		tpl, err := s.templateRepo.Get(ctx, templateName)
		if err != nil {
			return nil, err
		}
		v.AuditTemplate = tpl.Name
		v.ActiveControlIDs = append([]string(nil), tpl.ControlIDs...)
	}

	if err := s.vendorRepo.Update(ctx, v); err != nil {
		return nil, err
	}

	s.log.Info().Str("vendor_id", id).Str("template", templateName).Msg("Audit template assigned")
	return v, nil
}

// DeleteVendor removes a vendor with its questionnaire and audit responses,
// then the files attached to those responses
func (s *VendorService) DeleteVendor(ctx context.Context, sess *domain.Session, id string) error {
	if err := authorize(s.log, sess, domain.ModuleVendors, domain.ActionWrite); err != nil {
		return err
	}

	s.log.Info().Str("vendor_id", id).Str("actor", sess.ActorID()).Msg("Deleting vendor")

	if err := s.vendorRepo.Delete(ctx, id); err != nil {
		if !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			s.log.Error().Err(err).Str("vendor_id", id).Msg("Failed to delete vendor")
		}
		return err
	}

	if s.evidence != nil {
		n, err := s.evidence.purgeEntities(ctx, EvidenceCategoryVendorAudit, id+"/")
		if err != nil {
			s.log.Warn().Err(err).Str("vendor_id", id).Msg("Failed to remove audit attachments")
		} else if n > 0 {
			s.log.Debug().Str("vendor_id", id).Int("attachments", n).Msg("Audit attachments removed")
		}
	}

	s.log.Info().Str("vendor_id", id).Msg("Vendor deleted successfully")
	return nil
}

// GetAuditResponses lists a vendor's audit answers by control id
func (s *VendorService) GetAuditResponses(ctx context.Context, sess *domain.Session, vendorID string) ([]domain.AuditResponse, error) {
	if err := authorize(s.log, sess, domain.ModuleVendors, domain.ActionRead); err != nil {
		return nil, err
	}
	if _, err := s.vendorRepo.Get(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.vendorRepo.GetAuditResponses(ctx, vendorID)
}

// AuditAnswer is one submitted audit response with an optional attachment.
type AuditAnswer struct {
	ControlID string
	Response  string
	Remark    string
	FileName  string
	File      io.Reader
}

type SaveAuditResult struct {
	Responses []domain.AuditResponse
	// Warnings lists attachments that could not be stored. The answers
	// themselves were saved.
	Warnings []string
}

// SaveAuditResponses upserts audit answers. Attachment failures degrade to
// warnings and never abort the save.
func (s *VendorService) SaveAuditResponses(ctx context.Context, sess *domain.Session, vendorID string, answers []AuditAnswer) (*SaveAuditResult, error) {
	if err := authorize(s.log, sess, domain.ModuleVendors, domain.ActionWrite); err != nil {
		return nil, err
	}

	v, err := s.vendorRepo.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	responses := make([]domain.AuditResponse, 0, len(answers))
	for _, a := range answers {
		responses = append(responses, domain.AuditResponse{
			VendorID:  vendorID,
			ControlID: a.ControlID,
			Response:  a.Response,
			Remark:    a.Remark,
			UpdatedAt: now,
		})
	}
	if err := domain.ValidateAuditResponses(v, responses); err != nil {
		return nil, err
	}

	result := &SaveAuditResult{}
	var stored []*domain.EvidenceFile
	for i, a := range answers {
		if a.File == nil || s.evidence == nil {
			continue
		}
		f, err := s.evidence.store(ctx, EvidenceCategoryVendorAudit, vendorID+"/"+a.ControlID, a.FileName, "", a.File)
		if err != nil {
			s.log.Warn().Err(err).Str("vendor_id", vendorID).Str("control_id", a.ControlID).Msg("Audit attachment not stored")
			result.Warnings = append(result.Warnings, fmt.Sprintf("attachment for %s was not stored", a.ControlID))
			continue
		}
		stored = append(stored, f)
		responses[i].FileName = f.FileName
	}

	if err := s.vendorRepo.SaveAuditResponses(ctx, vendorID, responses); err != nil {
		s.log.Error().Err(err).Msg("Failed to save audit responses")
		if len(stored) > 0 {
			if derr := s.evidence.discard(ctx, stored); derr != nil {
				s.log.Warn().Err(derr).Str("vendor_id", vendorID).Msg("Failed to remove unsaved audit attachments")
			}
		}
		return nil, err
	}

	result.Responses, err = s.vendorRepo.GetAuditResponses(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("vendor_id", vendorID).Int("count", len(responses)).Msg("Audit responses saved")
	return result, nil
}

// DraftSummary asks the text generator for a risk narrative
func (s *VendorService) DraftSummary(ctx context.Context, sess *domain.Session, id string) (string, error) {
	if err := authorize(s.log, sess, domain.ModuleVendors, domain.ActionExecute); err != nil {
		return "", err
	}

	v, err := s.vendorRepo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Vendor: %s\nStatus: %s\nRisk score: %d (%s risk)\n", v.Name, v.Status, v.RiskScore, v.Band())
	findings := domain.ExplainRiskScore(v.Responses)
	if len(findings) == 0 {
		b.WriteString("No risk deductions.\n")
	}
	for _, f := range findings {
		fmt.Fprintf(&b, "- %s = %q (-%d)\n", f.Key, f.Answer, f.Points)
	}

	return s.assist.GenerateText(ctx,
		"Write a concise third-party risk assessment summary for this vendor, with the main gaps and recommended mitigations.",
		b.String(),
	), nil
}

// VendorScoreBreakdown explains a vendor's score without touching it
func (s *VendorService) VendorScoreBreakdown(ctx context.Context, sess *domain.Session, id string) ([]domain.RiskFinding, error) {
	v, err := s.GetVendor(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return domain.ExplainRiskScore(v.Responses), nil
}

type TemplateService struct {
	templateRepo AuditTemplateStore
	log          *logger.Logger
	now          func() time.Time
}

func NewTemplateService(templateRepo AuditTemplateStore, log *logger.Logger) *TemplateService {
	return &TemplateService{templateRepo: templateRepo, log: log, now: utcNow}
}

// ListTemplates lists audit templates by name
func (s *TemplateService) ListTemplates(ctx context.Context, sess *domain.Session) ([]*domain.AuditTemplate, error) {
	if err := authorize(s.log, sess, domain.ModuleVendors, domain.ActionRead); err != nil {
		return nil, err
	}
	return s.templateRepo.List(ctx)
}

// CreateTemplate stores a new audit template
func (s *TemplateService) CreateTemplate(ctx context.Context, sess *domain.Session, name string, controlIDs []string) (*domain.AuditTemplate, error) {
	if err := authorize(s.log, sess, domain.ModuleVendors, domain.ActionWrite); err != nil {
		return nil, err
	}
	t, err := domain.NewAuditTemplate(name, controlIDs, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.templateRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info().Str("template", t.Name).Int("controls", len(t.ControlIDs)).Msg("Audit template created")
	return t, nil
}
