package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

type VAPTService struct {
	reportRepo VAPTStore
	assist     *AssistService
	log        *logger.Logger

	now   func() time.Time
	newID func() string
}

func NewVAPTService(reportRepo VAPTStore, assist *AssistService, log *logger.Logger) *VAPTService {
	return &VAPTService{
		reportRepo: reportRepo,
		assist:     assist,
		log:        log,
		now:        utcNow,
		newID:      newUUID,
	}
}

type CreateReportRequest struct {
	Title      string
	ClientName string
	Summary    string
}

// CreateReport creates a draft report
func (s *VAPTService) CreateReport(ctx context.Context, sess *domain.Session, req *CreateReportRequest) (*domain.VAPTReport, error) {
	if err := authorize(s.log, sess, domain.ModuleVAPT, domain.ActionWrite); err != nil {
		return nil, err
	}
	rep, err := domain.NewVAPTReport(s.newID(), domain.NewReportInput{
		Title:      req.Title,
		ClientName: req.ClientName,
		Summary:    req.Summary,
		CompanyID:  companyOf(sess),
	}, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.reportRepo.Create(ctx, rep); err != nil {
		s.log.Error().Err(err).Msg("Failed to create report")
		return nil, err
	}
	s.log.Info().Str("report_id", rep.ID).Str("title", rep.Title).Msg("Report created successfully")
	return rep, nil
}

// GetReport retrieves a report with its findings
func (s *VAPTService) GetReport(ctx context.Context, sess *domain.Session, id string) (*domain.VAPTReport, error) {
	if err := authorize(s.log, sess, domain.ModuleVAPT, domain.ActionRead); err != nil {
		return nil, err
	}
	return s.reportRepo.Get(ctx, id)
}

// ListReports lists the session company's reports, newest first
func (s *VAPTService) ListReports(ctx context.Context, sess *domain.Session) ([]*domain.VAPTReport, error) {
	if err := authorize(s.log, sess, domain.ModuleVAPT, domain.ActionRead); err != nil {
		return nil, err
	}
	return s.reportRepo.List(ctx, companyOf(sess))
}

// UpdateReportRequest is a partial update; nil fields are left unchanged.
type UpdateReportRequest struct {
	Title      *string
	ClientName *string
	Summary    *string
	Status     *string
}

// UpdateReport edits report header fields
func (s *VAPTService) UpdateReport(ctx context.Context, sess *domain.Session, id string, req *UpdateReportRequest) (*domain.VAPTReport, error) {
	if err := authorize(s.log, sess, domain.ModuleVAPT, domain.ActionWrite); err != nil {
		return nil, err
	}
	rep, err := s.reportRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, errRequiredField("report title")
		}
		rep.Title = title
	}
	if req.ClientName != nil {
		rep.ClientName = *req.ClientName
	}
	if req.Summary != nil {
		rep.Summary = *req.Summary
	}
	if req.Status != nil {
		st, err := domain.ParseReportStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		rep.Status = st
	}

	if err := s.reportRepo.Update(ctx, rep); err != nil {
		return nil, err
	}
	s.log.Info().Str("report_id", id).Str("status", string(rep.Status)).Msg("Report updated")
	return rep, nil
}

// DeleteReport removes a report and its findings
func (s *VAPTService) DeleteReport(ctx context.Context, sess *domain.Session, id string) error {
	if err := authorize(s.log, sess, domain.ModuleVAPT, domain.ActionWrite); err != nil {
		return err
	}
	if err := s.reportRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("report_id", id).Msg("Report deleted")
	return nil
}

// AddFinding appends a finding; the ID is assigned here
func (s *VAPTService) AddFinding(ctx context.Context, sess *domain.Session, reportID string, f domain.Finding) (*domain.VAPTReport, error) {
	return s.mutateFindings(ctx, sess, reportID, func(rep *domain.VAPTReport) error {
		f.ID = s.newID()
		return rep.AddFinding(f)
	})
}

// UpdateFinding replaces a finding in place
func (s *VAPTService) UpdateFinding(ctx context.Context, sess *domain.Session, reportID string, f domain.Finding) (*domain.VAPTReport, error) {
	return s.mutateFindings(ctx, sess, reportID, func(rep *domain.VAPTReport) error {
		return rep.ReplaceFinding(f)
	})
}

// RemoveFinding deletes a finding, keeping the order of the rest
func (s *VAPTService) RemoveFinding(ctx context.Context, sess *domain.Session, reportID, findingID string) (*domain.VAPTReport, error) {
	return s.mutateFindings(ctx, sess, reportID, func(rep *domain.VAPTReport) error {
		return rep.RemoveFinding(findingID)
	})
}

func (s *VAPTService) mutateFindings(ctx context.Context, sess *domain.Session, reportID string, fn func(*domain.VAPTReport) error) (*domain.VAPTReport, error) {
	if err := authorize(s.log, sess, domain.ModuleVAPT, domain.ActionWrite); err != nil {
		return nil, err
	}
	rep, err := s.reportRepo.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := fn(rep); err != nil {
		return nil, err
	}
	if err := s.reportRepo.Update(ctx, rep); err != nil {
		s.log.Error().Err(err).Str("report_id", reportID).Msg("Failed to save findings")
		return nil, err
	}
	s.log.Info().Str("report_id", reportID).Int("findings", len(rep.Findings)).Msg("Findings updated")
	return rep, nil
}

// SeverityCounts tallies a report's findings by severity
func (s *VAPTService) SeverityCounts(ctx context.Context, sess *domain.Session, id string) (map[domain.Severity]int, error) {
	rep, err := s.GetReport(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return rep.SeverityCounts(), nil
}

// DraftSummary asks the text generator for an executive summary
func (s *VAPTService) DraftSummary(ctx context.Context, sess *domain.Session, id string) (string, error) {
	if err := authorize(s.log, sess, domain.ModuleVAPT, domain.ActionExecute); err != nil {
		return "", err
	}
	rep, err := s.reportRepo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Report: %s\nClient: %s\n", rep.Title, rep.ClientName)
	counts := rep.SeverityCounts()
	for _, sev := range domain.Severities {
		fmt.Fprintf(&b, "%s: %d\n", sev, counts[sev])
	}
	for i, f := range rep.Findings {
		fmt.Fprintf(&b, "%d. [%s, CVSS %.1f] %s\n", i+1, f.Severity, f.CVSS, f.Title)
	}

	return s.assist.GenerateText(ctx,
		"Write an executive summary for this vulnerability assessment and penetration test report.",
		b.String(),
	), nil
}
