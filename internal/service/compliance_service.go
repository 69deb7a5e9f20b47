package service

import (
	"context"
	"sort"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

type ComplianceService struct {
	complianceRepo ComplianceStore
	catalog        ControlCatalog
	log            *logger.Logger

	now   func() time.Time
	newID func() string
}

func NewComplianceService(complianceRepo ComplianceStore, catalog ControlCatalog, log *logger.Logger) *ComplianceService {
	return &ComplianceService{
		complianceRepo: complianceRepo,
		catalog:        catalog,
		log:            log,
		now:            utcNow,
		newID:          newUUID,
	}
}

// Frameworks lists the built-in control catalogs
func (s *ComplianceService) Frameworks(sess *domain.Session) ([]*domain.ControlTemplate, error) {
	if err := authorize(s.log, sess, domain.ModuleCompliance, domain.ActionRead); err != nil {
		return nil, err
	}
	return s.catalog.List(), nil
}

// LoadFramework expands a built-in catalog into controls for the session's company
func (s *ComplianceService) LoadFramework(ctx context.Context, sess *domain.Session, framework string) ([]*domain.ComplianceControl, error) {
	if err := authorize(s.log, sess, domain.ModuleCompliance, domain.ActionExecute); err != nil {
		return nil, err
	}
	tpl, err := s.catalog.Get(framework)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, sess, tpl)
}

// LoadTemplate loads a caller-supplied catalog
func (s *ComplianceService) LoadTemplate(ctx context.Context, sess *domain.Session, tpl *domain.ControlTemplate) ([]*domain.ComplianceControl, error) {
	if err := authorize(s.log, sess, domain.ModuleCompliance, domain.ActionExecute); err != nil {
		return nil, err
	}
	return s.load(ctx, sess, tpl)
}

func (s *ComplianceService) load(ctx context.Context, sess *domain.Session, tpl *domain.ControlTemplate) ([]*domain.ComplianceControl, error) {
	controls, err := domain.NewControlsFromTemplate(tpl, companyOf(sess), s.newID, s.now())
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("framework", tpl.Framework).
		Str("version", tpl.Version).
		Int("controls", len(controls)).
		Msg("Loading framework")

	if err := s.complianceRepo.InsertControls(ctx, controls); err != nil {
		if !apperrors.HasCode(err, apperrors.ErrCodeConflict) {
			s.log.Error().Err(err).Msg("Failed to load framework")
		}
		return nil, err
	}

	s.log.Info().Str("framework", tpl.Framework).Msg("Framework loaded successfully")
	return controls, nil
}

// DeleteFramework removes every control of a framework for the session's company
func (s *ComplianceService) DeleteFramework(ctx context.Context, sess *domain.Session, framework string) (int64, error) {
	if err := authorize(s.log, sess, domain.ModuleCompliance, domain.ActionExecute); err != nil {
		return 0, err
	}

	n, err := s.complianceRepo.DeleteFramework(ctx, companyOf(sess), framework)
	if err != nil {
		s.log.Error().Err(err).Str("framework", framework).Msg("Failed to delete framework")
		return 0, err
	}
	if n == 0 {
		return 0, apperrors.NotFound("framework", framework)
	}

	s.log.Info().Str("framework", framework).Int64("controls", n).Msg("Framework deleted")
	return n, nil
}

// ListControls lists controls in catalog order. An empty framework lists all.
func (s *ComplianceService) ListControls(ctx context.Context, sess *domain.Session, framework string) ([]*domain.ComplianceControl, error) {
	if err := authorize(s.log, sess, domain.ModuleCompliance, domain.ActionRead); err != nil {
		return nil, err
	}
	return s.complianceRepo.ListControls(ctx, companyOf(sess), framework)
}

// UpdateControl applies a partial update and records what changed
func (s *ComplianceService) UpdateControl(ctx context.Context, sess *domain.Session, id string, u domain.ControlUpdate) (*domain.ComplianceControl, error) {
	if err := authorize(s.log, sess, domain.ModuleCompliance, domain.ActionWrite); err != nil {
		return nil, err
	}

	cur, err := s.complianceRepo.GetControl(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	next, err := domain.ApplyControlUpdate(cur, u, now)
	if err != nil {
		return nil, err
	}

	rev := &domain.ControlRevision{
		ID:            s.newID(),
		ControlRef:    cur.ID,
		ChangedBy:     sess.ActorID(),
		ChangedAt:     now,
		StatusFrom:    cur.Status,
		StatusTo:      next.Status,
		EvidencePatch: textPatch(cur.Evidence, next.Evidence),
		NotesPatch:    textPatch(cur.Notes, next.Notes),
	}

	if err := s.complianceRepo.UpdateControl(ctx, next, rev); err != nil {
		s.log.Error().Err(err).Str("control", id).Msg("Failed to update control")
		return nil, err
	}

	s.log.Info().
		Str("control", next.ControlID).
		Str("framework", next.Framework).
		Str("status", string(next.Status)).
		Msg("Control updated")
	return next, nil
}

// Revisions lists a control's change history, oldest first
func (s *ComplianceService) Revisions(ctx context.Context, sess *domain.Session, id string) ([]*domain.ControlRevision, error) {
	if err := authorize(s.log, sess, domain.ModuleCompliance, domain.ActionRead); err != nil {
		return nil, err
	}
	if _, err := s.complianceRepo.GetControl(ctx, id); err != nil {
		return nil, err
	}
	return s.complianceRepo.Revisions(ctx, id)
}

// ControlSnapshot is a control's evidence and notes as of one revision.
type ControlSnapshot struct {
	RevisionID string               `json:"revisionId"`
	ChangedBy  string               `json:"changedBy"`
	ChangedAt  time.Time            `json:"changedAt"`
	Status     domain.ControlStatus `json:"status"`
	Evidence   string               `json:"evidence"`
	Notes      string               `json:"notes"`
}

// History replays a control's revisions from its empty loaded state. A patch
// that no longer applies is an integrity error.
func (s *ComplianceService) History(ctx context.Context, sess *domain.Session, id string) ([]ControlSnapshot, error) {
	revs, err := s.Revisions(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	out := make([]ControlSnapshot, 0, len(revs))
	var evidence, notes string
	for _, r := range revs {
		var ok bool
		if evidence, ok = applyPatch(evidence, r.EvidencePatch); !ok {
			s.log.Error().Str("control", id).Str("revision", r.ID).Msg("Evidence patch does not apply")
			return nil, apperrors.Integrity("revision " + r.ID + " evidence patch does not apply")
		}
		if notes, ok = applyPatch(notes, r.NotesPatch); !ok {
			s.log.Error().Str("control", id).Str("revision", r.ID).Msg("Notes patch does not apply")
			return nil, apperrors.Integrity("revision " + r.ID + " notes patch does not apply")
		}
		out = append(out, ControlSnapshot{
			RevisionID: r.ID,
			ChangedBy:  r.ChangedBy,
			ChangedAt:  r.ChangedAt,
			Status:     r.StatusTo,
			Evidence:   evidence,
			Notes:      notes,
		})
	}
	return out, nil
}

// Summary counts one framework's controls for the session's company
func (s *ComplianceService) Summary(ctx context.Context, sess *domain.Session, framework string) (*domain.ComplianceSummary, error) {
	if err := authorize(s.log, sess, domain.ModuleCompliance, domain.ActionRead); err != nil {
		return nil, err
	}
	controls, err := s.complianceRepo.ListControls(ctx, companyOf(sess), framework)
	if err != nil {
		return nil, err
	}
	sum := domain.Summarize(framework, controls)
	return &sum, nil
}

// Summaries counts every loaded framework, sorted by name
func (s *ComplianceService) Summaries(ctx context.Context, sess *domain.Session) ([]domain.ComplianceSummary, error) {
	if err := authorize(s.log, sess, domain.ModuleCompliance, domain.ActionRead); err != nil {
		return nil, err
	}
	controls, err := s.complianceRepo.ListControls(ctx, companyOf(sess), "")
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var names []string
	for _, c := range controls {
		if _, ok := seen[c.Framework]; !ok {
			seen[c.Framework] = struct{}{}
			names = append(names, c.Framework)
		}
	}
	sort.Strings(names)

	out := make([]domain.ComplianceSummary, 0, len(names))
	for _, name := range names {
		out = append(out, domain.Summarize(name, controls))
	}
	return out, nil
}

// textPatch renders the change from before to after as a patch, or "" when
// nothing changed.
func textPatch(before, after string) string {
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	return dmp.PatchToText(dmp.PatchMake(before, after))
}

// applyPatch replays a stored revision patch onto text. It reports false when
// any hunk failed to apply.
func applyPatch(text, patch string) (string, bool) {
	if patch == "" {
		return text, true
	}
	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patch)
	if err != nil {
		return text, false
	}
	out, applied := dmp.PatchApply(patches, text)
	for _, ok := range applied {
		if !ok {
			return out, false
		}
	}
	return out, true
}
