package memory

import (
	"context"
	"sort"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

type VendorRepository struct{ s *Store }

func (r *VendorRepository) Create(_ context.Context, v *domain.Vendor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.vendors[v.ID]; ok {
		return apperrors.Conflict("vendor already exists")
	}
	r.s.vendors[v.ID] = cloneVendor(v)
	return nil
}

func (r *VendorRepository) Get(_ context.Context, id string) (*domain.Vendor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	v, ok := r.s.vendors[id]
	if !ok {
		return nil, apperrors.NotFound("vendor", id)
	}
	return cloneVendor(v), nil
}

func (r *VendorRepository) List(_ context.Context, companyID string) ([]*domain.Vendor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Vendor, 0, len(r.s.vendors))
	for _, v := range r.s.vendors {
		if companyID != "" && v.CompanyID != companyID {
			continue
		}
		out = append(out, cloneVendor(v))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *VendorRepository) Update(_ context.Context, v *domain.Vendor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.vendors[v.ID]; !ok {
		return apperrors.NotFound("vendor", v.ID)
	}
	r.s.vendors[v.ID] = cloneVendor(v)
	return nil
}

// Delete removes the vendor together with its questionnaire and audit
// responses. Nothing is removed when the vendor does not exist.
func (r *VendorRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.vendors[id]; !ok {
		return apperrors.NotFound("vendor", id)
	}
	delete(r.s.audits, id)
	delete(r.s.vendors, id)
	return nil
}

func (r *VendorRepository) GetAuditResponses(_ context.Context, vendorID string) ([]domain.AuditResponse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byControl := r.s.audits[vendorID]
	out := make([]domain.AuditResponse, 0, len(byControl))
	for _, id := range sortedKeys(byControl) {
		out = append(out, byControl[id])
	}
	return out, nil
}

// SaveAuditResponses upserts by control id. An empty file name keeps the
// previously stored one.
func (r *VendorRepository) SaveAuditResponses(_ context.Context, vendorID string, responses []domain.AuditResponse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.vendors[vendorID]; !ok {
		return apperrors.NotFound("vendor", vendorID)
	}
	byControl := r.s.audits[vendorID]
	if byControl == nil {
		byControl = map[string]domain.AuditResponse{}
		r.s.audits[vendorID] = byControl
	}
	for _, a := range responses {
		a.VendorID = vendorID
		if prev, ok := byControl[a.ControlID]; ok && a.FileName == "" {
			a.FileName = prev.FileName
		}
		byControl[a.ControlID] = a
	}
	return nil
}

type TemplateRepository struct{ s *Store }

func (r *TemplateRepository) Create(_ context.Context, t *domain.AuditTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.templates[t.Name]; ok {
		return apperrors.Conflict("audit template " + t.Name + " already exists")
	}
	cp := *t
	cp.ControlIDs = cloneStrings(t.ControlIDs)
	r.s.templates[t.Name] = &cp
	return nil
}

func (r *TemplateRepository) Get(_ context.Context, name string) (*domain.AuditTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.templates[name]
	if !ok {
		return nil, apperrors.NotFound("audit template", name)
	}
	cp := *t
	cp.ControlIDs = cloneStrings(t.ControlIDs)
	return &cp, nil
}

func (r *TemplateRepository) List(_ context.Context) ([]*domain.AuditTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.AuditTemplate, 0, len(r.s.templates))
	for _, name := range sortedKeys(r.s.templates) {
		cp := *r.s.templates[name]
		cp.ControlIDs = cloneStrings(cp.ControlIDs)
		out = append(out, &cp)
	}
	return out, nil
}

type ComplianceRepository struct{ s *Store }

// InsertControls stores the batch atomically. Any clash with a loaded
// control of the same company and framework rejects the whole batch.
func (r *ComplianceRepository) InsertControls(_ context.Context, controls []*domain.ComplianceControl) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range controls {
		for _, existing := range r.s.controls {
			if existing.CompanyID == c.CompanyID && existing.Framework == c.Framework && existing.ControlID == c.ControlID {
				return apperrors.Conflict("framework " + c.Framework + " is already loaded")
			}
		}
	}
	for _, c := range controls {
		cp := *c
		r.s.controls[c.ID] = &cp
		r.s.controlSeq[c.ID] = r.s.insertOrder
		r.s.insertOrder++
	}
	return nil
}

func (r *ComplianceRepository) GetControl(_ context.Context, id string) (*domain.ComplianceControl, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.controls[id]
	if !ok {
		return nil, apperrors.NotFound("control", id)
	}
	cp := *c
	return &cp, nil
}

func (r *ComplianceRepository) ListControls(_ context.Context, companyID, framework string) ([]*domain.ComplianceControl, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.ComplianceControl, 0)
	for _, c := range r.s.controls {
		if companyID != "" && c.CompanyID != companyID {
			continue
		}
		if framework != "" && c.Framework != framework {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Framework != out[j].Framework {
			return out[i].Framework < out[j].Framework
		}
		return r.s.controlSeq[out[i].ID] < r.s.controlSeq[out[j].ID]
	})
	return out, nil
}

func (r *ComplianceRepository) UpdateControl(_ context.Context, c *domain.ComplianceControl, rev *domain.ControlRevision) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.controls[c.ID]
	if !ok {
		return apperrors.NotFound("control", c.ID)
	}
	cur.Status = c.Status
	cur.Evidence = c.Evidence
	cur.Notes = c.Notes
	cur.UpdatedAt = c.UpdatedAt
	if rev != nil {
		cp := *rev
		r.s.revisions[c.ID] = append(r.s.revisions[c.ID], &cp)
	}
	return nil
}

func (r *ComplianceRepository) Revisions(_ context.Context, controlID string) ([]*domain.ControlRevision, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.ControlRevision, 0, len(r.s.revisions[controlID]))
	for _, rev := range r.s.revisions[controlID] {
		cp := *rev
		out = append(out, &cp)
	}
	return out, nil
}

func (r *ComplianceRepository) DeleteFramework(_ context.Context, companyID, framework string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, c := range r.s.controls {
		if c.CompanyID == companyID && c.Framework == framework {
			delete(r.s.controls, id)
			delete(r.s.controlSeq, id)
			delete(r.s.revisions, id)
			n++
		}
	}
	return n, nil
}

type VAPTRepository struct{ s *Store }

func (r *VAPTRepository) Create(_ context.Context, rep *domain.VAPTReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reports[rep.ID]; ok {
		return apperrors.Conflict("report already exists")
	}
	r.s.reports[rep.ID] = cloneReport(rep)
	return nil
}

func (r *VAPTRepository) Get(_ context.Context, id string) (*domain.VAPTReport, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rep, ok := r.s.reports[id]
	if !ok {
		return nil, apperrors.NotFound("report", id)
	}
	return cloneReport(rep), nil
}

func (r *VAPTRepository) List(_ context.Context, companyID string) ([]*domain.VAPTReport, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.VAPTReport, 0, len(r.s.reports))
	for _, rep := range r.s.reports {
		if companyID != "" && rep.CompanyID != companyID {
			continue
		}
		out = append(out, cloneReport(rep))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *VAPTRepository) Update(_ context.Context, rep *domain.VAPTReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reports[rep.ID]; !ok {
		return apperrors.NotFound("report", rep.ID)
	}
	r.s.reports[rep.ID] = cloneReport(rep)
	return nil
}

func (r *VAPTRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reports[id]; !ok {
		return apperrors.NotFound("report", id)
	}
	delete(r.s.reports, id)
	return nil
}

type PrivacyRepository struct{ s *Store }

func (r *PrivacyRepository) Create(_ context.Context, rec *domain.PrivacyRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.privacy[rec.ID]; ok {
		return apperrors.Conflict("privacy record already exists")
	}
	cp := *rec
	r.s.privacy[rec.ID] = &cp
	return nil
}

func (r *PrivacyRepository) Get(_ context.Context, id string) (*domain.PrivacyRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.privacy[id]
	if !ok {
		return nil, apperrors.NotFound("privacy record", id)
	}
	cp := *rec
	return &cp, nil
}

func (r *PrivacyRepository) List(_ context.Context, companyID string, typ domain.PrivacyType) ([]*domain.PrivacyRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.PrivacyRecord, 0)
	for _, rec := range r.s.privacy {
		if companyID != "" && rec.CompanyID != companyID {
			continue
		}
		if typ != "" && rec.Type != typ {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Update replaces the payload. The stored record type never changes.
func (r *PrivacyRepository) Update(_ context.Context, rec *domain.PrivacyRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.privacy[rec.ID]
	if !ok || cur.Type != rec.Type {
		return apperrors.NotFound("privacy record", rec.ID)
	}
	cur.Data = rec.Data
	return nil
}

func (r *PrivacyRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.privacy[id]; !ok {
		return apperrors.NotFound("privacy record", id)
	}
	delete(r.s.privacy, id)
	return nil
}

type EvidenceRepository struct{ s *Store }

func (r *EvidenceRepository) Create(_ context.Context, f *domain.EvidenceFile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *f
	r.s.evidence[f.ID] = &cp
	return nil
}

func (r *EvidenceRepository) Get(_ context.Context, id string) (*domain.EvidenceFile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, ok := r.s.evidence[id]
	if !ok {
		return nil, apperrors.NotFound("evidence", id)
	}
	cp := *f
	return &cp, nil
}

func (r *EvidenceRepository) List(_ context.Context, category, entityID string) ([]*domain.EvidenceFile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.EvidenceFile, 0)
	for _, f := range r.s.evidence {
		if category != "" && f.Category != category {
			continue
		}
		if entityID != "" && f.EntityID != entityID {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *EvidenceRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.evidence[id]; !ok {
		return apperrors.NotFound("evidence", id)
	}
	delete(r.s.evidence, id)
	return nil
}
