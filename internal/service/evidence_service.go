package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

// evidenceModules maps evidence categories to the module guarding them.
var evidenceModules = map[string]domain.Module{
	EvidenceCategoryVendorAudit: domain.ModuleVendors,
	"vendors":                   domain.ModuleVendors,
	"compliance":                domain.ModuleCompliance,
	"vapt":                      domain.ModuleVAPT,
	"privacy":                   domain.ModulePrivacy,
}

func evidenceModule(category string) (domain.Module, error) {
	m, ok := evidenceModules[category]
	if !ok {
		return "", apperrors.Validation(fmt.Sprintf("invalid evidence category %q", category))
	}
	return m, nil
}

type EvidenceService struct {
	evidenceRepo EvidenceStore
	blobs        BlobStore
	log          *logger.Logger

	now   func() time.Time
	newID func() string
}

func NewEvidenceService(evidenceRepo EvidenceStore, blobs BlobStore, log *logger.Logger) *EvidenceService {
	return &EvidenceService{
		evidenceRepo: evidenceRepo,
		blobs:        blobs,
		log:          log,
		now:          utcNow,
		newID:        newUUID,
	}
}

type UploadRequest struct {
	Category    string
	EntityID    string
	FileName    string
	ContentType string
	Body        io.Reader
}

// Upload stores a file and its metadata
func (s *EvidenceService) Upload(ctx context.Context, sess *domain.Session, req *UploadRequest) (*domain.EvidenceFile, error) {
	module, err := evidenceModule(req.Category)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.log, sess, module, domain.ActionWrite); err != nil {
		return nil, err
	}
	if req.Body == nil {
		return nil, apperrors.Validation("file is required")
	}
	return s.store(ctx, req.Category, req.EntityID, req.FileName, req.ContentType, req.Body)
}

func (s *EvidenceService) store(ctx context.Context, category, entityID, fileName, contentType string, body io.Reader) (*domain.EvidenceFile, error) {
	name := filepath.Base(strings.TrimSpace(fileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, apperrors.Validation("file name is required")
	}

	path, size, err := s.blobs.Save(ctx, category, name, body)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrCodeValidation {
			return nil, err
		}
		return nil, apperrors.Unavailable("evidence storage failed", err)
	}

	f := &domain.EvidenceFile{
		ID:          s.newID(),
		Category:    category,
		EntityID:    entityID,
		FileName:    name,
		ContentType: contentType,
		Size:        size,
		StoragePath: path,
		UploadedAt:  s.now(),
	}
	if err := s.evidenceRepo.Create(ctx, f); err != nil {
		if rmErr := s.blobs.Remove(ctx, path); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("path", path).Msg("Failed to remove orphaned evidence blob")
		}
		return nil, err
	}

	s.log.Info().
		Str("evidence_id", f.ID).
		Str("category", category).
		Int64("size", size).
		Msg("Evidence uploaded")
	return f, nil
}

// ListEvidence lists file metadata, newest first. Without a category only the
// categories the actor may read are included.
func (s *EvidenceService) ListEvidence(ctx context.Context, sess *domain.Session, category, entityID string) ([]*domain.EvidenceFile, error) {
	if category != "" {
		module, err := evidenceModule(category)
		if err != nil {
			return nil, err
		}
		if err := authorize(s.log, sess, module, domain.ActionRead); err != nil {
			return nil, err
		}
		return s.evidenceRepo.List(ctx, category, entityID)
	}

	if err := requireAuthenticated(sess); err != nil {
		return nil, err
	}
	all, err := s.evidenceRepo.List(ctx, "", entityID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.EvidenceFile, 0, len(all))
	for _, f := range all {
		m, err := evidenceModule(f.Category)
		if err != nil || !domain.HasPermission(sess.Actor(), m, domain.ActionRead) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// OpenEvidence returns the metadata and content of one file. The caller
// closes the reader.
func (s *EvidenceService) OpenEvidence(ctx context.Context, sess *domain.Session, id string) (*domain.EvidenceFile, io.ReadCloser, error) {
	if err := requireAuthenticated(sess); err != nil {
		return nil, nil, err
	}
	f, err := s.evidenceRepo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	module, err := evidenceModule(f.Category)
	if err != nil {
		return nil, nil, err
	}
	if err := authorize(s.log, sess, module, domain.ActionRead); err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, f.StoragePath)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			return nil, nil, err
		}
		return nil, nil, apperrors.Unavailable("evidence storage failed", err)
	}
	return f, rc, nil
}

// DeleteEvidence removes the metadata, then the blob. A blob that cannot be
// removed is logged and left behind.
func (s *EvidenceService) DeleteEvidence(ctx context.Context, sess *domain.Session, id string) error {
	if err := requireAuthenticated(sess); err != nil {
		return err
	}
	f, err := s.evidenceRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	module, err := evidenceModule(f.Category)
	if err != nil {
		return err
	}
	if err := authorize(s.log, sess, module, domain.ActionWrite); err != nil {
		return err
	}

	if err := s.evidenceRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Remove(ctx, f.StoragePath); err != nil {
		s.log.Warn().Err(err).Str("path", f.StoragePath).Msg("Failed to remove evidence blob")
	}

	s.log.Info().Str("evidence_id", id).Msg("Evidence deleted")
	return nil
}

// purgeEntities removes every file in category whose entity id starts with
// prefix. Callers have already authorized the owning record's deletion.
func (s *EvidenceService) purgeEntities(ctx context.Context, category, prefix string) (int, error) {
	files, err := s.evidenceRepo.List(ctx, category, "")
	if err != nil {
		return 0, err
	}
	var matched []*domain.EvidenceFile
	for _, f := range files {
		if strings.HasPrefix(f.EntityID, prefix) {
			matched = append(matched, f)
		}
	}
	return len(matched), s.discard(ctx, matched)
}

// discard removes metadata and blobs for files that no record points at.
// Every file is attempted; the first metadata error is returned.
func (s *EvidenceService) discard(ctx context.Context, files []*domain.EvidenceFile) error {
	var firstErr error
	for _, f := range files {
		if err := s.evidenceRepo.Delete(ctx, f.ID); err != nil && !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := s.blobs.Remove(ctx, f.StoragePath); err != nil {
			s.log.Warn().Err(err).Str("path", f.StoragePath).Msg("Failed to remove evidence blob")
		}
	}
	return firstErr
}
