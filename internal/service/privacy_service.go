package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

type PrivacyService struct {
	privacyRepo PrivacyStore
	log         *logger.Logger

	now   func() time.Time
	newID func() string
}

func NewPrivacyService(privacyRepo PrivacyStore, log *logger.Logger) *PrivacyService {
	return &PrivacyService{
		privacyRepo: privacyRepo,
		log:         log,
		now:         utcNow,
		newID:       newUUID,
	}
}

// CreateRecord stores a register entry; its type comes from the data variant
func (s *PrivacyService) CreateRecord(ctx context.Context, sess *domain.Session, data domain.PrivacyData) (*domain.PrivacyRecord, error) {
	if err := authorize(s.log, sess, domain.ModulePrivacy, domain.ActionWrite); err != nil {
		return nil, err
	}
	rec, err := domain.NewPrivacyRecord(s.newID(), data, companyOf(sess), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.privacyRepo.Create(ctx, rec); err != nil {
		s.log.Error().Err(err).Msg("Failed to create privacy record")
		return nil, err
	}
	s.log.Info().Str("record_id", rec.ID).Str("type", string(rec.Type)).Msg("Privacy record created")
	return rec, nil
}

// GetRecord retrieves a register entry
func (s *PrivacyService) GetRecord(ctx context.Context, sess *domain.Session, id string) (*domain.PrivacyRecord, error) {
	if err := authorize(s.log, sess, domain.ModulePrivacy, domain.ActionRead); err != nil {
		return nil, err
	}
	return s.privacyRepo.Get(ctx, id)
}

// ListRecords lists the session company's entries, optionally of one type
func (s *PrivacyService) ListRecords(ctx context.Context, sess *domain.Session, typ string) ([]*domain.PrivacyRecord, error) {
	if err := authorize(s.log, sess, domain.ModulePrivacy, domain.ActionRead); err != nil {
		return nil, err
	}
	var t domain.PrivacyType
	if typ != "" {
		var err error
		if t, err = domain.ParsePrivacyType(typ); err != nil {
			return nil, err
		}
	}
	return s.privacyRepo.List(ctx, companyOf(sess), t)
}

// UpdateRecord replaces an entry's data. The variant must keep the record's type.
func (s *PrivacyService) UpdateRecord(ctx context.Context, sess *domain.Session, id string, data domain.PrivacyData) (*domain.PrivacyRecord, error) {
	if err := authorize(s.log, sess, domain.ModulePrivacy, domain.ActionWrite); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, apperrors.Validation("privacy data is required")
	}
	rec, err := s.privacyRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if data.PrivacyType() != rec.Type {
		return nil, apperrors.Validation(fmt.Sprintf("record %s is of type %s, not %s", id, rec.Type, data.PrivacyType()))
	}
	rec.Data = data
	if err := s.privacyRepo.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Info().Str("record_id", id).Str("type", string(rec.Type)).Msg("Privacy record updated")
	return rec, nil
}

// DeleteRecord removes a register entry
func (s *PrivacyService) DeleteRecord(ctx context.Context, sess *domain.Session, id string) error {
	if err := authorize(s.log, sess, domain.ModulePrivacy, domain.ActionWrite); err != nil {
		return err
	}
	if err := s.privacyRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("record_id", id).Msg("Privacy record deleted")
	return nil
}
