package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

// ComplianceRepository stores compliance controls and their revisions
type ComplianceRepository struct {
	db  DBTX
	log *logger.Logger
}

func NewComplianceRepository(db DBTX, log *logger.Logger) *ComplianceRepository {
	return &ComplianceRepository{db: db, log: log}
}

const controlColumns = `id, framework, control_id, title, description, category, status, evidence, notes, company_id, updated_at`

// InsertControls bulk-inserts controls in catalog order in one transaction.
// Loading a framework twice for the same company is a conflict.
func (r *ComplianceRepository) InsertControls(ctx context.Context, controls []*domain.ComplianceControl) error {
	query := `
		INSERT INTO compliance_controls (` + controlColumns + `, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		for i, c := range controls {
			_, err := tx.Exec(ctx, query,
				c.ID, c.Framework, c.ControlID, c.Title, c.Description, c.Category,
				string(c.Status), c.Evidence, c.Notes, c.CompanyID, c.UpdatedAt, i,
			)
			if isUniqueViolation(err) {
				return apperrors.Conflict("framework " + c.Framework + " is already loaded")
			}
			if err != nil {
				return apperrors.Internal("failed to insert control", err)
			}
		}
		return nil
	})
}

// GetControl retrieves a control by ID
func (r *ComplianceRepository) GetControl(ctx context.Context, id string) (*domain.ComplianceControl, error) {
	c, err := scanControl(r.db.QueryRow(ctx, `SELECT `+controlColumns+` FROM compliance_controls WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, apperrors.NotFound("control", id)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get control", err)
	}
	return c, nil
}

// ListControls lists controls in catalog order. Empty filters match all.
func (r *ComplianceRepository) ListControls(ctx context.Context, companyID, framework string) ([]*domain.ComplianceControl, error) {
	query := `
		SELECT ` + controlColumns + `
		FROM compliance_controls
		WHERE ($1::text = '' OR company_id = $1)
		  AND ($2::text = '' OR framework = $2)
		ORDER BY framework, position
	`

	rows, err := r.db.Query(ctx, query, companyID, framework)
	if err != nil {
		return nil, apperrors.Internal("failed to list controls", err)
	}
	defer rows.Close()

	out := make([]*domain.ComplianceControl, 0)
	for rows.Next() {
		c, err := scanControl(rows)
		if err != nil {
			return nil, apperrors.Internal("failed to scan control", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to list controls", err)
	}
	return out, nil
}

// UpdateControl stores the control and appends its revision in one transaction
func (r *ComplianceRepository) UpdateControl(ctx context.Context, c *domain.ComplianceControl, rev *domain.ControlRevision) error {
	update := `
		UPDATE compliance_controls
		SET status = $2, evidence = $3, notes = $4, updated_at = $5
		WHERE id = $1
	`
	insert := `
		INSERT INTO control_revisions (id, control_ref, changed_by, changed_at, status_from, status_to, evidence_patch, notes_patch)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, update, c.ID, string(c.Status), c.Evidence, c.Notes, c.UpdatedAt)
		if err != nil {
			return apperrors.Internal("failed to update control", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("control", c.ID)
		}
		if rev == nil {
			return nil
		}
		_, err = tx.Exec(ctx, insert,
			rev.ID, rev.ControlRef, rev.ChangedBy, rev.ChangedAt,
			string(rev.StatusFrom), string(rev.StatusTo), rev.EvidencePatch, rev.NotesPatch,
		)
		if err != nil {
			return apperrors.Internal("failed to record control revision", err)
		}
		return nil
	})
}

// Revisions lists a control's revisions, oldest first
func (r *ComplianceRepository) Revisions(ctx context.Context, controlID string) ([]*domain.ControlRevision, error) {
	query := `
		SELECT id, control_ref, changed_by, changed_at, status_from, status_to, evidence_patch, notes_patch
		FROM control_revisions
		WHERE control_ref = $1
		ORDER BY changed_at, id
	`

	rows, err := r.db.Query(ctx, query, controlID)
	if err != nil {
		return nil, apperrors.Internal("failed to list revisions", err)
	}
	defer rows.Close()

	out := make([]*domain.ControlRevision, 0)
	for rows.Next() {
		rev := &domain.ControlRevision{}
		var from, to string
		if err := rows.Scan(&rev.ID, &rev.ControlRef, &rev.ChangedBy, &rev.ChangedAt, &from, &to, &rev.EvidencePatch, &rev.NotesPatch); err != nil {
			return nil, apperrors.Internal("failed to scan revision", err)
		}
		rev.StatusFrom = domain.ControlStatus(from)
		rev.StatusTo = domain.ControlStatus(to)
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to list revisions", err)
	}
	return out, nil
}

// DeleteFramework removes every control of a framework for a company.
// Revisions cascade.
func (r *ComplianceRepository) DeleteFramework(ctx context.Context, companyID, framework string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM compliance_controls WHERE company_id = $1 AND framework = $2`, companyID, framework)
	if err != nil {
		return 0, apperrors.Internal("failed to delete framework", err)
	}
	return tag.RowsAffected(), nil
}

func scanControl(row pgx.Row) (*domain.ComplianceControl, error) {
	c := &domain.ComplianceControl{}
	var status string
	err := row.Scan(
		&c.ID, &c.Framework, &c.ControlID, &c.Title, &c.Description, &c.Category,
		&status, &c.Evidence, &c.Notes, &c.CompanyID, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = domain.ControlStatus(status)
	return c, nil
}
