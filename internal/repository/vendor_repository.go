package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

// VendorRepository stores vendors with their questionnaire and audit responses
type VendorRepository struct {
	db  DBTX
	log *logger.Logger
}

func NewVendorRepository(db DBTX, log *logger.Logger) *VendorRepository {
	return &VendorRepository{db: db, log: log}
}

const vendorColumns = `id, name, status, risk_score, questionnaire, audit_template, active_control_ids, company_id, created_at, submitted_at`

// Create inserts the vendor and its response rows in one transaction
func (r *VendorRepository) Create(ctx context.Context, v *domain.Vendor) error {
	query := `
		INSERT INTO vendors (` + vendorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			v.ID, v.Name, string(v.Status), v.RiskScore, v.Questionnaire,
			v.AuditTemplate, nonNil(v.ActiveControlIDs), v.CompanyID, v.CreatedAt, v.SubmittedAt,
		)
		if isUniqueViolation(err) {
			return apperrors.Conflict("vendor already exists")
		}
		if err != nil {
			return apperrors.Internal("failed to create vendor", err)
		}
		return insertResponses(ctx, tx, v.ID, v.Responses)
	})
}

// Get retrieves a vendor with its responses
func (r *VendorRepository) Get(ctx context.Context, id string) (*domain.Vendor, error) {
	v, err := scanVendor(r.db.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, apperrors.NotFound("vendor", id)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get vendor", err)
	}

	responses, err := r.responsesFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	v.Responses = responses[id]
	if v.Responses == nil {
		v.Responses = map[string]string{}
	}
	return v, nil
}

// List retrieves the vendors of a company, newest first. An empty companyID
// lists every vendor.
func (r *VendorRepository) List(ctx context.Context, companyID string) ([]*domain.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE ($1::text = '' OR company_id = $1) ORDER BY created_at DESC, name`

	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, apperrors.Internal("failed to list vendors", err)
	}
	defer rows.Close()

	vendors := make([]*domain.Vendor, 0)
	ids := make([]string, 0)
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, apperrors.Internal("failed to scan vendor", err)
		}
		vendors = append(vendors, v)
		ids = append(ids, v.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to list vendors", err)
	}
	rows.Close()

	responses, err := r.responsesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, v := range vendors {
		v.Responses = responses[v.ID]
		if v.Responses == nil {
			v.Responses = map[string]string{}
		}
	}
	return vendors, nil
}

// Update stores the vendor row and replaces its response rows in one
// transaction
func (r *VendorRepository) Update(ctx context.Context, v *domain.Vendor) error {
	query := `
		UPDATE vendors
		SET name = $2, status = $3, risk_score = $4, questionnaire = $5,
		    audit_template = $6, active_control_ids = $7, submitted_at = $8
		WHERE id = $1
	`

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query,
			v.ID, v.Name, string(v.Status), v.RiskScore, v.Questionnaire,
			v.AuditTemplate, nonNil(v.ActiveControlIDs), v.SubmittedAt,
		)
		if err != nil {
			return apperrors.Internal("failed to update vendor", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("vendor", v.ID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM vendor_responses WHERE vendor_id = $1`, v.ID); err != nil {
			return apperrors.Internal("failed to clear vendor responses", err)
		}
		return insertResponses(ctx, tx, v.ID, v.Responses)
	})
}

// Delete removes a vendor together with every response and audit response
// row keyed by it, in one transaction
func (r *VendorRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		audits, err := tx.Exec(ctx, `DELETE FROM audit_responses WHERE vendor_id = $1`, id)
		if err != nil {
			return apperrors.Internal("failed to delete audit responses", err)
		}
		responses, err := tx.Exec(ctx, `DELETE FROM vendor_responses WHERE vendor_id = $1`, id)
		if err != nil {
			return apperrors.Internal("failed to delete vendor responses", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
		if err != nil {
			return apperrors.Internal("failed to delete vendor", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("vendor", id)
		}

		r.log.Debug().
			Str("vendor_id", id).
			Int64("audit_responses", audits.RowsAffected()).
			Int64("responses", responses.RowsAffected()).
			Msg("Vendor rows deleted")
		return nil
	})
}

// GetAuditResponses returns a vendor's audit responses ordered by control id
func (r *VendorRepository) GetAuditResponses(ctx context.Context, vendorID string) ([]domain.AuditResponse, error) {
	query := `
		SELECT vendor_id, control_id, response, remark, file_name, updated_at
		FROM audit_responses
		WHERE vendor_id = $1
		ORDER BY control_id
	`

	rows, err := r.db.Query(ctx, query, vendorID)
	if err != nil {
		return nil, apperrors.Internal("failed to get audit responses", err)
	}
	defer rows.Close()

	out := make([]domain.AuditResponse, 0)
	for rows.Next() {
		var a domain.AuditResponse
		if err := rows.Scan(&a.VendorID, &a.ControlID, &a.Response, &a.Remark, &a.FileName, &a.UpdatedAt); err != nil {
			return nil, apperrors.Internal("failed to scan audit response", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to read audit responses", err)
	}
	return out, nil
}

// SaveAuditResponses upserts audit responses for a vendor in one transaction.
// A response without a file name keeps the previously stored one.
func (r *VendorRepository) SaveAuditResponses(ctx context.Context, vendorID string, responses []domain.AuditResponse) error {
	query := `
		INSERT INTO audit_responses (vendor_id, control_id, response, remark, file_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (vendor_id, control_id) DO UPDATE
		SET response = EXCLUDED.response,
		    remark = EXCLUDED.remark,
		    file_name = CASE WHEN EXCLUDED.file_name = '' THEN audit_responses.file_name ELSE EXCLUDED.file_name END,
		    updated_at = EXCLUDED.updated_at
	`

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vendors WHERE id = $1)`, vendorID).Scan(&exists); err != nil {
			return apperrors.Internal("failed to check vendor", err)
		}
		if !exists {
			return apperrors.NotFound("vendor", vendorID)
		}
		for _, a := range responses {
			if _, err := tx.Exec(ctx, query, vendorID, a.ControlID, a.Response, a.Remark, a.FileName, a.UpdatedAt); err != nil {
				return apperrors.Internal("failed to save audit response", err)
			}
		}
		return nil
	})
}

func (r *VendorRepository) responsesFor(ctx context.Context, vendorIDs []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(vendorIDs))
	if len(vendorIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `SELECT vendor_id, question_id, answer FROM vendor_responses WHERE vendor_id = ANY($1)`, vendorIDs)
	if err != nil {
		return nil, apperrors.Internal("failed to get vendor responses", err)
	}
	defer rows.Close()

	for rows.Next() {
		var vendorID, question, answer string
		if err := rows.Scan(&vendorID, &question, &answer); err != nil {
			return nil, apperrors.Internal("failed to scan vendor response", err)
		}
		if out[vendorID] == nil {
			out[vendorID] = map[string]string{}
		}
		out[vendorID][question] = answer
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to read vendor responses", err)
	}
	return out, nil
}

func insertResponses(ctx context.Context, tx pgx.Tx, vendorID string, responses map[string]string) error {
	for question, answer := range responses {
		_, err := tx.Exec(ctx,
			`INSERT INTO vendor_responses (vendor_id, question_id, answer) VALUES ($1, $2, $3)`,
			vendorID, question, answer,
		)
		if err != nil {
			return apperrors.Internal("failed to store vendor response", err)
		}
	}
	return nil
}

func scanVendor(row pgx.Row) (*domain.Vendor, error) {
	v := &domain.Vendor{}
	var status string
	var createdAt, submittedAt time.Time
	err := row.Scan(
		&v.ID, &v.Name, &status, &v.RiskScore, &v.Questionnaire,
		&v.AuditTemplate, &v.ActiveControlIDs, &v.CompanyID, &createdAt, &submittedAt,
	)
	if err != nil {
		return nil, err
	}
	v.Status = domain.VendorStatus(status)
	v.CreatedAt = createdAt
	v.SubmittedAt = submittedAt
	return v, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
