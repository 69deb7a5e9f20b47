package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

// VAPTRepository stores reports and their ordered findings
type VAPTRepository struct {
	db DBTX
}

func NewVAPTRepository(db DBTX) *VAPTRepository {
	return &VAPTRepository{db: db}
}

const reportColumns = `id, title, client_name, summary, status, company_id, created_at`

// Create inserts a report and its findings in one transaction
func (r *VAPTRepository) Create(ctx context.Context, rep *domain.VAPTReport) error {
	query := `INSERT INTO vapt_reports (` + reportColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query, rep.ID, rep.Title, rep.ClientName, rep.Summary, string(rep.Status), rep.CompanyID, rep.CreatedAt)
		if err != nil {
			return apperrors.Internal("failed to create report", err)
		}
		return insertFindings(ctx, tx, rep.ID, rep.Findings)
	})
}

// Get retrieves a report with findings in insertion order
func (r *VAPTRepository) Get(ctx context.Context, id string) (*domain.VAPTReport, error) {
	rep, err := scanReport(r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM vapt_reports WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, apperrors.NotFound("report", id)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get report", err)
	}

	findings, err := r.findingsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	rep.Findings = findings[id]
	if rep.Findings == nil {
		rep.Findings = []domain.Finding{}
	}
	return rep, nil
}

// List lists a company's reports, newest first
func (r *VAPTRepository) List(ctx context.Context, companyID string) ([]*domain.VAPTReport, error) {
	query := `SELECT ` + reportColumns + ` FROM vapt_reports WHERE ($1::text = '' OR company_id = $1) ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, apperrors.Internal("failed to list reports", err)
	}
	defer rows.Close()

	reports := make([]*domain.VAPTReport, 0)
	ids := make([]string, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, apperrors.Internal("failed to scan report", err)
		}
		reports = append(reports, rep)
		ids = append(ids, rep.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to list reports", err)
	}
	rows.Close()

	findings, err := r.findingsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, rep := range reports {
		rep.Findings = findings[rep.ID]
		if rep.Findings == nil {
			rep.Findings = []domain.Finding{}
		}
	}
	return reports, nil
}

// Update stores the report row and rewrites its findings in one transaction
func (r *VAPTRepository) Update(ctx context.Context, rep *domain.VAPTReport) error {
	query := `UPDATE vapt_reports SET title = $2, client_name = $3, summary = $4, status = $5 WHERE id = $1`

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, rep.ID, rep.Title, rep.ClientName, rep.Summary, string(rep.Status))
		if err != nil {
			return apperrors.Internal("failed to update report", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("report", rep.ID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM vapt_findings WHERE report_id = $1`, rep.ID); err != nil {
			return apperrors.Internal("failed to clear findings", err)
		}
		return insertFindings(ctx, tx, rep.ID, rep.Findings)
	})
}

// Delete removes a report; findings cascade
func (r *VAPTRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vapt_reports WHERE id = $1`, id)
	if err != nil {
		return apperrors.Internal("failed to delete report", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("report", id)
	}
	return nil
}

func (r *VAPTRepository) findingsFor(ctx context.Context, reportIDs []string) (map[string][]domain.Finding, error) {
	out := make(map[string][]domain.Finding, len(reportIDs))
	if len(reportIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT report_id, id, title, severity, description, evidence, remediation, cvss
		FROM vapt_findings
		WHERE report_id = ANY($1)
		ORDER BY report_id, ordinal
	`
	rows, err := r.db.Query(ctx, query, reportIDs)
	if err != nil {
		return nil, apperrors.Internal("failed to get findings", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reportID, severity string
		var f domain.Finding
		if err := rows.Scan(&reportID, &f.ID, &f.Title, &severity, &f.Description, &f.Evidence, &f.Remediation, &f.CVSS); err != nil {
			return nil, apperrors.Internal("failed to scan finding", err)
		}
		f.Severity = domain.Severity(severity)
		out[reportID] = append(out[reportID], f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to read findings", err)
	}
	return out, nil
}

func insertFindings(ctx context.Context, tx pgx.Tx, reportID string, findings []domain.Finding) error {
	query := `
		INSERT INTO vapt_findings (report_id, id, ordinal, title, severity, description, evidence, remediation, cvss)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i, f := range findings {
		_, err := tx.Exec(ctx, query, reportID, f.ID, i, f.Title, string(f.Severity), f.Description, f.Evidence, f.Remediation, f.CVSS)
		if err != nil {
			return apperrors.Internal("failed to store finding", err)
		}
	}
	return nil
}

func scanReport(row pgx.Row) (*domain.VAPTReport, error) {
	rep := &domain.VAPTReport{}
	var status string
	if err := row.Scan(&rep.ID, &rep.Title, &rep.ClientName, &rep.Summary, &status, &rep.CompanyID, &rep.CreatedAt); err != nil {
		return nil, err
	}
	rep.Status = domain.ReportStatus(status)
	return rep, nil
}
