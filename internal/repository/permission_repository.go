package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

// PermissionRepository stores per-module capability flags in user_permissions
type PermissionRepository struct {
	db  DBTX
	log *logger.Logger
}

func NewPermissionRepository(db DBTX, log *logger.Logger) *PermissionRepository {
	return &PermissionRepository{
		db:  db,
		log: log,
	}
}

// GetUserPermissions loads the stored permission map of a user
func (r *PermissionRepository) GetUserPermissions(ctx context.Context, userID string) (domain.Permissions, error) {
	perms, err := r.forUsers(ctx, r.db, []string{userID})
	if err != nil {
		return nil, err
	}
	if p, ok := perms[userID]; ok {
		return p, nil
	}
	return domain.Permissions{}, nil
}

// forUsers loads permission maps for several users in one query
func (r *PermissionRepository) forUsers(ctx context.Context, q DBTX, userIDs []string) (map[string]domain.Permissions, error) {
	query := `
		SELECT user_id, module, can_read, can_write, can_execute
		FROM user_permissions
		WHERE user_id = ANY($1)
	`

	rows, err := q.Query(ctx, query, userIDs)
	if err != nil {
		return nil, apperrors.Internal("failed to get user permissions", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Permissions, len(userIDs))
	for rows.Next() {
		var (
			userID string
			module string
			p      domain.Permission
		)
		if err := rows.Scan(&userID, &module, &p.Read, &p.Write, &p.Execute); err != nil {
			return nil, apperrors.Internal("failed to scan permission", err)
		}
		if out[userID] == nil {
			out[userID] = domain.Permissions{}
		}
		out[userID][domain.Module(module)] = p
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to read permissions", err)
	}
	return out, nil
}

// replace swaps a user's permission rows inside tx
func (r *PermissionRepository) replace(ctx context.Context, tx pgx.Tx, userID string, perms domain.Permissions) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID); err != nil {
		return apperrors.Internal("failed to clear permissions", err)
	}

	query := `
		INSERT INTO user_permissions (user_id, module, can_read, can_write, can_execute)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, m := range domain.Modules {
		p, ok := perms[m]
		if !ok {
			continue
		}
		if _, err := tx.Exec(ctx, query, userID, string(m), p.Read, p.Write, p.Execute); err != nil {
			return apperrors.Internal("failed to store permission", err)
		}
	}
	return nil
}
