package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
)

// UserRepository handles user data operations
type UserRepository struct {
	db    DBTX
	perms *PermissionRepository
	log   *logger.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DBTX, perms *PermissionRepository, log *logger.Logger) *UserRepository {
	return &UserRepository{db: db, perms: perms, log: log}
}

const userColumns = `id, username, email, password_hash, role, must_change_password, created_at`

// Create inserts a user and its permission rows in one transaction
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, must_change_password, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			user.ID,
			user.Username,
			user.Email,
			user.PasswordHash,
			string(user.Role),
			user.MustChangePassword,
			user.CreatedAt,
		)
		if isUniqueViolation(err) {
			return apperrors.Conflict("username or email already in use")
		}
		if err != nil {
			return apperrors.Internal("failed to create user", err)
		}
		return r.perms.replace(ctx, tx, user.ID, user.Permissions)
	})
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByLogin retrieves a user by username or email
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 OR lower(email) = lower($1) LIMIT 1`, login)
}

func (r *UserRepository) getOne(ctx context.Context, query, key string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, key))
	if isNoRows(err) {
		return nil, apperrors.NotFound("user", key)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get user", err)
	}

	perms, err := r.perms.forUsers(ctx, r.db, []string{user.ID})
	if err != nil {
		return nil, err
	}
	user.Permissions = perms[user.ID]
	if user.Permissions == nil {
		user.Permissions = domain.Permissions{}
	}
	return user, nil
}

// List retrieves all users ordered by creation time
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil, apperrors.Internal("failed to list users", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	ids := make([]string, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.Internal("failed to scan user", err)
		}
		users = append(users, user)
		ids = append(ids, user.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to list users", err)
	}
	rows.Close()

	perms, err := r.perms.forUsers(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		u.Permissions = perms[u.ID]
		if u.Permissions == nil {
			u.Permissions = domain.Permissions{}
		}
	}
	return users, nil
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, apperrors.Internal("failed to count users", err)
	}
	return n, nil
}

// Update stores email, role, password flag and permissions in one transaction
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $2, role = $3, must_change_password = $4
		WHERE id = $1
	`

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, user.ID, user.Email, string(user.Role), user.MustChangePassword)
		if isUniqueViolation(err) {
			return apperrors.Conflict("email already in use")
		}
		if err != nil {
			return apperrors.Internal("failed to update user", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("user", user.ID)
		}
		return r.perms.replace(ctx, tx, user.ID, user.Permissions)
	})
}

// UpdatePassword replaces the password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string, mustChange bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, must_change_password = $3 WHERE id = $1`, id, hash, mustChange)
	if err != nil {
		return apperrors.Internal("failed to update password", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

// Delete deletes a user; permissions and sessions cascade
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperrors.Internal("failed to delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	var role string
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.MustChangePassword,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return user, nil
}
