package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/showfolio/showfolio-backend/internal/identity"
)

// ProfileRepository persists resolved identities in the profiles table.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID retrieves a profile by its subject id.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*identity.Identity, error) {
	query := `
		SELECT id, name, email, role, permissions
		FROM profiles
		WHERE id = $1
	`

	var ident identity.Identity
	var name sql.NullString
	var role sql.NullString
	var permissions pq.StringArray

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ident.ID,
		&name,
		&ident.Email,
		&role,
		&permissions,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	// Nullable columns map to explicit defaults; the returned identity is
	// always fully populated.
	if name.Valid {
		ident.Name = name.String
	} else {
		ident.Name = identity.NameFromEmail(ident.Email)
	}
	if role.Valid && role.String != "" {
		ident.Role = identity.Role(role.String)
	} else {
		ident.Role = identity.RoleUser
	}
	ident.Permissions = toCategories(permissions)

	return &ident, nil
}

// Create inserts a new profile. A duplicate id yields
// identity.ErrProfileExists so callers can treat it as an idempotent
// create.
func (r *ProfileRepository) Create(ctx context.Context, ident identity.Identity) error {
	query := `
		INSERT INTO profiles (id, name, email, role, permissions)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		ident.ID,
		ident.Name,
		ident.Email,
		string(ident.Role),
		pq.Array(fromCategories(ident.Permissions)),
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return identity.ErrProfileExists
	}
	return err
}

// Upsert creates or updates a profile in place, keyed by id.
func (r *ProfileRepository) Upsert(ctx context.Context, ident identity.Identity) error {
	query := `
		INSERT INTO profiles (id, name, email, role, permissions)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    role = EXCLUDED.role,
		    permissions = EXCLUDED.permissions,
		    updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		ident.ID,
		ident.Name,
		ident.Email,
		string(ident.Role),
		pq.Array(fromCategories(ident.Permissions)),
	)
	return err
}

// Delete removes a profile by id. Deleting a missing profile yields
// identity.ErrProfileNotFound.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return identity.ErrProfileNotFound
	}
	return nil
}

// List returns all profiles ordered by creation time, newest first.
func (r *ProfileRepository) List(ctx context.Context) ([]identity.Identity, error) {
	query := `
		SELECT id, name, email, role, permissions
		FROM profiles
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]identity.Identity, 0, 16)
	for rows.Next() {
		var ident identity.Identity
		var name, role sql.NullString
		var permissions pq.StringArray

		if err := rows.Scan(&ident.ID, &name, &ident.Email, &role, &permissions); err != nil {
			return nil, err
		}

		if name.Valid {
			ident.Name = name.String
		} else {
			ident.Name = identity.NameFromEmail(ident.Email)
		}
		if role.Valid && role.String != "" {
			ident.Role = identity.Role(role.String)
		} else {
			ident.Role = identity.RoleUser
		}
		ident.Permissions = toCategories(permissions)

		out = append(out, ident)
	}
	return out, rows.Err()
}

// RoleOf is the direct remote role check performed immediately before
// destructive project writes.
func (r *ProfileRepository) RoleOf(ctx context.Context, id string) (identity.Role, error) {
	var role sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT role FROM profiles WHERE id = $1`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", identity.ErrProfileNotFound
	}
	if err != nil {
		return "", err
	}
	if !role.Valid || role.String == "" {
		return identity.RoleUser, nil
	}
	return identity.Role(role.String), nil
}

func toCategories(in []string) []identity.Category {
	if len(in) == 0 {
		return nil
	}
	out := make([]identity.Category, 0, len(in))
	for _, s := range in {
		out = append(out, identity.Category(s))
	}
	return out
}

func fromCategories(in []identity.Category) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		out = append(out, string(c))
	}
	return out
}
